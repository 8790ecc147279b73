package postgres

// Schema evolution is additive-only: new columns and tables are appended by
// later migrations, existing columns are never reordered or retyped. The
// schema_version row is checked at open time against models.SchemaVersion.
const schema = `
CREATE TABLE IF NOT EXISTS ledger_meta (
	id              smallint PRIMARY KEY DEFAULT 1 CHECK (id = 1),
	schema_version  integer NOT NULL,
	initialized     boolean NOT NULL DEFAULT false,
	version_marker  text    NOT NULL DEFAULT '',
	total_donated   bigint  NOT NULL DEFAULT 0,
	total_withdrawn bigint  NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS roles (
	role    text NOT NULL,
	address text NOT NULL,
	PRIMARY KEY (role, address)
);

CREATE TABLE IF NOT EXISTS proposals (
	id             bigserial PRIMARY KEY,
	name           text        NOT NULL,
	description    text        NOT NULL DEFAULT '',
	payout_address text        NOT NULL,
	proposer       text        NOT NULL DEFAULT '',
	processed      boolean     NOT NULL DEFAULT false,
	approved       boolean     NOT NULL DEFAULT false,
	submitted_at   timestamptz NOT NULL,
	CHECK (processed OR NOT approved)
);

CREATE TABLE IF NOT EXISTS recipients (
	id                bigserial PRIMARY KEY,
	name              text        NOT NULL,
	description       text        NOT NULL DEFAULT '',
	payout_address    text        NOT NULL,
	lifetime_received bigint      NOT NULL DEFAULT 0,
	escrow            bigint      NOT NULL DEFAULT 0 CHECK (escrow >= 0),
	active            boolean     NOT NULL DEFAULT true,
	created_at        timestamptz NOT NULL
);

CREATE TABLE IF NOT EXISTS entries (
	seq          bigserial PRIMARY KEY,
	contributor  text        NOT NULL,
	recipient_id bigint      NOT NULL REFERENCES recipients (id),
	amount       bigint      NOT NULL CHECK (amount > 0),
	ts           timestamptz NOT NULL
);

CREATE TABLE IF NOT EXISTS contributors (
	address   text PRIMARY KEY,
	total     bigint NOT NULL CHECK (total >= 0),
	first_seq bigint NOT NULL
);

CREATE INDEX IF NOT EXISTS entries_recipient_idx ON entries (recipient_id);
CREATE INDEX IF NOT EXISTS proposals_pending_idx ON proposals (id) WHERE NOT processed;
`
