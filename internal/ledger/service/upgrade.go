package service

import (
	"context"
	"fmt"

	"almoner/internal/events"
	"almoner/internal/ledger/models"
	"almoner/pkg/platform/sentinel"
	"almoner/pkg/requestcontext"
)

// The upgrade gate never touches ledger state itself; it answers whether a
// caller may replace the logic operating on that state. Replacement here is
// snapshot-based migration: export under the gate, start the new build, and
// restore. The Snapshot schema (models.SchemaVersion) is the contract both
// sides must agree on.

// AuthorizeUpgrade passes for an Administrator or Super-Administrator and
// fails with ErrUnauthorized for anyone else.
func (s *Service) AuthorizeUpgrade(ctx context.Context) error {
	return s.requireAdmin(ctx, requestcontext.Caller(ctx))
}

// ExportSnapshot returns the full persisted state for migration. Gated by
// AuthorizeUpgrade. The export runs under the operation lock so it is a
// point-in-time image, never a mix of pre- and post-mutation state.
func (s *Service) ExportSnapshot(ctx context.Context) (models.Snapshot, error) {
	if err := s.AuthorizeUpgrade(ctx); err != nil {
		return models.Snapshot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("export snapshot: %w", err)
	}
	snap.SchemaVersion = models.SchemaVersion
	return snap, nil
}

// RestoreSnapshot seeds the store from an exported snapshot. Intended for
// bootstrapping a new logic version against existing state; it refuses to
// run on an initialized ledger and refuses schema versions this build does
// not understand.
func (s *Service) RestoreSnapshot(ctx context.Context, snap models.Snapshot) error {
	if err := s.AuthorizeUpgrade(ctx); err != nil {
		return err
	}
	if snap.SchemaVersion != models.SchemaVersion {
		return fmt.Errorf("snapshot schema %d, logic expects %d: %w",
			snap.SchemaVersion, models.SchemaVersion, sentinel.ErrSchemaVersion)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	done, err := s.store.Initialized(ctx)
	if err != nil {
		return err
	}
	if done {
		return sentinel.ErrAlreadyInitialized
	}
	if err := s.txr.RunInTx(ctx, func(ctx context.Context) error {
		return s.store.Restore(ctx, snap)
	}); err != nil {
		return fmt.Errorf("restore snapshot: %w", err)
	}
	s.logger.Info("snapshot restored",
		"recipients", len(snap.Recipients), "entries", len(snap.Entries))
	return nil
}

// VersionMarker returns the admin-settable revision label.
func (s *Service) VersionMarker(ctx context.Context) (string, error) {
	return s.store.VersionMarker(ctx)
}

// SetVersionMarker updates the human-readable revision label. Administrator
// only. Independent of the compiled-in Revision constant.
func (s *Service) SetVersionMarker(ctx context.Context, v string) error {
	caller := requestcontext.Caller(ctx)
	if v == "" {
		return fmt.Errorf("version marker: %w", sentinel.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAdmin(ctx, caller); err != nil {
		return err
	}
	old, err := s.store.VersionMarker(ctx)
	if err != nil {
		return err
	}
	if err := s.store.SetVersionMarker(ctx, v); err != nil {
		return err
	}

	s.emit(ctx, events.Event{
		Kind:       events.KindVersionUpdated,
		Actor:      caller,
		OldVersion: old,
		NewVersion: v,
	})
	s.logger.Info("version marker updated", "old", old, "new", v, "admin", caller)
	return nil
}
