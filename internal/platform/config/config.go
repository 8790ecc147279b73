package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string

	// DatabaseURL selects the postgres store; empty runs on the memory store.
	DatabaseURL string

	// RedisURL enables the leaderboard cache; empty disables it.
	RedisURL            string
	LeaderboardCacheTTL time.Duration

	// KafkaBrokers enables the async event sink; empty disables it.
	KafkaBrokers []string
	KafkaTopic   string

	// PayoutURL is the external payout processor; empty falls back to the
	// log sink.
	PayoutURL string

	// DeployerAddress, when set, lets main run genesis at startup on behalf
	// of that identity. GenesisFile lists the seeded recipients.
	DeployerAddress string
	GenesisFile     string

	// ProposalRateLimit bounds open proposal submission per caller per hour.
	ProposalRateLimit int
}

// FromEnv builds a Server config from environment variables so main stays
// lean.
func FromEnv() Server {
	addr := os.Getenv("ALMONER_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default - must be overridden in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	topic := os.Getenv("KAFKA_TOPIC")
	if topic == "" {
		topic = "almoner.events"
	}

	rate := 10
	if v := os.Getenv("PROPOSAL_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			rate = n
		}
	}

	ttl := 5 * time.Second
	if v := os.Getenv("LEADERBOARD_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			ttl = d
		}
	}

	return Server{
		Addr:                addr,
		JWTSigningKey:       jwtSigningKey,
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		RedisURL:            os.Getenv("REDIS_URL"),
		LeaderboardCacheTTL: ttl,
		KafkaBrokers:        splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:          topic,
		PayoutURL:           os.Getenv("PAYOUT_URL"),
		DeployerAddress:     os.Getenv("DEPLOYER_ADDRESS"),
		GenesisFile:         os.Getenv("GENESIS_FILE"),
		ProposalRateLimit:   rate,
	}
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
