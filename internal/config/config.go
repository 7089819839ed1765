package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// MonadTestnetChainID is the only network batch transfers are sent on.
const MonadTestnetChainID = 10143

// PublicNeynarAPIKey is the documented shared key used when NEYNAR_API_KEY is unset.
const PublicNeynarAPIKey = "NEYNAR_API_DOCS"

// Point weights per engagement kind, in tenths of a point.
const (
	ReactionWeightTenths = 10
	ReplyWeightTenths    = 12
	RecastWeightTenths   = 16
)

// SearchTerms are the keywords searched every leaderboard cycle.
var SearchTerms = []string{
	"monad",
	"gmonad",
	"monadbft",
	"monaddb",
	"monad momentum",
	"monad testnet",
	"monad mainnet",
	"monad tps",
	"monad airdrop",
	"monad parallel",
	"monad lately",
	"monad latency",
	"monad dose",
	"monad cast",
	"monad optimistic",
	"monad execution",
	"monad asynchronous",
	"monad evm compatible",
	"monad layer 1",
	"monad L1",
	"monad ethereum",
	"monad mon",
	"monad launchpad",
	"monad decentralization",
	"monad nads",
	"monad nad",
	"monad protocol",
	"monad project",
	"monad evm",
	"execution layer monad",
	"monad scalability",
	"monad fast",
	"monad speed",
	"10k tps",
	"10.000 tps",
	"monad low",
	"monad low fee",
	"monadl1",
	"monadcommunity",
	"monad smart contract",
	"monad smartcontract",
	"monad blockchain",
	"monad crypto",
	"monad onchain",
	"monad builders",
	"monad build",
	"monad buidl",
	"monad devs",
	"monad developers",
	"monaddev",
	"monad hackathon",
	"deploy on monad",
	"monad dapp",
	"monad fam",
	"monad crew",
	"gm monad",
	"monad love",
	"monad move",
	"monad memes",
	"monad gem",
	"monad data",
	"monad nft",
}

// BlockedAuthorIDs never count toward the leaderboard.
var BlockedAuthorIDs = []int64{282172, 1114650}

// PresetAmounts are the one-click per-recipient amounts, in MON.
var PresetAmounts = []string{"0.1", "0.5"}

// Config holds runtime configuration for the mindshare service.
type Config struct {
	HTTPAddr string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	KafkaBrokers          []string
	KafkaTopicLeaderboard string
	KafkaTopicTransfers   string
	KafkaGroupID          string

	FarcasterEndpoint    string
	FarcasterFetchLimit  int
	FarcasterTermTimeout time.Duration
	SearchTerms          []string
	BlockedAuthorIDs     []int64

	NeynarEndpoint     string
	NeynarAPIKey       string
	NeynarExperimental bool

	RPCURL                   string
	PrivateKey               string
	TipRailAddress           string
	ChainID                  int64
	ConfirmationPollInterval time.Duration

	RefreshInterval     time.Duration
	LeaderboardCacheKey string
	LeaderboardCacheTTL time.Duration
	BlocklistSetKey     string

	LogLevel  string
	LogFormat string
}

// UsingPublicNeynarKey reports whether the shared fallback credential is in use.
func (c Config) UsingPublicNeynarKey() bool {
	return c.NeynarAPIKey == PublicNeynarAPIKey
}

// envOrDefault returns the value of an env var or a default.
func envOrDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envIntOrDefault(key string, def int) (int, error) {
	if raw := os.Getenv(key); raw != "" {
		val, err := strconv.Atoi(raw)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return val, nil
	}

	return def, nil
}

func envBoolOrDefault(key string, def bool) (bool, error) {
	if raw := os.Getenv(key); raw != "" {
		val, err := strconv.ParseBool(raw)
		if err != nil {
			return false, fmt.Errorf("invalid %s: %w", key, err)
		}
		return val, nil
	}
	return def, nil
}

func envDurationOrDefault(key string, def time.Duration) (time.Duration, error) {
	if raw := os.Getenv(key); raw != "" {
		val, err := time.ParseDuration(raw)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return val, nil
	}
	return def, nil
}

func envCSVOrDefault(key, def string) []string {
	raw := envOrDefault(key, def)
	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// envInt64CSV parses a comma separated id list; unset yields def.
func envInt64CSV(key string, def []int64) ([]int64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return append([]int64(nil), def...), nil
	}
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s entry %q: %w", key, part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// LoadConfig loads configuration from a local .env file (if any) and
// environment variables.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv reads configuration from the process environment only.
func FromEnv() (Config, error) {
	redisDB, err := envIntOrDefault("REDIS_DB", 0)
	if err != nil {
		return Config{}, err
	}
	fetchLimit, err := envIntOrDefault("FARCASTER_FETCH_LIMIT", 100)
	if err != nil {
		return Config{}, err
	}
	termTimeout, err := envDurationOrDefault("FARCASTER_TERM_TIMEOUT", 15*time.Second)
	if err != nil {
		return Config{}, err
	}
	experimental, err := envBoolOrDefault("NEYNAR_EXPERIMENTAL", false)
	if err != nil {
		return Config{}, err
	}
	chainID, err := envIntOrDefault("CHAIN_ID", MonadTestnetChainID)
	if err != nil {
		return Config{}, err
	}
	pollInterval, err := envDurationOrDefault("CONFIRMATION_POLL_INTERVAL", 2*time.Second)
	if err != nil {
		return Config{}, err
	}
	refresh, err := envDurationOrDefault("REFRESH_INTERVAL", 5*time.Minute)
	if err != nil {
		return Config{}, err
	}
	cacheTTL, err := envDurationOrDefault("LEADERBOARD_CACHE_TTL", 15*time.Minute)
	if err != nil {
		return Config{}, err
	}
	blocked, err := envInt64CSV("BLOCKED_AUTHOR_IDS", BlockedAuthorIDs)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		HTTPAddr: envOrDefault("HTTP_ADDR", ":8080"),

		RedisAddr:     envOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,

		KafkaBrokers:          envCSVOrDefault("KAFKA_BROKERS", "localhost:9092"),
		KafkaTopicLeaderboard: envOrDefault("KAFKA_TOPIC_LEADERBOARD", "mindshare_leaderboard"),
		KafkaTopicTransfers:   envOrDefault("KAFKA_TOPIC_TRANSFERS", "mindshare_transfers"),
		KafkaGroupID:          envOrDefault("KAFKA_GROUP_ID", "mindshare-events"),

		FarcasterEndpoint:    envOrDefault("FARCASTER_ENDPOINT", "https://client.farcaster.xyz/v2/search-casts"),
		FarcasterFetchLimit:  fetchLimit,
		FarcasterTermTimeout: termTimeout,
		SearchTerms:          append([]string(nil), SearchTerms...),
		BlockedAuthorIDs:     blocked,

		NeynarEndpoint:     envOrDefault("NEYNAR_ENDPOINT", "https://api.neynar.com/v2/farcaster/user/bulk"),
		NeynarAPIKey:       envOrDefault("NEYNAR_API_KEY", PublicNeynarAPIKey),
		NeynarExperimental: experimental,

		RPCURL:                   os.Getenv("RPC_URL"),
		PrivateKey:               strings.TrimPrefix(os.Getenv("PRIVATE_KEY"), "0x"),
		TipRailAddress:           os.Getenv("TIP_RAIL_ADDRESS"),
		ChainID:                  int64(chainID),
		ConfirmationPollInterval: pollInterval,

		RefreshInterval:     refresh,
		LeaderboardCacheKey: envOrDefault("LEADERBOARD_CACHE_KEY", "mindshare:leaderboard:latest"),
		LeaderboardCacheTTL: cacheTTL,
		BlocklistSetKey:     envOrDefault("BLOCKLIST_SET_KEY", "mindshare:blocklist"),

		LogLevel:  envOrDefault("LOG_LEVEL", "info"),
		LogFormat: envOrDefault("LOG_FORMAT", "json"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c Config) Validate() error {
	if len(c.SearchTerms) == 0 {
		return errors.New("config: at least one search term is required")
	}
	if c.FarcasterFetchLimit <= 0 {
		return fmt.Errorf("config: FARCASTER_FETCH_LIMIT must be positive, got %d", c.FarcasterFetchLimit)
	}
	if c.ChainID <= 0 {
		return fmt.Errorf("config: CHAIN_ID must be positive, got %d", c.ChainID)
	}
	if c.ConfirmationPollInterval <= 0 {
		return errors.New("config: CONFIRMATION_POLL_INTERVAL must be positive")
	}
	return nil
}
