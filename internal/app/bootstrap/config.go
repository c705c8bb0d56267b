package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ServiceID string

	HTTPPort int
	GRPCPort int

	DatabaseURL string
	MaxDBConns  int32
	RedisURL    string

	GatewayJWTSecret string

	FeeBps                   uint32
	FeeRecipient             string
	GrantsRequireAttestation bool
	MaxSplitRecipients       int

	// "identity=capability1|capability2" entries.
	CapabilityGrants []string
	// "identity=hexpubkey" entries.
	SignerKeys []string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
}

type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		DatabaseURL string `yaml:"database_url"`
		MaxDBConns  int    `yaml:"max_db_conns"`
		RedisURL    string `yaml:"redis_url"`
	} `yaml:"dependencies"`
	Policy struct {
		FeeBps                   int      `yaml:"fee_bps"`
		FeeRecipient             string   `yaml:"fee_recipient"`
		GrantsRequireAttestation *bool    `yaml:"grants_require_attestation"`
		MaxSplitRecipients       int      `yaml:"max_split_recipients"`
		CapabilityGrants         []string `yaml:"capability_grants"`
		SignerKeys               []string `yaml:"signer_keys"`
	} `yaml:"policy"`
	Security struct {
		GatewayJWTSecret string `yaml:"gateway_jwt_secret"`
	} `yaml:"security"`
	Outbox struct {
		PollSeconds int `yaml:"poll_seconds"`
		BatchSize   int `yaml:"batch_size"`
	} `yaml:"outbox"`
}

// LoadConfig reads defaults, overlays the YAML file when present, then
// overlays environment variables. Environment always wins.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:                "settlement-engine",
		HTTPPort:                 8080,
		GRPCPort:                 9090,
		GrantsRequireAttestation: true,
		MaxSplitRecipients:       32,
		OutboxPollInterval:       2 * time.Second,
		OutboxBatchSize:          100,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Service.GRPCPort > 0 {
			cfg.GRPCPort = f.Service.GRPCPort
		}
		cfg.DatabaseURL = f.Dependencies.DatabaseURL
		if f.Dependencies.MaxDBConns > 0 {
			cfg.MaxDBConns = int32(f.Dependencies.MaxDBConns)
		}
		cfg.RedisURL = f.Dependencies.RedisURL
		if f.Policy.FeeBps > 0 {
			cfg.FeeBps = uint32(f.Policy.FeeBps)
		}
		cfg.FeeRecipient = f.Policy.FeeRecipient
		if f.Policy.GrantsRequireAttestation != nil {
			cfg.GrantsRequireAttestation = *f.Policy.GrantsRequireAttestation
		}
		if f.Policy.MaxSplitRecipients > 0 {
			cfg.MaxSplitRecipients = f.Policy.MaxSplitRecipients
		}
		if len(f.Policy.CapabilityGrants) > 0 {
			cfg.CapabilityGrants = trimNonEmpty(f.Policy.CapabilityGrants)
		}
		if len(f.Policy.SignerKeys) > 0 {
			cfg.SignerKeys = trimNonEmpty(f.Policy.SignerKeys)
		}
		cfg.GatewayJWTSecret = f.Security.GatewayJWTSecret
		if f.Outbox.PollSeconds > 0 {
			cfg.OutboxPollInterval = time.Duration(f.Outbox.PollSeconds) * time.Second
		}
		if f.Outbox.BatchSize > 0 {
			cfg.OutboxBatchSize = f.Outbox.BatchSize
		}
	}

	cfg.ServiceID = envOrDefault("SERVICE_ID", cfg.ServiceID)
	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.DatabaseURL = envOrDefault("DATABASE_URL", cfg.DatabaseURL)
	cfg.MaxDBConns = int32(envInt("MAX_DB_CONNS", int(cfg.MaxDBConns)))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.GatewayJWTSecret = envOrDefault("GATEWAY_JWT_SECRET", cfg.GatewayJWTSecret)
	cfg.FeeBps = uint32(envInt("FEE_BPS", int(cfg.FeeBps)))
	cfg.FeeRecipient = envOrDefault("FEE_RECIPIENT", cfg.FeeRecipient)
	cfg.GrantsRequireAttestation = envBool("GRANTS_REQUIRE_ATTESTATION", cfg.GrantsRequireAttestation)
	cfg.MaxSplitRecipients = envInt("MAX_SPLIT_RECIPIENTS", cfg.MaxSplitRecipients)
	cfg.CapabilityGrants = envCSV("CAPABILITY_GRANTS", cfg.CapabilityGrants)
	cfg.SignerKeys = envCSV("SIGNER_KEYS", cfg.SignerKeys)
	cfg.OutboxPollInterval = time.Duration(envInt("OUTBOX_POLL_SECONDS", int(cfg.OutboxPollInterval.Seconds()))) * time.Second
	cfg.OutboxBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)

	return cfg, nil
}

func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envCSV(name string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	return trimNonEmpty(strings.Split(raw, ","))
}

func trimNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
