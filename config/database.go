package config

import "time"

// DBConfig contains PostgreSQL configuration for the auth audit trail.
type DBConfig struct {
	// Enabled turns the audit trail on; without it events are only logged.
	Enabled  bool   `env:"ENABLED"  envDefault:"false"`
	Host     string `env:"HOST"     envDefault:"localhost"`
	Port     int    `env:"PORT"     envDefault:"5432"`
	User     string `env:"USER"     envDefault:"fixzone"`
	Password string `env:"PASSWORD" envDefault:"fixzone"`
	Name     string `env:"NAME"     envDefault:"fixzone"`
	SSLMode  string `env:"SSL_MODE" envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
	// RunMigrationsOnStart controls whether the application automatically applies migrations during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
}

// RedisConfig contains Redis configuration for the per-visitor session cache.
type RedisConfig struct {
	// Enabled keeps persisted session state in Redis; otherwise it lives in memory only.
	Enabled            bool     `env:"ENABLED"              envDefault:"true"`
	URI                string   `env:"URI"                  envDefault:"localhost:6379"`
	Password           string   `env:"PASSWORD"             envDefault:""`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:"localhost:26379"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
	ClusterNodes       []string `env:"CLUSTER_NODES"        envDefault:""`
	UseCluster         bool     `env:"USE_CLUSTER"          envDefault:"false"`

	// KeyPrefix namespaces session cache keys.
	KeyPrefix string `env:"KEY_PREFIX" envDefault:"fixzone:visitor:"`
	// StateTTL expires a visitor's cached state after this long untouched.
	StateTTL time.Duration `env:"STATE_TTL" envDefault:"168h"`
}
