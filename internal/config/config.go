package config

import "github.com/kelseyhightower/envconfig"

// Config holds application configuration loaded from environment variables.
type Config struct {
	Port        int    `envconfig:"PORT" default:"8080"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	Version     string `envconfig:"VERSION" default:"dev"`

	// Auth
	BcryptCost       int    `envconfig:"BCRYPT_COST" default:"12"`
	JWTSecret        string `envconfig:"JWT_SECRET" required:"true"`
	JWTExpiryMinutes int    `envconfig:"JWT_EXPIRY_MINUTES" default:"60"`

	// Initial administrator. Registration only creates student accounts,
	// so the first admin is seeded from these at startup when set.
	AdminEmail    string `envconfig:"ADMIN_EMAIL" default:""`
	AdminPassword string `envconfig:"ADMIN_PASSWORD" default:""`

	// Credential vault material. Both values are base64: a 16/24/32-byte
	// key and a 16-byte IV. Loaded once at startup; never logged.
	EncryptionKey string `envconfig:"ENCRYPTION_KEY" required:"true"`
	EncryptionIV  string `envconfig:"ENCRYPTION_IV" required:"true"`

	// Container provisioning
	ContainerPrefix string `envconfig:"CONTAINER_PREFIX" default:"nexusdb-app"`
	ContainerHost   string `envconfig:"CONTAINER_HOST" default:"127.0.0.1"`
	DataDir         string `envconfig:"DATA_DIR" default:""`
	MemoryLimitMB   int64  `envconfig:"MEMORY_LIMIT_MB" default:"512"`
	CPUQuota        int64  `envconfig:"CPU_QUOTA" default:"100000"`

	// Readiness polling
	ReadyIntervalSeconds int `envconfig:"READY_INTERVAL_SECONDS" default:"2"`
	ReadyAttempts        int `envconfig:"READY_ATTEMPTS" default:"30"`

	// Drift reconciler
	ReconcilerIntervalSeconds int `envconfig:"RECONCILER_INTERVAL" default:"30"`
}

// Load reads configuration from environment variables into a Config struct.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
