package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	neturl "net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Directory backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Config centralises runtime configuration of the server.
type Config struct {
	HTTP      HTTPConfig
	Directory DirectoryConfig
	Auth      AuthConfig
	Redis     RedisConfig    `envPrefix:"REDIS_"`
	Throttle  ThrottleConfig `envPrefix:"LOGIN_THROTTLE_"`
	LogLevel  string         `env:"LOG_LEVEL" envDefault:"info"`
}

// HTTPConfig configures the listener and CORS policy.
type HTTPConfig struct {
	Port           string        `env:"HTTP_PORT"`
	PlatformPort   string        `env:"PORT" envDefault:"8080"`
	AllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	ReadTimeout    time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout   time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"15s"`
	IdleTimeout    time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
}

// DirectoryConfig selects and configures the identity directory.
type DirectoryConfig struct {
	Backend          string `env:"DIRECTORY_BACKEND" envDefault:"memory"`
	DatabaseURL      string `env:"DATABASE_URL"`
	MaxConns         int32  `env:"DATABASE_MAX_CONNS" envDefault:"10"`
	SeedDemo         string `env:"SEED_DEMO_ACCOUNTS"`
	// SeedDemoAccounts is resolved from SeedDemo by Sanitize. Unset means
	// seed only the memory backend.
	SeedDemoAccounts bool `env:"-"`
}

// AuthConfig holds token and password hashing settings.
type AuthConfig struct {
	JWTSecret  string `env:"JWT_SECRET"`
	JWTIssuer  string `env:"JWT_ISSUER" envDefault:"eportfolio"`
	BcryptCost int    `env:"BCRYPT_COST" envDefault:"10"`
}

// RedisConfig locates the redis instance used by the login throttle.
type RedisConfig struct {
	Addr     string `env:"ADDR" envDefault:"localhost:6379"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

// ThrottleConfig bounds login attempts per account.
type ThrottleConfig struct {
	Enabled     bool          `env:"ENABLED" envDefault:"false"`
	MaxAttempts int           `env:"MAX_ATTEMPTS" envDefault:"5"`
	Window      time.Duration `env:"WINDOW" envDefault:"15m"`
}

// Load reads configuration from an optional .env file and the environment.
func Load() (Config, error) {
	if err := loadDotEnv(); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg.Sanitize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Sanitize applies defaults and fallbacks that struct tags cannot express.
func (c *Config) Sanitize() {
	c.HTTP.Port = strings.TrimSpace(c.HTTP.Port)
	if c.HTTP.Port == "" {
		c.HTTP.Port = c.HTTP.PlatformPort
	}
	c.HTTP.AllowedOrigins = trimAll(c.HTTP.AllowedOrigins)
	if len(c.HTTP.AllowedOrigins) == 0 {
		c.HTTP.AllowedOrigins = []string{"*"}
	}

	c.Directory.Backend = strings.ToLower(strings.TrimSpace(c.Directory.Backend))
	if c.Directory.Backend == BackendPostgres {
		if url := coerceDatabaseURL(c.Directory.DatabaseURL); url != "" {
			c.Directory.DatabaseURL = url
		} else {
			c.Directory.DatabaseURL = resolveDatabaseURL()
		}
	}

	c.Directory.SeedDemo = strings.TrimSpace(c.Directory.SeedDemo)
	if c.Directory.SeedDemo == "" {
		c.Directory.SeedDemoAccounts = c.Directory.Backend == BackendMemory
	} else if seed, err := strconv.ParseBool(c.Directory.SeedDemo); err == nil {
		c.Directory.SeedDemoAccounts = seed
	}
}

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	switch c.Directory.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Directory.DatabaseURL == "" {
			return errors.New("database configuration missing: provide DATABASE_URL or PG* env vars")
		}
	default:
		return fmt.Errorf("unsupported DIRECTORY_BACKEND %q", c.Directory.Backend)
	}
	if c.Directory.SeedDemo != "" {
		if _, err := strconv.ParseBool(c.Directory.SeedDemo); err != nil {
			return fmt.Errorf("invalid SEED_DEMO_ACCOUNTS %q", c.Directory.SeedDemo)
		}
	}
	if c.Throttle.Enabled {
		if c.Throttle.MaxAttempts <= 0 {
			return errors.New("LOGIN_THROTTLE_MAX_ATTEMPTS must be positive")
		}
		if c.Throttle.Window <= 0 {
			return errors.New("LOGIN_THROTTLE_WINDOW must be positive")
		}
	}
	return nil
}

// SlogLevel maps LOG_LEVEL onto a slog level. Unknown values mean info.
func (c Config) SlogLevel() slog.Level {
	return ParseLogLevel(c.LogLevel)
}

// ParseLogLevel maps a textual level onto slog.
func ParseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func loadDotEnv() error {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return fmt.Errorf("load .env file: %w", err)
		}
	}
	return nil
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func resolveDatabaseURL() string {
	for _, key := range []string{"DATABASE_URL", "DATABASE_PUBLIC_URL", "POSTGRES_URL", "PGURL"} {
		if url := coerceDatabaseURL(os.Getenv(key)); url != "" {
			return url
		}
	}

	if path := os.Getenv("DATABASE_URL_FILE"); path != "" {
		if data, err := os.ReadFile(path); err == nil {
			if url := coerceDatabaseURL(string(data)); url != "" {
				return url
			}
		}
	}

	host := firstNonEmpty(os.Getenv("PGHOST"), os.Getenv("POSTGRES_HOST"))
	user := firstNonEmpty(os.Getenv("PGUSER"), os.Getenv("POSTGRES_USER"))
	if host == "" || user == "" {
		return ""
	}
	password := firstNonEmpty(os.Getenv("PGPASSWORD"), os.Getenv("POSTGRES_PASSWORD"))
	database := firstNonEmpty(os.Getenv("PGDATABASE"), os.Getenv("POSTGRES_DB"), user)
	port := firstNonEmpty(os.Getenv("PGPORT"), os.Getenv("POSTGRES_PORT"), "5432")
	sslMode := firstNonEmpty(os.Getenv("PGSSLMODE"), "disable")

	dsn := &neturl.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(host, port),
		Path:   "/" + database,
		User:   neturl.User(user),
	}
	if password != "" {
		dsn.User = neturl.UserPassword(user, password)
	}
	query := dsn.Query()
	query.Set("sslmode", sslMode)
	dsn.RawQuery = query.Encode()

	return dsn.String()
}

func coerceDatabaseURL(raw string) string {
	raw = strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(raw, "postgres://"):
		return raw
	case strings.HasPrefix(raw, "postgresql://"):
		return "postgres://" + strings.TrimPrefix(raw, "postgresql://")
	default:
		return ""
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
