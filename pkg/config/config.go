package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	Session       SessionConfig
	Admin         AdminConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	GitHub        GitHubConfig
	Uploads       UploadsConfig
	Cart          CartConfig
	Realtime      RealtimeConfig
	Metrics       MetricsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Cart.DanglingPolicy {
	case DanglingKeep, DanglingCascade:
	default:
		return fmt.Errorf("%s must be %q or %q", EnvCartDanglingPolicy, DanglingKeep, DanglingCascade)
	}
	switch c.Uploads.Backend {
	case UploadBackendDisk:
	case UploadBackendGCS:
		if c.Uploads.GCSBucket == "" {
			return fmt.Errorf("%s is required when uploads backend is gcs", EnvUploadsGCSBucket)
		}
	default:
		return fmt.Errorf("%s must be %q or %q", EnvUploadsBackend, UploadBackendDisk, UploadBackendGCS)
	}
	switch c.Realtime.Relay {
	case RelayLocal, RelayRedis:
	default:
		return fmt.Errorf("%s must be %q or %q", EnvRealtimeRelay, RelayLocal, RelayRedis)
	}
	return nil
}

type AppConfig struct {
	Env          string   `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string   `envconfig:"STOREFRONT_APP_PORT" required:"true"`
	BaseURL      string   `envconfig:"STOREFRONT_APP_BASE_URL" default:"http://localhost:8080"`
	CORSOrigins  []string `envconfig:"STOREFRONT_CORS_ORIGINS"`
	LogLevel     string   `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogFormat    string   `envconfig:"STOREFRONT_LOG_FORMAT" default:"json"`
	LogWarnStack bool     `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN         string `envconfig:"STOREFRONT_DB_DSN"`
	Driver      string `envconfig:"STOREFRONT_DB_DRIVER" default:"postgres"`
	AutoMigrate bool   `envconfig:"STOREFRONT_DB_AUTO_MIGRATE" default:"false"`

	LegacyHost     string `envconfig:"STOREFRONT_DB_HOST"`
	LegacyPort     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STOREFRONT_DB_USER"`
	LegacyPassword string `envconfig:"STOREFRONT_DB_PASSWORD"`
	LegacyName     string `envconfig:"STOREFRONT_DB_NAME"`
	LegacySSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"STOREFRONT_DB_SLOW_QUERY" default:"250ms"`
}

// IsSQLite reports whether the sqlite driver is selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR" default:"localhost:6379"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	Namespace    string        `envconfig:"STOREFRONT_REDIS_NAMESPACE" default:"sf"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type SessionConfig struct {
	CookieName string        `envconfig:"STOREFRONT_SESSION_COOKIE_NAME" default:"sf_sid"`
	TTLMinutes int           `envconfig:"STOREFRONT_SESSION_TTL_MINUTES" default:"1440"`
	Secure     bool          `envconfig:"STOREFRONT_SESSION_SECURE" default:"false"`
	FlashTTL   time.Duration `envconfig:"STOREFRONT_SESSION_FLASH_TTL" default:"5m"`
}

// TTL returns the session lifetime.
func (s SessionConfig) TTL() time.Duration {
	if s.TTLMinutes <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(s.TTLMinutes) * time.Minute
}

// AdminConfig holds the reserved administrator identity. The admin account is
// not persisted; its password is compared as configured.
type AdminConfig struct {
	Email    string `envconfig:"STOREFRONT_ADMIN_EMAIL" default:"adminCoder@coder.com"`
	Password string `envconfig:"STOREFRONT_ADMIN_PASSWORD" required:"true"`
}

type JWTConfig struct {
	Secret          string `envconfig:"STOREFRONT_JWT_SECRET" required:"true"`
	Issuer          string `envconfig:"STOREFRONT_JWT_ISSUER" default:"storefront"`
	StateTTLMinutes int    `envconfig:"STOREFRONT_JWT_STATE_TTL_MINUTES" default:"10"`
}

// StateTTL returns how long an OAuth state token stays valid.
func (j JWTConfig) StateTTL() time.Duration {
	if j.StateTTLMinutes <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(j.StateTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"STOREFRONT_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"STOREFRONT_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"STOREFRONT_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"STOREFRONT_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"STOREFRONT_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"STOREFRONT_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type GitHubConfig struct {
	ClientID     string `envconfig:"STOREFRONT_GITHUB_CLIENT_ID"`
	ClientSecret string `envconfig:"STOREFRONT_GITHUB_CLIENT_SECRET"`
	CallbackURL  string `envconfig:"STOREFRONT_GITHUB_CALLBACK_URL" default:"http://localhost:8080/api/sessions/githubcallback"`
	APIBaseURL   string `envconfig:"STOREFRONT_GITHUB_API_BASE_URL" default:"https://api.github.com"`
}

// Enabled reports whether GitHub login is configured.
func (g GitHubConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

type UploadsConfig struct {
	Backend      string `envconfig:"STOREFRONT_UPLOADS_BACKEND" default:"disk"`
	Dir          string `envconfig:"STOREFRONT_UPLOADS_DIR" default:"public/uploads"`
	PublicPath   string `envconfig:"STOREFRONT_UPLOADS_PUBLIC_PATH" default:"/files/uploads"`
	MaxUploadMB  int    `envconfig:"STOREFRONT_UPLOADS_MAX_MB" default:"10"`
	MaxFiles     int    `envconfig:"STOREFRONT_UPLOADS_MAX_FILES" default:"10"`
	GCSBucket    string `envconfig:"STOREFRONT_UPLOADS_GCS_BUCKET"`
	GCSCredsFile string `envconfig:"STOREFRONT_GOOGLE_APPLICATION_CREDENTIALS"`
}

// MaxUploadBytes returns the multipart size ceiling.
func (u UploadsConfig) MaxUploadBytes() int64 {
	if u.MaxUploadMB <= 0 {
		return 10 << 20
	}
	return int64(u.MaxUploadMB) << 20
}

type CartConfig struct {
	DanglingPolicy string `envconfig:"STOREFRONT_CART_DANGLING_POLICY" default:"keep"`
	MaxAttempts    int    `envconfig:"STOREFRONT_CART_MAX_ATTEMPTS" default:"3"`
}

type RealtimeConfig struct {
	Relay        string `envconfig:"STOREFRONT_REALTIME_RELAY" default:"local"`
	Channel      string `envconfig:"STOREFRONT_REALTIME_CHANNEL" default:"realtime"`
	PageSize     int    `envconfig:"STOREFRONT_REALTIME_PAGE_SIZE" default:"10"`
	ClientBuffer int    `envconfig:"STOREFRONT_REALTIME_CLIENT_BUFFER" default:"16"`
}

type MetricsConfig struct {
	Enabled bool `envconfig:"STOREFRONT_METRICS_ENABLED" default:"true"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = "file:storefront.db?cache=shared"
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
