package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Public       PublicConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	Session      SessionConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
	Storage      StorageConfig
	Kakao        KakaoConfig
	Mail         MailConfig
	Maps         MapsConfig
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
	if c.JWT.RefreshTokenTTLMinutes <= c.JWT.ExpirationMinutes {
		return fmt.Errorf("%s must exceed %s", EnvRefreshTokenTTLMinutes, EnvJWTExpMins)
	}
	if c.Session.ConfirmAttempts < 1 {
		return fmt.Errorf("%s must be at least 1", EnvSessionConfirmAttempts)
	}
	if c.Storage.MaxFileBytes <= 0 {
		return fmt.Errorf("%s must be positive", EnvStorageMaxFileBytes)
	}
	return nil
}

type AppConfig struct {
	Env            string   `envconfig:"POPSPOT_APP_ENV" required:"true"`
	Port           string   `envconfig:"POPSPOT_APP_PORT" default:"8080"`
	LogLevel       string   `envconfig:"POPSPOT_LOG_LEVEL" default:"info"`
	LogWarnStack   bool     `envconfig:"POPSPOT_LOG_WARN_STACK" default:"false"`
	FrontendURL    string   `envconfig:"POPSPOT_FRONTEND_URL" default:"http://localhost:5173"`
	StaticDir      string   `envconfig:"POPSPOT_STATIC_DIR" default:"web/dist"`
	AllowedOrigins []string `envconfig:"POPSPOT_ALLOWED_ORIGINS" default:"http://localhost:5173"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// PublicConfig is what the browser app is allowed to know about the backend.
type PublicConfig struct {
	APIBaseURL string `envconfig:"POPSPOT_API_BASE_URL" required:"true"`
	APIKey     string `envconfig:"POPSPOT_API_PUBLIC_KEY" required:"true"`
}

type DBConfig struct {
	DSN string `envconfig:"POPSPOT_DB_DSN"`

	LegacyHost     string `envconfig:"POPSPOT_DB_HOST"`
	LegacyPort     int    `envconfig:"POPSPOT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"POPSPOT_DB_USER"`
	LegacyPassword string `envconfig:"POPSPOT_DB_PASSWORD"`
	LegacyName     string `envconfig:"POPSPOT_DB_NAME"`
	LegacySSLMode  string `envconfig:"POPSPOT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"POPSPOT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"POPSPOT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"POPSPOT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"POPSPOT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"POPSPOT_REDIS_URL" required:"true"`
	PoolSize     int           `envconfig:"POPSPOT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"POPSPOT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"POPSPOT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"POPSPOT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"POPSPOT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"POPSPOT_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"POPSPOT_JWT_ISSUER" default:"popspot"`
	ExpirationMinutes      int    `envconfig:"POPSPOT_JWT_EXPIRATION_MINUTES" default:"60"`
	RefreshTokenTTLMinutes int    `envconfig:"POPSPOT_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// AccessTokenTTL returns the access token lifetime.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"POPSPOT_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"POPSPOT_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"POPSPOT_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"POPSPOT_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"POPSPOT_ARGON_KEY_LEN" default:"32"`
	MinLength        int `envconfig:"POPSPOT_PASSWORD_MIN_LENGTH" default:"6"`
}

// SessionConfig holds the bounded confirmation policies used after sign-in,
// OAuth callbacks and sign-out.
type SessionConfig struct {
	ConfirmAttempts        int           `envconfig:"POPSPOT_SESSION_CONFIRM_ATTEMPTS" default:"4"`
	ConfirmDelay           time.Duration `envconfig:"POPSPOT_SESSION_CONFIRM_DELAY" default:"200ms"`
	CallbackAttempts       int           `envconfig:"POPSPOT_SESSION_CALLBACK_ATTEMPTS" default:"2"`
	CallbackDelay          time.Duration `envconfig:"POPSPOT_SESSION_CALLBACK_DELAY" default:"1s"`
	SignOutVerifyAttempts  int           `envconfig:"POPSPOT_SESSION_SIGNOUT_VERIFY_ATTEMPTS" default:"2"`
	EventsChannel          string        `envconfig:"POPSPOT_SESSION_EVENTS_CHANNEL" default:"auth-events"`
	CookieName             string        `envconfig:"POPSPOT_SESSION_COOKIE_NAME" default:"popspot_session"`
	CookieSecure           bool          `envconfig:"POPSPOT_SESSION_COOKIE_SECURE" default:"true"`
	PasswordResetTTL       time.Duration `envconfig:"POPSPOT_PASSWORD_RESET_TTL" default:"30m"`
	TrackerReconfirmWindow time.Duration `envconfig:"POPSPOT_SESSION_TRACKER_TTL" default:"30s"`
}

type RateLimitConfig struct {
	SignInWindow time.Duration `envconfig:"POPSPOT_RATE_LIMIT_SIGNIN_WINDOW" default:"1m"`
	SignInLimit  int           `envconfig:"POPSPOT_RATE_LIMIT_SIGNIN_LIMIT" default:"10"`
	ResetWindow  time.Duration `envconfig:"POPSPOT_RATE_LIMIT_RESET_WINDOW" default:"15m"`
	ResetLimit   int           `envconfig:"POPSPOT_RATE_LIMIT_RESET_LIMIT" default:"3"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"POPSPOT_AUTO_MIGRATE" default:"false"`
	KakaoLogin  bool `envconfig:"POPSPOT_FEATURE_KAKAO_LOGIN" default:"false"`
}

type StorageConfig struct {
	Bucket          string `envconfig:"POPSPOT_STORAGE_BUCKET" default:"store-images"`
	PublicBaseURL   string `envconfig:"POPSPOT_STORAGE_PUBLIC_BASE_URL" default:"https://storage.googleapis.com"`
	Endpoint        string `envconfig:"POPSPOT_STORAGE_ENDPOINT"`
	CredentialsJSON string `envconfig:"POPSPOT_GCP_CREDENTIALS_JSON"`
	CredentialsFile string `envconfig:"POPSPOT_GOOGLE_APPLICATION_CREDENTIALS"`
	CacheControlSec int    `envconfig:"POPSPOT_STORAGE_CACHE_CONTROL_SECONDS" default:"3600"`
	MaxFileBytes    int64  `envconfig:"POPSPOT_STORAGE_MAX_FILE_BYTES" default:"5242880"`
	MaxImages       int    `envconfig:"POPSPOT_STORAGE_MAX_IMAGES" default:"10"`
	SpoolDir        string `envconfig:"POPSPOT_STORAGE_SPOOL_DIR"`
}

type KakaoConfig struct {
	ClientID     string `envconfig:"POPSPOT_KAKAO_CLIENT_ID"`
	ClientSecret string `envconfig:"POPSPOT_KAKAO_CLIENT_SECRET"`
	RedirectURL  string `envconfig:"POPSPOT_KAKAO_REDIRECT_URL"`
	IssuerURL    string `envconfig:"POPSPOT_KAKAO_ISSUER_URL" default:"https://kauth.kakao.com"`
}

// Enabled reports whether enough settings exist to start the OAuth flow.
func (k KakaoConfig) Enabled() bool {
	return k.ClientID != "" && k.RedirectURL != ""
}

type MailConfig struct {
	SMTPHost     string `envconfig:"POPSPOT_SMTP_HOST"`
	SMTPPort     int    `envconfig:"POPSPOT_SMTP_PORT" default:"587"`
	SMTPUser     string `envconfig:"POPSPOT_SMTP_USER"`
	SMTPPassword string `envconfig:"POPSPOT_SMTP_PASSWORD"`
	From         string `envconfig:"POPSPOT_MAIL_FROM" default:"no-reply@popspot.local"`
}

// MapsConfig holds the optional map provider key; an empty key degrades maps
// to a plain external link.
type MapsConfig struct {
	APIKey      string `envconfig:"POPSPOT_MAPS_API_KEY"`
	EmbedBase   string `envconfig:"POPSPOT_MAPS_EMBED_BASE_URL" default:"https://www.google.com/maps/embed/v1/place"`
	ExternalURL string `envconfig:"POPSPOT_MAPS_EXTERNAL_URL" default:"https://www.google.com/maps/search/"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
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
