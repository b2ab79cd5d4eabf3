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
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	PayTR         PayTRConfig
	Iyzico        IyzicoConfig
	Checkout      CheckoutConfig
	Cron          CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SINAVHUB_APP_ENV" required:"true"`
	Port         string `envconfig:"SINAVHUB_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SINAVHUB_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SINAVHUB_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SINAVHUB_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SINAVHUB_DB_DSN"`
	Driver string `envconfig:"SINAVHUB_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SINAVHUB_DB_HOST"`
	LegacyPort     int    `envconfig:"SINAVHUB_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SINAVHUB_DB_USER"`
	LegacyPassword string `envconfig:"SINAVHUB_DB_PASSWORD"`
	LegacyName     string `envconfig:"SINAVHUB_DB_NAME"`
	LegacySSLMode  string `envconfig:"SINAVHUB_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SINAVHUB_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SINAVHUB_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SINAVHUB_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SINAVHUB_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SINAVHUB_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SINAVHUB_REDIS_ADDR"`
	Password     string        `envconfig:"SINAVHUB_REDIS_PASSWORD"`
	DB           int           `envconfig:"SINAVHUB_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SINAVHUB_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SINAVHUB_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SINAVHUB_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SINAVHUB_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SINAVHUB_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"SINAVHUB_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"SINAVHUB_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"SINAVHUB_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"SINAVHUB_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"SINAVHUB_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"SINAVHUB_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"SINAVHUB_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"SINAVHUB_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"SINAVHUB_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"SINAVHUB_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"SINAVHUB_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"SINAVHUB_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"SINAVHUB_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"SINAVHUB_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"SINAVHUB_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SINAVHUB_AUTO_MIGRATE" default:"false"`
}

// PayTRConfig holds the merchant credentials used to verify webhook hashes and
// request iframe tokens.
type PayTRConfig struct {
	MerchantID   string        `envconfig:"SINAVHUB_PAYTR_MERCHANT_ID"`
	MerchantKey  string        `envconfig:"SINAVHUB_PAYTR_MERCHANT_KEY"`
	MerchantSalt string        `envconfig:"SINAVHUB_PAYTR_MERCHANT_SALT"`
	BaseURL      string        `envconfig:"SINAVHUB_PAYTR_BASE_URL" default:"https://www.paytr.com"`
	Timeout      time.Duration `envconfig:"SINAVHUB_PAYTR_TIMEOUT" default:"10s"`
	TestMode     bool          `envconfig:"SINAVHUB_PAYTR_TEST_MODE" default:"false"`
}

// IyzicoConfig holds the API credentials for the checkout form retrieve call.
type IyzicoConfig struct {
	APIKey    string        `envconfig:"SINAVHUB_IYZICO_API_KEY"`
	SecretKey string        `envconfig:"SINAVHUB_IYZICO_SECRET_KEY"`
	BaseURL   string        `envconfig:"SINAVHUB_IYZICO_BASE_URL" default:"https://api.iyzipay.com"`
	Timeout   time.Duration `envconfig:"SINAVHUB_IYZICO_TIMEOUT" default:"10s"`
}

// CheckoutConfig carries the browser return and callback URLs handed to the
// payment providers when a session is opened.
type CheckoutConfig struct {
	PayTROKURL        string `envconfig:"SINAVHUB_CHECKOUT_PAYTR_OK_URL"`
	PayTRFailURL      string `envconfig:"SINAVHUB_CHECKOUT_PAYTR_FAIL_URL"`
	IyzicoCallbackURL string `envconfig:"SINAVHUB_CHECKOUT_IYZICO_CALLBACK_URL"`
}

type CronConfig struct {
	Interval     time.Duration `envconfig:"SINAVHUB_CRON_INTERVAL" default:"24h"`
	LockTTL      time.Duration `envconfig:"SINAVHUB_CRON_LOCK_TTL" default:"25h"`
	MetricsAddr  string        `envconfig:"SINAVHUB_CRON_METRICS_ADDR" default:":9103"`
	SweepBatch   int           `envconfig:"SINAVHUB_CRON_SWEEP_BATCH" default:"250"`
	SweepEnabled bool          `envconfig:"SINAVHUB_CRON_SWEEP_ENABLED" default:"true"`
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
