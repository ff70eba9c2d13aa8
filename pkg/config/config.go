package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Idempotency  IdempotencyConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Pincode      PincodeConfig
	Proforma     ProformaConfig
	Invoice      InvoiceConfig
	Reconciler   ReconcilerConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ORDERDESK_APP_ENV" required:"true"`
	Port         string `envconfig:"ORDERDESK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ORDERDESK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ORDERDESK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"ORDERDESK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"ORDERDESK_DB_DSN"`
	Driver string `envconfig:"ORDERDESK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ORDERDESK_DB_HOST"`
	LegacyPort     int    `envconfig:"ORDERDESK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ORDERDESK_DB_USER"`
	LegacyPassword string `envconfig:"ORDERDESK_DB_PASSWORD"`
	LegacyName     string `envconfig:"ORDERDESK_DB_NAME"`
	LegacySSLMode  string `envconfig:"ORDERDESK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ORDERDESK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ORDERDESK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ORDERDESK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ORDERDESK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"ORDERDESK_DB_SLOW_QUERY" default:"200ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ORDERDESK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ORDERDESK_REDIS_ADDR"`
	Password     string        `envconfig:"ORDERDESK_REDIS_PASSWORD"`
	DB           int           `envconfig:"ORDERDESK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ORDERDESK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ORDERDESK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ORDERDESK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ORDERDESK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ORDERDESK_REDIS_WRITE_TIMEOUT" default:"5s"`
	KeyPrefix    string        `envconfig:"ORDERDESK_REDIS_KEY_PREFIX" default:"od"`
}

type FeatureFlagsConfig struct {
	UseSQLite     bool `envconfig:"ORDERDESK_USE_SQLITE" default:"false"`
	AutoMigrate   bool `envconfig:"ORDERDESK_AUTO_MIGRATE" default:"false"`
	InlineSync    bool `envconfig:"ORDERDESK_FEATURE_INLINE_MIRROR" default:"true"`
	InventorySync bool `envconfig:"ORDERDESK_FEATURE_INVENTORY_SYNC" default:"false"`
}

// IdempotencyConfig controls how long replayable API responses are kept.
// Critical covers quote and transition routes.
type IdempotencyConfig struct {
	ReplayTTL   time.Duration `envconfig:"ORDERDESK_IDEMPOTENCY_TTL" default:"24h"`
	CriticalTTL time.Duration `envconfig:"ORDERDESK_IDEMPOTENCY_CRITICAL_TTL" default:"168h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"ORDERDESK_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"ORDERDESK_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"ORDERDESK_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic   string `envconfig:"ORDERDESK_PUBSUB_ORDERS_TOPIC" default:"orderdesk-order-events"`
	InvoicesTopic string `envconfig:"ORDERDESK_PUBSUB_INVOICES_TOPIC" default:"orderdesk-invoice-events"`
	// CreateTopics creates missing topics at startup instead of failing. Meant
	// for the emulator and local stacks.
	CreateTopics bool `envconfig:"ORDERDESK_PUBSUB_CREATE_TOPICS" default:"false"`
}

type OutboxConfig struct {
	BatchSize      int    `envconfig:"ORDERDESK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int    `envconfig:"ORDERDESK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int    `envconfig:"ORDERDESK_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int    `envconfig:"ORDERDESK_OUTBOX_RETENTION_DAYS" default:"30"`
	MetricsAddr    string `envconfig:"ORDERDESK_OUTBOX_METRICS_ADDR" default:":9103"`
}

type PincodeConfig struct {
	BaseURL string        `envconfig:"ORDERDESK_PINCODE_BASE_URL" default:"https://api.postalpincode.in"`
	Timeout time.Duration `envconfig:"ORDERDESK_PINCODE_TIMEOUT" default:"3s"`
}

// Enabled reports whether the postal-code lookup has a usable endpoint.
func (p PincodeConfig) Enabled() bool {
	return strings.TrimSpace(p.BaseURL) != ""
}

type ProformaConfig struct {
	RoundingEnabled bool   `envconfig:"ORDERDESK_PROFORMA_ROUNDING_ENABLED" default:"true"`
	RoundingRule    string `envconfig:"ORDERDESK_PROFORMA_ROUNDING_RULE" default:"NEAREST"`

	DirectDelivery  string `envconfig:"ORDERDESK_DIRECT_DELIVERY_CHARGE" default:"0"`
	DirectPacking   string `envconfig:"ORDERDESK_DIRECT_PACKING_CHARGE" default:"0"`
	DirectInsurance string `envconfig:"ORDERDESK_DIRECT_INSURANCE_CHARGE" default:"0"`
	DirectOther     string `envconfig:"ORDERDESK_DIRECT_OTHER_CHARGE" default:"0"`
}

// DirectCharges parses the default charges applied when a seller skips quotation.
// Unparseable or negative values fall back to zero.
func (p ProformaConfig) DirectCharges() (delivery, packing, insurance, other decimal.Decimal) {
	return parseCharge(p.DirectDelivery), parseCharge(p.DirectPacking),
		parseCharge(p.DirectInsurance), parseCharge(p.DirectOther)
}

func parseCharge(raw string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d
}

type InvoiceConfig struct {
	NumberPrefix string        `envconfig:"ORDERDESK_INVOICE_NUMBER_PREFIX" default:"INV"`
	LockTTL      time.Duration `envconfig:"ORDERDESK_INVOICE_LOCK_TTL" default:"30s"`
}

type ReconcilerConfig struct {
	Interval    time.Duration `envconfig:"ORDERDESK_RECONCILER_INTERVAL" default:"1m"`
	BatchSize   int           `envconfig:"ORDERDESK_RECONCILER_BATCH_SIZE" default:"100"`
	MaxAttempts int           `envconfig:"ORDERDESK_RECONCILER_MAX_ATTEMPTS" default:"20"`
	LockTTL     time.Duration `envconfig:"ORDERDESK_RECONCILER_LOCK_TTL" default:"5m"`
	MetricsAddr string        `envconfig:"ORDERDESK_RECONCILER_METRICS_ADDR" default:":9102"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite {
		db.Driver = DriverSQLite
	}
	if db.DSN != "" {
		return nil
	}
	if useSQLite {
		db.DSN = "file:orderdesk.db?cache=shared"
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
