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
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Bidding      BiddingConfig
	Lookup       LookupConfig
	Search       SearchConfig
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
	Env          string `envconfig:"CARBIDZ_APP_ENV" required:"true"`
	Port         string `envconfig:"CARBIDZ_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CARBIDZ_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CARBIDZ_LOG_WARN_STACK" default:"false"`

	CORSOrigins       []string      `envconfig:"CARBIDZ_CORS_ORIGINS" default:"http://localhost:3000"`
	ReadHeaderTimeout time.Duration `envconfig:"CARBIDZ_HTTP_READ_HEADER_TIMEOUT" default:"5s"`
	ShutdownTimeout   time.Duration `envconfig:"CARBIDZ_HTTP_SHUTDOWN_TIMEOUT" default:"15s"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// ServiceConfig names the process and the service database it owns.
type ServiceConfig struct {
	Kind string `envconfig:"CARBIDZ_SERVICE_KIND" default:"auction-api"`
	Name string `envconfig:"CARBIDZ_SERVICE_NAME" default:"auction"`
}

type DBConfig struct {
	DSN    string `envconfig:"CARBIDZ_DB_DSN"`
	Driver string `envconfig:"CARBIDZ_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CARBIDZ_DB_HOST"`
	LegacyPort     int    `envconfig:"CARBIDZ_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CARBIDZ_DB_USER"`
	LegacyPassword string `envconfig:"CARBIDZ_DB_PASSWORD"`
	LegacyName     string `envconfig:"CARBIDZ_DB_NAME"`
	LegacySSLMode  string `envconfig:"CARBIDZ_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CARBIDZ_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CARBIDZ_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CARBIDZ_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CARBIDZ_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CARBIDZ_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CARBIDZ_REDIS_ADDR"`
	Password     string        `envconfig:"CARBIDZ_REDIS_PASSWORD"`
	DB           int           `envconfig:"CARBIDZ_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CARBIDZ_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CARBIDZ_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CARBIDZ_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CARBIDZ_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CARBIDZ_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig verifies bearer tokens issued by the external identity provider.
type JWTConfig struct {
	Secret            string `envconfig:"CARBIDZ_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"CARBIDZ_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"CARBIDZ_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"CARBIDZ_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	IdempotencyTTL      time.Duration `envconfig:"CARBIDZ_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
	ConsumerMaxAttempts int           `envconfig:"CARBIDZ_EVENTING_CONSUMER_MAX_ATTEMPTS" default:"5"`
	AttemptCounterTTL   time.Duration `envconfig:"CARBIDZ_EVENTING_ATTEMPT_COUNTER_TTL" default:"24h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"CARBIDZ_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"CARBIDZ_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"CARBIDZ_GOOGLE_APPLICATION_CREDENTIALS"`
}

// PubSubConfig lists every topic and subscription; each process only checks the
// subscriptions it consumes.
type PubSubConfig struct {
	AuctionEventsTopic string `envconfig:"CARBIDZ_PUBSUB_AUCTION_EVENTS_TOPIC" default:"cb-auction-events"`
	BidEventsTopic     string `envconfig:"CARBIDZ_PUBSUB_BID_EVENTS_TOPIC" default:"cb-bid-events"`
	FaultTopic         string `envconfig:"CARBIDZ_PUBSUB_FAULT_TOPIC" default:"cb-event-faults"`

	AuctionBidSubscription     string `envconfig:"CARBIDZ_PUBSUB_AUCTION_BID_SUBSCRIPTION" default:"cb-auction-bid-events"`
	BiddingAuctionSubscription string `envconfig:"CARBIDZ_PUBSUB_BIDDING_AUCTION_SUBSCRIPTION" default:"cb-bidding-auction-events"`
	BiddingBidSubscription     string `envconfig:"CARBIDZ_PUBSUB_BIDDING_BID_SUBSCRIPTION"`
	SearchAuctionSubscription  string `envconfig:"CARBIDZ_PUBSUB_SEARCH_AUCTION_SUBSCRIPTION" default:"cb-search-auction-events"`
	SearchBidSubscription      string `envconfig:"CARBIDZ_PUBSUB_SEARCH_BID_SUBSCRIPTION" default:"cb-search-bid-events"`
	FaultSubscription          string `envconfig:"CARBIDZ_PUBSUB_FAULT_SUBSCRIPTION" default:"cb-event-faults"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"CARBIDZ_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"CARBIDZ_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"CARBIDZ_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"CARBIDZ_OUTBOX_RETENTION_DAYS" default:"30"`
}

// BiddingConfig tunes the finalization sweep inside the bidding service.
type BiddingConfig struct {
	SweepInterval  time.Duration `envconfig:"CARBIDZ_BIDDING_SWEEP_INTERVAL" default:"60s"`
	SweepBatchSize int           `envconfig:"CARBIDZ_BIDDING_SWEEP_BATCH_SIZE" default:"100"`
	SweepLockTTL   time.Duration `envconfig:"CARBIDZ_BIDDING_SWEEP_LOCK_TTL" default:"5m"`
}

// LookupConfig covers both ends of the auction lookup RPC.
type LookupConfig struct {
	ListenAddr string        `envconfig:"CARBIDZ_LOOKUP_LISTEN_ADDR" default:":7777"`
	TargetAddr string        `envconfig:"CARBIDZ_LOOKUP_TARGET_ADDR" default:"localhost:7777"`
	Timeout    time.Duration `envconfig:"CARBIDZ_LOOKUP_TIMEOUT" default:"2s"`
}

type SearchConfig struct {
	EndingSoonWindow time.Duration `envconfig:"CARBIDZ_SEARCH_ENDING_SOON_WINDOW" default:"6h"`
	DefaultPageSize  int           `envconfig:"CARBIDZ_SEARCH_DEFAULT_PAGE_SIZE" default:"4"`
	MaxPageSize      int           `envconfig:"CARBIDZ_SEARCH_MAX_PAGE_SIZE" default:"100"`
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
