package config

const EnvPrefix = "carbidz"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv       = "CARBIDZ_APP_ENV"
	EnvPort         = "CARBIDZ_APP_PORT"
	EnvServiceName  = "CARBIDZ_SERVICE_NAME"
	EnvDBDSN        = "CARBIDZ_DB_DSN"
	EnvDBHost       = "CARBIDZ_DB_HOST"
	EnvDBUser       = "CARBIDZ_DB_USER"
	EnvDBName       = "CARBIDZ_DB_NAME"
	EnvRedisURL     = "CARBIDZ_REDIS_URL"
	EnvJWTSecret    = "CARBIDZ_JWT_SECRET"
	EnvJWTIssuer    = "CARBIDZ_JWT_ISSUER"
	EnvGCPProjectID = "CARBIDZ_GCP_PROJECT_ID"

	EnvPubSubAuctionEventsTopic = "CARBIDZ_PUBSUB_AUCTION_EVENTS_TOPIC"
	EnvPubSubBidEventsTopic     = "CARBIDZ_PUBSUB_BID_EVENTS_TOPIC"
	EnvBiddingSweepInterval     = "CARBIDZ_BIDDING_SWEEP_INTERVAL"
	EnvLookupTimeout            = "CARBIDZ_LOOKUP_TIMEOUT"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
