package config

const (
	EnvPrefix = "ORDERDESK"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	EnvAppEnv   = "ORDERDESK_APP_ENV"
	EnvPort     = "ORDERDESK_APP_PORT"
	EnvLogLevel = "ORDERDESK_LOG_LEVEL"

	EnvDBDSN  = "ORDERDESK_DB_DSN"
	EnvDBHost = "ORDERDESK_DB_HOST"
	EnvDBUser = "ORDERDESK_DB_USER"
	EnvDBName = "ORDERDESK_DB_NAME"

	EnvUseSQLite = "ORDERDESK_USE_SQLITE"
	EnvRedisURL  = "ORDERDESK_REDIS_URL"

	EnvPubSubOrdersTopic   = "ORDERDESK_PUBSUB_ORDERS_TOPIC"
	EnvPubSubInvoicesTopic = "ORDERDESK_PUBSUB_INVOICES_TOPIC"

	EnvDirectDeliveryCharge = "ORDERDESK_DIRECT_DELIVERY_CHARGE"
	EnvDirectPackingCharge  = "ORDERDESK_DIRECT_PACKING_CHARGE"
	EnvRoundingRule         = "ORDERDESK_PROFORMA_ROUNDING_RULE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
