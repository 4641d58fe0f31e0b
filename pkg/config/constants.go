package config

const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	DanglingKeep    = "keep"
	DanglingCascade = "cascade"

	UploadBackendDisk = "disk"
	UploadBackendGCS  = "gcs"

	RelayLocal = "local"
	RelayRedis = "redis"
)

const (
	EnvAppEnv             = "STOREFRONT_APP_ENV"
	EnvPort               = "STOREFRONT_APP_PORT"
	EnvDBDSN              = "STOREFRONT_DB_DSN"
	EnvDBDriver           = "STOREFRONT_DB_DRIVER"
	EnvDBHost             = "STOREFRONT_DB_HOST"
	EnvDBUser             = "STOREFRONT_DB_USER"
	EnvDBName             = "STOREFRONT_DB_NAME"
	EnvRedisURL           = "STOREFRONT_REDIS_URL"
	EnvAdminEmail         = "STOREFRONT_ADMIN_EMAIL"
	EnvAdminPassword      = "STOREFRONT_ADMIN_PASSWORD"
	EnvJWTSecret          = "STOREFRONT_JWT_SECRET"
	EnvCartDanglingPolicy = "STOREFRONT_CART_DANGLING_POLICY"
	EnvUploadsBackend     = "STOREFRONT_UPLOADS_BACKEND"
	EnvUploadsGCSBucket   = "STOREFRONT_UPLOADS_GCS_BUCKET"
	EnvRealtimeRelay      = "STOREFRONT_REALTIME_RELAY"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
