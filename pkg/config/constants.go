package config

// EnvPrefix is passed to envconfig; individual fields carry explicit names.
const EnvPrefix = "riverside"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv    = "RIVERSIDE_APP_ENV"
	EnvPort      = "RIVERSIDE_APP_PORT"
	EnvDBDSN     = "RIVERSIDE_DB_DSN"
	EnvDBHost    = "RIVERSIDE_DB_HOST"
	EnvDBUser    = "RIVERSIDE_DB_USER"
	EnvDBName    = "RIVERSIDE_DB_NAME"
	EnvRedisURL  = "RIVERSIDE_REDIS_URL"
	EnvJWTSecret = "RIVERSIDE_JWT_SECRET"
	EnvJWTIssuer = "RIVERSIDE_JWT_ISSUER"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
