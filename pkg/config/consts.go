package config

// EnvPrefix namespaces every environment variable the service reads.
const EnvPrefix = "STREETCONNECT"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv    = "STREETCONNECT_APP_ENV"
	EnvPort      = "STREETCONNECT_APP_PORT"
	EnvDBDSN     = "STREETCONNECT_DB_DSN"
	EnvDBHost    = "STREETCONNECT_DB_HOST"
	EnvDBUser    = "STREETCONNECT_DB_USER"
	EnvDBName    = "STREETCONNECT_DB_NAME"
	EnvRedisURL  = "STREETCONNECT_REDIS_URL"
	EnvJWTSecret = "STREETCONNECT_JWT_SECRET"
	EnvJWTIssuer = "STREETCONNECT_JWT_ISSUER"
)

var requiredDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
