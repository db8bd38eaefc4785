package config

const (
	EnvPrefix = "POPSPOT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv                 = "POPSPOT_APP_ENV"
	EnvPort                   = "POPSPOT_APP_PORT"
	EnvAPIBaseURL             = "POPSPOT_API_BASE_URL"
	EnvAPIPublicKey           = "POPSPOT_API_PUBLIC_KEY"
	EnvDBDSN                  = "POPSPOT_DB_DSN"
	EnvDBHost                 = "POPSPOT_DB_HOST"
	EnvDBUser                 = "POPSPOT_DB_USER"
	EnvDBName                 = "POPSPOT_DB_NAME"
	EnvRedisURL               = "POPSPOT_REDIS_URL"
	EnvJWTSecret              = "POPSPOT_JWT_SECRET"
	EnvJWTExpMins             = "POPSPOT_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "POPSPOT_REFRESH_TOKEN_TTL_MINUTES"
	EnvSessionConfirmAttempts = "POPSPOT_SESSION_CONFIRM_ATTEMPTS"
	EnvStorageMaxFileBytes    = "POPSPOT_STORAGE_MAX_FILE_BYTES"
	EnvMapsAPIKey             = "POPSPOT_MAPS_API_KEY"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
