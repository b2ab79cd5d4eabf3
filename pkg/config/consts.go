package config

// EnvPrefix is intentionally empty; every field carries its fully qualified
// SINAVHUB_ variable name in its envconfig tag.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "SINAVHUB_DB_DSN"
	EnvDBHost = "SINAVHUB_DB_HOST"
	EnvDBUser = "SINAVHUB_DB_USER"
	EnvDBName = "SINAVHUB_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
