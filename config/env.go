package config

const (
	EnvKeyConfigFile = "ANNOPEDIA_CONFIG_FILE"

	EnvKeyServerHost  = "ANNOPEDIA_SERVER_HOST"
	EnvKeyServerPort  = "ANNOPEDIA_SERVER_PORT"
	EnvKeyServerDebug = "ANNOPEDIA_SERVER_DEBUG"

	EnvKeyDatabaseDialect  = "ANNOPEDIA_DATABASE_DIALECT"
	EnvKeyDatabaseHost     = "ANNOPEDIA_DATABASE_HOST"
	EnvKeyDatabaseUser     = "ANNOPEDIA_DATABASE_USER"
	EnvKeyDatabasePassword = "ANNOPEDIA_DATABASE_PASSWORD"
	EnvKeyDatabaseName     = "ANNOPEDIA_DATABASE_NAME"
	EnvKeyDatabasePath     = "ANNOPEDIA_DATABASE_PATH"

	EnvKeyAuthJWTSecret = "ANNOPEDIA_AUTH_JWT_SECRET"

	EnvKeyEmailSMTPIdentity = "ANNOPEDIA_EMAIL_SMTP_IDENTITY"
	EnvKeyEmailSMTPHost     = "ANNOPEDIA_EMAIL_SMTP_HOST"
	EnvKeyEmailSMTPPort     = "ANNOPEDIA_EMAIL_SMTP_PORT"
	EnvKeyEmailSMTPUserName = "ANNOPEDIA_EMAIL_SMTP_USERNAME"
	EnvKeyEmailSMTPPassword = "ANNOPEDIA_EMAIL_SMTP_PASSWORD"

	EnvKeyAMQPUser = "ANNOPEDIA_AMQP_USER"
	EnvKeyAMQPPwd  = "ANNOPEDIA_AMQP_PWD"
	EnvKeyAMQPHost = "ANNOPEDIA_AMQP_HOST"
	EnvKeyAMQPPort = "ANNOPEDIA_AMQP_PORT"
)
