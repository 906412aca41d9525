package email

/*
SMTPConfig 发信账号。

	Identity PLAIN 认证的 identity，一般为空；
	From 发件人地址，为空时使用 UserName。
*/
type SMTPConfig struct {
	Identity string
	Host     string
	Port     int
	UserName string
	Password string
	From     string
}

type Config struct {
	SMTP SMTPConfig
	// Enabled 为 false 时所有邮件只记录日志不发送
	Enabled bool
}

func GenerateTestConfig() *Config {
	return &Config{
		SMTP: SMTPConfig{
			Host:     "localhost",
			Port:     25,
			UserName: "annopedia@zohomail.eu",
			From:     "annopedia@zohomail.eu",
		},
		Enabled: false,
	}
}
