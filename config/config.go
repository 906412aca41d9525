package config

import (
	"annopedia-backend/utils"
	"errors"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultConfigFile = "configs/config.yml"

type ServerConfig struct {
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	Debug       bool     `yaml:"debug"`
	MaxUploadMB int64    `yaml:"max_upload_mb"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type DatabaseConfig struct {
	// mysql, postgres 或 sqlite
	Dialect        string `yaml:"dialect"`
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	User           string `yaml:"user"`
	Password       string `yaml:"password"`
	Name           string `yaml:"name"`
	Path           string `yaml:"path"` // sqlite 文件路径
	CheckMigration bool   `yaml:"check_migration"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type EmailConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Identity        string `yaml:"identity"`
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	UserName        string `yaml:"username"`
	Password        string `yaml:"password"`
	From            string `yaml:"from"`
	FrontendBaseURL string `yaml:"frontend_base_url"`
}

type AMQPConfig struct {
	Enabled bool   `yaml:"enabled"`
	User    string `yaml:"user"`
	Pwd     string `yaml:"pwd"`
	Host    string `yaml:"host"`
	Port    string `yaml:"port"`
	Queue   string `yaml:"queue"`
}

type LoggingConfig struct {
	FileDir        string `yaml:"file_dir"`
	FileLevel      string `yaml:"file_level"`
	ConsoleLevel   string `yaml:"console_level"`
	DisableConsole bool   `yaml:"disable_console"`
}

type TokenizerConfig struct {
	// gojieba 词典目录，为空时使用内置词典
	DictDir string `yaml:"dict_dir"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Email     EmailConfig     `yaml:"email"`
	AMQP      AMQPConfig      `yaml:"amqp"`
	Logging   LoggingConfig   `yaml:"logging"`
	Tokenizer TokenizerConfig `yaml:"tokenizer"`
}

/*
Load 读取配置，优先级从低到高：默认值、yaml 文件、.env 与环境变量。

path 为空时使用环境变量 ANNOPEDIA_CONFIG_FILE，再为空则使用 DefaultConfigFile；
默认路径下的文件不存在时不报错。
*/
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, utils.WrapError(err, "load .env fail")
	}

	explicit := len(path) != 0
	if !explicit {
		path = os.Getenv(EnvKeyConfigFile)
		explicit = len(path) != 0
	}
	if !explicit {
		path = DefaultConfigFile
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, utils.WrapErrorf(err, "decode config file [%s] fail", path)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, utils.WrapErrorf(err, "read config file [%s] fail", path)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, utils.WrapError(err, "apply env fail")
	}

	return cfg, nil
}

// Default 返回本地开发用的默认配置：sqlite、关闭邮件与消息队列。
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8003,
			Debug:       true,
			MaxUploadMB: 32,
		},
		Database: DatabaseConfig{
			Dialect:        "sqlite",
			Path:           "./data/annopedia.db",
			CheckMigration: true,
		},
		Auth: AuthConfig{
			JWTSecret: "annopedia-dev-secret",
		},
		Email: EmailConfig{
			Port:            25,
			From:            "annopedia@zohomail.eu",
			FrontendBaseURL: "http://localhost:3000",
		},
		AMQP: AMQPConfig{
			User:  "guest",
			Pwd:   "guest",
			Host:  "localhost",
			Port:  "5672",
			Queue: "annotation_events",
		},
		Logging: LoggingConfig{
			FileDir:      "logs",
			FileLevel:    "debug",
			ConsoleLevel: "info",
		},
	}
}

func (c *Config) applyEnv() error {
	setString(&c.Server.Host, EnvKeyServerHost)
	if err := setInt(&c.Server.Port, EnvKeyServerPort); err != nil {
		return err
	}
	if err := setBool(&c.Server.Debug, EnvKeyServerDebug); err != nil {
		return err
	}

	setString(&c.Database.Dialect, EnvKeyDatabaseDialect)
	setString(&c.Database.Host, EnvKeyDatabaseHost)
	setString(&c.Database.User, EnvKeyDatabaseUser)
	setString(&c.Database.Password, EnvKeyDatabasePassword)
	setString(&c.Database.Name, EnvKeyDatabaseName)
	setString(&c.Database.Path, EnvKeyDatabasePath)

	setString(&c.Auth.JWTSecret, EnvKeyAuthJWTSecret)

	setString(&c.Email.Identity, EnvKeyEmailSMTPIdentity)
	setString(&c.Email.Host, EnvKeyEmailSMTPHost)
	if err := setInt(&c.Email.Port, EnvKeyEmailSMTPPort); err != nil {
		return err
	}
	setString(&c.Email.UserName, EnvKeyEmailSMTPUserName)
	setString(&c.Email.Password, EnvKeyEmailSMTPPassword)

	setString(&c.AMQP.User, EnvKeyAMQPUser)
	setString(&c.AMQP.Pwd, EnvKeyAMQPPwd)
	setString(&c.AMQP.Host, EnvKeyAMQPHost)
	setString(&c.AMQP.Port, EnvKeyAMQPPort)

	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}

	i, err := strconv.Atoi(v)
	if err != nil {
		return utils.WrapErrorf(err, "env %s=%#v is not an integer", key, v)
	}
	*dst = i
	return nil
}

func setBool(dst *bool, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		return utils.WrapErrorf(err, "env %s=%#v is not a bool", key, v)
	}
	*dst = b
	return nil
}
