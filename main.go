package main

import (
	"annopedia-backend/config"
	"annopedia-backend/domain/annotator"
	"annopedia-backend/domain/eventpub"
	"annopedia-backend/domain/project"
	"annopedia-backend/domain/tokenizer"
	"annopedia-backend/logging"
	"annopedia-backend/repository/metadata"
	"annopedia-backend/server"
	"annopedia-backend/server/common"
	"annopedia-backend/utils"
	"annopedia-backend/utils/email"
	"os"

	"github.com/sirupsen/logrus"
)

func loggingConf(cfg *config.Config) (*logging.Config, error) {
	fileLevel, err := logrus.ParseLevel(cfg.Logging.FileLevel)
	if err != nil {
		return nil, utils.WrapErrorf(err, "parse file_level %#v fail", cfg.Logging.FileLevel)
	}
	consoleLevel, err := logrus.ParseLevel(cfg.Logging.ConsoleLevel)
	if err != nil {
		return nil, utils.WrapErrorf(err, "parse console_level %#v fail", cfg.Logging.ConsoleLevel)
	}

	return &logging.Config{
		FileLevel:      fileLevel,
		ConsoleLevel:   consoleLevel,
		FileDir:        cfg.Logging.FileDir,
		DisableConsole: cfg.Logging.DisableConsole,
	}, nil
}

func emailConf(cfg *config.Config) *email.Config {
	return &email.Config{
		SMTP: email.SMTPConfig{
			Identity: cfg.Email.Identity,
			Host:     cfg.Email.Host,
			Port:     cfg.Email.Port,
			UserName: cfg.Email.UserName,
			Password: cfg.Email.Password,
			From:     cfg.Email.From,
		},
		Enabled: cfg.Email.Enabled,
	}
}

func metadataConf(cfg *config.Config) *metadata.Config {
	db := cfg.Database
	return &metadata.Config{
		Dialect: db.Dialect,
		MySQL: metadata.MySQLConfig{
			User:     db.User,
			Password: db.Password,
			Host:     db.Host,
			Database: db.Name,
		},
		Postgres: metadata.PostgresConfig{
			User:     db.User,
			Password: db.Password,
			Host:     db.Host,
			Port:     db.Port,
			Database: db.Name,
		},
		SQLite:         metadata.SQLiteConfig{Path: db.Path},
		CheckMigration: db.CheckMigration,
	}
}

func eventpubConf(cfg *config.Config) *eventpub.Config {
	return &eventpub.Config{
		Enabled: cfg.AMQP.Enabled,
		RabbitMQConfig: eventpub.MQConnectionConfig{
			User: cfg.AMQP.User,
			Pwd:  cfg.AMQP.Pwd,
			Host: cfg.AMQP.Host,
			Port: cfg.AMQP.Port,
		},
		Queue:  cfg.AMQP.Queue,
		Logger: logging.NewLogger(),
	}
}

func tokenizerConf(cfg *config.Config) *tokenizer.Setting {
	return &tokenizer.Setting{
		Logger:  logging.NewLogger(),
		DictDir: cfg.Tokenizer.DictDir,
	}
}

func projectConf() *project.Setting {
	return &project.Setting{
		GetMetadataDatabase: metadata.DatabaseRaw,
		Logger:              logging.NewLogger(),
		GetTokenizer:        tokenizer.Default,
		Publish:             eventpub.Publish,
	}
}

func annotatorConf(cfg *config.Config) *annotator.Setting {
	return &annotator.Setting{
		GetMetadataDatabase: metadata.DatabaseRaw,
		Logger:              logging.NewLogger(),
		GetSender:           email.Default,
		FrontendBaseURL:     cfg.Email.FrontendBaseURL,
	}
}

func serverConf(cfg *config.Config) *server.Config {
	return &server.Config{
		Host:        cfg.Server.Host,
		Port:        cfg.Server.Port,
		DebugMode:   cfg.Server.Debug,
		MaxUploadMB: cfg.Server.MaxUploadMB,
		CORSOrigins: cfg.Server.CORSOrigins,
		Auth:        common.AuthConfig{JWTSecret: cfg.Auth.JWTSecret},
	}
}

// setupLogging 必须在其他组件初始化之前调用
func setupLogging(cfg *config.Config) error {
	conf, err := loggingConf(cfg)
	if err != nil {
		return err
	}
	logging.SetDefaultConfig(conf)
	return nil
}

func serve(cfg *config.Config) error {
	if err := setupLogging(cfg); err != nil {
		return err
	}
	logger := logging.NewLogger()

	email.Init(emailConf(cfg))

	metadata.Init(metadataConf(cfg))

	tokenizer.Init(tokenizerConf(cfg))

	if err := eventpub.Init(eventpubConf(cfg)); err != nil {
		// 消息队列不可用时仍然提供服务，只是不再发送事件
		logger.WithError(err).Errorf("connect amqp fail, entry events disabled")
	}
	defer eventpub.Close()

	project.Init(projectConf())

	annotator.Init(annotatorConf(cfg))

	s := server.New(serverConf(cfg))
	logger.Infof("listening on %s:%d", cfg.Server.Host, cfg.Server.Port)
	return s.RunServer()
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		logging.Default().WithError(err).Errorf("run command error=\n%+v", err)
		os.Exit(1)
	}
}
