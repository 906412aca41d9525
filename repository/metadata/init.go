package metadata

import (
	"annopedia-backend/logging"
	"annopedia-backend/utils"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

const (
	DialectMySQL    = "mysql"
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

type MySQLConfig struct {
	User     string
	Password string
	Host     string
	Database string
}

func (c *MySQLConfig) dsn() string {
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Database)
}

type PostgresConfig struct {
	User     string
	Password string
	Host     string
	Port     int
	Database string
}

func (c *PostgresConfig) dsn() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable TimeZone=UTC",
		c.Host, c.User, c.Password, c.Database, c.Port)
}

type SQLiteConfig struct {
	Path string
}

/*
Config 数据库配置。

	Dialect 决定使用 MySQL、Postgres、SQLite 中的哪一个；
	CheckMigration 为 true 时启动时执行 AutoMigrate。
*/
type Config struct {
	Dialect        string
	MySQL          MySQLConfig
	Postgres       PostgresConfig
	SQLite         SQLiteConfig
	CheckMigration bool
}

// GenerateTestConfig 返回一个位于临时目录的 sqlite 数据库配置。
func GenerateTestConfig(t *testing.T) *Config {
	return &Config{
		Dialect: DialectSQLite,
		SQLite: SQLiteConfig{
			Path: filepath.Join(t.TempDir(), "metadata_test.db"),
		},
		CheckMigration: true,
	}
}

var db *gorm.DB

func dialector(config *Config) (gorm.Dialector, error) {
	switch config.Dialect {
	case DialectMySQL:
		return mysql.Open(config.MySQL.dsn()), nil
	case DialectPostgres:
		return postgres.Open(config.Postgres.dsn()), nil
	case DialectSQLite, "":
		if dir := filepath.Dir(config.SQLite.Path); len(dir) != 0 {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, utils.WrapErrorf(err, "create sqlite dir [%s] fail", dir)
			}
		}
		return sqlite.Dialector{DriverName: "sqlite", DSN: config.SQLite.Path + "?_pragma=busy_timeout(5000)"}, nil
	default:
		return nil, fmt.Errorf("unsupported database dialect [%s]", config.Dialect)
	}
}

func CreateDatabase(config *Config) (*gorm.DB, error) {
	dial, err := dialector(config)
	if err != nil {
		return nil, err
	}

	database, err := gorm.Open(dial, &gorm.Config{
		Logger: logger.New(&sqlLogger{logger: logging.NewLogger()}, logger.Config{LogLevel: logger.Info}),
	})
	if err != nil {
		return nil, utils.WrapError(err, "db connection fail")
	}

	if config.Dialect == DialectSQLite || len(config.Dialect) == 0 {
		// sqlite 只允许一个写连接
		sqlDB, err := database.DB()
		if err != nil {
			return nil, utils.WrapError(err, "get sql.DB fail")
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if config.CheckMigration {
		err = migration(database, config.Dialect)
		if err != nil {
			return nil, utils.WrapError(err, "migration fail")
		}
	}

	return database, nil
}

func migration(db *gorm.DB, dialect string) error {
	tables := []interface{}{
		&Contributor{}, &Project{}, &Category{},
		&UnannotatedEntry{}, &Annotator{},
		&ProjectEntry{}, &TextHighlight{}, &NERTextHighlight{},
		&ProjectEntryHistory{},
	}
	if dialect == DialectMySQL {
		db = db.Set("gorm:table_options", "ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_0900_ai_ci")
	}
	err := db.AutoMigrate(tables...)
	if err != nil {
		return utils.WrapError(err, "AutoMigrate fail")
	}

	return nil
}

// Migrate 只执行表结构迁移，供命令行 migrate 子命令使用。
func Migrate(config *Config) error {
	cfg := *config
	cfg.CheckMigration = true
	_, err := CreateDatabase(&cfg)
	return err
}

func Init(config *Config) {
	database, err := CreateDatabase(config)
	if err != nil {
		panic(err)
	}

	db = database
}

func DatabaseRaw() *gorm.DB {
	return db
}
