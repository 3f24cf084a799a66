package database

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/d60-Lab/warbler/config"
	"github.com/d60-Lab/warbler/internal/model"
)

// InitDB 按配置打开数据库连接并设置连接池
func InitDB(cfg *config.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database

	var dialector gorm.Dialector
	switch dbCfg.Driver {
	case "postgres":
		dialector = postgres.Open(dbCfg.DSN)
	case "mysql":
		dialector = mysql.Open(dbCfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(sqliteDSN(dbCfg.DSN))
	default:
		return nil, fmt.Errorf("unsupported database driver %q", dbCfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(logLevel(dbCfg.LogLevel)),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if dbCfg.Driver == "sqlite" {
		// sqlite 只允许一个写连接；内存库每个连接都是独立的库
		sqlDB.SetMaxOpenConns(1)
		if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return nil, fmt.Errorf("enable sqlite foreign keys: %w", err)
		}
	} else {
		if dbCfg.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(dbCfg.MaxOpenConns)
		}
		if dbCfg.MaxIdleConns > 0 {
			sqlDB.SetMaxIdleConns(dbCfg.MaxIdleConns)
		}
		if dbCfg.ConnMaxLifetime > 0 {
			sqlDB.SetConnMaxLifetime(dbCfg.ConnMaxLifetime)
		}
	}
	return db, nil
}

// OpenInMemory 打开一个开启外键约束的 sqlite 内存库并建表（测试与本地基准使用）
func OpenInMemory() (*gorm.DB, error) {
	cfg := &config.Config{Database: config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:", LogLevel: "silent"}}
	db, err := InitDB(cfg)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate 初始化数据库表结构
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(model.All()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	if db.Dialector.Name() == "mysql" {
		// 默认排序规则不区分大小写，唯一索引会把 Alice 与 alice 视为重复
		if err := db.Exec(mysqlBinaryUsername).Error; err != nil {
			return fmt.Errorf("set username collation: %w", err)
		}
	}
	return nil
}

const mysqlBinaryUsername = "ALTER TABLE users MODIFY username VARCHAR(255) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL"

// Close 关闭底层连接池
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// IsDuplicate reports whether err is a unique/primary key violation.
// TranslateError covers postgres and sqlite; the string match catches drivers without a translator.
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate entry")
}

func sqliteDSN(dsn string) string {
	if dsn == ":memory:" {
		return ":memory:?_foreign_keys=on"
	}
	if strings.Contains(dsn, "_foreign_keys") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&_foreign_keys=on"
	}
	return dsn + "?_foreign_keys=on"
}

func logLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}
