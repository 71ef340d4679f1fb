package db

import (
	"fmt"
	"time"

	"JamFM/config"
	"JamFM/logger"
	"JamFM/model"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DB 是 GORM 数据库连接实例
var DB *gorm.DB

// Connect 建立 GORM 数据库连接
func Connect(cfg *config.Config) error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	var err error
	DB, err = gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
		// TranslateError maps driver duplicate-key errors to
		// gorm.ErrDuplicatedKey, which the repositories rely on.
		TranslateError: true,
		// 禁用外键约束
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return fmt.Errorf("failed to connect database with GORM: %w", err)
	}

	// 获取底层的 sql.DB 并配置连接池
	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	logger.Info("Successfully connected to the database with GORM.")
	return nil
}

// Close 关闭 GORM 数据库连接
func Close() error {
	if DB == nil {
		return nil
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// AutoMigrate 自动迁移全部模型
func AutoMigrate() error {
	if DB == nil {
		return fmt.Errorf("GORM database not initialized")
	}

	err := DB.AutoMigrate(
		&model.Profile{},
		&model.Channel{},
		&model.Member{},
		&model.Track{},
		&model.MusicSession{},
		&model.SessionPermission{},
		&model.QueueItem{},
	)
	if err != nil {
		return fmt.Errorf("failed to auto migrate models: %w", err)
	}

	logger.Info("Models migrated successfully with GORM.")
	return nil
}
