package database

import (
	"fmt"
	"time"

	"desorientado_backend/internal/config"
	"desorientado_backend/internal/model"
	applog "desorientado_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.DatabaseConfig, mode string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=UTC",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.Charset,
		cfg.ParseTime,
	)

	logLevel := logger.Warn
	if mode == "debug" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logLevel),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	applog.Log.Info("Database connection established", zap.String("host", cfg.Host), zap.String("db", cfg.DBName))
	return db, nil
}

// Migrate creates or updates the schema and seeds the default curriculum
// when the lessons table is empty.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.User{},
		&model.ProgressDocument{},
		&model.QuizAttempt{},
		&model.ActivityLog{},
		&model.Lesson{},
	)
	if err != nil {
		return err
	}

	var count int64
	if err := db.Model(&model.Lesson{}).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		if err := db.Create(model.DefaultCurriculum()).Error; err != nil {
			return fmt.Errorf("seed curriculum: %w", err)
		}
		applog.Log.Info("Seeded default curriculum", zap.Int("lessons", len(model.DefaultCurriculum())))
	}

	applog.Log.Info("Database migration completed")
	return nil
}
