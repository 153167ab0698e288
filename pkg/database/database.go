package database

import (
	"fmt"
	"log"
	"time"
	"ttrac_backend/internal/config"
	"ttrac_backend/internal/model"

	"github.com/pkg/errors"
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
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}

	if err := ping(db); err != nil {
		return nil, err
	}

	log.Println("Database connection established")
	return db, nil
}

// ping 等待数据库就绪，每次重试多等 100ms
func ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return errors.Wrap(err, "getting sql.DB")
	}

	const maxAttempts = 20
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		if err = sqlDB.Ping(); err == nil {
			return nil
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}
	return errors.Wrap(err, "DB ping timeout")
}

// Migrate 同步所有表结构
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.Profile{},
		&model.Course{},
		&model.Enrollment{},
		&model.Assignment{},
		&model.AssignmentSubmission{},
		&model.Quiz{},
		&model.QuizQuestion{},
		&model.QuizAttempt{},
		&model.QuizQuestionGrade{},
		&model.Notification{},
		&model.CourseMaterial{},
	)
	if err != nil {
		return errors.Wrap(err, "migrating database")
	}

	log.Println("Database migration completed")
	return nil
}
