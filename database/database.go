package database

import (
	"errors"
	"fmt"
	"strings"
	"time"

	config "github.com/anjiri1684/training_academy/configs"
	"github.com/anjiri1684/training_academy/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const sqlitePrefix = "sqlite:"

// Connect opens PostgreSQL, or an embedded SQLite file when the URL starts with "sqlite:".
func Connect(cfg config.Config, log logrus.FieldLogger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	if strings.HasPrefix(cfg.DatabaseURL, sqlitePrefix) {
		dialector = sqlite.Open(strings.TrimPrefix(cfg.DatabaseURL, sqlitePrefix))
	} else {
		dialector = postgres.Open(cfg.DatabaseURL)
	}

	db, err := Open(dialector, log)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	log.Info("✅ Database connected successfully")
	return db, nil
}

func Open(dialector gorm.Dialector, log logrus.FieldLogger) (*gorm.DB, error) {
	return gorm.Open(dialector, &gorm.Config{
		PrepareStmt:            false,
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger: logger.New(log, logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.TrainingProgram{},
		&models.Session{},
		&models.Booking{},
		&models.Payment{},
		&models.Announcement{},
		&models.ContactMessage{},
		&models.AuditEntry{},
		&models.AcademySetting{},
	)
	if err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	return nil
}

func SeedAdmin(db *gorm.DB, admin config.AdminConfig, log logrus.FieldLogger) error {
	if admin.Email == "" || admin.Password == "" {
		log.Warn("⚠️ ADMIN_EMAIL or ADMIN_PASSWORD not set, skipping admin seed")
		return nil
	}

	var existing models.User
	err := db.Where("email = ?", admin.Email).First(&existing).Error
	if err == nil {
		log.Debug("Admin user already exists.")
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("check for admin user: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(admin.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	adminUser := models.User{
		FullName: admin.FullName,
		Email:    admin.Email,
		Password: string(hashedPassword),
		Role:     models.RoleAdmin,
		IsActive: true,
	}
	if err := db.Create(&adminUser).Error; err != nil {
		return fmt.Errorf("seed admin user: %w", err)
	}

	log.WithField("email", admin.Email).Info("✅ Admin user seeded successfully")
	return nil
}
