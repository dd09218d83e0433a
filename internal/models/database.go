package models

import (
	"fmt"
	"time"

	"github.com/huangang/consultdesk/internal/config"
	applog "github.com/huangang/consultdesk/pkg/logger"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// InitDB opens the configured database. SQL statements are logged at debug
// level only in debug mode.
func InitDB(cfg *config.DatabaseConfig, mode string) error {
	dialector, err := Dialector(cfg)
	if err != nil {
		return err
	}

	level := logger.Warn
	if mode == "debug" {
		level = logger.Info
	}
	gormLogger := logger.New(applog.GormWriter{}, logger.Config{
		SlowThreshold:             time.Second,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLogger})
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}

	DB = db
	return nil
}

// Dialector picks the gorm driver named by cfg.Driver.
func Dialector(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "sqlite":
		return sqlite.Open(cfg.DSN), nil
	case "mysql":
		return mysql.Open(cfg.DSN), nil
	case "postgres":
		return postgres.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}

func AutoMigrate() error {
	return DB.AutoMigrate(
		&User{},
		&Organization{},
		&OrganizationMember{},
		&Consultant{},
		&Group{},
		&Project{},
		&ProjectConsultant{},
		&Payment{},
		&Task{},
		&SystemLog{},
		&RunClaim{},
	)
}

func GetDB() *gorm.DB {
	return DB
}

// SeedDefaultData creates the initial admin account when no user exists.
func SeedDefaultData(hash func(string) (string, error)) error {
	var count int64
	if err := DB.Model(&User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	password, err := hash("admin")
	if err != nil {
		return err
	}
	admin := User{
		Username: "admin",
		Password: password,
		Nickname: "Administrator",
		Role:     RoleAdmin,
		AuthType: AuthLocal,
		IsActive: true,
	}
	if err := DB.Create(&admin).Error; err != nil {
		return err
	}
	applog.Warn().Msg("created default admin user admin/admin, change the password")
	return nil
}
