package repository

import (
	"fmt"
	"os"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/MaxCaruta/purelove-sub002/internal/models"
)

func InitDB() (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_SSLMODE"),
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Platform tables (users, model_profiles, conversations, messages) are
	// owned by the site backend; migrating them here keeps a standalone dev
	// environment usable. Admins is the only table this service owns.
	if err := db.AutoMigrate(
		&models.User{},
		&models.ModelProfile{},
		&models.ConversationRecord{},
		&models.StoredMessage{},
		&models.Admin{},
	); err != nil {
		return nil, err
	}

	return db, nil
}
