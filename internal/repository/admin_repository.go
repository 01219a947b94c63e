package repository

import (
	"gorm.io/gorm"

	"github.com/MaxCaruta/purelove-sub002/internal/models"
)

// AdminRepositoryInterface defines the contract for operator account lookups.
type AdminRepositoryInterface interface {
	Create(admin *models.Admin) error
	FindByEmail(email string) (*models.Admin, error)
}

type AdminRepository struct {
	db *gorm.DB
}

var _ AdminRepositoryInterface = (*AdminRepository)(nil)

func NewAdminRepository(db *gorm.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

func (r *AdminRepository) Create(admin *models.Admin) error {
	return r.db.Create(admin).Error
}

func (r *AdminRepository) FindByEmail(email string) (*models.Admin, error) {
	var admin models.Admin
	if err := r.db.Where("email = ?", email).First(&admin).Error; err != nil {
		return nil, err
	}
	return &admin, nil
}
