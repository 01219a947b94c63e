package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/MaxCaruta/purelove-sub002/internal/models"
	"github.com/MaxCaruta/purelove-sub002/internal/source"
)

// ProfileRepository resolves raw ids against the users and model_profiles
// tables. The two tables share one id namespace, so a lookup tries both.
type ProfileRepository struct {
	db *gorm.DB
}

var _ source.ProfileDirectory = (*ProfileRepository)(nil)

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// LookupProfile returns the identity behind an id, or an absent Profile if
// neither table knows it. Absence is not an error.
func (r *ProfileRepository) LookupProfile(ctx context.Context, id uint) (source.Profile, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	if err == nil {
		return source.Profile{User: &user}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return source.Profile{}, err
	}

	var model models.ModelProfile
	err = r.db.WithContext(ctx).First(&model, id).Error
	if err == nil {
		return source.Profile{Model: &model}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return source.Profile{}, err
	}

	return source.Profile{}, nil
}

func (r *ProfileRepository) ListModelProfiles(ctx context.Context) ([]models.ModelProfile, error) {
	var profiles []models.ModelProfile
	if err := r.db.WithContext(ctx).Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}
