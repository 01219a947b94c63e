package service

import (
	"errors"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/MaxCaruta/purelove-sub002/internal/models"
	"github.com/MaxCaruta/purelove-sub002/internal/repository"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService signs operators into the monitoring dashboard. There is no
// self-service registration: accounts are provisioned out of band.
type AuthService struct {
	adminRepo repository.AdminRepositoryInterface
}

func NewAuthService(adminRepo repository.AdminRepositoryInterface) *AuthService {
	return &AuthService{adminRepo: adminRepo}
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string               `json:"token"`
	Admin models.AdminResponse `json:"admin"`
}

func (s *AuthService) Login(input LoginInput) (*AuthResponse, error) {
	admin, err := s.adminRepo.FindByEmail(input.Email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.generateToken(admin)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		Token: token,
		Admin: admin.ToResponse(),
	}, nil
}

// EnsureAdmin provisions the bootstrap operator account if it is missing.
func (s *AuthService) EnsureAdmin(email, password string) error {
	if _, err := s.adminRepo.FindByEmail(email); err == nil {
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return s.adminRepo.Create(&models.Admin{
		Email:        email,
		PasswordHash: string(hashed),
		Role:         "operator",
	})
}

func (s *AuthService) generateToken(admin *models.Admin) (string, error) {
	claims := jwt.MapClaims{
		"admin_id": admin.ID,
		"email":    admin.Email,
		"role":     admin.Role,
		"exp":      time.Now().Add(time.Hour * 24).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(os.Getenv("JWT_SECRET")))
}
