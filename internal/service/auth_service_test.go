package service

import (
	"errors"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/MaxCaruta/purelove-sub002/internal/models"
	"github.com/MaxCaruta/purelove-sub002/internal/testutil"
)

type mockAdminRepository struct {
	admins  map[string]*models.Admin
	created []*models.Admin
}

func newMockAdminRepository() *mockAdminRepository {
	return &mockAdminRepository{admins: make(map[string]*models.Admin)}
}

func (m *mockAdminRepository) Create(admin *models.Admin) error {
	m.admins[admin.Email] = admin
	m.created = append(m.created, admin)
	return nil
}

func (m *mockAdminRepository) FindByEmail(email string) (*models.Admin, error) {
	admin, ok := m.admins[email]
	if !ok {
		return nil, errors.New("record not found")
	}
	return admin, nil
}

func seedAdmin(t *testing.T, repo *mockAdminRepository, email, password string) {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	repo.admins[email] = &models.Admin{ID: 1, Email: email, PasswordHash: string(hashed), Role: "operator"}
}

func TestLogin(t *testing.T) {
	helper := testutil.NewTestHelper(t)
	helper.SetupTestEnv()
	defer helper.TeardownTestEnv()

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{
			name:     "valid credentials",
			email:    "ops@purelove.example",
			password: "correct-horse",
			wantErr:  nil,
		},
		{
			name:     "wrong password",
			email:    "ops@purelove.example",
			password: "battery-staple",
			wantErr:  ErrInvalidCredentials,
		},
		{
			name:     "unknown email",
			email:    "ghost@purelove.example",
			password: "correct-horse",
			wantErr:  ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockAdminRepository()
			seedAdmin(t, repo, "ops@purelove.example", "correct-horse")
			svc := NewAuthService(repo)

			resp, err := svc.Login(LoginInput{Email: tt.email, Password: tt.password})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Login error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if resp.Token == "" {
				t.Error("Login returned empty token")
			}
			if resp.Admin.Email != tt.email {
				t.Errorf("Admin.Email = %q, want %q", resp.Admin.Email, tt.email)
			}
		})
	}
}

func TestLoginTokenClaims(t *testing.T) {
	helper := testutil.NewTestHelper(t)
	helper.SetupTestEnv()
	defer helper.TeardownTestEnv()

	repo := newMockAdminRepository()
	seedAdmin(t, repo, "ops@purelove.example", "correct-horse")
	svc := NewAuthService(repo)

	resp, err := svc.Login(LoginInput{Email: "ops@purelove.example", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	token, err := jwt.Parse(resp.Token, func(t *jwt.Token) (interface{}, error) {
		return []byte("test-secret-key-for-testing-only"), nil
	})
	if err != nil || !token.Valid {
		t.Fatalf("token did not parse as valid: %v", err)
	}

	claims := token.Claims.(jwt.MapClaims)
	if claims["email"] != "ops@purelove.example" {
		t.Errorf("email claim = %v, want ops@purelove.example", claims["email"])
	}
	if claims["role"] != "operator" {
		t.Errorf("role claim = %v, want operator", claims["role"])
	}
}

func TestEnsureAdmin(t *testing.T) {
	repo := newMockAdminRepository()
	svc := NewAuthService(repo)

	if err := svc.EnsureAdmin("ops@purelove.example", "bootstrap-pass"); err != nil {
		t.Fatalf("EnsureAdmin failed: %v", err)
	}
	if len(repo.created) != 1 {
		t.Fatalf("created %d admins, want 1", len(repo.created))
	}
	admin := repo.created[0]
	if admin.Role != "operator" {
		t.Errorf("role = %q, want operator", admin.Role)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte("bootstrap-pass")); err != nil {
		t.Errorf("stored hash does not match password: %v", err)
	}

	// Second call must not create a duplicate.
	if err := svc.EnsureAdmin("ops@purelove.example", "different-pass"); err != nil {
		t.Fatalf("EnsureAdmin second call failed: %v", err)
	}
	if len(repo.created) != 1 {
		t.Errorf("created %d admins after second call, want 1", len(repo.created))
	}
}
