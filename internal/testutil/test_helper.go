package testutil

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/MaxCaruta/purelove-sub002/internal/models"
)

// TestHelper provides utility functions for tests
type TestHelper struct {
	t *testing.T
}

func NewTestHelper(t *testing.T) *TestHelper {
	return &TestHelper{t: t}
}

// CreateTestUser creates a test user with default values
func (h *TestHelper) CreateTestUser(id uint, name, email string) models.User {
	if id == 0 {
		id = 1
	}
	if name == "" {
		name = "Test User"
	}
	if email == "" {
		email = "test@example.com"
	}

	return models.User{
		ID:          id,
		DisplayName: name,
		Email:       email,
		Photo:       "photos/users/default.jpg",
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
}

// CreateTestModelProfile creates a test model profile with default values
func (h *TestHelper) CreateTestModelProfile(id uint, name string) models.ModelProfile {
	if id == 0 {
		id = 100
	}
	if name == "" {
		name = "Test Model"
	}

	return models.ModelProfile{
		ID:          id,
		DisplayName: name,
		Photo:       "photos/models/default.jpg",
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
}

// CreateTestMessageEvent creates a message event with default values
func (h *TestHelper) CreateTestMessageEvent(id string, senderID, receiverID uint, content string) models.MessageEvent {
	if id == "" {
		id = fmt.Sprintf("msg-%d-%d", senderID, receiverID)
	}
	if content == "" {
		content = "Test message"
	}

	return models.MessageEvent{
		ID:         id,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		Type:       models.TextMessage,
		CreatedAt:  time.Now(),
	}
}

// SetupTestEnv sets up required environment variables for testing
func (h *TestHelper) SetupTestEnv() {
	os.Setenv("JWT_SECRET", "test-secret-key-for-testing-only")
}

// TeardownTestEnv cleans up environment variables after testing
func (h *TestHelper) TeardownTestEnv() {
	os.Unsetenv("JWT_SECRET")
}

// AssertError checks if an error occurred when it should (or shouldn't)
func (h *TestHelper) AssertError(err error, shouldErr bool, testName string) {
	if (err != nil) != shouldErr {
		if shouldErr {
			h.t.Errorf("%s: expected error but got nil", testName)
		} else {
			h.t.Errorf("%s: unexpected error: %v", testName, err)
		}
	}
}

// AssertEqual checks if two values are equal
func (h *TestHelper) AssertEqual(got, want interface{}, testName string) {
	if got != want {
		h.t.Errorf("%s: got %v, want %v", testName, got, want)
	}
}
