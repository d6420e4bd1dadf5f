package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUser(t *testing.T) {
	user, err := CreateUser("Jane Doe", "jane@example.com", "secret123")
	require.NoError(t, err)

	assert.NotEmpty(t, user.UUID)
	assert.Equal(t, STATUS_ACTIVE, user.Status)
	assert.NotEqual(t, "secret123", user.Password, "password must be stored hashed")
	assert.True(t, user.CheckPassword("secret123"))
	assert.False(t, user.CheckPassword("wrong"))
	assert.True(t, user.IsActive())
}

func TestCreateUserValidation(t *testing.T) {
	_, err := CreateUser("Jane", "not-an-email", "secret123")
	assert.Error(t, err)

	_, err = CreateUser("Jane", "jane@example.com", "short")
	assert.Error(t, err)

	_, err = CreateUser("JD", "jane@example.com", "secret123")
	assert.Error(t, err, "name below minimum length")
}
