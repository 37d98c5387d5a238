package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	t.Parallel()

	t.Run("Should create user with normalized email", func(t *testing.T) {
		t.Parallel()

		user, err := NewUser("123", "  Test.User@Gmail.COM  ", "")
		require.NoError(t, err)

		assert.Equal(t, "test.user@gmail.com", user.Email)
		assert.Equal(t, "123", user.ID)
		assert.Equal(t, DefaultTimezone, user.Timezone)
		assert.False(t, user.CreatedAt.IsZero())
	})

	t.Run("Should keep a valid timezone", func(t *testing.T) {
		t.Parallel()

		user, err := NewUser("123", "tz@test.com", "Europe/Rome")
		require.NoError(t, err)
		assert.Equal(t, "Europe/Rome", user.Timezone)
	})

	t.Run("Should fail with invalid email", func(t *testing.T) {
		t.Parallel()

		_, err := NewUser("123", "invalid-email-format", "")
		assert.ErrorIs(t, err, ErrInvalidEmail)
	})

	t.Run("Should fail with unknown timezone", func(t *testing.T) {
		t.Parallel()

		_, err := NewUser("123", "tz@test.com", "Mars/Olympus")
		assert.ErrorIs(t, err, ErrInvalidTimezone)
	})
}

func TestUserPassword(t *testing.T) {
	t.Parallel()

	t.Run("Should hash password and bump UpdatedAt", func(t *testing.T) {
		t.Parallel()
		user, _ := NewUser("123", "test@test.com", "")
		old := user.UpdatedAt

		time.Sleep(time.Millisecond)

		require.NoError(t, user.SetPassword("superSecret123"))
		assert.NotEqual(t, "superSecret123", user.PasswordHash)
		assert.NotEmpty(t, user.PasswordHash)
		assert.True(t, user.UpdatedAt.After(old))
	})

	t.Run("Should validate password length", func(t *testing.T) {
		t.Parallel()
		user, _ := NewUser("123", "test@test.com", "")

		assert.ErrorIs(t, user.SetPassword("short"), ErrPasswordTooShort)
	})

	t.Run("CheckPassword should work", func(t *testing.T) {
		t.Parallel()
		user, _ := NewUser("123", "test@test.com", "")
		require.NoError(t, user.SetPassword("correctPassword"))

		assert.NoError(t, user.CheckPassword("correctPassword"))
		assert.Error(t, user.CheckPassword("wrongPassword"))
	})
}
