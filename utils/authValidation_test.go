package utils

import (
	"regexp"
	"testing"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCredentials(t *testing.T) {
	assert.NoError(t, ValidateCredentials("doc@example.com", "Str0ng!pass"))

	err := ValidateCredentials("not-an-email", "weak")
	require.Error(t, err)
	fields, ok := err.(validation.Errors)
	require.True(t, ok)
	assert.Contains(t, fields, "email")
	assert.ErrorIs(t, fields["password"], ErrPasswordTooShort)

	err = ValidateCredentials("doc@example.com", "alllowercase1!")
	require.Error(t, err)
	assert.ErrorIs(t, err.(validation.Errors)["password"], ErrPasswordNotComplex)
}

func TestValidatePasswordReset(t *testing.T) {
	assert.NoError(t, ValidatePasswordReset("123456", "N3w!password"))

	err := ValidatePasswordReset("12", "N3w!password")
	require.Error(t, err)
	assert.Contains(t, err.(validation.Errors), "code")
}

func TestGenerateResetCode(t *testing.T) {
	code, err := GenerateResetCode()
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), code)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("Str0ng!pass")
	require.NoError(t, err)
	assert.NotEqual(t, "Str0ng!pass", hash)
	assert.True(t, CheckPassword(hash, "Str0ng!pass"))
	assert.False(t, CheckPassword(hash, "wrong"))
}
