// internal/utils/validator_test.go
package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type walletFixture struct {
	Address string `validate:"eth_address"`
}

func TestEthAddressValidation(t *testing.T) {
	valid := []string{
		"", // optional field
		"0x52908400098527886E0F7030069857D2E4169EE7",
		"0xde709f2102306220921060314715629080e2fb77",
	}
	for _, addr := range valid {
		assert.NoError(t, ValidateStruct(&walletFixture{Address: addr}), addr)
	}

	invalid := []string{
		"52908400098527886E0F7030069857D2E4169EE7", // missing prefix
		"0x123",                  // too short
		"0xZZ908400098527886E0F7030069857D2E4169EE7", // non-hex
	}
	for _, addr := range invalid {
		assert.Error(t, ValidateStruct(&walletFixture{Address: addr}), addr)
	}
}

type passwordFixture struct {
	Password string `validate:"strong_password"`
}

func TestStrongPasswordValidation(t *testing.T) {
	assert.NoError(t, ValidateStruct(&passwordFixture{Password: "Str0ng!Pass"}))

	for _, weak := range []string{"short1!", "alllowercase1!", "ALLUPPERCASE1!", "NoNumbers!", "NoSpecial12"} {
		assert.Error(t, ValidateStruct(&passwordFixture{Password: weak}), weak)
	}
}

type usernameFixture struct {
	Username string `validate:"username"`
}

func TestUsernameValidation(t *testing.T) {
	assert.NoError(t, ValidateStruct(&usernameFixture{Username: "creator_42"}))
	assert.Error(t, ValidateStruct(&usernameFixture{Username: "ab"}))
	assert.Error(t, ValidateStruct(&usernameFixture{Username: "bad name!"}))
}

func TestGetValidationErrorsShapesOutput(t *testing.T) {
	err := ValidateStruct(&usernameFixture{Username: "ab"})
	errs := GetValidationErrors(err)

	assert.Len(t, errs, 1)
	assert.Equal(t, "username", errs[0].Field)
	assert.Equal(t, "username", errs[0].Tag)
	assert.NotEmpty(t, errs[0].Message)
}
