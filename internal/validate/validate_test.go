package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/airwatch/internal/model"
)

func TestEmployeeInput(t *testing.T) {
	err := Struct(model.EmployeeInput{
		Email:     "not-an-email",
		FirstName: "Ada",
		Password:  "123",
		Role:      "ROLE_GUEST",
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "must be a valid email address", verr.Field("email"))
	assert.Equal(t, "is required", verr.Field("lastName"))
	assert.Equal(t, "must be at least 6 characters", verr.Field("password"))
	assert.Contains(t, verr.Field("Role"), "must be one of")
	assert.Empty(t, verr.Field("firstName"))
}

func TestRegistrationConfirmation(t *testing.T) {
	reg := model.Registration{
		Email:           "a@b.com",
		Password:        "secret1",
		ConfirmPassword: "secret2",
		FirstName:       "Ada",
		LastName:        "Lovelace",
		Latitude:        32.3,
		Longitude:       -9.2,
	}
	err := Struct(reg)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "does not match", verr.Field("ConfirmPassword"))

	reg.ConfirmPassword = reg.Password
	assert.NoError(t, Struct(reg))
}

func TestCoordinatesRange(t *testing.T) {
	err := Struct(model.Registration{
		Email: "a@b.com", Password: "secret1", ConfirmPassword: "secret1",
		FirstName: "A", LastName: "B", Latitude: 95, Longitude: 10,
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "must be between -90 and 90", verr.Field("latitude"))
}
