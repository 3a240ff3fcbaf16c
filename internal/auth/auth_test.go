package auth

import (
	"testing"
	"time"

	"crackers-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestUserTokenRoundTrip(t *testing.T) {
	iss := NewIssuer("secret", time.Hour, time.Hour)
	u := &models.User{ID: primitive.NewObjectID()}

	tok, err := iss.UserToken(u)
	require.NoError(t, err)

	claims, err := iss.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, u.ID.Hex(), claims.ID)
	assert.Equal(t, TypeUser, claims.Type)
	assert.Empty(t, claims.Role)
}

func TestAdminTokenCarriesRole(t *testing.T) {
	iss := NewIssuer("secret", time.Hour, time.Hour)
	a := &models.Admin{ID: primitive.NewObjectID(), Role: models.RoleModerator}

	tok, err := iss.AdminToken(a)
	require.NoError(t, err)
	claims, err := iss.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, TypeAdmin, claims.Type)
	assert.Equal(t, "moderator", claims.Role)
}

func TestParseRejectsForeignAndExpiredTokens(t *testing.T) {
	u := &models.User{ID: primitive.NewObjectID()}

	other, err := NewIssuer("other", time.Hour, time.Hour).UserToken(u)
	require.NoError(t, err)
	_, err = NewIssuer("secret", time.Hour, time.Hour).Parse(other)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := NewIssuer("secret", -time.Minute, time.Hour).UserToken(u)
	require.NoError(t, err)
	_, err = NewIssuer("secret", time.Hour, time.Hour).Parse(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewIssuer("secret", time.Hour, time.Hour).Parse("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)
	assert.True(t, CheckPassword(hash, "hunter22"))
	assert.False(t, CheckPassword(hash, "hunter23"))
}

func TestPermissionsFor(t *testing.T) {
	assert.Contains(t, PermissionsFor(models.RoleSuperAdmin), PermManageAdmins)
	assert.NotContains(t, PermissionsFor(models.RoleAdmin), PermManageAdmins)
	assert.Contains(t, PermissionsFor(models.RoleAdmin), PermVerifyPayments)
	assert.NotContains(t, PermissionsFor(models.RoleModerator), PermVerifyPayments)
	assert.Empty(t, PermissionsFor("janitor"))

	perms := PermissionsFor(models.RoleModerator)
	perms[0] = "tampered"
	assert.NotEqual(t, "tampered", PermissionsFor(models.RoleModerator)[0])
}
