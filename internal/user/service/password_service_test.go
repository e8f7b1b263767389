package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordService_HashAndMatch(t *testing.T) {
	svc := NewPasswordService(bcrypt.MinCost)

	hash, err := svc.Hash("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)

	ok, err := svc.Matches(hash, "s3cret")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Matches(hash, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPasswordService_MalformedHash(t *testing.T) {
	svc := NewPasswordService(bcrypt.MinCost)

	_, err := svc.Matches("not-a-hash", "x")
	assert.Error(t, err)
}

func TestNewPasswordService_ClampsCost(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewPasswordService(0).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewPasswordService(99).cost)
	assert.Equal(t, 12, NewPasswordService(12).cost)
}
