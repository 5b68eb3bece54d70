package jwtutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignDeviceRoundTrip(t *testing.T) {
	s := &Signer{Secret: []byte("test-secret"), Issuer: "robot-gateway", ExpMin: 5}

	token, err := s.SignDevice("bot_1")
	require.NoError(t, err)

	claims, err := s.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "bot_1", claims.DeviceID)
	assert.Equal(t, "robot-gateway", claims.Issuer)
	assert.Empty(t, claims.Role)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	s := &Signer{Secret: []byte("test-secret"), Issuer: "robot-gateway", ExpMin: 5}
	token, err := s.SignDevice("bot_1")
	require.NoError(t, err)

	other := &Signer{Secret: []byte("another-secret")}
	_, err = other.Parse(token)
	assert.Error(t, err)
}

func TestParseRejectsExpired(t *testing.T) {
	s := &Signer{Secret: []byte("test-secret"), Issuer: "robot-gateway", ExpMin: -1}
	token, err := s.SignDevice("bot_1")
	require.NoError(t, err)

	_, err = s.Parse(token)
	assert.Error(t, err)
}

func TestParseRejectsGarbage(t *testing.T) {
	s := &Signer{Secret: []byte("test-secret")}
	_, err := s.Parse("not.a.token")
	assert.Error(t, err)
}
