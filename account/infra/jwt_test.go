package infra

import (
	"testing"
	"time"

	"github.com/inlines/g-stx-api/account/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWT_IssueAndVerify(t *testing.T) {
	j, err := NewJWT([]byte("secret"), 24*time.Hour)
	require.NoError(t, err)

	token, err := j.Issue("alice")
	require.NoError(t, err)

	login, err := j.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", login)
}

func TestJWT_Expired(t *testing.T) {
	now := time.Now()
	j, err := NewJWT([]byte("secret"), time.Hour, WithJWTClock(func() time.Time { return now }))
	require.NoError(t, err)

	token, err := j.Issue("alice")
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = j.Verify(token)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestJWT_WrongSecret(t *testing.T) {
	issuer, err := NewJWT([]byte("secret"), time.Hour)
	require.NoError(t, err)
	verifier, err := NewJWT([]byte("other"), time.Hour)
	require.NoError(t, err)

	token, err := issuer.Issue("alice")
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestJWT_Garbage(t *testing.T) {
	j, err := NewJWT([]byte("secret"), time.Hour)
	require.NoError(t, err)

	_, err = j.Verify("not.a.token")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestNewJWT_Validation(t *testing.T) {
	_, err := NewJWT(nil, time.Hour)
	assert.Error(t, err)
	_, err = NewJWT([]byte("s"), 0)
	assert.Error(t, err)
}
