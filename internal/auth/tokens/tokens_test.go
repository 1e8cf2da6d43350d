package tokens

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIssuer_IssueParse(t *testing.T) {
	iss := NewIssuer("secret", time.Hour)
	tok, err := iss.Issue("u1", "s1")
	require.NoError(t, err)

	c, err := iss.Parse(tok)
	require.NoError(t, err)
	require.Equal(t, "u1", c.UserID)
	require.Equal(t, "s1", c.SessionID)
}

func TestIssuer_RejectsOtherSecretAndExpired(t *testing.T) {
	iss := NewIssuer("secret", time.Hour)
	tok, err := iss.Issue("u1", "s1")
	require.NoError(t, err)

	_, err = NewIssuer("other", time.Hour).Parse(tok)
	require.ErrorIs(t, err, ErrInvalidToken)

	later := NewIssuer("secret", time.Hour)
	later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = later.Parse(tok)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = iss.Parse("garbage")
	require.ErrorIs(t, err, ErrInvalidToken)
}
