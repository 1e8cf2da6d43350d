// Package credentials turns passwords into the value kept in the user record and
// checks passwords against it.
package credentials

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

const (
	BcryptName = "bcrypt"
	LegacyName = "legacy"

	// MaxPasswordBytes is the longest password bcrypt accepts.
	MaxPasswordBytes = 72
)

var ErrPasswordTooLong = errors.Errorf("password must be at most %d bytes", MaxPasswordBytes)

type Hasher interface {
	Hash(password string) (string, error)
	// Verify reports whether password produces stored.
	Verify(stored, password string) bool
}

// New returns the hasher registered under name. Empty selects bcrypt.
func New(name string) (Hasher, error) {
	switch name {
	case "", BcryptName:
		return Bcrypt{}, nil
	case LegacyName:
		return Legacy{}, nil
	default:
		return nil, fmt.Errorf("unknown password hasher %q", name)
	}
}

// Verify checks password against a stored value produced by any known hasher,
// so accounts survive a change of the configured hasher.
func Verify(stored, password string) bool {
	if strings.HasPrefix(stored, legacyPrefix) {
		return Legacy{}.Verify(stored, password)
	}
	return Bcrypt{}.Verify(stored, password)
}

type Bcrypt struct {
	Cost int
}

func (b Bcrypt) Hash(password string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", ErrPasswordTooLong
	}
	if err != nil {
		return "", errors.Wrap(err, "bcrypt hash")
	}
	return string(h), nil
}

func (Bcrypt) Verify(stored, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
}
