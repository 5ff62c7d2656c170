// Package security wraps password hashing and session token generation.
package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

const MinPasswordLength = 8

func ValidatePassword(pw string) error {
	if len(pw) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	// bcrypt ignores everything past 72 bytes.
	if len(pw) > 72 {
		return fmt.Errorf("password must be at most 72 bytes")
	}
	return nil
}

func HashPassword(pw string) (string, error) {
	if err := ValidatePassword(pw); err != nil {
		return "", err
	}
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

func CheckPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// dummyHash is compared against when the user does not exist, so unknown
// names cost the same bcrypt work as a wrong password.
var dummyHash = sync.OnceValue(func() string {
	b, err := bcrypt.GenerateFromPassword([]byte("drulift-no-such-user"), bcrypt.DefaultCost)
	if err != nil {
		panic(fmt.Sprintf("security: dummy hash: %v", err))
	}
	return string(b)
})

// CheckMissingUser burns one password comparison and always reports false.
func CheckMissingUser(pw string) bool {
	_ = CheckPassword(dummyHash(), pw)
	return false
}

// NewToken returns n random bytes, URL-safe base64 encoded.
func NewToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
