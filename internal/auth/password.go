// Package auth produces and checks salted password verifiers.
//
// Two formats are understood. PBKDF2-SHA256 verifiers use the modular
// crypt layout "$pbkdf2-sha256$<rounds>$<salt>$<checksum>" with the
// adapted base64 alphabet ('.' instead of '+', no padding), which keeps
// verifiers written by older versions of the app valid. bcrypt verifiers
// start with "$2".
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
)

const (
	SchemePBKDF2SHA256 = "pbkdf2-sha256"
	SchemeBcrypt       = "bcrypt"
)

const (
	pbkdf2Prefix        = "$pbkdf2-sha256$"
	defaultPBKDF2Rounds = 29000
	pbkdf2SaltSize      = 16
	pbkdf2KeySize       = 32
)

var ErrUnknownScheme = errors.New("unknown password scheme")

// Hasher creates verifiers in one configured scheme.
type Hasher struct {
	scheme     string
	rounds     int
	bcryptCost int
}

// NewHasher returns a Hasher for scheme. An empty scheme selects PBKDF2.
func NewHasher(scheme string) (*Hasher, error) {
	switch strings.ToLower(strings.TrimSpace(scheme)) {
	case "", SchemePBKDF2SHA256:
		return &Hasher{scheme: SchemePBKDF2SHA256, rounds: defaultPBKDF2Rounds}, nil
	case SchemeBcrypt:
		return &Hasher{scheme: SchemeBcrypt, bcryptCost: bcrypt.DefaultCost}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownScheme, scheme)
	}
}

// Scheme returns the scheme new verifiers are written in.
func (h *Hasher) Scheme() string {
	return h.scheme
}

// Hash returns a new salted verifier for password.
func (h *Hasher) Hash(password string) (string, error) {
	if h.scheme == SchemeBcrypt {
		hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.bcryptCost)
		if err != nil {
			return "", err
		}
		return string(hashed), nil
	}

	salt := make([]byte, pbkdf2SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	sum := pbkdf2.Key([]byte(password), salt, h.rounds, pbkdf2KeySize, sha256.New)
	return fmt.Sprintf("%s%d$%s$%s", pbkdf2Prefix, h.rounds, ab64Encode(salt), ab64Encode(sum)), nil
}

// Verify reports whether password matches verifier. Malformed verifiers
// never match.
func Verify(password, verifier string) bool {
	switch {
	case strings.HasPrefix(verifier, pbkdf2Prefix):
		return verifyPBKDF2(password, verifier)
	case strings.HasPrefix(verifier, "$2"):
		return bcrypt.CompareHashAndPassword([]byte(verifier), []byte(password)) == nil
	default:
		return false
	}
}

func verifyPBKDF2(password, verifier string) bool {
	parts := strings.Split(strings.TrimPrefix(verifier, pbkdf2Prefix), "$")
	if len(parts) != 3 {
		return false
	}
	rounds, err := strconv.Atoi(parts[0])
	if err != nil || rounds < 1 {
		return false
	}
	salt, err := ab64Decode(parts[1])
	if err != nil {
		return false
	}
	want, err := ab64Decode(parts[2])
	if err != nil || len(want) == 0 {
		return false
	}
	got := pbkdf2.Key([]byte(password), salt, rounds, len(want), sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1
}

func ab64Encode(data []byte) string {
	return strings.ReplaceAll(base64.RawStdEncoding.EncodeToString(data), "+", ".")
}

func ab64Decode(value string) ([]byte, error) {
	return base64.RawStdEncoding.DecodeString(strings.ReplaceAll(value, ".", "+"))
}
