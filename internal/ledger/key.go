package ledger

import (
	"errors"
	"strings"
	"unicode"
)

// ErrInvalidKey is returned when a username has no characters usable
// in a ledger file name.
var ErrInvalidKey = errors.New("invalid ledger key")

const (
	filePrefix = "user_"
	fileSuffix = ".db"
)

// Key identifies one account's ledger. It only holds lowercase letters,
// digits, '_' and '-'.
type Key string

// KeyFor derives the ledger key for a username. Different usernames can
// map to the same key ("Max" and "max!"); callers that provision ledgers
// must reject such collisions.
func KeyFor(username string) (Key, error) {
	var b strings.Builder
	for _, r := range username {
		if keyRune(r) {
			b.WriteRune(r)
		}
	}
	key := strings.ToLower(b.String())
	if key == "" {
		return "", ErrInvalidKey
	}
	return Key(key), nil
}

// ParseKey validates a key that was already derived, e.g. one read back
// from a ledger file name.
func ParseKey(value string) (Key, error) {
	if value == "" || value != strings.ToLower(value) {
		return "", ErrInvalidKey
	}
	for _, r := range value {
		if !keyRune(r) {
			return "", ErrInvalidKey
		}
	}
	return Key(value), nil
}

func (k Key) String() string {
	return string(k)
}

func (k Key) fileName() string {
	return filePrefix + string(k) + fileSuffix
}

func keyFromFileName(name string) (Key, bool) {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
		return "", false
	}
	key, err := ParseKey(strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix))
	if err != nil {
		return "", false
	}
	return key, true
}

func keyRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r) || r == '_' || r == '-'
}
