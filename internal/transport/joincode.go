package transport

import (
	"crypto/rand"
	"fmt"
	"regexp"
)

// Join codes are short, human-typable room identifiers. The relay maps a
// code to a room under its own URL namespace, so two unrelated deployments
// sharing signaling infrastructure never collide. The alphabet skips 0/O
// and 1/I to keep codes unambiguous when read aloud.
const (
	JoinCodeLength   = 6
	joinCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

var joinCodeRe = regexp.MustCompile(`^[A-Z2-9]{6}$`)

func NewJoinCode() (string, error) {
	buf := make([]byte, JoinCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("unable to generate join code: %w", err)
	}
	for i, b := range buf {
		buf[i] = joinCodeAlphabet[int(b)%len(joinCodeAlphabet)]
	}
	return string(buf), nil
}

func ValidJoinCode(code string) bool {
	return joinCodeRe.MatchString(code)
}
