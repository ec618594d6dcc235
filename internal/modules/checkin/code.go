package checkin

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	codeLength   = 12
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// NormalizeCode upper-cases and trims a personal code and checks it is
// exactly 12 ASCII letters or digits.
func NormalizeCode(raw string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if len(code) != codeLength {
		return "", ErrInvalidCode
	}
	for _, r := range code {
		if !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9') {
			return "", ErrInvalidCode
		}
	}
	return code, nil
}

// newCode avoids look-alike characters (I, O, 0, 1).
func newCode() (string, error) {
	var b strings.Builder
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := 0; i < codeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(codeAlphabet[n.Int64()])
	}
	return b.String(), nil
}
