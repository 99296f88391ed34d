package auth

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	digits       = "0123456789"
	usernameSet  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	usernameSize = 12
)

// GenerateOTP returns length random decimal digits.
func GenerateOTP(length int) (string, error) {
	return randomString(digits, length)
}

// GenerateUsername builds "<initials>-<random>" from siteName, padded with
// random characters to twelve characters in total. Uniqueness is not checked.
func GenerateUsername(siteName string) (string, error) {
	var prefix strings.Builder
	for _, w := range strings.Fields(siteName) {
		prefix.WriteString(strings.ToUpper(string([]rune(w)[:1])))
	}
	n := usernameSize - prefix.Len() - 1
	if n < 4 {
		n = 4
	}
	suffix, err := randomString(usernameSet, n)
	if err != nil {
		return "", err
	}
	if prefix.Len() == 0 {
		return suffix, nil
	}
	return prefix.String() + "-" + suffix, nil
}

func randomString(alphabet string, n int) (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	b := make([]byte, n)
	for i := range b {
		v, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = alphabet[v.Int64()]
	}
	return string(b), nil
}
