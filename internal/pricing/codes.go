package pricing

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateCode returns prefix followed by length random uppercase alphanumerics.
// length defaults to 8.
func GenerateCode(prefix string, length int) (string, error) {
	if length <= 0 {
		length = 8
	}
	var b strings.Builder
	b.WriteString(strings.ToUpper(prefix))
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate coupon code: %w", err)
		}
		b.WriteByte(codeAlphabet[n.Int64()])
	}
	return b.String(), nil
}
