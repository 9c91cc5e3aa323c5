package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RandomHex returns n random bytes hex encoded.
func RandomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// OrderNumber formats an order number: FLT-YYYYMMDD-NNNNNN.
func OrderNumber(ymd string, seq int) string {
	return fmt.Sprintf("FLT-%s-%06d", ymd, seq)
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases s, strips accents and joins words with dashes.
// "Cartuchos de Polipropileno 10\"" becomes "cartuchos-de-polipropileno-10".
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	plain, _, err := transform.String(t, s)
	if err != nil {
		plain = s
	}
	plain = nonSlug.ReplaceAllString(strings.ToLower(plain), "-")
	return strings.Trim(plain, "-")
}
