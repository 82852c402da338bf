package anoncreds

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/privacybydesign/anoncreds/big"
	"github.com/privacybydesign/anoncreds/internal/common"
)

// EncodeAttribute maps a raw attribute value to the integer that is signed. Values that are
// the canonical decimal form of a 32-bit signed integer encode as that integer, so that
// predicates can be proven over them; any other value encodes as the big-endian integer of
// its SHA-256 digest.
func EncodeAttribute(raw string) *big.Int {
	if v, ok := parseInt32(raw); ok {
		return big.NewInt(int64(v))
	}
	return common.IntHashSha256([]byte(raw))
}

// parseInt32 returns the value of raw if it is the canonical decimal form of an int32.
func parseInt32(raw string) (int32, bool) {
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || strconv.FormatInt(v, 10) != raw {
		return 0, false
	}
	return int32(v), true
}

// commonView normalizes an attribute name for comparison: lower case without whitespace.
func commonView(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, name)
}
