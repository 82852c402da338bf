// Package big contains a mostly API-compatible "math/big".Int that marshals to and from Base64
// (JSON) and to a compact signed byte string (CBOR).
package big

import (
	cryptorand "crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/big"

	"github.com/go-errors/errors"
)

// Int is an API-compatible "math/big".Int. Unlike "math/big".Int it can be (un)marshaled
// by the CBOR encoder, which is used for all wire structures in this module. Negative
// values are supported since proof responses may be negative.
type Int big.Int

const (
	signPositive byte = 0
	signNegative byte = 1
)

// MarshalText implements encoding.TextMarshaler, returning the base64-encoding
// of i.Bytes(), prefixed with '-' for negative numbers.
func (i *Int) MarshalText() ([]byte, error) {
	bts := i.Bytes()
	prefix := 0
	if i.Sign() == -1 {
		prefix = 1
	}
	enc := make([]byte, prefix+base64.StdEncoding.EncodedLen(len(bts)))
	if prefix == 1 {
		enc[0] = '-'
	}
	base64.StdEncoding.Encode(enc[prefix:], bts)
	return enc, nil
}

// UnmarshalJSON implements json.Unmarshaler. If the input is quoted it attempts a
// base64 -> []byte -> Int conversion using i.SetBytes(). Otherwise it attempts to
// unmarshal the input as a JSON base 10 big integer.
func (i *Int) UnmarshalJSON(b []byte) error {
	if len(b) == 0 {
		return errors.New("cannot unmarshal empty input into big.Int")
	}
	if b[0] != '"' { // Not a JSON string, try to decode an ordinarily base-10 encoded "math.big".Int
		return json.Unmarshal(b, i.Go())
	}
	b = b[1 : len(b)-1] // Skip quote characters
	neg := len(b) > 0 && b[0] == '-'
	if neg {
		b = b[1:]
	}
	bts := make([]byte, base64.StdEncoding.DecodedLen(len(b)))
	n, err := base64.StdEncoding.Decode(bts, b)
	if err != nil {
		return err
	}
	i.SetBytes(bts[0:n])
	if neg {
		i.Neg(i)
	}
	return nil
}

// MarshalBinary implements encoding.BinaryMarshaler: one sign byte followed by the
// big-endian absolute value.
func (i *Int) MarshalBinary() ([]byte, error) {
	bts := i.Bytes()
	res := make([]byte, 1+len(bts))
	if i.Sign() == -1 {
		res[0] = signNegative
	}
	copy(res[1:], bts)
	return res, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler, inverting MarshalBinary.
func (i *Int) UnmarshalBinary(data []byte) error {
	if len(data) == 0 {
		return errors.New("cannot unmarshal empty input into big.Int")
	}
	i.SetBytes(data[1:])
	switch data[0] {
	case signPositive:
	case signNegative:
		i.Neg(i)
	default:
		return errors.Errorf("invalid sign byte %d", data[0])
	}
	return nil
}

// RandInt wraps "crypto/rand".Int:
// returns a uniform random value in [0, max). It panics if max <= 0.
func RandInt(rnd io.Reader, max *Int) (*Int, error) {
	i, err := cryptorand.Int(rnd, max.Go())
	return Convert(i), err
}

// Convert from a "math/big".Int
func Convert(x *big.Int) *Int {
	return (*Int)(x)
}

// Go converts to a "math/big".Int
func (i *Int) Go() *big.Int {
	return (*big.Int)(i)
}

// "math/big".Int API, restricted to what this module uses.
// The conversion functions above are inlined by the compiler.

func NewInt(x int64) *Int { return Convert(big.NewInt(x)) }

func (i *Int) Format(s fmt.State, ch rune)  { i.Go().Format(s, ch) }
func (i *Int) Bit(j int) uint               { return i.Go().Bit(j) }
func (i *Int) Bytes() []byte                { return i.Go().Bytes() }
func (i *Int) FillBytes(buf []byte) []byte  { return i.Go().FillBytes(buf) }
func (i *Int) BitLen() int                  { return i.Go().BitLen() }
func (i *Int) Int64() int64                 { return i.Go().Int64() }
func (i *Int) Uint64() uint64               { return i.Go().Uint64() }
func (i *Int) IsInt64() bool                { return i.Go().IsInt64() }
func (i *Int) Sign() int                    { return i.Go().Sign() }
func (i *Int) Cmp(y *Int) int               { return i.Go().Cmp(y.Go()) }
func (i *Int) CmpAbs(y *Int) int            { return i.Go().CmpAbs(y.Go()) }
func (i *Int) ProbablyPrime(n int) bool     { return i.Go().ProbablyPrime(n) }
func (i *Int) String() string               { return i.Go().String() }
func (i *Int) Text(base int) string         { return i.Go().Text(base) }
func (i *Int) SetInt64(x int64) *Int        { return Convert(i.Go().SetInt64(x)) }
func (i *Int) SetUint64(x uint64) *Int      { return Convert(i.Go().SetUint64(x)) }
func (i *Int) Set(x *Int) *Int              { return Convert(i.Go().Set(x.Go())) }
func (i *Int) Abs(x *Int) *Int              { return Convert(i.Go().Abs(x.Go())) }
func (i *Int) Neg(x *Int) *Int              { return Convert(i.Go().Neg(x.Go())) }
func (i *Int) Add(x, y *Int) *Int           { return Convert(i.Go().Add(x.Go(), y.Go())) }
func (i *Int) Sub(x, y *Int) *Int           { return Convert(i.Go().Sub(x.Go(), y.Go())) }
func (i *Int) Mul(x, y *Int) *Int           { return Convert(i.Go().Mul(x.Go(), y.Go())) }
func (i *Int) Quo(x, y *Int) *Int           { return Convert(i.Go().Quo(x.Go(), y.Go())) }
func (i *Int) Div(x, y *Int) *Int           { return Convert(i.Go().Div(x.Go(), y.Go())) }
func (i *Int) Mod(x, y *Int) *Int           { return Convert(i.Go().Mod(x.Go(), y.Go())) }
func (i *Int) And(x, y *Int) *Int           { return Convert(i.Go().And(x.Go(), y.Go())) }
func (i *Int) SetBytes(buf []byte) *Int     { return Convert(i.Go().SetBytes(buf)) }
func (i *Int) Lsh(x *Int, n uint) *Int      { return Convert(i.Go().Lsh(x.Go(), n)) }
func (i *Int) Rsh(x *Int, n uint) *Int      { return Convert(i.Go().Rsh(x.Go(), n)) }
func (i *Int) SetBit(x *Int, j int, b uint) *Int {
	return Convert(i.Go().SetBit(x.Go(), j, b))
}
func (i *Int) Exp(x, y, m *Int) *Int {
	return Convert(i.Go().Exp(x.Go(), y.Go(), m.Go()))
}
func (i *Int) GCD(x, y, a, b *Int) *Int {
	return Convert(i.Go().GCD(x.Go(), y.Go(), a.Go(), b.Go()))
}
func (i *Int) ModInverse(g, n *Int) *Int {
	return Convert(i.Go().ModInverse(g.Go(), n.Go()))
}
func (i *Int) SetString(s string, base int) (*Int, bool) {
	z, b := i.Go().SetString(s, base)
	return Convert(z), b
}
