// Package cbor fixes the CBOR dialect of this module on top of github.com/fxamacker/cbor.
// Credentials, presentations, registry snapshots and signed accumulator states are all
// encoded with it, and so are the values hashed into identifiers and delta links, which
// is why the encoding has to be deterministic (RFC 8949, section 4.2.1). Decoding refuses
// duplicate map keys, indefinite lengths and tags, and bounds the size of containers.
package cbor

import (
	"io"

	"github.com/fxamacker/cbor/v2"
)

// Upper bounds on the number of elements of a decoded array or map.
const (
	MaxArrayElements = 1 << 18
	MaxMapPairs      = 1 << 18
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.EncOptions{
		Sort:          cbor.SortCoreDeterministic,
		ShortestFloat: cbor.ShortestFloat16,
		NaNConvert:    cbor.NaNConvert7e00,
		InfConvert:    cbor.InfConvertFloat16,
		IndefLength:   cbor.IndefLengthForbidden,
		TagsMd:        cbor.TagsForbidden,
	}.EncMode()
	if err != nil {
		panic(err)
	}

	// Unknown fields are skipped, so that newer encoders can add fields.
	decMode, err = cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyEnforcedAPF,
		IndefLength:       cbor.IndefLengthForbidden,
		TagsMd:            cbor.TagsForbidden,
		TimeTag:           cbor.DecTagIgnored,
		MaxArrayElements:  MaxArrayElements,
		MaxMapPairs:       MaxMapPairs,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}.DecMode()
	if err != nil {
		panic(err)
	}
}

func Marshal(src interface{}) ([]byte, error) {
	return encMode.Marshal(src)
}

func Unmarshal(data []byte, dst interface{}) error {
	return decMode.Unmarshal(data, dst)
}

// Valid returns an error unless data holds exactly one well-formed item.
func Valid(data []byte) error {
	return decMode.Valid(data)
}

func NewEncoder(w io.Writer) *cbor.Encoder {
	return encMode.NewEncoder(w)
}

func NewDecoder(r io.Reader) *cbor.Decoder {
	return decMode.NewDecoder(r)
}
