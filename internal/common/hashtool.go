package common

import (
	"crypto/sha256"
	"encoding/asn1"

	gobig "math/big"

	"github.com/go-errors/errors"
	"github.com/multiformats/go-multihash"
	"github.com/privacybydesign/anoncreds/big"
)

// HashCommit computes the sha256 hash over the asn1 representation of a slice
// of big integers and returns a positive big integer that can be represented
// with that hash. The first element of the hashed sequence is the number of
// values, so that lists of different length never collide.
func HashCommit(values []*big.Int) *big.Int {
	tmp := make([]interface{}, len(values)+1)
	tmp[0] = gobig.NewInt(int64(len(values)))
	for i, v := range values {
		if v == nil {
			v = big.NewInt(0)
		}
		tmp[i+1] = v.Go()
	}
	r, err := asn1.Marshal(tmp)
	if err != nil {
		panic(err) // Marshal should never error, so panic if it does
	}

	sha := sha256.Sum256(r)
	return new(big.Int).SetBytes(sha[:])
}

// IntHashSha256 computes the sha256 hash over a byte array and returns it as a big.Int.
func IntHashSha256(input []byte) *big.Int {
	h := sha256.Sum256(input)
	return new(big.Int).SetBytes(h[:])
}

// Multihash returns the sha2-256 multihash of data.
func Multihash(data []byte) (multihash.Multihash, error) {
	mh, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return nil, errors.WrapPrefix(err, "failed to compute multihash", 0)
	}
	return mh, nil
}

// MultihashString returns the base58 encoded sha2-256 multihash of data,
// suitable for use as a content-derived identifier.
func MultihashString(data []byte) (string, error) {
	mh, err := Multihash(data)
	if err != nil {
		return "", err
	}
	return mh.B58String(), nil
}
