// Copyright 2016 Maarten Everts. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package common

import (
	"io"

	"github.com/go-errors/errors"

	"github.com/privacybydesign/anoncreds/big"
)

// sieve holds the odd primes below 55. Their product still fits in a uint64.
var sieve = [...]uint64{3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37, 41, 43, 47, 53}

var sieveProduct = new(big.Int).SetUint64(16294579238595022365)

// RandomPrimeInRange draws odd candidates 2^start + x, with x below 2^length, from rnd
// until one is a probable prime. The e exponents of CL signatures are sampled with it.
func RandomPrimeInRange(rnd io.Reader, start, length uint) (*big.Int, error) {
	if start < 2 {
		return nil, errors.Errorf("cannot sample primes of %d bits", start)
	}

	lower := new(big.Int).Lsh(big.NewInt(1), start)
	buf := make([]byte, (length+7)/8)
	topMask := byte(0xff) >> ((8 - length%8) % 8)
	offset := new(big.Int)
	for {
		if _, err := io.ReadFull(rnd, buf); err != nil {
			return nil, err
		}
		buf[0] &= topMask
		buf[len(buf)-1] |= 1

		p := new(big.Int).Add(lower, offset.SetBytes(buf))
		if hasSmallFactor(p) {
			continue
		}
		if p.ProbablyPrime(20) {
			return p, nil
		}
	}
}

// hasSmallFactor is a cheap filter run before ProbablyPrime: it reports whether p is
// divisible by one of the sieve primes without being that prime.
func hasSmallFactor(p *big.Int) bool {
	r := new(big.Int).Mod(p, sieveProduct).Uint64()
	for _, q := range sieve {
		if r%q == 0 && r != q {
			return true
		}
	}
	return false
}
