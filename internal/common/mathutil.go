// Copyright 2016 Maarten Everts. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package common

import (
	"io"

	"github.com/go-errors/errors"
	"github.com/privacybydesign/anoncreds/big"
)

var (
	bigONE = big.NewInt(1)
)

var ErrNoModInverse = errors.New("modular inverse does not exist")

// ModInverse returns ia, the inverse of a modulo n, if it exists.
func ModInverse(a, n *big.Int) (ia *big.Int, ok bool) {
	g := new(big.Int)
	x := new(big.Int)
	g.GCD(x, nil, a, n)
	if g.Cmp(bigONE) != 0 {
		return
	}
	if x.Sign() < 0 {
		x.Add(x, n)
	}
	return x, true
}

// ModPow computes x^y mod m. The exponent (y) can be negative, in which case it
// uses the modular inverse to compute the result (in contrast to Go's Exp
// function).
func ModPow(x, y, m *big.Int) (*big.Int, error) {
	if y.Sign() == -1 {
		t, ok := ModInverse(new(big.Int).Mod(x, m), m)
		if !ok {
			return nil, ErrNoModInverse
		}
		return t.Exp(t, new(big.Int).Neg(y), m), nil
	}
	return new(big.Int).Exp(x, y, m), nil
}

// MultiExp computes prod_i bases[i]^exps[i] mod m, allowing negative exponents.
func MultiExp(bases, exps []*big.Int, m *big.Int) (*big.Int, error) {
	if len(bases) != len(exps) {
		return nil, errors.New("number of bases and exponents differ")
	}
	r := big.NewInt(1)
	for i := range bases {
		tmp, err := ModPow(bases[i], exps[i], m)
		if err != nil {
			return nil, err
		}
		r.Mul(r, tmp).Mod(r, m)
	}
	return r, nil
}

// RandomBigInt returns a random big integer value in the range
// [0,(2^numBits)-1], inclusive.
func RandomBigInt(rnd io.Reader, numBits uint) (*big.Int, error) {
	t := new(big.Int).Lsh(bigONE, numBits)
	return big.RandInt(rnd, t)
}

// RandomQR returns a random quadratic residue modulo n, i.e. the square of a
// random unit.
func RandomQR(rnd io.Reader, n *big.Int) (*big.Int, error) {
	var tmp big.Int
	for {
		r, err := big.RandInt(rnd, n)
		if err != nil {
			return nil, err
		}
		if tmp.GCD(nil, nil, r, n).Cmp(bigONE) == 0 {
			return r.Mul(r, r).Mod(r, n), nil
		}
	}
}

// InRange reports whether -2^bits < x < 2^bits.
func InRange(x *big.Int, bits uint) bool {
	return x != nil && x.BitLen() <= int(bits)
}
