// Copyright 2016 Maarten Everts. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package credkeys contains the issuer key material of a credential definition: the
// system parameters, the CL public key over a safe-prime RSA modulus, the corresponding
// private key, and a proof of correct key generation.
package credkeys

import (
	"io"

	"github.com/go-errors/errors"
	"github.com/privacybydesign/anoncreds/big"
	"github.com/privacybydesign/anoncreds/internal/common"
	"github.com/privacybydesign/anoncreds/safeprime"
)

// MaxKeyGenAttempts bounds the number of safe primes considered while searching for a
// suitable pair before key generation gives up with ErrKeyGen.
var MaxKeyGenAttempts = 64

var ErrKeyGen = errors.New("issuer key generation failed")

type (
	// PublicKey represents an issuer's public key for one credential definition.
	// R holds one base per schema attribute, in schema order.
	PublicKey struct {
		N         *big.Int   // Modulus n
		S         *big.Int   // Generator of QR_n
		Z         *big.Int   // Generator Z
		Rctxt     *big.Int   // Base of the credential context attribute
		RLink     *big.Int   // Base of the link secret
		R         []*big.Int // Bases of the schema attributes
		AttrNames []string

		Params *SystemParameters
	}

	// PrivateKey represents an issuer's private key. The X fields hold the discrete
	// logarithms of the public bases with respect to S; they are only used for
	// proving correct key generation.
	PrivateKey struct {
		P      *big.Int
		Q      *big.Int
		PPrime *big.Int
		QPrime *big.Int

		N     *big.Int
		Order *big.Int

		XZ, XRctxt, XLink *big.Int
		XR                []*big.Int
	}
)

// NewPrivateKey creates a new issuer private key from the two safe primes.
func NewPrivateKey(p, q *big.Int) *PrivateKey {
	sk := &PrivateKey{
		P:      p,
		Q:      q,
		N:      new(big.Int).Mul(p, q),
		PPrime: new(big.Int).Rsh(p, 1),
		QPrime: new(big.Int).Rsh(q, 1),
	}
	sk.Order = new(big.Int).Mul(sk.PPrime, sk.QPrime)
	return sk
}

func (privk *PrivateKey) Validate() error {
	if new(big.Int).Rsh(new(big.Int).Sub(privk.P, big.NewInt(1)), 1).Cmp(privk.PPrime) != 0 {
		return errors.New("Incompatible values for P and P'")
	}
	if new(big.Int).Rsh(new(big.Int).Sub(privk.Q, big.NewInt(1)), 1).Cmp(privk.QPrime) != 0 {
		return errors.New("Incompatible values for Q and Q'")
	}
	if !safeprime.ProbablySafePrime(privk.P, 40) {
		return errors.New("P is not a safe prime")
	}
	if !safeprime.ProbablySafePrime(privk.Q, 40) {
		return errors.New("Q is not a safe prime")
	}
	return nil
}

// Validate checks that the public key is well formed with respect to its parameters.
func (pubk *PublicKey) Validate() error {
	if pubk.Params == nil {
		return errors.New("public key has no system parameters")
	}
	if pubk.N == nil || uint(pubk.N.BitLen()) != pubk.Params.Ln {
		return errors.Errorf("modulus must be %d bits", pubk.Params.Ln)
	}
	if len(pubk.R) != len(pubk.AttrNames) {
		return errors.New("number of bases does not match number of attributes")
	}
	for _, b := range append([]*big.Int{pubk.S, pubk.Z, pubk.Rctxt, pubk.RLink}, pubk.R...) {
		if b == nil || b.Sign() <= 0 || b.Cmp(pubk.N) >= 0 {
			return errors.New("public key base out of range")
		}
	}
	return nil
}

// Base returns the base of the named attribute, or nil if there is none.
func (pubk *PublicKey) Base(name string) *big.Int {
	for i, n := range pubk.AttrNames {
		if n == name {
			return pubk.R[i]
		}
	}
	return nil
}

// findMatch returns the first element of safeprimes that makes a suitable pair with p:
// p*q has the required bith length and p != q mod 8.
func findMatch(safeprimes []*big.Int, param *SystemParameters, p *big.Int) *big.Int {
	eight := big.NewInt(8)
	n, pMod8, qMod8 := new(big.Int), new(big.Int), new(big.Int)
	for _, q := range safeprimes {
		if uint(n.Mul(p, q).BitLen()) == param.Ln && pMod8.Mod(p, eight).Cmp(qMod8.Mod(q, eight)) != 0 {
			return q
		}
	}
	return nil
}

func generateSafePrimePair(rnd io.Reader, param *SystemParameters) (*big.Int, *big.Int, error) {
	primeSize := param.Ln / 2

	stop := make(chan struct{})
	defer close(stop)
	safeprimes := make([]*big.Int, 0, 10) // store all generated safe primes until we find a suitable pair
	pPrime, pPrimeMod8 := new(big.Int), new(big.Int)

	ints, errs := safeprime.GenerateConcurrent(rnd, int(primeSize), stop)

	for attempts := 0; attempts < MaxKeyGenAttempts; attempts++ {
		select {
		case p := <-ints:
			// p is our candidate safe prime, set p' = (p-1)/2. Check that p' mod 8 != 1
			pPrimeMod8.Mod(pPrime.Rsh(p, 1), big.NewInt(8))
			if pPrimeMod8.Cmp(big.NewInt(1)) == 0 {
				continue
			}
			if q := findMatch(safeprimes, param, p); q != nil {
				return p, q, nil
			}
			safeprimes = append(safeprimes, p) // p might match with future safe primes

		case err := <-errs:
			return nil, nil, errors.WrapPrefix(ErrKeyGen, err.Error(), 0)
		}
	}
	return nil, nil, errors.WrapPrefix(ErrKeyGen, "no suitable safe prime pair found", 0)
}

// GenerateKeyPair generates a private/public keypair for a credential definition over the
// given attribute names.
func GenerateKeyPair(rnd io.Reader, param *SystemParameters, attrNames []string) (*PublicKey, *PrivateKey, error) {
	if param == nil {
		return nil, nil, errors.WrapPrefix(ErrKeyGen, "no system parameters", 0)
	}
	p, q, err := generateSafePrimePair(rnd, param)
	if err != nil {
		return nil, nil, err
	}
	return NewKeyPairFromPrimes(rnd, param, p, q, attrNames)
}

// NewKeyPairFromPrimes derives a keypair from the given safe primes: it picks a random
// generator S of QR_n and derives every other base as a random power of S.
func NewKeyPairFromPrimes(rnd io.Reader, param *SystemParameters, p, q *big.Int, attrNames []string) (*PublicKey, *PrivateKey, error) {
	priv := NewPrivateKey(p, q)
	if err := priv.Validate(); err != nil {
		return nil, nil, errors.WrapPrefix(ErrKeyGen, err.Error(), 0)
	}
	if uint(priv.N.BitLen()) != param.Ln {
		return nil, nil, errors.WrapPrefix(ErrKeyGen, "modulus has wrong size", 0)
	}

	pubk := &PublicKey{
		N:         priv.N,
		AttrNames: append([]string(nil), attrNames...),
		Params:    param,
	}

	// S is the square of a random unit; it generates QR_n unless its order divides p' or
	// q', which happens with negligible probability and is excluded below.
	var err error
	one := big.NewInt(1)
	for {
		if pubk.S, err = common.RandomQR(rnd, pubk.N); err != nil {
			return nil, nil, err
		}
		if new(big.Int).Exp(pubk.S, priv.PPrime, pubk.N).Cmp(one) != 0 &&
			new(big.Int).Exp(pubk.S, priv.QPrime, pubk.N).Cmp(one) != 0 {
			break
		}
	}

	table := common.NewFixedBase(pubk.S, pubk.N)
	derive := func() (*big.Int, *big.Int, error) {
		x, err := randomExponent(rnd, priv.Order)
		if err != nil {
			return nil, nil, err
		}
		base, err := table.Exp(x)
		return base, x, err
	}

	if pubk.Z, priv.XZ, err = derive(); err != nil {
		return nil, nil, err
	}
	if pubk.Rctxt, priv.XRctxt, err = derive(); err != nil {
		return nil, nil, err
	}
	if pubk.RLink, priv.XLink, err = derive(); err != nil {
		return nil, nil, err
	}
	pubk.R = make([]*big.Int, len(attrNames))
	priv.XR = make([]*big.Int, len(attrNames))
	for i := range attrNames {
		if pubk.R[i], priv.XR[i], err = derive(); err != nil {
			return nil, nil, err
		}
	}

	return pubk, priv, nil
}

// randomExponent returns a random value in [2, order).
func randomExponent(rnd io.Reader, order *big.Int) (*big.Int, error) {
	two := big.NewInt(2)
	for {
		x, err := big.RandInt(rnd, order)
		if err != nil {
			return nil, err
		}
		if x.Cmp(two) >= 0 {
			return x, nil
		}
	}
}
