// Copyright 2016 Maarten Everts. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package anoncreds

import (
	"io"

	"github.com/privacybydesign/anoncreds/big"
	"github.com/privacybydesign/anoncreds/credkeys"
	"github.com/privacybydesign/anoncreds/internal/common"
)

// CLSignature is a data structure for holding a Camenisch-Lysyanskaya signature.
type CLSignature struct {
	A *big.Int
	E *big.Int `json:"e"`
	V *big.Int `json:"v"`
}

// SignatureCorrectnessProof proves that A = Q^(1/e) was computed with the issuer's key.
type SignatureCorrectnessProof struct {
	C         *big.Int `json:"c"`
	EResponse *big.Int `json:"e_response"`
}

// messageProduct computes RLink^ls * Rctxt^m2 * prod_i R_i^m_i. A nil ls is skipped.
func messageProduct(pk *credkeys.PublicKey, ls, m2 *big.Int, ms []*big.Int) (*big.Int, error) {
	bases := []*big.Int{pk.Rctxt}
	exps := []*big.Int{m2}
	if ls != nil {
		bases = append(bases, pk.RLink)
		exps = append(exps, ls)
	}
	bases = append(bases, pk.R...)
	exps = append(exps, ms...)
	return common.MultiExp(bases, exps, pk.N)
}

// signCommitment signs the commitment U together with the context m2 and the attributes ms.
func signCommitment(rnd io.Reader, sk *credkeys.PrivateKey, pk *credkeys.PublicKey, U, m2 *big.Int, ms []*big.Int) (*CLSignature, *big.Int, error) {
	R, err := messageProduct(pk, nil, m2, ms)
	if err != nil {
		return nil, nil, err
	}

	vTilde, err := common.RandomBigInt(rnd, pk.Params.Lv-1)
	if err != nil {
		return nil, nil, err
	}
	twoLv := new(big.Int).Lsh(big.NewInt(1), pk.Params.Lv-1)
	v := new(big.Int).Add(twoLv, vTilde)

	// Q = inv( S^v * R * U) * Z
	numerator := new(big.Int).Exp(pk.S, v, pk.N)
	numerator.Mul(numerator, R).Mul(numerator, U).Mod(numerator, pk.N)

	invNumerator, ok := common.ModInverse(numerator, pk.N)
	if !ok {
		return nil, nil, common.ErrNoModInverse
	}
	Q := new(big.Int).Mul(pk.Z, invNumerator)
	Q.Mod(Q, pk.N)

	e, err := common.RandomPrimeInRange(rnd, pk.Params.Le-1, pk.Params.LePrime-1)
	if err != nil {
		return nil, nil, err
	}

	d, ok := common.ModInverse(e, sk.Order)
	if !ok {
		return nil, nil, common.ErrNoModInverse
	}
	A := new(big.Int).Exp(Q, d, pk.N)

	return &CLSignature{A: A, E: e, V: v}, Q, nil
}

// proveSignature proves knowledge of 1/e modulo the group order, showing that A = Q^(1/e).
func proveSignature(rnd io.Reader, sk *credkeys.PrivateKey, pk *credkeys.PublicKey, signature *CLSignature, Q, nonce *big.Int) (*SignatureCorrectnessProof, error) {
	d, ok := common.ModInverse(signature.E, sk.Order)
	if !ok {
		return nil, common.ErrNoModInverse
	}

	eCommit, err := big.RandInt(rnd, sk.Order)
	if err != nil {
		return nil, err
	}
	ACommit := new(big.Int).Exp(Q, eCommit, pk.N)

	c := common.HashCommit([]*big.Int{Q, signature.A, ACommit, nonce})
	eResponse := new(big.Int).Mul(c, d)
	eResponse.Sub(eCommit, eResponse).Mod(eResponse, sk.Order)

	return &SignatureCorrectnessProof{C: c, EResponse: eResponse}, nil
}

// Verify verifies the proof against the given public key, signature and nonce.
func (p *SignatureCorrectnessProof) Verify(pk *credkeys.PublicKey, signature *CLSignature, nonce *big.Int) bool {
	if p == nil || p.C == nil || p.EResponse == nil || signature.A == nil || signature.E == nil {
		return false
	}

	// ACommit = A^{C + EResponse * e}
	exponent := new(big.Int).Mul(p.EResponse, signature.E)
	exponent.Add(p.C, exponent)
	ACommit, err := common.ModPow(signature.A, exponent, pk.N)
	if err != nil {
		return false
	}

	Q := new(big.Int).Exp(signature.A, signature.E, pk.N)
	return common.HashCommit([]*big.Int{Q, signature.A, ACommit, nonce}).Cmp(p.C) == 0
}

// Verify checks whether the signature is correct for the given link secret, context and
// attributes.
func (s *CLSignature) Verify(pk *credkeys.PublicKey, ls, m2 *big.Int, ms []*big.Int) bool {
	if s.A == nil || s.E == nil || s.V == nil {
		return false
	}
	// First check that e is in the range [2^{l_e - 1}, 2^{l_e - 1} + 2^{l_e_prime - 1}]
	start := new(big.Int).Lsh(big.NewInt(1), pk.Params.Le-1)
	end := new(big.Int).Lsh(big.NewInt(1), pk.Params.LePrime-1)
	end.Add(end, start)
	if s.E.Cmp(start) < 0 || s.E.Cmp(end) > 0 {
		return false
	}

	// Z = A^e * S^v * R
	R, err := messageProduct(pk, ls, m2, ms)
	if err != nil {
		return false
	}
	Q, err := common.MultiExp([]*big.Int{s.A, pk.S}, []*big.Int{s.E, s.V}, pk.N)
	if err != nil {
		return false
	}
	Q.Mul(Q, R).Mod(Q, pk.N)
	return pk.Z.Cmp(Q) == 0
}

// Randomize returns a randomized copy of the signature: A' = A*S^r, v' = v - e*r.
func (s *CLSignature) Randomize(rnd io.Reader, pk *credkeys.PublicKey) (*CLSignature, error) {
	r, err := common.RandomBigInt(rnd, pk.Params.LRA)
	if err != nil {
		return nil, err
	}
	APrime := new(big.Int).Mul(s.A, new(big.Int).Exp(pk.S, r, pk.N))
	APrime.Mod(APrime, pk.N)
	t := new(big.Int).Mul(s.E, r)
	VPrime := new(big.Int).Sub(s.V, t)
	return &CLSignature{A: APrime, E: new(big.Int).Set(s.E), V: VPrime}, nil
}
