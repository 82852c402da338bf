package credkeys

import (
	"io"

	"github.com/go-errors/errors"
	"github.com/privacybydesign/anoncreds/big"
	"github.com/privacybydesign/anoncreds/internal/common"
)

// KeyCorrectnessProof proves that Z, Rctxt, RLink and every R_i are powers of S, so that
// a holder can safely blind its link secret against the key.
type KeyCorrectnessProof struct {
	C         *big.Int
	Responses []*big.Int // in the order Z, Rctxt, RLink, R_0, ..., R_k
}

func (pubk *PublicKey) provenBases() []*big.Int {
	return append([]*big.Int{pubk.Z, pubk.Rctxt, pubk.RLink}, pubk.R...)
}

func (privk *PrivateKey) exponents() []*big.Int {
	return append([]*big.Int{privk.XZ, privk.XRctxt, privk.XLink}, privk.XR...)
}

// keyProofChallenge hashes the modulus and S along with the bases, so that a proof is
// bound to the group it was made in.
func keyProofChallenge(pubk *PublicKey, commitments []*big.Int) *big.Int {
	values := append([]*big.Int{pubk.N, pubk.S}, pubk.provenBases()...)
	return common.HashCommit(append(values, commitments...))
}

// NewKeyCorrectnessProof creates a proof of knowledge of the discrete logarithms of all
// public bases with respect to S.
func (privk *PrivateKey) NewKeyCorrectnessProof(rnd io.Reader, pubk *PublicKey) (*KeyCorrectnessProof, error) {
	xs := privk.exponents()
	bases := pubk.provenBases()
	if len(xs) != len(bases) {
		return nil, errors.New("private key does not match public key")
	}
	for _, x := range xs {
		if x == nil {
			return nil, errors.New("private key lacks base exponents")
		}
	}

	table := common.NewFixedBase(pubk.S, pubk.N)
	randomizers := make([]*big.Int, len(xs))
	commitments := make([]*big.Int, len(xs))
	var err error
	for i := range xs {
		if randomizers[i], err = common.RandomBigInt(rnd, pubk.Params.LxCommit); err != nil {
			return nil, err
		}
		if commitments[i], err = table.Exp(randomizers[i]); err != nil {
			return nil, err
		}
	}

	c := keyProofChallenge(pubk, commitments)
	responses := make([]*big.Int, len(xs))
	for i, x := range xs {
		responses[i] = new(big.Int).Sub(randomizers[i], new(big.Int).Mul(c, x))
	}
	return &KeyCorrectnessProof{C: c, Responses: responses}, nil
}

// Verify checks the proof against the public key.
func (p *KeyCorrectnessProof) Verify(pubk *PublicKey) bool {
	bases := pubk.provenBases()
	if p == nil || p.C == nil || len(p.Responses) != len(bases) {
		return false
	}
	commitments := make([]*big.Int, len(bases))
	for i, base := range bases {
		if !common.InRange(p.Responses[i], pubk.Params.LxCommit+1) {
			return false
		}
		// base^c * S^response == S^randomizer
		t, err := common.MultiExp([]*big.Int{base, pubk.S}, []*big.Int{p.C, p.Responses[i]}, pubk.N)
		if err != nil {
			return false
		}
		commitments[i] = t
	}
	return keyProofChallenge(pubk, commitments).Cmp(p.C) == 0
}
