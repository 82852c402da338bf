package revocation

import (
	"io"

	"github.com/go-errors/errors"
	"github.com/privacybydesign/anoncreds/big"
)

// Credential is a non-revocation credential: a signature Sigma, with exponent Kappa, over the
// index element GI and the context M2 shared with the primary credential, together with the
// membership witness of the index.
type Credential struct {
	RegistryID string
	Index      uint32
	GI         *G1
	Sigma      *G1
	Kappa      *big.Int
	M2         *big.Int
	Witness    *Witness
}

// IssueCredential computes sigma = (h0 * h1^m2 * g_i)^(1/(x+kappa)) for a random kappa.
func (sk *PrivateKey) IssueCredential(rnd io.Reader, pk *PublicKey, index uint32, m2 *big.Int) (*Credential, error) {
	if index == 0 || index > sk.Capacity {
		return nil, errors.Errorf("index %d out of range", index)
	}
	gi := sk.GI(index)

	var kappa, inv *big.Int
	for inv == nil {
		var err error
		if kappa, err = randomScalar(rnd); err != nil {
			return nil, err
		}
		inv = new(big.Int).ModInverse(modQ(new(big.Int).Add(sk.X, kappa)), GroupOrder)
	}

	sigma := g1Mul(g1Sum(pk.H0.ECP, g1Mul(pk.H1.ECP, m2), gi), inv)
	return &Credential{
		Index: index,
		GI:    &G1{gi},
		Sigma: &G1{sigma},
		Kappa: kappa,
		M2:    modQ(m2),
	}, nil
}

// Verify checks the signature of the credential, and its witness against acc, which must be
// the accumulator of the witness epoch.
func (c *Credential) Verify(pk *PublicKey, acc *G2) error {
	if c.GI == nil || c.Sigma == nil || c.Kappa == nil || c.M2 == nil {
		return errors.New("incomplete non-revocation credential")
	}
	// e(sigma, y * g2^kappa) = e(h0 * h1^m2 * g_i, g2)
	yk := g2Copy(pk.Y.ECP2)
	yk.Add(g2Mul(GenG2, c.Kappa))
	lhs := pair(c.Sigma.ECP, yk)
	rhs := pair(g1Sum(pk.H0.ECP, g1Mul(pk.H1.ECP, c.M2), c.GI.ECP), GenG2)
	if !lhs.Equals(rhs) {
		return errors.New("invalid non-revocation signature")
	}
	if c.Witness == nil || c.Witness.Omega == nil {
		return errors.WrapPrefix(ErrWitnessUnavailable, "no witness", 0)
	}
	if !verifyWitness(pk, c.GI.ECP, c.Witness.Omega.ECP2, acc.ECP2) {
		return errors.New("witness does not match accumulator")
	}
	return nil
}

// Updated returns a copy of the credential carrying the given witness.
func (c *Credential) Updated(w *Witness) *Credential {
	cpy := *c
	cpy.Witness = w
	return &cpy
}
