/*
Package revocation implements a pairing-based dynamic accumulator with which an issuer can revoke
credentials, and the zero-knowledge proof with which a holder proves that its credential is not
revoked, following "An Accumulator Based on Bilinear Maps and Efficient Revocation for Anonymous
Credentials", Jan Camenisch, Markulf Kohlweiss and Claudio Soriente, PKC 2009,
https://eprint.iacr.org/2008/539.pdf. All group operations take place on the FP256BN curve.

In short, revocation works as follows.

- When generating its revocation key pair for a registry of capacity L, the issuer picks a secret
gamma and publishes the "tails": the G2 elements t_k = g2^(gamma^k) for k in [1, 2L], except
k = L+1. It also publishes z = e(g, g2)^(gamma^(L+1)).

- The accumulator of a set V of indices is acc = prod_{j in V} t_(L+1-j). Each issued credential
receives an index i, a "non-revocation credential" (a signature sigma over g_i = g^(gamma^i) and
the hidden credential context m2 of the primary credential) and a witness
omega = prod_{j in V, j != i} t_(L+1-j+i), such that e(g_i, acc) = z * e(g, omega) holds exactly
when i is in V.

- Issuing adds the index to the accumulator and revoking removes it; both change the accumulator,
and thus start a new epoch. Every change is appended to a delta log, which holders replay to bring
their witnesses to the epoch against which they want to prove non-revocation.

- During a disclosure the holder proves in zero knowledge that it knows sigma, g_i and omega such
that both relations above hold against the accumulator of the requested epoch, and that the m2
signed in sigma equals the m2 in its primary credential.

The registry signs its accumulator states with ECDSA, so that they can be distributed through
untrusted channels.
*/
package revocation

import (
	"bytes"
	"crypto/ecdsa"
	"io"

	"github.com/go-errors/errors"
	"github.com/hyperledger/fabric-amcl/amcl/FP256BN"
	"github.com/privacybydesign/anoncreds/big"
	"github.com/privacybydesign/anoncreds/internal/common"
	"github.com/privacybydesign/anoncreds/signed"
)

type (
	// PublicKey is the public key of a revocation registry, against which non-revocation
	// credentials and proofs are verified.
	PublicKey struct {
		H, H0, H1 *G1
		Y         *G2 // g2^x
		Z         *GT // e(g, g2)^(gamma^(L+1))
		Capacity  uint32
		ECDSA     []byte // PKIX-encoded key with which accumulator states are signed
	}

	// PrivateKey is the private key of a revocation registry, required for issuing
	// non-revocation credentials.
	PrivateKey struct {
		Gamma    *big.Int
		X        *big.Int
		Capacity uint32
		ECDSA    *ecdsa.PrivateKey
	}

	// Tails contains the points t_k = g2^(gamma^k), k in [1, 2L], with the point at
	// infinity in place of t_(L+1).
	Tails struct {
		Capacity uint32
		Points   []*G2
	}
)

// GenerateKeyPair generates a revocation key pair and the tails for a registry of the
// given capacity.
func GenerateKeyPair(rnd io.Reader, capacity uint32) (*PublicKey, *PrivateKey, *Tails, error) {
	if capacity == 0 {
		return nil, nil, nil, errors.New("registry capacity must be positive")
	}

	sk := &PrivateKey{Capacity: capacity}
	var err error
	if sk.Gamma, err = randomScalar(rnd); err != nil {
		return nil, nil, nil, err
	}
	if sk.X, err = randomScalar(rnd); err != nil {
		return nil, nil, nil, err
	}
	if sk.ECDSA, err = signed.GenerateKey(rnd); err != nil {
		return nil, nil, nil, err
	}

	pk := &PublicKey{Capacity: capacity}
	for _, h := range []**G1{&pk.H, &pk.H0, &pk.H1} {
		x, err := randomScalar(rnd)
		if err != nil {
			return nil, nil, nil, err
		}
		*h = &G1{g1Mul(GenG1, x)}
	}
	pk.Y = &G2{g2Mul(GenG2, sk.X)}
	if pk.ECDSA, err = signed.MarshalPublicKey(&sk.ECDSA.PublicKey); err != nil {
		return nil, nil, nil, err
	}

	gammaL1 := new(big.Int).Exp(sk.Gamma, big.NewInt(int64(capacity)+1), GroupOrder)
	pk.Z = &GT{gtPow(pair(GenG1, GenG2), gammaL1)}

	tails := &Tails{Capacity: capacity, Points: make([]*G2, 2*capacity)}
	power := big.NewInt(1)
	for k := uint32(1); k <= 2*capacity; k++ {
		power.Mul(power, sk.Gamma).Mod(power, GroupOrder)
		if k == capacity+1 {
			tails.Points[k-1] = &G2{FP256BN.NewECP2()}
			continue
		}
		tails.Points[k-1] = &G2{g2Mul(GenG2, power)}
	}

	Logger.WithField("capacity", capacity).Debug("generated revocation key pair")
	return pk, sk, tails, nil
}

// ECDSAKey parses the key with which the registry signs its accumulator states.
func (pk *PublicKey) ECDSAKey() (*ecdsa.PublicKey, error) {
	return signed.UnmarshalPublicKey(pk.ECDSA)
}

// GI returns g_i = g^(gamma^i), the group element representing index i.
func (sk *PrivateKey) GI(index uint32) *FP256BN.ECP {
	e := new(big.Int).Exp(sk.Gamma, big.NewInt(int64(index)), GroupOrder)
	return g1Mul(GenG1, e)
}

// At returns t_k.
func (t *Tails) At(k uint32) (*FP256BN.ECP2, error) {
	if k == 0 || k > uint32(len(t.Points)) || t.Points[k-1] == nil || t.Points[k-1].ECP2 == nil {
		return nil, errors.Errorf("tails have no element %d", k)
	}
	return t.Points[k-1].ECP2, nil
}

// Hash returns the base58-encoded multihash of the tails, with which holders can check
// that the tails they obtained belong to a registry.
func (t *Tails) Hash() (string, error) {
	var buf bytes.Buffer
	for _, p := range t.Points {
		b, err := p.MarshalBinary()
		if err != nil {
			return "", err
		}
		buf.Write(b)
	}
	return common.MultihashString(buf.Bytes())
}

// Validate checks that the tails have the shape of the tails of the registry of pk.
func (t *Tails) Validate(pk *PublicKey) error {
	L := t.Capacity
	if L != pk.Capacity || uint32(len(t.Points)) != 2*L {
		return errors.New("tails do not match registry capacity")
	}
	for k, p := range t.Points {
		if p == nil || p.ECP2 == nil {
			return errors.Errorf("tails element %d missing", k+1)
		}
		if p.Is_infinity() != (uint32(k+1) == L+1) {
			return errors.Errorf("tails element %d malformed", k+1)
		}
	}
	return nil
}
