package anoncreds

import (
	"io"

	"github.com/go-errors/errors"
	"github.com/privacybydesign/anoncreds/big"
	"github.com/privacybydesign/anoncreds/credkeys"
	"github.com/privacybydesign/anoncreds/internal/common"
)

// LinkSecretBits is the size of link secrets.
const LinkSecretBits = 256

// NonceBits is the size of nonces.
const NonceBits = 80

type (
	// LinkSecret is the holder's secret bound into each of its credentials. It is never
	// serialized.
	LinkSecret struct {
		value *big.Int
	}

	// CredentialOffer is sent by an issuer to start issuance.
	CredentialOffer struct {
		SchemaID            string
		CredDefID           string
		Nonce               *big.Int
		KeyCorrectnessProof *credkeys.KeyCorrectnessProof
	}

	// BlindingProof proves knowledge of the link secret and blinding factor hidden in U.
	BlindingProof struct {
		C                  *big.Int
		VPrimeResponse     *big.Int
		LinkSecretResponse *big.Int
	}

	// CredentialRequest is the holder's answer to an offer: a commitment U to its link
	// secret, a proof bound to the offer nonce, and a nonce for the issuer's proof.
	CredentialRequest struct {
		CredDefID  string
		U          *big.Int
		Proof      *BlindingProof
		OfferNonce *big.Int
		Nonce      *big.Int
	}

	// RequestMetadata is kept by the holder between request and issuance.
	RequestMetadata struct {
		CredDefID string
		vPrime    *big.Int
		nonce     *big.Int
	}
)

// NewLinkSecret generates a new link secret.
func NewLinkSecret(rnd io.Reader) (*LinkSecret, error) {
	v, err := common.RandomBigInt(rnd, LinkSecretBits)
	if err != nil {
		return nil, err
	}
	return &LinkSecret{value: v}, nil
}

// NewNonce generates a nonce for offers and proof requests.
func NewNonce(rnd io.Reader) (*big.Int, error) {
	return common.RandomBigInt(rnd, NonceBits)
}

func blindingCommitment(pk *credkeys.PublicKey, vPrime, ls *big.Int) (*big.Int, error) {
	// U = S^{v'} * RLink^{ls}
	return common.MultiExp([]*big.Int{pk.S, pk.RLink}, []*big.Int{vPrime, ls}, pk.N)
}

// NewCredentialRequest checks the offer's key correctness proof and blinds the link secret
// against the credential definition.
func NewCredentialRequest(rnd io.Reader, def *CredentialDefinition, offer *CredentialOffer, ls *LinkSecret) (*CredentialRequest, *RequestMetadata, error) {
	if offer.CredDefID != def.ID {
		return nil, nil, errors.WrapPrefix(ErrSchemaMismatch, "offer is for another credential definition", 0)
	}
	pk := def.PublicKey
	if offer.KeyCorrectnessProof == nil || !offer.KeyCorrectnessProof.Verify(pk) {
		return nil, nil, errors.WrapPrefix(ErrInvalidProof, "key correctness proof does not verify", 0)
	}

	vPrime, err := common.RandomBigInt(rnd, pk.Params.LvPrime)
	if err != nil {
		return nil, nil, err
	}
	U, err := blindingCommitment(pk, vPrime, ls.value)
	if err != nil {
		return nil, nil, err
	}

	vPrimeRandomizer, err := common.RandomBigInt(rnd, pk.Params.LvPrimeCommit)
	if err != nil {
		return nil, nil, err
	}
	lsRandomizer, err := common.RandomBigInt(rnd, pk.Params.LmCommit)
	if err != nil {
		return nil, nil, err
	}
	UCommit, err := blindingCommitment(pk, vPrimeRandomizer, lsRandomizer)
	if err != nil {
		return nil, nil, err
	}

	c := common.HashCommit([]*big.Int{U, UCommit, offer.Nonce})
	proof := &BlindingProof{
		C:                  c,
		VPrimeResponse:     new(big.Int).Sub(vPrimeRandomizer, new(big.Int).Mul(c, vPrime)),
		LinkSecretResponse: new(big.Int).Sub(lsRandomizer, new(big.Int).Mul(c, ls.value)),
	}

	nonce, err := NewNonce(rnd)
	if err != nil {
		return nil, nil, err
	}
	return &CredentialRequest{
			CredDefID:  def.ID,
			U:          U,
			Proof:      proof,
			OfferNonce: offer.Nonce,
			Nonce:      nonce,
		}, &RequestMetadata{
			CredDefID: def.ID,
			vPrime:    vPrime,
			nonce:     nonce,
		}, nil
}

// Verify checks the blinding proof of the request against the given offer nonce.
func (p *BlindingProof) Verify(pk *credkeys.PublicKey, U, nonce *big.Int) bool {
	if p == nil || p.C == nil || U == nil || U.Sign() <= 0 || U.Cmp(pk.N) >= 0 {
		return false
	}
	if !common.InRange(p.VPrimeResponse, pk.Params.LvPrimeCommit+1) ||
		!common.InRange(p.LinkSecretResponse, pk.Params.LmCommit+1) {
		return false
	}

	// U~ = U^c * S^{v'^} * RLink^{ls^}
	UCommit, err := common.MultiExp(
		[]*big.Int{U, pk.S, pk.RLink},
		[]*big.Int{p.C, p.VPrimeResponse, p.LinkSecretResponse},
		pk.N,
	)
	if err != nil {
		return false
	}
	return common.HashCommit([]*big.Int{U, UCommit, nonce}).Cmp(p.C) == 0
}
