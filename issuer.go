package anoncreds

import (
	"io"
	"sync"

	"github.com/go-errors/errors"
	"github.com/privacybydesign/anoncreds/big"
	"github.com/privacybydesign/anoncreds/credkeys"
	"github.com/privacybydesign/anoncreds/revocation"
	"github.com/sirupsen/logrus"
)

// Issuer issues credentials of one credential definition. It keeps track of the nonces of
// its outstanding offers; each can be used for one request only.
type Issuer struct {
	Schema   *Schema
	CredDef  *CredentialDefinition
	Registry *revocation.Registry

	sk *credkeys.PrivateKey

	mu       sync.Mutex
	pending  map[string]bool
	keyProof *credkeys.KeyCorrectnessProof
}

// IssueSignature encapsulates the message sent from the issuer to the holder in the final
// step of issuance.
type IssueSignature struct {
	Signature *CLSignature
	Proof     *SignatureCorrectnessProof
	Context   *big.Int
	Values    []AttributeValue

	NonRevocation *revocation.Credential `cbor:",omitempty"`
	Accumulator   *revocation.G2         `cbor:",omitempty"` // as of the witness epoch
	RevocationKey *revocation.PublicKey  `cbor:",omitempty"` // of the issuing registry
}

// NewIssuer creates a new credential issuer. The registry is nil if credentials are not
// revocable.
func NewIssuer(schema *Schema, def *CredentialDefinition, sk *credkeys.PrivateKey, registry *revocation.Registry) (*Issuer, error) {
	if def.SchemaID != schema.ID {
		return nil, errors.WrapPrefix(ErrSchemaMismatch, "credential definition is for another schema", 0)
	}
	if len(def.PublicKey.AttrNames) != len(schema.AttrNames) {
		return nil, errors.WrapPrefix(ErrSchemaMismatch, "public key does not match schema", 0)
	}
	if sk.N.Cmp(def.PublicKey.N) != 0 {
		return nil, errors.New("private key does not match credential definition")
	}
	if registry != nil && (!def.Revocable || registry.CredDefID != def.ID) {
		return nil, errors.New("registry does not belong to credential definition")
	}
	return &Issuer{
		Schema:   schema,
		CredDef:  def,
		Registry: registry,
		sk:       sk,
		pending:  map[string]bool{},
	}, nil
}

// CreateOffer creates an offer with a fresh nonce.
func (i *Issuer) CreateOffer(rnd io.Reader) (*CredentialOffer, error) {
	nonce, err := NewNonce(rnd)
	if err != nil {
		return nil, err
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	if i.keyProof == nil {
		if i.keyProof, err = i.sk.NewKeyCorrectnessProof(rnd, i.CredDef.PublicKey); err != nil {
			return nil, err
		}
	}
	i.pending[nonce.String()] = true

	return &CredentialOffer{
		SchemaID:            i.Schema.ID,
		CredDefID:           i.CredDef.ID,
		Nonce:               nonce,
		KeyCorrectnessProof: i.keyProof,
	}, nil
}

// consumeNonce removes the nonce from the outstanding offers, reporting whether it was there.
func (i *Issuer) consumeNonce(nonce *big.Int) bool {
	if nonce == nil {
		return false
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	key := nonce.String()
	if !i.pending[key] {
		return false
	}
	delete(i.pending, key)
	return true
}

// VerifyRequest consumes the offer nonce of the request and verifies its blinding proof.
func (i *Issuer) VerifyRequest(req *CredentialRequest) error {
	if !i.consumeNonce(req.OfferNonce) {
		return ErrNonceMismatch
	}
	if req.CredDefID != i.CredDef.ID {
		return errors.WrapPrefix(ErrBlindingProofInvalid, "request is for another credential definition", 0)
	}
	if !req.Proof.Verify(i.CredDef.PublicKey, req.U, req.OfferNonce) {
		return ErrBlindingProofInvalid
	}
	return nil
}

// Sign verifies the request and signs the given raw attribute values, keyed by attribute
// name. If the issuer has a registry, a revocation index is allocated for the credential.
func (i *Issuer) Sign(rnd io.Reader, req *CredentialRequest, values map[string]string) (*IssueSignature, error) {
	if err := i.VerifyRequest(req); err != nil {
		return nil, err
	}

	attrs, err := i.Schema.encodeValues(values)
	if err != nil {
		return nil, errors.WrapPrefix(ErrSigning, err.Error(), 0)
	}
	ms := make([]*big.Int, len(attrs))
	for k, a := range attrs {
		ms[k] = a.Encoded
	}

	m2, err := big.RandInt(rnd, revocation.GroupOrder)
	if err != nil {
		return nil, err
	}
	signature, Q, err := signCommitment(rnd, i.sk, i.CredDef.PublicKey, req.U, m2, ms)
	if err != nil {
		return nil, errors.WrapPrefix(ErrSigning, err.Error(), 0)
	}
	proof, err := proveSignature(rnd, i.sk, i.CredDef.PublicKey, signature, Q, req.Nonce)
	if err != nil {
		return nil, errors.WrapPrefix(ErrSigning, err.Error(), 0)
	}

	msg := &IssueSignature{Signature: signature, Proof: proof, Context: m2, Values: attrs}
	if i.Registry != nil {
		if msg.NonRevocation, err = i.Registry.Issue(rnd, m2); err != nil {
			return nil, err
		}
		msg.RevocationKey = i.Registry.PublicKey
		if msg.Accumulator, err = i.Registry.Snapshot().AccumulatorAt(msg.NonRevocation.Witness.Epoch); err != nil {
			return nil, err
		}
		Logger.WithFields(logrus.Fields{"credDef": i.CredDef.ID, "index": msg.NonRevocation.Index}).Debug("issued revocable credential")
	} else {
		Logger.WithField("credDef", i.CredDef.ID).Debug("issued credential")
	}
	return msg, nil
}

// Revoke revokes the credential with the given revocation index.
func (i *Issuer) Revoke(index uint32) error {
	if i.Registry == nil {
		return errors.New("credential definition does not support revocation")
	}
	return i.Registry.Revoke(index)
}
