package anoncreds

import (
	"github.com/go-errors/errors"
	"github.com/privacybydesign/anoncreds/credkeys"
	"github.com/privacybydesign/anoncreds/revocation"
)

// Errors are wrapped with errors.WrapPrefix; test for them with errors.Is.
var (
	ErrKeyGen = credkeys.ErrKeyGen

	// Input errors
	ErrSchemaMismatch       = errors.New("schema mismatch")
	ErrAttributeCardinality = errors.New("attribute cardinality does not match schema")
	ErrNonceMismatch        = errors.New("unknown or already used nonce")

	// Cryptographic rejections
	ErrBlindingProofInvalid = errors.New("blinding proof of link secret does not verify")
	ErrInvalidProof         = errors.New("invalid proof")
	ErrSigning              = errors.New("signing failed")
	ErrAlreadyRevoked       = revocation.ErrAlreadyRevoked

	// Resource state errors
	ErrRegistryFull         = revocation.ErrRegistryFull
	ErrWitnessUnavailable   = revocation.ErrWitnessUnavailable
	ErrNoMatchingCredential = errors.New("no credential satisfies the request")
)
