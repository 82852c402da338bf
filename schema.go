package anoncreds

import (
	"io"

	"github.com/go-errors/errors"
	"github.com/privacybydesign/anoncreds/big"
	"github.com/privacybydesign/anoncreds/cbor"
	"github.com/privacybydesign/anoncreds/credkeys"
	"github.com/privacybydesign/anoncreds/internal/common"
	"github.com/privacybydesign/anoncreds/revocation"
	"github.com/sirupsen/logrus"
)

type (
	// Schema is the ordered list of attribute names of a kind of credential.
	Schema struct {
		ID        string
		Name      string
		Version   string
		AttrNames []string
	}

	// CredentialDefinition is the public part of an issuer's keys for one schema. Revocation
	// keys are not part of it: each registry of a revocable definition has its own.
	CredentialDefinition struct {
		ID        string
		SchemaID  string
		Tag       string
		PublicKey *credkeys.PublicKey
		Revocable bool `cbor:",omitempty"`
	}

	// CredentialDefinitionPrivateKey is the private part of a credential definition.
	CredentialDefinitionPrivateKey struct {
		PrivateKey *credkeys.PrivateKey
	}
)

// NewSchema creates a schema with an identifier derived from its contents. Attribute names
// must be unique ignoring case and whitespace.
func NewSchema(name, version string, attrNames []string) (*Schema, error) {
	if len(attrNames) == 0 {
		return nil, errors.WrapPrefix(ErrSchemaMismatch, "schema has no attributes", 0)
	}
	seen := map[string]bool{}
	for _, n := range attrNames {
		cv := commonView(n)
		if cv == "" {
			return nil, errors.WrapPrefix(ErrSchemaMismatch, "empty attribute name", 0)
		}
		if seen[cv] {
			return nil, errors.WrapPrefix(ErrSchemaMismatch, "duplicate attribute "+n, 0)
		}
		seen[cv] = true
	}

	s := &Schema{Name: name, Version: version, AttrNames: append([]string(nil), attrNames...)}
	id, err := contentID(s)
	if err != nil {
		return nil, err
	}
	s.ID = id
	return s, nil
}

// AttrIndex returns the index of the named attribute, or -1.
func (s *Schema) AttrIndex(name string) int {
	cv := commonView(name)
	for i, n := range s.AttrNames {
		if commonView(n) == cv {
			return i
		}
	}
	return -1
}

// contentID derives an identifier as the base58 multihash of the CBOR encoding of v.
func contentID(v interface{}) (string, error) {
	bts, err := cbor.Marshal(v)
	if err != nil {
		return "", err
	}
	return common.MultihashString(bts)
}

// NewCredentialDefinition generates issuer keys for the schema. Revocable definitions get
// their revocation keys per registry, from NewRegistry.
func NewCredentialDefinition(rnd io.Reader, cfg *Config, schema *Schema, tag string, revocable bool) (*CredentialDefinition, *CredentialDefinitionPrivateKey, error) {
	params, err := cfg.SystemParameters()
	if err != nil {
		return nil, nil, err
	}
	pk, sk, err := credkeys.GenerateKeyPair(rnd, params, schema.AttrNames)
	if err != nil {
		return nil, nil, err
	}
	return newCredentialDefinition(cfg, schema, tag, revocable, pk, sk)
}

// NewCredentialDefinitionFromPrimes is like NewCredentialDefinition, but uses the given safe
// primes for the issuer key.
func NewCredentialDefinitionFromPrimes(rnd io.Reader, cfg *Config, schema *Schema, tag string, revocable bool, p, q *big.Int) (*CredentialDefinition, *CredentialDefinitionPrivateKey, error) {
	params, err := cfg.SystemParameters()
	if err != nil {
		return nil, nil, err
	}
	pk, sk, err := credkeys.NewKeyPairFromPrimes(rnd, params, p, q, schema.AttrNames)
	if err != nil {
		return nil, nil, err
	}
	return newCredentialDefinition(cfg, schema, tag, revocable, pk, sk)
}

func newCredentialDefinition(cfg *Config, schema *Schema, tag string, revocable bool, pk *credkeys.PublicKey, sk *credkeys.PrivateKey) (*CredentialDefinition, *CredentialDefinitionPrivateKey, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	def := &CredentialDefinition{SchemaID: schema.ID, Tag: tag, PublicKey: pk, Revocable: revocable}
	priv := &CredentialDefinitionPrivateKey{PrivateKey: sk}

	id, err := contentID(struct {
		SchemaID, Tag string
		N, S, Z       *big.Int
		Revocable     bool
	}{schema.ID, tag, pk.N, pk.S, pk.Z, revocable})
	if err != nil {
		return nil, nil, err
	}
	def.ID = id

	Logger.WithField("credDef", id).Debug("created credential definition")
	return def, priv, nil
}

// NewRegistry creates a revocation registry for a revocable credential definition, with a
// fresh revocation key pair and tails of the configured capacity.
func (def *CredentialDefinition) NewRegistry(rnd io.Reader, cfg *Config) (*revocation.Registry, error) {
	if !def.Revocable {
		return nil, errors.New("credential definition does not support revocation")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	pk, sk, tails, err := revocation.GenerateKeyPair(rnd, cfg.AccumulatorCapacity)
	if err != nil {
		return nil, errors.WrapPrefix(ErrKeyGen, err.Error(), 0)
	}
	reg, err := revocation.NewRegistry(rnd, def.ID, pk, sk, tails)
	if err != nil {
		return nil, err
	}
	Logger.WithFields(logrus.Fields{"credDef": def.ID, "registry": reg.ID}).Debug("created revocation registry")
	return reg, nil
}
