package anoncreds

import (
	"github.com/go-errors/errors"
	"github.com/privacybydesign/anoncreds/big"
	"github.com/privacybydesign/anoncreds/revocation"
)

// AttributeValue is a raw attribute value and its encoding.
type AttributeValue struct {
	Name    string
	Raw     string
	Encoded *big.Int
}

// Credential represents a holder's credential: the signature over its link secret, the
// credential context and the attributes, and optionally a non-revocation credential.
type Credential struct {
	SchemaID      string
	CredDefID     string
	Values        []AttributeValue // in schema order
	Context       *big.Int
	Signature     *CLSignature
	NonRevocation *revocation.Credential `cbor:",omitempty"`
}

// encodeValues orders and encodes raw values keyed by attribute name.
func (s *Schema) encodeValues(values map[string]string) ([]AttributeValue, error) {
	if len(values) != len(s.AttrNames) {
		return nil, errors.Errorf("got %d attributes, schema has %d", len(values), len(s.AttrNames))
	}
	attrs := make([]AttributeValue, len(s.AttrNames))
	for name, raw := range values {
		k := s.AttrIndex(name)
		if k < 0 {
			return nil, errors.Errorf("unknown attribute %s", name)
		}
		if attrs[k].Encoded != nil {
			return nil, errors.Errorf("duplicate attribute %s", name)
		}
		attrs[k] = AttributeValue{Name: s.AttrNames[k], Raw: raw, Encoded: EncodeAttribute(raw)}
	}
	return attrs, nil
}

// Complete verifies the issuer's message and constructs the credential from it, setting
// v = v' + v''.
func (m *RequestMetadata) Complete(msg *IssueSignature, values map[string]string, schema *Schema, def *CredentialDefinition, ls *LinkSecret) (*Credential, error) {
	if def.ID != m.CredDefID || def.SchemaID != schema.ID {
		return nil, errors.WrapPrefix(ErrSchemaMismatch, "issuance is for another credential definition", 0)
	}
	attrs, err := schema.encodeValues(values)
	if err != nil {
		return nil, errors.WrapPrefix(ErrAttributeCardinality, err.Error(), 0)
	}
	if len(msg.Values) != len(attrs) {
		return nil, errors.WrapPrefix(ErrAttributeCardinality, "issuer signed a different number of attributes", 0)
	}
	ms := make([]*big.Int, len(attrs))
	for k := range attrs {
		if msg.Values[k].Encoded == nil || msg.Values[k].Encoded.Cmp(attrs[k].Encoded) != 0 {
			return nil, errors.WrapPrefix(ErrSigning, "issuer signed other value for "+attrs[k].Name, 0)
		}
		ms[k] = attrs[k].Encoded
	}

	pk := def.PublicKey
	if msg.Signature == nil || !msg.Proof.Verify(pk, msg.Signature, m.nonce) {
		return nil, errors.WrapPrefix(ErrSigning, "proof of correctness on signature does not verify", 0)
	}
	signature := &CLSignature{
		A: msg.Signature.A,
		E: msg.Signature.E,
		V: new(big.Int).Add(msg.Signature.V, m.vPrime),
	}
	if msg.Context == nil || !signature.Verify(pk, ls.value, msg.Context, ms) {
		return nil, errors.WrapPrefix(ErrSigning, "signature on the attributes is not correct", 0)
	}

	cred := &Credential{
		SchemaID:  schema.ID,
		CredDefID: def.ID,
		Values:    attrs,
		Context:   msg.Context,
		Signature: signature,
	}
	if msg.NonRevocation != nil {
		if !def.Revocable || msg.Accumulator == nil || msg.RevocationKey == nil {
			return nil, errors.New("unexpected non-revocation credential")
		}
		if msg.NonRevocation.M2.Cmp(msg.Context) != 0 {
			return nil, errors.WrapPrefix(ErrSigning, "non-revocation credential has other context", 0)
		}
		if err = msg.NonRevocation.Verify(msg.RevocationKey, msg.Accumulator); err != nil {
			return nil, errors.WrapPrefix(ErrSigning, err.Error(), 0)
		}
		cred.NonRevocation = msg.NonRevocation
	}
	return cred, nil
}

// Value returns the attribute with the given name.
func (c *Credential) Value(name string) (AttributeValue, bool) {
	cv := commonView(name)
	for _, v := range c.Values {
		if commonView(v.Name) == cv {
			return v, true
		}
	}
	return AttributeValue{}, false
}

// RevocationIndex returns the index of the credential in its revocation registry.
func (c *Credential) RevocationIndex() (uint32, bool) {
	if c.NonRevocation == nil {
		return 0, false
	}
	return c.NonRevocation.Index, true
}

func (c *Credential) messages() []*big.Int {
	ms := make([]*big.Int, len(c.Values))
	for k, v := range c.Values {
		ms[k] = v.Encoded
	}
	return ms
}
