package anoncreds

import (
	"github.com/privacybydesign/anoncreds/big"
	"github.com/privacybydesign/anoncreds/cbor"
	"github.com/privacybydesign/anoncreds/rangeproof"
	"github.com/privacybydesign/anoncreds/revocation"
)

type (
	// Presentation proves possession of one or more credentials. All sub-proofs share the
	// challenge C.
	Presentation struct {
		Proofs         []*SubProof
		C              *big.Int
		RequestedProof RequestedProof
		Identifiers    []Identifier // one per sub-proof
	}

	// SubProof is the proof about one credential.
	SubProof struct {
		Primary       *PrimaryProof
		Predicates    []*PredicateProof `cbor:",omitempty"`
		NonRevocation *revocation.Proof `cbor:",omitempty"`
	}

	// PredicateProof proves a predicate over an attribute of the credential. If the
	// attribute is revealed in the same sub-proof, Proof is nil and the predicate is checked
	// against the revealed value.
	PredicateProof struct {
		Attr       string
		PType      string
		PValue     int32
		PieceWidth uint              `cbor:",omitempty"`
		Proof      *rangeproof.Proof `cbor:",omitempty"`
	}

	// Identifier names the public objects a sub-proof is verified against. Epoch is the
	// registry epoch of the non-revocation proof, if any.
	Identifier struct {
		SchemaID   string
		CredDefID  string
		RegistryID string `cbor:",omitempty"`
		Epoch      uint64 `cbor:",omitempty"`
	}

	RevealedValue struct {
		Raw     string
		Encoded *big.Int
	}

	RevealedAttr struct {
		SubProofIndex int
		RevealedValue
	}

	RevealedAttrGroup struct {
		SubProofIndex int
		Values        map[string]RevealedValue
	}

	// RequestedProof maps the referents of the proof request to the sub-proofs answering them.
	RequestedProof struct {
		RevealedAttrs      map[string]RevealedAttr      `cbor:",omitempty"`
		RevealedAttrGroups map[string]RevealedAttrGroup `cbor:",omitempty"`
		UnrevealedAttrs    map[string]int               `cbor:",omitempty"`
		SelfAttestedAttrs  map[string]string            `cbor:",omitempty"`
		Predicates         map[string]int               `cbor:",omitempty"`
	}
)

// MarshalBinary encodes the presentation as CBOR.
func (p *Presentation) MarshalBinary() ([]byte, error) {
	type presentation Presentation
	return cbor.Marshal((*presentation)(p))
}

// UnmarshalBinary decodes a presentation encoded by MarshalBinary.
func (p *Presentation) UnmarshalBinary(data []byte) error {
	type presentation Presentation
	return cbor.Unmarshal(data, (*presentation)(p))
}

// Revealed returns the revealed raw value for an attribute referent.
func (p *Presentation) Revealed(referent string) (string, bool) {
	a, ok := p.RequestedProof.RevealedAttrs[referent]
	return a.Raw, ok
}
