package anoncreds

import (
	"sort"

	"github.com/go-errors/errors"
	"github.com/privacybydesign/anoncreds/big"
)

// Predicate types.
const (
	GE = ">="
	GT = ">"
	LE = "<="
	LT = "<"
)

type (
	// Interval is a range of registry epochs. Non-revocation is proven as of epoch To.
	Interval struct {
		From uint64
		To   uint64
	}

	// AttributeInfo requests a single attribute (Name) or a group of attributes from one
	// credential (Names). A non-empty CredDefID restricts the credential to be used.
	AttributeInfo struct {
		Name       string    `cbor:",omitempty"`
		Names      []string  `cbor:",omitempty"`
		CredDefID  string    `cbor:",omitempty"`
		NonRevoked *Interval `cbor:",omitempty"`
	}

	// PredicateInfo requests a proof that an attribute compares to PValue as PType says.
	PredicateInfo struct {
		Name       string
		PType      string
		PValue     int32
		CredDefID  string    `cbor:",omitempty"`
		NonRevoked *Interval `cbor:",omitempty"`
	}

	// ProofRequest is sent by a verifier. Attributes and predicates are keyed by referent.
	ProofRequest struct {
		Name                string
		Version             string
		Nonce               *big.Int
		RequestedAttributes map[string]AttributeInfo
		RequestedPredicates map[string]PredicateInfo
		NonRevoked          *Interval `cbor:",omitempty"`
	}
)

// interval returns the revocation interval applying to a referent.
func (r *ProofRequest) interval(local *Interval) *Interval {
	if local != nil {
		return local
	}
	return r.NonRevoked
}

func (r *ProofRequest) validate() error {
	if r.Nonce == nil {
		return errors.New("proof request has no nonce")
	}
	intervals := []*Interval{r.NonRevoked}
	for ref, info := range r.RequestedAttributes {
		if (info.Name == "") == (len(info.Names) == 0) {
			return errors.Errorf("attribute %s must have either a name or names", ref)
		}
		intervals = append(intervals, info.NonRevoked)
	}
	for ref, info := range r.RequestedPredicates {
		if _, _, err := predicateStatement(info.PType, info.PValue); err != nil {
			return errors.WrapPrefix(err, "predicate "+ref, 0)
		}
		intervals = append(intervals, info.NonRevoked)
	}
	for _, i := range intervals {
		if i != nil && i.From > i.To {
			return errors.New("empty revocation interval")
		}
	}
	return nil
}

// predicateStatement normalizes a predicate to a*m - k >= 0.
func predicateStatement(ptype string, pvalue int32) (int, *big.Int, error) {
	b := big.NewInt(int64(pvalue))
	switch ptype {
	case GE:
		return 1, b, nil
	case GT:
		return 1, b.Add(b, big.NewInt(1)), nil
	case LE:
		return -1, b.Neg(b), nil
	case LT:
		return -1, b.Sub(big.NewInt(1), b), nil
	default:
		return 0, nil, errors.Errorf("unsupported predicate type %q", ptype)
	}
}

// satisfies reports whether the raw value is an integer satisfying the predicate.
func (p *PredicateInfo) satisfies(raw string) bool {
	v, ok := parseInt32(raw)
	if !ok {
		return false
	}
	a, k, err := predicateStatement(p.PType, p.PValue)
	if err != nil {
		return false
	}
	d := big.NewInt(int64(a) * int64(v))
	return d.Sub(d, k).Sign() >= 0
}

func sortedKeys(m interface{}) []string {
	var keys []string
	switch m := m.(type) {
	case map[string]AttributeInfo:
		for k := range m {
			keys = append(keys, k)
		}
	case map[string]PredicateInfo:
		for k := range m {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
