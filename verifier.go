package anoncreds

import (
	"github.com/go-errors/errors"
	"github.com/privacybydesign/anoncreds/big"
	"github.com/privacybydesign/anoncreds/internal/common"
	"github.com/privacybydesign/anoncreds/rangeproof"
	"github.com/privacybydesign/anoncreds/revocation"
)

// Verify checks the presentation against the proof request. Schemas and credential definitions
// are keyed by ID, registry snapshots by registry ID. It returns true if the presentation is
// valid; otherwise false together with the reason, an error for which errors.Is reports
// ErrInvalidProof, ErrSchemaMismatch or ErrWitnessUnavailable. Verify does not modify any
// of its arguments.
func Verify(pres *Presentation, req *ProofRequest, schemas map[string]*Schema, credDefs map[string]*CredentialDefinition, registries map[string]*revocation.Snapshot) (bool, error) {
	if err := verify(pres, req, schemas, credDefs, registries); err != nil {
		Logger.Debug("presentation rejected: ", err)
		return false, err
	}
	return true, nil
}

func invalid(msg string) error {
	return errors.WrapPrefix(ErrInvalidProof, msg, 0)
}

func verify(pres *Presentation, req *ProofRequest, schemas map[string]*Schema, credDefs map[string]*CredentialDefinition, registries map[string]*revocation.Snapshot) error {
	if req == nil {
		return invalid("no proof request")
	}
	if err := req.validate(); err != nil {
		return invalid(err.Error())
	}
	if pres == nil || pres.C == nil || len(pres.Proofs) != len(pres.Identifiers) {
		return invalid("malformed presentation")
	}
	for _, p := range pres.Proofs {
		if p == nil || p.Primary == nil {
			return invalid("malformed presentation")
		}
	}

	defs := make([]*CredentialDefinition, len(pres.Proofs))
	sch := make([]*Schema, len(pres.Proofs))
	for k, id := range pres.Identifiers {
		def, schema := credDefs[id.CredDefID], schemas[id.SchemaID]
		if def == nil || schema == nil || def.SchemaID != schema.ID {
			return errors.WrapPrefix(ErrSchemaMismatch, "unknown schema or credential definition in sub-proof", 0)
		}
		if len(def.PublicKey.AttrNames) != len(schema.AttrNames) {
			return errors.WrapPrefix(ErrSchemaMismatch, "credential definition does not match schema", 0)
		}
		defs[k], sch[k] = def, schema
	}

	intervals, err := verifyRequestedProof(pres, req, sch, defs)
	if err != nil {
		return err
	}

	// All sub-proofs must be about credentials of the same link secret.
	for _, p := range pres.Proofs {
		if p.Primary.LinkSecretResponse == nil || p.Primary.LinkSecretResponse.Cmp(pres.Proofs[0].Primary.LinkSecretResponse) != 0 {
			return invalid("sub-proofs have different link secrets")
		}
	}

	var contributions []*big.Int
	for k, p := range pres.Proofs {
		list, err := subProofContributions(p, defs[k], pres.Identifiers[k], intervals[k], registries, pres.C)
		if err != nil {
			return err
		}
		contributions = append(contributions, list...)
	}
	for _, p := range pres.Proofs {
		contributions = append(contributions, p.Primary.revealedValues()...)
	}

	if common.HashCommit(append(contributions, req.Nonce)).Cmp(pres.C) != 0 {
		return invalid("challenge does not match")
	}
	return nil
}

// verifyRequestedProof checks that every referent of the request is answered consistently by
// the sub-proofs. It returns per sub-proof the intersection of the revocation intervals of
// the referents it answers, nil if none asked for one.
func verifyRequestedProof(pres *Presentation, req *ProofRequest, schemas []*Schema, defs []*CredentialDefinition) ([]*Interval, error) {
	rp := &pres.RequestedProof
	intervals := make([]*Interval, len(pres.Proofs))
	subProof := func(k int, credDefID string, interval *Interval) (*SubProof, error) {
		if k < 0 || k >= len(pres.Proofs) {
			return nil, invalid("reference to unknown sub-proof")
		}
		if credDefID != "" && defs[k].ID != credDefID {
			return nil, invalid("sub-proof does not satisfy restriction")
		}
		if interval != nil {
			if pres.Proofs[k].NonRevocation == nil {
				return nil, invalid("missing non-revocation proof")
			}
			i, err := narrow(intervals[k], interval)
			if err != nil {
				return nil, invalid(err.Error())
			}
			intervals[k] = i
		}
		return pres.Proofs[k], nil
	}
	revealed := func(k int, name string, v RevealedValue) error {
		idx := schemas[k].AttrIndex(name)
		if idx < 0 {
			return errors.WrapPrefix(ErrSchemaMismatch, "attribute "+name+" not in schema", 0)
		}
		enc := pres.Proofs[k].Primary.Revealed[schemas[k].AttrNames[idx]]
		if enc == nil || v.Encoded == nil || enc.Cmp(v.Encoded) != 0 {
			return invalid("attribute " + name + " is not revealed in sub-proof")
		}
		if EncodeAttribute(v.Raw).Cmp(v.Encoded) != 0 {
			return invalid("raw value of " + name + " does not match its encoding")
		}
		return nil
	}

	for ref, info := range req.RequestedAttributes {
		interval := req.interval(info.NonRevoked)
		if a, ok := rp.RevealedAttrs[ref]; ok && info.Name != "" {
			if _, err := subProof(a.SubProofIndex, info.CredDefID, interval); err != nil {
				return nil, err
			}
			if err := revealed(a.SubProofIndex, info.Name, a.RevealedValue); err != nil {
				return nil, err
			}
			continue
		}
		if g, ok := rp.RevealedAttrGroups[ref]; ok && len(info.Names) > 0 {
			if _, err := subProof(g.SubProofIndex, info.CredDefID, interval); err != nil {
				return nil, err
			}
			if len(g.Values) != len(info.Names) {
				return nil, invalid("attribute group " + ref + " incomplete")
			}
			for _, name := range info.Names {
				v, ok := g.Values[name]
				if !ok {
					return nil, invalid("attribute group " + ref + " incomplete")
				}
				if err := revealed(g.SubProofIndex, name, v); err != nil {
					return nil, err
				}
			}
			continue
		}
		if k, ok := rp.UnrevealedAttrs[ref]; ok && info.Name != "" {
			if _, err := subProof(k, info.CredDefID, interval); err != nil {
				return nil, err
			}
			if schemas[k].AttrIndex(info.Name) < 0 {
				return nil, errors.WrapPrefix(ErrSchemaMismatch, "attribute "+info.Name+" not in schema", 0)
			}
			continue
		}
		if _, ok := rp.SelfAttestedAttrs[ref]; ok && info.Name != "" && info.CredDefID == "" {
			continue
		}
		return nil, invalid("attribute " + ref + " not answered")
	}

	for ref, info := range req.RequestedPredicates {
		k, ok := rp.Predicates[ref]
		if !ok {
			return nil, invalid("predicate " + ref + " not answered")
		}
		p, err := subProof(k, info.CredDefID, req.interval(info.NonRevoked))
		if err != nil {
			return nil, err
		}
		idx := schemas[k].AttrIndex(info.Name)
		if idx < 0 {
			return nil, errors.WrapPrefix(ErrSchemaMismatch, "attribute "+info.Name+" not in schema", 0)
		}
		name := schemas[k].AttrNames[idx]
		found := false
		for _, pp := range p.Predicates {
			if pp != nil && pp.Attr == name && pp.PType == info.PType && pp.PValue == info.PValue {
				found = true
				break
			}
		}
		if !found {
			return nil, invalid("predicate " + ref + " not proven")
		}
	}
	return intervals, nil
}

// subProofContributions reconstructs the commitments of one sub-proof.
//
// The non-revocation proof must be against the accumulator at the end of the revocation
// interval, or at the latest epoch of the verifier's registry state if that comes first.
// Holders therefore need registry state at least as recent as the verifier's.
func subProofContributions(p *SubProof, def *CredentialDefinition, id Identifier, interval *Interval, registries map[string]*revocation.Snapshot, challenge *big.Int) ([]*big.Int, error) {
	pk := def.PublicKey
	contributions, err := p.Primary.challengeContributions(pk, challenge)
	if err != nil {
		return nil, err
	}

	for _, pp := range p.Predicates {
		if pp == nil {
			return nil, invalid("malformed predicate proof")
		}
		base := pk.Base(pp.Attr)
		if base == nil {
			return nil, errors.WrapPrefix(ErrSchemaMismatch, "predicate over unknown attribute "+pp.Attr, 0)
		}

		if m, ok := p.Primary.Revealed[pp.Attr]; ok {
			if pp.Proof != nil {
				return nil, invalid("unexpected range proof over revealed attribute")
			}
			a, bound, err := predicateStatement(pp.PType, pp.PValue)
			if err != nil {
				return nil, invalid(err.Error())
			}
			d := new(big.Int).Mul(big.NewInt(int64(a)), m)
			if d.Sub(d, bound).Sign() < 0 {
				return nil, invalid("revealed attribute does not satisfy predicate")
			}
			continue
		}

		mResponse := p.Primary.MResponses[pp.Attr]
		s, err := newRangeStructure(pp, pk.Params)
		if err != nil {
			return nil, invalid(err.Error())
		}
		g := rangeproof.NewQrGroup(pk.N, base, pk.S)
		if pp.Proof == nil || !s.VerifyProofStructure(g, pp.Proof) {
			return nil, invalid("malformed range proof")
		}
		list, err := s.CommitmentsFromProof(g, pp.Proof, challenge, mResponse)
		if err != nil {
			return nil, invalid(err.Error())
		}
		contributions = append(contributions, list...)
	}

	if p.NonRevocation != nil {
		if !def.Revocable {
			return nil, invalid("non-revocation proof for irrevocable credential")
		}
		if interval == nil {
			return nil, invalid("unrequested non-revocation proof")
		}
		snapshot := registries[id.RegistryID]
		if snapshot == nil {
			return nil, errors.WrapPrefix(ErrWitnessUnavailable, "unknown registry "+id.RegistryID, 0)
		}
		if snapshot.RegistryID != id.RegistryID || snapshot.CredDefID != def.ID || snapshot.PublicKey == nil {
			return nil, invalid("registry does not belong to credential definition")
		}
		epoch := interval.To
		if snapshot.Epoch < epoch {
			epoch = snapshot.Epoch
		}
		if epoch < interval.From {
			return nil, errors.WrapPrefix(ErrWitnessUnavailable, "registry state predates revocation interval", 0)
		}
		if id.Epoch != epoch {
			return nil, invalid("non-revocation proof is not against the current accumulator")
		}
		acc, err := snapshot.AccumulatorAt(epoch)
		if err != nil {
			return nil, err
		}
		list, err := p.NonRevocation.ChallengeContributions(snapshot.PublicKey, acc, challenge, p.Primary.ContextResponse)
		if err != nil {
			return nil, invalid("non-revocation proof: " + err.Error())
		}
		contributions = append(contributions, list...)
	}
	return contributions, nil
}
