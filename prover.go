package anoncreds

import (
	"io"

	"github.com/go-errors/errors"
	"github.com/privacybydesign/anoncreds/big"
	"github.com/privacybydesign/anoncreds/credkeys"
	"github.com/privacybydesign/anoncreds/internal/common"
	"github.com/privacybydesign/anoncreds/rangeproof"
	"github.com/privacybydesign/anoncreds/revocation"
	"github.com/sirupsen/logrus"
)

type (
	// RevocationState is what a holder needs to update witnesses of one registry.
	RevocationState struct {
		Snapshot *revocation.Snapshot
		Tails    *revocation.Tails
	}

	// Prover builds presentations from a holder's credentials.
	Prover struct {
		Config      *Config
		LinkSecret  *LinkSecret
		Credentials []*Credential
		Schemas     map[string]*Schema
		CredDefs    map[string]*CredentialDefinition
		Registries  map[string]*RevocationState // by registry ID
	}

	// PresentationOptions contains the holder's choices in answering a proof request.
	PresentationOptions struct {
		// SelfAttested holds values for attribute referents without restrictions that no
		// credential answers.
		SelfAttested map[string]string
		// Unrevealed lists attribute referents that are proven but not revealed.
		Unrevealed map[string]bool
	}

	// credentialUse collects what is proven about one credential.
	credentialUse struct {
		cred       *Credential
		index      int // of the sub-proof
		revealed   map[string]bool
		predicates []PredicateInfo
		interval   *Interval
	}
)

// selectCredential returns the first credential with all named attributes, answering to the
// restriction and the revocation interval, for which accept holds.
func (pv *Prover) selectCredential(names []string, credDefID string, interval *Interval, accept func(*Credential) bool) *Credential {
	for _, cred := range pv.Credentials {
		if credDefID != "" && cred.CredDefID != credDefID {
			continue
		}
		if interval != nil && cred.NonRevocation == nil {
			continue
		}
		ok := true
		for _, name := range names {
			if _, found := cred.Value(name); !found {
				ok = false
				break
			}
		}
		if ok && (accept == nil || accept(cred)) {
			return cred
		}
	}
	return nil
}

// narrow intersects two revocation intervals.
func narrow(a, b *Interval) (*Interval, error) {
	if a == nil {
		return b, nil
	}
	if b == nil {
		return a, nil
	}
	i := &Interval{From: a.From, To: a.To}
	if b.From > i.From {
		i.From = b.From
	}
	if b.To < i.To {
		i.To = b.To
	}
	if i.From > i.To {
		return nil, errors.WrapPrefix(ErrNoMatchingCredential, "revocation intervals for one credential do not overlap", 0)
	}
	return i, nil
}

// BuildPresentation answers the proof request. It fails as a whole if any referent cannot
// be answered.
func (pv *Prover) BuildPresentation(rnd io.Reader, req *ProofRequest, opts *PresentationOptions) (*Presentation, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if pv.LinkSecret == nil {
		return nil, errors.New("no link secret")
	}
	if opts == nil {
		opts = &PresentationOptions{}
	}
	cfg := pv.Config
	if cfg == nil {
		cfg = DefaultConfig()
	}

	pres := &Presentation{
		RequestedProof: RequestedProof{
			RevealedAttrs:      map[string]RevealedAttr{},
			RevealedAttrGroups: map[string]RevealedAttrGroup{},
			UnrevealedAttrs:    map[string]int{},
			SelfAttestedAttrs:  map[string]string{},
			Predicates:         map[string]int{},
		},
	}
	var uses []*credentialUse
	use := func(cred *Credential, interval *Interval) (*credentialUse, error) {
		for _, u := range uses {
			if u.cred == cred {
				var err error
				u.interval, err = narrow(u.interval, interval)
				return u, err
			}
		}
		u := &credentialUse{cred: cred, index: len(uses), revealed: map[string]bool{}, interval: interval}
		uses = append(uses, u)
		return u, nil
	}

	for _, ref := range sortedKeys(req.RequestedAttributes) {
		info := req.RequestedAttributes[ref]
		names := info.Names
		if info.Name != "" {
			names = []string{info.Name}
		}
		interval := req.interval(info.NonRevoked)
		cred := pv.selectCredential(names, info.CredDefID, interval, nil)
		if cred == nil {
			if v, ok := opts.SelfAttested[ref]; ok && info.Name != "" && info.CredDefID == "" {
				pres.RequestedProof.SelfAttestedAttrs[ref] = v
				continue
			}
			return nil, errors.WrapPrefix(ErrNoMatchingCredential, "attribute "+ref, 0)
		}
		u, err := use(cred, interval)
		if err != nil {
			return nil, err
		}

		switch {
		case info.Name == "" && len(info.Names) > 0:
			group := RevealedAttrGroup{SubProofIndex: u.index, Values: map[string]RevealedValue{}}
			for _, name := range names {
				v, _ := cred.Value(name)
				u.revealed[v.Name] = true
				group.Values[name] = RevealedValue{Raw: v.Raw, Encoded: v.Encoded}
			}
			pres.RequestedProof.RevealedAttrGroups[ref] = group
		case opts.Unrevealed[ref]:
			pres.RequestedProof.UnrevealedAttrs[ref] = u.index
		default:
			v, _ := cred.Value(info.Name)
			u.revealed[v.Name] = true
			pres.RequestedProof.RevealedAttrs[ref] = RevealedAttr{
				SubProofIndex: u.index,
				RevealedValue: RevealedValue{Raw: v.Raw, Encoded: v.Encoded},
			}
		}
	}

	for _, ref := range sortedKeys(req.RequestedPredicates) {
		info := req.RequestedPredicates[ref]
		interval := req.interval(info.NonRevoked)
		cred := pv.selectCredential([]string{info.Name}, info.CredDefID, interval, func(c *Credential) bool {
			v, _ := c.Value(info.Name)
			return info.satisfies(v.Raw)
		})
		if cred == nil {
			return nil, errors.WrapPrefix(ErrNoMatchingCredential, "predicate "+ref, 0)
		}
		u, err := use(cred, interval)
		if err != nil {
			return nil, err
		}
		u.predicates = append(u.predicates, info)
		pres.RequestedProof.Predicates[ref] = u.index
	}

	if err := pv.prove(rnd, cfg, req.Nonce, uses, pres); err != nil {
		return nil, err
	}
	Logger.WithFields(logrus.Fields{"request": req.Name, "credentials": len(uses)}).Trace("built presentation")
	return pres, nil
}

// subProofCommit holds the commitments of the sub-proofs of one credential.
type subProofCommit struct {
	primary       *primaryProofCommit
	predicates    []*PredicateProof
	ranges        []*rangeproof.ProofStructure
	rangeCommits  []*rangeproof.ProofCommit
	nonRevocation *revocation.ProofCommit
}

func (pv *Prover) prove(rnd io.Reader, cfg *Config, nonce *big.Int, uses []*credentialUse, pres *Presentation) error {
	// The link secret randomizer is shared by all sub-proofs, so that their link secret
	// responses are equal.
	lsBits := uint(0)
	for _, u := range uses {
		def := pv.CredDefs[u.cred.CredDefID]
		if def == nil || pv.Schemas[u.cred.SchemaID] == nil {
			return errors.WrapPrefix(ErrSchemaMismatch, "unknown credential definition "+u.cred.CredDefID, 0)
		}
		if l := def.PublicKey.Params.LmCommit; lsBits == 0 || l < lsBits {
			lsBits = l
		}
	}
	lsRandomizer, err := common.RandomBigInt(rnd, lsBits)
	if err != nil {
		return err
	}

	var contributions []*big.Int
	commits := make([]*subProofCommit, len(uses))
	pres.Identifiers = make([]Identifier, len(uses))
	for k, u := range uses {
		def := pv.CredDefs[u.cred.CredDefID]
		pk := def.PublicKey
		pres.Identifiers[k] = Identifier{SchemaID: u.cred.SchemaID, CredDefID: def.ID}

		sc := &subProofCommit{}
		var list []*big.Int
		if sc.primary, list, err = newPrimaryProofCommit(rnd, pk, u.cred, pv.LinkSecret, lsRandomizer, u.revealed); err != nil {
			return err
		}
		contributions = append(contributions, list...)

		for _, info := range u.predicates {
			v, _ := u.cred.Value(info.Name)
			pp := &PredicateProof{Attr: v.Name, PType: info.PType, PValue: info.PValue}
			sc.predicates = append(sc.predicates, pp)
			if u.revealed[v.Name] {
				sc.ranges = append(sc.ranges, nil)
				sc.rangeCommits = append(sc.rangeCommits, nil)
				continue
			}

			pp.PieceWidth = cfg.PredicatePieceWidth
			s, err := newRangeStructure(pp, pk.Params)
			if err != nil {
				return err
			}
			g := rangeproof.NewQrGroup(pk.N, pk.Base(v.Name), pk.S)
			list, rc, err := s.CommitmentsFromSecrets(rnd, g, v.Encoded, sc.primary.mRandomizers[v.Name])
			if err != nil {
				return errors.WrapPrefix(ErrNoMatchingCredential, err.Error(), 0)
			}
			sc.ranges = append(sc.ranges, s)
			sc.rangeCommits = append(sc.rangeCommits, rc)
			contributions = append(contributions, list...)
		}

		if u.interval != nil {
			id, list, commit, err := pv.nonRevocationCommit(rnd, def, u, sc.primary.m2Randomizer)
			if err != nil {
				return err
			}
			pres.Identifiers[k].RegistryID = id.RegistryID
			pres.Identifiers[k].Epoch = id.Epoch
			sc.nonRevocation = commit
			contributions = append(contributions, list...)
		}
		commits[k] = sc
	}

	for _, sc := range commits {
		contributions = append(contributions, sc.primary.revealedEncodings()...)
	}
	challenge := common.HashCommit(append(contributions, nonce))

	pres.C = challenge
	pres.Proofs = make([]*SubProof, len(commits))
	for k, sc := range commits {
		sp := &SubProof{Primary: sc.primary.buildProof(challenge), Predicates: sc.predicates}
		for j, s := range sc.ranges {
			if s != nil {
				sc.predicates[j].Proof = s.BuildProof(sc.rangeCommits[j], challenge)
			}
		}
		if sc.nonRevocation != nil {
			sp.NonRevocation = sc.nonRevocation.BuildProof(challenge)
		}
		pres.Proofs[k] = sp
	}
	return nil
}

// nonRevocationCommit updates the witness of the credential to the end of its revocation
// interval, or the latest epoch of the registry if that comes first, and commits to the
// non-revocation proof against the accumulator of that epoch.
func (pv *Prover) nonRevocationCommit(rnd io.Reader, def *CredentialDefinition, u *credentialUse, m2Randomizer *big.Int) (*Identifier, []*big.Int, *revocation.ProofCommit, error) {
	nr := u.cred.NonRevocation
	if !def.Revocable {
		return nil, nil, nil, errors.WrapPrefix(ErrSchemaMismatch, "credential definition does not support revocation", 0)
	}
	state := pv.Registries[nr.RegistryID]
	if state == nil || state.Snapshot == nil || state.Tails == nil {
		return nil, nil, nil, errors.WrapPrefix(ErrWitnessUnavailable, "no state of registry "+nr.RegistryID, 0)
	}
	snap := state.Snapshot
	if snap.RegistryID != nr.RegistryID || snap.CredDefID != def.ID || snap.PublicKey == nil {
		return nil, nil, nil, errors.WrapPrefix(ErrWitnessUnavailable, "state of registry "+nr.RegistryID+" belongs to another registry", 0)
	}

	epoch := u.interval.To
	if state.Snapshot.Epoch < epoch {
		epoch = state.Snapshot.Epoch
	}
	if epoch < u.interval.From {
		return nil, nil, nil, errors.WrapPrefix(ErrWitnessUnavailable, "registry state predates revocation interval", 0)
	}
	w, err := state.Snapshot.UpdateWitness(nr.Witness, state.Tails, nr.Witness.Epoch, epoch)
	if err != nil {
		return nil, nil, nil, err
	}
	acc, err := state.Snapshot.AccumulatorAt(epoch)
	if err != nil {
		return nil, nil, nil, err
	}
	list, commit, err := revocation.NewProofCommit(rnd, snap.PublicKey, nr.Updated(w), acc, m2Randomizer)
	if err != nil {
		return nil, nil, nil, err
	}
	return &Identifier{RegistryID: nr.RegistryID, Epoch: epoch}, list, commit, nil
}

func (c *primaryProofCommit) revealedEncodings() []*big.Int {
	return (&PrimaryProof{Revealed: c.revealed}).revealedValues()
}

// newRangeStructure creates the range proof structure of a predicate.
func newRangeStructure(pp *PredicateProof, params *credkeys.SystemParameters) (*rangeproof.ProofStructure, error) {
	a, k, err := predicateStatement(pp.PType, pp.PValue)
	if err != nil {
		return nil, err
	}
	return rangeproof.New(a, k, pp.PieceWidth, params.Lh, params.Lstatzk, params.Ln)
}
