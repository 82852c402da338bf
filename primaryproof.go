package anoncreds

import (
	"io"
	"sort"

	"github.com/go-errors/errors"
	"github.com/privacybydesign/anoncreds/big"
	"github.com/privacybydesign/anoncreds/credkeys"
	"github.com/privacybydesign/anoncreds/internal/common"
)

// PrimaryProof proves knowledge of a CL signature over the link secret, the credential
// context and the attributes, disclosing the Revealed ones.
type PrimaryProof struct {
	APrime             *big.Int
	EResponse          *big.Int
	VResponse          *big.Int
	Revealed           map[string]*big.Int
	MResponses         map[string]*big.Int
	LinkSecretResponse *big.Int
	ContextResponse    *big.Int
}

// primaryProofCommit holds the secrets and randomizers of a primary proof in progress.
type primaryProofCommit struct {
	pk        *credkeys.PublicKey
	signature *CLSignature // randomized
	ePrime    *big.Int
	revealed  map[string]*big.Int
	hidden    map[string]*big.Int
	ls, m2    *big.Int

	eRandomizer, vRandomizer *big.Int
	mRandomizers             map[string]*big.Int
	lsRandomizer             *big.Int
	m2Randomizer             *big.Int
}

// newPrimaryProofCommit randomizes the signature of the credential and commits to its
// secrets, using lsRandomizer for the link secret. It returns A' and the commitment T.
func newPrimaryProofCommit(rnd io.Reader, pk *credkeys.PublicKey, cred *Credential, ls *LinkSecret, lsRandomizer *big.Int, revealed map[string]bool) (*primaryProofCommit, []*big.Int, error) {
	signature, err := cred.Signature.Randomize(rnd, pk)
	if err != nil {
		return nil, nil, err
	}

	c := &primaryProofCommit{
		pk:           pk,
		signature:    signature,
		ePrime:       new(big.Int).Sub(signature.E, new(big.Int).Lsh(big.NewInt(1), pk.Params.Le-1)),
		revealed:     map[string]*big.Int{},
		hidden:       map[string]*big.Int{},
		ls:           ls.value,
		m2:           cred.Context,
		mRandomizers: map[string]*big.Int{},
		lsRandomizer: lsRandomizer,
	}
	for _, v := range cred.Values {
		if revealed[v.Name] {
			c.revealed[v.Name] = v.Encoded
		} else {
			c.hidden[v.Name] = v.Encoded
		}
	}

	if c.eRandomizer, err = common.RandomBigInt(rnd, pk.Params.LeCommit); err != nil {
		return nil, nil, err
	}
	if c.vRandomizer, err = common.RandomBigInt(rnd, pk.Params.LvCommit); err != nil {
		return nil, nil, err
	}
	if c.m2Randomizer, err = common.RandomBigInt(rnd, pk.Params.LmCommit); err != nil {
		return nil, nil, err
	}
	for name := range c.hidden {
		if c.mRandomizers[name], err = common.RandomBigInt(rnd, pk.Params.LmCommit); err != nil {
			return nil, nil, err
		}
	}

	// T = A'^{e~} * S^{v~} * RLink^{ls~} * Rctxt^{m2~} * prod_{hidden} R_i^{m_i~}
	bases := []*big.Int{signature.A, pk.S, pk.RLink, pk.Rctxt}
	exps := []*big.Int{c.eRandomizer, c.vRandomizer, c.lsRandomizer, c.m2Randomizer}
	for k, name := range pk.AttrNames {
		if r, ok := c.mRandomizers[name]; ok {
			bases = append(bases, pk.R[k])
			exps = append(exps, r)
		}
	}
	T, err := common.MultiExp(bases, exps, pk.N)
	if err != nil {
		return nil, nil, err
	}

	return c, []*big.Int{signature.A, T}, nil
}

func response(randomizer, challenge, secret *big.Int) *big.Int {
	return new(big.Int).Sub(randomizer, new(big.Int).Mul(challenge, secret))
}

func (c *primaryProofCommit) buildProof(challenge *big.Int) *PrimaryProof {
	p := &PrimaryProof{
		APrime:             c.signature.A,
		EResponse:          response(c.eRandomizer, challenge, c.ePrime),
		VResponse:          response(c.vRandomizer, challenge, c.signature.V),
		Revealed:           c.revealed,
		MResponses:         make(map[string]*big.Int, len(c.hidden)),
		LinkSecretResponse: response(c.lsRandomizer, challenge, c.ls),
		ContextResponse:    response(c.m2Randomizer, challenge, c.m2),
	}
	for name, m := range c.hidden {
		p.MResponses[name] = response(c.mRandomizers[name], challenge, m)
	}
	return p
}

// revealedValues lists the revealed encodings sorted by attribute name.
func (p *PrimaryProof) revealedValues() []*big.Int {
	names := make([]string, 0, len(p.Revealed))
	for name := range p.Revealed {
		names = append(names, name)
	}
	sort.Strings(names)
	values := make([]*big.Int, len(names))
	for k, name := range names {
		values[k] = p.Revealed[name]
	}
	return values
}

// checkShape verifies that every attribute of the key is either revealed or hidden.
func (p *PrimaryProof) checkShape(pk *credkeys.PublicKey) error {
	if len(p.Revealed)+len(p.MResponses) != len(pk.AttrNames) {
		return errors.WrapPrefix(ErrSchemaMismatch, "proof does not cover the attributes of the schema", 0)
	}
	for _, name := range pk.AttrNames {
		_, revealed := p.Revealed[name]
		_, hidden := p.MResponses[name]
		if revealed == hidden {
			return errors.WrapPrefix(ErrSchemaMismatch, "attribute "+name+" must be either revealed or hidden", 0)
		}
	}
	return nil
}

// correctResponseSizes checks the sizes of the elements in the proof.
func (p *PrimaryProof) correctResponseSizes(pk *credkeys.PublicKey) bool {
	for _, v := range []*big.Int{p.APrime, p.EResponse, p.VResponse, p.LinkSecretResponse, p.ContextResponse} {
		if v == nil {
			return false
		}
	}
	if p.APrime.Sign() <= 0 || p.APrime.Cmp(pk.N) >= 0 {
		return false
	}
	for _, m := range p.Revealed {
		if m == nil || !common.InRange(m, pk.Params.Lm) {
			return false
		}
	}
	for _, m := range append([]*big.Int{p.LinkSecretResponse, p.ContextResponse}, mapValues(p.MResponses)...) {
		if !common.InRange(m, pk.Params.LmCommit+1) {
			return false
		}
	}
	return common.InRange(p.EResponse, pk.Params.LeCommit+1) &&
		common.InRange(p.VResponse, pk.Params.LvCommit+1)
}

func mapValues(m map[string]*big.Int) []*big.Int {
	values := make([]*big.Int, 0, len(m))
	for _, v := range m {
		values = append(values, v)
	}
	return values
}

// challengeContributions reconstructs A' and the commitment T from the proof.
func (p *PrimaryProof) challengeContributions(pk *credkeys.PublicKey, challenge *big.Int) ([]*big.Int, error) {
	if err := p.checkShape(pk); err != nil {
		return nil, err
	}
	if !p.correctResponseSizes(pk) {
		return nil, errors.WrapPrefix(ErrInvalidProof, "primary proof response sizes", 0)
	}

	// Z' = Z / ( prod_{revealed} R_i^{m_i} * A'^{2^{l_e - 1}} )
	numerator := new(big.Int).Lsh(big.NewInt(1), pk.Params.Le-1)
	numerator.Exp(p.APrime, numerator, pk.N)
	for k, name := range pk.AttrNames {
		if m, ok := p.Revealed[name]; ok {
			t, err := common.ModPow(pk.R[k], m, pk.N)
			if err != nil {
				return nil, err
			}
			numerator.Mul(numerator, t).Mod(numerator, pk.N)
		}
	}
	known, ok := common.ModInverse(numerator, pk.N)
	if !ok {
		return nil, errors.WrapPrefix(ErrInvalidProof, "A' is not invertible", 0)
	}
	known.Mul(pk.Z, known).Mod(known, pk.N)

	// T = Z'^c * A'^{e^} * S^{v^} * RLink^{ls^} * Rctxt^{m2^} * prod_{hidden} R_i^{m_i^}
	bases := []*big.Int{known, p.APrime, pk.S, pk.RLink, pk.Rctxt}
	exps := []*big.Int{challenge, p.EResponse, p.VResponse, p.LinkSecretResponse, p.ContextResponse}
	for k, name := range pk.AttrNames {
		if m, ok := p.MResponses[name]; ok {
			bases = append(bases, pk.R[k])
			exps = append(exps, m)
		}
	}
	T, err := common.MultiExp(bases, exps, pk.N)
	if err != nil {
		return nil, err
	}
	return []*big.Int{p.APrime, T}, nil
}
