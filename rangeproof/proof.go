// Package rangeproof implements zero-knowledge proofs that an attribute m hidden in a CL signature
// satisfies a*m - k >= 0, for a in {1, -1} and a public bound k.
//
// The difference delta = a*m - k, which must be smaller than 2^32, is written in base 2^w as
// delta = sum_i 2^(w*i) d_i with d_i in [0, 2^w). The prover commits to each piece,
//
//	C_i = R^d_i S^v_i,
//
// proves for each C_i with a 1-out-of-2^w proof of knowledge (Cramer, Damgard and Schoenmakers,
// CRYPTO 1994) that C_i/R^j is a power of S for some j in [0, 2^w), and proves that the pieces
// combine into delta:
//
//	R^k prod_i C_i^(2^(w*i)) = R^(a*m) S^V
//
// where V = sum_i 2^(w*i) v_i. The response for m is taken from the proof of knowledge of the
// CL signature, binding the statement to the signed attribute.
//
// Responses are computed as randomizer - challenge*secret. In the 1-out-of-n proofs the
// challenges of the branches sum to the overall challenge modulo 2^lh.
package rangeproof

import (
	"io"

	"github.com/go-errors/errors"
	"github.com/privacybydesign/anoncreds/big"
	"github.com/privacybydesign/anoncreds/internal/common"
)

// DeltaBits is the number of bits available for a*m - k.
const DeltaBits = 32

var ErrFalseStatement = errors.New("requested inequality does not hold")

type (
	// ProofStructure describes the statement a*m - k >= 0 and the sizes of the proof values.
	ProofStructure struct {
		a int
		k *big.Int

		w       uint // piece width
		pieces  int
		lh      uint
		lstatzk uint
		ln      uint
	}

	Proof struct {
		C          []*big.Int   `json:"C"`
		Challenges [][]*big.Int `json:"c"`
		Responses  [][]*big.Int `json:"s"`
		VResponse  *big.Int     `json:"V"`
	}

	ProofCommit struct {
		c []*big.Int

		d            []int64
		v            []*big.Int
		vRandomizer  []*big.Int   // randomizer of the branch of d_i
		challenges   [][]*big.Int // simulated branch challenges, nil for the real branch
		responses    [][]*big.Int // simulated branch responses, nil for the real branch
		bigV         *big.Int
		vBRandomizer *big.Int
		mRandomizer  *big.Int
	}
)

// New creates a proof structure for proving a*m - k >= 0 with pieces of pieceWidth bits.
//
//	lh is the size of the challenge
//	lstatzk the number of bits of statistical hiding to use
//	ln the size of the modulus
func New(a int, k *big.Int, pieceWidth, lh, lstatzk, ln uint) (*ProofStructure, error) {
	if a != 1 && a != -1 {
		return nil, errors.New("a must be 1 or -1")
	}
	if pieceWidth == 0 || pieceWidth > 8 {
		return nil, errors.Errorf("unsupported piece width %d", pieceWidth)
	}
	return &ProofStructure{
		a:       a,
		k:       new(big.Int).Set(k),
		w:       pieceWidth,
		pieces:  int((DeltaBits + pieceWidth - 1) / pieceWidth),
		lh:      lh,
		lstatzk: lstatzk,
		ln:      ln,
	}, nil
}

// Pieces returns the number of pieces delta is split into.
func (s *ProofStructure) Pieces() int { return s.pieces }

func (s *ProofStructure) branches() int { return 1 << s.w }

// Bit sizes of secrets and randomizers.
func (s *ProofStructure) lv() uint { return s.ln + s.lstatzk }
func (s *ProofStructure) lvRandomizer() uint { return s.lv() + s.lh + s.lstatzk }
func (s *ProofStructure) lV() uint { return s.lv() + s.w*uint(s.pieces) }
func (s *ProofStructure) lVRandomizer() uint { return s.lV() + s.lh + s.lstatzk }

// Delta returns a*m - k.
func (s *ProofStructure) Delta(m *big.Int) *big.Int {
	d := new(big.Int).Mul(m, big.NewInt(int64(s.a)))
	return d.Sub(d, s.k)
}

// Holds reports whether m satisfies the statement and its difference fits the proof.
func (s *ProofStructure) Holds(m *big.Int) bool {
	d := s.Delta(m)
	return d.Sign() >= 0 && d.BitLen() <= DeltaBits
}

// CommitmentsFromSecrets commits to the pieces of a*m - k, using mRandomizer as the randomizer of
// m, and returns the values to be hashed into the challenge.
func (s *ProofStructure) CommitmentsFromSecrets(rnd io.Reader, g *QrGroup, m, mRandomizer *big.Int) ([]*big.Int, *ProofCommit, error) {
	if !s.Holds(m) {
		return nil, nil, ErrFalseStatement
	}
	return s.commitmentsFromSecrets(rnd, g, m, mRandomizer)
}

// commitmentsFromSecrets does not check the statement; a negative delta is decomposed modulo
// 2^(w*pieces), yielding a proof that does not verify.
func (s *ProofStructure) commitmentsFromSecrets(rnd io.Reader, g *QrGroup, m, mRandomizer *big.Int) ([]*big.Int, *ProofCommit, error) {
	var err error
	delta := new(big.Int).Mod(s.Delta(m), new(big.Int).Lsh(big.NewInt(1), s.w*uint(s.pieces)))

	commit := &ProofCommit{
		c:           make([]*big.Int, s.pieces),
		d:           split(delta, s.w, s.pieces),
		v:           make([]*big.Int, s.pieces),
		vRandomizer: make([]*big.Int, s.pieces),
		challenges:  make([][]*big.Int, s.pieces),
		responses:   make([][]*big.Int, s.pieces),
		bigV:        big.NewInt(0),
		mRandomizer: mRandomizer,
	}

	for i := range commit.d {
		if commit.v[i], err = common.RandomBigInt(rnd, s.lv()); err != nil {
			return nil, nil, err
		}
		commit.c[i], err = common.MultiExp(
			[]*big.Int{g.R, g.S},
			[]*big.Int{big.NewInt(commit.d[i]), commit.v[i]},
			g.N,
		)
		if err != nil {
			return nil, nil, err
		}
		commit.bigV.Add(commit.bigV, new(big.Int).Lsh(commit.v[i], s.w*uint(i)))
	}
	if commit.vBRandomizer, err = common.RandomBigInt(rnd, s.lVRandomizer()); err != nil {
		return nil, nil, err
	}

	// R^(a*m~) S^(V~)
	combined, err := common.MultiExp(
		[]*big.Int{g.R, g.S},
		[]*big.Int{new(big.Int).Mul(big.NewInt(int64(s.a)), mRandomizer), commit.vBRandomizer},
		g.N,
	)
	if err != nil {
		return nil, nil, err
	}
	contributions := append(append([]*big.Int{}, commit.c...), combined)

	challengeLimit := new(big.Int).Lsh(big.NewInt(1), s.lh)
	for i := range commit.d {
		commit.challenges[i] = make([]*big.Int, s.branches())
		commit.responses[i] = make([]*big.Int, s.branches())
		for j := 0; j < s.branches(); j++ {
			var t *big.Int
			if int64(j) == commit.d[i] {
				if commit.vRandomizer[i], err = common.RandomBigInt(rnd, s.lvRandomizer()); err != nil {
					return nil, nil, err
				}
				t = new(big.Int).Exp(g.S, commit.vRandomizer[i], g.N)
			} else {
				if commit.challenges[i][j], err = big.RandInt(rnd, challengeLimit); err != nil {
					return nil, nil, err
				}
				if commit.responses[i][j], err = common.RandomBigInt(rnd, s.lvRandomizer()); err != nil {
					return nil, nil, err
				}
				if t, err = s.branchCommitment(g, commit.c[i], j, commit.challenges[i][j], commit.responses[i][j]); err != nil {
					return nil, nil, err
				}
			}
			contributions = append(contributions, t)
		}
	}

	return contributions, commit, nil
}

// branchCommitment computes (C/R^j)^c S^s.
func (s *ProofStructure) branchCommitment(g *QrGroup, c *big.Int, j int, challenge, response *big.Int) (*big.Int, error) {
	return common.MultiExp(
		[]*big.Int{c, g.R, g.S},
		[]*big.Int{challenge, new(big.Int).Neg(new(big.Int).Mul(challenge, big.NewInt(int64(j)))), response},
		g.N,
	)
}

// split writes delta in base 2^w.
func split(delta *big.Int, w uint, pieces int) []int64 {
	d := make([]int64, pieces)
	mask := big.NewInt(int64(1)<<w - 1)
	rest := new(big.Int).Set(delta)
	for i := range d {
		d[i] = new(big.Int).And(rest, mask).Int64()
		rest.Rsh(rest, w)
	}
	return d
}

func (s *ProofStructure) BuildProof(commit *ProofCommit, challenge *big.Int) *Proof {
	modulus := new(big.Int).Lsh(big.NewInt(1), s.lh)
	result := &Proof{
		C:          make([]*big.Int, len(commit.c)),
		Challenges: make([][]*big.Int, len(commit.c)),
		Responses:  make([][]*big.Int, len(commit.c)),
		VResponse:  new(big.Int).Sub(commit.vBRandomizer, new(big.Int).Mul(challenge, commit.bigV)),
	}

	for i := range commit.c {
		result.C[i] = new(big.Int).Set(commit.c[i])
		result.Challenges[i] = make([]*big.Int, s.branches())
		result.Responses[i] = make([]*big.Int, s.branches())

		d := int(commit.d[i])
		sum := big.NewInt(0)
		for j := 0; j < s.branches(); j++ {
			if j == d {
				continue
			}
			result.Challenges[i][j] = new(big.Int).Set(commit.challenges[i][j])
			result.Responses[i][j] = new(big.Int).Set(commit.responses[i][j])
			sum.Add(sum, commit.challenges[i][j])
		}
		cReal := new(big.Int).Sub(challenge, sum)
		cReal.Mod(cReal, modulus)
		result.Challenges[i][d] = cReal
		result.Responses[i][d] = new(big.Int).Sub(commit.vRandomizer[i], new(big.Int).Mul(cReal, commit.v[i]))
	}

	return result
}

// VerifyProofStructure checks the shape of the proof and the sizes of its values.
func (s *ProofStructure) VerifyProofStructure(g *QrGroup, p *Proof) bool {
	if p == nil || len(p.C) != s.pieces || len(p.Challenges) != s.pieces || len(p.Responses) != s.pieces {
		return false
	}
	if p.VResponse == nil || !common.InRange(p.VResponse, s.lVRandomizer()+1) {
		return false
	}

	for i := range p.C {
		if p.C[i] == nil || p.C[i].Sign() <= 0 || p.C[i].Cmp(g.N) >= 0 {
			return false
		}
		if len(p.Challenges[i]) != s.branches() || len(p.Responses[i]) != s.branches() {
			return false
		}
		for j := 0; j < s.branches(); j++ {
			c, r := p.Challenges[i][j], p.Responses[i][j]
			if c == nil || r == nil || c.Sign() < 0 || uint(c.BitLen()) > s.lh || !common.InRange(r, s.lvRandomizer()+1) {
				return false
			}
		}
	}

	return true
}

// CommitmentsFromProof reconstructs the values hashed into the challenge, given the response
// for m from the proof of knowledge of the signature. It returns nil if the branch challenges
// do not sum to the challenge.
func (s *ProofStructure) CommitmentsFromProof(g *QrGroup, p *Proof, challenge, mResponse *big.Int) ([]*big.Int, error) {
	modulus := new(big.Int).Lsh(big.NewInt(1), s.lh)
	target := new(big.Int).Mod(challenge, modulus)

	// X = R^k prod_i C_i^(2^(w*i)) = R^(a*m) S^V
	bases := []*big.Int{g.R}
	exps := []*big.Int{s.k}
	for i := range p.C {
		bases = append(bases, p.C[i])
		exps = append(exps, new(big.Int).Lsh(big.NewInt(1), s.w*uint(i)))
	}
	x, err := common.MultiExp(bases, exps, g.N)
	if err != nil {
		return nil, err
	}
	combined, err := common.MultiExp(
		[]*big.Int{x, g.R, g.S},
		[]*big.Int{challenge, new(big.Int).Mul(big.NewInt(int64(s.a)), mResponse), p.VResponse},
		g.N,
	)
	if err != nil {
		return nil, err
	}
	contributions := append(append([]*big.Int{}, p.C...), combined)

	for i := range p.C {
		sum := big.NewInt(0)
		for j := 0; j < s.branches(); j++ {
			sum.Add(sum, p.Challenges[i][j])
			t, err := s.branchCommitment(g, p.C[i], j, p.Challenges[i][j], p.Responses[i][j])
			if err != nil {
				return nil, err
			}
			contributions = append(contributions, t)
		}
		if sum.Mod(sum, modulus).Cmp(target) != 0 {
			return nil, errors.Errorf("branch challenges of piece %d do not sum to the challenge", i)
		}
	}

	return contributions, nil
}
