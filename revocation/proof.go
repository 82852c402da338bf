package revocation

import (
	"io"

	"github.com/go-errors/errors"
	"github.com/hyperledger/fabric-amcl/amcl/FP256BN"
	"github.com/privacybydesign/anoncreds/big"
)

/*
This implements the zero knowledge proof of non-revocation. The holder blinds the index element,
the signature and the witness of its non-revocation credential as

    E = g_i * h^rho,  A = sigma * h^r,  W = omega * g2^s,  D = g^r * h^t,

and proves knowledge of rho, r, t, s, kappa, delta = r*kappa, t' = t*kappa and m2 such that

    (1) D = g^r * h^t
    (2) 1 = D^kappa * g^-delta * h^-t'
    (3) e(A, y) / (e(h0, g2) * e(E, g2)) = e(A, g2)^-kappa * e(h, y)^r * e(h, g2)^(delta-rho) * e(h1, g2)^m2
    (4) e(E, acc) / (z * e(g, W)) = e(h, acc)^rho * e(g, g2)^-s

Relations (1) and (2) ensure delta = r*kappa; (3) shows that sigma is a signature on the element
hidden in E and on m2; (4) shows that the element hidden in E is accumulated in acc.

The m2 randomizer is supplied by the caller, which uses it for the same attribute in the primary
proof; the verifier takes the m2 response from the primary proof. As in the rest of this module
responses are computed as randomizer - challenge*secret, here modulo the group order q, and the
challenge is the shared Fiat-Shamir challenge reduced modulo q.
*/

type (
	// Proof is a non-revocation proof, verified against the accumulator of one epoch.
	Proof struct {
		E, D, A   *G1
		W         *G2
		Responses map[string]*big.Int
	}

	// ProofCommit contains the secrets and randomizers of a non-revocation proof in progress.
	ProofCommit struct {
		proof       *Proof
		secrets     map[string]*big.Int
		randomizers map[string]*big.Int
	}
)

// Names of the secrets of the proof, other than m2.
var secretNames = []string{"rho", "r", "t", "s", "kappa", "delta", "tprime"}

// NewProofCommit blinds the credential and computes the Schnorr commitments of the proof
// against the accumulator acc, which must be the accumulator of the witness epoch. It
// returns the values to be hashed into the challenge, in the order also produced by
// Proof.ChallengeContributions.
func NewProofCommit(rnd io.Reader, pk *PublicKey, cred *Credential, acc *G2, m2Randomizer *big.Int) ([]*big.Int, *ProofCommit, error) {
	if cred.Witness == nil || cred.Witness.Omega == nil {
		return nil, nil, errors.WrapPrefix(ErrWitnessUnavailable, "credential has no witness", 0)
	}

	c := &ProofCommit{
		secrets:     map[string]*big.Int{},
		randomizers: map[string]*big.Int{},
	}
	for _, name := range []string{"rho", "r", "t", "s"} {
		x, err := randomScalar(rnd)
		if err != nil {
			return nil, nil, err
		}
		c.secrets[name] = x
	}
	c.secrets["kappa"] = cred.Kappa
	c.secrets["delta"] = modQ(new(big.Int).Mul(c.secrets["r"], cred.Kappa))
	c.secrets["tprime"] = modQ(new(big.Int).Mul(c.secrets["t"], cred.Kappa))
	for _, name := range secretNames {
		x, err := randomScalar(rnd)
		if err != nil {
			return nil, nil, err
		}
		c.randomizers[name] = x
	}
	c.randomizers["m2"] = modQ(m2Randomizer)

	s := c.secrets
	c.proof = &Proof{
		E: &G1{g1Sum(cred.GI.ECP, g1Mul(pk.H.ECP, s["rho"]))},
		A: &G1{g1Sum(cred.Sigma.ECP, g1Mul(pk.H.ECP, s["r"]))},
		D: &G1{g1Sum(g1Mul(GenG1, s["r"]), g1Mul(pk.H.ECP, s["t"]))},
	}
	w := g2Copy(cred.Witness.Omega.ECP2)
	w.Add(g2Mul(GenG2, s["s"]))
	c.proof.W = &G2{w}

	t := c.randomizers
	d := c.proof.D.ECP
	t1 := g1Sum(g1Mul(GenG1, t["r"]), g1Mul(pk.H.ECP, t["t"]))
	t2 := g1Sum(
		g1Mul(d, t["kappa"]),
		g1Mul(GenG1, new(big.Int).Neg(t["delta"])),
		g1Mul(pk.H.ECP, new(big.Int).Neg(t["tprime"])),
	)
	t3 := pairProduct(
		[]*FP256BN.ECP{
			g1Mul(pk.H.ECP, t["r"]),
			g1Sum(
				g1Mul(c.proof.A.ECP, new(big.Int).Neg(t["kappa"])),
				g1Mul(pk.H.ECP, new(big.Int).Sub(t["delta"], t["rho"])),
				g1Mul(pk.H1.ECP, t["m2"]),
			),
		},
		[]*FP256BN.ECP2{pk.Y.ECP2, GenG2},
	)
	t4 := pairProduct(
		[]*FP256BN.ECP{g1Mul(pk.H.ECP, t["rho"]), g1Mul(GenG1, new(big.Int).Neg(t["s"]))},
		[]*FP256BN.ECP2{acc.ECP2, GenG2},
	)

	Logger.Trace("created non-revocation proof commitments")
	return c.proof.contributions(acc, t1, t2, t3, t4), c, nil
}

// BuildProof computes the responses of the proof for the given challenge.
func (c *ProofCommit) BuildProof(challenge *big.Int) *Proof {
	cq := modQ(challenge)
	responses := make(map[string]*big.Int, len(secretNames))
	for _, name := range secretNames {
		responses[name] = modQ(new(big.Int).Sub(c.randomizers[name], new(big.Int).Mul(cq, c.secrets[name])))
	}
	return &Proof{
		E:         c.proof.E,
		D:         c.proof.D,
		A:         c.proof.A,
		W:         c.proof.W,
		Responses: responses,
	}
}

func (p *Proof) contributions(acc *G2, t1, t2 *FP256BN.ECP, t3, t4 *FP256BN.FP12) []*big.Int {
	return []*big.Int{
		p.E.Int(), p.D.Int(), p.A.Int(), p.W.Int(), acc.Int(),
		(&G1{t1}).Int(), (&G1{t2}).Int(),
		new(big.Int).SetBytes(gtBytes(t3)), new(big.Int).SetBytes(gtBytes(t4)),
	}
}

func (p *Proof) wellFormed() bool {
	if p == nil || p.E == nil || p.D == nil || p.A == nil || p.W == nil ||
		p.E.ECP == nil || p.D.ECP == nil || p.A.ECP == nil || p.W.ECP2 == nil {
		return false
	}
	for _, name := range secretNames {
		r := p.Responses[name]
		if r == nil || r.Sign() < 0 || r.Cmp(GroupOrder) >= 0 {
			return false
		}
	}
	return len(p.Responses) == len(secretNames)
}

// ChallengeContributions reconstructs the values hashed into the challenge from the proof, the
// challenge, and the m2 response of the primary proof.
func (p *Proof) ChallengeContributions(pk *PublicKey, acc *G2, challenge, m2Response *big.Int) ([]*big.Int, error) {
	if !p.wellFormed() {
		return nil, errors.New("malformed non-revocation proof")
	}
	if acc == nil || acc.ECP2 == nil {
		return nil, errors.New("no accumulator")
	}

	c := modQ(challenge)
	negc := new(big.Int).Neg(c)
	r := p.Responses
	E, D, A := p.E.ECP, p.D.ECP, p.A.ECP

	t1 := g1Sum(g1Mul(D, c), g1Mul(GenG1, r["r"]), g1Mul(pk.H.ECP, r["t"]))
	t2 := g1Sum(
		g1Mul(D, r["kappa"]),
		g1Mul(GenG1, new(big.Int).Neg(r["delta"])),
		g1Mul(pk.H.ECP, new(big.Int).Neg(r["tprime"])),
	)
	t3 := pairProduct(
		[]*FP256BN.ECP{
			g1Sum(g1Mul(A, c), g1Mul(pk.H.ECP, r["r"])),
			g1Sum(
				g1Mul(A, new(big.Int).Neg(r["kappa"])),
				g1Mul(pk.H.ECP, new(big.Int).Sub(r["delta"], r["rho"])),
				g1Mul(pk.H1.ECP, m2Response),
				g1Mul(g1Sum(pk.H0.ECP, E), negc),
			),
		},
		[]*FP256BN.ECP2{pk.Y.ECP2, GenG2},
	)
	t4 := pairProduct(
		[]*FP256BN.ECP{
			g1Sum(g1Mul(E, c), g1Mul(pk.H.ECP, r["rho"])),
			g1Mul(GenG1, negc),
			g1Mul(GenG1, new(big.Int).Neg(r["s"])),
		},
		[]*FP256BN.ECP2{acc.ECP2, p.W.ECP2, GenG2},
	)
	t4.Mul(gtPow(pk.Z.FP12, negc))

	return p.contributions(acc, t1, t2, t3, t4), nil
}
