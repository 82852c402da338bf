package revocation

import (
	"crypto/rand"
	"testing"

	"github.com/privacybydesign/anoncreds/big"
	"github.com/privacybydesign/anoncreds/cbor"
	"github.com/privacybydesign/anoncreds/internal/common"
	"github.com/stretchr/testify/require"
)

// proveAndCheck runs the proof against acc and reports whether the reconstructed challenge
// contributions hash to the challenge.
func proveAndCheck(t *testing.T, pk *PublicKey, cred *Credential, acc *G2, tamper func(*Proof, *big.Int) *big.Int) bool {
	m2Randomizer, err := common.RandomBigInt(rand.Reader, 592)
	require.NoError(t, err)

	list, commit, err := NewProofCommit(rand.Reader, pk, cred, acc, m2Randomizer)
	require.NoError(t, err)
	challenge := common.HashCommit(list)
	proof := commit.BuildProof(challenge)

	// the primary proof computes the m2 response over the integers
	m2Response := new(big.Int).Sub(m2Randomizer, new(big.Int).Mul(challenge, cred.M2))
	if tamper != nil {
		m2Response = tamper(proof, m2Response)
	}

	reconstructed, err := proof.ChallengeContributions(pk, acc, challenge, m2Response)
	if err != nil {
		return false
	}
	return common.HashCommit(reconstructed).Cmp(challenge) == 0
}

func TestProof(t *testing.T) {
	tr := setupRegistry(t, "proof")
	cred := tr.issue(t, 12345)
	tr.issue(t, 2)
	cred = tr.update(t, cred, 2)

	acc, err := tr.reg.Snapshot().AccumulatorAt(2)
	require.NoError(t, err)
	require.True(t, proveAndCheck(t, tr.pk, cred, acc, nil))

	// against the accumulator of another epoch the proof fails
	acc1, err := tr.reg.Snapshot().AccumulatorAt(1)
	require.NoError(t, err)
	require.False(t, proveAndCheck(t, tr.pk, cred, acc1, nil))
}

func TestProofTampered(t *testing.T) {
	tr := setupRegistry(t, "proof tampered")
	cred := tr.issue(t, 777)
	acc := tr.reg.Snapshot().Accumulator

	for _, name := range secretNames {
		name := name
		require.False(t, proveAndCheck(t, tr.pk, cred, acc, func(p *Proof, m2 *big.Int) *big.Int {
			p.Responses[name] = modQ(new(big.Int).Add(p.Responses[name], big.NewInt(1)))
			return m2
		}), name)
	}

	require.False(t, proveAndCheck(t, tr.pk, cred, acc, func(p *Proof, m2 *big.Int) *big.Int {
		return new(big.Int).Add(m2, big.NewInt(1))
	}), "m2")

	require.False(t, proveAndCheck(t, tr.pk, cred, acc, func(p *Proof, m2 *big.Int) *big.Int {
		p.E = &G1{g1Sum(p.E.ECP, GenG1)}
		return m2
	}), "E")

	require.False(t, proveAndCheck(t, tr.pk, cred, acc, func(p *Proof, m2 *big.Int) *big.Int {
		delete(p.Responses, "rho")
		return m2
	}), "missing response")

	require.False(t, proveAndCheck(t, tr.pk, cred, acc, func(p *Proof, m2 *big.Int) *big.Int {
		p.Responses["rho"] = new(big.Int).Add(p.Responses["rho"], GroupOrder)
		return m2
	}), "unreduced response")
}

func TestProofRevoked(t *testing.T) {
	tr := setupRegistry(t, "proof revoked")
	cred := tr.issue(t, 5)
	tr.issue(t, 6)
	require.NoError(t, tr.reg.Revoke(cred.Index))

	// the proof still succeeds for the epoch before revocation
	before := tr.update(t, cred, 2)
	acc2, err := tr.reg.Snapshot().AccumulatorAt(2)
	require.NoError(t, err)
	require.True(t, proveAndCheck(t, tr.pk, before, acc2, nil))

	after := tr.update(t, cred, 3)
	acc3, err := tr.reg.Snapshot().AccumulatorAt(3)
	require.NoError(t, err)
	require.False(t, proveAndCheck(t, tr.pk, after, acc3, nil))
}

func TestProofOtherM2(t *testing.T) {
	tr := setupRegistry(t, "proof m2")
	cred := tr.issue(t, 5)
	acc := tr.reg.Snapshot().Accumulator

	// a holder cannot combine the non-revocation credential with another primary credential
	other := *cred
	other.M2 = big.NewInt(6)
	require.False(t, proveAndCheck(t, tr.pk, &other, acc, nil))
}

func TestProofCBOR(t *testing.T) {
	tr := setupRegistry(t, "proof cbor")
	cred := tr.issue(t, 99)
	acc := tr.reg.Snapshot().Accumulator

	list, commit, err := NewProofCommit(rand.Reader, tr.pk, cred, acc, big.NewInt(31337))
	require.NoError(t, err)
	challenge := common.HashCommit(list)
	proof := commit.BuildProof(challenge)

	bts, err := cbor.Marshal(proof)
	require.NoError(t, err)
	var decoded Proof
	require.NoError(t, cbor.Unmarshal(bts, &decoded))

	m2Response := new(big.Int).Sub(big.NewInt(31337), new(big.Int).Mul(challenge, cred.M2))
	reconstructed, err := decoded.ChallengeContributions(tr.pk, acc, challenge, m2Response)
	require.NoError(t, err)
	require.Equal(t, 0, common.HashCommit(reconstructed).Cmp(challenge))
}

func TestProofNoWitness(t *testing.T) {
	tr := setupRegistry(t, "no witness")
	cred := tr.issue(t, 1)
	cred.Witness = nil
	_, _, err := NewProofCommit(rand.Reader, tr.pk, cred, tr.reg.Snapshot().Accumulator, big.NewInt(1))
	require.Error(t, err)
}
