package revocation

import (
	"crypto/rand"
	"testing"

	"github.com/go-errors/errors"
	"github.com/hyperledger/fabric-amcl/amcl/FP256BN"
	"github.com/privacybydesign/anoncreds/big"
	"github.com/privacybydesign/anoncreds/cbor"
	"github.com/privacybydesign/anoncreds/internal/common"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func init() {
	Logger.SetLevel(logrus.FatalLevel)
}

const testCapacity = 4

type testRegistry struct {
	pk    *PublicKey
	sk    *PrivateKey
	tails *Tails
	reg   *Registry
}

func setupRegistry(t *testing.T, seed string) *testRegistry {
	rnd := common.NewSeededReader(seed)
	pk, sk, tails, err := GenerateKeyPair(rnd, testCapacity)
	require.NoError(t, err)
	reg, err := NewRegistry(rnd, "creddef", pk, sk, tails)
	require.NoError(t, err)
	return &testRegistry{pk, sk, tails, reg}
}

func (tr *testRegistry) issue(t *testing.T, m2 int64) *Credential {
	cred, err := tr.reg.Issue(rand.Reader, big.NewInt(m2))
	require.NoError(t, err)
	return cred
}

func (tr *testRegistry) verify(cred *Credential) error {
	acc, err := tr.reg.Snapshot().AccumulatorAt(cred.Witness.Epoch)
	if err != nil {
		return err
	}
	return cred.Verify(tr.pk, acc)
}

func (tr *testRegistry) update(t *testing.T, cred *Credential, to uint64) *Credential {
	w, err := tr.reg.Snapshot().UpdateWitness(cred.Witness, tr.tails, cred.Witness.Epoch, to)
	require.NoError(t, err)
	return cred.Updated(w)
}

func TestGenerateKeyPair(t *testing.T) {
	_, _, _, err := GenerateKeyPair(rand.Reader, 0)
	require.Error(t, err)

	tr := setupRegistry(t, "keys")
	require.NoError(t, tr.tails.Validate(tr.pk))
	require.Len(t, tr.tails.Points, 2*testCapacity)
	require.True(t, tr.tails.Points[testCapacity].Is_infinity())

	h1, err := tr.tails.Hash()
	require.NoError(t, err)
	h2, err := tr.tails.Hash()
	require.NoError(t, err)
	require.Equal(t, h1, h2)

	other := setupRegistry(t, "other keys")
	h3, err := other.tails.Hash()
	require.NoError(t, err)
	require.NotEqual(t, h1, h3)
	require.Error(t, other.tails.Validate(&PublicKey{Capacity: 3}))
}

func TestRegistryLifecycle(t *testing.T) {
	tr := setupRegistry(t, "lifecycle")
	require.Equal(t, uint64(0), tr.reg.Epoch())

	creds := make([]*Credential, testCapacity)
	for i := range creds {
		creds[i] = tr.issue(t, int64(100+i))
		require.Equal(t, uint32(i+1), creds[i].Index)
		require.Equal(t, uint64(i+1), creds[i].Witness.Epoch)
		require.Equal(t, tr.reg.ID, creds[i].RegistryID)
		require.Equal(t, Issued, tr.reg.Status(uint32(i+1)))
		require.NoError(t, tr.verify(creds[i]))
	}
	require.True(t, tr.reg.Full())

	_, _, err := tr.reg.AllocateIndex()
	require.True(t, errors.Is(err, ErrRegistryFull))

	require.NoError(t, tr.reg.Revoke(2))
	require.Equal(t, Revoked, tr.reg.Status(2))
	require.Equal(t, uint64(testCapacity+1), tr.reg.Epoch())
	require.True(t, errors.Is(tr.reg.Revoke(2), ErrAlreadyRevoked))
	require.True(t, errors.Is(tr.reg.Revoke(0), ErrUnknownIndex))
	require.True(t, errors.Is(tr.reg.Revoke(testCapacity+1), ErrUnknownIndex))
	require.Equal(t, Unassigned, tr.reg.Status(testCapacity+1))
}

func TestCredentialSignature(t *testing.T) {
	tr := setupRegistry(t, "signature")
	cred := tr.issue(t, 42)
	require.NoError(t, tr.verify(cred))

	forged := *cred
	forged.M2 = big.NewInt(43)
	require.Error(t, tr.verify(&forged))

	forged = *cred
	forged.Kappa = new(big.Int).Add(cred.Kappa, big.NewInt(1))
	require.Error(t, tr.verify(&forged))
}

func TestWitnessUpdate(t *testing.T) {
	tr := setupRegistry(t, "witness")
	c1 := tr.issue(t, 1) // epoch 1
	c2 := tr.issue(t, 2) // epoch 2
	c3 := tr.issue(t, 3) // epoch 3

	// a witness of epoch 1 does not verify against later accumulators until updated
	acc3, err := tr.reg.Snapshot().AccumulatorAt(3)
	require.NoError(t, err)
	require.Error(t, c1.Verify(tr.pk, acc3))

	c1 = tr.update(t, c1, 3)
	require.NoError(t, tr.verify(c1))

	require.NoError(t, tr.reg.Revoke(c2.Index)) // epoch 4
	c1 = tr.update(t, c1, 4)
	c3 = tr.update(t, c3, 4)
	require.NoError(t, tr.verify(c1))
	require.NoError(t, tr.verify(c3))

	// the revoked credential's witness can be updated, but no longer verifies
	c2 = tr.update(t, c2, 4)
	require.Error(t, tr.verify(c2))

	// replaying backwards restores earlier witnesses
	back := tr.update(t, c1, 2)
	require.NoError(t, tr.verify(back))
	back = tr.update(t, c2, 3)
	require.NoError(t, tr.verify(back))

	// a witness cannot be brought before its own issuance
	_, err = tr.reg.Snapshot().UpdateWitness(c3.Witness, tr.tails, 4, 2)
	require.True(t, errors.Is(err, ErrWitnessUnavailable))

	// nor beyond the current epoch
	_, err = tr.reg.Snapshot().UpdateWitness(c3.Witness, tr.tails, 4, 5)
	require.True(t, errors.Is(err, ErrWitnessUnavailable))

	// the from epoch must be the epoch of the witness
	_, err = tr.reg.Snapshot().UpdateWitness(c3.Witness, tr.tails, 3, 4)
	require.Error(t, err)
}

func TestPrune(t *testing.T) {
	tr := setupRegistry(t, "prune")
	c1 := tr.issue(t, 1)
	tr.issue(t, 2)
	tr.issue(t, 3)

	snapshot := tr.reg.Snapshot()
	require.Error(t, tr.reg.Prune(3))
	require.NoError(t, tr.reg.Prune(2))

	pruned := tr.reg.Snapshot()
	require.Equal(t, uint64(2), pruned.RetainedFrom)
	require.Len(t, pruned.Deltas, 1)

	_, err := pruned.UpdateWitness(c1.Witness, tr.tails, 1, 3)
	require.True(t, errors.Is(err, ErrWitnessUnavailable))
	_, err = pruned.AccumulatorAt(1)
	require.True(t, errors.Is(err, ErrWitnessUnavailable))

	acc, err := pruned.AccumulatorAt(2)
	require.NoError(t, err)
	old, err := snapshot.AccumulatorAt(2)
	require.NoError(t, err)
	require.True(t, acc.Equal(old))

	// snapshots taken earlier are unaffected
	w, err := snapshot.UpdateWitness(c1.Witness, tr.tails, 1, 3)
	require.NoError(t, err)
	require.NoError(t, tr.verify(c1.Updated(w)))

	// the log keeps growing after pruning
	c4 := tr.issue(t, 4)
	require.NoError(t, tr.verify(c4))
	state, err := tr.reg.SignedState(rand.Reader)
	require.NoError(t, err)
	require.NoError(t, tr.reg.Snapshot().Verify(tr.pk, tr.tails, state))
}

func TestSignedState(t *testing.T) {
	tr := setupRegistry(t, "signed")
	tr.issue(t, 1)
	tr.issue(t, 2)
	require.NoError(t, tr.reg.Revoke(1))

	state, err := tr.reg.SignedState(rand.Reader)
	require.NoError(t, err)

	st, err := VerifyState(tr.pk, state)
	require.NoError(t, err)
	require.Equal(t, uint64(3), st.Epoch)
	require.Equal(t, tr.reg.ID, st.RegistryID)

	snapshot := tr.reg.Snapshot()
	require.NoError(t, snapshot.Verify(tr.pk, tr.tails, state))

	// a state signed by another registry is rejected
	other := setupRegistry(t, "other")
	_, err = VerifyState(other.pk, state)
	require.Error(t, err)

	// a tampered delta log is rejected
	tampered := *snapshot
	tampered.Deltas = append([]Delta(nil), snapshot.Deltas...)
	tampered.Deltas[1].Kind = Revoked
	require.Error(t, tampered.Verify(tr.pk, tr.tails, state))

	tampered.Deltas = append([]Delta(nil), snapshot.Deltas...)
	tampered.Deltas[0].ParentHash = "QmFoo"
	tampered.Deltas[1].ParentHash = "QmFoo"
	require.Error(t, tampered.Verify(tr.pk, tr.tails, state))

	// a stale state does not match the current snapshot
	tr.issue(t, 3)
	require.Error(t, tr.reg.Snapshot().Verify(tr.pk, tr.tails, state))
}

func TestSnapshotCBOR(t *testing.T) {
	tr := setupRegistry(t, "cbor")
	c1 := tr.issue(t, 1)
	tr.issue(t, 2)

	bts, err := cbor.Marshal(tr.reg.Snapshot())
	require.NoError(t, err)
	var snapshot Snapshot
	require.NoError(t, cbor.Unmarshal(bts, &snapshot))

	w, err := snapshot.UpdateWitness(c1.Witness, tr.tails, 1, 2)
	require.NoError(t, err)
	require.NoError(t, tr.verify(c1.Updated(w)))

	bts, err = cbor.Marshal(tr.pk)
	require.NoError(t, err)
	var pk PublicKey
	require.NoError(t, cbor.Unmarshal(bts, &pk))
	acc, err := snapshot.AccumulatorAt(2)
	require.NoError(t, err)
	require.NoError(t, c1.Updated(w).Verify(&pk, acc))
}

func TestSnapshotCarriesRegistryKey(t *testing.T) {
	tr := setupRegistry(t, "snapshot key")
	snap := tr.reg.Snapshot()
	require.Equal(t, "creddef", snap.CredDefID)
	require.Same(t, tr.pk, snap.PublicKey)
	require.Same(t, tr.tails, tr.reg.Tails())

	other := setupRegistry(t, "snapshot other key")
	require.False(t, other.reg.Snapshot().PublicKey.Y.Equal(snap.PublicKey.Y))
}

func TestPointDecodingChecksGroup(t *testing.T) {
	g := &G2{FP256BN.NewECP2()}
	g.Copy(GenG2)
	bts, err := g.MarshalBinary()
	require.NoError(t, err)
	decoded := &G2{}
	require.NoError(t, decoded.UnmarshalBinary(bts))
	require.True(t, decoded.Equal(g))

	// almost every point of the twist lies outside the group of prime order
	var outside *FP256BN.ECP2
	for x := 1; outside == nil; x++ {
		p := FP256BN.NewECP2fp2(FP256BN.NewFP2int(x))
		if !p.Is_infinity() && !p.Mul(curveOrder).Is_infinity() {
			outside = p
		}
	}
	err = (&G2{}).UnmarshalBinary(g2Bytes(outside))
	require.True(t, errors.Is(err, errInvalidPoint))

	h := &G1{FP256BN.NewECP()}
	h.Copy(GenG1)
	bts, err = h.MarshalBinary()
	require.NoError(t, err)
	require.NoError(t, (&G1{}).UnmarshalBinary(bts))
	require.Error(t, (&G1{}).UnmarshalBinary(bts[1:]))
}
