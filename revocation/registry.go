package revocation

import (
	"io"
	"sync"

	"github.com/go-errors/errors"
	"github.com/google/uuid"
	"github.com/hyperledger/fabric-amcl/amcl/FP256BN"
	"github.com/privacybydesign/anoncreds/big"
	"github.com/privacybydesign/anoncreds/cbor"
	"github.com/privacybydesign/anoncreds/internal/common"
	"github.com/privacybydesign/anoncreds/signed"
	"github.com/sirupsen/logrus"
)

var (
	ErrAlreadyRevoked     = errors.New("index already revoked")
	ErrRegistryFull       = errors.New("revocation registry is full")
	ErrWitnessUnavailable = errors.New("witness unavailable for requested epoch")
	ErrUnknownIndex       = errors.New("index was never issued")
)

// IndexStatus is the state of a single index of a registry. Indices move from
// Unassigned to Issued to Revoked, and never back.
type IndexStatus uint8

const (
	Unassigned IndexStatus = iota
	Issued
	Revoked
)

func (s IndexStatus) String() string {
	switch s {
	case Issued:
		return "issued"
	case Revoked:
		return "revoked"
	default:
		return "unassigned"
	}
}

type (
	// Delta records a single change of the accumulator. Each delta starts a new epoch;
	// ParentHash is the multihash of the CBOR encoding of the preceding delta, or of the
	// registry ID for the first one.
	Delta struct {
		Epoch       uint64
		Index       uint32
		Kind        IndexStatus
		Accumulator *G2
		ParentHash  string
	}

	// Registry holds the accumulator of a revocation registry and its delta log. Every
	// registry has its own key pair and tails. All mutations are serialized; readers work
	// on Snapshots.
	Registry struct {
		ID        string
		CredDefID string
		PublicKey *PublicKey

		sk    *PrivateKey
		tails *Tails

		mu           sync.Mutex
		acc          *G2
		epoch        uint64
		allocated    uint32
		status       []IndexStatus
		base         *G2
		retainedFrom uint64
		deltas       []Delta
	}

	// Snapshot is an immutable view of a registry as of one epoch, containing the retained
	// part of its delta log.
	Snapshot struct {
		RegistryID   string
		CredDefID    string
		PublicKey    *PublicKey
		Capacity     uint32
		Epoch        uint64
		Accumulator  *G2
		RetainedFrom uint64
		Base         *G2 // accumulator as of RetainedFrom
		Deltas       []Delta
	}

	// AccumulatorState is the message signed by a registry to publish its accumulator.
	AccumulatorState struct {
		RegistryID  string
		Epoch       uint64
		Accumulator *G2
		Head        string // multihash of the last delta
	}
)

// NewRegistry creates an empty registry at epoch 0 for the given key pair and tails,
// with a random identifier. The key pair must not be shared with other registries.
func NewRegistry(rnd io.Reader, credDefID string, pk *PublicKey, sk *PrivateKey, tails *Tails) (*Registry, error) {
	if err := tails.Validate(pk); err != nil {
		return nil, err
	}
	if sk.Capacity != pk.Capacity {
		return nil, errors.New("private key does not match public key")
	}
	id, err := uuid.NewRandomFromReader(rnd)
	if err != nil {
		return nil, err
	}
	empty := &G2{FP256BN.NewECP2()}
	return &Registry{
		ID:        id.String(),
		CredDefID: credDefID,
		PublicKey: pk,
		sk:        sk,
		tails:     tails,
		acc:       empty,
		base:      empty,
		status:    make([]IndexStatus, pk.Capacity),
	}, nil
}

// Tails returns the tails of the registry, which holders need to update their witnesses.
func (r *Registry) Tails() *Tails {
	return r.tails
}

func (r *Registry) Epoch() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.epoch
}

func (r *Registry) Status(index uint32) IndexStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	if index == 0 || index > uint32(len(r.status)) {
		return Unassigned
	}
	return r.status[index-1]
}

// Full reports whether all indices of the registry have been allocated.
func (r *Registry) Full() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.allocated == r.PublicKey.Capacity
}

// AllocateIndex claims the next free index, adds it to the accumulator, and returns it
// together with its witness as of the new epoch.
func (r *Registry) AllocateIndex() (uint32, *Witness, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	L := r.PublicKey.Capacity
	if r.allocated == L {
		return 0, nil, ErrRegistryFull
	}
	i := r.allocated + 1

	omega := FP256BN.NewECP2()
	for j := uint32(1); j <= r.allocated; j++ {
		if r.status[j-1] != Issued {
			continue
		}
		t, err := r.tails.At(L + 1 - j + i)
		if err != nil {
			return 0, nil, err
		}
		omega.Add(t)
	}

	t, err := r.tails.At(L + 1 - i)
	if err != nil {
		return 0, nil, err
	}
	acc := g2Copy(r.acc.ECP2)
	acc.Add(t)
	if err = r.appendDelta(i, Issued, acc); err != nil {
		return 0, nil, err
	}
	r.allocated = i
	r.status[i-1] = Issued

	Logger.WithFields(logrus.Fields{"registry": r.ID, "index": i, "epoch": r.epoch}).Debug("allocated index")
	return i, &Witness{Index: i, Epoch: r.epoch, Omega: &G2{omega}}, nil
}

// Issue allocates an index and issues a non-revocation credential for it, bound to the
// credential context m2 of the primary credential.
func (r *Registry) Issue(rnd io.Reader, m2 *big.Int) (*Credential, error) {
	index, witness, err := r.AllocateIndex()
	if err != nil {
		return nil, err
	}
	cred, err := r.sk.IssueCredential(rnd, r.PublicKey, index, m2)
	if err != nil {
		return nil, err
	}
	cred.RegistryID = r.ID
	cred.Witness = witness
	return cred, nil
}

// Revoke removes the index from the accumulator, starting a new epoch.
func (r *Registry) Revoke(index uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if index == 0 || index > r.allocated {
		return errors.WrapPrefix(ErrUnknownIndex, "cannot revoke", 0)
	}
	if r.status[index-1] == Revoked {
		return ErrAlreadyRevoked
	}

	t, err := r.tails.At(r.PublicKey.Capacity + 1 - index)
	if err != nil {
		return err
	}
	acc := g2Copy(r.acc.ECP2)
	acc.Sub(t)
	if err = r.appendDelta(index, Revoked, acc); err != nil {
		return err
	}
	r.status[index-1] = Revoked

	Logger.WithFields(logrus.Fields{"registry": r.ID, "index": index, "epoch": r.epoch}).Debug("revoked index")
	return nil
}

// appendDelta must be called with r.mu held.
func (r *Registry) appendDelta(index uint32, kind IndexStatus, acc *FP256BN.ECP2) error {
	parent, err := r.head()
	if err != nil {
		return err
	}
	d := Delta{
		Epoch:       r.epoch + 1,
		Index:       index,
		Kind:        kind,
		Accumulator: &G2{acc},
		ParentHash:  parent,
	}
	r.deltas = append(r.deltas, d)
	r.epoch = d.Epoch
	r.acc = d.Accumulator
	return nil
}

// head returns the hash to which the next delta links. Must be called with r.mu held.
func (r *Registry) head() (string, error) {
	if len(r.deltas) == 0 {
		if r.retainedFrom > 0 {
			return "", errors.New("registry log pruned up to its last delta")
		}
		return common.MultihashString([]byte(r.ID))
	}
	return r.deltas[len(r.deltas)-1].hash()
}

func (d *Delta) hash() (string, error) {
	bts, err := cbor.Marshal(d)
	if err != nil {
		return "", err
	}
	return common.MultihashString(bts)
}

// Prune drops all deltas up to and including the given epoch from the log. Witnesses older
// than that epoch can no longer be updated.
func (r *Registry) Prune(before uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// keep at least the last delta so that new deltas can link to it
	if before >= r.epoch {
		return errors.Errorf("cannot prune up to epoch %d: current epoch is %d", before, r.epoch)
	}
	if before <= r.retainedFrom {
		return nil
	}
	drop := before - r.retainedFrom
	r.base = r.deltas[drop-1].Accumulator
	r.deltas = append([]Delta(nil), r.deltas[drop:]...)
	r.retainedFrom = before

	Logger.WithFields(logrus.Fields{"registry": r.ID, "retainedFrom": before}).Debug("pruned delta log")
	return nil
}

// Snapshot returns an immutable view of the registry as of its current epoch.
func (r *Registry) Snapshot() *Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return &Snapshot{
		RegistryID:   r.ID,
		CredDefID:    r.CredDefID,
		PublicKey:    r.PublicKey,
		Capacity:     r.PublicKey.Capacity,
		Epoch:        r.epoch,
		Accumulator:  r.acc,
		RetainedFrom: r.retainedFrom,
		Base:         r.base,
		Deltas:       append([]Delta(nil), r.deltas...),
	}
}

// SignedState signs the current accumulator state of the registry.
func (r *Registry) SignedState(rnd io.Reader) (signed.Message, error) {
	r.mu.Lock()
	state := AccumulatorState{RegistryID: r.ID, Epoch: r.epoch, Accumulator: r.acc}
	var err error
	if len(r.deltas) > 0 {
		state.Head, err = r.deltas[len(r.deltas)-1].hash()
	}
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return signed.MarshalSign(rnd, r.sk.ECDSA, &state)
}

// VerifyState verifies a signed accumulator state against the registry public key.
func VerifyState(pk *PublicKey, msg signed.Message) (*AccumulatorState, error) {
	key, err := pk.ECDSAKey()
	if err != nil {
		return nil, err
	}
	state := &AccumulatorState{}
	if err = signed.UnmarshalVerify(key, msg, state); err != nil {
		return nil, err
	}
	return state, nil
}

// AccumulatorAt returns the accumulator as of the given epoch.
func (s *Snapshot) AccumulatorAt(epoch uint64) (*G2, error) {
	switch {
	case epoch > s.Epoch:
		return nil, errors.WrapPrefix(ErrWitnessUnavailable, "epoch lies in the future", 0)
	case epoch < s.RetainedFrom:
		return nil, errors.WrapPrefix(ErrWitnessUnavailable, "epoch was pruned", 0)
	case epoch == s.RetainedFrom:
		return s.Base, nil
	default:
		return s.Deltas[epoch-s.RetainedFrom-1].Accumulator, nil
	}
}

// Verify checks that the retained delta log is consistently linked, that replaying it from
// the base leads to the snapshot accumulator, and that the snapshot matches the signed state.
func (s *Snapshot) Verify(pk *PublicKey, tails *Tails, state signed.Message) error {
	acc := g2Copy(s.Base.ECP2)
	for k := range s.Deltas {
		d := &s.Deltas[k]
		if d.Epoch != s.RetainedFrom+uint64(k)+1 {
			return errors.Errorf("delta %d has wrong epoch %d", k, d.Epoch)
		}
		if k > 0 {
			h, err := s.Deltas[k-1].hash()
			if err != nil {
				return err
			}
			if h != d.ParentHash {
				return errors.Errorf("delta for epoch %d does not link to its parent", d.Epoch)
			}
		}
		t, err := tails.At(s.Capacity + 1 - d.Index)
		if err != nil {
			return err
		}
		switch d.Kind {
		case Issued:
			acc.Add(t)
		case Revoked:
			acc.Sub(t)
		default:
			return errors.Errorf("delta for epoch %d has invalid kind", d.Epoch)
		}
		if !acc.Equals(d.Accumulator.ECP2) {
			return errors.Errorf("delta for epoch %d has wrong accumulator", d.Epoch)
		}
	}

	st, err := VerifyState(pk, state)
	if err != nil {
		return err
	}
	if st.RegistryID != s.RegistryID || st.Epoch != s.Epoch || !st.Accumulator.ECP2.Equals(s.Accumulator.ECP2) {
		return errors.New("signed state does not match snapshot")
	}
	if len(s.Deltas) > 0 {
		h, err := s.Deltas[len(s.Deltas)-1].hash()
		if err != nil {
			return err
		}
		if h != st.Head {
			return errors.New("signed state does not match delta log")
		}
	}
	return nil
}
