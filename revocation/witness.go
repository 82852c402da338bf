package revocation

import (
	"github.com/go-errors/errors"
	"github.com/hyperledger/fabric-amcl/amcl/FP256BN"
)

// Witness proves membership of Index in the accumulator of Epoch.
type Witness struct {
	Index uint32
	Epoch uint64
	Omega *G2
}

// UpdateWitness replays the deltas between the epochs from and to, in either direction, on
// a witness that is valid as of from. It returns ErrWitnessUnavailable when the deltas of the
// range are not in the snapshot. A witness replayed past the revocation of its own index is
// returned without error, but no longer verifies against the accumulator.
func (s *Snapshot) UpdateWitness(w *Witness, tails *Tails, from, to uint64) (*Witness, error) {
	if w == nil || w.Omega == nil {
		return nil, errors.WrapPrefix(ErrWitnessUnavailable, "no witness", 0)
	}
	if w.Epoch != from {
		return nil, errors.Errorf("witness is of epoch %d, not %d", w.Epoch, from)
	}
	if from < s.RetainedFrom || to < s.RetainedFrom {
		return nil, errors.WrapPrefix(ErrWitnessUnavailable, "deltas pruned from log", 0)
	}
	if from > s.Epoch || to > s.Epoch {
		return nil, errors.WrapPrefix(ErrWitnessUnavailable, "epoch not yet reached", 0)
	}

	omega := g2Copy(w.Omega.ECP2)
	apply := func(d *Delta, add bool) error {
		if d.Index == w.Index {
			if d.Kind == Issued && !add {
				return errors.WrapPrefix(ErrWitnessUnavailable, "epoch precedes issuance", 0)
			}
			return nil
		}
		t, err := tails.At(s.Capacity + 1 - d.Index + w.Index)
		if err != nil {
			return err
		}
		if add == (d.Kind == Issued) {
			omega.Add(t)
		} else {
			omega.Sub(t)
		}
		return nil
	}

	// Deltas[k] starts epoch RetainedFrom+k+1
	if to > from {
		for e := from + 1; e <= to; e++ {
			if err := apply(&s.Deltas[e-s.RetainedFrom-1], true); err != nil {
				return nil, err
			}
		}
	} else {
		for e := from; e > to; e-- {
			if err := apply(&s.Deltas[e-s.RetainedFrom-1], false); err != nil {
				return nil, err
			}
		}
	}

	Logger.WithField("index", w.Index).Tracef("updated witness from epoch %d to %d", from, to)
	return &Witness{Index: w.Index, Epoch: to, Omega: &G2{omega}}, nil
}

// verifyWitness checks e(g_i, acc) = z * e(g, omega).
func verifyWitness(pk *PublicKey, gi *FP256BN.ECP, omega, acc *FP256BN.ECP2) bool {
	lhs := pair(gi, acc)
	rhs := FP256BN.NewFP12copy(pk.Z.FP12)
	rhs.Mul(pair(GenG1, omega))
	return lhs.Equals(rhs)
}
