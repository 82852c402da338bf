package common

import (
	"github.com/bwesterb/go-exptable"
	"github.com/privacybydesign/anoncreds/big"
)

// FixedBase speeds up repeated exponentiation of one base modulo one modulus with
// a precomputed window table. Exponents longer than the modulus, and negative ones,
// fall back to ordinary exponentiation.
type FixedBase struct {
	base, modulus *big.Int
	table         exptable.Table
}

func NewFixedBase(base, modulus *big.Int) *FixedBase {
	fb := &FixedBase{base: base, modulus: modulus}
	fb.table.Compute(base.Go(), modulus.Go(), 7)
	return fb
}

// Exp returns base^exp mod modulus.
func (fb *FixedBase) Exp(exp *big.Int) (*big.Int, error) {
	if exp.Sign() < 0 || exp.BitLen() >= fb.modulus.BitLen() {
		return ModPow(fb.base, exp, fb.modulus)
	}
	ret := new(big.Int)
	fb.table.Exp(ret.Go(), exp.Go())
	return ret, nil
}
