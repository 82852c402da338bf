package rangeproof

import (
	"github.com/privacybydesign/anoncreds/big"
)

// QrGroup represents the group of quadratic residues modulo n = p*q, i.e. ((Z/nZ)*)^2
// where p, q, (p-1)/2 and (q-1)/2 are all prime.
type QrGroup struct {
	N    *big.Int // RSA modulus
	R, S *big.Int // Base points in QR_n
}

func NewQrGroup(modulus, R, S *big.Int) *QrGroup {
	return &QrGroup{
		N: new(big.Int).Set(modulus),
		R: new(big.Int).Set(R),
		S: new(big.Int).Set(S),
	}
}
