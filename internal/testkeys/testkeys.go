// Package testkeys holds fixed safe primes so that tests need not generate
// 1024-bit keys, which takes several seconds.
package testkeys

import (
	"github.com/privacybydesign/anoncreds/big"
)

func s2big(s string) *big.Int {
	r, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("invalid test prime " + s)
	}
	return r
}

// Pairs of 512-bit safe primes whose product has exactly 1024 bits.
var (
	P1 = s2big("12511561644521105216249960315425509848310543851123625148071038103672749250653050780946327920540373585150518830678888836864183842100121288018131086700947919")
	Q1 = s2big("13175754961224278923898419496296790582860213842149399404614891067426616055648139811854869087421318470521236911637912285993998784296429335994419545592486183")

	P2 = s2big("11899204220405157066705854076362480104861239101931883074217284817546620402667365757487512145720112988257938861512783018148367540266552183843422556696835959")
	Q2 = s2big("11687675946826056427944301889720810769697676393649416932482597289652868791085152984663910808816076612347241543876183667586150260004323007396424045765933627")
)
