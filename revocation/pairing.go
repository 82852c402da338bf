package revocation

import (
	"encoding/base64"
	"io"

	"github.com/go-errors/errors"
	"github.com/hyperledger/fabric-amcl/amcl/FP256BN"
	"github.com/privacybydesign/anoncreds/big"
)

// Generators and order of the FP256BN pairing groups.
var (
	GenG1 = FP256BN.NewECPbigs(
		FP256BN.NewBIGints(FP256BN.CURVE_Gx),
		FP256BN.NewBIGints(FP256BN.CURVE_Gy))

	GenG2 = FP256BN.NewECP2fp2s(
		FP256BN.NewFP2bigs(FP256BN.NewBIGints(FP256BN.CURVE_Pxa), FP256BN.NewBIGints(FP256BN.CURVE_Pxb)),
		FP256BN.NewFP2bigs(FP256BN.NewBIGints(FP256BN.CURVE_Pya), FP256BN.NewBIGints(FP256BN.CURVE_Pyb)))

	GroupOrder = bigFromBIG(curveOrder)

	curveOrder = FP256BN.NewBIGints(FP256BN.CURVE_Order)
	fieldBytes = int(FP256BN.MODBYTES)
)

var errInvalidPoint = errors.New("invalid group element encoding")

// bigToBIG reduces x modulo the group order and converts it to an amcl BIG.
func bigToBIG(x *big.Int) *FP256BN.BIG {
	r := new(big.Int).Mod(x, GroupOrder)
	return FP256BN.FromBytes(r.FillBytes(make([]byte, fieldBytes)))
}

func bigFromBIG(b *FP256BN.BIG) *big.Int {
	buf := make([]byte, fieldBytes)
	b.ToBytes(buf)
	return new(big.Int).SetBytes(buf)
}

// randomScalar returns a uniformly random nonzero element of Z_q.
func randomScalar(rnd io.Reader) (*big.Int, error) {
	for {
		x, err := big.RandInt(rnd, GroupOrder)
		if err != nil {
			return nil, err
		}
		if x.Sign() != 0 {
			return x, nil
		}
	}
}

func modQ(x *big.Int) *big.Int {
	return new(big.Int).Mod(x, GroupOrder)
}

// g1Mul returns p^x, written additively as x·p.
func g1Mul(p *FP256BN.ECP, x *big.Int) *FP256BN.ECP {
	return FP256BN.G1mul(p, bigToBIG(x))
}

func g2Mul(p *FP256BN.ECP2, x *big.Int) *FP256BN.ECP2 {
	return FP256BN.G2mul(p, bigToBIG(x))
}

// g1Sum returns the sum of the given points; none of the arguments is modified.
func g1Sum(points ...*FP256BN.ECP) *FP256BN.ECP {
	r := FP256BN.NewECP()
	for _, p := range points {
		r.Add(p)
	}
	return r
}

func g2Copy(p *FP256BN.ECP2) *FP256BN.ECP2 {
	r := FP256BN.NewECP2()
	r.Copy(p)
	return r
}

// pair computes the reduced Ate pairing e(p, q), mapping the point at infinity to 1.
func pair(p *FP256BN.ECP, q *FP256BN.ECP2) *FP256BN.FP12 {
	if p.Is_infinity() || q.Is_infinity() {
		return FP256BN.NewFP12int(1)
	}
	return FP256BN.Fexp(FP256BN.Ate(q, p))
}

// pairProduct computes prod_i e(ps[i], qs[i]).
func pairProduct(ps []*FP256BN.ECP, qs []*FP256BN.ECP2) *FP256BN.FP12 {
	r := FP256BN.NewFP12int(1)
	for i := range ps {
		r.Mul(pair(ps[i], qs[i]))
	}
	return r
}

func gtPow(x *FP256BN.FP12, e *big.Int) *FP256BN.FP12 {
	return FP256BN.GTpow(x, bigToBIG(e))
}

// Encodings. G1 points are encoded as x||y, G2 points as xa||xb||ya||yb, each coordinate
// taking fieldBytes bytes; the point at infinity is encoded as the empty string.

func g1Bytes(p *FP256BN.ECP) []byte {
	if p.Is_infinity() {
		return []byte{}
	}
	buf := make([]byte, 2*fieldBytes)
	p.GetX().ToBytes(buf[:fieldBytes])
	p.GetY().ToBytes(buf[fieldBytes:])
	return buf
}

func g1FromBytes(b []byte) (*FP256BN.ECP, error) {
	if len(b) == 0 {
		return FP256BN.NewECP(), nil
	}
	if len(b) != 2*fieldBytes {
		return nil, errInvalidPoint
	}
	p := FP256BN.NewECPbigs(FP256BN.FromBytes(b[:fieldBytes]), FP256BN.FromBytes(b[fieldBytes:]))
	if p.Is_infinity() {
		return nil, errors.WrapPrefix(errInvalidPoint, "point not on curve", 0)
	}
	if !p.Mul(curveOrder).Is_infinity() {
		return nil, errors.WrapPrefix(errInvalidPoint, "point not in group", 0)
	}
	return p, nil
}

func g2Bytes(p *FP256BN.ECP2) []byte {
	if p.Is_infinity() {
		return []byte{}
	}
	buf := make([]byte, 4*fieldBytes)
	x, y := p.GetX(), p.GetY()
	x.GetA().ToBytes(buf[:fieldBytes])
	x.GetB().ToBytes(buf[fieldBytes : 2*fieldBytes])
	y.GetA().ToBytes(buf[2*fieldBytes : 3*fieldBytes])
	y.GetB().ToBytes(buf[3*fieldBytes:])
	return buf
}

func g2FromBytes(b []byte) (*FP256BN.ECP2, error) {
	if len(b) == 0 {
		return FP256BN.NewECP2(), nil
	}
	if len(b) != 4*fieldBytes {
		return nil, errInvalidPoint
	}
	p := FP256BN.NewECP2fp2s(
		FP256BN.NewFP2bigs(FP256BN.FromBytes(b[:fieldBytes]), FP256BN.FromBytes(b[fieldBytes:2*fieldBytes])),
		FP256BN.NewFP2bigs(FP256BN.FromBytes(b[2*fieldBytes:3*fieldBytes]), FP256BN.FromBytes(b[3*fieldBytes:])))
	if p.Is_infinity() {
		return nil, errors.WrapPrefix(errInvalidPoint, "point not on twist", 0)
	}
	if !p.Mul(curveOrder).Is_infinity() {
		return nil, errors.WrapPrefix(errInvalidPoint, "point not in group", 0)
	}
	return p, nil
}

func gtBytes(x *FP256BN.FP12) []byte {
	buf := make([]byte, 12*fieldBytes)
	x.ToBytes(buf)
	return buf
}

// The following types wrap amcl group elements so that they can be embedded in structs
// that are serialized with CBOR or JSON.
type (
	G1 struct{ *FP256BN.ECP }
	G2 struct{ *FP256BN.ECP2 }
	GT struct{ *FP256BN.FP12 }
)

func (p *G1) MarshalBinary() ([]byte, error) { return g1Bytes(p.ECP), nil }

func (p *G1) UnmarshalBinary(b []byte) (err error) {
	p.ECP, err = g1FromBytes(b)
	return
}

func (p *G1) MarshalText() ([]byte, error) { return encodeText(g1Bytes(p.ECP)), nil }

func (p *G1) UnmarshalText(b []byte) error {
	bts, err := decodeText(b)
	if err != nil {
		return err
	}
	return p.UnmarshalBinary(bts)
}

// Int returns the encoding of the point as an integer, for hashing into challenges.
func (p *G1) Int() *big.Int { return new(big.Int).SetBytes(g1Bytes(p.ECP)) }

func (p *G2) MarshalBinary() ([]byte, error) { return g2Bytes(p.ECP2), nil }

func (p *G2) UnmarshalBinary(b []byte) (err error) {
	p.ECP2, err = g2FromBytes(b)
	return
}

func (p *G2) MarshalText() ([]byte, error) { return encodeText(g2Bytes(p.ECP2)), nil }

func (p *G2) UnmarshalText(b []byte) error {
	bts, err := decodeText(b)
	if err != nil {
		return err
	}
	return p.UnmarshalBinary(bts)
}

func (p *G2) Int() *big.Int { return new(big.Int).SetBytes(g2Bytes(p.ECP2)) }

// Equal reports whether p and q represent the same point.
func (p *G2) Equal(q *G2) bool {
	if p == nil || q == nil || p.ECP2 == nil || q.ECP2 == nil {
		return false
	}
	return p.ECP2.Equals(q.ECP2)
}

func (x *GT) MarshalBinary() ([]byte, error) { return gtBytes(x.FP12), nil }

func (x *GT) UnmarshalBinary(b []byte) error {
	if len(b) != 12*fieldBytes {
		return errInvalidPoint
	}
	x.FP12 = FP256BN.FP12_fromBytes(b)
	return nil
}

func (x *GT) MarshalText() ([]byte, error) { return encodeText(gtBytes(x.FP12)), nil }

func (x *GT) UnmarshalText(b []byte) error {
	bts, err := decodeText(b)
	if err != nil {
		return err
	}
	return x.UnmarshalBinary(bts)
}

func encodeText(b []byte) []byte {
	buf := make([]byte, base64.StdEncoding.EncodedLen(len(b)))
	base64.StdEncoding.Encode(buf, b)
	return buf
}

func decodeText(b []byte) ([]byte, error) {
	buf := make([]byte, base64.StdEncoding.DecodedLen(len(b)))
	n, err := base64.StdEncoding.Decode(buf, b)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}
