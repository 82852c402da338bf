package common

import (
	"encoding/hex"
	gobig "math/big"
	"testing"

	"github.com/privacybydesign/anoncreds/big"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashCommit(t *testing.T) {
	hashA := HashCommit([]*big.Int{big.NewInt(1), big.NewInt(2), big.NewInt(3)})
	hashB := HashCommit([]*big.Int{big.NewInt(1), nil, big.NewInt(3)})
	hashC := HashCommit([]*big.Int{big.NewInt(1), big.NewInt(2)})

	assert.NotEqual(t, 0, hashA.Cmp(hashB), "Hashes for A and B coincide")
	assert.NotEqual(t, 0, hashA.Cmp(hashC), "Hashes for A and C coincide")
	assert.NotEqual(t, 0, hashB.Cmp(hashC), "Hashes for B and C coincide")
	assert.Equal(t, 0, hashA.Cmp(HashCommit([]*big.Int{big.NewInt(1), big.NewInt(2), big.NewInt(3)})))
	assert.LessOrEqual(t, hashA.BitLen(), 256)
}

func TestMultihashString(t *testing.T) {
	a, err := MultihashString([]byte("tails"))
	require.NoError(t, err)
	b, err := MultihashString([]byte("tails"))
	require.NoError(t, err)
	c, err := MultihashString([]byte("tails'"))
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.NotEqual(t, a, c)

	mh, err := Multihash([]byte("tails"))
	require.NoError(t, err)
	require.Equal(t, []byte{0x12, 0x20}, []byte(mh[:2]))
}

func TestModPow(t *testing.T) {
	m := big.NewInt(23)
	r, err := ModPow(big.NewInt(5), big.NewInt(-1), m)
	require.NoError(t, err)
	require.Equal(t, int64(14), r.Int64()) // 5*14 = 70 = 1 mod 23

	_, err = ModPow(big.NewInt(46), big.NewInt(-1), m)
	require.Equal(t, ErrNoModInverse, err)

	r, err = MultiExp([]*big.Int{big.NewInt(2), big.NewInt(5)}, []*big.Int{big.NewInt(3), big.NewInt(-1)}, m)
	require.NoError(t, err)
	require.Equal(t, int64(8*14%23), r.Int64())
}

func TestFixedBase(t *testing.T) {
	rnd := NewSeededReader("fixedbase")
	modulus := new(big.Int).SetBytes([]byte("some modulus that is not prime at all"))
	modulus.SetBit(modulus, 0, 1)
	base := big.NewInt(65537)
	fb := NewFixedBase(base, modulus)
	for i := 0; i < 10; i++ {
		exp, err := RandomBigInt(rnd, uint(modulus.BitLen()-1))
		require.NoError(t, err)
		got, err := fb.Exp(exp)
		require.NoError(t, err)
		require.Equal(t, 0, got.Cmp(new(big.Int).Exp(base, exp, modulus)))
	}
	long := new(big.Int).Lsh(big.NewInt(3), uint(modulus.BitLen()+10))
	got, err := fb.Exp(long)
	require.NoError(t, err)
	require.Equal(t, 0, got.Cmp(new(big.Int).Exp(base, long, modulus)))
}

func TestCPRNG(t *testing.T) {
	var seed [32]byte
	for i := 0; i < 32; i++ {
		seed[i] = byte(i)
	}
	var a, b [100]byte
	rng1, err := NewCPRNG(&seed)
	require.NoError(t, err)
	rng2, err := NewCPRNG(&seed)
	require.NoError(t, err)

	_, _ = rng1.Read(a[:])
	_, _ = rng2.Read(b[:40])
	_, _ = rng2.Read(b[40:])
	// Reading in two chunks skips the tail of the partially used block.
	require.Equal(t, hex.EncodeToString(a[:40]), hex.EncodeToString(b[:40]))

	r1 := NewSeededReader("x")
	r2 := NewSeededReader("x")
	_, _ = r1.Read(a[:])
	_, _ = r2.Read(b[:])
	require.Equal(t, a, b)
}

func TestRandomPrimeInRange(t *testing.T) {
	rnd := NewSeededReader("primes")
	p, err := RandomPrimeInRange(rnd, 596, 119)
	require.NoError(t, err)
	require.True(t, p.ProbablyPrime(20))
	require.Equal(t, 597, p.BitLen())

	_, err = RandomPrimeInRange(rnd, 1, 10)
	require.Error(t, err)
}

func TestHasSmallFactor(t *testing.T) {
	require.False(t, hasSmallFactor(big.NewInt(53)))
	require.False(t, hasSmallFactor(big.NewInt(59)))
	require.True(t, hasSmallFactor(big.NewInt(3*59)))
	require.True(t, hasSmallFactor(new(big.Int).Mul(sieveProduct, big.NewInt(7))))
}

func TestRandomQR(t *testing.T) {
	rnd := NewSeededReader("qr")
	n := big.NewInt(23 * 47)
	x, err := RandomQR(rnd, n)
	require.NoError(t, err)
	// x is a square modulo both prime factors
	require.Equal(t, 1, gobig.Jacobi(x.Go(), gobig.NewInt(23)))
	require.Equal(t, 1, gobig.Jacobi(x.Go(), gobig.NewInt(47)))
}
