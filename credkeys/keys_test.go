package credkeys

import (
	gobig "math/big"
	"testing"

	"github.com/go-errors/errors"
	"github.com/privacybydesign/anoncreds/big"
	"github.com/privacybydesign/anoncreds/internal/common"
	"github.com/privacybydesign/anoncreds/internal/testkeys"
	"github.com/privacybydesign/anoncreds/safeprime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAttrs = []string{"name", "age", "height"}

func testKeyPair(t *testing.T, seed string) (*PublicKey, *PrivateKey) {
	pk, sk, err := NewKeyPairFromPrimes(common.NewSeededReader(seed), DefaultSystemParameters[1024],
		testkeys.P1, testkeys.Q1, testAttrs)
	require.NoError(t, err)
	return pk, sk
}

func isQR(x *big.Int, sk *PrivateKey) bool {
	return gobig.Jacobi(x.Go(), sk.P.Go()) == 1 && gobig.Jacobi(x.Go(), sk.Q.Go()) == 1
}

func TestNewKeyPairFromPrimes(t *testing.T) {
	pk, sk := testKeyPair(t, "keys")
	require.NoError(t, pk.Validate())
	require.NoError(t, sk.Validate())

	assert.Equal(t, 0, pk.N.Cmp(sk.N))
	assert.Len(t, pk.R, len(testAttrs))
	assert.True(t, isQR(pk.S, sk), "S is not a quadratic residue")
	for _, b := range pk.provenBases() {
		assert.True(t, isQR(b, sk), "base is not a quadratic residue")
	}

	// every base is S raised to its secret exponent
	for i, b := range pk.provenBases() {
		assert.Equal(t, 0, new(big.Int).Exp(pk.S, sk.exponents()[i], pk.N).Cmp(b))
	}

	assert.Equal(t, 0, pk.Base("age").Cmp(pk.R[1]))
	assert.Nil(t, pk.Base("weight"))
}

func TestNewKeyPairDeterministic(t *testing.T) {
	pk1, _ := testKeyPair(t, "same seed")
	pk2, _ := testKeyPair(t, "same seed")
	pk3, _ := testKeyPair(t, "other seed")
	assert.Equal(t, 0, pk1.S.Cmp(pk2.S))
	assert.Equal(t, 0, pk1.Z.Cmp(pk2.Z))
	assert.NotEqual(t, 0, pk1.S.Cmp(pk3.S))
}

func TestNewKeyPairRejectsUnsafePrimes(t *testing.T) {
	p := new(big.Int).Add(testkeys.P1, big.NewInt(2))
	_, _, err := NewKeyPairFromPrimes(common.NewSeededReader("x"), DefaultSystemParameters[1024], p, testkeys.Q1, testAttrs)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrKeyGen))
}

func TestKeyCorrectnessProof(t *testing.T) {
	pk, sk := testKeyPair(t, "keyproof")
	proof, err := sk.NewKeyCorrectnessProof(common.NewSeededReader("proof"), pk)
	require.NoError(t, err)
	require.True(t, proof.Verify(pk))

	tampered := *pk
	tampered.R = append([]*big.Int{}, pk.R...)
	tampered.R[2] = new(big.Int).Add(pk.R[2], big.NewInt(1))
	require.False(t, proof.Verify(&tampered))

	proof.Responses[0].Add(proof.Responses[0], big.NewInt(1))
	require.False(t, proof.Verify(pk))
}

func TestKeyProofChallengeBindsGroup(t *testing.T) {
	pk, _ := testKeyPair(t, "keyproof group")
	commitments := []*big.Int{big.NewInt(2), big.NewInt(3)}
	c := keyProofChallenge(pk, commitments)
	require.Zero(t, c.Cmp(keyProofChallenge(pk, commitments)))

	otherS := *pk
	otherS.S = new(big.Int).Add(pk.S, big.NewInt(1))
	require.NotZero(t, c.Cmp(keyProofChallenge(&otherS, commitments)))

	otherN := *pk
	otherN.N = new(big.Int).Add(pk.N, big.NewInt(2))
	require.NotZero(t, c.Cmp(keyProofChallenge(&otherN, commitments)))
}

var smallParams = &SystemParameters{
	BaseParameters{LePrime: 120, Lh: 256, Lm: 256, Ln: 256, Lstatzk: 80},
	MakeDerivedParameters(BaseParameters{LePrime: 120, Lh: 256, Lm: 256, Ln: 256, Lstatzk: 80}),
}

func TestGenerateKeyPair(t *testing.T) {
	pk, sk, err := GenerateKeyPair(common.NewSeededReader("generate"), smallParams, testAttrs)
	require.NoError(t, err)
	require.NoError(t, pk.Validate())

	assert.True(t, safeprime.ProbablySafePrime(sk.P, 40))
	assert.True(t, safeprime.ProbablySafePrime(sk.Q, 40))
	assert.Equal(t, 256, pk.N.BitLen())

	eight := big.NewInt(8)
	assert.NotEqual(t, 0, new(big.Int).Mod(sk.PPrime, eight).Cmp(big.NewInt(1)), "p' != 1 (mod 8) does not hold!")
	assert.NotEqual(t, 0, new(big.Int).Mod(sk.P, eight).Cmp(new(big.Int).Mod(sk.Q, eight)), "p != q (mod 8) does not hold!")
}

func TestGenerateKeyPairRetryBudget(t *testing.T) {
	old := MaxKeyGenAttempts
	MaxKeyGenAttempts = 0
	defer func() { MaxKeyGenAttempts = old }()

	_, _, err := GenerateKeyPair(common.NewSeededReader("budget"), smallParams, testAttrs)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrKeyGen))
}

func TestGenerateKeyPair1024(t *testing.T) {
	if testing.Short() {
		t.Skip("generating 1024-bit keys is slow")
	}
	pk, sk, err := GenerateKeyPair(common.NewSeededReader("generate 1024"), DefaultSystemParameters[1024], testAttrs)
	require.NoError(t, err)
	require.NoError(t, pk.Validate())
	require.NoError(t, sk.Validate())
}

func TestDefaultKeyLengths(t *testing.T) {
	require.Equal(t, []int{1024, 2048, 4096}, DefaultKeyLengths)
	p := DefaultSystemParameters[2048]
	require.Equal(t, p.Lstatzk+p.Lh+p.Lm+5, p.Le)
}
