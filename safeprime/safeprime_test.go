package safeprime

import (
	"crypto/rand"
	"testing"

	"github.com/privacybydesign/anoncreds/big"
	"github.com/privacybydesign/anoncreds/internal/common"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	x, err := Generate(rand.Reader, 128, nil)

	require.NoError(t, err)
	require.NotNil(t, x)
	require.Equal(t, 128, x.BitLen())
	require.True(t, x.ProbablyPrime(100), "Generated number was not prime")

	y := new(big.Int).Sub(x, big.NewInt(1))
	y.Rsh(y, 1)

	require.True(t, y.ProbablyPrime(100), "Generated number was not a safe prime")
}

func TestGenerateDeterministic(t *testing.T) {
	x, err := Generate(common.NewSeededReader("safeprime"), 96, nil)
	require.NoError(t, err)
	y, err := Generate(common.NewSeededReader("safeprime"), 96, nil)
	require.NoError(t, err)
	require.Equal(t, 0, x.Cmp(y))
}

func TestGenerateStopped(t *testing.T) {
	stop := make(chan struct{})
	close(stop)
	// Far too large to finish within the first 1000 candidates
	_, err := Generate(rand.Reader, 1024, stop)
	require.Equal(t, ErrStopped, err)
}

func TestGenerateConcurrent(t *testing.T) {
	stop := make(chan struct{})
	ints, errs := GenerateConcurrent(rand.Reader, 128, stop)
	var primes []*big.Int
	for len(primes) < 2 {
		select {
		case x := <-ints:
			require.True(t, ProbablySafePrime(x, 40))
			primes = append(primes, x)
		case err := <-errs:
			require.NoError(t, err)
		}
	}
	close(stop)
}

func TestProbablySafePrime(t *testing.T) {
	require.True(t, ProbablySafePrime(big.NewInt(23), 20))
	require.False(t, ProbablySafePrime(big.NewInt(29), 20))
	require.False(t, ProbablySafePrime(big.NewInt(2), 20))
}
