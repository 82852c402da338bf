package signed

import (
	"crypto/rand"
	"testing"

	"github.com/go-errors/errors"
	"github.com/privacybydesign/anoncreds/big"
	"github.com/stretchr/testify/require"
)

type state struct {
	Registry string
	Epoch    uint64
	Value    *big.Int
	Parent   *state
}

func TestMarshalSign(t *testing.T) {
	sk, err := GenerateKey(rand.Reader)
	require.NoError(t, err)

	i, err := big.RandInt(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	require.NoError(t, err)

	before := state{Registry: "r1", Epoch: 3, Value: i, Parent: &state{Registry: "r1", Epoch: 2}}
	msg, err := MarshalSign(rand.Reader, sk, before)
	require.NoError(t, err)

	var after state
	require.NoError(t, UnmarshalVerify(&sk.PublicKey, msg, &after))
	require.Equal(t, before.Registry, after.Registry)
	require.Equal(t, before.Epoch, after.Epoch)
	require.Equal(t, 0, before.Value.Cmp(after.Value))
	require.Equal(t, before.Parent.Epoch, after.Parent.Epoch)
}

func TestUnmarshalVerifyWrongKey(t *testing.T) {
	sk, err := GenerateKey(rand.Reader)
	require.NoError(t, err)
	other, err := GenerateKey(rand.Reader)
	require.NoError(t, err)

	msg, err := MarshalSign(rand.Reader, sk, state{Registry: "r1"})
	require.NoError(t, err)

	var after state
	err = UnmarshalVerify(&other.PublicKey, msg, &after)
	require.True(t, errors.Is(err, ErrInvalidSignature))
}

func TestVerifyTampered(t *testing.T) {
	sk, err := GenerateKey(rand.Reader)
	require.NoError(t, err)

	sig, err := Sign(rand.Reader, sk, []byte("epoch 1"))
	require.NoError(t, err)
	require.NoError(t, Verify(&sk.PublicKey, []byte("epoch 1"), sig))
	require.Error(t, Verify(&sk.PublicKey, []byte("epoch 2"), sig))
	require.Error(t, Verify(&sk.PublicKey, []byte("epoch 1"), []byte{0x30, 0x00}))
}

func TestKeyMarshaling(t *testing.T) {
	sk, err := GenerateKey(rand.Reader)
	require.NoError(t, err)

	bts, err := MarshalPrivateKey(sk)
	require.NoError(t, err)
	sk2, err := UnmarshalPrivateKey(bts)
	require.NoError(t, err)
	require.True(t, sk.Equal(sk2))

	pem, err := MarshalPemPublicKey(&sk.PublicKey)
	require.NoError(t, err)
	pk, err := UnmarshalPemPublicKey(pem)
	require.NoError(t, err)
	require.True(t, sk.PublicKey.Equal(pk))

	_, err = UnmarshalPemPublicKey([]byte("garbage"))
	require.Error(t, err)
}
