package cbor

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeterministic(t *testing.T) {
	m := map[string]int{"zeta": 1, "a": 2, "mid": 3}
	first, err := Marshal(m)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Marshal(map[string]int{"mid": 3, "a": 2, "zeta": 1})
		require.NoError(t, err)
		require.Equal(t, first, again)
	}

	var buf bytes.Buffer
	require.NoError(t, NewEncoder(&buf).Encode(m))
	require.Equal(t, first, buf.Bytes())

	var decoded map[string]int
	require.NoError(t, NewDecoder(&buf).Decode(&decoded))
	require.Equal(t, m, decoded)
}

func TestDecodeRejects(t *testing.T) {
	var m map[int]int
	require.Error(t, Unmarshal([]byte{0xa2, 0x01, 0x01, 0x01, 0x02}, &m), "duplicate key")

	var list []int
	require.Error(t, Unmarshal([]byte{0x9f, 0x01, 0xff}, &list), "indefinite length")

	var x interface{}
	require.Error(t, Unmarshal([]byte{0xc1, 0x01}, &x), "tag")

	require.NoError(t, Valid([]byte{0x01}))
	require.Error(t, Valid([]byte{0x01, 0x01}))
}
