package checksum

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSumDeterministic(t *testing.T) {
	a := Sum([]byte("hello world"))
	b := Sum([]byte("hello world"))
	require.Equal(t, a, b)
}

func TestSumDistinguishesInput(t *testing.T) {
	a := Sum([]byte("hello"))
	b := Sum([]byte("world"))
	require.NotEqual(t, a, b)
}

func TestHexRoundTrip(t *testing.T) {
	d := Sum([]byte("payload"))
	parsed, err := FromHex(d.Hex())
	require.NoError(t, err)
	require.True(t, d.Equal(parsed))
}

func TestFromHexInvalidLength(t *testing.T) {
	_, err := FromHex("abcd")
	require.Error(t, err)
}

func TestSumEmpty(t *testing.T) {
	d := Sum(nil)
	require.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", d.Hex())
}
