package bls

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

// Known scalar/point pairs: sk=1 is the G1 generator, and the second
// pair is the secret/pubkey of the EIP-2335 keystore test vector.
func TestSkToPk(t *testing.T) {
	testCases := []struct {
		sk string // decimal or hex (0x)
		pk string
	}{
		{
			sk: "1",
			pk: "97f1d3a73197d7942695638c4fa9ac0fc3688c4f9774b905a14e3a3f171bac586c55e83ff97a1aeffb3af00adb22c6bb",
		},
		{
			sk: "0x000000000019d6689c085ae165831e934ff763ae46a2a6c172b3f1b60a8ce26f",
			pk: "9612d7a727c9d0a22e185a1c768478dfe919cada9266988cb32359c11f2b7b27f4ae4040902382ae2910c15e2b420d07",
		},
	}
	for _, tc := range testCases {
		sk, ok := new(big.Int).SetString(tc.sk, 0)
		require.True(t, ok)
		pk, err := SkToPk(sk)
		require.NoError(t, err)
		require.Equal(t, tc.pk, hex.EncodeToString(pk[:]))
	}
}

func TestSkToPkRange(t *testing.T) {
	_, err := SkToPk(big.NewInt(0))
	require.Error(t, err)

	_, err = SkToPk(new(big.Int).Set(CurveOrder))
	require.Error(t, err)

	_, err = SkToPk(new(big.Int).Sub(CurveOrder, big.NewInt(1)))
	require.NoError(t, err)
}

func TestSignVerify(t *testing.T) {
	sk, ok := new(big.Int).SetString("263dbd792f5b1be47ed85f8938c0f29586af0d3ac7b977f21c278fe1462040e3", 16)
	require.True(t, ok)
	pk, err := SkToPk(sk)
	require.NoError(t, err)

	message := []byte("a signing root, thirty-two bytes")
	sig, err := Sign(sk, message)
	require.NoError(t, err)

	require.True(t, Verify(pk, message, sig))
	require.False(t, Verify(pk, []byte("another message entirely here!!!"), sig))

	otherPk, err := SkToPk(big.NewInt(2))
	require.NoError(t, err)
	require.False(t, Verify(otherPk, message, sig))

	// garbage is rejected without a panic
	sig[0] ^= 0xff
	require.False(t, Verify(pk, message, sig))
}

func TestSignRange(t *testing.T) {
	_, err := Sign(big.NewInt(0), []byte("msg"))
	require.Error(t, err)

	_, err = Sign(CurveOrder, []byte("msg"))
	require.Error(t, err)
}
