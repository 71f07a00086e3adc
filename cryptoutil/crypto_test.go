package cryptoutil

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSHA256(t *testing.T) {
	digest := SHA256([]byte("abc"))
	require.Equal(t,
		"ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad",
		hex.EncodeToString(digest[:]))
}

func TestHKDFLength(t *testing.T) {
	okm, err := HKDF([]byte("salt"), []byte("ikm"), nil, 8160)
	require.NoError(t, err)
	require.Len(t, okm, 8160)

	_, err = HKDF([]byte("salt"), []byte("ikm"), nil, 0)
	require.Error(t, err)
}

func TestPBKDF2ParameterFloor(t *testing.T) {
	password := []byte("password")
	salt := []byte("salt")

	// sha256 below 2^18 iterations is a refusal, not a warning
	_, err := PBKDF2(password, salt, 32, 1<<18-1, "sha256")
	require.Error(t, err)

	dk, err := PBKDF2(password, salt, 32, 1<<18, "sha256")
	require.NoError(t, err)
	require.Len(t, dk, 32)

	// sha512 has no floor; BIP-39 mandates c=2048
	dk, err = PBKDF2(password, salt, 64, 2048, "sha512")
	require.NoError(t, err)
	require.Len(t, dk, 64)

	_, err = PBKDF2(password, salt, 32, 2048, "md5")
	require.Error(t, err)
}

func TestScryptParameterFloor(t *testing.T) {
	password := []byte("password")
	salt := []byte("salt")

	// n*r*p below 2^20 is insecure
	_, err := Scrypt(password, salt, 1<<14, 8, 1, 32)
	require.Error(t, err)

	// n beyond 2^(128*r/8) is not a valid scrypt instance
	_, err = Scrypt(password, salt, 1<<17, 1, 1<<10, 32)
	require.Error(t, err)

	dk, err := Scrypt(password, salt, 1<<15, 8, 4, 32)
	require.NoError(t, err)
	require.Len(t, dk, 32)
}

func TestAES128CTRKeyLength(t *testing.T) {
	iv := make([]byte, 16)

	_, err := AES128CTR(make([]byte, 32), iv)
	require.Error(t, err)

	_, err = AES128CTR(make([]byte, 16), make([]byte, 8))
	require.Error(t, err)

	stream, err := AES128CTR(make([]byte, 16), iv)
	require.NoError(t, err)

	// encryption and decryption are the same XOR
	plaintext := []byte("a thirty-two byte secret value!!")
	ciphertext := make([]byte, len(plaintext))
	stream.XORKeyStream(ciphertext, plaintext)

	stream, err = AES128CTR(make([]byte, 16), iv)
	require.NoError(t, err)
	recovered := make([]byte, len(ciphertext))
	stream.XORKeyStream(recovered, ciphertext)
	require.Equal(t, plaintext, recovered)
}
