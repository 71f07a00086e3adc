package keystore

import (
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// EIP-2335 test vectors.
// https://github.com/ethereum/EIPs/blob/master/EIPS/eip-2335.md#test-cases
const (
	testVectorPassword = "𝔱𝔢𝔰𝔱𝔭𝔞𝔰𝔰𝔴𝔬𝔯𝔡🔑"
	testVectorSecret   = "000000000019d6689c085ae165831e934ff763ae46a2a6c172b3f1b60a8ce26f"

	scryptVectorJSON = `{
		"crypto": {
			"kdf": {
				"function": "scrypt",
				"params": {
					"dklen": 32,
					"n": 262144,
					"p": 1,
					"r": 8,
					"salt": "d4e56740f876aef8c010b86a40d5f56745a118d0906a34e69aec8c0db1cb8fa3"
				},
				"message": ""
			},
			"checksum": {
				"function": "sha256",
				"params": {},
				"message": "d2217fe5f3e9a1e34581ef8a78f7c9928e436d36dacc5e846690a5581e8ea484"
			},
			"cipher": {
				"function": "aes-128-ctr",
				"params": {
					"iv": "264daa3f303d7259501c93d997d84fe6"
				},
				"message": "06ae90d55fe0a6e9c5c3bc5b170827b2e5cce3929ed3f116c2811e6366dfe20f"
			}
		},
		"description": "This is a test keystore that uses scrypt to secure the secret.",
		"pubkey": "9612d7a727c9d0a22e185a1c768478dfe919cada9266988cb32359c11f2b7b27f4ae4040902382ae2910c15e2b420d07",
		"path": "m/12381/60/3141592653/589793238",
		"uuid": "1d85ae20-35c5-4611-98e8-aa14a633906f",
		"version": 4
	}`

	pbkdf2VectorJSON = `{
		"crypto": {
			"kdf": {
				"function": "pbkdf2",
				"params": {
					"dklen": 32,
					"c": 262144,
					"prf": "hmac-sha256",
					"salt": "d4e56740f876aef8c010b86a40d5f56745a118d0906a34e69aec8c0db1cb8fa3"
				},
				"message": ""
			},
			"checksum": {
				"function": "sha256",
				"params": {},
				"message": "8a9f5d9912ed7e75ea794bc5a89bca5f193721d30868ade6f73043c6ea6febf1"
			},
			"cipher": {
				"function": "aes-128-ctr",
				"params": {
					"iv": "264daa3f303d7259501c93d997d84fe6"
				},
				"message": "cee03fde2af33149775b7223e7845e4fb2c8ae1792e5f99fe9ecf474cc8c16ad"
			}
		},
		"description": "This is a test keystore that uses PBKDF2 to secure the secret.",
		"pubkey": "9612d7a727c9d0a22e185a1c768478dfe919cada9266988cb32359c11f2b7b27f4ae4040902382ae2910c15e2b420d07",
		"path": "m/12381/60/0/0",
		"uuid": "64625def-3331-4eea-ab6f-782f3ed16a83",
		"version": 4
	}`
)

func testVectorKeystores(t *testing.T) []*Keystore {
	t.Helper()
	scrypt, err := FromJSON([]byte(scryptVectorJSON))
	require.NoError(t, err)
	pbkdf2, err := FromJSON([]byte(pbkdf2VectorJSON))
	require.NoError(t, err)
	return []*Keystore{scrypt, pbkdf2}
}

func vectorSecret(t *testing.T) []byte {
	t.Helper()
	secret, err := hex.DecodeString(testVectorSecret)
	require.NoError(t, err)
	return secret
}

func TestEncryptMatchesTestVectors(t *testing.T) {
	secret := vectorSecret(t)
	for _, tv := range testVectorKeystores(t) {
		var ks *Keystore
		if tv.Crypto.Kdf.Function == "scrypt" {
			ks = NewScryptKeystore()
		} else {
			ks = NewPbkdf2Keystore()
		}
		err := ks.Encrypt(secret, testVectorPassword, tv.Path,
			tv.Crypto.Kdf.Params.Salt, tv.Crypto.Cipher.Params.IV)
		require.NoError(t, err)

		require.Equal(t, tv.Crypto.Kdf.Function, ks.Crypto.Kdf.Function)
		require.Equal(t, tv.Crypto.Kdf.Params, ks.Crypto.Kdf.Params)
		require.Equal(t, tv.Crypto.Cipher.Params.IV, ks.Crypto.Cipher.Params.IV)
		require.Equal(t, tv.Crypto.Cipher.Message, ks.Crypto.Cipher.Message)
		require.Equal(t, tv.Crypto.Checksum.Message, ks.Crypto.Checksum.Message)
		require.Equal(t, tv.Pubkey, ks.Pubkey)
		require.Equal(t, tv.Path, ks.Path)
		require.NotEmpty(t, ks.UUID)
	}
}

func TestDecryptTestVectors(t *testing.T) {
	secret := vectorSecret(t)
	for _, tv := range testVectorKeystores(t) {
		recovered, err := tv.Decrypt(testVectorPassword)
		require.NoError(t, err)
		require.Equal(t, secret, recovered)
	}
}

func TestDecryptWrongPassword(t *testing.T) {
	for _, tv := range testVectorKeystores(t) {
		_, err := tv.Decrypt(testVectorPassword + "incorrect")
		require.ErrorIs(t, err, ErrChecksumMismatch)
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	secret := vectorSecret(t)
	for _, ks := range []*Keystore{NewPbkdf2Keystore(), NewScryptKeystore()} {
		require.NoError(t, ks.Encrypt(secret, testVectorPassword, "m/12381/3600/0/0/0", nil, nil))
		recovered, err := ks.Decrypt(testVectorPassword)
		require.NoError(t, err)
		require.Equal(t, secret, recovered)
	}
}

func TestProcessPassword(t *testing.T) {
	testCases := []struct {
		password  string
		processed string
	}{
		{"\a", ""},
		{"\b", ""},
		{"\t", ""},
		{"a", "a"},
		{"abc", "abc"},
		{"a\bc", "ac"},
	}
	for _, tc := range testCases {
		require.Equal(t, []byte(tc.processed), processPassword(tc.password))
	}
}

func TestSaveAndLoad(t *testing.T) {
	secret := vectorSecret(t)
	ks := NewPbkdf2Keystore()
	require.NoError(t, ks.Encrypt(secret, testVectorPassword, "m/12381/3600/0/0/0", nil, nil))

	filefolder := filepath.Join(t.TempDir(), "keystore.json")
	require.NoError(t, ks.Save(filefolder))

	if runtime.GOOS != "windows" {
		info, err := os.Stat(filefolder)
		require.NoError(t, err)
		require.Equal(t, os.FileMode(0o440), info.Mode().Perm())
	}

	loaded, err := FromFile(filefolder)
	require.NoError(t, err)
	require.Equal(t, ks.UUID, loaded.UUID)

	recovered, err := loaded.Decrypt(testVectorPassword)
	require.NoError(t, err)
	require.Equal(t, secret, recovered)
}

func TestJSONRoundTrip(t *testing.T) {
	for _, tv := range testVectorKeystores(t) {
		out, err := json.Marshal(tv)
		require.NoError(t, err)
		back, err := FromJSON(out)
		require.NoError(t, err)
		require.Equal(t, tv, back)
	}
}
