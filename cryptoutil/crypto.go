// Package cryptoutil wraps the hash, KDF and cipher primitives the key
// pipeline is built on, with the parameter floors the tool refuses to
// go below.
package cryptoutil

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"io"
	"math"
	"strings"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/scrypt"
)

func SHA256(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// HKDF runs RFC 5869 extract-and-expand with SHA-256.
func HKDF(salt, ikm, info []byte, length int) ([]byte, error) {
	if length <= 0 {
		return nil, fmt.Errorf("hkdf output length should be positive, got %d", length)
	}
	okm := make([]byte, length)
	if _, err := io.ReadFull(hkdf.New(sha256.New, ikm, salt, info), okm); err != nil {
		return nil, fmt.Errorf("failed to read hkdf output: %w", err)
	}
	return okm, nil
}

// PBKDF2 derives dklen bytes with HMAC over the named hash. The sha256
// variant refuses iteration counts below 2^18; sha512 has no floor since
// BIP-39 mandates c=2048.
func PBKDF2(password, salt []byte, dklen, c int, prf string) ([]byte, error) {
	if !strings.Contains(prf, "sha") {
		return nil, fmt.Errorf("prf %q is not a sha variant", prf)
	}
	var h func() hash.Hash
	if strings.Contains(prf, "sha256") {
		if c < 1<<18 {
			return nil, fmt.Errorf("the pbkdf2 parameters chosen are not secure: c=%d", c)
		}
		h = sha256.New
	} else {
		h = sha512.New
	}
	return pbkdf2.Key(password, salt, c, dklen, h), nil
}

// Scrypt derives dklen bytes. Parameter sets cheaper than 128 MB of
// memory-hardness are refused as insecure, and n must stay below
// 2^(128*r/8) to be a valid scrypt instance at all.
func Scrypt(password, salt []byte, n, r, p, dklen int) ([]byte, error) {
	if n*r*p < 1<<20 {
		return nil, fmt.Errorf("the scrypt parameters chosen are not secure: n=%d r=%d p=%d", n, r, p)
	}
	if float64(n) >= math.Pow(2, 128*float64(r)/8) {
		return nil, fmt.Errorf("scrypt `n` should be less than 2^(128*r/8), got n=%d r=%d", n, r)
	}
	out, err := scrypt.Key(password, salt, n, r, p, dklen)
	if err != nil {
		return nil, fmt.Errorf("scrypt failed: %w", err)
	}
	return out, nil
}

// AES128CTR returns the CTR keystream cipher; encryption and decryption
// are the same XOR.
func AES128CTR(key, iv []byte) (cipher.Stream, error) {
	if len(key) != 16 {
		return nil, fmt.Errorf("the aes-128-ctr key length should be 16, got %d", len(key))
	}
	if len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("the aes-128-ctr iv length should be %d, got %d", aes.BlockSize, len(iv))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to init aes: %w", err)
	}
	return cipher.NewCTR(block, iv), nil
}
