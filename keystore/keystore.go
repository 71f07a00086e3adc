// Package keystore implements EIP-2335 encrypted BLS keystores.
//
// Ref: https://github.com/ethereum/EIPs/blob/master/EIPS/eip-2335.md
package keystore

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"runtime"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/kysee/eth2-keygen/bls"
	"github.com/kysee/eth2-keygen/cryptoutil"
	"github.com/kysee/eth2-keygen/types"
)

// ErrChecksumMismatch means the password is wrong or the keystore is
// corrupt; the ciphertext is never touched in that case.
var ErrChecksumMismatch = errors.New("keystore checksum mismatch: invalid password or corrupt keystore")

// KdfParams carries the union of the pbkdf2 and scrypt parameter sets;
// the fields the active function does not use stay zero and are omitted
// from JSON.
type KdfParams struct {
	Dklen int          `json:"dklen"`
	C     int          `json:"c,omitempty"`
	Prf   string       `json:"prf,omitempty"`
	N     int          `json:"n,omitempty"`
	R     int          `json:"r,omitempty"`
	P     int          `json:"p,omitempty"`
	Salt  types.RawHex `json:"salt"`
}

type KdfModule struct {
	Function string       `json:"function"`
	Params   KdfParams    `json:"params"`
	Message  types.RawHex `json:"message"`
}

// derive dispatches on the kdf function name.
func (m *KdfModule) derive(password []byte) ([]byte, error) {
	switch {
	case strings.Contains(m.Function, "scrypt"):
		return cryptoutil.Scrypt(password, m.Params.Salt, m.Params.N, m.Params.R, m.Params.P, m.Params.Dklen)
	case strings.Contains(m.Function, "pbkdf2"):
		return cryptoutil.PBKDF2(password, m.Params.Salt, m.Params.Dklen, m.Params.C, m.Params.Prf)
	default:
		return nil, fmt.Errorf("unsupported kdf function %q", m.Function)
	}
}

type ChecksumModule struct {
	Function string       `json:"function"`
	Params   struct{}     `json:"params"`
	Message  types.RawHex `json:"message"`
}

type CipherParams struct {
	IV types.RawHex `json:"iv"`
}

type CipherModule struct {
	Function string       `json:"function"`
	Params   CipherParams `json:"params"`
	Message  types.RawHex `json:"message"`
}

type Crypto struct {
	Kdf      KdfModule      `json:"kdf"`
	Checksum ChecksumModule `json:"checksum"`
	Cipher   CipherModule   `json:"cipher"`
}

type Keystore struct {
	Crypto      Crypto `json:"crypto"`
	Description string `json:"description"`
	Pubkey      string `json:"pubkey"`
	Path        string `json:"path"`
	UUID        string `json:"uuid"`
	Version     int    `json:"version"`
}

// NewPbkdf2Keystore returns an empty keystore with the default pbkdf2
// parameters (c=2^18, hmac-sha256).
func NewPbkdf2Keystore() *Keystore {
	ks := newKeystore()
	ks.Crypto.Kdf.Function = "pbkdf2"
	ks.Crypto.Kdf.Params = KdfParams{
		Dklen: 32,
		C:     1 << 18,
		Prf:   "hmac-sha256",
	}
	return ks
}

// NewScryptKeystore returns an empty keystore with the default scrypt
// parameters (n=2^18, r=8, p=1).
func NewScryptKeystore() *Keystore {
	ks := newKeystore()
	ks.Crypto.Kdf.Function = "scrypt"
	ks.Crypto.Kdf.Params = KdfParams{
		Dklen: 32,
		N:     1 << 18,
		R:     8,
		P:     1,
	}
	return ks
}

func newKeystore() *Keystore {
	return &Keystore{
		Crypto: Crypto{
			Checksum: ChecksumModule{Function: "sha256"},
			Cipher:   CipherModule{Function: "aes-128-ctr"},
		},
		Version: 4,
	}
}

// processPassword applies the EIP-2335 password requirements: NFKD
// normalization, C0/C1 control characters (and DEL) stripped, UTF-8.
func processPassword(password string) []byte {
	normalized := norm.NFKD.String(password)
	var sb strings.Builder
	for _, r := range normalized {
		if (r >= 0x00 && r < 0x20) || (r >= 0x7F && r < 0xA0) {
			continue
		}
		sb.WriteRune(r)
	}
	return []byte(sb.String())
}

// Encrypt fills the keystore with the encryption of secret under
// password. kdfSalt and aesIV may be nil to draw fresh random values;
// they are overridable so the EIP test vectors can be reproduced.
func (ks *Keystore) Encrypt(secret []byte, password, path string, kdfSalt, aesIV []byte) error {
	if kdfSalt == nil {
		kdfSalt = make([]byte, 32)
		if _, err := rand.Read(kdfSalt); err != nil {
			return fmt.Errorf("failed to read kdf salt: %w", err)
		}
	}
	if aesIV == nil {
		aesIV = make([]byte, 16)
		if _, err := rand.Read(aesIV); err != nil {
			return fmt.Errorf("failed to read aes iv: %w", err)
		}
	}
	ks.UUID = uuid.New().String()
	ks.Crypto.Kdf.Params.Salt = kdfSalt

	decryptionKey, err := ks.Crypto.Kdf.derive(processPassword(password))
	if err != nil {
		return fmt.Errorf("failed to derive decryption key: %w", err)
	}

	ks.Crypto.Cipher.Params.IV = aesIV
	stream, err := cryptoutil.AES128CTR(decryptionKey[:16], aesIV)
	if err != nil {
		return err
	}
	cipherMessage := make([]byte, len(secret))
	stream.XORKeyStream(cipherMessage, secret)
	ks.Crypto.Cipher.Message = cipherMessage

	checksum := cryptoutil.SHA256(append(append([]byte{}, decryptionKey[16:32]...), cipherMessage...))
	ks.Crypto.Checksum.Message = checksum[:]

	pubkey, err := bls.SkToPk(new(big.Int).SetBytes(secret))
	if err != nil {
		return fmt.Errorf("failed to compute keystore pubkey: %w", err)
	}
	ks.Pubkey = hex.EncodeToString(pubkey[:])
	ks.Path = path
	return nil
}

// Decrypt re-derives the decryption key, verifies the checksum over
// dk[16:32] || cipher.message and returns the plaintext secret.
func (ks *Keystore) Decrypt(password string) ([]byte, error) {
	decryptionKey, err := ks.Crypto.Kdf.derive(processPassword(password))
	if err != nil {
		return nil, fmt.Errorf("failed to derive decryption key: %w", err)
	}
	checksum := cryptoutil.SHA256(append(append([]byte{}, decryptionKey[16:32]...), ks.Crypto.Cipher.Message...))
	if !bytes.Equal(checksum[:], ks.Crypto.Checksum.Message) {
		return nil, ErrChecksumMismatch
	}
	stream, err := cryptoutil.AES128CTR(decryptionKey[:16], ks.Crypto.Cipher.Params.IV)
	if err != nil {
		return nil, err
	}
	secret := make([]byte, len(ks.Crypto.Cipher.Message))
	stream.XORKeyStream(secret, ks.Crypto.Cipher.Message)
	return secret, nil
}

// Save writes the keystore JSON, read-only for owner and group on POSIX.
func (ks *Keystore) Save(filefolder string) error {
	data, err := json.Marshal(ks)
	if err != nil {
		return fmt.Errorf("failed to marshal keystore: %w", err)
	}
	if err := os.WriteFile(filefolder, data, 0o440); err != nil {
		return fmt.Errorf("failed to write keystore %s: %w", filefolder, err)
	}
	if runtime.GOOS != "windows" {
		if err := os.Chmod(filefolder, 0o440); err != nil {
			return fmt.Errorf("failed to chmod keystore %s: %w", filefolder, err)
		}
	}
	return nil
}

// FromJSON parses a keystore envelope; hex fields are decoded once, at
// their declared types.
func FromJSON(data []byte) (*Keystore, error) {
	var ks Keystore
	if err := json.Unmarshal(data, &ks); err != nil {
		return nil, fmt.Errorf("failed to parse keystore: %w", err)
	}
	return &ks, nil
}

func FromFile(path string) (*Keystore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keystore %s: %w", path, err)
	}
	return FromJSON(data)
}
