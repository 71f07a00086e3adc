// Package derivation implements tree-structured BLS12-381 key
// derivation (EIP-2333) and the validator key paths built on it
// (EIP-2334).
package derivation

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/kysee/eth2-keygen/bls"
	"github.com/kysee/eth2-keygen/cryptoutil"
)

const (
	lamportChunks = 255
	okmLength     = 48
)

var keygenSalt = []byte("BLS-SIG-KEYGEN-SALT-")

// flipBits256 returns x XOR (2^256 - 1) over a 32-byte string.
func flipBits256(x [32]byte) (out [32]byte) {
	for i, b := range x {
		out[i] = ^b
	}
	return out
}

// ikmToLamportSK expands the IKM into 255 32-byte Lamport chunks via a
// single HKDF of 8160 bytes.
func ikmToLamportSK(ikm []byte, salt [4]byte) ([lamportChunks][32]byte, error) {
	var lamportSK [lamportChunks][32]byte
	okm, err := cryptoutil.HKDF(salt[:], ikm, nil, lamportChunks*32)
	if err != nil {
		return lamportSK, fmt.Errorf("failed to expand lamport sk: %w", err)
	}
	for i := 0; i < lamportChunks; i++ {
		copy(lamportSK[i][:], okm[i*32:(i+1)*32])
	}
	return lamportSK, nil
}

// parentSKToLamportPK compresses the two Lamport key halves derived from
// the parent SK and its bit-flip into a single 32-byte intermediate key.
func parentSKToLamportPK(parentSK *big.Int, index uint32) ([32]byte, error) {
	var salt [4]byte
	binary.BigEndian.PutUint32(salt[:], index)

	var ikm [32]byte
	parentSK.FillBytes(ikm[:])

	lamport0, err := ikmToLamportSK(ikm[:], salt)
	if err != nil {
		return [32]byte{}, err
	}
	notIKM := flipBits256(ikm)
	lamport1, err := ikmToLamportSK(notIKM[:], salt)
	if err != nil {
		return [32]byte{}, err
	}

	lamportPK := make([]byte, 0, 2*lamportChunks*32)
	for i := 0; i < lamportChunks; i++ {
		h := cryptoutil.SHA256(lamport0[i][:])
		lamportPK = append(lamportPK, h[:]...)
	}
	for i := 0; i < lamportChunks; i++ {
		h := cryptoutil.SHA256(lamport1[i][:])
		lamportPK = append(lamportPK, h[:]...)
	}
	return cryptoutil.SHA256(lamportPK), nil
}

// hkdfModRAttempt is one iteration of the HKDF_mod_r loop under a fixed
// salt: OS2IP(HKDF(salt, IKM || 0x00, key_info || I2OSP(48, 2), 48)) mod r.
func hkdfModRAttempt(salt, ikm, keyInfo []byte) (*big.Int, error) {
	secret := make([]byte, 0, len(ikm)+1)
	secret = append(append(secret, ikm...), 0x00)
	info := make([]byte, 0, len(keyInfo)+2)
	info = append(append(info, keyInfo...), 0x00, okmLength)
	okm, err := cryptoutil.HKDF(salt, secret, info, okmLength)
	if err != nil {
		return nil, fmt.Errorf("failed to expand okm: %w", err)
	}
	return new(big.Int).Mod(new(big.Int).SetBytes(okm), bls.CurveOrder), nil
}

// hkdfModR derives a nonzero secret key from the IKM. The salt is
// rehashed before every attempt, including the first, and the loop
// repeats until the reduction lands outside zero.
func hkdfModR(ikm, keyInfo []byte) (*big.Int, error) {
	salt := keygenSalt
	for {
		digest := cryptoutil.SHA256(salt)
		salt = digest[:]
		sk, err := hkdfModRAttempt(salt, ikm, keyInfo)
		if err != nil {
			return nil, err
		}
		if sk.Sign() != 0 {
			return sk, nil
		}
	}
}

// DeriveMasterSK derives the root key of the tree from a seed of at
// least 32 bytes.
//
// Ref: https://eips.ethereum.org/EIPS/eip-2333#derive_master_sk
func DeriveMasterSK(seed []byte) (*big.Int, error) {
	if len(seed) < 32 {
		return nil, fmt.Errorf("the seed should be at least 32 bytes, got %d", len(seed))
	}
	return hkdfModR(seed, nil)
}

// DeriveChildSK derives the child key at the given index from its
// parent's secret key.
//
// Ref: https://eips.ethereum.org/EIPS/eip-2333#derive_child_sk
func DeriveChildSK(parentSK *big.Int, index uint32) (*big.Int, error) {
	lamportPK, err := parentSKToLamportPK(parentSK, index)
	if err != nil {
		return nil, fmt.Errorf("failed to compute lamport pk: %w", err)
	}
	return hkdfModR(lamportPK[:], nil)
}
