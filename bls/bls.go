// Package bls adapts gnark-crypto's native BLS12-381 arithmetic to the
// G2 proof-of-possession signature scheme the consensus layer uses.
package bls

import (
	"fmt"
	"math/big"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/protolambda/zrnt/eth2/beacon/common"
)

// dst is the hash-to-curve domain separation tag of the eth PoP scheme.
var dst = []byte("BLS_SIG_BLS12381G2_XMD:SHA-256_SSWU_RO_POP_")

// CurveOrder is r, the order of the BLS12-381 G1/G2 subgroups. Secret
// keys are integers in [1, r).
var CurveOrder = fr.Modulus()

// SkToPk returns the compressed G1 public key of a secret key.
func SkToPk(sk *big.Int) (common.BLSPubkey, error) {
	if sk.Sign() <= 0 || sk.Cmp(CurveOrder) >= 0 {
		return common.BLSPubkey{}, fmt.Errorf("secret key out of range [1, r)")
	}
	var pk bls12381.G1Affine
	pk.ScalarMultiplicationBase(sk)
	return common.BLSPubkey(pk.Bytes()), nil
}

// Sign computes [sk]*HashToG2(message) and returns the compressed G2
// signature.
func Sign(sk *big.Int, message []byte) (common.BLSSignature, error) {
	if sk.Sign() <= 0 || sk.Cmp(CurveOrder) >= 0 {
		return common.BLSSignature{}, fmt.Errorf("secret key out of range [1, r)")
	}
	q, err := bls12381.HashToG2(message, dst)
	if err != nil {
		return common.BLSSignature{}, fmt.Errorf("failed to hash message to G2: %w", err)
	}
	var sig bls12381.G2Affine
	sig.ScalarMultiplication(&q, sk)
	return common.BLSSignature(sig.Bytes()), nil
}

// Verify checks e(pubkey, H(msg)) == e(G1, signature) with a single
// pairing product. Malformed points, points outside their subgroup and
// the identity public key all verify false.
func Verify(pubkey common.BLSPubkey, message []byte, signature common.BLSSignature) bool {
	var pk bls12381.G1Affine
	if _, err := pk.SetBytes(pubkey[:]); err != nil {
		return false
	}
	if pk.IsInfinity() {
		return false
	}
	var sig bls12381.G2Affine
	if _, err := sig.SetBytes(signature[:]); err != nil {
		return false
	}
	msgPoint, err := bls12381.HashToG2(message, dst)
	if err != nil {
		return false
	}

	// e(pk, H(msg)) * e(-G1, sig) == 1
	_, _, g1Gen, _ := bls12381.Generators()
	var negG1 bls12381.G1Affine
	negG1.Neg(&g1Gen)

	valid, err := bls12381.PairingCheck(
		[]bls12381.G1Affine{pk, negG1},
		[]bls12381.G2Affine{msgPoint, sig},
	)
	if err != nil {
		return false
	}
	return valid
}
