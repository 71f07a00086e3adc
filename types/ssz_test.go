package types

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	zrntcommon "github.com/protolambda/zrnt/eth2/beacon/common"
	"github.com/protolambda/zrnt/eth2/beacon/phase0"
	"github.com/protolambda/ztyp/tree"
	"github.com/stretchr/testify/require"
)

// The expectations below are double-checked against zrnt, the
// authoritative implementation, wherever it carries the same container.

func h2(a, b [32]byte) [32]byte {
	h := sha256.New()
	h.Write(a[:])
	h.Write(b[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func fillBytes(n int, start byte) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = start + byte(i)
	}
	return out
}

func TestComputeDomainMatchesZrnt(t *testing.T) {
	forkVersion := zrntcommon.Version{0x90, 0x00, 0x00, 0x75}
	var gvr zrntcommon.Root
	gvrBytes, err := hex.DecodeString("d8ea171f3c94aea21ebc42a1ed61052acf3f9209c00e4efbaaddac09ed9b8078")
	require.NoError(t, err)
	copy(gvr[:], gvrBytes)

	for _, domainType := range []zrntcommon.BLSDomainType{
		DomainDeposit, DomainVoluntaryExit, DomainBLSToExecutionChange,
	} {
		got := ComputeDomain(domainType, forkVersion, gvr)
		expected := zrntcommon.ComputeDomain(domainType, forkVersion, gvr)
		require.Equal(t, expected, got, "domain type %x", domainType)
	}
}

func TestComputeDepositDomainUsesZeroValidatorsRoot(t *testing.T) {
	forkVersion := zrntcommon.Version{}
	domain := ComputeDepositDomain(forkVersion)
	require.Equal(t, ComputeDomain(DomainDeposit, forkVersion, zrntcommon.Root{}), domain)
	require.Equal(t, []byte{0x03, 0x00, 0x00, 0x00}, domain[:4])
}

func TestComputeSigningRootMatchesZrnt(t *testing.T) {
	var objectRoot zrntcommon.Root
	copy(objectRoot[:], fillBytes(32, 1))
	domain := ComputeDepositDomain(zrntcommon.Version{0x01, 0x02, 0x03, 0x04})

	got := ComputeSigningRoot(objectRoot, domain)
	expected := zrntcommon.ComputeSigningRoot(objectRoot, domain)
	require.Equal(t, expected, got)
}

func TestForkDataRootMatchesZrnt(t *testing.T) {
	forkVersion := zrntcommon.Version{0x01, 0x01, 0x70, 0x00}
	var gvr zrntcommon.Root
	copy(gvr[:], fillBytes(32, 7))

	got := ComputeForkDataRoot(forkVersion, gvr)
	require.Equal(t, zrntcommon.ComputeForkDataRoot(forkVersion, gvr), got)
}

func TestVoluntaryExitRootMatchesZrnt(t *testing.T) {
	exit := VoluntaryExit{Epoch: 305658, ValidatorIndex: 123456}
	zrntExit := phase0.VoluntaryExit{Epoch: 305658, ValidatorIndex: 123456}

	hFn := tree.GetHashFn()
	require.Equal(t, zrntExit.HashTreeRoot(hFn), exit.HashTreeRoot(hFn))
}

func TestVoluntaryExitRootManual(t *testing.T) {
	// Two uint64 fields chunk to two little-endian leaves.
	exit := VoluntaryExit{Epoch: 1, ValidatorIndex: 2}
	var epochLeaf, indexLeaf [32]byte
	epochLeaf[0] = 1
	indexLeaf[0] = 2
	expected := h2(epochLeaf, indexLeaf)
	root := exit.HashTreeRoot(tree.GetHashFn())
	require.Equal(t, expected[:], root[:])
}

func TestDepositDataRootMatchesZrnt(t *testing.T) {
	var pubkey zrntcommon.BLSPubkey
	copy(pubkey[:], fillBytes(48, 3))
	var wc zrntcommon.Root
	copy(wc[:], fillBytes(32, 11))
	var sig zrntcommon.BLSSignature
	copy(sig[:], fillBytes(96, 0x40))

	data := DepositData{
		Pubkey:                pubkey,
		WithdrawalCredentials: wc,
		Amount:                32_000_000_000,
		Signature:             sig,
	}
	zrntData := zrntcommon.DepositData{
		Pubkey:                pubkey,
		WithdrawalCredentials: wc,
		Amount:                32_000_000_000,
		Signature:             sig,
	}
	hFn := tree.GetHashFn()
	require.Equal(t, zrntData.HashTreeRoot(hFn), data.HashTreeRoot(hFn))
}

func TestDepositMessageRootManual(t *testing.T) {
	var pubkey zrntcommon.BLSPubkey
	copy(pubkey[:], fillBytes(48, 3))
	var wc zrntcommon.Root
	copy(wc[:], fillBytes(32, 11))
	msg := DepositMessage{
		Pubkey:                pubkey,
		WithdrawalCredentials: wc,
		Amount:                1,
	}

	var pkChunk0, pkChunk1, amountLeaf, zero [32]byte
	copy(pkChunk0[:], pubkey[:32])
	copy(pkChunk1[:], pubkey[32:])
	amountLeaf[0] = 1
	pubkeyRoot := h2(pkChunk0, pkChunk1)
	expected := h2(h2(pubkeyRoot, [32]byte(wc)), h2(amountLeaf, zero))

	msgRoot := msg.HashTreeRoot(tree.GetHashFn())
	require.Equal(t, expected[:], msgRoot[:])

	// The signed container keeps the same message root.
	data := DepositData{Pubkey: pubkey, WithdrawalCredentials: wc, Amount: 1}
	require.Equal(t, msg.HashTreeRoot(tree.GetHashFn()), data.MessageRoot(tree.GetHashFn()))
}

func TestBLSToExecutionChangeRootManual(t *testing.T) {
	var pubkey zrntcommon.BLSPubkey
	copy(pubkey[:], fillBytes(48, 0x21))
	var addr zrntcommon.Eth1Address
	copy(addr[:], fillBytes(20, 0x60))
	change := BLSToExecutionChange{
		ValidatorIndex:     7,
		FromBLSPubkey:      pubkey,
		ToExecutionAddress: addr,
	}

	var indexLeaf, pkChunk0, pkChunk1, addrLeaf, zero [32]byte
	indexLeaf[0] = 7
	copy(pkChunk0[:], pubkey[:32])
	copy(pkChunk1[:], pubkey[32:])
	copy(addrLeaf[:20], addr[:])
	expected := h2(h2(indexLeaf, h2(pkChunk0, pkChunk1)), h2(addrLeaf, zero))

	changeRoot := change.HashTreeRoot(tree.GetHashFn())
	require.Equal(t, expected[:], changeRoot[:])
}

func TestSignedContainerRoots(t *testing.T) {
	var sig zrntcommon.BLSSignature
	copy(sig[:], fillBytes(96, 0x10))

	// signature root: merkleize(3 chunks padded to 4)
	var sigChunk0, sigChunk1, sigChunk2, zero [32]byte
	copy(sigChunk0[:], sig[:32])
	copy(sigChunk1[:], sig[32:64])
	copy(sigChunk2[:], sig[64:])
	sigRoot := h2(h2(sigChunk0, sigChunk1), h2(sigChunk2, zero))

	hFn := tree.GetHashFn()
	exit := SignedVoluntaryExit{
		Message:   VoluntaryExit{Epoch: 1, ValidatorIndex: 2},
		Signature: sig,
	}
	expected := h2([32]byte(exit.Message.HashTreeRoot(hFn)), sigRoot)
	exitRoot := exit.HashTreeRoot(hFn)
	require.Equal(t, expected[:], exitRoot[:])

	change := SignedBLSToExecutionChange{
		Message:   BLSToExecutionChange{ValidatorIndex: 3},
		Signature: sig,
	}
	expectedChange := h2([32]byte(change.Message.HashTreeRoot(hFn)), sigRoot)
	signedChangeRoot := change.HashTreeRoot(hFn)
	require.Equal(t, expectedChange[:], signedChangeRoot[:])
}
