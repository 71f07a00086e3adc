package types

import (
	"encoding/binary"

	"github.com/protolambda/zrnt/eth2/beacon/common"
	"github.com/protolambda/ztyp/tree"
)

// Domain type constants from the phase0 beacon-chain spec, plus the
// capella BLS-to-execution-change domain.
var (
	DomainDeposit              = common.BLSDomainType{0x03, 0x00, 0x00, 0x00}
	DomainVoluntaryExit        = common.BLSDomainType{0x04, 0x00, 0x00, 0x00}
	DomainBLSToExecutionChange = common.BLSDomainType{0x0A, 0x00, 0x00, 0x00}
)

// merkleize pads the chunks with zero leaves to the next power of two and
// reduces them pairwise to a single root.
func merkleize(hFn tree.HashFn, chunks ...common.Root) common.Root {
	n := 1
	for n < len(chunks) {
		n *= 2
	}
	layer := make([]common.Root, n)
	copy(layer, chunks)
	for n > 1 {
		for i := 0; i < n; i += 2 {
			layer[i/2] = hFn(layer[i], layer[i+1])
		}
		n /= 2
	}
	return layer[0]
}

// bytesRoot merkleizes a byte vector: 32-byte chunks, zero padded.
func bytesRoot(hFn tree.HashFn, b []byte) common.Root {
	chunks := make([]common.Root, 0, (len(b)+31)/32)
	for off := 0; off < len(b); off += 32 {
		var c common.Root
		copy(c[:], b[off:min(off+32, len(b))])
		chunks = append(chunks, c)
	}
	return merkleize(hFn, chunks...)
}

// uint64Chunk encodes a uint64 as a little-endian 32-byte leaf.
func uint64Chunk(v uint64) (out common.Root) {
	binary.LittleEndian.PutUint64(out[:8], v)
	return out
}

type ForkData struct {
	CurrentVersion        common.Version
	GenesisValidatorsRoot common.Root
}

func (d *ForkData) HashTreeRoot(hFn tree.HashFn) common.Root {
	var version common.Root
	copy(version[:4], d.CurrentVersion[:])
	return merkleize(hFn, version, d.GenesisValidatorsRoot)
}

type SigningData struct {
	ObjectRoot common.Root
	Domain     common.BLSDomain
}

func (d *SigningData) HashTreeRoot(hFn tree.HashFn) common.Root {
	return merkleize(hFn, d.ObjectRoot, common.Root(d.Domain))
}

type DepositMessage struct {
	Pubkey                common.BLSPubkey
	WithdrawalCredentials common.Root
	Amount                common.Gwei
}

func (m *DepositMessage) HashTreeRoot(hFn tree.HashFn) common.Root {
	return merkleize(hFn,
		bytesRoot(hFn, m.Pubkey[:]),
		m.WithdrawalCredentials,
		uint64Chunk(uint64(m.Amount)),
	)
}

type DepositData struct {
	Pubkey                common.BLSPubkey
	WithdrawalCredentials common.Root
	Amount                common.Gwei
	Signature             common.BLSSignature
}

func (d *DepositData) HashTreeRoot(hFn tree.HashFn) common.Root {
	return merkleize(hFn,
		bytesRoot(hFn, d.Pubkey[:]),
		d.WithdrawalCredentials,
		uint64Chunk(uint64(d.Amount)),
		bytesRoot(hFn, d.Signature[:]),
	)
}

// MessageRoot is the hash tree root of the unsigned DepositMessage.
func (d *DepositData) MessageRoot(hFn tree.HashFn) common.Root {
	msg := DepositMessage{
		Pubkey:                d.Pubkey,
		WithdrawalCredentials: d.WithdrawalCredentials,
		Amount:                d.Amount,
	}
	return msg.HashTreeRoot(hFn)
}

type BLSToExecutionChange struct {
	ValidatorIndex     common.ValidatorIndex
	FromBLSPubkey      common.BLSPubkey
	ToExecutionAddress common.Eth1Address
}

func (c *BLSToExecutionChange) HashTreeRoot(hFn tree.HashFn) common.Root {
	var addr common.Root
	copy(addr[:20], c.ToExecutionAddress[:])
	return merkleize(hFn,
		uint64Chunk(uint64(c.ValidatorIndex)),
		bytesRoot(hFn, c.FromBLSPubkey[:]),
		addr,
	)
}

type SignedBLSToExecutionChange struct {
	Message   BLSToExecutionChange
	Signature common.BLSSignature
}

func (s *SignedBLSToExecutionChange) HashTreeRoot(hFn tree.HashFn) common.Root {
	return merkleize(hFn,
		s.Message.HashTreeRoot(hFn),
		bytesRoot(hFn, s.Signature[:]),
	)
}

type VoluntaryExit struct {
	Epoch          common.Epoch
	ValidatorIndex common.ValidatorIndex
}

func (v *VoluntaryExit) HashTreeRoot(hFn tree.HashFn) common.Root {
	return merkleize(hFn,
		uint64Chunk(uint64(v.Epoch)),
		uint64Chunk(uint64(v.ValidatorIndex)),
	)
}

type SignedVoluntaryExit struct {
	Message   VoluntaryExit
	Signature common.BLSSignature
}

func (s *SignedVoluntaryExit) HashTreeRoot(hFn tree.HashFn) common.Root {
	return merkleize(hFn,
		s.Message.HashTreeRoot(hFn),
		bytesRoot(hFn, s.Signature[:]),
	)
}

// ComputeForkDataRoot returns hash_tree_root(ForkData(version, root)).
func ComputeForkDataRoot(currentVersion common.Version, genesisValidatorsRoot common.Root) common.Root {
	fd := ForkData{
		CurrentVersion:        currentVersion,
		GenesisValidatorsRoot: genesisValidatorsRoot,
	}
	return fd.HashTreeRoot(tree.GetHashFn())
}

// ComputeDomain builds a 32-byte BLS domain:
// domain_type || fork_data_root[:28].
func ComputeDomain(domainType common.BLSDomainType, forkVersion common.Version, genesisValidatorsRoot common.Root) (out common.BLSDomain) {
	forkDataRoot := ComputeForkDataRoot(forkVersion, genesisValidatorsRoot)
	copy(out[:4], domainType[:])
	copy(out[4:], forkDataRoot[:28])
	return out
}

// ComputeDepositDomain is the deposit-only compute_domain: deposits are
// valid across forks, so the genesis validators root is fixed to zero.
func ComputeDepositDomain(forkVersion common.Version) common.BLSDomain {
	return ComputeDomain(DomainDeposit, forkVersion, common.Root{})
}

func ComputeVoluntaryExitDomain(forkVersion common.Version, genesisValidatorsRoot common.Root) common.BLSDomain {
	return ComputeDomain(DomainVoluntaryExit, forkVersion, genesisValidatorsRoot)
}

func ComputeBLSToExecutionChangeDomain(forkVersion common.Version, genesisValidatorsRoot common.Root) common.BLSDomain {
	return ComputeDomain(DomainBLSToExecutionChange, forkVersion, genesisValidatorsRoot)
}

// ComputeSigningRoot wraps an object root with its domain:
// hash_tree_root(SigningData(object_root, domain)).
func ComputeSigningRoot(objectRoot common.Root, domain common.BLSDomain) common.Root {
	sd := SigningData{
		ObjectRoot: objectRoot,
		Domain:     domain,
	}
	return sd.HashTreeRoot(tree.GetHashFn())
}
