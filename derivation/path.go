package derivation

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/kysee/eth2-keygen/mnemonic"
)

// PathToNodes parses a derivation path of the form m/i/j/... into its
// child indices. Spaces are stripped; any other character outside
// `m0-9/` rejects the path.
func PathToNodes(path string) ([]uint32, error) {
	path = strings.ReplaceAll(path, " ", "")
	for _, c := range path {
		if c != 'm' && c != '/' && (c < '0' || c > '9') {
			return nil, fmt.Errorf("invalid path %q", path)
		}
	}
	segments := strings.Split(path, "/")
	if segments[0] != "m" {
		return nil, fmt.Errorf("the first segment of path should be `m`, got %q", segments[0])
	}
	nodes := make([]uint32, 0, len(segments)-1)
	for _, seg := range segments[1:] {
		index, err := strconv.ParseUint(seg, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid child index %q in path %q: %w", seg, path, err)
		}
		nodes = append(nodes, uint32(index))
	}
	return nodes, nil
}

// MnemonicAndPathToKey returns the secret key at `path`, derived from
// the mnemonic's seed. The password exists for BIP-39 compliance and is
// usually empty.
func MnemonicAndPathToKey(mnemonicPhrase, path, password string) (*big.Int, error) {
	seed, err := mnemonic.GetSeed(mnemonicPhrase, password)
	if err != nil {
		return nil, err
	}
	nodes, err := PathToNodes(path)
	if err != nil {
		return nil, err
	}
	sk, err := DeriveMasterSK(seed)
	if err != nil {
		return nil, fmt.Errorf("failed to derive master key: %w", err)
	}
	for _, node := range nodes {
		sk, err = DeriveChildSK(sk, node)
		if err != nil {
			return nil, fmt.Errorf("failed to derive child key at index %d: %w", node, err)
		}
	}
	return sk, nil
}
