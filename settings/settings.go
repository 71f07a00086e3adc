// Package settings holds the chain registry: the name to
// (genesis fork version, genesis validators root) map that feeds domain
// computation.
package settings

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/protolambda/zrnt/eth2/beacon/common"
)

// DepositCLIVersion tags the sidecar metadata of every exported file.
const DepositCLIVersion = "1.0.0"

// ErrUnknownChain is returned for network names outside the registry.
var ErrUnknownChain = errors.New("unknown chain name")

type ChainSetting struct {
	NetworkName           string
	GenesisForkVersion    common.Version
	GenesisValidatorsRoot common.Root
}

const (
	Mainnet = "mainnet"
	Sepolia = "sepolia"
	Holesky = "holesky"
	Mekong  = "mekong"
)

var allChains = map[string]ChainSetting{
	Mainnet: {
		NetworkName:           Mainnet,
		GenesisForkVersion:    common.Version{0x00, 0x00, 0x00, 0x00},
		GenesisValidatorsRoot: root("0x4b363db94e286120d76eb905340fdd4e54bfe9f06bf33ff6cf5ad27f511bfe95"),
	},
	Sepolia: {
		NetworkName:           Sepolia,
		GenesisForkVersion:    common.Version{0x90, 0x00, 0x00, 0x69},
		GenesisValidatorsRoot: root("0xd8ea171f3c94aea21ebc42a1ed61052acf3f9209c00e4efbaaddac09ed9b8078"),
	},
	Holesky: {
		NetworkName:           Holesky,
		GenesisForkVersion:    common.Version{0x01, 0x01, 0x70, 0x00},
		GenesisValidatorsRoot: root("0x9143aa7c615a7f7115e2b6aac319c03529df8242ae705fba9df39b79c59fa8b1"),
	},
	Mekong: {
		NetworkName:           Mekong,
		GenesisForkVersion:    common.Version{0x10, 0x63, 0x76, 0x24},
		GenesisValidatorsRoot: root("0x9838240bca889c52818d7502179b393a828f61f15119d9027827c36caeb67db7"),
	},
}

func root(hexStr string) (out common.Root) {
	copy(out[:], hexutil.MustDecode(hexStr))
	return out
}

// GetChainSetting resolves a network name. Unknown names fail fast.
func GetChainSetting(name string) (ChainSetting, error) {
	setting, ok := allChains[name]
	if !ok {
		return ChainSetting{}, fmt.Errorf("%w: %q", ErrUnknownChain, name)
	}
	return setting, nil
}

// GetChainNames lists the registered networks.
func GetChainNames() []string {
	names := make([]string, 0, len(allChains))
	for name := range allChains {
		names = append(names, name)
	}
	return names
}

// GetDevnetChainSetting builds a setting from an invocation-time triple.
// The hex inputs are length-checked here; nothing downstream can see a
// fork version that is not 4 bytes or a validators root that is not 32.
func GetDevnetChainSetting(networkName, genesisForkVersion, genesisValidatorsRoot string) (ChainSetting, error) {
	fv, err := hexutil.Decode(genesisForkVersion)
	if err != nil {
		return ChainSetting{}, fmt.Errorf("invalid genesis fork version %q: %w", genesisForkVersion, err)
	}
	if len(fv) != 4 {
		return ChainSetting{}, fmt.Errorf("fork version should be 4 bytes, got %d", len(fv))
	}
	gvr, err := hexutil.Decode(genesisValidatorsRoot)
	if err != nil {
		return ChainSetting{}, fmt.Errorf("invalid genesis validators root %q: %w", genesisValidatorsRoot, err)
	}
	if len(gvr) != 32 {
		return ChainSetting{}, fmt.Errorf("genesis validators root should be 32 bytes, got %d", len(gvr))
	}
	setting := ChainSetting{NetworkName: networkName}
	copy(setting.GenesisForkVersion[:], fv)
	copy(setting.GenesisValidatorsRoot[:], gvr)
	return setting, nil
}
