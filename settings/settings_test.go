package settings

import (
	"testing"

	"github.com/protolambda/zrnt/eth2/beacon/common"
	"github.com/stretchr/testify/require"
)

func TestGetChainSetting(t *testing.T) {
	setting, err := GetChainSetting(Mainnet)
	require.NoError(t, err)
	require.Equal(t, Mainnet, setting.NetworkName)
	require.Equal(t, common.Version{0x00, 0x00, 0x00, 0x00}, setting.GenesisForkVersion)

	setting, err = GetChainSetting(Holesky)
	require.NoError(t, err)
	require.Equal(t, common.Version{0x01, 0x01, 0x70, 0x00}, setting.GenesisForkVersion)
}

func TestGetChainSettingUnknown(t *testing.T) {
	_, err := GetChainSetting("ropsten")
	require.ErrorIs(t, err, ErrUnknownChain)
}

func TestGetChainNames(t *testing.T) {
	names := GetChainNames()
	require.Contains(t, names, Mainnet)
	require.Contains(t, names, Sepolia)
}

func TestGetDevnetChainSetting(t *testing.T) {
	setting, err := GetDevnetChainSetting("devnet0", "0x10000038",
		"0x83431ec7fcf92cfc44947fc0418e831c25e1d0806590231c439830db7ad54fda")
	require.NoError(t, err)
	require.Equal(t, "devnet0", setting.NetworkName)
	require.Equal(t, common.Version{0x10, 0x00, 0x00, 0x38}, setting.GenesisForkVersion)
}

func TestGetDevnetChainSettingRejects(t *testing.T) {
	// a fork version that is not 4 bytes
	_, err := GetDevnetChainSetting("devnet0", "0x100038",
		"0x83431ec7fcf92cfc44947fc0418e831c25e1d0806590231c439830db7ad54fda")
	require.Error(t, err)

	// a validators root that is not 32 bytes
	_, err = GetDevnetChainSetting("devnet0", "0x10000038", "0x83431e")
	require.Error(t, err)

	// not hex at all
	_, err = GetDevnetChainSetting("devnet0", "10000038", "0x83431e")
	require.Error(t, err)
}
