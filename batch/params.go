package batch

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Params holds the inputs of a batch run. Flags mirror the interactive
// CLI options; the environment supplies defaults for the output folder.
type Params struct {
	Chain string

	// Devnet triple, used instead of Chain whenever DevnetChainName is
	// set; a missing fork version or validators root is then an error.
	DevnetChainName             string
	DevnetGenesisForkVersion    string
	DevnetGenesisValidatorsRoot string

	Mnemonic         string
	MnemonicPassword string
	Language         string

	NumValidators       int
	Amounts             []uint64
	ValidatorStartIndex uint64

	KeystorePassword string
	ExecutionAddress string

	ValidatorIndices []uint64
	Epoch            uint64
	KeystorePath     string

	OutputFolder string
}

// NewParams parses command-line style arguments into Params.
func NewParams(args ...string) (*Params, error) {
	params := &Params{
		Chain:         "mainnet",
		Language:      "english",
		NumValidators: 1,
		OutputFolder:  getEnv("OUTPUT_FOLDER", "."),
	}

	for i := 0; i < len(args); i++ {
		if i+1 >= len(args) {
			return nil, fmt.Errorf("missing argument for %s", args[i])
		}
		value := args[i+1]
		var err error
		switch args[i] {
		case "--chain":
			params.Chain = value
		case "--devnet_chain_setting":
			// name,genesis_fork_version,genesis_validators_root
			parts := strings.Split(value, ",")
			if len(parts) != 3 {
				return nil, fmt.Errorf("devnet chain setting should be name,fork_version,validators_root, got %q", value)
			}
			params.DevnetChainName = parts[0]
			params.DevnetGenesisForkVersion = parts[1]
			params.DevnetGenesisValidatorsRoot = parts[2]
		case "--mnemonic":
			params.Mnemonic = value
		case "--mnemonic_password":
			params.MnemonicPassword = value
		case "--language":
			params.Language = value
		case "--num_validators":
			params.NumValidators, err = strconv.Atoi(value)
		case "--amounts":
			params.Amounts, err = parseUintList(value)
		case "--validator_start_index":
			params.ValidatorStartIndex, err = strconv.ParseUint(value, 10, 64)
		case "--keystore_password":
			params.KeystorePassword = value
		case "--execution_address":
			params.ExecutionAddress = value
		case "--validator_indices":
			params.ValidatorIndices, err = parseUintList(value)
		case "--epoch":
			params.Epoch, err = strconv.ParseUint(value, 10, 64)
		case "--keystore":
			params.KeystorePath = value
		case "--folder":
			params.OutputFolder = value
		default:
			return nil, fmt.Errorf("unknown argument %s", args[i])
		}
		if err != nil {
			return nil, fmt.Errorf("invalid value %q for %s: %w", value, args[i], err)
		}
		i++
	}
	return params, nil
}

func parseUintList(value string) ([]uint64, error) {
	parts := strings.Split(value, ",")
	out := make([]uint64, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
