// Package batch is the process surface of the tool: one entry point per
// command, wiring mnemonic handling, credential creation, exports and
// the re-read verification into an atomic run.
package batch

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	gethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/protolambda/zrnt/eth2/beacon/common"
	"github.com/rs/zerolog"

	"github.com/kysee/eth2-keygen/bls"
	"github.com/kysee/eth2-keygen/credentials"
	"github.com/kysee/eth2-keygen/keystore"
	"github.com/kysee/eth2-keygen/mnemonic"
	"github.com/kysee/eth2-keygen/settings"
	"github.com/kysee/eth2-keygen/types"
)

type Command string

const (
	CmdNewMnemonic                  Command = "new-mnemonic"
	CmdExistingMnemonic             Command = "existing-mnemonic"
	CmdGenerateBLSToExecutionChange Command = "generate-bls-to-execution-change"
	CmdExitTransactionKeystore      Command = "exit-transaction-keystore"
	CmdExitTransactionMnemonic      Command = "exit-transaction-mnemonic"
)

const (
	validatorKeysFolder         = "validator_keys"
	blsToExecutionChangesFolder = "bls_to_execution_changes"
	exitTransactionsFolder      = "exit_transactions"
	defaultDepositAmount        = 32 * credentials.GweiPerEth
)

var log = zerolog.New(os.Stderr).Level(zerolog.InfoLevel).With().Timestamp().Logger()

// Result reports what a successful run produced. ExitCode is 0 on
// success; Run never returns a partial Result alongside an error.
type Result struct {
	ExitCode     int
	OutputFolder string

	// Mnemonic is set by new-mnemonic only; the caller shows it once and
	// discards it.
	Mnemonic string

	KeystorePaths            []string
	DepositDataPath          string
	BLSToExecutionChangePath string
	ExitTransactionsPath     string
}

// Run executes one command. Every validation or verification failure
// aborts the batch; leftover files from a failed run are the caller's
// responsibility.
func Run(command Command, params *Params) (*Result, error) {
	switch command {
	case CmdNewMnemonic:
		return runNewMnemonic(params)
	case CmdExistingMnemonic:
		return runExistingMnemonic(params)
	case CmdGenerateBLSToExecutionChange:
		return runGenerateBLSToExecutionChange(params)
	case CmdExitTransactionMnemonic:
		return runExitTransactionMnemonic(params)
	case CmdExitTransactionKeystore:
		return runExitTransactionKeystore(params)
	default:
		return nil, fmt.Errorf("unknown command %q", command)
	}
}

func chainSetting(params *Params) (settings.ChainSetting, error) {
	if params.DevnetChainName != "" {
		return settings.GetDevnetChainSetting(params.DevnetChainName,
			params.DevnetGenesisForkVersion, params.DevnetGenesisValidatorsRoot)
	}
	return settings.GetChainSetting(params.Chain)
}

func runNewMnemonic(params *Params) (*Result, error) {
	phrase, err := mnemonic.GetMnemonic(params.Language, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate mnemonic: %w", err)
	}
	log.Info().Str("language", params.Language).Msg("generated a new mnemonic")
	result, err := generateKeys(params, phrase)
	if err != nil {
		return nil, err
	}
	result.Mnemonic = phrase
	return result, nil
}

func runExistingMnemonic(params *Params) (*Result, error) {
	phrase, err := mnemonic.ReconstructMnemonic(params.Mnemonic)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct mnemonic: %w", err)
	}
	return generateKeys(params, phrase)
}

// generateKeys is the shared tail of new-mnemonic and existing-mnemonic:
// derive credentials, export keystores and deposit data, then re-read
// and verify everything that was written.
func generateKeys(params *Params, phrase string) (*Result, error) {
	if err := credentials.ValidatePasswordStrength(params.KeystorePassword); err != nil {
		return nil, err
	}
	setting, err := chainSetting(params)
	if err != nil {
		return nil, err
	}
	executionAddress, err := parseExecutionAddress(params.ExecutionAddress)
	if err != nil {
		return nil, err
	}
	amounts, err := depositAmounts(params)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("network", setting.NetworkName).
		Int("num_validators", params.NumValidators).
		Uint64("start_index", params.ValidatorStartIndex).
		Msg("creating credentials")
	credentialList, err := credentials.NewCredentialListFromMnemonic(
		phrase, params.MnemonicPassword, params.NumValidators, amounts,
		setting, params.ValidatorStartIndex, executionAddress)
	if err != nil {
		return nil, err
	}

	folder := filepath.Join(params.OutputFolder, validatorKeysFolder)
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output folder %s: %w", folder, err)
	}

	log.Info().Str("folder", folder).Msg("exporting keystores")
	keystorePaths, err := credentialList.ExportKeystores(params.KeystorePassword, folder)
	if err != nil {
		return nil, err
	}
	log.Info().Msg("exporting deposit data")
	depositDataPath, err := credentialList.ExportDepositDataJSON(folder)
	if err != nil {
		return nil, err
	}

	log.Info().Msg("verifying keystores")
	if err := credentialList.VerifyKeystores(keystorePaths, params.KeystorePassword); err != nil {
		return nil, err
	}
	log.Info().Msg("verifying deposit data")
	if err := credentials.VerifyDepositDataJSON(depositDataPath, credentialList.Credentials); err != nil {
		return nil, err
	}

	log.Info().Str("folder", folder).Msg("success")
	return &Result{
		OutputFolder:    folder,
		KeystorePaths:   keystorePaths,
		DepositDataPath: depositDataPath,
	}, nil
}

func runGenerateBLSToExecutionChange(params *Params) (*Result, error) {
	setting, err := chainSetting(params)
	if err != nil {
		return nil, err
	}
	if params.ExecutionAddress == "" {
		return nil, fmt.Errorf("an execution address is required to generate a bls to execution change")
	}
	executionAddress, err := parseExecutionAddress(params.ExecutionAddress)
	if err != nil {
		return nil, err
	}
	if len(params.ValidatorIndices) == 0 {
		return nil, fmt.Errorf("at least one validator index is required")
	}
	phrase, err := mnemonic.ReconstructMnemonic(params.Mnemonic)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct mnemonic: %w", err)
	}

	numKeys := len(params.ValidatorIndices)
	credentialList, err := credentials.NewCredentialListFromMnemonic(
		phrase, params.MnemonicPassword, numKeys, make([]common.Gwei, numKeys),
		setting, params.ValidatorStartIndex, executionAddress)
	if err != nil {
		return nil, err
	}

	folder := filepath.Join(params.OutputFolder, blsToExecutionChangesFolder)
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output folder %s: %w", folder, err)
	}

	log.Info().Str("folder", folder).Int("count", numKeys).Msg("exporting bls to execution changes")
	btecPath, err := credentialList.ExportBLSToExecutionChangeJSON(folder, params.ValidatorIndices)
	if err != nil {
		return nil, err
	}
	log.Info().Msg("verifying bls to execution changes")
	if err := credentials.VerifyBLSToExecutionChangeJSON(btecPath, credentialList.Credentials,
		params.ValidatorIndices, *executionAddress, setting); err != nil {
		return nil, err
	}

	log.Info().Str("folder", folder).Msg("success")
	return &Result{
		OutputFolder:             folder,
		BLSToExecutionChangePath: btecPath,
	}, nil
}

func runExitTransactionMnemonic(params *Params) (*Result, error) {
	setting, err := chainSetting(params)
	if err != nil {
		return nil, err
	}
	if len(params.ValidatorIndices) == 0 {
		return nil, fmt.Errorf("at least one validator index is required")
	}
	phrase, err := mnemonic.ReconstructMnemonic(params.Mnemonic)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct mnemonic: %w", err)
	}

	// The validator indices are assumed to line up, in order, with the
	// key indices starting at the start index.
	signedExits := make([]*types.SignedVoluntaryExit, 0, len(params.ValidatorIndices))
	pubkeys := make([]common.BLSPubkey, 0, len(params.ValidatorIndices))
	for i, validatorIndex := range params.ValidatorIndices {
		keyIndex := params.ValidatorStartIndex + uint64(i)
		credential, err := credentials.NewCredential(phrase, params.MnemonicPassword,
			keyIndex, 0, setting, nil)
		if err != nil {
			return nil, err
		}
		signed, err := credentials.ExitTransactionGeneration(setting, credential.SigningSK,
			validatorIndex, params.Epoch)
		if err != nil {
			return nil, err
		}
		pubkey, err := credential.SigningPK()
		if err != nil {
			return nil, err
		}
		signedExits = append(signedExits, signed)
		pubkeys = append(pubkeys, pubkey)
	}
	return exportExits(params, setting, signedExits, pubkeys)
}

func runExitTransactionKeystore(params *Params) (*Result, error) {
	setting, err := chainSetting(params)
	if err != nil {
		return nil, err
	}
	if len(params.ValidatorIndices) != 1 {
		return nil, fmt.Errorf("exactly one validator index is required, got %d", len(params.ValidatorIndices))
	}
	ks, err := keystore.FromFile(params.KeystorePath)
	if err != nil {
		return nil, err
	}
	secret, err := ks.Decrypt(params.KeystorePassword)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt keystore %s: %w", params.KeystorePath, err)
	}
	signingSK := new(big.Int).SetBytes(secret)
	pubkey, err := bls.SkToPk(signingSK)
	if err != nil {
		return nil, err
	}
	signed, err := credentials.ExitTransactionGeneration(setting, signingSK,
		params.ValidatorIndices[0], params.Epoch)
	if err != nil {
		return nil, err
	}
	return exportExits(params, setting, []*types.SignedVoluntaryExit{signed}, []common.BLSPubkey{pubkey})
}

func exportExits(params *Params, setting settings.ChainSetting,
	signedExits []*types.SignedVoluntaryExit, pubkeys []common.BLSPubkey) (*Result, error) {
	folder := filepath.Join(params.OutputFolder, exitTransactionsFolder)
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output folder %s: %w", folder, err)
	}
	log.Info().Str("folder", folder).Int("count", len(signedExits)).Msg("exporting exit transactions")
	exitPath, err := credentials.ExportExitTransactionsJSON(folder, signedExits)
	if err != nil {
		return nil, err
	}
	log.Info().Msg("verifying exit transactions")
	if err := credentials.VerifyExitTransactionsJSON(exitPath, pubkeys, setting); err != nil {
		return nil, err
	}
	log.Info().Str("folder", folder).Msg("success")
	return &Result{
		OutputFolder:         folder,
		ExitTransactionsPath: exitPath,
	}, nil
}

func parseExecutionAddress(address string) (*gethcommon.Address, error) {
	if address == "" {
		return nil, nil
	}
	parsed, err := credentials.ValidateEth1WithdrawalAddress(address)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// depositAmounts resolves the per-validator amounts: the caller's list
// when given, 32 ETH per key otherwise.
func depositAmounts(params *Params) ([]common.Gwei, error) {
	if params.NumValidators < 0 {
		return nil, fmt.Errorf("the number of validators should not be negative, got %d", params.NumValidators)
	}
	if len(params.Amounts) == 0 {
		amounts := make([]common.Gwei, params.NumValidators)
		for i := range amounts {
			amounts[i] = defaultDepositAmount
		}
		return amounts, nil
	}
	if len(params.Amounts) != params.NumValidators {
		return nil, fmt.Errorf("the number of amounts (%d) doesn't equal the number of validators (%d)",
			len(params.Amounts), params.NumValidators)
	}
	amounts := make([]common.Gwei, len(params.Amounts))
	for i, amount := range params.Amounts {
		amounts[i] = common.Gwei(amount)
	}
	return amounts, nil
}
