package credentials

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/protolambda/zrnt/eth2/beacon/common"
	"github.com/protolambda/ztyp/tree"

	"github.com/kysee/eth2-keygen/bls"
	"github.com/kysee/eth2-keygen/settings"
	"github.com/kysee/eth2-keygen/types"
)

// ExitTransactionGeneration signs a voluntary exit for the validator
// with its signing key under the chain's exit domain.
func ExitTransactionGeneration(chainSetting settings.ChainSetting, signingSK *big.Int,
	validatorIndex uint64, epoch uint64) (*types.SignedVoluntaryExit, error) {
	message := types.VoluntaryExit{
		Epoch:          common.Epoch(epoch),
		ValidatorIndex: common.ValidatorIndex(validatorIndex),
	}
	domain := types.ComputeVoluntaryExitDomain(
		chainSetting.GenesisForkVersion, chainSetting.GenesisValidatorsRoot)
	signingRoot := types.ComputeSigningRoot(message.HashTreeRoot(tree.GetHashFn()), domain)
	signature, err := bls.Sign(signingSK, signingRoot[:])
	if err != nil {
		return nil, fmt.Errorf("failed to sign voluntary exit: %w", err)
	}
	return &types.SignedVoluntaryExit{
		Message:   message,
		Signature: signature,
	}, nil
}

// SignedVoluntaryExitDatum is one element of the exit-transaction JSON
// file, shaped for direct submission to a beacon node.
type SignedVoluntaryExitDatum struct {
	Message   VoluntaryExitMessage `json:"message"`
	Signature types.HexBytes       `json:"signature"`
}

type VoluntaryExitMessage struct {
	Epoch          string `json:"epoch"`
	ValidatorIndex string `json:"validator_index"`
}

// ExportExitTransactionsJSON writes all signed exits as a single JSON
// array, in input order, and returns the file path.
func ExportExitTransactionsJSON(folder string, signedExits []*types.SignedVoluntaryExit) (string, error) {
	data := make([]*SignedVoluntaryExitDatum, 0, len(signedExits))
	for _, signed := range signedExits {
		data = append(data, &SignedVoluntaryExitDatum{
			Message: VoluntaryExitMessage{
				Epoch:          strconv.FormatUint(uint64(signed.Message.Epoch), 10),
				ValidatorIndex: strconv.FormatUint(uint64(signed.Message.ValidatorIndex), 10),
			},
			Signature: signed.Signature[:],
		})
	}
	filefolder := filepath.Join(folder, fmt.Sprintf("signed_exit_transactions-%d.json", time.Now().Unix()))
	if err := writeJSONFile(filefolder, data); err != nil {
		return "", err
	}
	return filefolder, nil
}

// VerifyExitTransactionsJSON re-reads an exit-transaction file and
// verifies every signature against the corresponding validator pubkey.
func VerifyExitTransactionsJSON(filefolder string, pubkeys []common.BLSPubkey, chainSetting settings.ChainSetting) error {
	raw, err := os.ReadFile(filefolder)
	if err != nil {
		return fmt.Errorf("failed to read exit transactions %s: %w", filefolder, err)
	}
	var data []*SignedVoluntaryExitDatum
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("failed to parse exit transactions %s: %w", filefolder, err)
	}
	if len(data) != len(pubkeys) {
		return fmt.Errorf("exit transaction count (%d) doesn't equal the validator count (%d)", len(data), len(pubkeys))
	}
	domain := types.ComputeVoluntaryExitDomain(
		chainSetting.GenesisForkVersion, chainSetting.GenesisValidatorsRoot)
	for i, datum := range data {
		epoch, err := strconv.ParseUint(datum.Message.Epoch, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid epoch in exit %d: %w", i, err)
		}
		validatorIndex, err := strconv.ParseUint(datum.Message.ValidatorIndex, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid validator index in exit %d: %w", i, err)
		}
		message := types.VoluntaryExit{
			Epoch:          common.Epoch(epoch),
			ValidatorIndex: common.ValidatorIndex(validatorIndex),
		}
		if len(datum.Signature) != 96 {
			return fmt.Errorf("invalid signature length in exit %d: %d", i, len(datum.Signature))
		}
		var signature common.BLSSignature
		copy(signature[:], datum.Signature)
		signingRoot := types.ComputeSigningRoot(message.HashTreeRoot(tree.GetHashFn()), domain)
		if !bls.Verify(pubkeys[i], signingRoot[:], signature) {
			return fmt.Errorf("exit %d for validator %d failed signature verification", i, validatorIndex)
		}
	}
	return nil
}

// writeJSONFile persists a JSON document read-only for owner and group.
func writeJSONFile(filefolder string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filefolder, err)
	}
	if err := os.WriteFile(filefolder, raw, 0o440); err != nil {
		return fmt.Errorf("failed to write %s: %w", filefolder, err)
	}
	if runtime.GOOS != "windows" {
		if err := os.Chmod(filefolder, 0o440); err != nil {
			return fmt.Errorf("failed to chmod %s: %w", filefolder, err)
		}
	}
	return nil
}
