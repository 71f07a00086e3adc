package credentials

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	gethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/protolambda/zrnt/eth2/beacon/common"
	"github.com/protolambda/ztyp/tree"

	"github.com/kysee/eth2-keygen/bls"
	"github.com/kysee/eth2-keygen/settings"
	"github.com/kysee/eth2-keygen/types"
)

func depositDataFileName(folder string) string {
	return filepath.Join(folder, fmt.Sprintf("deposit_data-%d.json", time.Now().Unix()))
}

func btecFileName(folder string) string {
	return filepath.Join(folder, fmt.Sprintf("bls_to_execution_change-%d.json", time.Now().Unix()))
}

// VerifyDepositDataJSON re-reads a deposit-data file and validates every
// deposit in it against the credential it was built from.
func VerifyDepositDataJSON(filefolder string, credentials []*Credential) error {
	raw, err := os.ReadFile(filefolder)
	if err != nil {
		return fmt.Errorf("failed to read deposit data %s: %w", filefolder, err)
	}
	var deposits []*DepositDatum
	if err := json.Unmarshal(raw, &deposits); err != nil {
		return fmt.Errorf("failed to parse deposit data %s: %w", filefolder, err)
	}
	if len(deposits) != len(credentials) {
		return fmt.Errorf("deposit count (%d) doesn't equal the credential count (%d)", len(deposits), len(credentials))
	}
	for i, deposit := range deposits {
		if err := ValidateDeposit(deposit, credentials[i]); err != nil {
			return fmt.Errorf("deposit %d is invalid: %w", i, err)
		}
	}
	return nil
}

// ValidateDeposit checks a re-read deposit against the staking rules:
// key ownership, withdrawal credential form, the half-open amount bound
// MIN < amount <= MAX, the BLS signature and both sidecar roots.
func ValidateDeposit(deposit *DepositDatum, credential *Credential) error {
	if len(deposit.Pubkey) != 48 {
		return fmt.Errorf("pubkey should be 48 bytes, got %d", len(deposit.Pubkey))
	}
	signingPK, err := credential.SigningPK()
	if err != nil {
		return err
	}
	if !bytes.Equal(deposit.Pubkey, signingPK[:]) {
		return fmt.Errorf("pubkey doesn't match the credential's signing key")
	}

	if len(deposit.WithdrawalCredentials) != 32 {
		return fmt.Errorf("withdrawal credentials should be 32 bytes, got %d", len(deposit.WithdrawalCredentials))
	}
	wc := deposit.WithdrawalCredentials
	switch {
	case wc[0] == blsWithdrawalPrefix && credential.ExecutionAddress == nil:
		expected, err := credential.WithdrawalCredentials()
		if err != nil {
			return err
		}
		if !bytes.Equal(wc[1:], expected[1:]) {
			return fmt.Errorf("bls withdrawal credentials don't match the withdrawal key")
		}
	case wc[0] == eth1AddressWithdrawalPrefix && credential.ExecutionAddress != nil:
		if !bytes.Equal(wc[1:12], make([]byte, 11)) {
			return fmt.Errorf("execution withdrawal credentials have nonzero padding")
		}
		if !bytes.Equal(wc[12:], credential.ExecutionAddress[:]) {
			return fmt.Errorf("execution withdrawal credentials don't match the execution address")
		}
	default:
		return fmt.Errorf("unexpected withdrawal prefix %#x", wc[0])
	}

	amount := common.Gwei(deposit.Amount)
	if !(MinDepositAmount < amount && amount <= MaxDepositAmount) {
		return fmt.Errorf("deposit amount %d gwei is out of range", amount)
	}

	if len(deposit.ForkVersion) != 4 {
		return fmt.Errorf("fork version should be 4 bytes, got %d", len(deposit.ForkVersion))
	}
	var forkVersion common.Version
	copy(forkVersion[:], deposit.ForkVersion)
	if len(deposit.Signature) != 96 {
		return fmt.Errorf("signature should be 96 bytes, got %d", len(deposit.Signature))
	}

	depositData := types.DepositData{
		Pubkey: signingPK,
		Amount: amount,
	}
	copy(depositData.WithdrawalCredentials[:], wc)
	copy(depositData.Signature[:], deposit.Signature)

	hFn := tree.GetHashFn()
	domain := types.ComputeDepositDomain(forkVersion)
	signingRoot := types.ComputeSigningRoot(depositData.MessageRoot(hFn), domain)
	if !bls.Verify(signingPK, signingRoot[:], depositData.Signature) {
		return fmt.Errorf("deposit signature failed verification")
	}

	messageRoot := depositData.MessageRoot(hFn)
	if !bytes.Equal(deposit.DepositMessageRoot, messageRoot[:]) {
		return fmt.Errorf("deposit message root doesn't match")
	}
	dataRoot := depositData.HashTreeRoot(hFn)
	if !bytes.Equal(deposit.DepositDataRoot, dataRoot[:]) {
		return fmt.Errorf("deposit data root doesn't match")
	}
	return nil
}

// VerifyBLSToExecutionChangeJSON re-reads a change file and validates
// every entry against its credential and the caller inputs.
func VerifyBLSToExecutionChangeJSON(filefolder string, credentials []*Credential,
	inputValidatorIndices []uint64, inputExecutionAddress gethcommon.Address,
	chainSetting settings.ChainSetting) error {
	raw, err := os.ReadFile(filefolder)
	if err != nil {
		return fmt.Errorf("failed to read bls to execution changes %s: %w", filefolder, err)
	}
	var changes []*BLSToExecutionChangeDatum
	if err := json.Unmarshal(raw, &changes); err != nil {
		return fmt.Errorf("failed to parse bls to execution changes %s: %w", filefolder, err)
	}
	if len(changes) != len(credentials) || len(changes) != len(inputValidatorIndices) {
		return fmt.Errorf("change count (%d) doesn't line up with credentials (%d) and validator indices (%d)",
			len(changes), len(credentials), len(inputValidatorIndices))
	}
	for i, change := range changes {
		if err := ValidateBLSToExecutionChange(change, credentials[i],
			inputValidatorIndices[i], inputExecutionAddress, chainSetting); err != nil {
			return fmt.Errorf("bls to execution change %d is invalid: %w", i, err)
		}
	}
	return nil
}

// ValidateBLSToExecutionChange checks one re-read change message. The
// target address must equal both the credential's address and the
// caller-supplied one.
func ValidateBLSToExecutionChange(change *BLSToExecutionChangeDatum, credential *Credential,
	inputValidatorIndex uint64, inputExecutionAddress gethcommon.Address,
	chainSetting settings.ChainSetting) error {
	validatorIndex, err := strconv.ParseUint(change.Message.ValidatorIndex, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid validator index %q: %w", change.Message.ValidatorIndex, err)
	}
	if validatorIndex != inputValidatorIndex {
		return fmt.Errorf("validator index %d doesn't match input %d", validatorIndex, inputValidatorIndex)
	}

	withdrawalPK, err := credential.WithdrawalPK()
	if err != nil {
		return err
	}
	if !bytes.Equal(change.Message.FromBLSPubkey, withdrawalPK[:]) {
		return fmt.Errorf("from_bls_pubkey doesn't match the withdrawal key")
	}

	if credential.ExecutionAddress == nil {
		return fmt.Errorf("the credential has no execution address")
	}
	if !bytes.Equal(change.Message.ToExecutionAddress, credential.ExecutionAddress[:]) ||
		!bytes.Equal(change.Message.ToExecutionAddress, inputExecutionAddress[:]) {
		return fmt.Errorf("to_execution_address doesn't match the withdrawal address")
	}

	if !bytes.Equal(change.Metadata.GenesisValidatorsRoot, chainSetting.GenesisValidatorsRoot[:]) {
		return fmt.Errorf("genesis validators root doesn't match the chain setting")
	}

	message := types.BLSToExecutionChange{
		ValidatorIndex: common.ValidatorIndex(validatorIndex),
		FromBLSPubkey:  withdrawalPK,
	}
	copy(message.ToExecutionAddress[:], change.Message.ToExecutionAddress)
	if len(change.Signature) != 96 {
		return fmt.Errorf("signature should be 96 bytes, got %d", len(change.Signature))
	}
	var signature common.BLSSignature
	copy(signature[:], change.Signature)

	domain := types.ComputeBLSToExecutionChangeDomain(
		chainSetting.GenesisForkVersion, chainSetting.GenesisValidatorsRoot)
	signingRoot := types.ComputeSigningRoot(message.HashTreeRoot(tree.GetHashFn()), domain)
	if !bls.Verify(withdrawalPK, signingRoot[:], signature) {
		return fmt.Errorf("bls to execution change signature failed verification")
	}
	return nil
}

// ValidatePasswordStrength enforces the minimum keystore password
// length.
func ValidatePasswordStrength(password string) error {
	if len([]rune(password)) < 8 {
		return fmt.Errorf("the password length should be at least 8")
	}
	return nil
}

// ValidateEth1WithdrawalAddress parses a 0x-prefixed, EIP-55
// checksummed, nonzero execution address.
func ValidateEth1WithdrawalAddress(address string) (gethcommon.Address, error) {
	if !gethcommon.IsHexAddress(address) {
		return gethcommon.Address{}, fmt.Errorf("the given address %q is not a valid execution address", address)
	}
	parsed := gethcommon.HexToAddress(address)
	if parsed.Hex() != address {
		return gethcommon.Address{}, fmt.Errorf("the given address %q is not in EIP-55 checksummed form", address)
	}
	if parsed == (gethcommon.Address{}) {
		return gethcommon.Address{}, fmt.Errorf("the zero address cannot receive withdrawals")
	}
	return parsed, nil
}
