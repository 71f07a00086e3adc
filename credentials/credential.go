// Package credentials bundles everything a single validator needs: key
// derivation at the EIP-2334 paths, withdrawal credentials, deposit and
// BLS-to-execution-change signing, and the encrypted signing keystore.
package credentials

import (
	"fmt"
	"math/big"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	gethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/protolambda/zrnt/eth2/beacon/common"
	"github.com/protolambda/ztyp/tree"

	"github.com/kysee/eth2-keygen/bls"
	"github.com/kysee/eth2-keygen/cryptoutil"
	"github.com/kysee/eth2-keygen/derivation"
	"github.com/kysee/eth2-keygen/keystore"
	"github.com/kysee/eth2-keygen/settings"
	"github.com/kysee/eth2-keygen/types"
)

const (
	blsWithdrawalPrefix         = 0x00
	eth1AddressWithdrawalPrefix = 0x01

	// GweiPerEth converts deposit amounts; 1 ETH = 10^9 gwei.
	GweiPerEth = 1_000_000_000

	MinDepositAmount common.Gwei = 1
	MaxDepositAmount common.Gwei = 32 * GweiPerEth
)

// Credential holds one validator's secret material and chain context.
// It lives in memory only; nothing here is serialized directly.
type Credential struct {
	Index        uint64
	Amount       common.Gwei
	ChainSetting settings.ChainSetting

	WithdrawalKeyPath string
	SigningKeyPath    string
	WithdrawalSK      *big.Int
	SigningSK         *big.Int

	// ExecutionAddress switches the withdrawal credentials to the 0x01
	// form when set.
	ExecutionAddress *gethcommon.Address
}

// NewCredential derives both validator keys for `index` at the EIP-2334
// paths m/12381/3600/{index}/0 (withdrawal) and .../0/0 (signing).
func NewCredential(mnemonicPhrase, mnemonicPassword string, index uint64, amount common.Gwei,
	chainSetting settings.ChainSetting, executionAddress *gethcommon.Address) (*Credential, error) {
	withdrawalKeyPath := fmt.Sprintf("m/12381/3600/%d/0", index)
	signingKeyPath := withdrawalKeyPath + "/0"

	withdrawalSK, err := derivation.MnemonicAndPathToKey(mnemonicPhrase, withdrawalKeyPath, mnemonicPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to derive withdrawal key at %s: %w", withdrawalKeyPath, err)
	}
	signingSK, err := derivation.MnemonicAndPathToKey(mnemonicPhrase, signingKeyPath, mnemonicPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to derive signing key at %s: %w", signingKeyPath, err)
	}

	return &Credential{
		Index:             index,
		Amount:            amount,
		ChainSetting:      chainSetting,
		WithdrawalKeyPath: withdrawalKeyPath,
		SigningKeyPath:    signingKeyPath,
		WithdrawalSK:      withdrawalSK,
		SigningSK:         signingSK,
		ExecutionAddress:  executionAddress,
	}, nil
}

func (c *Credential) SigningPK() (common.BLSPubkey, error) {
	return bls.SkToPk(c.SigningSK)
}

func (c *Credential) WithdrawalPK() (common.BLSPubkey, error) {
	return bls.SkToPk(c.WithdrawalSK)
}

// WithdrawalCredentials returns the 32-byte commitment embedded in the
// deposit: 0x01 || 11 zero bytes || execution address when an address is
// set, 0x00 || SHA256(withdrawal_pk)[1:] otherwise.
func (c *Credential) WithdrawalCredentials() (common.Root, error) {
	var wc common.Root
	if c.ExecutionAddress != nil {
		wc[0] = eth1AddressWithdrawalPrefix
		copy(wc[12:], c.ExecutionAddress[:])
		return wc, nil
	}
	withdrawalPK, err := c.WithdrawalPK()
	if err != nil {
		return wc, err
	}
	digest := cryptoutil.SHA256(withdrawalPK[:])
	wc[0] = blsWithdrawalPrefix
	copy(wc[1:], digest[1:])
	return wc, nil
}

// DepositMessage builds the unsigned deposit. Generation uses the
// closed amount bounds: MIN <= amount <= MAX.
func (c *Credential) DepositMessage() (*types.DepositMessage, error) {
	if c.Amount < MinDepositAmount || c.Amount > MaxDepositAmount {
		return nil, fmt.Errorf("deposit of %d gwei is not within the bounds of this tool", c.Amount)
	}
	signingPK, err := c.SigningPK()
	if err != nil {
		return nil, err
	}
	wc, err := c.WithdrawalCredentials()
	if err != nil {
		return nil, err
	}
	return &types.DepositMessage{
		Pubkey:                signingPK,
		WithdrawalCredentials: wc,
		Amount:                c.Amount,
	}, nil
}

// SignedDeposit signs the deposit message with the signing key under the
// deposit domain of the chain's genesis fork version.
func (c *Credential) SignedDeposit() (*types.DepositData, error) {
	msg, err := c.DepositMessage()
	if err != nil {
		return nil, err
	}
	domain := types.ComputeDepositDomain(c.ChainSetting.GenesisForkVersion)
	signingRoot := types.ComputeSigningRoot(msg.HashTreeRoot(tree.GetHashFn()), domain)
	signature, err := bls.Sign(c.SigningSK, signingRoot[:])
	if err != nil {
		return nil, fmt.Errorf("failed to sign deposit: %w", err)
	}
	return &types.DepositData{
		Pubkey:                msg.Pubkey,
		WithdrawalCredentials: msg.WithdrawalCredentials,
		Amount:                msg.Amount,
		Signature:             signature,
	}, nil
}

// DepositDatum is one element of the deposit-data JSON file: the signed
// deposit plus the sidecar metadata a consumer needs to verify it.
type DepositDatum struct {
	Pubkey                types.RawHex `json:"pubkey"`
	WithdrawalCredentials types.RawHex `json:"withdrawal_credentials"`
	Amount                uint64       `json:"amount"`
	Signature             types.RawHex `json:"signature"`
	DepositMessageRoot    types.RawHex `json:"deposit_message_root"`
	DepositDataRoot       types.RawHex `json:"deposit_data_root"`
	ForkVersion           types.RawHex `json:"fork_version"`
	NetworkName           string       `json:"network_name"`
	DepositCLIVersion     string       `json:"deposit_cli_version"`
}

func (c *Credential) DepositDatum() (*DepositDatum, error) {
	signedDeposit, err := c.SignedDeposit()
	if err != nil {
		return nil, err
	}
	hFn := tree.GetHashFn()
	messageRoot := signedDeposit.MessageRoot(hFn)
	dataRoot := signedDeposit.HashTreeRoot(hFn)
	return &DepositDatum{
		Pubkey:                signedDeposit.Pubkey[:],
		WithdrawalCredentials: signedDeposit.WithdrawalCredentials[:],
		Amount:                uint64(signedDeposit.Amount),
		Signature:             signedDeposit.Signature[:],
		DepositMessageRoot:    messageRoot[:],
		DepositDataRoot:       dataRoot[:],
		ForkVersion:           c.ChainSetting.GenesisForkVersion[:],
		NetworkName:           c.ChainSetting.NetworkName,
		DepositCLIVersion:     settings.DepositCLIVersion,
	}, nil
}

// GetBLSToExecutionChange signs the change message with the withdrawal
// key; the signing key plays no part in a BTEC.
func (c *Credential) GetBLSToExecutionChange(validatorIndex uint64) (*types.SignedBLSToExecutionChange, error) {
	if c.ExecutionAddress == nil {
		return nil, fmt.Errorf("the execution address should not be empty")
	}
	withdrawalPK, err := c.WithdrawalPK()
	if err != nil {
		return nil, err
	}
	message := types.BLSToExecutionChange{
		ValidatorIndex:     common.ValidatorIndex(validatorIndex),
		FromBLSPubkey:      withdrawalPK,
		ToExecutionAddress: common.Eth1Address(*c.ExecutionAddress),
	}
	domain := types.ComputeBLSToExecutionChangeDomain(
		c.ChainSetting.GenesisForkVersion, c.ChainSetting.GenesisValidatorsRoot)
	signingRoot := types.ComputeSigningRoot(message.HashTreeRoot(tree.GetHashFn()), domain)
	signature, err := bls.Sign(c.WithdrawalSK, signingRoot[:])
	if err != nil {
		return nil, fmt.Errorf("failed to sign bls to execution change: %w", err)
	}
	return &types.SignedBLSToExecutionChange{
		Message:   message,
		Signature: signature,
	}, nil
}

// BLSToExecutionChangeDatum is one element of the
// bls_to_execution_change JSON file.
type BLSToExecutionChangeDatum struct {
	Message   BLSToExecutionChangeMessage  `json:"message"`
	Signature types.HexBytes               `json:"signature"`
	Metadata  BLSToExecutionChangeMetadata `json:"metadata"`
}

type BLSToExecutionChangeMessage struct {
	ValidatorIndex     string         `json:"validator_index"`
	FromBLSPubkey      types.HexBytes `json:"from_bls_pubkey"`
	ToExecutionAddress types.HexBytes `json:"to_execution_address"`
}

type BLSToExecutionChangeMetadata struct {
	NetworkName           string         `json:"network_name"`
	GenesisValidatorsRoot types.HexBytes `json:"genesis_validators_root"`
	DepositCLIVersion     string         `json:"deposit_cli_version"`
}

func (c *Credential) BLSToExecutionChangeDatum(validatorIndex uint64) (*BLSToExecutionChangeDatum, error) {
	signed, err := c.GetBLSToExecutionChange(validatorIndex)
	if err != nil {
		return nil, err
	}
	return &BLSToExecutionChangeDatum{
		Message: BLSToExecutionChangeMessage{
			ValidatorIndex:     strconv.FormatUint(uint64(signed.Message.ValidatorIndex), 10),
			FromBLSPubkey:      signed.Message.FromBLSPubkey[:],
			ToExecutionAddress: signed.Message.ToExecutionAddress[:],
		},
		Signature: signed.Signature[:],
		Metadata: BLSToExecutionChangeMetadata{
			NetworkName:           c.ChainSetting.NetworkName,
			GenesisValidatorsRoot: c.ChainSetting.GenesisValidatorsRoot[:],
			DepositCLIVersion:     settings.DepositCLIVersion,
		},
	}, nil
}

// SigningKeystore encrypts the 32-byte big-endian signing key under the
// user password with the default scrypt parameters.
func (c *Credential) SigningKeystore(password string) (*keystore.Keystore, error) {
	secret := make([]byte, 32)
	c.SigningSK.FillBytes(secret)
	ks := keystore.NewScryptKeystore()
	if err := ks.Encrypt(secret, password, c.SigningKeyPath, nil, nil); err != nil {
		return nil, fmt.Errorf("failed to encrypt signing key: %w", err)
	}
	return ks, nil
}

// SaveSigningKeystore writes the keystore under the conventional
// keystore-<path>-<unix>.json name and returns the file path.
func (c *Credential) SaveSigningKeystore(password, folder string) (string, error) {
	ks, err := c.SigningKeystore(password)
	if err != nil {
		return "", err
	}
	filefolder := filepath.Join(folder,
		fmt.Sprintf("keystore-%s-%d.json", strings.ReplaceAll(ks.Path, "/", "_"), time.Now().Unix()))
	if err := ks.Save(filefolder); err != nil {
		return "", err
	}
	return filefolder, nil
}

// VerifyKeystore re-reads a saved keystore, decrypts it and compares the
// recovered key against the in-memory signing key.
func (c *Credential) VerifyKeystore(keystoreFile, password string) (bool, error) {
	saved, err := keystore.FromFile(keystoreFile)
	if err != nil {
		return false, err
	}
	secret, err := saved.Decrypt(password)
	if err != nil {
		return false, err
	}
	return c.SigningSK.Cmp(new(big.Int).SetBytes(secret)) == 0, nil
}
