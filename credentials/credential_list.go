package credentials

import (
	"fmt"

	gethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/protolambda/zrnt/eth2/beacon/common"

	"github.com/kysee/eth2-keygen/settings"
)

// CredentialList is an ordered collection of credentials, one per
// validator, ascending by validator index.
type CredentialList struct {
	Credentials []*Credential
}

// NewCredentialListFromMnemonic builds numKeys credentials for the
// indices [startIndex, startIndex+numKeys). Amounts must line up with
// the keys one to one.
func NewCredentialListFromMnemonic(mnemonicPhrase, mnemonicPassword string, numKeys int,
	amounts []common.Gwei, chainSetting settings.ChainSetting, startIndex uint64,
	executionAddress *gethcommon.Address) (*CredentialList, error) {
	if len(amounts) != numKeys {
		return nil, fmt.Errorf("the number of keys (%d) doesn't equal the corresponding deposit amounts (%d)",
			numKeys, len(amounts))
	}
	if startIndex+uint64(numKeys) > 1<<32 {
		return nil, fmt.Errorf("validator indices should be below 2^32, got start %d with %d keys", startIndex, numKeys)
	}
	credentials := make([]*Credential, 0, numKeys)
	for i := 0; i < numKeys; i++ {
		index := startIndex + uint64(i)
		credential, err := NewCredential(mnemonicPhrase, mnemonicPassword, index, amounts[i],
			chainSetting, executionAddress)
		if err != nil {
			return nil, fmt.Errorf("failed to create credential %d: %w", index, err)
		}
		credentials = append(credentials, credential)
	}
	return &CredentialList{Credentials: credentials}, nil
}

// ExportKeystores writes one keystore file per credential and returns
// the paths in credential order.
func (cl *CredentialList) ExportKeystores(password, folder string) ([]string, error) {
	paths := make([]string, 0, len(cl.Credentials))
	for _, credential := range cl.Credentials {
		path, err := credential.SaveSigningKeystore(password, folder)
		if err != nil {
			return nil, fmt.Errorf("failed to export keystore for validator %d: %w", credential.Index, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// ExportDepositDataJSON writes every deposit datum as one JSON array and
// returns the file path.
func (cl *CredentialList) ExportDepositDataJSON(folder string) (string, error) {
	data := make([]*DepositDatum, 0, len(cl.Credentials))
	for _, credential := range cl.Credentials {
		datum, err := credential.DepositDatum()
		if err != nil {
			return "", fmt.Errorf("failed to build deposit datum for validator %d: %w", credential.Index, err)
		}
		data = append(data, datum)
	}
	filefolder := depositDataFileName(folder)
	if err := writeJSONFile(filefolder, data); err != nil {
		return "", err
	}
	return filefolder, nil
}

// ExportBLSToExecutionChangeJSON writes one JSON array of signed change
// messages, one per credential, against the caller-supplied on-chain
// validator indices.
func (cl *CredentialList) ExportBLSToExecutionChangeJSON(folder string, validatorIndices []uint64) (string, error) {
	if len(validatorIndices) != len(cl.Credentials) {
		return "", fmt.Errorf("the number of validator indices (%d) doesn't equal the number of credentials (%d)",
			len(validatorIndices), len(cl.Credentials))
	}
	data := make([]*BLSToExecutionChangeDatum, 0, len(cl.Credentials))
	for i, credential := range cl.Credentials {
		datum, err := credential.BLSToExecutionChangeDatum(validatorIndices[i])
		if err != nil {
			return "", fmt.Errorf("failed to build bls to execution change for validator %d: %w", validatorIndices[i], err)
		}
		data = append(data, datum)
	}
	filefolder := btecFileName(folder)
	if err := writeJSONFile(filefolder, data); err != nil {
		return "", err
	}
	return filefolder, nil
}

// VerifyKeystores decrypts every exported keystore and compares the
// recovered keys against the in-memory credentials.
func (cl *CredentialList) VerifyKeystores(keystoreFiles []string, password string) error {
	if len(keystoreFiles) != len(cl.Credentials) {
		return fmt.Errorf("the number of keystores (%d) doesn't equal the number of credentials (%d)",
			len(keystoreFiles), len(cl.Credentials))
	}
	for i, credential := range cl.Credentials {
		ok, err := credential.VerifyKeystore(keystoreFiles[i], password)
		if err != nil {
			return fmt.Errorf("failed to verify keystore %s: %w", keystoreFiles[i], err)
		}
		if !ok {
			return fmt.Errorf("keystore %s doesn't match the signing key of validator %d",
				keystoreFiles[i], credential.Index)
		}
	}
	return nil
}
