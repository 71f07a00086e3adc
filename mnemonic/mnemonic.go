// Package mnemonic implements the BIP-39 codec: entropy to mnemonic with
// checksum, abbreviation-tolerant reconstruction across languages, and
// the mnemonic-to-seed derivation.
package mnemonic

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/kysee/eth2-keygen/cryptoutil"
)

var (
	// ErrInvalidMnemonic means no supported language validates the input
	// against its own checksum.
	ErrInvalidMnemonic = errors.New("mnemonic not valid in any supported language")
	// ErrAmbiguousMnemonic means more than one language validates; the
	// standard BIP-39 lists never collide like this, but it is checked.
	ErrAmbiguousMnemonic = errors.New("mnemonic is valid in more than one language")
)

func isValidWordCount(n int) bool {
	switch n {
	case 12, 15, 18, 21, 24:
		return true
	}
	return false
}

// checksumBits returns the high len(entropy)/4 bits of SHA-256(entropy).
func checksumBits(entropy []byte) *big.Int {
	checksumLength := len(entropy) / 4
	digest := cryptoutil.SHA256(entropy)
	return new(big.Int).Rsh(new(big.Int).SetBytes(digest[:]), uint(256-checksumLength))
}

// GetMnemonic returns a mnemonic in the given language for the supplied
// entropy. Nil entropy draws 32 fresh bytes from the platform CSPRNG.
//
// Ref: https://github.com/bitcoin/bips/blob/master/bip-0039.mediawiki#generating-the-mnemonic
func GetMnemonic(language string, entropy []byte) (string, error) {
	wordList, err := getWordList(language)
	if err != nil {
		return "", err
	}
	if entropy == nil {
		entropy = make([]byte, 32)
		if _, err := rand.Read(entropy); err != nil {
			return "", fmt.Errorf("failed to read entropy: %w", err)
		}
	}
	entropyLength := len(entropy) * 8
	switch entropyLength {
	case 128, 160, 192, 224, 256:
	default:
		return "", fmt.Errorf("entropy length should be one of [128, 160, 192, 224, 256] bits, got %d", entropyLength)
	}
	checksumLength := entropyLength / 32

	// entropy || checksum, chunked into 11-bit indices MSB first.
	bits := new(big.Int).SetBytes(entropy)
	bits.Lsh(bits, uint(checksumLength))
	bits.Or(bits, checksumBits(entropy))

	wordCount := (entropyLength + checksumLength) / 11
	words := make([]string, wordCount)
	mask := big.NewInt(2047)
	idx := new(big.Int)
	for i := 0; i < wordCount; i++ {
		shift := uint(11 * (wordCount - 1 - i))
		idx.And(idx.Rsh(bits, shift), mask)
		words[i] = wordList[idx.Uint64()]
	}
	return strings.Join(words, " "), nil
}

// abbrev normalizes a word to its lookup key: NFKC, lower case, first
// four characters. BIP-39 guarantees four characters identify a word
// uniquely within a list.
func abbrev(word string) string {
	runes := []rune(strings.ToLower(norm.NFKC.String(word)))
	if len(runes) > 4 {
		runes = runes[:4]
	}
	return string(runes)
}

// reconstructInLanguage maps the tokens through one language's
// abbreviated word list and verifies the checksum. It returns the
// canonical full-word mnemonic if the language validates.
func reconstructInLanguage(tokens []string, wordList []string) (string, bool) {
	index := make(map[string]int, len(wordList))
	for i, w := range wordList {
		index[abbrev(w)] = i
	}

	wordCount := len(tokens)
	bits := new(big.Int)
	words := make([]string, wordCount)
	for i, token := range tokens {
		idx, ok := index[abbrev(token)]
		if !ok {
			return "", false
		}
		bits.Lsh(bits, 11)
		bits.Or(bits, big.NewInt(int64(idx)))
		words[i] = wordList[idx]
	}

	checksumLength := wordCount / 3
	checksumMask := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(checksumLength)), big.NewInt(1))
	checksum := new(big.Int).And(bits, checksumMask)
	entropyInt := new(big.Int).Rsh(bits, uint(checksumLength))
	entropy := entropyInt.FillBytes(make([]byte, checksumLength*4))

	if checksumBits(entropy).Cmp(checksum) != 0 {
		return "", false
	}
	return strings.Join(words, " "), true
}

// ReconstructMnemonic accepts a mnemonic whose words may be full words
// or their unique 4-character abbreviations, in any supported language,
// and returns the canonical full-word mnemonic. Exactly one language
// must validate the checksum.
func ReconstructMnemonic(input string) (string, error) {
	tokens := strings.Split(strings.ToLower(norm.NFKC.String(strings.TrimSpace(input))), " ")
	if !isValidWordCount(len(tokens)) {
		return "", fmt.Errorf("%d is not a valid number of words in a mnemonic, must be 12, 15, 18, 21 or 24: %w",
			len(tokens), ErrInvalidMnemonic)
	}

	var reconstructed []string
	for _, language := range GetLanguages() {
		if full, ok := reconstructInLanguage(tokens, wordLists[language]); ok {
			reconstructed = append(reconstructed, full)
		}
	}
	switch len(reconstructed) {
	case 0:
		return "", ErrInvalidMnemonic
	case 1:
		return reconstructed[0], nil
	default:
		return "", ErrAmbiguousMnemonic
	}
}

// GetSeed derives the 64-byte BIP-39 seed:
// PBKDF2-HMAC-SHA512(NFKD(mnemonic), NFKD("mnemonic"+password), c=2048).
func GetSeed(mnemonic string, password string) ([]byte, error) {
	encodedMnemonic := []byte(norm.NFKD.String(mnemonic))
	salt := []byte(norm.NFKD.String("mnemonic" + password))
	seed, err := cryptoutil.PBKDF2(encodedMnemonic, salt, 64, 2048, "sha512")
	if err != nil {
		return nil, fmt.Errorf("failed to derive seed: %w", err)
	}
	return seed, nil
}
