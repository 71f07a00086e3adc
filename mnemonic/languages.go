package mnemonic

import (
	"fmt"
	"sort"

	"github.com/tyler-smith/go-bip39/wordlists"
)

// wordLists maps a language name to its 2048-entry BIP-39 word list.
// The lists ship compiled into the go-bip39 module.
var wordLists = map[string][]string{
	"chinese_simplified":  wordlists.ChineseSimplified,
	"chinese_traditional": wordlists.ChineseTraditional,
	"czech":               wordlists.Czech,
	"english":             wordlists.English,
	"french":              wordlists.French,
	"italian":             wordlists.Italian,
	"japanese":            wordlists.Japanese,
	"korean":              wordlists.Korean,
	"spanish":             wordlists.Spanish,
}

// GetLanguages lists the supported word-list languages, sorted.
func GetLanguages() []string {
	languages := make([]string, 0, len(wordLists))
	for lang := range wordLists {
		languages = append(languages, lang)
	}
	sort.Strings(languages)
	return languages
}

func getWordList(language string) ([]string, error) {
	words, ok := wordLists[language]
	if !ok {
		return nil, fmt.Errorf("no word list for language %q", language)
	}
	return words, nil
}
