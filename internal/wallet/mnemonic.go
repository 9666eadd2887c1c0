// Package wallet holds the key material of the local development wallet:
// BIP39 mnemonics, BIP44 key derivation for EVM accounts, and an
// age-encrypted keystore.
package wallet

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/tyler-smith/go-bip39"

	ilerr "github.com/mrz1836/idealink/pkg/errors"
)

// ErrInvalidWordCount indicates the mnemonic must be 12 or 24 words.
var ErrInvalidWordCount = errors.New("word count must be 12 or 24")

//nolint:gochecknoglobals // compiled patterns
var (
	whitespaceRegex = regexp.MustCompile(`\s+`)

	// numberedListRegex matches numbered list prefixes like "1." "2)" "3:"
	numberedListRegex = regexp.MustCompile(`(?m)^\s*\d+[\.\)\:]\s*`)

	// bulletListRegex matches bullet prefixes like "- " "* " "• "
	bulletListRegex = regexp.MustCompile(`(?m)^\s*[-*•]\s*`)
)

// GenerateMnemonic creates a new BIP39 mnemonic phrase.
// wordCount must be 12 (128 bits entropy) or 24 (256 bits entropy).
func GenerateMnemonic(wordCount int) (string, error) {
	var bitSize int
	switch wordCount {
	case 12:
		bitSize = 128
	case 24:
		bitSize = 256
	default:
		return "", ErrInvalidWordCount
	}

	entropy, err := bip39.NewEntropy(bitSize)
	if err != nil {
		return "", err
	}
	defer ZeroBytes(entropy)

	return bip39.NewMnemonic(entropy)
}

// ValidateMnemonic checks word count, words and checksum. Misspelled words
// are reported in the error's suggestion.
func ValidateMnemonic(mnemonic string) error {
	normalized := NormalizeMnemonicInput(mnemonic)

	words := strings.Fields(normalized)
	if len(words) != 12 && len(words) != 24 {
		return ilerr.WithDetails(ilerr.ErrInvalidMnemonic, map[string]string{
			ilerr.DetailReason: fmt.Sprintf("got %d words, expected 12 or 24", len(words)),
		})
	}

	if typos := DetectTypos(normalized); len(typos) > 0 {
		err := ilerr.WithDetails(ilerr.ErrInvalidMnemonic, map[string]string{
			ilerr.DetailReason: "unknown words",
		})
		return ilerr.WithSuggestion(err, FormatTypoSuggestions(typos))
	}

	if _, err := bip39.MnemonicToByteArray(normalized); err != nil {
		return ilerr.WithDetails(ilerr.ErrInvalidMnemonic, map[string]string{
			ilerr.DetailReason: "checksum mismatch",
		})
	}
	return nil
}

// NormalizeMnemonicInput lowercases the input, strips list numbering and
// bullets, turns commas into spaces, and collapses whitespace.
func NormalizeMnemonicInput(input string) string {
	input = strings.ToLower(input)
	input = numberedListRegex.ReplaceAllString(input, " ")
	input = bulletListRegex.ReplaceAllString(input, " ")
	input = strings.ReplaceAll(input, ",", " ")
	input = whitespaceRegex.ReplaceAllString(input, " ")
	return strings.TrimSpace(input)
}

// MnemonicToSeed converts a BIP39 mnemonic phrase to a 64-byte seed.
// The returned seed should be zeroed after use.
func MnemonicToSeed(mnemonic, passphrase string) ([]byte, error) {
	if err := ValidateMnemonic(mnemonic); err != nil {
		return nil, err
	}
	return bip39.NewSeed(NormalizeMnemonicInput(mnemonic), passphrase), nil
}

// IsValidWord checks if a word is in the BIP39 word list.
func IsValidWord(word string) bool {
	_, ok := bip39.GetWordIndex(strings.ToLower(word))
	return ok
}

// MaxTypoDistance is the maximum Levenshtein distance to consider a suggestion.
const MaxTypoDistance = 2

// TypoInfo describes a word that is not in the BIP39 list.
type TypoInfo struct {
	// Index is the word position in the mnemonic (0-based).
	Index int
	Word  string
	// Suggestion is the closest BIP39 word, or empty if none is close.
	Suggestion string
	Distance   int
}

// SuggestWord finds the closest BIP39 word to the input.
// Returns "" if no word is within MaxTypoDistance.
func SuggestWord(input string) string {
	input = strings.ToLower(input)

	minDist := math.MaxInt
	var suggestion string
	for _, word := range bip39.GetWordList() {
		dist := levenshtein.ComputeDistance(input, word)
		if dist == 0 {
			return word
		}
		if dist < minDist {
			minDist = dist
			suggestion = word
		}
	}

	if minDist <= MaxTypoDistance {
		return suggestion
	}
	return ""
}

// DetectTypos returns the words of mnemonic that are not BIP39 words.
func DetectTypos(mnemonic string) []TypoInfo {
	var typos []TypoInfo
	for i, word := range strings.Fields(NormalizeMnemonicInput(mnemonic)) {
		if IsValidWord(word) {
			continue
		}
		info := TypoInfo{Index: i, Word: word, Suggestion: SuggestWord(word)}
		if info.Suggestion != "" {
			info.Distance = levenshtein.ComputeDistance(word, info.Suggestion)
		}
		typos = append(typos, info)
	}
	return typos
}

// FormatTypoSuggestions renders typos one per line, numbering words from 1.
func FormatTypoSuggestions(typos []TypoInfo) string {
	lines := make([]string, 0, len(typos))
	for _, typo := range typos {
		if typo.Suggestion != "" {
			lines = append(lines, fmt.Sprintf("Word %d: '%s' - did you mean '%s'?", typo.Index+1, typo.Word, typo.Suggestion))
		} else {
			lines = append(lines, fmt.Sprintf("Word %d: '%s' is not a valid BIP39 word", typo.Index+1, typo.Word))
		}
	}
	return strings.Join(lines, "\n")
}

// ZeroBytes overwrites b with zeros.
func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
