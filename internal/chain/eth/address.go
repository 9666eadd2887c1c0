// Package eth holds EVM helpers shared by the wallet providers and the
// contract gateway: address handling, gas margins, nonce tracking, and
// transaction signing.
package eth

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"

	ilerr "github.com/mrz1836/idealink/pkg/errors"
)

// IsValidAddress reports whether address is 0x-prefixed hex of the right length.
// The checksum is not verified.
func IsValidAddress(address string) bool {
	return strings.HasPrefix(address, "0x") && common.IsHexAddress(address)
}

// ToChecksumAddress converts an address to EIP-55 checksum format.
// Invalid input is returned unchanged.
func ToChecksumAddress(address string) string {
	if !IsValidAddress(address) {
		return address
	}
	return common.HexToAddress(address).Hex()
}

// ValidateChecksumAddress validates the EIP-55 checksum of a mixed-case address.
// All lowercase and all uppercase addresses are accepted as non-checksummed.
func ValidateChecksumAddress(address string) error {
	if !IsValidAddress(address) {
		return ilerr.WithDetails(ilerr.ErrInvalidAddress, map[string]string{
			"address": address,
		})
	}

	addrPart := address[2:]
	if addrPart == strings.ToLower(addrPart) || addrPart == strings.ToUpper(addrPart) {
		return nil
	}

	if expected := ToChecksumAddress(address); address != expected {
		return ilerr.WithDetails(ilerr.ErrInvalidChecksum, map[string]string{
			"expected": expected,
			"actual":   address,
		})
	}
	return nil
}

// ParseAddress validates address and returns it as a common.Address.
func ParseAddress(address string) (common.Address, error) {
	if err := ValidateChecksumAddress(address); err != nil {
		return common.Address{}, err
	}
	return common.HexToAddress(address), nil
}

// LowerAddress returns the canonical lowercase form used for session state
// and comparisons.
func LowerAddress(address string) string {
	return strings.ToLower(address)
}

// SameAddress compares two addresses case-insensitively.
func SameAddress(a, b string) bool {
	return strings.EqualFold(a, b)
}
