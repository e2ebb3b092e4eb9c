// Package util contains misc internal utilities shared across this
// module's packages.
package util

import (
	"errors"
	"strings"
)

// GetBit returns the value of a given bit in a byte.
func GetBit(b byte, bitIndex uint) bool {
	return (b>>bitIndex)&1 == 1
}

// SetBit sets a single bit in a byte.
func SetBit(in byte, bitIndex uint, high bool) byte {
	if high {
		in |= 1 << bitIndex
	} else {
		in &= ^(1 << bitIndex)
	}
	return in
}

// MergeErrors converts many errors to a single one, newline separated.
// Nil entries are skipped; a slice of all nils returns nil.
func MergeErrors(errs []error) error {
	var strs []string
	for _, err := range errs {
		if err != nil {
			strs = append(strs, err.Error())
		}
	}
	if len(strs) == 0 {
		return nil
	}
	return errors.New(strings.Join(strs, "\n"))
}
