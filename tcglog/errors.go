// Copyright 2022 UEFI Tools contributors
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package tcglog

import (
	"fmt"

	"github.com/canonical/go-tpm2"
)

// PCRIndexOutOfRangeError is returned when a log entry carries a PCR
// index larger than the platform maximum of 31.
type PCRIndexOutOfRangeError struct {
	Index PCRIndex
}

func (e *PCRIndexOutOfRangeError) Error() string {
	return fmt.Sprintf("log entry has an out-of-range PCR index (%d)", e.Index)
}

// UnrecognizedAlgorithmError is returned when a crypto-agile log entry
// contains a digest for an algorithm that doesn't appear in the log's
// Spec ID event.
type UnrecognizedAlgorithmError struct {
	Algorithm tpm2.HashAlgorithmId
}

func (e *UnrecognizedAlgorithmError) Error() string {
	return fmt.Sprintf("crypto-agile log entry contains a digest for an unrecognized algorithm (%v)",
		e.Algorithm)
}

// DuplicateAlgorithmError is returned when attempting to add an
// algorithm that a digest collection already tracks.
type DuplicateAlgorithmError struct {
	Algorithm tpm2.HashAlgorithmId
}

func (e *DuplicateAlgorithmError) Error() string {
	return fmt.Sprintf("digest collection already contains an entry for algorithm %v", e.Algorithm)
}

// UnknownAlgorithmError is returned when an operation references an
// algorithm that a digest collection doesn't track, or an algorithm ID
// whose digest size cannot be determined.
type UnknownAlgorithmError struct {
	Algorithm tpm2.HashAlgorithmId
}

func (e *UnknownAlgorithmError) Error() string {
	return fmt.Sprintf("no entry for algorithm %v", e.Algorithm)
}

// SizeMismatchError is returned when a supplied digest has a length
// that doesn't match the size of its algorithm.
type SizeMismatchError struct {
	Algorithm tpm2.HashAlgorithmId
	Expected  int
	Actual    int
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("digest length %d doesn't match the size of algorithm %v (%d)",
		e.Actual, e.Algorithm, e.Expected)
}

// InvalidLocalityError is returned when resetting a digest with a
// startup locality outside of the range supported by the TPM.
type InvalidLocalityError struct {
	Locality uint8
}

func (e *InvalidLocalityError) Error() string {
	return fmt.Sprintf("invalid startup locality %d", e.Locality)
}
