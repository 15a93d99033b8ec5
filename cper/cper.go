// Copyright 2022 UEFI Tools contributors
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

// Package cper provides a codec for Common Platform Error Records as
// defined in appendix N of the UEFI specification.
package cper

import (
	"fmt"
	"strings"

	"github.com/uefitools/fwrecords/efi"
)

// Severity describes the severity of an error record or section.
type Severity uint32

const (
	SeverityRecoverable   Severity = 0
	SeverityFatal         Severity = 1
	SeverityCorrected     Severity = 2
	SeverityInformational Severity = 3
)

func (s Severity) String() string {
	switch s {
	case SeverityRecoverable:
		return "Recoverable"
	case SeverityFatal:
		return "Fatal"
	case SeverityCorrected:
		return "Corrected"
	case SeverityInformational:
		return "Informational"
	default:
		return fmt.Sprintf("Unknown (%d)", uint32(s))
	}
}

// RecordFlags describe how the error in a record was handled.
type RecordFlags uint32

const (
	RecordFlagRecovered     RecordFlags = 1 << 0 // HW_ERROR_FLAGS_RECOVERED
	RecordFlagPreviousError RecordFlags = 1 << 1 // HW_ERROR_FLAGS_PREVERR
	RecordFlagSimulated     RecordFlags = 1 << 2 // HW_ERROR_FLAGS_SIMULATED
)

var recordFlagNames = []struct {
	flag RecordFlags
	name string
}{
	{RecordFlagRecovered, "Recovered"},
	{RecordFlagPreviousError, "Previous Error"},
	{RecordFlagSimulated, "Simulated"},
}

// Decode returns the names of each flag that is set, plus the value of
// any set bits that have no defined meaning.
func (f RecordFlags) Decode() []string {
	var names []string
	rest := f
	for _, e := range recordFlagNames {
		if f&e.flag != 0 {
			names = append(names, e.name)
			rest &^= e.flag
		}
	}
	if rest != 0 {
		names = append(names, fmt.Sprintf("Unknown (0x%x)", uint32(rest)))
	}
	return names
}

func (f RecordFlags) String() string {
	return strings.Join(f.Decode(), ", ")
}

// SectionFlags describe the role of a section within a record, as a
// bitwise combination of the SectionFlag constants.
type SectionFlags uint32

const (
	SectionFlagPrimary                SectionFlags = 1 << 0
	SectionFlagContainmentWarning     SectionFlags = 1 << 1
	SectionFlagReset                  SectionFlags = 1 << 2
	SectionFlagErrorThresholdExceeded SectionFlags = 1 << 3
	SectionFlagResourceNotAccessible  SectionFlags = 1 << 4
	SectionFlagLatentError            SectionFlags = 1 << 5
	SectionFlagPropagated             SectionFlags = 1 << 6
	SectionFlagOverflow               SectionFlags = 1 << 7
)

var sectionFlagNames = []struct {
	flag SectionFlags
	name string
}{
	{SectionFlagPrimary, "Primary"},
	{SectionFlagContainmentWarning, "Containment Warning"},
	{SectionFlagReset, "Reset"},
	{SectionFlagErrorThresholdExceeded, "Error Threshold Exceeded"},
	{SectionFlagResourceNotAccessible, "Resource Not Accessible"},
	{SectionFlagLatentError, "Latent Error"},
	{SectionFlagPropagated, "Propagated"},
	{SectionFlagOverflow, "Overflow"},
}

// Decode returns the names of each flag that is set, plus the value of
// any set bits that have no defined meaning.
func (f SectionFlags) Decode() []string {
	var names []string
	rest := f
	for _, e := range sectionFlagNames {
		if f&e.flag != 0 {
			names = append(names, e.name)
			rest &^= e.flag
		}
	}
	if rest != 0 {
		names = append(names, fmt.Sprintf("Unknown (0x%x)", uint32(rest)))
	}
	return names
}

// FirmwareErrorSection is the type GUID of the Firmware Error Record
// Reference section.
var FirmwareErrorSection = efi.MakeGUID(0x81212a96, 0x09ed, 0x4996, 0x9471, [...]uint8{0x8d, 0x72, 0x9c, 0x8e, 0x69, 0xed})

// MalformedRecordError is returned when a record's structure is
// inconsistent - a bad signature, a declared length that contradicts
// the buffer, or a section that falls outside the record. The error
// aborts the decode of the whole record.
type MalformedRecordError struct {
	Offset int64
	Err    error
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed error record at offset %d: %v", e.Offset, e.Err)
}

func (e *MalformedRecordError) Unwrap() error {
	return e.Err
}
