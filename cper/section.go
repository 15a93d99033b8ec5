// Copyright 2022 UEFI Tools contributors
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package cper

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/uefitools/fwrecords/efi"
)

const (
	validFRUID     = 1 << 0
	validFRUString = 1 << 1
)

type rawSectionDescriptor struct {
	SectionOffset  uint32
	SectionLength  uint32
	Revision       uint16
	ValidationBits uint8
	Reserved       uint8
	Flags          SectionFlags
	SectionType    efi.GUID
	FRUID          efi.GUID
	Severity       Severity
	FRUText        [20]byte
}

// SectionDescriptor corresponds to one entry in the descriptor table
// that follows the record header. It locates the section body within
// the record and describes its type and severity.
type SectionDescriptor struct {
	SectionOffset uint32
	SectionLength uint32
	Revision      uint16
	Flags         SectionFlags
	SectionType   efi.GUID
	Severity      Severity

	validationBits uint8
	reserved       uint8
	fruID          efi.GUID
	fruText        [20]byte
}

// FRUID returns the field replaceable unit identifier. The second
// return value is false when the FRU ID validation bit is clear.
func (d *SectionDescriptor) FRUID() (efi.GUID, bool) {
	if d.validationBits&validFRUID == 0 {
		return efi.GUID{}, false
	}
	return d.fruID, true
}

// SetFRUID sets the field replaceable unit identifier and marks it
// valid.
func (d *SectionDescriptor) SetFRUID(guid efi.GUID) {
	d.fruID = guid
	d.validationBits |= validFRUID
}

// FRUText returns the field replaceable unit description string. The
// second return value is false when the FRU string validation bit is
// clear.
func (d *SectionDescriptor) FRUText() (string, bool) {
	if d.validationBits&validFRUString == 0 {
		return "", false
	}
	text := d.fruText[:]
	if i := bytes.IndexByte(text, 0); i >= 0 {
		text = text[:i]
	}
	return string(text), true
}

// SetFRUText sets the field replaceable unit description string and
// marks it valid. Text longer than 20 bytes is truncated.
func (d *SectionDescriptor) SetFRUText(text string) {
	d.fruText = [20]byte{}
	copy(d.fruText[:], text)
	d.validationBits |= validFRUString
}

// TypeLabel returns a human readable label for the section type, or
// "Unknown" if the type is not recognized.
func (d *SectionDescriptor) TypeLabel() string {
	if entry, ok := sectionDecoders[d.SectionType]; ok {
		return entry.label
	}
	return "Unknown"
}

func readSectionDescriptor(r io.Reader) (*SectionDescriptor, error) {
	var raw rawSectionDescriptor
	if err := binary.Read(r, binary.LittleEndian, &raw); err != nil {
		return nil, io.ErrUnexpectedEOF
	}
	return &SectionDescriptor{
		SectionOffset:  raw.SectionOffset,
		SectionLength:  raw.SectionLength,
		Revision:       raw.Revision,
		Flags:          raw.Flags,
		SectionType:    raw.SectionType,
		Severity:       raw.Severity,
		validationBits: raw.ValidationBits,
		reserved:       raw.Reserved,
		fruID:          raw.FRUID,
		fruText:        raw.FRUText}, nil
}

func (d *SectionDescriptor) encode(w io.Writer) error {
	raw := rawSectionDescriptor{
		SectionOffset:  d.SectionOffset,
		SectionLength:  d.SectionLength,
		Revision:       d.Revision,
		ValidationBits: d.validationBits,
		Reserved:       d.reserved,
		Flags:          d.Flags,
		SectionType:    d.SectionType,
		FRUID:          d.fruID,
		Severity:       d.Severity,
		FRUText:        d.fruText}
	return binary.Write(w, binary.LittleEndian, &raw)
}

// SectionData corresponds to the body of a section.
type SectionData interface {
	fmt.Stringer

	// Bytes returns the serialized form of this section body.
	Bytes() []byte
}

type sectionDecoderEntry struct {
	label  string
	decode func(data []byte) (SectionData, error)
}

var sectionDecoders = map[efi.GUID]sectionDecoderEntry{
	FirmwareErrorSection: {
		label: "Firmware Error Record Reference",
		decode: func(data []byte) (SectionData, error) {
			return decodeFirmwareErrorRecordReference(data)
		}}}

func decodeSectionData(sectionType efi.GUID, data []byte) SectionData {
	entry, ok := sectionDecoders[sectionType]
	if !ok {
		return UnknownSectionData(data)
	}
	d, err := entry.decode(data)
	if err != nil {
		// An undecodable body is kept raw so that the record still
		// round trips.
		return UnknownSectionData(data)
	}
	return d
}

// UnknownSectionData is the body of a section with an unrecognized
// type. It preserves the raw bytes.
type UnknownSectionData []byte

func (d UnknownSectionData) String() string {
	return fmt.Sprintf("UnknownSectionData{%d bytes}", len(d))
}

func (d UnknownSectionData) Bytes() []byte {
	return d
}

// FirmwareErrorType describes the kind of firmware error log a
// firmware error record reference points at.
type FirmwareErrorType uint8

const (
	FirmwareErrorTypeIPFSAL   FirmwareErrorType = 0
	FirmwareErrorTypeSOCType1 FirmwareErrorType = 1
	FirmwareErrorTypeSOCType2 FirmwareErrorType = 2
)

func (t FirmwareErrorType) String() string {
	switch t {
	case FirmwareErrorTypeIPFSAL:
		return "IPF SAL Error Record"
	case FirmwareErrorTypeSOCType1:
		return "SOC Firmware Error Record Type1"
	case FirmwareErrorTypeSOCType2:
		return "SOC Firmware Error Record Type2"
	default:
		return fmt.Sprintf("%d", uint8(t))
	}
}

type rawFirmwareErrorRecordReference struct {
	ErrorType FirmwareErrorType
	Revision  uint8
	Reserved  [6]byte
	RecordID  uint64
}

// FirmwareErrorRecordReference corresponds to the body of a firmware
// error record reference section.
type FirmwareErrorRecordReference struct {
	ErrorType FirmwareErrorType
	Revision  uint8
	RecordID  uint64

	reserved [6]byte
}

func decodeFirmwareErrorRecordReference(data []byte) (*FirmwareErrorRecordReference, error) {
	if len(data) != binary.Size(rawFirmwareErrorRecordReference{}) {
		return nil, fmt.Errorf("unexpected body length %d", len(data))
	}
	var raw rawFirmwareErrorRecordReference
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &raw); err != nil {
		return nil, err
	}
	return &FirmwareErrorRecordReference{
		ErrorType: raw.ErrorType,
		Revision:  raw.Revision,
		RecordID:  raw.RecordID,
		reserved:  raw.Reserved}, nil
}

func (r *FirmwareErrorRecordReference) String() string {
	return fmt.Sprintf("FirmwareErrorRecordReference{ ErrorType: %v, RecordID: 0x%016x }", r.ErrorType, r.RecordID)
}

func (r *FirmwareErrorRecordReference) Bytes() []byte {
	w := new(bytes.Buffer)
	if err := binary.Write(w, binary.LittleEndian, &rawFirmwareErrorRecordReference{
		ErrorType: r.ErrorType,
		Revision:  r.Revision,
		Reserved:  r.reserved,
		RecordID:  r.RecordID}); err != nil {
		panic(err)
	}
	return w.Bytes()
}
