// Copyright 2022 UEFI Tools contributors
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package cper

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"golang.org/x/xerrors"

	"github.com/uefitools/fwrecords/efi"
)

const (
	// RecordHeaderSize is the encoded size of a record header.
	RecordHeaderSize = 128

	// SectionDescriptorSize is the encoded size of a section descriptor.
	SectionDescriptorSize = 72

	recordSignature    = "CPER"
	recordSignatureEnd = 0xffffffff
)

const (
	validPlatformID  = 1 << 0
	validTimestamp   = 1 << 1
	validPartitionID = 1 << 2
)

func bcdToUint8(b byte) (uint8, bool) {
	hi := b >> 4
	lo := b & 0xf
	if hi > 9 || lo > 9 {
		return 0, false
	}
	return hi*10 + lo, true
}

func uint8ToBCD(v uint8) byte {
	return (v/10)<<4 | v%10
}

type rawRecordHeader struct {
	Signature        [4]byte
	Revision         uint16
	SignatureEnd     uint32
	SectionCount     uint16
	Severity         Severity
	ValidationBits   uint32
	RecordLength     uint32
	Timestamp        [8]byte
	PlatformID       efi.GUID
	PartitionID      efi.GUID
	CreatorID        efi.GUID
	NotificationType efi.GUID
	RecordID         uint64
	Flags            RecordFlags
	PersistenceInfo  uint64
	Reserved         [12]byte
}

// RecordHeader corresponds to the record header at the start of every
// error record. The platform ID, timestamp and partition ID fields are
// only meaningful when the corresponding validation bit is set, so
// they are exposed through gated accessors.
type RecordHeader struct {
	Revision         uint16
	SectionCount     uint16 // Maintained by Record.AddSection
	Severity         Severity
	RecordLength     uint32 // Maintained by Record.AddSection
	CreatorID        efi.GUID
	NotificationType efi.GUID
	RecordID         uint64
	Flags            RecordFlags
	PersistenceInfo  uint64

	validationBits uint32
	timestamp      [8]byte
	platformID     efi.GUID
	partitionID    efi.GUID
	reserved       [12]byte
}

// PlatformID returns the platform identifier. The second return value
// is false when the platform ID validation bit is clear, in which case
// the underlying bytes carry no meaning.
func (h *RecordHeader) PlatformID() (efi.GUID, bool) {
	if h.validationBits&validPlatformID == 0 {
		return efi.GUID{}, false
	}
	return h.platformID, true
}

// SetPlatformID sets the platform identifier and marks it valid.
func (h *RecordHeader) SetPlatformID(guid efi.GUID) {
	h.platformID = guid
	h.validationBits |= validPlatformID
}

// PartitionID returns the software partition identifier. The second
// return value is false when the partition ID validation bit is clear.
func (h *RecordHeader) PartitionID() (efi.GUID, bool) {
	if h.validationBits&validPartitionID == 0 {
		return efi.GUID{}, false
	}
	return h.partitionID, true
}

// SetPartitionID sets the software partition identifier and marks it
// valid.
func (h *RecordHeader) SetPartitionID(guid efi.GUID) {
	h.partitionID = guid
	h.validationBits |= validPartitionID
}

// Timestamp returns the time at which the error occurred. The second
// return value is false when the timestamp validation bit is clear or
// the encoded timestamp is not valid BCD, regardless of the underlying
// bytes.
func (h *RecordHeader) Timestamp() (time.Time, bool) {
	if h.validationBits&validTimestamp == 0 {
		return time.Time{}, false
	}

	var fields [7]uint8
	for i, b := range []byte{
		h.timestamp[0], h.timestamp[1], h.timestamp[2],
		h.timestamp[4], h.timestamp[5], h.timestamp[6], h.timestamp[7]} {
		v, ok := bcdToUint8(b)
		if !ok {
			return time.Time{}, false
		}
		fields[i] = v
	}

	sec, min, hour := int(fields[0]), int(fields[1]), int(fields[2])
	day, month := int(fields[3]), int(fields[4])
	year := int(fields[6])*100 + int(fields[5])

	return time.Date(year, time.Month(month), day, hour, min, sec, 0, time.UTC), true
}

// PreciseTimestamp indicates whether the timestamp was recorded at the
// time of the error rather than at some later point.
func (h *RecordHeader) PreciseTimestamp() bool {
	return h.timestamp[3]&1 != 0
}

// SetTimestamp sets the timestamp and marks it valid.
func (h *RecordHeader) SetTimestamp(t time.Time, precise bool) {
	t = t.UTC()
	h.timestamp[0] = uint8ToBCD(uint8(t.Second()))
	h.timestamp[1] = uint8ToBCD(uint8(t.Minute()))
	h.timestamp[2] = uint8ToBCD(uint8(t.Hour()))
	h.timestamp[3] = 0
	if precise {
		h.timestamp[3] = 1
	}
	h.timestamp[4] = uint8ToBCD(uint8(t.Day()))
	h.timestamp[5] = uint8ToBCD(uint8(t.Month()))
	h.timestamp[6] = uint8ToBCD(uint8(t.Year() % 100))
	h.timestamp[7] = uint8ToBCD(uint8(t.Year() / 100))
	h.validationBits |= validTimestamp
}

func (h *RecordHeader) encode(w io.Writer) error {
	raw := rawRecordHeader{
		Revision:         h.Revision,
		SignatureEnd:     recordSignatureEnd,
		SectionCount:     h.SectionCount,
		Severity:         h.Severity,
		ValidationBits:   h.validationBits,
		RecordLength:     h.RecordLength,
		Timestamp:        h.timestamp,
		PlatformID:       h.platformID,
		PartitionID:      h.partitionID,
		CreatorID:        h.CreatorID,
		NotificationType: h.NotificationType,
		RecordID:         h.RecordID,
		Flags:            h.Flags,
		PersistenceInfo:  h.PersistenceInfo,
		Reserved:         h.reserved}
	copy(raw.Signature[:], recordSignature)
	return binary.Write(w, binary.LittleEndian, &raw)
}

// Section pairs a section descriptor with its decoded body.
type Section struct {
	Descriptor *SectionDescriptor
	Data       SectionData
}

// Record corresponds to a complete error record: a header followed by
// one section descriptor and section body per section.
type Record struct {
	Header   *RecordHeader
	Sections []*Section
}

// NewRecord returns an empty record with the supplied severity. The
// record length accounts for the header only until sections are added.
func NewRecord(severity Severity) *Record {
	return &Record{
		Header: &RecordHeader{
			Revision:     0x0210,
			Severity:     severity,
			RecordLength: RecordHeaderSize}}
}

// ReadRecord decodes an error record from the supplied buffer. The
// whole record is validated before anything is returned: a bad
// signature, a record length that contradicts the buffer or a section
// that falls outside the record fail with a *MalformedRecordError and
// no partial result.
func ReadRecord(data []byte) (*Record, error) {
	r := bytes.NewReader(data)

	var raw rawRecordHeader
	if err := binary.Read(r, binary.LittleEndian, &raw); err != nil {
		return nil, &MalformedRecordError{Offset: 0, Err: io.ErrUnexpectedEOF}
	}

	if string(raw.Signature[:]) != recordSignature {
		return nil, &MalformedRecordError{Offset: 0, Err: fmt.Errorf("unexpected signature %q", string(raw.Signature[:]))}
	}
	if raw.SignatureEnd != recordSignatureEnd {
		return nil, &MalformedRecordError{Offset: 6, Err: fmt.Errorf("unexpected signature end 0x%08x", raw.SignatureEnd)}
	}
	if raw.RecordLength < RecordHeaderSize+uint32(raw.SectionCount)*SectionDescriptorSize {
		return nil, &MalformedRecordError{
			Offset: 20,
			Err: fmt.Errorf("record length %d too small for %d sections",
				raw.RecordLength, raw.SectionCount)}
	}
	if uint64(raw.RecordLength) > uint64(len(data)) {
		return nil, &MalformedRecordError{Offset: 20, Err: io.ErrUnexpectedEOF}
	}

	record := &Record{
		Header: &RecordHeader{
			Revision:         raw.Revision,
			SectionCount:     raw.SectionCount,
			Severity:         raw.Severity,
			RecordLength:     raw.RecordLength,
			CreatorID:        raw.CreatorID,
			NotificationType: raw.NotificationType,
			RecordID:         raw.RecordID,
			Flags:            raw.Flags,
			PersistenceInfo:  raw.PersistenceInfo,
			validationBits:   raw.ValidationBits,
			timestamp:        raw.Timestamp,
			platformID:       raw.PlatformID,
			partitionID:      raw.PartitionID,
			reserved:         raw.Reserved}}

	for i := uint16(0); i < raw.SectionCount; i++ {
		offset := int64(RecordHeaderSize) + int64(i)*SectionDescriptorSize

		desc, err := readSectionDescriptor(r)
		if err != nil {
			return nil, &MalformedRecordError{Offset: offset, Err: err}
		}

		end := uint64(desc.SectionOffset) + uint64(desc.SectionLength)
		if end > uint64(raw.RecordLength) {
			return nil, &MalformedRecordError{
				Offset: offset,
				Err: fmt.Errorf("section %d (offset %d, length %d) extends beyond the record",
					i, desc.SectionOffset, desc.SectionLength)}
		}

		body := data[desc.SectionOffset:end]
		record.Sections = append(record.Sections, &Section{
			Descriptor: desc,
			Data:       decodeSectionData(desc.SectionType, body)})
	}

	return record, nil
}

// Write serializes the record to w. Section bodies are placed at the
// offsets recorded in their descriptors.
func (r *Record) Write(w io.Writer) error {
	buf := make([]byte, r.Header.RecordLength)

	hdr := new(bytes.Buffer)
	if err := r.Header.encode(hdr); err != nil {
		return err
	}
	copy(buf, hdr.Bytes())

	for i, section := range r.Sections {
		desc := new(bytes.Buffer)
		if err := section.Descriptor.encode(desc); err != nil {
			return xerrors.Errorf("cannot encode descriptor for section %d: %w", i, err)
		}
		copy(buf[RecordHeaderSize+i*SectionDescriptorSize:], desc.Bytes())

		body := section.Data.Bytes()
		if len(body) != int(section.Descriptor.SectionLength) {
			return fmt.Errorf("section %d body has length %d, descriptor says %d",
				i, len(body), section.Descriptor.SectionLength)
		}
		copy(buf[section.Descriptor.SectionOffset:], body)
	}

	_, err := w.Write(buf)
	return err
}

// Bytes returns the serialized form of the record.
func (r *Record) Bytes() ([]byte, error) {
	w := new(bytes.Buffer)
	if err := r.Write(w); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// AddSection appends a section with the supplied type, severity, flags
// and body, keeping the header's section count and record length
// consistent. The body is placed after everything already in the
// record; descriptors for earlier sections shift accordingly, so
// offsets are recomputed for the whole record.
func (r *Record) AddSection(sectionType efi.GUID, severity Severity, flags SectionFlags, data SectionData) {
	desc := &SectionDescriptor{
		Revision:      0x0100,
		Flags:         flags,
		SectionType:   sectionType,
		Severity:      severity,
		SectionLength: uint32(len(data.Bytes()))}
	r.Sections = append(r.Sections, &Section{Descriptor: desc, Data: data})

	r.Header.SectionCount = uint16(len(r.Sections))

	// Bodies are laid out contiguously after the descriptor table.
	offset := uint32(RecordHeaderSize + len(r.Sections)*SectionDescriptorSize)
	for _, section := range r.Sections {
		section.Descriptor.SectionOffset = offset
		offset += section.Descriptor.SectionLength
	}
	r.Header.RecordLength = offset
}
