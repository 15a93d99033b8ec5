// Copyright 2022 UEFI Tools contributors
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

// Package ivrs provides a codec for the device table entries found in
// the IVHD structures of the ACPI I/O Virtualization Reporting
// Structure (IVRS) table.
package ivrs

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// DeviceEntryType describes the type of a device table entry.
type DeviceEntryType uint8

const (
	DeviceEntryTypeReserved       DeviceEntryType = 0
	DeviceEntryTypeAll            DeviceEntryType = 1
	DeviceEntryTypeSelect         DeviceEntryType = 2
	DeviceEntryTypeRangeStart     DeviceEntryType = 3
	DeviceEntryTypeRangeEnd       DeviceEntryType = 4
	DeviceEntryTypeAliasSelect    DeviceEntryType = 66
	DeviceEntryTypeAliasRange     DeviceEntryType = 67
	DeviceEntryTypeExtendedSelect DeviceEntryType = 70
	DeviceEntryTypeExtendedRange  DeviceEntryType = 71
	DeviceEntryTypeSpecialDevice  DeviceEntryType = 72
	DeviceEntryTypeACPIHID        DeviceEntryType = 240
)

// SpecialDeviceVariety identifies the kind of device a special device
// entry describes.
type SpecialDeviceVariety uint8

const (
	SpecialDeviceIOAPIC SpecialDeviceVariety = 1
	SpecialDeviceHPET   SpecialDeviceVariety = 2
)

func (v SpecialDeviceVariety) String() string {
	switch v {
	case SpecialDeviceIOAPIC:
		return "IOAPIC"
	case SpecialDeviceHPET:
		return "HPET"
	default:
		return fmt.Sprintf("%d", uint8(v))
	}
}

// UIDFormat describes the encoding of the unique ID carried by an ACPI
// HID device entry.
type UIDFormat uint8

const (
	UIDFormatNone    UIDFormat = 0
	UIDFormatInteger UIDFormat = 1
	UIDFormatString  UIDFormat = 2
)

const baseEntrySize = 4

type rawDeviceTableEntry struct {
	Type       DeviceEntryType
	DeviceID   uint16
	DTESetting uint8
}

// MalformedDeviceTableEntryError is returned from ReadDeviceTableEntry
// if a device table entry cannot be decoded. Offset is the start of
// the entry, relative to the start of the device table.
type MalformedDeviceTableEntryError struct {
	Offset int64
	Err    error
}

func (e *MalformedDeviceTableEntryError) Error() string {
	return fmt.Sprintf("malformed device table entry at offset %d: %v", e.Offset, e.Err)
}

func (e *MalformedDeviceTableEntryError) Unwrap() error {
	return e.Err
}

// DeviceTableEntry corresponds to a single logical device table entry.
// A range entry is one logical entry on the wire even though it is
// encoded as a start/end pair.
type DeviceTableEntry interface {
	fmt.Stringer

	// Write serializes this entry to w.
	Write(w io.Writer) error
}

func writeBaseEntry(w io.Writer, t DeviceEntryType, deviceID uint16, setting uint8) error {
	return binary.Write(w, binary.LittleEndian, &rawDeviceTableEntry{
		Type:       t,
		DeviceID:   deviceID,
		DTESetting: setting})
}

// ReservedEntry corresponds to a reserved (padding) device table entry.
type ReservedEntry struct{}

func (e *ReservedEntry) String() string {
	return "Reserved"
}

func (e *ReservedEntry) Write(w io.Writer) error {
	return writeBaseEntry(w, DeviceEntryTypeReserved, 0, 0)
}

// AllDevicesEntry applies a DTE setting to all devices.
type AllDevicesEntry struct {
	DTESetting uint8
}

func (e *AllDevicesEntry) String() string {
	return fmt.Sprintf("All(0x%02x)", e.DTESetting)
}

func (e *AllDevicesEntry) Write(w io.Writer) error {
	return writeBaseEntry(w, DeviceEntryTypeAll, 0, e.DTESetting)
}

// SelectEntry applies a DTE setting to a single device.
type SelectEntry struct {
	DeviceID   uint16
	DTESetting uint8
}

func (e *SelectEntry) String() string {
	return fmt.Sprintf("Select(0x%04x)", e.DeviceID)
}

func (e *SelectEntry) Write(w io.Writer) error {
	return writeBaseEntry(w, DeviceEntryTypeSelect, e.DeviceID, e.DTESetting)
}

// RangeEntry applies a DTE setting to all devices between
// StartDeviceID and EndDeviceID inclusive. It is encoded as a start of
// range entry immediately followed by an end of range entry.
type RangeEntry struct {
	StartDeviceID uint16
	EndDeviceID   uint16
	DTESetting    uint8
}

func (e *RangeEntry) String() string {
	return fmt.Sprintf("Range(0x%04x-0x%04x)", e.StartDeviceID, e.EndDeviceID)
}

func (e *RangeEntry) Write(w io.Writer) error {
	if err := writeBaseEntry(w, DeviceEntryTypeRangeStart, e.StartDeviceID, e.DTESetting); err != nil {
		return err
	}
	return writeBaseEntry(w, DeviceEntryTypeRangeEnd, e.EndDeviceID, 0)
}

// AliasSelectEntry applies a DTE setting to a single device that is
// aliased to another requestor ID.
type AliasSelectEntry struct {
	DeviceID       uint16
	SourceDeviceID uint16
	DTESetting     uint8
}

func (e *AliasSelectEntry) String() string {
	return fmt.Sprintf("AliasSelect(0x%04x,source=0x%04x)", e.DeviceID, e.SourceDeviceID)
}

func (e *AliasSelectEntry) Write(w io.Writer) error {
	if err := writeBaseEntry(w, DeviceEntryTypeAliasSelect, e.DeviceID, e.DTESetting); err != nil {
		return err
	}
	return writeBaseEntry(w, 0, e.SourceDeviceID, 0)
}

// AliasRangeEntry applies a DTE setting to a range of aliased devices.
// It is encoded as an alias range start entry followed by an end of
// range entry.
type AliasRangeEntry struct {
	StartDeviceID  uint16
	SourceDeviceID uint16
	EndDeviceID    uint16
	DTESetting     uint8
}

func (e *AliasRangeEntry) String() string {
	return fmt.Sprintf("AliasRange(0x%04x-0x%04x,source=0x%04x)", e.StartDeviceID, e.EndDeviceID, e.SourceDeviceID)
}

func (e *AliasRangeEntry) Write(w io.Writer) error {
	if err := writeBaseEntry(w, DeviceEntryTypeAliasRange, e.StartDeviceID, e.DTESetting); err != nil {
		return err
	}
	if err := writeBaseEntry(w, 0, e.SourceDeviceID, 0); err != nil {
		return err
	}
	return writeBaseEntry(w, DeviceEntryTypeRangeEnd, e.EndDeviceID, 0)
}

// ExtendedSelectEntry applies a DTE setting and an extended DTE
// setting to a single device.
type ExtendedSelectEntry struct {
	DeviceID           uint16
	DTESetting         uint8
	ExtendedDTESetting uint32
}

func (e *ExtendedSelectEntry) String() string {
	return fmt.Sprintf("ExtendedSelect(0x%04x,ext=0x%08x)", e.DeviceID, e.ExtendedDTESetting)
}

func (e *ExtendedSelectEntry) Write(w io.Writer) error {
	if err := writeBaseEntry(w, DeviceEntryTypeExtendedSelect, e.DeviceID, e.DTESetting); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, e.ExtendedDTESetting)
}

// ExtendedRangeEntry applies a DTE setting and an extended DTE setting
// to a range of devices. It is encoded as an extended range start
// entry followed by an end of range entry.
type ExtendedRangeEntry struct {
	StartDeviceID      uint16
	EndDeviceID        uint16
	DTESetting         uint8
	ExtendedDTESetting uint32
}

func (e *ExtendedRangeEntry) String() string {
	return fmt.Sprintf("ExtendedRange(0x%04x-0x%04x,ext=0x%08x)", e.StartDeviceID, e.EndDeviceID, e.ExtendedDTESetting)
}

func (e *ExtendedRangeEntry) Write(w io.Writer) error {
	if err := writeBaseEntry(w, DeviceEntryTypeExtendedRange, e.StartDeviceID, e.DTESetting); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, e.ExtendedDTESetting); err != nil {
		return err
	}
	return writeBaseEntry(w, DeviceEntryTypeRangeEnd, e.EndDeviceID, 0)
}

// SpecialDeviceEntry applies a DTE setting to a device identified by a
// handle rather than a requestor ID, such as an IOAPIC or HPET.
type SpecialDeviceEntry struct {
	DTESetting     uint8
	Handle         uint8
	SourceDeviceID uint16
	Variety        SpecialDeviceVariety
}

func (e *SpecialDeviceEntry) String() string {
	return fmt.Sprintf("SpecialDevice(%v,handle=0x%02x,source=0x%04x)", e.Variety, e.Handle, e.SourceDeviceID)
}

func (e *SpecialDeviceEntry) Write(w io.Writer) error {
	if err := writeBaseEntry(w, DeviceEntryTypeSpecialDevice, 0, e.DTESetting); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, &rawSpecialDeviceTail{
		Handle:         e.Handle,
		SourceDeviceID: e.SourceDeviceID,
		Variety:        e.Variety})
}

type rawSpecialDeviceTail struct {
	Handle         uint8
	SourceDeviceID uint16
	Variety        SpecialDeviceVariety
}

type rawACPIHIDTail struct {
	HID       [8]byte
	CID       [8]byte
	UIDFormat UIDFormat
	UIDLength uint8
}

// ACPIHIDEntry applies a DTE setting to a device identified by its
// ACPI hardware ID. The unique ID tail is variable length and is kept
// in its raw form, with the interpretation described by UIDFormat.
type ACPIHIDEntry struct {
	DeviceID   uint16
	DTESetting uint8
	HID        [8]byte
	CID        [8]byte
	UIDFormat  UIDFormat
	UID        []byte
}

func (e *ACPIHIDEntry) String() string {
	hid := string(bytes.TrimRight(e.HID[:], "\x00"))
	switch e.UIDFormat {
	case UIDFormatInteger:
		if len(e.UID) == 8 {
			return fmt.Sprintf("ACPIHID(%s,uid=%d)", hid, binary.LittleEndian.Uint64(e.UID))
		}
	case UIDFormatString:
		return fmt.Sprintf("ACPIHID(%s,uid=%s)", hid, string(e.UID))
	}
	return fmt.Sprintf("ACPIHID(%s)", hid)
}

func (e *ACPIHIDEntry) Write(w io.Writer) error {
	if len(e.UID) > 255 {
		return fmt.Errorf("UID too long (%d bytes)", len(e.UID))
	}
	if err := writeBaseEntry(w, DeviceEntryTypeACPIHID, e.DeviceID, e.DTESetting); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, &rawACPIHIDTail{
		HID:       e.HID,
		CID:       e.CID,
		UIDFormat: e.UIDFormat,
		UIDLength: uint8(len(e.UID))}); err != nil {
		return err
	}
	_, err := w.Write(e.UID)
	return err
}

// RawDeviceTableEntry corresponds to a device table entry of an
// unrecognized type. The entry size is derived from the type: types
// below 64 occupy 4 bytes, types from 64 to 127 occupy 8 bytes. Data
// holds the whole entry excluding the 4 byte base.
type RawDeviceTableEntry struct {
	Type       DeviceEntryType
	DeviceID   uint16
	DTESetting uint8
	Data       []byte
}

func (e *RawDeviceTableEntry) String() string {
	return fmt.Sprintf("RawDeviceTableEntry(%d)", e.Type)
}

func (e *RawDeviceTableEntry) Write(w io.Writer) error {
	if err := writeBaseEntry(w, e.Type, e.DeviceID, e.DTESetting); err != nil {
		return err
	}
	_, err := w.Write(e.Data)
	return err
}

func readBaseEntry(r io.Reader) (*rawDeviceTableEntry, error) {
	var raw rawDeviceTableEntry
	if err := binary.Read(r, binary.LittleEndian, &raw); err != nil {
		return nil, io.ErrUnexpectedEOF
	}
	return &raw, nil
}

// consumeRangeEnd reads the end of range partner that must follow a
// range start entry and returns the end device ID.
func consumeRangeEnd(r io.Reader) (uint16, error) {
	end, err := readBaseEntry(r)
	if err != nil {
		return 0, err
	}
	if end.Type != DeviceEntryTypeRangeEnd {
		return 0, fmt.Errorf("range start entry is followed by a type %d entry instead of an end of range entry", end.Type)
	}
	return end.DeviceID, nil
}

// ReadDeviceTableEntry decodes one logical device table entry from r.
// A start of range entry consumes its end of range partner, so a
// decoded range occupies two wire entries.
func ReadDeviceTableEntry(r *bytes.Reader) (DeviceTableEntry, error) {
	offset := r.Size() - int64(r.Len())

	base, err := readBaseEntry(r)
	if err != nil {
		return nil, &MalformedDeviceTableEntryError{Offset: offset, Err: err}
	}

	switch base.Type {
	case DeviceEntryTypeReserved:
		return &ReservedEntry{}, nil
	case DeviceEntryTypeAll:
		return &AllDevicesEntry{DTESetting: base.DTESetting}, nil
	case DeviceEntryTypeSelect:
		return &SelectEntry{DeviceID: base.DeviceID, DTESetting: base.DTESetting}, nil
	case DeviceEntryTypeRangeStart:
		end, err := consumeRangeEnd(r)
		if err != nil {
			return nil, &MalformedDeviceTableEntryError{Offset: offset, Err: err}
		}
		return &RangeEntry{
			StartDeviceID: base.DeviceID,
			EndDeviceID:   end,
			DTESetting:    base.DTESetting}, nil
	case DeviceEntryTypeRangeEnd:
		return nil, &MalformedDeviceTableEntryError{
			Offset: offset,
			Err:    fmt.Errorf("end of range entry without a preceding range start entry")}
	case DeviceEntryTypeAliasSelect:
		alias, err := readBaseEntry(r)
		if err != nil {
			return nil, &MalformedDeviceTableEntryError{Offset: offset, Err: err}
		}
		return &AliasSelectEntry{
			DeviceID:       base.DeviceID,
			SourceDeviceID: alias.DeviceID,
			DTESetting:     base.DTESetting}, nil
	case DeviceEntryTypeAliasRange:
		alias, err := readBaseEntry(r)
		if err != nil {
			return nil, &MalformedDeviceTableEntryError{Offset: offset, Err: err}
		}
		end, err := consumeRangeEnd(r)
		if err != nil {
			return nil, &MalformedDeviceTableEntryError{Offset: offset, Err: err}
		}
		return &AliasRangeEntry{
			StartDeviceID:  base.DeviceID,
			SourceDeviceID: alias.DeviceID,
			EndDeviceID:    end,
			DTESetting:     base.DTESetting}, nil
	case DeviceEntryTypeExtendedSelect:
		var ext uint32
		if err := binary.Read(r, binary.LittleEndian, &ext); err != nil {
			return nil, &MalformedDeviceTableEntryError{Offset: offset, Err: io.ErrUnexpectedEOF}
		}
		return &ExtendedSelectEntry{
			DeviceID:           base.DeviceID,
			DTESetting:         base.DTESetting,
			ExtendedDTESetting: ext}, nil
	case DeviceEntryTypeExtendedRange:
		var ext uint32
		if err := binary.Read(r, binary.LittleEndian, &ext); err != nil {
			return nil, &MalformedDeviceTableEntryError{Offset: offset, Err: io.ErrUnexpectedEOF}
		}
		end, err := consumeRangeEnd(r)
		if err != nil {
			return nil, &MalformedDeviceTableEntryError{Offset: offset, Err: err}
		}
		return &ExtendedRangeEntry{
			StartDeviceID:      base.DeviceID,
			EndDeviceID:        end,
			DTESetting:         base.DTESetting,
			ExtendedDTESetting: ext}, nil
	case DeviceEntryTypeSpecialDevice:
		var tail rawSpecialDeviceTail
		if err := binary.Read(r, binary.LittleEndian, &tail); err != nil {
			return nil, &MalformedDeviceTableEntryError{Offset: offset, Err: io.ErrUnexpectedEOF}
		}
		return &SpecialDeviceEntry{
			DTESetting:     base.DTESetting,
			Handle:         tail.Handle,
			SourceDeviceID: tail.SourceDeviceID,
			Variety:        tail.Variety}, nil
	case DeviceEntryTypeACPIHID:
		var tail rawACPIHIDTail
		if err := binary.Read(r, binary.LittleEndian, &tail); err != nil {
			return nil, &MalformedDeviceTableEntryError{Offset: offset, Err: io.ErrUnexpectedEOF}
		}
		uid := make([]byte, tail.UIDLength)
		if _, err := io.ReadFull(r, uid); err != nil {
			return nil, &MalformedDeviceTableEntryError{Offset: offset, Err: io.ErrUnexpectedEOF}
		}
		return &ACPIHIDEntry{
			DeviceID:   base.DeviceID,
			DTESetting: base.DTESetting,
			HID:        tail.HID,
			CID:        tail.CID,
			UIDFormat:  tail.UIDFormat,
			UID:        uid}, nil
	default:
		// The size of an unrecognized entry follows from its type:
		// 4 bytes below 64 and 8 bytes from 64 to 127. Above that
		// the size cannot be derived.
		var data []byte
		switch {
		case base.Type < 64:
		case base.Type < 128:
			data = make([]byte, baseEntrySize)
			if _, err := io.ReadFull(r, data); err != nil {
				return nil, &MalformedDeviceTableEntryError{Offset: offset, Err: io.ErrUnexpectedEOF}
			}
		default:
			return nil, &MalformedDeviceTableEntryError{
				Offset: offset,
				Err:    fmt.Errorf("cannot determine the size of a type %d entry", base.Type)}
		}
		return &RawDeviceTableEntry{
			Type:       base.Type,
			DeviceID:   base.DeviceID,
			DTESetting: base.DTESetting,
			Data:       data}, nil
	}
}

// DeviceTable is a sequence of logical device table entries.
type DeviceTable []DeviceTableEntry

// ReadDeviceTable decodes the supplied buffer as a sequence of device
// table entries. The whole buffer must decode; a malformed entry fails
// the whole table.
func ReadDeviceTable(data []byte) (DeviceTable, error) {
	r := bytes.NewReader(data)

	var table DeviceTable
	for r.Len() > 0 {
		entry, err := ReadDeviceTableEntry(r)
		if err != nil {
			return nil, err
		}
		table = append(table, entry)
	}
	return table, nil
}

// Write serializes the device table to w.
func (t DeviceTable) Write(w io.Writer) error {
	for i, entry := range t {
		if err := entry.Write(w); err != nil {
			return fmt.Errorf("cannot write entry %d: %v", i, err)
		}
	}
	return nil
}

// Bytes returns the serialized form of the device table.
func (t DeviceTable) Bytes() ([]byte, error) {
	w := new(bytes.Buffer)
	if err := t.Write(w); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}
