// Copyright 2022 UEFI Tools contributors
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package cper_test

import (
	"bytes"
	"encoding/binary"
	"time"

	. "gopkg.in/check.v1"

	. "github.com/uefitools/fwrecords/cper"
	"github.com/uefitools/fwrecords/efi"
)

type recordSuite struct{}

var _ = Suite(&recordSuite{})

var (
	testCreatorID      = efi.MakeGUID(0xcf07c4bd, 0x0b42, 0x4e3b, 0x9f4b, [...]uint8{0xfa, 0xfe, 0x8c, 0x20, 0x10, 0x0b})
	testPlatformID     = efi.MakeGUID(0x9d26a3f6, 0x9b44, 0x4c65, 0x8a7e, [...]uint8{0x31, 0x96, 0xcd, 0x83, 0x2a, 0xa0})
	testUnknownSection = efi.MakeGUID(0x2dce8bb1, 0xbdd7, 0x450e, 0xb9ad, [...]uint8{0x9c, 0xf4, 0xeb, 0xd4, 0xf8, 0x90})
)

func makeTestRecord(c *C) *Record {
	record := NewRecord(SeverityFatal)
	record.Header.CreatorID = testCreatorID
	record.Header.RecordID = 0x0102030405060708
	record.Header.Flags = RecordFlagPreviousError
	record.Header.SetPlatformID(testPlatformID)
	record.Header.SetTimestamp(time.Date(2023, time.May, 4, 12, 30, 45, 0, time.UTC), true)

	record.AddSection(FirmwareErrorSection, SeverityFatal, SectionFlagPrimary,
		&FirmwareErrorRecordReference{
			ErrorType: FirmwareErrorTypeSOCType2,
			Revision:  2,
			RecordID:  0x00000000deadbeef})
	record.AddSection(testUnknownSection, SeverityCorrected, 0,
		UnknownSectionData(decodeHexString(c, "0011223344556677")))
	return record
}

func (s *recordSuite) TestAddSectionMaintainsHeader(c *C) {
	record := makeTestRecord(c)

	c.Check(record.Header.SectionCount, Equals, uint16(2))
	c.Check(record.Header.RecordLength, Equals, uint32(RecordHeaderSize+2*SectionDescriptorSize+16+8))

	c.Check(record.Sections[0].Descriptor.SectionOffset, Equals, uint32(RecordHeaderSize+2*SectionDescriptorSize))
	c.Check(record.Sections[0].Descriptor.SectionLength, Equals, uint32(16))
	c.Check(record.Sections[1].Descriptor.SectionOffset, Equals, uint32(RecordHeaderSize+2*SectionDescriptorSize+16))
	c.Check(record.Sections[1].Descriptor.SectionLength, Equals, uint32(8))
}

func (s *recordSuite) TestRoundTrip(c *C) {
	record := makeTestRecord(c)

	encoded, err := record.Bytes()
	c.Assert(err, IsNil)
	c.Assert(encoded, HasLen, int(record.Header.RecordLength))
	c.Check(string(encoded[0:4]), Equals, "CPER")

	decoded, err := ReadRecord(encoded)
	c.Assert(err, IsNil)
	c.Assert(decoded.Sections, HasLen, 2)
	c.Check(decoded.Header.Severity, Equals, SeverityFatal)
	c.Check(decoded.Header.RecordID, Equals, uint64(0x0102030405060708))
	c.Check(decoded.Header.CreatorID, Equals, testCreatorID)

	platform, ok := decoded.Header.PlatformID()
	c.Check(ok, Equals, true)
	c.Check(platform, Equals, testPlatformID)

	timestamp, ok := decoded.Header.Timestamp()
	c.Check(ok, Equals, true)
	c.Check(timestamp, DeepEquals, time.Date(2023, time.May, 4, 12, 30, 45, 0, time.UTC))
	c.Check(decoded.Header.PreciseTimestamp(), Equals, true)

	_, ok = decoded.Header.PartitionID()
	c.Check(ok, Equals, false)

	c.Check(decoded.Sections[0].Data, DeepEquals, SectionData(&FirmwareErrorRecordReference{
		ErrorType: FirmwareErrorTypeSOCType2,
		Revision:  2,
		RecordID:  0x00000000deadbeef}))
	c.Check(decoded.Sections[0].Descriptor.TypeLabel(), Equals, "Firmware Error Record Reference")
	c.Check(decoded.Sections[1].Data, DeepEquals, SectionData(UnknownSectionData(decodeHexString(c, "0011223344556677"))))
	c.Check(decoded.Sections[1].Descriptor.TypeLabel(), Equals, "Unknown")

	reencoded, err := decoded.Bytes()
	c.Assert(err, IsNil)
	c.Check(reencoded, DeepEquals, encoded)
}

func (s *recordSuite) TestTimestampGatedByValidationBit(c *C) {
	record := makeTestRecord(c)
	encoded, err := record.Bytes()
	c.Assert(err, IsNil)

	// Clear the timestamp validation bit, leaving the timestamp
	// bytes in place.
	validation := binary.LittleEndian.Uint32(encoded[16:])
	binary.LittleEndian.PutUint32(encoded[16:], validation&^uint32(2))
	c.Check(bytes.Equal(encoded[24:32], make([]byte, 8)), Equals, false)

	decoded, err := ReadRecord(encoded)
	c.Assert(err, IsNil)

	_, ok := decoded.Header.Timestamp()
	c.Check(ok, Equals, false)
}

func (s *recordSuite) TestTimestampRejectsBadBCD(c *C) {
	record := makeTestRecord(c)
	encoded, err := record.Bytes()
	c.Assert(err, IsNil)

	// 0xab is not a valid BCD encoding for the seconds field.
	encoded[24] = 0xab

	decoded, err := ReadRecord(encoded)
	c.Assert(err, IsNil)

	_, ok := decoded.Header.Timestamp()
	c.Check(ok, Equals, false)
}

func (s *recordSuite) TestReadRecordBadSignature(c *C) {
	record := makeTestRecord(c)
	encoded, err := record.Bytes()
	c.Assert(err, IsNil)
	encoded[0] = 'X'

	decoded, err := ReadRecord(encoded)
	c.Check(decoded, IsNil)
	c.Check(err, ErrorMatches, `malformed error record at offset 0: unexpected signature "XPER"`)

	var e *MalformedRecordError
	c.Assert(err, FitsTypeOf, e)
	c.Check(err.(*MalformedRecordError).Offset, Equals, int64(0))
}

func (s *recordSuite) TestReadRecordTruncatedHeader(c *C) {
	decoded, err := ReadRecord([]byte("CPE"))
	c.Check(decoded, IsNil)
	c.Check(err, ErrorMatches, `malformed error record at offset 0: unexpected EOF`)
}

func (s *recordSuite) TestReadRecordLengthTooSmall(c *C) {
	record := makeTestRecord(c)
	encoded, err := record.Bytes()
	c.Assert(err, IsNil)

	// Shrink the declared record length below the space needed for
	// the descriptor table.
	binary.LittleEndian.PutUint32(encoded[20:], RecordHeaderSize+SectionDescriptorSize)

	decoded, err := ReadRecord(encoded)
	c.Check(decoded, IsNil)
	c.Check(err, ErrorMatches, `malformed error record at offset 20: record length 200 too small for 2 sections`)
}

func (s *recordSuite) TestReadRecordLengthBeyondBuffer(c *C) {
	record := makeTestRecord(c)
	encoded, err := record.Bytes()
	c.Assert(err, IsNil)

	decoded, err := ReadRecord(encoded[:len(encoded)-4])
	c.Check(decoded, IsNil)
	c.Check(err, ErrorMatches, `malformed error record at offset 20: unexpected EOF`)
}

func (s *recordSuite) TestReadRecordSectionBeyondRecord(c *C) {
	record := makeTestRecord(c)
	encoded, err := record.Bytes()
	c.Assert(err, IsNil)

	// Corrupt the length of the second section so that its body
	// extends past the end of the record.
	descOffset := RecordHeaderSize + SectionDescriptorSize
	binary.LittleEndian.PutUint32(encoded[descOffset+4:], 0x1000)

	decoded, err := ReadRecord(encoded)
	c.Check(decoded, IsNil)
	c.Check(err, ErrorMatches, `malformed error record at offset 200: section 1 \(offset 288, length 4096\) extends beyond the record`)
	c.Check(err.(*MalformedRecordError).Offset, Equals, int64(descOffset))
}

func (s *recordSuite) TestOversizedFirmwareErrorSectionRoundTrips(c *C) {
	// A firmware error section whose declared length exceeds the
	// defined body is kept raw rather than truncated, so the record
	// still re-encodes byte-identically.
	body := UnknownSectionData(decodeHexString(c, "0002000000000000efbeadde000000000011223344556677"))
	record := NewRecord(SeverityFatal)
	record.AddSection(FirmwareErrorSection, SeverityFatal, SectionFlagPrimary, body)

	encoded, err := record.Bytes()
	c.Assert(err, IsNil)

	decoded, err := ReadRecord(encoded)
	c.Assert(err, IsNil)
	c.Assert(decoded.Sections, HasLen, 1)
	c.Check(decoded.Sections[0].Data, DeepEquals, SectionData(body))

	reencoded, err := decoded.Bytes()
	c.Assert(err, IsNil)
	c.Check(reencoded, DeepEquals, encoded)
}

func (s *recordSuite) TestFirmwareErrorSectionReservedBytesRoundTrip(c *C) {
	body := decodeHexString(c, "0102" + "a1a2a3a4a5a6" + "efbeadde00000000")
	record := NewRecord(SeverityCorrected)
	record.AddSection(FirmwareErrorSection, SeverityCorrected, 0, UnknownSectionData(body))

	encoded, err := record.Bytes()
	c.Assert(err, IsNil)

	decoded, err := ReadRecord(encoded)
	c.Assert(err, IsNil)
	c.Assert(decoded.Sections, HasLen, 1)

	ref, ok := decoded.Sections[0].Data.(*FirmwareErrorRecordReference)
	c.Assert(ok, Equals, true)
	c.Check(ref.ErrorType, Equals, FirmwareErrorTypeSOCType1)
	c.Check(ref.Revision, Equals, uint8(2))
	c.Check(ref.RecordID, Equals, uint64(0xdeadbeef))
	c.Check(ref.Bytes(), DeepEquals, body)

	reencoded, err := decoded.Bytes()
	c.Assert(err, IsNil)
	c.Check(reencoded, DeepEquals, encoded)
}

func (s *recordSuite) TestFRUAccessors(c *C) {
	record := makeTestRecord(c)
	desc := record.Sections[0].Descriptor

	_, ok := desc.FRUID()
	c.Check(ok, Equals, false)
	_, ok = desc.FRUText()
	c.Check(ok, Equals, false)

	fru := efi.MakeGUID(0x511698ff, 0x241c, 0x4a95, 0x8ac1, [...]uint8{0x17, 0x63, 0x6f, 0x67, 0x84, 0xb3})
	desc.SetFRUID(fru)
	desc.SetFRUText("DIMM A1")

	encoded, err := record.Bytes()
	c.Assert(err, IsNil)
	decoded, err := ReadRecord(encoded)
	c.Assert(err, IsNil)

	id, ok := decoded.Sections[0].Descriptor.FRUID()
	c.Check(ok, Equals, true)
	c.Check(id, Equals, fru)

	text, ok := decoded.Sections[0].Descriptor.FRUText()
	c.Check(ok, Equals, true)
	c.Check(text, Equals, "DIMM A1")
}

func (s *recordSuite) TestSectionFlagsDecode(c *C) {
	c.Check(SectionFlags(0).Decode(), HasLen, 0)
	c.Check((SectionFlagPrimary | SectionFlagLatentError).Decode(), DeepEquals, []string{"Primary", "Latent Error"})
	c.Check(SectionFlags(1<<16).Decode(), DeepEquals, []string{"Unknown (0x10000)"})
}

func (s *recordSuite) TestRecordFlagsDecode(c *C) {
	c.Check(RecordFlags(0).Decode(), HasLen, 0)
	c.Check((RecordFlagRecovered | RecordFlagSimulated).Decode(), DeepEquals, []string{"Recovered", "Simulated"})
	c.Check((RecordFlagRecovered | RecordFlagSimulated).String(), Equals, "Recovered, Simulated")
	c.Check(RecordFlags(1<<16).String(), Equals, "Unknown (0x10000)")
}

func (s *recordSuite) TestSeverityString(c *C) {
	c.Check(SeverityRecoverable.String(), Equals, "Recoverable")
	c.Check(SeverityFatal.String(), Equals, "Fatal")
	c.Check(SeverityCorrected.String(), Equals, "Corrected")
	c.Check(SeverityInformational.String(), Equals, "Informational")
}
