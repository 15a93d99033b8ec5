// Copyright 2022 UEFI Tools contributors
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package tcglog_test

import (
	"bytes"
	"crypto"
	"io"

	"github.com/canonical/go-tpm2"

	. "gopkg.in/check.v1"

	"github.com/uefitools/fwrecords/efi"
	. "github.com/uefitools/fwrecords/tcglog"
)

type eventSuite struct{}

var _ = Suite(&eventSuite{})

const specIdEvent03Fixture = "000000000300000000000000000000000000000000000000000000002500000053706563204944204576656e74303300000000000002000202000000040014000b00200000"

const variableBootEventFixture = "01000000020000800200000004005fa6e9a74105c1e2297cce17c68288c84a8bda070b009d0689" +
	"e46d7c710571256af5b8e8638f0dbc6b008f5ea4688c1c70f3005943e43800000061dfe48bca93d211aa0d00e098032b8c09000000000000000600000000000" +
	"00042006f006f0074004f007200640065007200030000000100"

func (s *eventSuite) TestEventWrite(c *C) {
	digests, err := NewDigestValues(tpm2.HashAlgorithmSHA1)
	c.Assert(err, IsNil)

	event := Event{
		PCRIndex:  0,
		EventType: EventTypeNoAction,
		Digests:   digests,
		Data: &SpecIdEvent03{
			SpecVersionMajor: 2,
			UintnSize:        2,
			DigestSizes: []EFISpecIdEventAlgorithmSize{
				{AlgorithmId: tpm2.HashAlgorithmSHA1, DigestSize: 20},
				{AlgorithmId: tpm2.HashAlgorithmSHA256, DigestSize: 32}}}}

	w := new(bytes.Buffer)
	c.Check(event.Write(w), IsNil)
	c.Check(w.Bytes(), DeepEquals, decodeHexString(c, specIdEvent03Fixture))
}

func (s *eventSuite) TestReadEvent(c *C) {
	event, err := ReadEvent(bytes.NewReader(decodeHexString(c, specIdEvent03Fixture)))
	c.Assert(err, IsNil)

	c.Check(event.PCRIndex, Equals, PCRIndex(0))
	c.Check(event.EventType, Equals, EventTypeNoAction)

	digest, ok := event.Digests.DigestFor(tpm2.HashAlgorithmSHA1)
	c.Check(ok, Equals, true)
	c.Check(digest, DeepEquals, make(Digest, tpm2.HashAlgorithmSHA1.Size()))

	data, ok := event.Data.(*SpecIdEvent03)
	c.Assert(ok, Equals, true)

	c.Check(data.PlatformClass, Equals, uint32(0))
	c.Check(data.SpecVersionMinor, Equals, uint8(0))
	c.Check(data.SpecVersionMajor, Equals, uint8(2))
	c.Check(data.SpecErrata, Equals, uint8(0))
	c.Check(data.UintnSize, Equals, uint8(2))
	c.Check(data.DigestSizes, DeepEquals, []EFISpecIdEventAlgorithmSize{
		{AlgorithmId: tpm2.HashAlgorithmSHA1, DigestSize: uint16(tpm2.HashAlgorithmSHA1.Size())},
		{AlgorithmId: tpm2.HashAlgorithmSHA256, DigestSize: uint16(tpm2.HashAlgorithmSHA256.Size())}})
	c.Check(data.VendorInfo, DeepEquals, []byte{})
}

func (s *eventSuite) TestReadEventOutOfRangePCR(c *C) {
	data := decodeHexString(c, specIdEvent03Fixture)
	data[0] = 0x20

	_, err := ReadEvent(bytes.NewReader(data))
	c.Assert(err, FitsTypeOf, &PCRIndexOutOfRangeError{})
	c.Check(err, ErrorMatches, `log entry has an out-of-range PCR index \(32\)`)
}

func (s *eventSuite) TestEventWriteCryptoAgile(c *C) {
	digestSizes := []EFISpecIdEventAlgorithmSize{
		{AlgorithmId: tpm2.HashAlgorithmSHA1, DigestSize: 20},
		{AlgorithmId: tpm2.HashAlgorithmSHA256, DigestSize: 32}}

	data := EFIVariableData{
		VariableName: efi.GlobalVariable,
		UnicodeName:  "BootOrder",
		VariableData: []byte{0x03, 0x00, 0x00, 0x00, 0x01, 0x00}}

	digests, err := NewDigestValues(tpm2.HashAlgorithmSHA1, tpm2.HashAlgorithmSHA256)
	c.Assert(err, IsNil)
	c.Assert(digests.SetDigest(tpm2.HashAlgorithmSHA1, ComputeEventDigest(crypto.SHA1, data.VariableData)), IsNil)
	c.Assert(digests.SetDigest(tpm2.HashAlgorithmSHA256, ComputeEventDigest(crypto.SHA256, data.VariableData)), IsNil)

	event := Event{
		PCRIndex:  1,
		EventType: EventTypeEFIVariableBoot,
		Digests:   digests,
		Data:      &data}

	w := new(bytes.Buffer)
	c.Check(event.WriteCryptoAgile(w, digestSizes), IsNil)
	c.Check(w.Bytes(), DeepEquals, decodeHexString(c, variableBootEventFixture))
}

func (s *eventSuite) TestReadEventCryptoAgile(c *C) {
	event, err := ReadEventCryptoAgile(
		bytes.NewReader(decodeHexString(c, variableBootEventFixture)),
		[]EFISpecIdEventAlgorithmSize{
			{AlgorithmId: tpm2.HashAlgorithmSHA1, DigestSize: uint16(tpm2.HashAlgorithmSHA1.Size())},
			{AlgorithmId: tpm2.HashAlgorithmSHA256, DigestSize: uint16(tpm2.HashAlgorithmSHA256.Size())}})
	c.Assert(err, IsNil)

	c.Check(event.PCRIndex, Equals, PCRIndex(1))
	c.Check(event.EventType, Equals, EventTypeEFIVariableBoot)

	data, ok := event.Data.(*EFIVariableData)
	c.Assert(ok, Equals, true)

	c.Check(data.VariableName, Equals, efi.GlobalVariable)
	c.Check(data.UnicodeName, Equals, "BootOrder")
	c.Check(data.VariableData, DeepEquals, []byte{0x03, 0x00, 0x00, 0x00, 0x01, 0x00})
}

func (s *eventSuite) TestReadEventCryptoAgileUnrecognizedAlgorithm(c *C) {
	_, err := ReadEventCryptoAgile(
		bytes.NewReader(decodeHexString(c, variableBootEventFixture)),
		[]EFISpecIdEventAlgorithmSize{
			{AlgorithmId: tpm2.HashAlgorithmSHA256, DigestSize: uint16(tpm2.HashAlgorithmSHA256.Size())}})
	c.Assert(err, FitsTypeOf, &UnrecognizedAlgorithmError{})
}

func (s *eventSuite) TestReadEventCryptoAgileTruncated(c *C) {
	data := decodeHexString(c, variableBootEventFixture)
	_, err := ReadEventCryptoAgile(
		bytes.NewReader(data[:len(data)-10]),
		[]EFISpecIdEventAlgorithmSize{
			{AlgorithmId: tpm2.HashAlgorithmSHA1, DigestSize: uint16(tpm2.HashAlgorithmSHA1.Size())},
			{AlgorithmId: tpm2.HashAlgorithmSHA256, DigestSize: uint16(tpm2.HashAlgorithmSHA256.Size())}})
	c.Check(err, NotNil)
	c.Check(err, Not(Equals), io.EOF)
}

func (s *eventSuite) TestEventCryptoAgileRoundTrip(c *C) {
	digestSizes := []EFISpecIdEventAlgorithmSize{
		{AlgorithmId: tpm2.HashAlgorithmSHA1, DigestSize: uint16(tpm2.HashAlgorithmSHA1.Size())},
		{AlgorithmId: tpm2.HashAlgorithmSHA256, DigestSize: uint16(tpm2.HashAlgorithmSHA256.Size())}}

	data := decodeHexString(c, variableBootEventFixture)
	event, err := ReadEventCryptoAgile(bytes.NewReader(data), digestSizes)
	c.Assert(err, IsNil)

	w := new(bytes.Buffer)
	c.Check(event.WriteCryptoAgile(w, digestSizes), IsNil)
	c.Check(w.Bytes(), DeepEquals, data)
}

func (s *eventSuite) TestReadEventCryptoAgileImageLoad(c *C) {
	path := efi.DevicePath{
		&efi.ACPIDevicePathNode{HID: 0x0a0341d0},
		&efi.PCIDevicePathNode{Function: 0, Device: 6},
		&efi.EndOfHardwareDevicePathNode{}}
	pathData, err := path.Bytes()
	c.Assert(err, IsNil)

	data := &EFIImageLoadEvent{
		LocationInMemory: 0x76f12000,
		LengthInMemory:   1024,
		DevicePath:       path}

	digests, err := NewDigestValues(tpm2.HashAlgorithmSHA256)
	c.Assert(err, IsNil)
	c.Assert(digests.SetHashData(tpm2.HashAlgorithmSHA256, []byte("image contents")), IsNil)

	event := Event{
		PCRIndex:  4,
		EventType: EventTypeEFIBootServicesApplication,
		Digests:   digests,
		Data:      data}

	digestSizes := []EFISpecIdEventAlgorithmSize{
		{AlgorithmId: tpm2.HashAlgorithmSHA256, DigestSize: uint16(tpm2.HashAlgorithmSHA256.Size())}}

	w := new(bytes.Buffer)
	c.Assert(event.WriteCryptoAgile(w, digestSizes), IsNil)

	decoded, err := ReadEventCryptoAgile(bytes.NewReader(w.Bytes()), digestSizes)
	c.Assert(err, IsNil)

	decodedData, ok := decoded.Data.(*EFIImageLoadEvent)
	c.Assert(ok, Equals, true)
	c.Check(decodedData.LocationInMemory, Equals, efi.PhysicalAddress(0x76f12000))
	c.Check(decodedData.LengthInMemory, Equals, uint64(1024))
	c.Check(decodedData.DevicePath, DeepEquals, path)

	out, err := decodedData.DevicePath.Bytes()
	c.Check(err, IsNil)
	c.Check(out, DeepEquals, pathData)
}
