// Copyright 2022 UEFI Tools contributors
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package tcglog_test

import (
	"bytes"
	"crypto"
	"crypto/sha1"
	"crypto/sha256"

	"github.com/canonical/go-tpm2"

	. "gopkg.in/check.v1"

	"github.com/uefitools/fwrecords/efi"
	. "github.com/uefitools/fwrecords/tcglog"
)

type logSuite struct{}

var _ = Suite(&logSuite{})

func makeAgileEvent(c *C, pcr PCRIndex, eventType EventType, data EventData) *Event {
	digests, err := NewDigestValues(tpm2.HashAlgorithmSHA1, tpm2.HashAlgorithmSHA256)
	c.Assert(err, IsNil)
	c.Assert(digests.SetDigest(tpm2.HashAlgorithmSHA1, ComputeEventDigest(crypto.SHA1, data.Bytes())), IsNil)
	c.Assert(digests.SetDigest(tpm2.HashAlgorithmSHA256, ComputeEventDigest(crypto.SHA256, data.Bytes())), IsNil)

	return &Event{
		PCRIndex:  pcr,
		EventType: eventType,
		Digests:   digests,
		Data:      data}
}

func makeAgileLog(c *C) []byte {
	specDigests, err := NewDigestValues(tpm2.HashAlgorithmSHA1)
	c.Assert(err, IsNil)

	events := []*Event{
		{
			PCRIndex:  0,
			EventType: EventTypeNoAction,
			Digests:   specDigests,
			Data: &SpecIdEvent03{
				SpecVersionMajor: 2,
				UintnSize:        2,
				DigestSizes: []EFISpecIdEventAlgorithmSize{
					{AlgorithmId: tpm2.HashAlgorithmSHA1, DigestSize: 20},
					{AlgorithmId: tpm2.HashAlgorithmSHA256, DigestSize: 32}}}},
		makeAgileEvent(c, 0, EventTypePostCode, StringEventData("POST CODE")),
		makeAgileEvent(c, 1, EventTypeEFIVariableBoot, &EFIVariableData{
			VariableName: efi.GlobalVariable,
			UnicodeName:  "BootOrder",
			VariableData: []byte{0x03, 0x00}}),
		makeAgileEvent(c, 7, EventTypeEFIVariableDriverConfig, &EFIVariableData{
			VariableName: efi.GlobalVariable,
			UnicodeName:  "SecureBoot",
			VariableData: []byte{0x01}}),
		makeAgileEvent(c, 4, EventTypeSeparator, OpaqueEventData{0x00, 0x00, 0x00, 0x00}),
	}

	w := new(bytes.Buffer)
	c.Assert(WriteLog(w, events), IsNil)
	return w.Bytes()
}

func (s *logSuite) TestReadLog(c *C) {
	log, err := ReadLog(bytes.NewReader(makeAgileLog(c)))
	c.Assert(err, IsNil)

	c.Check(log.Spec.IsEFI_2(), Equals, true)
	c.Check(log.Algorithms, DeepEquals, AlgorithmIdList{tpm2.HashAlgorithmSHA1, tpm2.HashAlgorithmSHA256})
	c.Assert(log.Events, HasLen, 5)

	c.Check(log.Events[0].EventType, Equals, EventTypeNoAction)
	c.Check(log.Events[2].PCRIndex, Equals, PCRIndex(1))

	data, ok := log.Events[3].Data.(*EFIVariableData)
	c.Assert(ok, Equals, true)
	c.Check(data.UnicodeName, Equals, "SecureBoot")
}

func (s *logSuite) TestReadLogFixesUpSpecIdDigests(c *C) {
	log, err := ReadLog(bytes.NewReader(makeAgileLog(c)))
	c.Assert(err, IsNil)

	digest, ok := log.Events[0].Digests.DigestFor(tpm2.HashAlgorithmSHA256)
	c.Check(ok, Equals, true)
	c.Check(digest, DeepEquals, make(Digest, 32))
}

func (s *logSuite) TestLogRoundTrip(c *C) {
	data := makeAgileLog(c)

	log, err := ReadLog(bytes.NewReader(data))
	c.Assert(err, IsNil)

	w := new(bytes.Buffer)
	c.Check(WriteLog(w, log.Events), IsNil)
	c.Check(w.Bytes(), DeepEquals, data)
}

func (s *logSuite) TestReadLogEmpty(c *C) {
	log, err := ReadLog(bytes.NewReader(nil))
	c.Assert(err, IsNil)
	c.Assert(log, NotNil)
	c.Check(log.Events, HasLen, 0)
}

func (s *logSuite) TestReadLogAbortsOnCorruptEvent(c *C) {
	data := makeAgileLog(c)

	// Cut the final event short.
	truncated := data[:len(data)-20]

	log, err := ReadLog(bytes.NewReader(truncated))
	c.Check(err, NotNil)
	c.Check(log, IsNil)
}

func (s *logSuite) TestEventsForPCR(c *C) {
	log, err := ReadLog(bytes.NewReader(makeAgileLog(c)))
	c.Assert(err, IsNil)

	events := log.EventsForPCR(1)
	c.Assert(events, HasLen, 1)
	c.Check(events[0].EventType, Equals, EventTypeEFIVariableBoot)
	c.Check(log.EventsForPCR(5), HasLen, 0)
}

func (s *logSuite) TestDiscardPCRsExcept(c *C) {
	log, err := ReadLog(bytes.NewReader(makeAgileLog(c)))
	c.Assert(err, IsNil)

	log.DiscardPCRsExcept(7)
	c.Assert(log.Events, HasLen, 2)
	c.Check(log.Events[0].EventType, Equals, EventTypeNoAction)
	c.Check(log.Events[1].PCRIndex, Equals, PCRIndex(7))
}

func (s *logSuite) TestDiscardAlgorithmsExcept(c *C) {
	log, err := ReadLog(bytes.NewReader(makeAgileLog(c)))
	c.Assert(err, IsNil)

	log.DiscardAlgorithmsExcept(tpm2.HashAlgorithmSHA256)

	for _, event := range log.Events[1:] {
		c.Check(event.Digests.Len(), Equals, 1)
		_, ok := event.Digests.DigestFor(tpm2.HashAlgorithmSHA1)
		c.Check(ok, Equals, false)
	}

	// The Spec ID event keeps its SHA-1 digest.
	_, ok := log.Events[0].Digests.DigestFor(tpm2.HashAlgorithmSHA1)
	c.Check(ok, Equals, true)
}

func (s *logSuite) TestReplayPCR(c *C) {
	log, err := ReadLog(bytes.NewReader(makeAgileLog(c)))
	c.Assert(err, IsNil)

	replayed, err := log.ReplayPCR(1, tpm2.HashAlgorithmSHA256)
	c.Assert(err, IsNil)

	varData := &EFIVariableData{
		VariableName: efi.GlobalVariable,
		UnicodeName:  "BootOrder",
		VariableData: []byte{0x03, 0x00}}
	h := sha256.Sum256(varData.Bytes())
	expected := sha256.Sum256(append(make([]byte, 32), h[:]...))

	c.Check(replayed, DeepEquals, Digest(expected[:]))
}

func (s *logSuite) TestReplayPCRWithStartupLocality(c *C) {
	specDigests, err := NewDigestValues(tpm2.HashAlgorithmSHA1)
	c.Assert(err, IsNil)
	locDigests, err := NewDigestValues(tpm2.HashAlgorithmSHA1)
	c.Assert(err, IsNil)

	events := []*Event{
		{
			PCRIndex:  0,
			EventType: EventTypeNoAction,
			Digests:   specDigests,
			Data: &SpecIdEvent03{
				SpecVersionMajor: 2,
				UintnSize:        2,
				DigestSizes: []EFISpecIdEventAlgorithmSize{
					{AlgorithmId: tpm2.HashAlgorithmSHA1, DigestSize: 20}}}},
		{
			PCRIndex:  0,
			EventType: EventTypeNoAction,
			Digests:   locDigests,
			Data:      &StartupLocalityEventData{StartupLocality: 3}},
		makeLocalityEvent(c, StringEventData("S-CRTM version")),
	}

	w := new(bytes.Buffer)
	c.Assert(WriteLog(w, events), IsNil)

	log, err := ReadLog(bytes.NewReader(w.Bytes()))
	c.Assert(err, IsNil)

	replayed, err := log.ReplayPCR(0, tpm2.HashAlgorithmSHA1)
	c.Assert(err, IsNil)

	initial := make([]byte, 20)
	initial[19] = 3
	h := sha1.Sum([]byte("S-CRTM version"))
	expected := sha1.Sum(append(initial, h[:]...))

	c.Check(replayed, DeepEquals, Digest(expected[:]))
}

func (s *logSuite) TestReplayPCRUnknownAlgorithm(c *C) {
	log, err := ReadLog(bytes.NewReader(makeAgileLog(c)))
	c.Assert(err, IsNil)

	_, err = log.ReplayPCR(0, tpm2.HashAlgorithmSHA512)
	c.Check(err, FitsTypeOf, &UnknownAlgorithmError{})
}

func makeLocalityEvent(c *C, data EventData) *Event {
	digests, err := NewDigestValues(tpm2.HashAlgorithmSHA1)
	c.Assert(err, IsNil)
	c.Assert(digests.SetDigest(tpm2.HashAlgorithmSHA1, ComputeEventDigest(crypto.SHA1, data.Bytes())), IsNil)

	return &Event{
		PCRIndex:  0,
		EventType: EventTypeSCRTMVersion,
		Digests:   digests,
		Data:      data}
}
