// Copyright 2022 UEFI Tools contributors
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package tcglog

import (
	"encoding/binary"
	"io"

	"github.com/canonical/go-tpm2"

	"github.com/uefitools/fwrecords/internal/ioerr"
)

const maxPCRIndex PCRIndex = 31

// ReadEvent reads a TCG_PCR_EVENT from r. This is the structure used
// in SHA-1 format logs and for the Spec ID event at the start of a
// crypto-agile log.
// https://trustedcomputinggroup.org/wp-content/uploads/TCG_PCClientImplementation_1-21_1_00.pdf
//
//	(section 11.1.1 "TCG_PCClientPCREventStruct Structure")
func ReadEvent(r io.Reader) (*Event, error) {
	var pcrIndex PCRIndex
	if err := binary.Read(r, binary.LittleEndian, &pcrIndex); err != nil {
		return nil, err
	}
	if pcrIndex > maxPCRIndex {
		return nil, &PCRIndexOutOfRangeError{Index: pcrIndex}
	}

	var eventType EventType
	if err := binary.Read(r, binary.LittleEndian, &eventType); err != nil {
		return nil, ioerr.EOFIsUnexpected(err)
	}

	digest := make(Digest, tpm2.HashAlgorithmSHA1.Size())
	if _, err := io.ReadFull(r, digest); err != nil {
		return nil, ioerr.EOFIsUnexpectedf("cannot read digest: %w", err)
	}
	digests := &DigestValues{digests: []TaggedDigest{{HashAlg: tpm2.HashAlgorithmSHA1, Digest: digest}}}

	data, err := readLengthPrefixed[uint32, byte](r)
	if err != nil {
		return nil, ioerr.EOFIsUnexpectedf("cannot read event data: %w", err)
	}

	return &Event{
		PCRIndex:  pcrIndex,
		EventType: eventType,
		Digests:   digests,
		Data:      decodeEventData(eventType, data)}, nil
}

// ReadEventCryptoAgile reads a TCG_PCR_EVENT2 from r. The digest size
// for each algorithm comes from the digest-size table recorded in the
// log's Spec ID event; an algorithm that is absent from the table
// fails with a *UnrecognizedAlgorithmError.
// https://trustedcomputinggroup.org/wp-content/uploads/TCG_PCClientSpecPlat_TPM_2p0_1p04_pub.pdf
//
//	(section 9.2.2 "TCG_PCR_EVENT2 Structure")
func ReadEventCryptoAgile(r io.Reader, digestSizes []EFISpecIdEventAlgorithmSize) (*Event, error) {
	var pcrIndex PCRIndex
	if err := binary.Read(r, binary.LittleEndian, &pcrIndex); err != nil {
		return nil, err
	}
	if pcrIndex > maxPCRIndex {
		return nil, &PCRIndexOutOfRangeError{Index: pcrIndex}
	}

	var eventType EventType
	if err := binary.Read(r, binary.LittleEndian, &eventType); err != nil {
		return nil, ioerr.EOFIsUnexpected(err)
	}

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, ioerr.EOFIsUnexpected(err)
	}

	digests := new(DigestValues)
	for i := uint32(0); i < count; i++ {
		var algorithmId tpm2.HashAlgorithmId
		if err := binary.Read(r, binary.LittleEndian, &algorithmId); err != nil {
			return nil, ioerr.EOFIsUnexpectedf("cannot read algorithm for digest %d: %w", i, err)
		}

		var digestSize uint16
		found := false
		for _, s := range digestSizes {
			if s.AlgorithmId == algorithmId {
				digestSize = s.DigestSize
				found = true
				break
			}
		}
		if !found {
			return nil, &UnrecognizedAlgorithmError{Algorithm: algorithmId}
		}
		if digests.entryFor(algorithmId) != nil {
			return nil, &DuplicateAlgorithmError{Algorithm: algorithmId}
		}

		digest := make(Digest, digestSize)
		if _, err := io.ReadFull(r, digest); err != nil {
			return nil, ioerr.EOFIsUnexpectedf("cannot read digest for algorithm %v: %w", algorithmId, err)
		}
		digests.digests = append(digests.digests, TaggedDigest{HashAlg: algorithmId, Digest: digest})
	}

	data, err := readLengthPrefixed[uint32, byte](r)
	if err != nil {
		return nil, ioerr.EOFIsUnexpectedf("cannot read event data: %w", err)
	}

	return &Event{
		PCRIndex:  pcrIndex,
		EventType: eventType,
		Digests:   digests,
		Data:      decodeEventData(eventType, data)}, nil
}

// Write serializes this event to w in the TCG_PCR_EVENT format. The
// event must have a SHA-1 digest.
func (e *Event) Write(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, e.PCRIndex); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, e.EventType); err != nil {
		return err
	}

	digest, ok := e.Digests.DigestFor(tpm2.HashAlgorithmSHA1)
	if !ok {
		return &UnknownAlgorithmError{Algorithm: tpm2.HashAlgorithmSHA1}
	}
	if len(digest) != tpm2.HashAlgorithmSHA1.Size() {
		return &SizeMismatchError{
			Algorithm: tpm2.HashAlgorithmSHA1,
			Expected:  tpm2.HashAlgorithmSHA1.Size(),
			Actual:    len(digest)}
	}
	if _, err := w.Write(digest); err != nil {
		return err
	}

	return writeLengthPrefixed[uint32](w, e.Data.Bytes())
}

// WriteCryptoAgile serializes this event to w in the TCG_PCR_EVENT2
// format. The event must have a digest of the correct size for every
// algorithm in the supplied digest-size table.
func (e *Event) WriteCryptoAgile(w io.Writer, digestSizes []EFISpecIdEventAlgorithmSize) error {
	for _, s := range digestSizes {
		digest, ok := e.Digests.DigestFor(s.AlgorithmId)
		if !ok {
			return &UnknownAlgorithmError{Algorithm: s.AlgorithmId}
		}
		if len(digest) != int(s.DigestSize) {
			return &SizeMismatchError{
				Algorithm: s.AlgorithmId,
				Expected:  int(s.DigestSize),
				Actual:    len(digest)}
		}
	}

	if err := binary.Write(w, binary.LittleEndian, e.PCRIndex); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, e.EventType); err != nil {
		return err
	}
	if err := e.Digests.Write(w); err != nil {
		return err
	}

	return writeLengthPrefixed[uint32](w, e.Data.Bytes())
}
