// Copyright 2022 UEFI Tools contributors
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package tcglog

import (
	"io"

	"github.com/canonical/go-tpm2"

	"github.com/uefitools/fwrecords/internal/ioerr"
)

// fixupSpecIdEvent pads the digest collection of the Spec ID event,
// which is always recorded in the SHA-1 format, with zero digests for
// the other algorithms that the log contains.
func fixupSpecIdEvent(event *Event, algorithms AlgorithmIdList) {
	for _, alg := range algorithms {
		if alg == tpm2.HashAlgorithmSHA1 {
			continue
		}
		if _, ok := event.Digests.DigestFor(alg); ok {
			continue
		}
		event.Digests.AddAlgorithm(alg)
	}
}

type PlatformType int

const (
	PlatformTypeUnknown PlatformType = iota
	PlatformTypeBIOS
	PlatformTypeEFI
)

// Spec corresponds to the TCG specification that an event log conforms to.
type Spec struct {
	PlatformType PlatformType
	Major        uint8
	Minor        uint8
	Errata       uint8
}

// IsBIOS indicates that a log conforms to "TCG PC Client Specific Implementation Specification
// for Conventional BIOS".
// See https://www.trustedcomputinggroup.org/wp-content/uploads/TCG_PCClientImplementation_1-21_1_00.pdf
func (s Spec) IsBIOS() bool { return s.PlatformType == PlatformTypeBIOS }

// IsEFI_1_2 indicates that a log conforms to "TCG EFI Platform Specification For TPM Family 1.1 or
// 1.2".
// See https://trustedcomputinggroup.org/wp-content/uploads/TCG_EFI_Platform_1_22_Final_-v15.pdf
func (s Spec) IsEFI_1_2() bool {
	return s.PlatformType == PlatformTypeEFI && s.Major == 1 && s.Minor == 2
}

// IsEFI_2 indicates that a log conforms to "TCG PC Client Platform Firmware Profile Specification"
// See https://trustedcomputinggroup.org/wp-content/uploads/TCG_PCClientSpecPlat_TPM_2p0_1p04_pub.pdf
func (s Spec) IsEFI_2() bool {
	return s.PlatformType == PlatformTypeEFI && s.Major == 2
}

// Log corresponds to a parsed event log.
type Log struct {
	Spec       Spec            // The specification to which this log conforms
	Algorithms AlgorithmIdList // The digest algorithms that appear in the log
	Events     []*Event        // The list of events in the log
}

// HasAlgorithm indicates whether the log contains digests for the
// supplied algorithm.
func (l *Log) HasAlgorithm(alg tpm2.HashAlgorithmId) bool {
	return l.Algorithms.Contains(alg)
}

// EventsForPCR returns the events measured to the supplied PCR, in log
// order.
func (l *Log) EventsForPCR(pcr PCRIndex) []*Event {
	var events []*Event
	for _, event := range l.Events {
		if event.PCRIndex == pcr {
			events = append(events, event)
		}
	}
	return events
}

// ReadLog reads an event log from r. The log must be in the format
// defined in one of the PC Client Platform Firmware Profile
// specifications: the first event selects between the SHA-1 and
// crypto-agile formats, and the remaining events are decoded
// accordingly until the end of the stream. A structural decode failure
// anywhere in the log aborts the whole read with no partial result.
func ReadLog(r io.Reader) (*Log, error) {
	event, err := ReadEvent(r)
	switch {
	case ioerr.PassRawEOF(err) == io.EOF:
		// An empty stream is an empty log.
		return new(Log), nil
	case err != nil:
		return nil, err
	}

	var spec Spec
	var digestSizes []EFISpecIdEventAlgorithmSize

	switch d := event.Data.(type) {
	case *SpecIdEvent00:
		spec = Spec{
			PlatformType: PlatformTypeBIOS,
			Major:        d.SpecVersionMajor,
			Minor:        d.SpecVersionMinor,
			Errata:       d.SpecErrata}
	case *SpecIdEvent02:
		spec = Spec{
			PlatformType: PlatformTypeEFI,
			Major:        d.SpecVersionMajor,
			Minor:        d.SpecVersionMinor,
			Errata:       d.SpecErrata}
	case *SpecIdEvent03:
		spec = Spec{
			PlatformType: PlatformTypeEFI,
			Major:        d.SpecVersionMajor,
			Minor:        d.SpecVersionMinor,
			Errata:       d.SpecErrata}
		digestSizes = d.DigestSizes
	}

	var algorithms AlgorithmIdList

	if spec.IsEFI_2() {
		for _, s := range digestSizes {
			if s.AlgorithmId.IsValid() {
				algorithms = append(algorithms, s.AlgorithmId)
			}
		}
		fixupSpecIdEvent(event, algorithms)
	} else {
		algorithms = AlgorithmIdList{tpm2.HashAlgorithmSHA1}
	}

	log := &Log{Spec: spec, Algorithms: algorithms, Events: []*Event{event}}

	for {
		var event *Event
		var err error
		if spec.IsEFI_2() {
			event, err = ReadEventCryptoAgile(r, digestSizes)
		} else {
			event, err = ReadEvent(r)
		}

		switch {
		case ioerr.PassRawEOF(err) == io.EOF:
			return log, nil
		case err != nil:
			return nil, err
		default:
			log.Events = append(log.Events, event)
		}
	}
}
