// Copyright 2022 UEFI Tools contributors
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package tcglog

import (
	"crypto"
	"fmt"
	"io"
)

// EventData represents all event data types that appear in a log. Some
// implementations of this are informational (the data is provided by
// the log only), and some are not (the data contributes to the digests
// recorded alongside an event).
type EventData interface {
	fmt.Stringer

	// Bytes is the raw event data bytes as they appear in the event log.
	Bytes() []byte

	// Write will serialize this event data to the supplied io.Writer.
	Write(w io.Writer) error
}

// BrokenEventData corresponds to an event data buffer that failed to
// decode correctly. The error is preserved alongside the original
// bytes, which re-encode verbatim.
type BrokenEventData struct {
	data []byte

	Error error
}

func (e *BrokenEventData) String() string {
	if e.Error == io.ErrUnexpectedEOF {
		return "Invalid event data: event data smaller than expected"
	}
	return fmt.Sprintf("Invalid event data: %v", e.Error)
}

func (e *BrokenEventData) Bytes() []byte {
	return e.data
}

func (e *BrokenEventData) Write(w io.Writer) error {
	_, err := w.Write(e.data)
	return err
}

// OpaqueEventData is event data whose format is unknown to this
// package. The bytes are preserved verbatim.
type OpaqueEventData []byte

func (d OpaqueEventData) String() string {
	if isPrintableASCII(d) {
		return string(d)
	}
	return ""
}

func (d OpaqueEventData) Bytes() []byte {
	return []byte(d)
}

func (d OpaqueEventData) Write(w io.Writer) error {
	_, err := w.Write(d)
	return err
}

// ComputeEventDigest computes the digest associated with the supplied
// event data bytes, for events where the digest is the hash of the
// event data.
func ComputeEventDigest(alg crypto.Hash, data []byte) []byte {
	h := alg.New()
	h.Write(data)
	return h.Sum(nil)
}

// decodeEventData decodes the event data for the supplied event type.
// Data that fails to decode produces a BrokenEventData; data with no
// type-specific decoder produces an OpaqueEventData. Neither failure
// mode aborts the decode of the surrounding log.
func decodeEventData(eventType EventType, data []byte) EventData {
	event, err := decodeEventDataTCG(eventType, data)
	switch {
	case err != nil:
		return &BrokenEventData{data: data, Error: err}
	case event != nil:
		return event
	default:
		return OpaqueEventData(data)
	}
}
