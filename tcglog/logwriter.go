// Copyright 2022 UEFI Tools contributors
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package tcglog

import (
	"errors"
	"fmt"
	"io"

	"golang.org/x/xerrors"
)

// WriteLog serializes a list of events to w. The first event must be a
// Spec ID event; a SpecIdEvent03 selects the crypto-agile format for
// the events that follow it, anything else the SHA-1 format. A log
// that was read with ReadLog and not modified re-encodes
// byte-identically.
func WriteLog(w io.Writer, events []*Event) error {
	if len(events) == 0 {
		return nil
	}

	var cryptoAgile bool
	var digestSizes []EFISpecIdEventAlgorithmSize

	switch d := events[0].Data.(type) {
	case *SpecIdEvent00, *SpecIdEvent02:
		// SHA-1 format.
	case *SpecIdEvent03:
		cryptoAgile = true
		digestSizes = d.DigestSizes
		for _, digest := range digestSizes {
			if !digest.AlgorithmId.IsValid() {
				return fmt.Errorf("unsupported algorithm %v", digest.AlgorithmId)
			}
			if digest.DigestSize != uint16(digest.AlgorithmId.Size()) {
				return fmt.Errorf("invalid size for algorithm %v", digest.AlgorithmId)
			}
		}
	default:
		return errors.New("first event must be a spec ID event")
	}

	// The Spec ID event is always written in the SHA-1 format.
	if err := events[0].Write(w); err != nil {
		return xerrors.Errorf("cannot write event 0: %w", err)
	}

	for i, event := range events[1:] {
		if cryptoAgile {
			if err := event.WriteCryptoAgile(w, digestSizes); err != nil {
				return xerrors.Errorf("cannot write event %d: %w", i+1, err)
			}
		} else {
			if err := event.Write(w); err != nil {
				return xerrors.Errorf("cannot write event %d: %w", i+1, err)
			}
		}
	}

	return nil
}
