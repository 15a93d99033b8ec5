// Copyright 2022 UEFI Tools contributors
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package tcglog

import (
	"github.com/canonical/go-tpm2"
)

// ReplayPCR computes the value that the supplied PCR would hold after
// replaying every event in the log with the supplied algorithm. The
// PCR starts at zero, or at the value selected by a StartupLocality
// event for PCR 0. EV_NO_ACTION events don't contribute to the replay.
func (l *Log) ReplayPCR(pcr PCRIndex, alg tpm2.HashAlgorithmId) (Digest, error) {
	if !l.Algorithms.Contains(alg) {
		return nil, &UnknownAlgorithmError{Algorithm: alg}
	}

	d, err := NewDigestValues(alg)
	if err != nil {
		return nil, err
	}

	for _, event := range l.Events {
		if event.PCRIndex != pcr {
			continue
		}
		if event.EventType == EventTypeNoAction {
			if loc, ok := event.Data.(*StartupLocalityEventData); ok && pcr == 0 {
				if err := d.ResetWithLocality(alg, loc.StartupLocality); err != nil {
					return nil, err
				}
			}
			continue
		}

		digest, ok := event.Digests.DigestFor(alg)
		if !ok {
			return nil, &UnknownAlgorithmError{Algorithm: alg}
		}
		if err := d.ExtendDigest(alg, digest); err != nil {
			return nil, err
		}
	}

	digest, _ := d.DigestFor(alg)
	return digest, nil
}
