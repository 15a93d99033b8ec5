// Copyright 2022 UEFI Tools contributors
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package tcglog

import (
	"bytes"
	"encoding/binary"
	"io"

	// Register the digest algorithms that can appear in an event log.
	_ "crypto/sha1"
	_ "crypto/sha256"
	_ "crypto/sha512"

	"github.com/canonical/go-tpm2"

	"github.com/uefitools/fwrecords/internal/ioerr"
)

// maxStartupLocality is the highest locality from which a TPM2_Startup
// can be issued.
const maxStartupLocality = 4

// TaggedDigest associates a digest with its algorithm, corresponding
// to the TPMT_HA type.
type TaggedDigest struct {
	HashAlg tpm2.HashAlgorithmId
	Digest  Digest
}

// DigestValues is an ordered, algorithm-unique collection of tagged
// digests, corresponding to the TPML_DIGEST_VALUES type. Entries keep
// their insertion order so that a decoded collection re-encodes to the
// original bytes.
type DigestValues struct {
	digests []TaggedDigest
}

// NewDigestValues returns a collection tracking the supplied
// algorithms, each with a zero digest of the algorithm's size.
func NewDigestValues(algs ...tpm2.HashAlgorithmId) (*DigestValues, error) {
	d := new(DigestValues)
	for _, alg := range algs {
		if err := d.AddAlgorithm(alg); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (d *DigestValues) entryFor(alg tpm2.HashAlgorithmId) *TaggedDigest {
	for i := range d.digests {
		if d.digests[i].HashAlg == alg {
			return &d.digests[i]
		}
	}
	return nil
}

// AddAlgorithm appends an entry for the supplied algorithm with a zero
// digest. It returns a *DuplicateAlgorithmError if the collection
// already tracks the algorithm.
func (d *DigestValues) AddAlgorithm(alg tpm2.HashAlgorithmId) error {
	if !alg.IsValid() {
		return &UnknownAlgorithmError{Algorithm: alg}
	}
	if d.entryFor(alg) != nil {
		return &DuplicateAlgorithmError{Algorithm: alg}
	}
	d.digests = append(d.digests, TaggedDigest{HashAlg: alg, Digest: make(Digest, alg.Size())})
	return nil
}

// Len returns the number of entries in the collection.
func (d *DigestValues) Len() int {
	return len(d.digests)
}

// Algorithms returns the tracked algorithms in insertion order.
func (d *DigestValues) Algorithms() AlgorithmIdList {
	var algs AlgorithmIdList
	for _, entry := range d.digests {
		algs = append(algs, entry.HashAlg)
	}
	return algs
}

// DigestFor returns the current digest for the supplied algorithm. The
// second return value is false if the collection doesn't track it.
func (d *DigestValues) DigestFor(alg tpm2.HashAlgorithmId) (Digest, bool) {
	entry := d.entryFor(alg)
	if entry == nil {
		return nil, false
	}
	return entry.Digest, true
}

// SetDigest replaces the digest for the supplied algorithm. It returns
// a *SizeMismatchError if the digest has the wrong length.
func (d *DigestValues) SetDigest(alg tpm2.HashAlgorithmId, digest Digest) error {
	entry := d.entryFor(alg)
	if entry == nil {
		return &UnknownAlgorithmError{Algorithm: alg}
	}
	if len(digest) != alg.Size() {
		return &SizeMismatchError{Algorithm: alg, Expected: alg.Size(), Actual: len(digest)}
	}
	entry.Digest = digest
	return nil
}

// SetHashData replaces the digest for the supplied algorithm with the
// hash of data.
func (d *DigestValues) SetHashData(alg tpm2.HashAlgorithmId, data []byte) error {
	entry := d.entryFor(alg)
	if entry == nil {
		return &UnknownAlgorithmError{Algorithm: alg}
	}
	h := alg.NewHash()
	h.Write(data)
	entry.Digest = h.Sum(nil)
	return nil
}

// Reset zeroes the digest for the supplied algorithm, matching the
// state of a PCR at platform reset.
func (d *DigestValues) Reset(alg tpm2.HashAlgorithmId) error {
	entry := d.entryFor(alg)
	if entry == nil {
		return &UnknownAlgorithmError{Algorithm: alg}
	}
	entry.Digest = make(Digest, alg.Size())
	return nil
}

// ResetWithLocality zeroes the digest for the supplied algorithm and
// records the startup locality in the final byte, matching the state
// of PCR0 after a H-CRTM startup sequence. It returns a
// *InvalidLocalityError for localities above 4.
func (d *DigestValues) ResetWithLocality(alg tpm2.HashAlgorithmId, locality uint8) error {
	if locality > maxStartupLocality {
		return &InvalidLocalityError{Locality: locality}
	}
	entry := d.entryFor(alg)
	if entry == nil {
		return &UnknownAlgorithmError{Algorithm: alg}
	}
	digest := make(Digest, alg.Size())
	digest[len(digest)-1] = locality
	entry.Digest = digest
	return nil
}

// ExtendDigest replaces the digest for the supplied algorithm with the
// hash of the current digest concatenated with the incoming one,
// mirroring TPM2_PCR_Extend.
func (d *DigestValues) ExtendDigest(alg tpm2.HashAlgorithmId, digest Digest) error {
	entry := d.entryFor(alg)
	if entry == nil {
		return &UnknownAlgorithmError{Algorithm: alg}
	}
	if len(digest) != alg.Size() {
		return &SizeMismatchError{Algorithm: alg, Expected: alg.Size(), Actual: len(digest)}
	}
	h := alg.NewHash()
	h.Write(entry.Digest)
	h.Write(digest)
	entry.Digest = h.Sum(nil)
	return nil
}

// ExtendData hashes data with the supplied algorithm and extends the
// result into the current digest.
func (d *DigestValues) ExtendData(alg tpm2.HashAlgorithmId, data []byte) error {
	if d.entryFor(alg) == nil {
		return &UnknownAlgorithmError{Algorithm: alg}
	}
	h := alg.NewHash()
	h.Write(data)
	return d.ExtendDigest(alg, h.Sum(nil))
}

// ReadDigestValues decodes a TPML_DIGEST_VALUES from r. The length of
// each digest is derived from its algorithm ID; an ID with no known
// size fails with a *UnknownAlgorithmError.
func ReadDigestValues(r io.Reader) (*DigestValues, error) {
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, err
	}

	d := new(DigestValues)
	for i := uint32(0); i < count; i++ {
		var algorithmId tpm2.HashAlgorithmId
		if err := binary.Read(r, binary.LittleEndian, &algorithmId); err != nil {
			return nil, ioerr.EOFIsUnexpectedf("cannot read algorithm for digest %d: %w", i, err)
		}
		if !algorithmId.IsValid() {
			return nil, &UnknownAlgorithmError{Algorithm: algorithmId}
		}
		if d.entryFor(algorithmId) != nil {
			return nil, &DuplicateAlgorithmError{Algorithm: algorithmId}
		}

		digest := make(Digest, algorithmId.Size())
		if _, err := io.ReadFull(r, digest); err != nil {
			return nil, ioerr.EOFIsUnexpectedf("cannot read digest for algorithm %v: %w", algorithmId, err)
		}

		d.digests = append(d.digests, TaggedDigest{HashAlg: algorithmId, Digest: digest})
	}

	return d, nil
}

// Write serializes the collection as a TPML_DIGEST_VALUES, with
// entries in insertion order.
func (d *DigestValues) Write(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(d.digests))); err != nil {
		return err
	}
	for _, entry := range d.digests {
		if err := binary.Write(w, binary.LittleEndian, entry.HashAlg); err != nil {
			return err
		}
		if _, err := w.Write(entry.Digest); err != nil {
			return err
		}
	}
	return nil
}

// Bytes returns the serialized form of the collection.
func (d *DigestValues) Bytes() ([]byte, error) {
	w := new(bytes.Buffer)
	if err := d.Write(w); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}
