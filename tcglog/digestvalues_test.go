// Copyright 2022 UEFI Tools contributors
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package tcglog_test

import (
	"bytes"
	"crypto/sha256"

	"github.com/canonical/go-tpm2"

	. "gopkg.in/check.v1"

	. "github.com/uefitools/fwrecords/tcglog"
)

type digestValuesSuite struct{}

var _ = Suite(&digestValuesSuite{})

func (s *digestValuesSuite) TestAddAlgorithm(c *C) {
	d, err := NewDigestValues(tpm2.HashAlgorithmSHA256)
	c.Assert(err, IsNil)
	c.Check(d.Len(), Equals, 1)

	digest, ok := d.DigestFor(tpm2.HashAlgorithmSHA256)
	c.Check(ok, Equals, true)
	c.Check(digest, DeepEquals, make(Digest, 32))
}

func (s *digestValuesSuite) TestAddAlgorithmDuplicate(c *C) {
	d, err := NewDigestValues(tpm2.HashAlgorithmSHA256)
	c.Assert(err, IsNil)

	err = d.AddAlgorithm(tpm2.HashAlgorithmSHA256)
	c.Check(err, FitsTypeOf, &DuplicateAlgorithmError{})
	c.Check(err, ErrorMatches, `digest collection already contains an entry for algorithm .*`)
	c.Check(d.Len(), Equals, 1)
}

func (s *digestValuesSuite) TestAddAlgorithmUnknown(c *C) {
	d := new(DigestValues)
	c.Check(d.AddAlgorithm(tpm2.HashAlgorithmNull), FitsTypeOf, &UnknownAlgorithmError{})
}

func (s *digestValuesSuite) TestAlgorithmsPreserveOrder(c *C) {
	d, err := NewDigestValues(tpm2.HashAlgorithmSHA256, tpm2.HashAlgorithmSHA1, tpm2.HashAlgorithmSHA384)
	c.Assert(err, IsNil)
	c.Check(d.Algorithms(), DeepEquals, AlgorithmIdList{
		tpm2.HashAlgorithmSHA256, tpm2.HashAlgorithmSHA1, tpm2.HashAlgorithmSHA384})
}

func (s *digestValuesSuite) TestExtendDigestChained(c *C) {
	d, err := NewDigestValues(tpm2.HashAlgorithmSHA256)
	c.Assert(err, IsNil)

	h1 := sha256.Sum256([]byte("first measurement"))
	h2 := sha256.Sum256([]byte("second measurement"))

	c.Check(d.ExtendDigest(tpm2.HashAlgorithmSHA256, h1[:]), IsNil)
	c.Check(d.ExtendDigest(tpm2.HashAlgorithmSHA256, h2[:]), IsNil)

	e1 := sha256.Sum256(append(make([]byte, 32), h1[:]...))
	e2 := sha256.Sum256(append(e1[:], h2[:]...))

	digest, ok := d.DigestFor(tpm2.HashAlgorithmSHA256)
	c.Check(ok, Equals, true)
	c.Check(digest, DeepEquals, Digest(e2[:]))
}

func (s *digestValuesSuite) TestExtendDigestWrongSize(c *C) {
	d, err := NewDigestValues(tpm2.HashAlgorithmSHA256)
	c.Assert(err, IsNil)

	err = d.ExtendDigest(tpm2.HashAlgorithmSHA256, make(Digest, 20))
	c.Check(err, FitsTypeOf, &SizeMismatchError{})
	c.Check(err, ErrorMatches, `digest length 20 doesn't match the size of algorithm .* \(32\)`)

	// A failed extend leaves the digest untouched.
	digest, _ := d.DigestFor(tpm2.HashAlgorithmSHA256)
	c.Check(digest, DeepEquals, make(Digest, 32))
}

func (s *digestValuesSuite) TestExtendData(c *C) {
	d, err := NewDigestValues(tpm2.HashAlgorithmSHA256)
	c.Assert(err, IsNil)

	c.Check(d.ExtendData(tpm2.HashAlgorithmSHA256, []byte("some event")), IsNil)

	h := sha256.Sum256([]byte("some event"))
	expected := sha256.Sum256(append(make([]byte, 32), h[:]...))

	digest, _ := d.DigestFor(tpm2.HashAlgorithmSHA256)
	c.Check(digest, DeepEquals, Digest(expected[:]))
}

func (s *digestValuesSuite) TestSetHashData(c *C) {
	d, err := NewDigestValues(tpm2.HashAlgorithmSHA256)
	c.Assert(err, IsNil)

	c.Check(d.SetHashData(tpm2.HashAlgorithmSHA256, []byte("some event")), IsNil)

	h := sha256.Sum256([]byte("some event"))
	digest, _ := d.DigestFor(tpm2.HashAlgorithmSHA256)
	c.Check(digest, DeepEquals, Digest(h[:]))
}

func (s *digestValuesSuite) TestResetWithLocality(c *C) {
	d, err := NewDigestValues(tpm2.HashAlgorithmSHA256)
	c.Assert(err, IsNil)

	c.Check(d.ExtendData(tpm2.HashAlgorithmSHA256, []byte("some event")), IsNil)
	c.Check(d.ResetWithLocality(tpm2.HashAlgorithmSHA256, 3), IsNil)

	expected := make(Digest, 32)
	expected[31] = 3
	digest, _ := d.DigestFor(tpm2.HashAlgorithmSHA256)
	c.Check(digest, DeepEquals, expected)
}

func (s *digestValuesSuite) TestResetWithLocalityInvalid(c *C) {
	d, err := NewDigestValues(tpm2.HashAlgorithmSHA256)
	c.Assert(err, IsNil)

	err = d.ResetWithLocality(tpm2.HashAlgorithmSHA256, 5)
	c.Check(err, FitsTypeOf, &InvalidLocalityError{})
	c.Check(err, ErrorMatches, `invalid startup locality 5`)
}

func (s *digestValuesSuite) TestReset(c *C) {
	d, err := NewDigestValues(tpm2.HashAlgorithmSHA1)
	c.Assert(err, IsNil)

	c.Check(d.ExtendData(tpm2.HashAlgorithmSHA1, []byte("some event")), IsNil)
	c.Check(d.Reset(tpm2.HashAlgorithmSHA1), IsNil)

	digest, _ := d.DigestFor(tpm2.HashAlgorithmSHA1)
	c.Check(digest, DeepEquals, make(Digest, 20))
}

func (s *digestValuesSuite) TestDigestLengthsAfterMutation(c *C) {
	d, err := NewDigestValues(tpm2.HashAlgorithmSHA1, tpm2.HashAlgorithmSHA256)
	c.Assert(err, IsNil)

	c.Check(d.ExtendData(tpm2.HashAlgorithmSHA256, []byte("event")), IsNil)
	c.Check(d.ResetWithLocality(tpm2.HashAlgorithmSHA256, 4), IsNil)
	c.Check(d.ExtendData(tpm2.HashAlgorithmSHA1, []byte("event")), IsNil)

	for _, alg := range d.Algorithms() {
		digest, ok := d.DigestFor(alg)
		c.Check(ok, Equals, true)
		c.Check(digest, HasLen, alg.Size())
	}
}

func (s *digestValuesSuite) TestRoundTrip(c *C) {
	data := decodeHexString(c, "02000000"+
		"0400"+"5fa6e9a74105c1e2297cce17c68288c84a8bda07"+
		"0b00"+"9d0689e46d7c710571256af5b8e8638f0dbc6b008f5ea4688c1c70f3005943e4")

	d, err := ReadDigestValues(bytes.NewReader(data))
	c.Assert(err, IsNil)
	c.Check(d.Len(), Equals, 2)

	digest, ok := d.DigestFor(tpm2.HashAlgorithmSHA1)
	c.Check(ok, Equals, true)
	c.Check(digest, DeepEquals, Digest(decodeHexString(c, "5fa6e9a74105c1e2297cce17c68288c84a8bda07")))

	out, err := d.Bytes()
	c.Check(err, IsNil)
	c.Check(out, DeepEquals, data)
}

func (s *digestValuesSuite) TestReadDigestValuesUnknownAlgorithm(c *C) {
	data := decodeHexString(c, "01000000"+"1000"+"00000000000000000000000000000000")
	_, err := ReadDigestValues(bytes.NewReader(data))
	c.Check(err, FitsTypeOf, &UnknownAlgorithmError{})
}
