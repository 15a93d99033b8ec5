// Copyright 2022 UEFI Tools contributors
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package efi_test

import (
	"bytes"

	. "gopkg.in/check.v1"

	. "github.com/uefitools/fwrecords/efi"
)

type utf16Suite struct{}

var _ = Suite(&utf16Suite{})

func (s *utf16Suite) TestDecodeUTF16(c *C) {
	r := bytes.NewReader(decodeHexString(c, "420046004f004f00"))
	str, err := DecodeUTF16(r, 4)
	c.Check(err, IsNil)
	c.Check(str, Equals, "BFOO")
}

func (s *utf16Suite) TestDecodeUTF16SurrogatePair(c *C) {
	// U+10437 encoded as the pair d801 dc37.
	r := bytes.NewReader(decodeHexString(c, "01d837dc"))
	str, err := DecodeUTF16(r, 2)
	c.Check(err, IsNil)
	c.Check(str, Equals, "\U00010437")
}

func (s *utf16Suite) TestDecodeUTF16UnpairedSurrogate(c *C) {
	r := bytes.NewReader(decodeHexString(c, "01d84100"))
	str, err := DecodeUTF16(r, 2)
	c.Check(err, IsNil)
	c.Check(str, Equals, "�A")
}

func (s *utf16Suite) TestDecodeUTF16Truncated(c *C) {
	r := bytes.NewReader(decodeHexString(c, "4200"))
	_, err := DecodeUTF16(r, 2)
	c.Check(err, NotNil)
}

func (s *utf16Suite) TestDecodeUTF16BytesOddLength(c *C) {
	r := bytes.NewReader(decodeHexString(c, "420046"))
	_, err := DecodeUTF16Bytes(r, 3)
	c.Check(err, NotNil)
}

func (s *utf16Suite) TestConvertRoundTrip(c *C) {
	str := "BootOrder \U00010437"
	c.Check(ConvertUTF16ToString(ConvertStringToUTF16(str)), Equals, str)
}
