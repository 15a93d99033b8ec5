// Copyright 2022 UEFI Tools contributors
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package efi

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

const (
	surr1    uint16 = 0xd800
	surr2    uint16 = 0xdc00
	surr3    uint16 = 0xe000
	surrSelf rune   = 0x10000
)

// DecodeUTF16 decodes count UTF-16 code units from the supplied reader.
// Unpaired surrogates are replaced with U+FFFD rather than failing, so
// that one bad string doesn't invalidate an otherwise well formed
// record.
func DecodeUTF16(r io.Reader, count uint64) (string, error) {
	var builder strings.Builder

	for i := uint64(0); i < count; i++ {
		var c1 uint16
		if err := binary.Read(r, binary.LittleEndian, &c1); err != nil {
			return "", err
		}
		if c1 < surr1 || c1 >= surr3 {
			builder.WriteRune(rune(c1))
			continue
		}
		if c1 >= surr1 && c1 < surr2 && i+1 < count {
			var c2 uint16
			if err := binary.Read(r, binary.LittleEndian, &c2); err != nil {
				return "", err
			}
			i++
			if c2 >= surr2 && c2 < surr3 {
				builder.WriteRune((rune(c1-surr1)<<10 | rune(c2-surr2)) + surrSelf)
				continue
			}
			builder.WriteRune(utf8.RuneError)
			if c2 < surr1 || c2 >= surr3 {
				builder.WriteRune(rune(c2))
			} else {
				builder.WriteRune(utf8.RuneError)
			}
			continue
		}
		builder.WriteRune(utf8.RuneError)
	}

	return builder.String(), nil
}

// DecodeUTF16Bytes decodes a UTF-16 sequence occupying the supplied
// number of bytes. An odd byte length is invalid.
func DecodeUTF16Bytes(r io.Reader, byteLength uint64) (string, error) {
	if byteLength%2 != 0 {
		return "", fmt.Errorf("invalid UTF-16 sequence length %d", byteLength)
	}
	return DecodeUTF16(r, byteLength/2)
}

// ConvertStringToUTF16 encodes the supplied string as UTF-16 code
// units.
func ConvertStringToUTF16(str string) []uint16 {
	return utf16.Encode([]rune(str))
}

// ConvertUTF16ToString decodes the supplied UTF-16 code units.
func ConvertUTF16ToString(u []uint16) string {
	return string(utf16.Decode(u))
}
