// Copyright 2022 UEFI Tools contributors
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package efi

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

// GUID corresponds to the EFI_GUID type. The first three fields are
// stored little-endian on the wire and the last two in byte-array
// order, and this mixed convention must be preserved when re-encoding.
type GUID [16]byte

func (guid GUID) String() string {
	return fmt.Sprintf("{%08x-%04x-%04x-%04x-%012x}",
		binary.LittleEndian.Uint32(guid[0:4]),
		binary.LittleEndian.Uint16(guid[4:6]),
		binary.LittleEndian.Uint16(guid[6:8]),
		binary.BigEndian.Uint16(guid[8:10]),
		guid[10:16])
}

// MarshalJSON implements [json.Marshaler], rendering the GUID in the
// canonical hyphenated registry format.
func (guid GUID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + guid.String() + `"`), nil
}

// MakeGUID makes a new GUID from the supplied arguments.
func MakeGUID(a uint32, b, c, d uint16, e [6]uint8) (out GUID) {
	binary.LittleEndian.PutUint32(out[0:4], a)
	binary.LittleEndian.PutUint16(out[4:6], b)
	binary.LittleEndian.PutUint16(out[6:8], c)
	binary.BigEndian.PutUint16(out[8:10], d)
	copy(out[10:], e[:])
	return
}

// ReadGUID reads a GUID from the supplied reader.
func ReadGUID(r io.Reader) (out GUID, err error) {
	_, err = io.ReadFull(r, out[:])
	return out, err
}

// DecodeGUIDString decodes a GUID from its textual registry format
// ("xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx", with or without enclosing
// braces). The byte order of the result follows the wire convention.
func DecodeGUIDString(s string) (out GUID, err error) {
	s = strings.TrimPrefix(s, "{")
	s = strings.TrimSuffix(s, "}")

	parts := strings.Split(s, "-")
	if len(parts) != 5 {
		return GUID{}, fmt.Errorf("invalid GUID string %q", s)
	}
	for i, want := range []int{8, 4, 4, 4, 12} {
		if len(parts[i]) != want {
			return GUID{}, fmt.Errorf("invalid GUID string %q", s)
		}
	}

	raw, err := hex.DecodeString(strings.Join(parts, ""))
	if err != nil {
		return GUID{}, fmt.Errorf("invalid GUID string %q: %v", s, err)
	}

	binary.LittleEndian.PutUint32(out[0:4], binary.BigEndian.Uint32(raw[0:4]))
	binary.LittleEndian.PutUint16(out[4:6], binary.BigEndian.Uint16(raw[4:6]))
	binary.LittleEndian.PutUint16(out[6:8], binary.BigEndian.Uint16(raw[6:8]))
	copy(out[8:], raw[8:])
	return out, nil
}

// CStructString renders the GUID as a C struct initializer of the form
// used by EDK2 source ("{0x...,0x...,0x...,{0x..,...}}"), useful for
// comparing parsed values against firmware source constants.
func (guid GUID) CStructString() string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "{0x%08x,0x%04x,0x%04x,{",
		binary.LittleEndian.Uint32(guid[0:4]),
		binary.LittleEndian.Uint16(guid[4:6]),
		binary.LittleEndian.Uint16(guid[6:8]))
	for i, b := range guid[8:16] {
		if i > 0 {
			builder.WriteString(",")
		}
		fmt.Fprintf(&builder, "0x%02x", b)
	}
	builder.WriteString("}}")
	return builder.String()
}

// DecodeGUIDCStructString decodes a GUID from the C struct initializer
// format produced by [GUID.CStructString].
func DecodeGUIDCStructString(s string) (GUID, error) {
	clean := strings.NewReplacer("{", "", "}", "", " ", "", "0x", "", "0X", "").Replace(s)
	parts := strings.Split(clean, ",")
	if len(parts) != 11 {
		return GUID{}, fmt.Errorf("invalid GUID C struct string %q", s)
	}

	var fields [11]uint64
	for i, p := range parts {
		if _, err := fmt.Sscanf(p, "%x", &fields[i]); err != nil {
			return GUID{}, fmt.Errorf("invalid GUID C struct string %q: %v", s, err)
		}
	}

	var e [6]uint8
	for i := range e {
		e[i] = uint8(fields[5+i])
	}
	out := MakeGUID(uint32(fields[0]), uint16(fields[1]), uint16(fields[2]),
		uint16(fields[3])<<8|uint16(fields[4]), e)
	return out, nil
}
