// Copyright 2022 UEFI Tools contributors
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

// Package efi provides types and codecs for structures defined by the
// UEFI specification, including GUIDs, UTF-16 strings and device
// paths. All wire encodings are little-endian and round-trip
// byte-identically.
package efi

// PhysicalAddress corresponds to the EFI_PHYSICAL_ADDRESS type.
type PhysicalAddress uint64

var (
	// GlobalVariable is the namespace for variables defined by the UEFI
	// specification, such as BootOrder and SecureBoot.
	GlobalVariable = MakeGUID(0x8be4df61, 0x93ca, 0x11d2, 0xaa0d, [...]uint8{0x00, 0xe0, 0x98, 0x03, 0x2b, 0x8c})

	// ImageSecurityDatabase is the namespace for the secure boot
	// signature database variables db and dbx.
	ImageSecurityDatabase = MakeGUID(0xd719b2cb, 0x3d3a, 0x4596, 0xa3bc, [...]uint8{0xda, 0xd0, 0x0e, 0x67, 0x65, 0x6f})
)
