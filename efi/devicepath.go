// Copyright 2022 UEFI Tools contributors
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package efi

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"golang.org/x/xerrors"

	"github.com/uefitools/fwrecords/internal/ioerr"
)

// DevicePathType is the type of a device path node.
type DevicePathType uint8

func (t DevicePathType) String() string {
	switch t {
	case HardwareDevicePath:
		return "HardwarePath"
	case ACPIDevicePath:
		return "AcpiPath"
	case MessagingDevicePath:
		return "Msg"
	case MediaDevicePath:
		return "MediaPath"
	case BBSDevicePath:
		return "BbsPath"
	case EndDevicePath:
		return "EndPath"
	default:
		return fmt.Sprintf("Path[%02x]", uint8(t))
	}
}

const (
	HardwareDevicePath  DevicePathType = 0x01
	ACPIDevicePath      DevicePathType = 0x02
	MessagingDevicePath DevicePathType = 0x03
	MediaDevicePath     DevicePathType = 0x04
	BBSDevicePath       DevicePathType = 0x05
	EndDevicePath       DevicePathType = 0x7f
)

// DevicePathSubType is the sub-type of a device path node.
type DevicePathSubType uint8

const (
	hwSubTypePCI    DevicePathSubType = 0x01
	hwSubTypePCCard DevicePathSubType = 0x02

	acpiSubTypeHID DevicePathSubType = 0x01

	msgSubTypeUSB           DevicePathSubType = 0x05
	msgSubTypeMACAddr       DevicePathSubType = 0x0b
	msgSubTypeIPv4          DevicePathSubType = 0x0c
	msgSubTypeSATA          DevicePathSubType = 0x12
	msgSubTypeNVMENamespace DevicePathSubType = 0x17

	mediaSubTypeHardDrive           DevicePathSubType = 0x01
	mediaSubTypeFilePath            DevicePathSubType = 0x04
	mediaSubTypeFirmwareFile        DevicePathSubType = 0x06
	mediaSubTypeFirmwareVolume      DevicePathSubType = 0x07
	mediaSubTypeRelativeOffsetRange DevicePathSubType = 0x08

	endSubTypeEntire DevicePathSubType = 0xff
)

// devicePathNodeHdrSize is the size of EFI_DEVICE_PATH_PROTOCOL, the
// fixed header carried by every node.
const devicePathNodeHdrSize = 4

// MalformedDevicePathNodeError is returned when a node's declared
// length is inconsistent - shorter than the node header, or extending
// beyond the end of the enclosing buffer. A node in this state aborts
// the decode of the whole path.
type MalformedDevicePathNodeError struct {
	Offset int64
	Err    error
}

func (e *MalformedDevicePathNodeError) Error() string {
	return fmt.Sprintf("malformed device path node at offset %d: %v", e.Offset, e.Err)
}

func (e *MalformedDevicePathNodeError) Unwrap() error {
	return e.Err
}

// DevicePathNode represents a single node in a device path.
type DevicePathNode interface {
	fmt.Stringer

	// Write serializes this node, including its header, to w.
	Write(w io.Writer) error
}

// DevicePath represents a complete device path with the first node
// representing the root.
type DevicePath []DevicePathNode

func (p DevicePath) String() string {
	var builder bytes.Buffer
	for _, node := range p {
		fmt.Fprintf(&builder, "\\%s", node)
	}
	return builder.String()
}

// Write serializes the complete device path to w. Nodes are written in
// order with no implicit terminator - a path decoded by
// [ReadDevicePath] carries its own [EndOfHardwareDevicePathNode] and
// re-encodes byte-identically.
func (p DevicePath) Write(w io.Writer) error {
	for i, node := range p {
		if err := node.Write(w); err != nil {
			return xerrors.Errorf("cannot write node %d: %w", i, err)
		}
	}
	return nil
}

// Bytes returns the serialized form of this device path.
func (p DevicePath) Bytes() ([]byte, error) {
	w := new(bytes.Buffer)
	if err := p.Write(w); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

func writeDevicePathNode(w io.Writer, t DevicePathType, subType DevicePathSubType, data []byte) error {
	l := devicePathNodeHdrSize + len(data)
	if l > math.MaxUint16 {
		return errors.New("node data too large")
	}

	hdr := struct {
		Type    uint8
		SubType uint8
		Length  uint16
	}{uint8(t), uint8(subType), uint16(l)}
	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

// RawDevicePathNode corresponds to a device path node with an
// unhandled type. The node data is preserved verbatim so that paths
// containing node types from specifications newer than this package
// still re-encode losslessly.
type RawDevicePathNode struct {
	Type    DevicePathType
	SubType DevicePathSubType
	Data    []byte
}

func (n *RawDevicePathNode) String() string {
	var builder bytes.Buffer
	fmt.Fprintf(&builder, "%s(%d", n.Type, n.SubType)
	if len(n.Data) > 0 {
		fmt.Fprintf(&builder, ", 0x")
		for _, b := range n.Data {
			fmt.Fprintf(&builder, "%02x", b)
		}
	}
	fmt.Fprintf(&builder, ")")
	return builder.String()
}

func (n *RawDevicePathNode) Write(w io.Writer) error {
	return writeDevicePathNode(w, n.Type, n.SubType, n.Data)
}

// PCIDevicePathNode corresponds to a PCI device path node.
type PCIDevicePathNode struct {
	Function uint8
	Device   uint8
}

func (n *PCIDevicePathNode) String() string {
	return fmt.Sprintf("Pci(0x%x,0x%x)", n.Device, n.Function)
}

func (n *PCIDevicePathNode) Write(w io.Writer) error {
	return writeDevicePathNode(w, HardwareDevicePath, hwSubTypePCI, []byte{n.Function, n.Device})
}

func decodePCIDevicePathNode(r *bytes.Reader) (DevicePathNode, error) {
	var n PCIDevicePathNode
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// PCCardDevicePathNode corresponds to a PC Card device path node.
type PCCardDevicePathNode struct {
	FunctionNumber uint8
}

func (n *PCCardDevicePathNode) String() string {
	return fmt.Sprintf("PcCard(0x%x)", n.FunctionNumber)
}

func (n *PCCardDevicePathNode) Write(w io.Writer) error {
	return writeDevicePathNode(w, HardwareDevicePath, hwSubTypePCCard, []byte{n.FunctionNumber})
}

func decodePCCardDevicePathNode(r *bytes.Reader) (DevicePathNode, error) {
	var n PCCardDevicePathNode
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// ACPIDevicePathNode corresponds to an ACPI device path node. The HID
// field is a compressed EISA-type PnP hardware ID.
type ACPIDevicePathNode struct {
	HID uint32
	UID uint32
}

func (n *ACPIDevicePathNode) String() string {
	if n.HID&0xffff == 0x41d0 {
		switch n.HID >> 16 {
		case 0x0a03:
			return fmt.Sprintf("PciRoot(0x%x)", n.UID)
		case 0x0a08:
			return fmt.Sprintf("PcieRoot(0x%x)", n.UID)
		case 0x0604:
			return fmt.Sprintf("Floppy(0x%x)", n.UID)
		default:
			return fmt.Sprintf("Acpi(PNP%04x,0x%x)", n.HID>>16, n.UID)
		}
	}
	return fmt.Sprintf("Acpi(0x%08x,0x%x)", n.HID, n.UID)
}

func (n *ACPIDevicePathNode) Write(w io.Writer) error {
	data := new(bytes.Buffer)
	binary.Write(data, binary.LittleEndian, n)
	return writeDevicePathNode(w, ACPIDevicePath, acpiSubTypeHID, data.Bytes())
}

func decodeACPIDevicePathNode(r *bytes.Reader) (DevicePathNode, error) {
	var n ACPIDevicePathNode
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// USBDevicePathNode corresponds to a USB device path node.
type USBDevicePathNode struct {
	ParentPortNumber uint8
	InterfaceNumber  uint8
}

func (n *USBDevicePathNode) String() string {
	return fmt.Sprintf("USB(0x%x,0x%x)", n.ParentPortNumber, n.InterfaceNumber)
}

func (n *USBDevicePathNode) Write(w io.Writer) error {
	return writeDevicePathNode(w, MessagingDevicePath, msgSubTypeUSB, []byte{n.ParentPortNumber, n.InterfaceNumber})
}

func decodeUSBDevicePathNode(r *bytes.Reader) (DevicePathNode, error) {
	var n USBDevicePathNode
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// MACAddrDevicePathNode corresponds to a MAC address device path node.
// The address is padded with zeros to 32 bytes on the wire.
type MACAddrDevicePathNode struct {
	Address [32]uint8
	IfType  uint8
}

func (n *MACAddrDevicePathNode) String() string {
	length := 32
	if n.IfType == 0 || n.IfType == 1 {
		length = 6
	}
	var builder bytes.Buffer
	builder.WriteString("MAC(")
	for _, b := range n.Address[:length] {
		fmt.Fprintf(&builder, "%02x", b)
	}
	fmt.Fprintf(&builder, ",0x%x)", n.IfType)
	return builder.String()
}

func (n *MACAddrDevicePathNode) Write(w io.Writer) error {
	data := new(bytes.Buffer)
	binary.Write(data, binary.LittleEndian, n)
	return writeDevicePathNode(w, MessagingDevicePath, msgSubTypeMACAddr, data.Bytes())
}

func decodeMACAddrDevicePathNode(r *bytes.Reader) (DevicePathNode, error) {
	var n MACAddrDevicePathNode
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// IPv4DevicePathNode corresponds to an IPv4 device path node.
type IPv4DevicePathNode struct {
	LocalAddress     [4]uint8
	RemoteAddress    [4]uint8
	LocalPort        uint16
	RemotePort       uint16
	Protocol         uint16
	StaticIPAddress  uint8
	GatewayIPAddress [4]uint8
	SubnetMask       [4]uint8
}

func ipv4String(addr [4]uint8) string {
	return fmt.Sprintf("%d.%d.%d.%d", addr[0], addr[1], addr[2], addr[3])
}

func (n *IPv4DevicePathNode) String() string {
	return fmt.Sprintf("IPv4(%s:%d,%d,%d,%s:%d)", ipv4String(n.RemoteAddress), n.RemotePort,
		n.Protocol, n.StaticIPAddress, ipv4String(n.LocalAddress), n.LocalPort)
}

func (n *IPv4DevicePathNode) Write(w io.Writer) error {
	data := new(bytes.Buffer)
	binary.Write(data, binary.LittleEndian, n)
	return writeDevicePathNode(w, MessagingDevicePath, msgSubTypeIPv4, data.Bytes())
}

func decodeIPv4DevicePathNode(r *bytes.Reader) (DevicePathNode, error) {
	var n IPv4DevicePathNode
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// SATADevicePathNode corresponds to a SATA device path node.
type SATADevicePathNode struct {
	HBAPortNumber            uint16
	PortMultiplierPortNumber uint16
	LUN                      uint16
}

func (n *SATADevicePathNode) String() string {
	return fmt.Sprintf("Sata(0x%x,0x%x,0x%x)", n.HBAPortNumber, n.PortMultiplierPortNumber, n.LUN)
}

func (n *SATADevicePathNode) Write(w io.Writer) error {
	data := new(bytes.Buffer)
	binary.Write(data, binary.LittleEndian, n)
	return writeDevicePathNode(w, MessagingDevicePath, msgSubTypeSATA, data.Bytes())
}

func decodeSATADevicePathNode(r *bytes.Reader) (DevicePathNode, error) {
	var n SATADevicePathNode
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// NVMENamespaceDevicePathNode corresponds to a NVMe namespace device
// path node.
type NVMENamespaceDevicePathNode struct {
	NamespaceID   uint32
	NamespaceUUID uint64
}

func (n *NVMENamespaceDevicePathNode) String() string {
	var uuid [8]uint8
	binary.BigEndian.PutUint64(uuid[:], n.NamespaceUUID)
	var builder bytes.Buffer
	fmt.Fprintf(&builder, "NVMe(0x%x,", n.NamespaceID)
	for i, b := range uuid {
		if i > 0 {
			builder.WriteString("-")
		}
		fmt.Fprintf(&builder, "%02x", b)
	}
	builder.WriteString(")")
	return builder.String()
}

func (n *NVMENamespaceDevicePathNode) Write(w io.Writer) error {
	data := new(bytes.Buffer)
	binary.Write(data, binary.LittleEndian, n)
	return writeDevicePathNode(w, MessagingDevicePath, msgSubTypeNVMENamespace, data.Bytes())
}

func decodeNVMENamespaceDevicePathNode(r *bytes.Reader) (DevicePathNode, error) {
	var n NVMENamespaceDevicePathNode
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// MBRType describes the partitioning scheme of a hard drive node.
type MBRType uint8

const (
	LegacyMBR MBRType = 1
	GPT       MBRType = 2
)

// HardDriveSignatureType describes the type of a hard drive node's
// partition signature.
type HardDriveSignatureType uint8

const (
	NoHardDriveSignature   HardDriveSignatureType = 0
	MBRHardDriveSignature  HardDriveSignatureType = 1
	GUIDHardDriveSignature HardDriveSignatureType = 2
)

// HardDriveDevicePathNode corresponds to a hard drive device path
// node.
type HardDriveDevicePathNode struct {
	PartitionNumber uint32
	PartitionStart  uint64
	PartitionSize   uint64
	Signature       [16]uint8
	MBRType         MBRType
	SignatureType   HardDriveSignatureType
}

// GUIDSignature returns the partition signature as a GUID. The second
// return value is false unless the signature type is
// [GUIDHardDriveSignature].
func (n *HardDriveDevicePathNode) GUIDSignature() (GUID, bool) {
	if n.SignatureType != GUIDHardDriveSignature {
		return GUID{}, false
	}
	var guid GUID
	copy(guid[:], n.Signature[:])
	return guid, true
}

func (n *HardDriveDevicePathNode) String() string {
	var builder bytes.Buffer
	fmt.Fprintf(&builder, "HD(%d,", n.PartitionNumber)
	switch n.SignatureType {
	case MBRHardDriveSignature:
		fmt.Fprintf(&builder, "MBR,0x%08x,", binary.LittleEndian.Uint32(n.Signature[:4]))
	case GUIDHardDriveSignature:
		guid, _ := n.GUIDSignature()
		fmt.Fprintf(&builder, "GPT,%s,", guid)
	default:
		fmt.Fprintf(&builder, "%d,", n.SignatureType)
	}
	fmt.Fprintf(&builder, "0x%x,0x%x)", n.PartitionStart, n.PartitionSize)
	return builder.String()
}

func (n *HardDriveDevicePathNode) Write(w io.Writer) error {
	data := new(bytes.Buffer)
	binary.Write(data, binary.LittleEndian, n)
	return writeDevicePathNode(w, MediaDevicePath, mediaSubTypeHardDrive, data.Bytes())
}

func decodeHardDriveDevicePathNode(r *bytes.Reader) (DevicePathNode, error) {
	var n HardDriveDevicePathNode
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// FilePathDevicePathNode corresponds to a file path device path node.
type FilePathDevicePathNode string

func (n FilePathDevicePathNode) String() string {
	return string(n)
}

func (n FilePathDevicePathNode) Write(w io.Writer) error {
	data := new(bytes.Buffer)
	for _, c := range ConvertStringToUTF16(string(n)) {
		binary.Write(data, binary.LittleEndian, c)
	}
	binary.Write(data, binary.LittleEndian, uint16(0))
	return writeDevicePathNode(w, MediaDevicePath, mediaSubTypeFilePath, data.Bytes())
}

func decodeFilePathDevicePathNode(r *bytes.Reader) (DevicePathNode, error) {
	str, err := DecodeUTF16Bytes(r, uint64(r.Len()))
	if err != nil {
		return nil, err
	}
	// The path is NUL terminated on the wire.
	for len(str) > 0 && str[len(str)-1] == '\x00' {
		str = str[:len(str)-1]
	}
	return FilePathDevicePathNode(str), nil
}

// FirmwareFileDevicePathNode corresponds to a firmware volume file
// device path node.
type FirmwareFileDevicePathNode struct {
	Name GUID
}

func (n *FirmwareFileDevicePathNode) String() string {
	return fmt.Sprintf("FvFile(%s)", n.Name)
}

func (n *FirmwareFileDevicePathNode) Write(w io.Writer) error {
	return writeDevicePathNode(w, MediaDevicePath, mediaSubTypeFirmwareFile, n.Name[:])
}

func decodeFirmwareFileDevicePathNode(r *bytes.Reader) (DevicePathNode, error) {
	name, err := ReadGUID(r)
	if err != nil {
		return nil, err
	}
	return &FirmwareFileDevicePathNode{Name: name}, nil
}

// FirmwareVolumeDevicePathNode corresponds to a firmware volume device
// path node.
type FirmwareVolumeDevicePathNode struct {
	Name GUID
}

func (n *FirmwareVolumeDevicePathNode) String() string {
	return fmt.Sprintf("Fv(%s)", n.Name)
}

func (n *FirmwareVolumeDevicePathNode) Write(w io.Writer) error {
	return writeDevicePathNode(w, MediaDevicePath, mediaSubTypeFirmwareVolume, n.Name[:])
}

func decodeFirmwareVolumeDevicePathNode(r *bytes.Reader) (DevicePathNode, error) {
	name, err := ReadGUID(r)
	if err != nil {
		return nil, err
	}
	return &FirmwareVolumeDevicePathNode{Name: name}, nil
}

// RelOffsetRangeDevicePathNode corresponds to a relative offset range
// device path node.
type RelOffsetRangeDevicePathNode struct {
	Reserved       uint32
	StartingOffset uint64
	EndingOffset   uint64
}

func (n *RelOffsetRangeDevicePathNode) String() string {
	return fmt.Sprintf("Offset(0x%x,0x%x)", n.StartingOffset, n.EndingOffset)
}

func (n *RelOffsetRangeDevicePathNode) Write(w io.Writer) error {
	data := new(bytes.Buffer)
	binary.Write(data, binary.LittleEndian, n)
	return writeDevicePathNode(w, MediaDevicePath, mediaSubTypeRelativeOffsetRange, data.Bytes())
}

func decodeRelOffsetRangeDevicePathNode(r *bytes.Reader) (DevicePathNode, error) {
	var n RelOffsetRangeDevicePathNode
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// EndOfHardwareDevicePathNode is the terminal node of a device path.
// It carries no data; a decoded path retains it so that re-encoding
// reproduces the original bytes.
type EndOfHardwareDevicePathNode struct{}

func (n *EndOfHardwareDevicePathNode) String() string {
	return "End"
}

func (n *EndOfHardwareDevicePathNode) Write(w io.Writer) error {
	return writeDevicePathNode(w, EndDevicePath, endSubTypeEntire, nil)
}

func decodeEndOfHardwareDevicePathNode(r *bytes.Reader) (DevicePathNode, error) {
	// A terminal node has no data beyond its header.
	return &EndOfHardwareDevicePathNode{}, nil
}

type nodeDecoderFn func(r *bytes.Reader) (DevicePathNode, error)

type nodeDecoderEntry struct {
	label  string
	decode nodeDecoderFn
}

type nodeKey struct {
	t       DevicePathType
	subType DevicePathSubType
}

// nodeDecoders maps a node's (type, sub-type) pair to its decoder and
// a friendly label. The map is built once and never mutated, so it is
// safe for unsynchronized concurrent lookups. Pairs that are absent
// decode via the raw fallback, which must never fail.
var nodeDecoders = map[nodeKey]nodeDecoderEntry{
	{HardwareDevicePath, hwSubTypePCI}:    {"PCI", decodePCIDevicePathNode},
	{HardwareDevicePath, hwSubTypePCCard}: {"PCCARD", decodePCCardDevicePathNode},

	{ACPIDevicePath, acpiSubTypeHID}: {"ACPI HID", decodeACPIDevicePathNode},

	{MessagingDevicePath, msgSubTypeUSB}:           {"USB", decodeUSBDevicePathNode},
	{MessagingDevicePath, msgSubTypeMACAddr}:       {"MAC Address", decodeMACAddrDevicePathNode},
	{MessagingDevicePath, msgSubTypeIPv4}:          {"IPv4", decodeIPv4DevicePathNode},
	{MessagingDevicePath, msgSubTypeSATA}:          {"SATA", decodeSATADevicePathNode},
	{MessagingDevicePath, msgSubTypeNVMENamespace}: {"NVMe Namespace", decodeNVMENamespaceDevicePathNode},

	{MediaDevicePath, mediaSubTypeHardDrive}:           {"Hard Drive", decodeHardDriveDevicePathNode},
	{MediaDevicePath, mediaSubTypeFilePath}:            {"File Path", decodeFilePathDevicePathNode},
	{MediaDevicePath, mediaSubTypeFirmwareFile}:        {"PIWG Firmware File", decodeFirmwareFileDevicePathNode},
	{MediaDevicePath, mediaSubTypeFirmwareVolume}:      {"PIWG Firmware Volume", decodeFirmwareVolumeDevicePathNode},
	{MediaDevicePath, mediaSubTypeRelativeOffsetRange}: {"Relative Offset Range", decodeRelOffsetRangeDevicePathNode},

	{EndDevicePath, endSubTypeEntire}: {"End of Hardware", decodeEndOfHardwareDevicePathNode},
}

// NodeTypeLabel returns a friendly label for the supplied node type
// and sub-type pair, or "Unimplemented" for pairs this package has no
// specific decoder for.
func NodeTypeLabel(t DevicePathType, subType DevicePathSubType) string {
	if entry, ok := nodeDecoders[nodeKey{t, subType}]; ok {
		return entry.label
	}
	return "Unimplemented"
}

// ReadDevicePathNode decodes a single device path node from the
// supplied reader. It returns a *MalformedDevicePathNodeError if the
// node's declared length is shorter than the node header or larger
// than the remaining bytes. Node data that a specific decoder cannot
// interpret is returned as a *RawDevicePathNode instead of failing,
// preserving the bytes for re-encoding.
func ReadDevicePathNode(r *bytes.Reader) (DevicePathNode, error) {
	offset := r.Size() - int64(r.Len())

	var hdr struct {
		Type    uint8
		SubType uint8
		Length  uint16
	}
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, ioerr.EOFIsUnexpected(err)
	}

	if hdr.Length < devicePathNodeHdrSize {
		return nil, &MalformedDevicePathNodeError{
			Offset: offset,
			Err:    fmt.Errorf("declared length %d is shorter than the node header", hdr.Length)}
	}
	if int(hdr.Length)-devicePathNodeHdrSize > r.Len() {
		return nil, &MalformedDevicePathNodeError{Offset: offset, Err: io.ErrUnexpectedEOF}
	}

	data := make([]byte, int(hdr.Length)-devicePathNodeHdrSize)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, ioerr.EOFIsUnexpected(err)
	}

	entry, ok := nodeDecoders[nodeKey{DevicePathType(hdr.Type), DevicePathSubType(hdr.SubType)}]
	if !ok {
		return &RawDevicePathNode{
			Type:    DevicePathType(hdr.Type),
			SubType: DevicePathSubType(hdr.SubType),
			Data:    data}, nil
	}

	dataReader := bytes.NewReader(data)
	node, err := entry.decode(dataReader)
	if err != nil || dataReader.Len() > 0 {
		// Broken node contents, or bytes the typed decoder did not
		// consume, don't invalidate the rest of the path - keep the
		// bytes verbatim so that re-encoding reproduces the input.
		return &RawDevicePathNode{
			Type:    DevicePathType(hdr.Type),
			SubType: DevicePathSubType(hdr.SubType),
			Data:    data}, nil
	}
	return node, nil
}

// ReadDevicePath decodes a device path from the supplied buffer. The
// walk terminates when the buffer is exhausted or after an
// End-of-Hardware node is decoded, whichever comes first; trailing
// bytes after the terminal node are ignored. Any malformed node aborts
// the decode and no nodes are returned.
func ReadDevicePath(data []byte) (DevicePath, error) {
	r := bytes.NewReader(data)

	var path DevicePath
	for r.Len() > 0 {
		node, err := ReadDevicePathNode(r)
		if err != nil {
			return nil, err
		}
		path = append(path, node)

		if _, done := node.(*EndOfHardwareDevicePathNode); done {
			break
		}
	}

	return path, nil
}
