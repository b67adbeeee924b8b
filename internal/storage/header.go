// Package storage provides the page storage channel for the oodb index engine.
package storage

import (
	"encoding/binary"
	"errors"

	"github.com/cespare/xxhash/v2"
)

// Region header constants.
const (
	// HeaderSize is the number of bytes used at the start of a header slot.
	HeaderSize = 64

	// HeaderSlots is the number of alternating header slots (pages 0 and 1).
	HeaderSlots = 2

	// CurrentVersion is the current region format version.
	CurrentVersion uint16 = 1
)

// Magic identifies an oodb region. "ODB\x00" in bytes.
var Magic = [4]byte{'O', 'D', 'B', 0x00}

// Errors for header operations.
var (
	ErrInvalidMagic       = errors.New("invalid magic number: not an oodb region")
	ErrUnsupportedVersion = errors.New("unsupported region format version")
	ErrHeaderChecksum     = errors.New("region header checksum mismatch")
	ErrInvalidHeaderSize  = errors.New("invalid header size")
	ErrNoValidHeader      = errors.New("no valid region header")
)

// Roots holds the root page ids the engine persists in the region header.
type Roots struct {
	OIDIndex  PageID // unique index: object id -> location
	FreeSpace PageID // unique index: freed page id -> generation
	Catalog   PageID // unique index: field index id -> root page id
}

// Header is the durable state of a region after a flush.
// Layout:
//   - Bytes 0-3:   Magic ("ODB\x00")
//   - Bytes 4-5:   Version (uint16)
//   - Bytes 6-7:   Reserved
//   - Bytes 8-11:  PageSize (uint32)
//   - Bytes 12-15: Roots.OIDIndex
//   - Bytes 16-19: Roots.FreeSpace
//   - Bytes 20-23: Roots.Catalog
//   - Bytes 24-31: PageCount (uint64)
//   - Bytes 32-39: Generation (uint64)
//   - Bytes 40-47: TxID (uint64)
//   - Bytes 48-55: Reserved
//   - Bytes 56-59: Checksum (uint32)
//   - Bytes 60-63: Reserved
type Header struct {
	Magic      [4]byte
	Version    uint16
	PageSize   uint32
	Roots      Roots
	PageCount  uint64
	Generation uint64
	TxID       uint64
	Checksum   uint32
}

// NewHeader creates the header of an empty region.
func NewHeader(pageSize int) *Header {
	return &Header{
		Magic:     Magic,
		Version:   CurrentVersion,
		PageSize:  uint32(pageSize),
		PageCount: uint64(FirstDataPage),
	}
}

// SerializeTo writes the header into buf, computing the checksum.
func (h *Header) SerializeTo(buf []byte) error {
	if len(buf) < HeaderSize {
		return ErrInvalidHeaderSize
	}

	for i := 0; i < HeaderSize; i++ {
		buf[i] = 0
	}

	copy(buf[0:4], h.Magic[:])
	binary.LittleEndian.PutUint16(buf[4:6], h.Version)
	binary.LittleEndian.PutUint32(buf[8:12], h.PageSize)
	binary.LittleEndian.PutUint32(buf[12:16], uint32(h.Roots.OIDIndex))
	binary.LittleEndian.PutUint32(buf[16:20], uint32(h.Roots.FreeSpace))
	binary.LittleEndian.PutUint32(buf[20:24], uint32(h.Roots.Catalog))
	binary.LittleEndian.PutUint64(buf[24:32], h.PageCount)
	binary.LittleEndian.PutUint64(buf[32:40], h.Generation)
	binary.LittleEndian.PutUint64(buf[40:48], h.TxID)

	h.Checksum = headerChecksum(buf)
	binary.LittleEndian.PutUint32(buf[56:60], h.Checksum)

	return nil
}

// Deserialize reads the header from buf without validating it.
func (h *Header) Deserialize(buf []byte) error {
	if len(buf) < HeaderSize {
		return ErrInvalidHeaderSize
	}

	copy(h.Magic[:], buf[0:4])
	h.Version = binary.LittleEndian.Uint16(buf[4:6])
	h.PageSize = binary.LittleEndian.Uint32(buf[8:12])
	h.Roots.OIDIndex = PageID(binary.LittleEndian.Uint32(buf[12:16]))
	h.Roots.FreeSpace = PageID(binary.LittleEndian.Uint32(buf[16:20]))
	h.Roots.Catalog = PageID(binary.LittleEndian.Uint32(buf[20:24]))
	h.PageCount = binary.LittleEndian.Uint64(buf[24:32])
	h.Generation = binary.LittleEndian.Uint64(buf[32:40])
	h.TxID = binary.LittleEndian.Uint64(buf[40:48])
	h.Checksum = binary.LittleEndian.Uint32(buf[56:60])

	return nil
}

// DeserializeAndValidate reads the header and checks magic, version and checksum.
func (h *Header) DeserializeAndValidate(buf []byte) error {
	if err := h.Deserialize(buf); err != nil {
		return err
	}
	if h.Magic != Magic {
		return ErrInvalidMagic
	}
	if h.Version == 0 || h.Version > CurrentVersion {
		return ErrUnsupportedVersion
	}
	if h.Checksum != headerChecksum(buf) {
		return ErrHeaderChecksum
	}
	return nil
}

// headerChecksum covers bytes 0-55.
func headerChecksum(buf []byte) uint32 {
	return uint32(xxhash.Sum64(buf[:56]))
}

// headerSlot returns the slot a header of the given generation is written to.
func headerSlot(generation uint64) int {
	return int(generation % HeaderSlots)
}

// IsRegion reports whether buf starts with the oodb magic number.
func IsRegion(buf []byte) bool {
	if len(buf) < 4 {
		return false
	}
	var magic [4]byte
	copy(magic[:], buf[0:4])
	return magic == Magic
}
