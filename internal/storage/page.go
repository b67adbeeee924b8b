// Package storage provides the page storage channel for the oodb index engine.
package storage

import (
	"encoding/binary"
	"errors"

	"github.com/cespare/xxhash/v2"
)

// PageHeaderSize is the size of the header at the start of every index page.
const PageHeaderSize = 16

// PageID identifies a page within a region. Pages 0 and 1 hold the
// region header slots and are never handed out by the channel.
type PageID uint32

// InvalidPageID is the null page reference.
const InvalidPageID PageID = 0

// FirstDataPage is the lowest page id that can hold index content.
const FirstDataPage PageID = 2

// PageKind discriminates inner pages from leaf pages.
type PageKind uint8

const (
	// PageKindNone marks a page that has never been written.
	PageKindNone PageKind = iota
	// PageKindInner holds separator keys and child page ids.
	PageKindInner
	// PageKindLeaf holds key/value entries.
	PageKindLeaf
)

// String returns the string representation of a PageKind.
func (k PageKind) String() string {
	switch k {
	case PageKindNone:
		return "None"
	case PageKindInner:
		return "Inner"
	case PageKindLeaf:
		return "Leaf"
	default:
		return "Unknown"
	}
}

// PageFlag carries per-page layout flags.
type PageFlag uint8

const (
	// PageFlagPairs marks inner pages whose separators are (key, value) pairs.
	PageFlagPairs PageFlag = 1 << iota
)

// Errors for page operations.
var (
	ErrCorruptPage      = errors.New("corrupt page")
	ErrInvalidPageSize  = errors.New("invalid page size")
	ErrCapacityExceeded = errors.New("page capacity exceeded")
)

// Page header layout:
//   - Byte 0:      Kind
//   - Byte 1:      Flags
//   - Bytes 2-3:   Count (uint16)
//   - Bytes 4-7:   Checksum (uint32, low half of xxhash64)
//   - Bytes 8-15:  Generation (uint64)
const (
	offKind       = 0
	offFlags      = 1
	offCount      = 2
	offChecksum   = 4
	offGeneration = 8
)

// PutPageHeader writes kind, flags and count into the first bytes of buf.
// Checksum and generation are stamped by the channel on flush.
func PutPageHeader(buf []byte, kind PageKind, flags PageFlag, count int) {
	buf[offKind] = byte(kind)
	buf[offFlags] = byte(flags)
	binary.LittleEndian.PutUint16(buf[offCount:], uint16(count))
}

// PageView is a read-only view over the bytes of one page.
// Callers must not modify the returned slices.
type PageView struct {
	id   PageID
	data []byte
}

// ID returns the page id.
func (v PageView) ID() PageID {
	return v.id
}

// Kind returns the page kind.
func (v PageView) Kind() PageKind {
	return PageKind(v.data[offKind])
}

// Flags returns the page flags.
func (v PageView) Flags() PageFlag {
	return PageFlag(v.data[offFlags])
}

// Count returns the number of entries or separators on the page.
func (v PageView) Count() int {
	return int(binary.LittleEndian.Uint16(v.data[offCount:]))
}

// Generation returns the write generation that produced the page.
func (v PageView) Generation() uint64 {
	return binary.LittleEndian.Uint64(v.data[offGeneration:])
}

// Body returns the page content after the header.
func (v PageView) Body() []byte {
	return v.data[PageHeaderSize:]
}

// Bytes returns the whole page.
func (v PageView) Bytes() []byte {
	return v.data
}

// pageChecksum hashes the page with the checksum field treated as zero.
func pageChecksum(buf []byte) uint32 {
	d := xxhash.New()
	d.Write(buf[:offChecksum])
	d.Write([]byte{0, 0, 0, 0})
	d.Write(buf[offChecksum+4:])
	return uint32(d.Sum64())
}

// stampPage writes the generation and checksum of a page about to be flushed.
func stampPage(buf []byte, generation uint64, checksums bool) {
	binary.LittleEndian.PutUint64(buf[offGeneration:], generation)
	binary.LittleEndian.PutUint32(buf[offChecksum:], 0)
	if checksums {
		binary.LittleEndian.PutUint32(buf[offChecksum:], pageChecksum(buf))
	}
}

// validatePage checks the structural header fields and, when enabled, the checksum.
func validatePage(buf []byte, checksums bool) error {
	kind := PageKind(buf[offKind])
	if kind != PageKindInner && kind != PageKindLeaf {
		return ErrCorruptPage
	}
	if checksums {
		if binary.LittleEndian.Uint32(buf[offChecksum:]) != pageChecksum(buf) {
			return ErrCorruptPage
		}
	}
	return nil
}
