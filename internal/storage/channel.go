// Package storage provides the page storage channel for the oodb index engine.
package storage

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"sync"

	"github.com/KilimcininKorOglu/oodb/internal/logging"
)

// Errors for channel operations.
var (
	ErrInvalidTransactionContext = errors.New("invalid transaction context")
	ErrPageSizeMismatch          = errors.New("page size does not match region header")
	ErrPageNotWritable           = errors.New("page is not writable in the current generation")
	ErrClosed                    = errors.New("channel is closed")
	ErrReadOnly                  = errors.New("channel is read-only")
)

// FreeSpace tracks pages released by earlier generations. The channel asks it
// for a page before extending the region and hands it every page that was
// flushed before being freed.
type FreeSpace interface {
	// Allocate returns the oldest freed page whose reuse is allowed once no
	// reader can observe generations before limit.
	Allocate(limit uint64) (PageID, bool)
	// Free records a page released during the given generation.
	Free(id PageID, generation uint64)
}

// Channel is the page storage channel: fixed-size pages over a Region, with
// writes buffered per generation and published atomically by Flush.
//
// A page allocated in the current generation is writable in place. Any other
// page is immutable; callers clone it to a freshly allocated page and free
// the original. A Channel is meant for a single writer; its mutex protects
// internal bookkeeping, not the consistency of callers' multi-page updates.
type Channel struct {
	mu     sync.Mutex
	region Region
	opts   Options
	logger logging.Logger
	cache  *pageCache

	header     Header
	pageCount  uint64
	generation uint64
	txID       uint64

	fresh    map[PageID]struct{}
	dirty    map[PageID][]byte
	reusable []PageID
	fs       FreeSpace
	pins     map[uint64]int
	closed   bool

	pagesRead    uint64
	pagesWritten uint64
	cacheHits    uint64
	allocated    uint64
	extended     uint64
	flushes      uint64
}

// NewChannel opens a channel over region. An empty region is initialized with
// two header slots; otherwise the newest valid header is loaded and its page
// size must equal opts.PageSize.
func NewChannel(region Region, opts Options, logger logging.Logger) (*Channel, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	ch := &Channel{
		region: region,
		opts:   opts,
		logger: logging.OrNop(logger).WithComponent("channel"),
		fresh:  make(map[PageID]struct{}),
		dirty:  make(map[PageID][]byte),
		pins:   make(map[uint64]int),
	}

	size, err := region.Size()
	if err != nil {
		return nil, err
	}

	if size == 0 {
		if opts.ReadOnly {
			return nil, ErrNoValidHeader
		}
		if err := ch.initRegion(); err != nil {
			return nil, err
		}
	} else if err := ch.loadRegion(); err != nil {
		return nil, err
	}

	cache, err := newPageCache(opts.CacheSize, opts.PageSize)
	if err != nil {
		return nil, err
	}
	ch.cache = cache

	ch.pageCount = ch.header.PageCount
	ch.generation = ch.header.Generation + 1
	ch.txID = ch.header.TxID

	ch.logger.Debug("channel opened",
		"page_size", opts.PageSize,
		"page_count", ch.pageCount,
		"generation", ch.generation)

	return ch, nil
}

// OpenFile opens a file-backed channel at path, creating the file if needed.
// Read-only opens with opts.Mmap read through a memory mapping.
func OpenFile(path string, opts Options, logger logging.Logger) (*Channel, error) {
	var region Region
	var err error
	if opts.ReadOnly && opts.Mmap {
		region, err = OpenMmapRegion(path)
	} else {
		region, err = OpenFileRegion(path, opts.ReadOnly)
	}
	if err != nil {
		return nil, err
	}

	ch, err := NewChannel(region, opts, logger)
	if err != nil {
		region.Close()
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return ch, nil
}

// initRegion writes generation 0 into both header slots.
func (ch *Channel) initRegion() error {
	ch.header = *NewHeader(ch.opts.PageSize)

	buf := make([]byte, ch.opts.PageSize)
	if err := ch.header.SerializeTo(buf); err != nil {
		return err
	}
	for slot := 0; slot < HeaderSlots; slot++ {
		if _, err := ch.region.WriteAt(buf, int64(slot)*int64(ch.opts.PageSize)); err != nil {
			return fmt.Errorf("failed to initialize header slot %d: %w", slot, err)
		}
	}
	return ch.region.Sync()
}

// loadRegion selects the valid header slot with the highest generation.
// Slot 1 is located with the page size recorded in slot 0 when slot 0 is
// readable, and with the configured page size otherwise.
func (ch *Channel) loadRegion() error {
	var slots [HeaderSlots]Header
	var valid [HeaderSlots]bool

	stride := int64(ch.opts.PageSize)
	buf := make([]byte, HeaderSize)
	for slot := 0; slot < HeaderSlots; slot++ {
		clear(buf)
		if _, err := ch.region.ReadAt(buf, int64(slot)*stride); err != nil && err != io.EOF {
			return fmt.Errorf("failed to read header slot %d: %w", slot, err)
		}
		if err := slots[slot].DeserializeAndValidate(buf); err != nil {
			ch.logger.Debug("header slot rejected", "slot", slot, "error", err)
			continue
		}
		valid[slot] = true
		if slot == 0 {
			stride = int64(slots[0].PageSize)
		}
	}

	switch {
	case valid[0] && valid[1]:
		ch.header = slots[0]
		if slots[1].Generation > slots[0].Generation {
			ch.header = slots[1]
		}
	case valid[0]:
		ch.header = slots[0]
	case valid[1]:
		ch.header = slots[1]
	default:
		return ErrNoValidHeader
	}

	if int(ch.header.PageSize) != ch.opts.PageSize {
		return fmt.Errorf("%w: region has %d, opened with %d",
			ErrPageSizeMismatch, ch.header.PageSize, ch.opts.PageSize)
	}
	return nil
}

// SetFreeSpace installs the free-space manager consulted by Allocate and Free.
func (ch *Channel) SetFreeSpace(fs FreeSpace) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.fs = fs
}

// Allocate returns a page id writable in the current generation: a page freed
// earlier in this generation, else an eligible page from the free-space
// manager, else a new page at the end of the region.
func (ch *Channel) Allocate() (PageID, error) {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if err := ch.checkWritable(); err != nil {
		return InvalidPageID, err
	}

	var id PageID
	if n := len(ch.reusable); n > 0 {
		id = ch.reusable[n-1]
		ch.reusable = ch.reusable[:n-1]
	} else if reused, ok := ch.allocateFree(); ok {
		id = reused
	} else {
		if ch.pageCount >= math.MaxUint32 {
			return InvalidPageID, fmt.Errorf("%w: region holds %d pages", ErrCapacityExceeded, ch.pageCount)
		}
		id = PageID(ch.pageCount)
		ch.pageCount++
		ch.extended++
	}

	ch.fresh[id] = struct{}{}
	ch.allocated++
	return id, nil
}

func (ch *Channel) allocateFree() (PageID, bool) {
	if ch.fs == nil {
		return InvalidPageID, false
	}
	return ch.fs.Allocate(ch.oldestPinned())
}

// Free releases a page. A page allocated in the current generation was never
// published and is reusable at once; any other page goes to the free-space
// manager tagged with the current generation.
func (ch *Channel) Free(id PageID) error {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if err := ch.checkWritable(); err != nil {
		return err
	}
	if err := ch.checkID(id); err != nil {
		return err
	}

	if _, ok := ch.fresh[id]; ok {
		delete(ch.fresh, id)
		delete(ch.dirty, id)
		ch.reusable = append(ch.reusable, id)
		return nil
	}

	if ch.fs == nil {
		ch.logger.Debug("page dropped without free-space manager", "page", id)
		return nil
	}
	ch.fs.Free(id, ch.generation)
	return nil
}

// DrainReusable removes and returns the pages allocated and freed within the
// current generation, so a free-space manager can persist them before a flush.
func (ch *Channel) DrainReusable() []PageID {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	ids := ch.reusable
	ch.reusable = nil
	return ids
}

// IsWritable reports whether id was allocated in the current generation.
func (ch *Channel) IsWritable(id PageID) bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	_, ok := ch.fresh[id]
	return ok
}

// ReadPage returns the content of a page: the buffered write of the current
// generation when there is one, otherwise the flushed content.
func (ch *Channel) ReadPage(id PageID) (PageView, error) {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if ch.closed {
		return PageView{}, ErrClosed
	}
	if err := ch.checkID(id); err != nil {
		return PageView{}, err
	}

	if buf, ok := ch.dirty[id]; ok {
		return PageView{id: id, data: buf}, nil
	}

	if buf, ok := ch.cache.get(id); ok {
		ch.cacheHits++
		return PageView{id: id, data: buf}, nil
	}

	buf := make([]byte, ch.opts.PageSize)
	if _, err := ch.region.ReadAt(buf, ch.offset(id)); err != nil {
		if err == io.EOF {
			return PageView{}, fmt.Errorf("%w: page %d beyond end of region", ErrCorruptPage, id)
		}
		return PageView{}, fmt.Errorf("failed to read page %d: %w", id, err)
	}
	ch.pagesRead++

	if err := validatePage(buf, ch.opts.Checksums); err != nil {
		return PageView{}, fmt.Errorf("%w: page %d", err, id)
	}

	ch.cache.put(id, buf)
	return PageView{id: id, data: buf}, nil
}

// WritePage buffers new content for a writable page. The bytes are copied;
// I/O happens on Flush.
func (ch *Channel) WritePage(id PageID, buf []byte) error {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if err := ch.checkWritable(); err != nil {
		return err
	}
	if len(buf) != ch.opts.PageSize {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidPageSize, len(buf), ch.opts.PageSize)
	}
	if _, ok := ch.fresh[id]; !ok {
		return fmt.Errorf("%w: page %d", ErrPageNotWritable, id)
	}

	page, ok := ch.dirty[id]
	if !ok {
		page = make([]byte, ch.opts.PageSize)
		ch.dirty[id] = page
	}
	copy(page, buf)
	return nil
}

// Flush publishes the current generation: dirty pages are stamped and written
// in page order, then the header slot of this generation records roots.
// Returns the byte offset of the header written, the handle of the new
// durable state.
func (ch *Channel) Flush(roots Roots) (int64, error) {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if err := ch.checkWritable(); err != nil {
		return 0, err
	}

	ids := make([]PageID, 0, len(ch.dirty))
	for id := range ch.dirty {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		buf := ch.dirty[id]
		stampPage(buf, ch.generation, ch.opts.Checksums)
		if _, err := ch.region.WriteAt(buf, ch.offset(id)); err != nil {
			return 0, fmt.Errorf("failed to write page %d: %w", id, err)
		}
		ch.cache.invalidate(id)
	}
	ch.cache.sync()

	if ch.opts.SyncOnWrite && len(ids) > 0 {
		if err := ch.region.Sync(); err != nil {
			return 0, fmt.Errorf("failed to sync pages: %w", err)
		}
	}

	header := ch.header
	header.Roots = roots
	header.PageCount = ch.pageCount
	header.Generation = ch.generation
	header.TxID = ch.txID

	buf := make([]byte, HeaderSize)
	if err := header.SerializeTo(buf); err != nil {
		return 0, err
	}
	offset := int64(headerSlot(ch.generation)) * int64(ch.opts.PageSize)
	if _, err := ch.region.WriteAt(buf, offset); err != nil {
		return 0, fmt.Errorf("failed to write header: %w", err)
	}
	if ch.opts.SyncOnWrite {
		if err := ch.region.Sync(); err != nil {
			return 0, fmt.Errorf("failed to sync header: %w", err)
		}
	}

	ch.logger.Debug("flush",
		"generation", ch.generation,
		"pages", len(ids),
		"page_count", ch.pageCount,
		"tx", ch.txID)

	ch.header = header
	ch.pagesWritten += uint64(len(ids))
	ch.flushes++
	ch.generation++
	ch.fresh = make(map[PageID]struct{})
	ch.dirty = make(map[PageID][]byte)

	return offset, nil
}

// StartWriting begins a new write context. Iterators created under a
// different transaction id fail with ErrInvalidTransactionContext.
func (ch *Channel) StartWriting(txID uint64) {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if ch.txID != txID {
		ch.logger.Debug("start writing", "tx", txID, "previous_tx", ch.txID)
	}
	ch.txID = txID
}

// TxID returns the current transaction id.
func (ch *Channel) TxID() uint64 {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.txID
}

// Generation returns the current (unflushed) write generation.
func (ch *Channel) Generation() uint64 {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.generation
}

// PageSize returns the page size in bytes.
func (ch *Channel) PageSize() int {
	return ch.opts.PageSize
}

// PageCount returns the number of pages in the region, header pages included.
func (ch *Channel) PageCount() uint64 {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.pageCount
}

// Options returns the validated options the channel was opened with.
func (ch *Channel) Options() Options {
	return ch.opts
}

// Header returns a copy of the durable header of the last flush.
func (ch *Channel) Header() Header {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.header
}

// Close releases the cache and the region. Unflushed pages are discarded.
func (ch *Channel) Close() error {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if ch.closed {
		return nil
	}
	ch.closed = true

	if n := len(ch.dirty); n > 0 {
		ch.logger.Warn("closing with unflushed pages", "pages", n, "generation", ch.generation)
	}
	ch.cache.close()
	return ch.region.Close()
}

func (ch *Channel) checkWritable() error {
	if ch.closed {
		return ErrClosed
	}
	if ch.opts.ReadOnly {
		return ErrReadOnly
	}
	return nil
}

func (ch *Channel) checkID(id PageID) error {
	if id < FirstDataPage || uint64(id) >= ch.pageCount {
		return fmt.Errorf("%w: page id %d outside [%d, %d)", ErrCorruptPage, id, FirstDataPage, ch.pageCount)
	}
	return nil
}

func (ch *Channel) offset(id PageID) int64 {
	return int64(id) * int64(ch.opts.PageSize)
}
