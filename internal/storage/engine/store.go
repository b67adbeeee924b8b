package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/KilimcininKorOglu/oodb/internal/logging"
	"github.com/KilimcininKorOglu/oodb/internal/storage"
	"github.com/KilimcininKorOglu/oodb/internal/storage/btree"
	"github.com/KilimcininKorOglu/oodb/internal/storage/fsm"
	"github.com/KilimcininKorOglu/oodb/internal/storage/index"
)

// DataFileName is the name of the region file inside a store directory.
const DataFileName = "data.odb"

// Store errors.
var (
	ErrStoreClosed  = errors.New("store is closed")
	ErrUnknownIndex = errors.New("unknown field index")
	ErrIndexExists  = errors.New("field index already exists")
	ErrPageShared   = errors.New("page referenced twice")
)

// Options configures a Store.
type Options struct {
	// Storage configures the channel.
	Storage storage.Options

	// CreateIfNotExists creates the store directory when missing.
	// Default: true.
	CreateIfNotExists bool

	// Logger receives store, channel and free-space logs.
	// Default: no logging.
	Logger logging.Logger
}

// DefaultOptions returns the default store options.
func DefaultOptions() Options {
	return Options{
		Storage:           storage.DefaultOptions(),
		CreateIfNotExists: true,
	}
}

// Store is an oodb region with its indices. The OID index and the catalog
// of field indices are unique trees; each field index is a non-unique tree.
// Their roots, with the free-space root, are published by Commit.
//
// A Store serializes its own calls, but trees and iterators handed out are
// not safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	ch     *storage.Channel
	fsm    *fsm.Manager
	oids   *index.OIDIndex
	logger logging.Logger
	path   string

	// catalog maps a field index id to its kind and root page.
	catalog *btree.Tree
	fields  map[uint32]*index.FieldIndex

	closed bool
}

// Open opens or creates the store in directory path.
func Open(path string, opts Options) (*Store, error) {
	if opts.CreateIfNotExists && !opts.Storage.ReadOnly {
		if err := os.MkdirAll(path, 0755); err != nil {
			return nil, err
		}
	}

	logger := logging.OrNop(opts.Logger)
	ch, err := storage.OpenFile(filepath.Join(path, DataFileName), opts.Storage, logger)
	if err != nil {
		return nil, err
	}

	s, err := newStore(ch, logger)
	if err != nil {
		ch.Close()
		return nil, err
	}
	s.path = path
	return s, nil
}

// OpenRegion opens a store over region, initializing it when empty.
func OpenRegion(region storage.Region, opts Options) (*Store, error) {
	logger := logging.OrNop(opts.Logger)
	ch, err := storage.NewChannel(region, opts.Storage, logger)
	if err != nil {
		return nil, err
	}

	s, err := newStore(ch, logger)
	if err != nil {
		ch.Close()
		return nil, err
	}
	return s, nil
}

func newStore(ch *storage.Channel, logger logging.Logger) (*Store, error) {
	s := &Store{
		ch:     ch,
		logger: logger.WithComponent("store"),
		fields: make(map[uint32]*index.FieldIndex),
	}
	roots := ch.Header().Roots
	treeOpts := btree.WithLogger(logger.WithComponent("btree"))

	var err error
	if s.fsm, err = fsm.Open(ch, roots.FreeSpace, fsm.WithLogger(logger)); err != nil {
		return nil, err
	}

	if roots.OIDIndex == storage.InvalidPageID {
		if s.oids, err = index.NewOIDIndex(ch, treeOpts); err != nil {
			return nil, err
		}
		if s.catalog, err = btree.New(ch, btree.Unique, treeOpts); err != nil {
			return nil, err
		}
	} else {
		s.oids = index.LoadOIDIndex(ch, roots.OIDIndex, treeOpts)
		s.catalog = btree.Load(ch, btree.Unique, roots.Catalog, treeOpts)
	}

	s.logger.Info("store opened",
		"page_size", ch.PageSize(),
		"pages", ch.PageCount(),
		"generation", ch.Generation(),
		"tx", ch.TxID())
	return s, nil
}

// packCatalog stores a field index's kind above its root page id.
func packCatalog(kind index.Kind, root storage.PageID) int64 {
	return int64(uint64(kind)<<32 | uint64(root))
}

func unpackCatalog(v int64) (index.Kind, storage.PageID) {
	u := uint64(v)
	return index.Kind(u >> 32), storage.PageID(uint32(u))
}

func (s *Store) checkOpen() error {
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

// Begin starts transaction txID. Iterators opened under another
// transaction fail on their next step.
func (s *Store) Begin(txID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}
	s.ch.StartWriting(txID)
	return nil
}

// OIDIndex returns the object id index.
func (s *Store) OIDIndex() *index.OIDIndex {
	return s.oids
}

// FieldIndex returns the field index with the given id.
func (s *Store) FieldIndex(id uint32) (*index.FieldIndex, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return s.fieldIndex(id)
}

func (s *Store) fieldIndex(id uint32) (*index.FieldIndex, error) {
	if x, ok := s.fields[id]; ok {
		return x, nil
	}

	v, err := s.catalog.FindValue(int64(id))
	if errors.Is(err, btree.ErrEntryNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownIndex, id)
	}
	if err != nil {
		return nil, err
	}

	kind, root := unpackCatalog(v)
	x := index.LoadFieldIndex(s.ch, id, kind, root, btree.WithLogger(s.logger.WithComponent("btree")))
	s.fields[id] = x
	return x, nil
}

// CreateFieldIndex creates an empty field index. It is recorded in the
// catalog on the next Commit.
func (s *Store) CreateFieldIndex(id uint32, kind index.Kind) (*index.FieldIndex, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if _, err := s.fieldIndex(id); err == nil {
		return nil, fmt.Errorf("%w: %d", ErrIndexExists, id)
	} else if !errors.Is(err, ErrUnknownIndex) {
		return nil, err
	}

	x, err := index.NewFieldIndex(s.ch, id, kind, btree.WithLogger(s.logger.WithComponent("btree")))
	if err != nil {
		return nil, err
	}
	s.fields[id] = x
	s.logger.Info("field index created", "index", id, "kind", kind.String())
	return x, nil
}

// DropFieldIndex frees the pages of a field index and removes it from the
// catalog.
func (s *Store) DropFieldIndex(id uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}
	x, err := s.fieldIndex(id)
	if err != nil {
		return err
	}

	if err := x.Tree().Drop(); err != nil {
		return err
	}
	if _, err := s.catalog.Remove(int64(id)); err != nil && !errors.Is(err, btree.ErrEntryNotFound) {
		return err
	}
	delete(s.fields, id)
	s.logger.Info("field index dropped", "index", id)
	return nil
}

// FieldIndexIDs returns the ids of all field indices, committed or not.
func (s *Store) FieldIndexIDs() ([]uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return s.fieldIndexIDs()
}

func (s *Store) fieldIndexIDs() ([]uint32, error) {
	seen := make(map[uint32]struct{}, len(s.fields))
	for id := range s.fields {
		seen[id] = struct{}{}
	}

	entries, err := s.catalog.Iterator(0, int64(^uint32(0))).Collect()
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		seen[uint32(e.Key)] = struct{}{}
	}

	ids := make([]uint32, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Commit writes every tree and flushes the channel. Field indices go first
// so the catalog records their roots, then the catalog, the OID index and
// finally the free-space tree, which absorbs the pages the others freed.
// It returns the byte offset of the header written.
func (s *Store) Commit() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return 0, err
	}

	ids := make([]uint32, 0, len(s.fields))
	for id := range s.fields {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		x := s.fields[id]
		root, err := x.Write()
		if err != nil {
			return 0, fmt.Errorf("failed to write field index %d: %w", id, err)
		}
		if err := s.catalog.Insert(int64(id), packCatalog(x.Kind(), root)); err != nil {
			return 0, err
		}
	}

	var roots storage.Roots
	var err error
	if roots.Catalog, err = s.catalog.Write(); err != nil {
		return 0, fmt.Errorf("failed to write catalog: %w", err)
	}
	if roots.OIDIndex, err = s.oids.Write(); err != nil {
		return 0, fmt.Errorf("failed to write oid index: %w", err)
	}
	if roots.FreeSpace, err = s.fsm.Write(); err != nil {
		return 0, fmt.Errorf("failed to write free space: %w", err)
	}

	offset, err := s.ch.Flush(roots)
	if err != nil {
		return 0, err
	}

	s.logger.Info("commit",
		"generation", s.ch.Generation()-1,
		"tx", s.ch.TxID(),
		"pages", s.ch.PageCount(),
		"free_pages", s.fsm.Len())
	return offset, nil
}

// Close closes the store. Changes since the last Commit are discarded.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	err := s.ch.Close()
	s.logger.Info("store closed", "path", s.path)
	return err
}

// Channel returns the page channel of the store.
func (s *Store) Channel() *storage.Channel {
	return s.ch
}

// FreeSpace returns the free-space manager of the store.
func (s *Store) FreeSpace() *fsm.Manager {
	return s.fsm
}
