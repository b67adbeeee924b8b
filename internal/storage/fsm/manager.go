// Package fsm provides the free-space manager of oodb.
//
// Freed pages are recorded in a unique B+-tree mapping page id to the
// generation that freed it, stored in the same channel as the trees whose
// pages it tracks. The manager keeps a FIFO queue of the records in memory
// so that the channel can allocate without reading pages; changes reach the
// tree on Write.
package fsm

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/KilimcininKorOglu/oodb/internal/logging"
	"github.com/KilimcininKorOglu/oodb/internal/storage"
	"github.com/KilimcininKorOglu/oodb/internal/storage/btree"
)

// maxRounds bounds the write loop. Each round applies the page churn caused
// by the previous one; a handful of rounds is typical.
const maxRounds = 64

// ErrNotConverged is returned when writing the free-space tree keeps
// allocating or freeing pages of its own.
var ErrNotConverged = errors.New("free-space tree did not converge")

// record is a freed page and the generation that freed it.
type record struct {
	id         storage.PageID
	generation uint64
}

func (r record) before(o record) bool {
	if r.generation != o.generation {
		return r.generation < o.generation
	}
	return r.id < o.id
}

// Manager tracks freed pages and hands them back to the channel once no
// snapshot can still read them. It implements storage.FreeSpace.
type Manager struct {
	ch     *storage.Channel
	tree   *btree.Tree
	logger logging.Logger
	delay  uint64

	mu sync.Mutex
	// queue holds every free page ordered by (generation, id).
	queue []record
	// added holds pages freed since the last Write; removed holds pages
	// allocated since the last Write that are still in the tree.
	added   map[storage.PageID]uint64
	removed map[storage.PageID]struct{}

	writes     uint64
	lastRounds int
	allocated  uint64
	freed      uint64
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger of a manager.
func WithLogger(l logging.Logger) Option {
	return func(m *Manager) {
		m.logger = logging.OrNop(l).WithComponent("fsm")
	}
}

// Open loads the free-space tree rooted at root, rebuilds the FIFO queue
// from its records and installs the manager on ch. An invalid root opens an
// empty manager.
func Open(ch *storage.Channel, root storage.PageID, opts ...Option) (*Manager, error) {
	m := &Manager{
		ch:      ch,
		logger:  logging.NewNop(),
		delay:   ch.Options().ReuseDelay,
		added:   make(map[storage.PageID]uint64),
		removed: make(map[storage.PageID]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	// The root page of a new tree is allocated before the manager is
	// installed so that Write never has to allocate after its last round.
	if root == storage.InvalidPageID && !ch.Options().ReadOnly {
		tree, err := btree.New(ch, btree.Unique, btree.WithLogger(m.logger))
		if err != nil {
			return nil, err
		}
		m.tree = tree
	} else {
		m.tree = btree.Load(ch, btree.Unique, root, btree.WithLogger(m.logger))
	}

	entries, err := m.tree.Iterator(0, math.MaxInt64).Collect()
	if err != nil {
		return nil, fmt.Errorf("failed to load free space: %w", err)
	}
	m.queue = make([]record, 0, len(entries))
	for _, e := range entries {
		m.queue = append(m.queue, record{id: storage.PageID(e.Key), generation: uint64(e.Value)})
	}
	sort.Slice(m.queue, func(i, j int) bool { return m.queue[i].before(m.queue[j]) })

	ch.SetFreeSpace(m)
	m.logger.Debug("free space loaded", "root", root, "pages", len(m.queue))
	return m, nil
}

// Allocate pops the oldest freed page if it was freed at least the reuse
// delay before limit. Called by the channel with its lock held; it must not
// call back into the channel.
func (m *Manager) Allocate(limit uint64) (storage.PageID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.queue) == 0 || !m.eligible(m.queue[0], limit) {
		return storage.InvalidPageID, false
	}
	r := m.queue[0]
	m.queue = m.queue[1:]

	if _, ok := m.added[r.id]; ok {
		delete(m.added, r.id)
	} else {
		m.removed[r.id] = struct{}{}
	}
	m.allocated++
	return r.id, true
}

// Free records a page freed during generation. Generation 0 marks pages that
// were never published and are reusable at once.
func (m *Manager) Free(id storage.PageID, generation uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := record{id: id, generation: generation}
	i := sort.Search(len(m.queue), func(i int) bool { return r.before(m.queue[i]) })
	m.queue = append(m.queue, record{})
	copy(m.queue[i+1:], m.queue[i:])
	m.queue[i] = r

	m.added[id] = generation
	m.freed++
}

func (m *Manager) eligible(r record, limit uint64) bool {
	return r.generation+m.delay <= limit
}

// Write applies the changes since the last Write to the free-space tree and
// returns its root. Updating the tree allocates and frees pages itself, so
// Write repeats until a round leaves nothing pending. It must run after
// every other tree of the channel has been written.
func (m *Manager) Write() (storage.PageID, error) {
	rounds := 0
	for {
		rounds++
		if rounds > maxRounds {
			return storage.InvalidPageID, fmt.Errorf("%w after %d rounds", ErrNotConverged, maxRounds)
		}

		for _, id := range m.ch.DrainReusable() {
			m.Free(id, 0)
		}
		added, removed := m.takePending()
		if len(added) == 0 && len(removed) == 0 {
			break
		}
		if err := m.apply(added, removed); err != nil {
			return storage.InvalidPageID, err
		}
	}

	root, err := m.tree.Write()
	if err != nil {
		return storage.InvalidPageID, err
	}

	m.mu.Lock()
	m.writes++
	m.lastRounds = rounds
	pages := len(m.queue)
	m.mu.Unlock()

	m.logger.Debug("free space written", "root", root, "pages", pages, "rounds", rounds)
	return root, nil
}

// takePending moves the pending changes out, sorted by page id.
func (m *Manager) takePending() ([]record, []storage.PageID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	added := make([]record, 0, len(m.added))
	for id, gen := range m.added {
		added = append(added, record{id: id, generation: gen})
	}
	removed := make([]storage.PageID, 0, len(m.removed))
	for id := range m.removed {
		removed = append(removed, id)
	}
	clear(m.added)
	clear(m.removed)

	sort.Slice(added, func(i, j int) bool { return added[i].id < added[j].id })
	sort.Slice(removed, func(i, j int) bool { return removed[i] < removed[j] })
	return added, removed
}

// apply runs without m.mu: tree updates call back into Allocate and Free.
func (m *Manager) apply(added []record, removed []storage.PageID) error {
	for _, id := range removed {
		if _, err := m.tree.Remove(int64(id)); err != nil {
			return fmt.Errorf("failed to remove page %d from free space: %w", id, err)
		}
	}
	for _, r := range added {
		if err := m.tree.Insert(int64(r.id), int64(r.generation)); err != nil {
			return fmt.Errorf("failed to record free page %d: %w", r.id, err)
		}
	}
	return nil
}

// Root returns the root page id of the free-space tree.
func (m *Manager) Root() storage.PageID {
	return m.tree.Root()
}

// Tree returns the backing tree.
func (m *Manager) Tree() *btree.Tree {
	return m.tree
}

// Len returns the number of free pages.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Pages returns the ids of the free pages, oldest first.
func (m *Manager) Pages() []storage.PageID {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]storage.PageID, len(m.queue))
	for i, r := range m.queue {
		ids[i] = r.id
	}
	return ids
}

// Eligible returns how many free pages the channel could reuse now.
func (m *Manager) Eligible() int {
	limit := m.ch.OldestPinned()

	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, r := range m.queue {
		if !m.eligible(r, limit) {
			break
		}
		n++
	}
	return n
}

// Stats holds free-space statistics.
type Stats struct {
	Root       storage.PageID
	FreePages  int
	Eligible   int
	Pending    int
	ReuseDelay uint64
	Allocated  uint64
	Freed      uint64
	Writes     uint64
	LastRounds int
}

// Stats returns a snapshot of the manager's statistics.
func (m *Manager) Stats() Stats {
	eligible := m.Eligible()

	m.mu.Lock()
	defer m.mu.Unlock()

	return Stats{
		Root:       m.tree.Root(),
		FreePages:  len(m.queue),
		Eligible:   eligible,
		Pending:    len(m.added) + len(m.removed),
		ReuseDelay: m.delay,
		Allocated:  m.allocated,
		Freed:      m.freed,
		Writes:     m.writes,
		LastRounds: m.lastRounds,
	}
}
