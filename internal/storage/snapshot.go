// Package storage provides the page storage channel for the oodb index engine.
package storage

// Snapshot pins a write generation of a channel. While a snapshot is live,
// pages freed in that generation or later are not handed out again, so
// readers of the pinned state never see a page reused under them.
type Snapshot struct {
	ch         *Channel
	generation uint64
	txID       uint64
	released   bool
}

// Generation returns the pinned generation.
func (s *Snapshot) Generation() uint64 {
	return s.generation
}

// TxID returns the transaction id active when the snapshot was taken.
func (s *Snapshot) TxID() uint64 {
	return s.txID
}

// Valid reports whether the snapshot is live and the channel is still in the
// transaction context it was taken in.
func (s *Snapshot) Valid() bool {
	return !s.released && s.ch.TxID() == s.txID
}

// Release unpins the generation. Calling Release more than once is safe.
func (s *Snapshot) Release() {
	if s.released {
		return
	}
	s.released = true

	s.ch.mu.Lock()
	defer s.ch.mu.Unlock()
	if n := s.ch.pins[s.generation]; n > 1 {
		s.ch.pins[s.generation] = n - 1
	} else {
		delete(s.ch.pins, s.generation)
	}
}

// Pin takes a snapshot of the channel's current generation.
func (ch *Channel) Pin() *Snapshot {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	ch.pins[ch.generation]++
	return &Snapshot{ch: ch, generation: ch.generation, txID: ch.txID}
}

// OldestPinned returns the oldest generation held by a live snapshot, or the
// current generation when no snapshot is live.
func (ch *Channel) OldestPinned() uint64 {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.oldestPinned()
}

func (ch *Channel) oldestPinned() uint64 {
	oldest := ch.generation
	for g := range ch.pins {
		if g < oldest {
			oldest = g
		}
	}
	return oldest
}

// PinnedCount returns the number of live snapshots.
func (ch *Channel) PinnedCount() int {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	n := 0
	for _, c := range ch.pins {
		n += c
	}
	return n
}
