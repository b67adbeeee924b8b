package engine

import (
	"fmt"

	"github.com/KilimcininKorOglu/oodb/internal/storage"
	"github.com/KilimcininKorOglu/oodb/internal/storage/btree"
)

// Verify checks every tree of the store and that no page is owned by two
// trees or by a tree and the free space at once.
func (s *Store) Verify() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}

	trees := []struct {
		name string
		tree *btree.Tree
	}{
		{"oid index", s.oids.Tree()},
		{"catalog", s.catalog},
		{"free space", s.fsm.Tree()},
	}
	ids, err := s.fieldIndexIDs()
	if err != nil {
		return err
	}
	for _, id := range ids {
		x, err := s.fieldIndex(id)
		if err != nil {
			return err
		}
		trees = append(trees, struct {
			name string
			tree *btree.Tree
		}{fmt.Sprintf("field index %d", id), x.Tree()})
	}

	owner := make(map[storage.PageID]string)
	for _, t := range trees {
		if err := t.tree.Verify(); err != nil {
			return fmt.Errorf("%s: %w", t.name, err)
		}
		err := t.tree.VisitPages(func(id storage.PageID, _ bool) error {
			if prev, ok := owner[id]; ok {
				return fmt.Errorf("%w: page %d in %s and %s", ErrPageShared, id, prev, t.name)
			}
			owner[id] = t.name
			return nil
		})
		if err != nil {
			return err
		}
	}

	for _, id := range s.fsm.Pages() {
		if prev, ok := owner[id]; ok {
			return fmt.Errorf("%w: free page %d in %s", ErrPageShared, id, prev)
		}
	}
	return nil
}
