package store

import "github.com/punchamoorthee/bankcore/internal/domain"

// Merge folds the eliminated account into the survivor. Both operands must
// be distinct, currently-unmerged roots.
//
// Due credits on both sides settle first so no stale pending credit escapes
// re-parenting; remaining pending credits move to the survivor. The
// eliminated account's balance is added to the survivor with a snapshot at
// the merge timestamp, after which the eliminated record is frozen and kept
// only for historical reads before the merge instant.
func (s *LedgerStore) Merge(timestamp int64, survivorID, eliminatedID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if survivorID == eliminatedID {
		return ErrSameAccount
	}
	survivor, ok := s.accounts[survivorID]
	if !ok || !survivor.Root() {
		return ErrInvalidMerge
	}
	eliminated, ok := s.accounts[eliminatedID]
	if !ok || !eliminated.Root() {
		return ErrInvalidMerge
	}

	s.settleDue(survivor, timestamp)
	s.settleDue(eliminated, timestamp)

	for _, seq := range eliminated.PendingCredits {
		s.credits[seq-1].Beneficiary = survivorID
		survivor.PendingCredits = append(survivor.PendingCredits, seq)
	}
	eliminated.PendingCredits = nil

	survivor.Balance += eliminated.Balance
	recordSnapshot(survivor, timestamp)

	eliminated.MergedInto = survivorID
	eliminated.MergedAt = timestamp

	s.clusters[survivorID] = append(s.clusters[survivorID], eliminatedID)
	s.clusters[survivorID] = append(s.clusters[survivorID], s.clusters[eliminatedID]...)
	delete(s.clusters, eliminatedID)

	return nil
}

// ResolveRoot walks the merge chain from the given id to its current
// surviving root. The second return is false if the id was never created.
func (s *LedgerStore) ResolveRoot(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.resolveRootLocked(id)
	if !ok {
		return "", false
	}
	return acc.ID, true
}

// resolveRootLocked follows MergedInto pointers to the ultimate root.
// Terminates because merges only ever join two current roots, so the parent
// forest is acyclic. Callers must hold s.mu.
func (s *LedgerStore) resolveRootLocked(id string) (*domain.Account, bool) {
	acc, ok := s.accounts[id]
	if !ok {
		return nil, false
	}
	for !acc.Root() {
		acc = s.accounts[acc.MergedInto]
	}
	return acc, true
}
