package store

import (
	"sort"

	"github.com/punchamoorthee/bankcore/internal/domain"
)

// settleDue applies every unsettled credit on the account with a due time at
// or before asOf: the amount lands on the current balance and a snapshot is
// written at exactly the credit's due time, so a later historical query at
// that instant sees the post-credit value. Runs to quiescence before any
// caller effect is applied or any balance is compared. Credits settle in
// ascending due-time order, ties broken by creation sequence.
//
// Callers must hold s.mu.
func (s *LedgerStore) settleDue(acc *domain.Account, asOf int64) {
	if len(acc.PendingCredits) == 0 {
		return
	}

	var due []*domain.DeferredCredit
	remaining := acc.PendingCredits[:0]
	for _, seq := range acc.PendingCredits {
		credit := s.credits[seq-1]
		if !credit.Settled && credit.DueAt <= asOf {
			due = append(due, credit)
		} else {
			remaining = append(remaining, seq)
		}
	}
	acc.PendingCredits = remaining
	if len(due) == 0 {
		return
	}

	sort.Slice(due, func(i, j int) bool {
		if due[i].DueAt != due[j].DueAt {
			return due[i].DueAt < due[j].DueAt
		}
		return due[i].Seq < due[j].Seq
	})

	for _, credit := range due {
		acc.Balance += credit.Amount
		recordSnapshot(acc, credit.DueAt)
		credit.Settled = true
	}
}
