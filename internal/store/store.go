package store

import (
	"fmt"
	"sort"
	"sync"

	"github.com/punchamoorthee/bankcore/internal/domain"
)

// DefaultCashbackDelay is the withdrawal-to-refund waiting period in the
// same unit as operation timestamps (milliseconds, 24 hours).
const DefaultCashbackDelay int64 = 24 * 60 * 60 * 1000

// cashbackPercent of a withdrawn amount is refunded, rounded down.
const cashbackPercent = 2

// LedgerStore owns every account record and the global table of deferred
// credits, and tracks merge lineage so any id ever created stays resolvable.
//
// Callers supply operation timestamps; the store owns no clock. Deferred
// credits settle lazily: a credit becomes visible when an operation on the
// owning account passes a timestamp at or after its due time. All operations
// are serialized behind a single mutex because settlement mutates state that
// reads depend on.
type LedgerStore struct {
	mu sync.Mutex

	accounts    map[string]*domain.Account
	credits     []*domain.DeferredCredit // index = Seq-1
	creditsByID map[string]*domain.DeferredCredit

	// clusters maps a root account id to every id merged into it,
	// transitively. Maintained incrementally at merge time.
	clusters map[string][]string

	delay int64
}

// NewLedgerStore creates an empty ledger. A non-positive delay selects
// DefaultCashbackDelay.
func NewLedgerStore(cashbackDelay int64) *LedgerStore {
	if cashbackDelay <= 0 {
		cashbackDelay = DefaultCashbackDelay
	}
	return &LedgerStore{
		accounts:    make(map[string]*domain.Account),
		creditsByID: make(map[string]*domain.DeferredCredit),
		clusters:    make(map[string][]string),
		delay:       cashbackDelay,
	}
}

// CreateAccount registers a new account with a zero-balance snapshot at the
// creation timestamp. The id must not denote any account, active or
// eliminated.
func (s *LedgerStore) CreateAccount(timestamp int64, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[id]; ok {
		return ErrAlreadyExists
	}
	s.accounts[id] = &domain.Account{
		ID:        id,
		CreatedAt: timestamp,
		History:   []domain.BalanceSnapshot{{At: timestamp, Balance: 0}},
		Outgoing:  make(map[int64]int64),
	}
	return nil
}

// Deposit adds amount to the account the id currently resolves to and
// returns the new balance.
func (s *LedgerStore) Deposit(timestamp int64, id string, amount int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.resolveRootLocked(id)
	if !ok {
		return 0, ErrNotFound
	}
	s.settleDue(acc, timestamp)

	acc.Balance += amount
	recordSnapshot(acc, timestamp)
	return acc.Balance, nil
}

// Transfer moves amount between the accounts the two ids resolve to and
// returns the source's new balance. Both sides settle due credits before the
// source balance is compared against the amount.
func (s *LedgerStore) Transfer(timestamp int64, fromID, toID string, amount int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, ok := s.resolveRootLocked(fromID)
	if !ok {
		return 0, ErrNotFound
	}
	dst, ok := s.resolveRootLocked(toID)
	if !ok {
		return 0, ErrNotFound
	}
	if src == dst {
		return 0, ErrSameAccount
	}

	s.settleDue(src, timestamp)
	s.settleDue(dst, timestamp)

	if src.Balance < amount {
		return 0, ErrInsufficientFunds
	}

	src.Balance -= amount
	dst.Balance += amount
	recordSnapshot(src, timestamp)
	recordSnapshot(dst, timestamp)
	src.Outgoing[timestamp] += amount

	return src.Balance, nil
}

// Withdraw debits amount from the account the id resolves to and schedules a
// deferred cashback credit of cashbackPercent of the amount, due one delay
// period after the withdrawal. Returns the credit id ("credit<N>", N being
// the global creation sequence).
func (s *LedgerStore) Withdraw(timestamp int64, id string, amount int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.resolveRootLocked(id)
	if !ok {
		return "", ErrNotFound
	}
	s.settleDue(acc, timestamp)

	if acc.Balance < amount {
		return "", ErrInsufficientFunds
	}

	acc.Balance -= amount
	recordSnapshot(acc, timestamp)
	acc.Outgoing[timestamp] += amount

	seq := len(s.credits) + 1
	credit := &domain.DeferredCredit{
		Seq:         seq,
		ID:          fmt.Sprintf("credit%d", seq),
		Beneficiary: acc.ID,
		DueAt:       timestamp + s.delay,
		Amount:      amount * cashbackPercent / 100,
	}
	s.credits = append(s.credits, credit)
	s.creditsByID[credit.ID] = credit
	acc.PendingCredits = append(acc.PendingCredits, seq)

	return credit.ID, nil
}

// CreditStatus reports whether the given credit has settled, after applying
// any settlement due at the query timestamp. The credit must belong, through
// merge resolution, to the account the id resolves to.
func (s *LedgerStore) CreditStatus(timestamp int64, id, creditID string) (domain.CreditStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.resolveRootLocked(id)
	if !ok {
		return 0, ErrNotFound
	}
	credit, ok := s.creditsByID[creditID]
	if !ok {
		return 0, ErrNotFound
	}
	owner, ok := s.resolveRootLocked(credit.Beneficiary)
	if !ok || owner != acc {
		return 0, ErrForeignPayment
	}

	s.settleDue(acc, timestamp)

	if credit.Settled {
		return domain.CreditSettled, nil
	}
	return domain.CreditPending, nil
}

// BalanceAt returns the balance of the account at the historical instant at.
//
// For a root account the result covers its whole merge cluster: credits due
// by at are settled first (using at as the horizon, not the call timestamp),
// then every member account that existed by at contributes its most recent
// snapshot. An eliminated account is queryable by its own id only strictly
// before its merge instant and answers from its frozen history alone.
func (s *LedgerStore) BalanceAt(now int64, id string, at int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[id]
	if !ok {
		return 0, ErrNotFound
	}
	if at < acc.CreatedAt {
		return 0, ErrNotFound
	}

	if !acc.Root() {
		if at >= acc.MergedAt {
			return 0, ErrNotFound
		}
		return balanceAsOf(acc, at), nil
	}

	s.settleDue(acc, at)
	total := balanceAsOf(acc, at)
	for _, memberID := range s.clusters[id] {
		member := s.accounts[memberID]
		s.settleDue(member, at)
		// From its merge instant on, a member's balance lives in the
		// snapshot its survivor recorded at the merge; counting the
		// frozen history too would double it.
		if member.CreatedAt > at || at >= member.MergedAt {
			continue
		}
		total += balanceAsOf(member, at)
	}
	return total, nil
}

// TopSpenders ranks active root accounts by cumulative outgoing volume,
// summed across each root's whole merge cluster. Highest total first, ties
// broken by ascending id. At most n entries are returned. Deferred credits
// never contribute, so no settlement happens here.
func (s *LedgerStore) TopSpenders(timestamp int64, n int) []domain.Spender {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n <= 0 {
		return nil
	}

	ranking := make([]domain.Spender, 0, len(s.accounts))
	for id, acc := range s.accounts {
		if !acc.Root() {
			continue
		}
		total := outgoingTotal(acc)
		for _, memberID := range s.clusters[id] {
			total += outgoingTotal(s.accounts[memberID])
		}
		ranking = append(ranking, domain.Spender{ID: id, Total: total})
	}

	sort.Slice(ranking, func(i, j int) bool {
		if ranking[i].Total != ranking[j].Total {
			return ranking[i].Total > ranking[j].Total
		}
		return ranking[i].ID < ranking[j].ID
	})

	if len(ranking) > n {
		ranking = ranking[:n]
	}
	return ranking
}

// recordSnapshot stores the account's current balance at the given
// timestamp, overwriting an existing snapshot at the same instant.
func recordSnapshot(acc *domain.Account, timestamp int64) {
	h := acc.History
	i := sort.Search(len(h), func(i int) bool { return h[i].At >= timestamp })
	if i < len(h) && h[i].At == timestamp {
		h[i].Balance = acc.Balance
		return
	}
	h = append(h, domain.BalanceSnapshot{})
	copy(h[i+1:], h[i:])
	h[i] = domain.BalanceSnapshot{At: timestamp, Balance: acc.Balance}
	acc.History = h
}

// balanceAsOf returns the most recent snapshot at or before the given
// instant, or 0 if no snapshot exists yet.
func balanceAsOf(acc *domain.Account, at int64) int64 {
	h := acc.History
	i := sort.Search(len(h), func(i int) bool { return h[i].At > at })
	if i == 0 {
		return 0
	}
	return h[i-1].Balance
}

func outgoingTotal(acc *domain.Account) int64 {
	var total int64
	for _, amount := range acc.Outgoing {
		total += amount
	}
	return total
}
