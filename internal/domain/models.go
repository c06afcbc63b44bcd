package domain

import "fmt"

// CreditStatus is the lifecycle state of a deferred credit.
type CreditStatus int

const (
	CreditPending CreditStatus = iota
	CreditSettled
)

func (s CreditStatus) String() string {
	if s == CreditSettled {
		return "SETTLED"
	}
	return "PENDING"
}

// BalanceSnapshot records the balance of an account after all operations
// processed at a given timestamp. At most one snapshot exists per timestamp.
type BalanceSnapshot struct {
	At      int64 `json:"at"`
	Balance int64 `json:"balance"`
}

// Account is a single ledger identity. Once eliminated by a merge
// (MergedInto set) its history is frozen and all new activity lands on the
// surviving account.
type Account struct {
	ID        string
	CreatedAt int64

	// Balance is the current balance, always equal to the latest snapshot.
	Balance int64
	// History is kept sorted by timestamp, ascending.
	History []BalanceSnapshot

	// Outgoing accumulates amounts moved out of this account per timestamp
	// (transfers sent plus withdrawals). Deferred credits never appear here.
	Outgoing map[int64]int64

	// PendingCredits holds the sequence numbers of unsettled deferred
	// credits owned by this account, in creation order.
	PendingCredits []int

	MergedInto string
	MergedAt   int64
}

// Root reports whether the account is a live merge root.
func (a *Account) Root() bool { return a.MergedInto == "" }

// DeferredCredit is a scheduled future balance increase created by a
// withdrawal. Amount and DueAt are fixed at creation; only Settled and
// Beneficiary ever change.
type DeferredCredit struct {
	Seq         int
	ID          string
	Beneficiary string
	DueAt       int64
	Amount      int64
	Settled     bool
}

// Spender is one entry of the outgoing-volume ranking.
type Spender struct {
	ID    string
	Total int64
}

func (s Spender) String() string {
	return fmt.Sprintf("%s(%d)", s.ID, s.Total)
}

// CreateAccountRequest is the payload for account creation.
type CreateAccountRequest struct {
	Timestamp int64  `json:"timestamp"`
	AccountID string `json:"account_id"`
}

// DepositRequest is the payload for a deposit into an account.
type DepositRequest struct {
	Timestamp int64 `json:"timestamp"`
	Amount    int64 `json:"amount"`
}

// TransferRequest is the payload from the client.
type TransferRequest struct {
	Timestamp     int64  `json:"timestamp"`
	FromAccountID string `json:"from_account_id"`
	ToAccountID   string `json:"to_account_id"`
	Amount        int64  `json:"amount"`
}

// WithdrawalRequest is the payload for a withdrawal with deferred cashback.
type WithdrawalRequest struct {
	Timestamp int64  `json:"timestamp"`
	AccountID string `json:"account_id"`
	Amount    int64  `json:"amount"`
}

// MergeRequest is the payload for merging one account into another.
type MergeRequest struct {
	Timestamp    int64  `json:"timestamp"`
	SurvivorID   string `json:"survivor_id"`
	EliminatedID string `json:"eliminated_id"`
}
