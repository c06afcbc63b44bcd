package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAccount(t *testing.T) {
	t.Run("should create account with zero balance", func(t *testing.T) {
		s := NewLedgerStore(0)
		require.NoError(t, s.CreateAccount(1, "a1"))

		balance, err := s.BalanceAt(1, "a1", 1)
		require.NoError(t, err)
		assert.Equal(t, int64(0), balance)
	})

	t.Run("should reject duplicate id", func(t *testing.T) {
		s := NewLedgerStore(0)
		require.NoError(t, s.CreateAccount(1, "a1"))
		assert.ErrorIs(t, s.CreateAccount(2, "a1"), ErrAlreadyExists)
	})

	t.Run("should reject id of an eliminated account", func(t *testing.T) {
		s := NewLedgerStore(0)
		require.NoError(t, s.CreateAccount(1, "a1"))
		require.NoError(t, s.CreateAccount(2, "a2"))
		require.NoError(t, s.Merge(3, "a1", "a2"))

		assert.ErrorIs(t, s.CreateAccount(4, "a2"), ErrAlreadyExists)
	})
}

func TestDepositAndTransfer(t *testing.T) {
	t.Run("deposit then transfer then rank", func(t *testing.T) {
		s := NewLedgerStore(0)
		require.NoError(t, s.CreateAccount(1, "a1"))
		require.NoError(t, s.CreateAccount(2, "a2"))

		balance, err := s.Deposit(3, "a1", 1000)
		require.NoError(t, err)
		assert.Equal(t, int64(1000), balance)

		balance, err = s.Transfer(4, "a1", "a2", 100)
		require.NoError(t, err)
		assert.Equal(t, int64(900), balance)

		ranking := s.TopSpenders(5, 2)
		require.Len(t, ranking, 2)
		assert.Equal(t, "a1(100)", ranking[0].String())
		assert.Equal(t, "a2(0)", ranking[1].String())
	})

	t.Run("deposit to unknown account", func(t *testing.T) {
		s := NewLedgerStore(0)
		_, err := s.Deposit(1, "ghost", 100)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("transfer validation", func(t *testing.T) {
		s := NewLedgerStore(0)
		require.NoError(t, s.CreateAccount(1, "a1"))
		require.NoError(t, s.CreateAccount(2, "a2"))
		_, err := s.Deposit(3, "a1", 100)
		require.NoError(t, err)

		_, err = s.Transfer(4, "a1", "ghost", 10)
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = s.Transfer(4, "ghost", "a2", 10)
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = s.Transfer(4, "a1", "a1", 10)
		assert.ErrorIs(t, err, ErrSameAccount)

		_, err = s.Transfer(4, "a1", "a2", 101)
		assert.ErrorIs(t, err, ErrInsufficientFunds)

		// Rejection leaves no trace.
		balance, err := s.BalanceAt(5, "a1", 4)
		require.NoError(t, err)
		assert.Equal(t, int64(100), balance)
		assert.Equal(t, "a1(0)", s.TopSpenders(5, 1)[0].String())
	})

	t.Run("same-timestamp operations", func(t *testing.T) {
		s := NewLedgerStore(0)
		require.NoError(t, s.CreateAccount(1, "a1"))
		require.NoError(t, s.CreateAccount(1, "a2"))
		_, err := s.Deposit(2, "a1", 1000)
		require.NoError(t, err)

		_, err = s.Transfer(5, "a1", "a2", 100)
		require.NoError(t, err)
		_, err = s.Transfer(5, "a1", "a2", 50)
		require.NoError(t, err)

		// Outgoing accumulates, the balance snapshot is overwritten.
		assert.Equal(t, "a1(150)", s.TopSpenders(6, 1)[0].String())
		balance, err := s.BalanceAt(6, "a1", 5)
		require.NoError(t, err)
		assert.Equal(t, int64(850), balance)
	})
}

func TestWithdrawCashback(t *testing.T) {
	t.Run("full cashback lifecycle", func(t *testing.T) {
		s := NewLedgerStore(0)
		require.NoError(t, s.CreateAccount(1, "acc"))
		_, err := s.Deposit(5, "acc", 1000)
		require.NoError(t, err)

		creditID, err := s.Withdraw(10, "acc", 1000)
		require.NoError(t, err)
		assert.Equal(t, "credit1", creditID)

		balance, err := s.BalanceAt(10, "acc", 10)
		require.NoError(t, err)
		assert.Equal(t, int64(0), balance)

		due := int64(10) + DefaultCashbackDelay

		status, err := s.CreditStatus(due-1, "acc", creditID)
		require.NoError(t, err)
		assert.Equal(t, "PENDING", status.String())

		// 2% of 1000, visible at the exact due instant.
		balance, err = s.BalanceAt(due, "acc", due)
		require.NoError(t, err)
		assert.Equal(t, int64(20), balance)

		status, err = s.CreditStatus(due, "acc", creditID)
		require.NoError(t, err)
		assert.Equal(t, "SETTLED", status.String())
	})

	t.Run("insufficient funds creates no credit", func(t *testing.T) {
		s := NewLedgerStore(0)
		require.NoError(t, s.CreateAccount(1, "acc"))
		_, err := s.Deposit(2, "acc", 50)
		require.NoError(t, err)

		_, err = s.Withdraw(3, "acc", 100)
		assert.ErrorIs(t, err, ErrInsufficientFunds)

		_, err = s.CreditStatus(4, "acc", "credit1")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, "acc(0)", s.TopSpenders(4, 1)[0].String())
	})

	t.Run("credit ids are a global sequence", func(t *testing.T) {
		s := NewLedgerStore(100)
		require.NoError(t, s.CreateAccount(1, "a1"))
		require.NoError(t, s.CreateAccount(1, "a2"))
		_, err := s.Deposit(2, "a1", 1000)
		require.NoError(t, err)
		_, err = s.Deposit(2, "a2", 1000)
		require.NoError(t, err)

		id1, err := s.Withdraw(3, "a1", 100)
		require.NoError(t, err)
		id2, err := s.Withdraw(4, "a2", 100)
		require.NoError(t, err)
		id3, err := s.Withdraw(5, "a1", 100)
		require.NoError(t, err)

		assert.Equal(t, []string{"credit1", "credit2", "credit3"}, []string{id1, id2, id3})
	})

	t.Run("cashback amount rounds down", func(t *testing.T) {
		s := NewLedgerStore(100)
		require.NoError(t, s.CreateAccount(1, "acc"))
		_, err := s.Deposit(2, "acc", 1000)
		require.NoError(t, err)

		// 2% of 99 = 1.98, floor 1
		_, err = s.Withdraw(3, "acc", 99)
		require.NoError(t, err)

		balance, err := s.Deposit(103, "acc", 1000)
		require.NoError(t, err)
		assert.Equal(t, int64(1000-99+1+1000), balance)
	})
}

func TestSettlementPrecedence(t *testing.T) {
	t.Run("deposit at due instant sees credit applied", func(t *testing.T) {
		s := NewLedgerStore(100)
		require.NoError(t, s.CreateAccount(1, "acc"))
		_, err := s.Deposit(2, "acc", 1000)
		require.NoError(t, err)
		_, err = s.Withdraw(3, "acc", 500)
		require.NoError(t, err)

		// Credit of 10 due at 103; deposit at 103 lands on top of it.
		balance, err := s.Deposit(103, "acc", 100)
		require.NoError(t, err)
		assert.Equal(t, int64(610), balance)

		// The snapshot at the due instant holds the final value.
		balance, err = s.BalanceAt(200, "acc", 103)
		require.NoError(t, err)
		assert.Equal(t, int64(610), balance)
	})

	t.Run("debit at due instant can spend the credit", func(t *testing.T) {
		s := NewLedgerStore(100)
		require.NoError(t, s.CreateAccount(1, "acc"))
		_, err := s.Deposit(2, "acc", 500)
		require.NoError(t, err)
		_, err = s.Withdraw(3, "acc", 500)
		require.NoError(t, err)

		// Balance is 0; the 10 cashback due at 103 funds this withdrawal.
		creditID, err := s.Withdraw(103, "acc", 10)
		require.NoError(t, err)
		assert.Equal(t, "credit2", creditID)
	})

	t.Run("historical query settles at the query horizon", func(t *testing.T) {
		s := NewLedgerStore(100)
		require.NoError(t, s.CreateAccount(1, "acc"))
		_, err := s.Deposit(2, "acc", 1000)
		require.NoError(t, err)
		_, err = s.Withdraw(3, "acc", 500)
		require.NoError(t, err)

		// Horizon before the due time: credit not visible even though the
		// call timestamp is far past it.
		balance, err := s.BalanceAt(10_000, "acc", 50)
		require.NoError(t, err)
		assert.Equal(t, int64(500), balance)

		balance, err = s.BalanceAt(10_000, "acc", 103)
		require.NoError(t, err)
		assert.Equal(t, int64(510), balance)
	})

	t.Run("settlement alone never changes outgoing totals", func(t *testing.T) {
		s := NewLedgerStore(100)
		require.NoError(t, s.CreateAccount(1, "acc"))
		_, err := s.Deposit(2, "acc", 1000)
		require.NoError(t, err)
		_, err = s.Withdraw(3, "acc", 500)
		require.NoError(t, err)

		before := s.TopSpenders(4, 1)[0]
		_, err = s.BalanceAt(1000, "acc", 1000)
		require.NoError(t, err)
		after := s.TopSpenders(1000, 1)[0]

		assert.Equal(t, before, after)
		assert.Equal(t, "acc(500)", after.String())
	})

	t.Run("multiple credits settle to quiescence in due order", func(t *testing.T) {
		s := NewLedgerStore(100)
		require.NoError(t, s.CreateAccount(1, "acc"))
		_, err := s.Deposit(2, "acc", 10_000)
		require.NoError(t, err)

		_, err = s.Withdraw(3, "acc", 1000) // 20 due at 103
		require.NoError(t, err)
		_, err = s.Withdraw(4, "acc", 2000) // 40 due at 104
		require.NoError(t, err)
		_, err = s.Withdraw(4, "acc", 500) // 10 due at 104
		require.NoError(t, err)

		balance, err := s.Deposit(500, "acc", 100)
		require.NoError(t, err)
		assert.Equal(t, int64(10_000-3500+70+100), balance)

		// Snapshots exist at each due instant with the credits applied.
		balance, err = s.BalanceAt(500, "acc", 103)
		require.NoError(t, err)
		assert.Equal(t, int64(6500+20), balance)
		balance, err = s.BalanceAt(500, "acc", 104)
		require.NoError(t, err)
		assert.Equal(t, int64(6500+70), balance)
	})
}

func TestCreditStatusValidation(t *testing.T) {
	s := NewLedgerStore(100)
	require.NoError(t, s.CreateAccount(1, "a1"))
	require.NoError(t, s.CreateAccount(1, "a2"))
	_, err := s.Deposit(2, "a1", 1000)
	require.NoError(t, err)
	creditID, err := s.Withdraw(3, "a1", 100)
	require.NoError(t, err)

	t.Run("unknown account", func(t *testing.T) {
		_, err := s.CreditStatus(4, "ghost", creditID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("unknown credit", func(t *testing.T) {
		_, err := s.CreditStatus(4, "a1", "credit99")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("foreign credit", func(t *testing.T) {
		_, err := s.CreditStatus(4, "a2", creditID)
		assert.ErrorIs(t, err, ErrForeignPayment)
	})
}

func TestBalanceAt(t *testing.T) {
	s := NewLedgerStore(0)
	require.NoError(t, s.CreateAccount(10, "acc"))
	_, err := s.Deposit(20, "acc", 100)
	require.NoError(t, err)
	_, err = s.Deposit(30, "acc", 200)
	require.NoError(t, err)

	t.Run("unknown account", func(t *testing.T) {
		_, err := s.BalanceAt(40, "ghost", 20)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("before creation", func(t *testing.T) {
		_, err := s.BalanceAt(40, "acc", 9)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("at creation", func(t *testing.T) {
		balance, err := s.BalanceAt(40, "acc", 10)
		require.NoError(t, err)
		assert.Equal(t, int64(0), balance)
	})

	t.Run("between snapshots", func(t *testing.T) {
		balance, err := s.BalanceAt(40, "acc", 25)
		require.NoError(t, err)
		assert.Equal(t, int64(100), balance)
	})

	t.Run("after last snapshot", func(t *testing.T) {
		balance, err := s.BalanceAt(40, "acc", 1000)
		require.NoError(t, err)
		assert.Equal(t, int64(300), balance)
	})
}

func TestTopSpenders(t *testing.T) {
	t.Run("ties break alphabetically", func(t *testing.T) {
		s := NewLedgerStore(0)
		require.NoError(t, s.CreateAccount(1, "b"))
		require.NoError(t, s.CreateAccount(1, "a"))
		require.NoError(t, s.CreateAccount(1, "c"))
		_, err := s.Deposit(2, "b", 100)
		require.NoError(t, err)
		_, err = s.Deposit(2, "c", 100)
		require.NoError(t, err)
		_, err = s.Transfer(3, "b", "a", 50)
		require.NoError(t, err)
		_, err = s.Transfer(3, "c", "a", 50)
		require.NoError(t, err)

		ranking := s.TopSpenders(4, 3)
		require.Len(t, ranking, 3)
		assert.Equal(t, "b(50)", ranking[0].String())
		assert.Equal(t, "c(50)", ranking[1].String())
		assert.Equal(t, "a(0)", ranking[2].String())
	})

	t.Run("returns all roots when fewer than n", func(t *testing.T) {
		s := NewLedgerStore(0)
		require.NoError(t, s.CreateAccount(1, "a"))
		assert.Len(t, s.TopSpenders(2, 10), 1)
	})

	t.Run("withdrawals count as outgoing", func(t *testing.T) {
		s := NewLedgerStore(100)
		require.NoError(t, s.CreateAccount(1, "a"))
		_, err := s.Deposit(2, "a", 1000)
		require.NoError(t, err)
		_, err = s.Withdraw(3, "a", 300)
		require.NoError(t, err)

		assert.Equal(t, "a(300)", s.TopSpenders(4, 1)[0].String())
	})
}

func TestConfigurableDelay(t *testing.T) {
	s := NewLedgerStore(50)
	require.NoError(t, s.CreateAccount(1, "acc"))
	_, err := s.Deposit(2, "acc", 1000)
	require.NoError(t, err)
	creditID, err := s.Withdraw(10, "acc", 500)
	require.NoError(t, err)

	status, err := s.CreditStatus(59, "acc", creditID)
	require.NoError(t, err)
	assert.Equal(t, "PENDING", status.String())

	status, err = s.CreditStatus(60, "acc", creditID)
	require.NoError(t, err)
	assert.Equal(t, "SETTLED", status.String())
}
