package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"goodCredAPI/internal/event"
	"goodCredAPI/internal/loan"
	"goodCredAPI/internal/notification"
)

// PoolAddress is the ledger address holding pooled liquidity. Available
// funds are exactly the token balance at this address.
const PoolAddress = "goodcred-pool"

// ScoreReader is the slice of the score ledger the pool needs. Must
// reflect every verification and quest completion that committed before
// the borrow call.
type ScoreReader interface {
	GetScore(user string) uint64
}

// TokenLedger is the fungible-token collaborator: deposit pull,
// disbursement push, repayment pull. Every call is all-or-nothing.
type TokenLedger interface {
	Transfer(ctx context.Context, from, to string, amount uint64) error
	TransferFrom(ctx context.Context, spender, from, to string, amount uint64) error
	BalanceOf(addr string) uint64
}

// LendingService owns the loan book: pooled liquidity, score-scaled
// credit limits and at most one unpaid loan per borrower. Loan records
// are never deleted; repaid loans stay as history.
type LendingService struct {
	mu             sync.RWMutex
	loans          map[uint64]*loan.Loan
	activeLoan     map[string]uint64 // borrower -> unpaid loan id
	nextLoanID     uint64
	totalDeposited uint64

	scores  ScoreReader
	tokens  TokenLedger
	journal Journal
	notif   Notifier

	reminded map[uint64]bool // loan ids already sent a due-soon reminder
}

func NewLendingService(scores ScoreReader, tokens TokenLedger, journal Journal, notif Notifier) *LendingService {
	return &LendingService{
		loans:      make(map[uint64]*loan.Loan),
		activeLoan: make(map[string]uint64),
		nextLoanID: 1,
		scores:     scores,
		tokens:     tokens,
		journal:    journal,
		notif:      notif,
		reminded:   make(map[uint64]bool),
	}
}

// Deposit pulls amount from the lender into the pool. The lender must
// have approved the pool address beforehand; a rejected pull aborts the
// whole operation.
func (s *LendingService) Deposit(ctx context.Context, caller string, amount uint64) error {
	if amount == 0 {
		return loan.ErrInvalidAmount
	}
	caller = strings.ToLower(caller)

	if err := s.tokens.TransferFrom(ctx, PoolAddress, caller, PoolAddress, amount); err != nil {
		return fmt.Errorf("%w: %v", loan.ErrTransferFailed, err)
	}

	s.mu.Lock()
	s.totalDeposited += amount
	s.journal.Append(ctx, event.New(event.TypePoolDeposit, caller, event.PoolDepositPayload{
		Lender: caller,
		Amount: amount,
	}))
	s.mu.Unlock()
	return nil
}

// GetMaxLoanAmount is a pure function of the current score; prior
// borrowing does not reduce it.
func (s *LendingService) GetMaxLoanAmount(user string) uint64 {
	return s.scores.GetScore(user) * loan.ScoreToLoanMultiplier
}

func (s *LendingService) Borrow(ctx context.Context, caller string, amount uint64) (*loan.Loan, error) {
	if amount == 0 {
		return nil, loan.ErrInvalidAmount
	}
	caller = strings.ToLower(caller)

	s.mu.Lock()
	defer s.mu.Unlock()

	if amount > s.scores.GetScore(caller)*loan.ScoreToLoanMultiplier {
		return nil, loan.ErrCreditLimitExceeded
	}
	if _, exists := s.activeLoan[caller]; exists {
		return nil, loan.ErrActiveLoanExists
	}
	if s.tokens.BalanceOf(PoolAddress) < amount {
		return nil, loan.ErrInsufficientPoolLiquidity
	}

	// Disburse before recording: a failed transfer must leave no loan.
	if err := s.tokens.Transfer(ctx, PoolAddress, caller, amount); err != nil {
		return nil, fmt.Errorf("%w: %v", loan.ErrTransferFailed, err)
	}

	now := time.Now().UTC()
	l := &loan.Loan{
		LoanID:     s.nextLoanID,
		Borrower:   caller,
		Principal:  amount,
		AmountDue:  amount + amount*loan.InterestRateBps/10000,
		DueDate:    now.Add(loan.Term),
		BorrowedAt: now,
	}
	s.nextLoanID++
	s.loans[l.LoanID] = l
	s.activeLoan[caller] = l.LoanID

	s.journal.Append(ctx, event.New(event.TypeLoanCreated, caller, event.LoanCreatedPayload{Loan: *l}))

	s.notif.Notify(ctx, &notification.CreateNotificationRequest{
		Address: caller,
		Type:    notification.TypeLoanCreated,
		Title:   "Loan disbursed",
		Message: fmt.Sprintf("You borrowed %d G$. %d G$ is due by %s.", l.Principal, l.AmountDue, l.DueDate.Format("2006-01-02")),
		Data:    map[string]any{"loan_id": l.LoanID, "amount_due": l.AmountDue},
	})

	out := *l
	return &out, nil
}

// Repay settles the caller's unpaid loan in full. No partial repayment;
// the due amount was fixed at origination.
func (s *LendingService) Repay(ctx context.Context, caller string, loanID uint64) error {
	caller = strings.ToLower(caller)

	s.mu.Lock()
	defer s.mu.Unlock()

	l, exists := s.loans[loanID]
	if !exists || l.Borrower != caller {
		return loan.ErrLoanNotFound
	}
	if l.IsRepaid {
		return loan.ErrLoanAlreadyRepaid
	}

	if err := s.tokens.TransferFrom(ctx, PoolAddress, caller, PoolAddress, l.AmountDue); err != nil {
		return fmt.Errorf("%w: %v", loan.ErrTransferFailed, err)
	}

	l.IsRepaid = true
	delete(s.activeLoan, caller)
	delete(s.reminded, loanID)

	s.journal.Append(ctx, event.New(event.TypeLoanRepaid, caller, event.LoanRepaidPayload{
		LoanID:   loanID,
		Borrower: caller,
	}))

	s.notif.Notify(ctx, &notification.CreateNotificationRequest{
		Address: caller,
		Type:    notification.TypeLoanRepaid,
		Title:   "Loan repaid",
		Message: fmt.Sprintf("Loan #%d is settled. You can borrow again.", loanID),
		Data:    map[string]any{"loan_id": loanID},
	})

	return nil
}

// GetActiveLoan returns the caller's unpaid loan, or ErrNoActiveLoan.
// Absence is explicit here rather than a zero-valued record.
func (s *LendingService) GetActiveLoan(user string) (*loan.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.activeLoan[strings.ToLower(user)]
	if !exists {
		return nil, loan.ErrNoActiveLoan
	}
	out := *s.loans[id]
	return &out, nil
}

func (s *LendingService) GetLoan(loanID uint64) (*loan.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, exists := s.loans[loanID]
	if !exists {
		return nil, loan.ErrLoanNotFound
	}
	out := *l
	return &out, nil
}

func (s *LendingService) GetPoolStats() *loan.PoolStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return &loan.PoolStats{
		AvailableFunds: s.tokens.BalanceOf(PoolAddress),
		TotalDeposited: s.totalDeposited,
		TotalLoans:     len(s.loans),
		ActiveLoans:    len(s.activeLoan),
	}
}

// LoansDueWithin returns unpaid loans whose due date falls inside the
// window and that have not had a reminder yet, marking them as reminded.
// Reminder marks are journaled so a restart does not re-notify a loan.
// The due date is advisory: nothing here transitions loan state.
func (s *LendingService) LoansDueWithin(ctx context.Context, window time.Duration) []*loan.Loan {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().UTC().Add(window)
	var due []*loan.Loan
	for _, id := range s.activeLoan {
		l := s.loans[id]
		if s.reminded[id] || l.DueDate.After(cutoff) {
			continue
		}
		s.reminded[id] = true
		s.journal.Append(ctx, event.New(event.TypeLoanReminded, l.Borrower, event.LoanRemindedPayload{
			LoanID:   id,
			Borrower: l.Borrower,
		}))
		out := *l
		due = append(due, &out)
	}
	return due
}

// Restore applies a journaled pool event during startup replay. Token
// movements are replayed by the token ledger itself.
func (s *LendingService) Restore(e event.Event) error {
	switch e.Type {
	case event.TypePoolDeposit:
		var p event.PoolDepositPayload
		if err := e.Decode(&p); err != nil {
			return err
		}
		s.mu.Lock()
		s.totalDeposited += p.Amount
		s.mu.Unlock()

	case event.TypeLoanCreated:
		var p event.LoanCreatedPayload
		if err := e.Decode(&p); err != nil {
			return err
		}
		s.mu.Lock()
		l := p.Loan
		s.loans[l.LoanID] = &l
		if !l.IsRepaid {
			s.activeLoan[l.Borrower] = l.LoanID
		}
		if l.LoanID >= s.nextLoanID {
			s.nextLoanID = l.LoanID + 1
		}
		s.mu.Unlock()

	case event.TypeLoanRepaid:
		var p event.LoanRepaidPayload
		if err := e.Decode(&p); err != nil {
			return err
		}
		s.mu.Lock()
		if l, exists := s.loans[p.LoanID]; exists {
			l.IsRepaid = true
			delete(s.activeLoan, p.Borrower)
			delete(s.reminded, p.LoanID)
		}
		s.mu.Unlock()

	case event.TypeLoanReminded:
		var p event.LoanRemindedPayload
		if err := e.Decode(&p); err != nil {
			return err
		}
		s.mu.Lock()
		s.reminded[p.LoanID] = true
		s.mu.Unlock()
	}
	return nil
}
