package loan

import (
	"errors"
	"time"
)

const (
	// ScoreToLoanMultiplier converts a credit score into a borrowable
	// amount of token base units.
	ScoreToLoanMultiplier uint64 = 100

	// InterestRateBps is the flat origination interest, in basis points.
	InterestRateBps uint64 = 500

	// Term is the fixed loan term. The due date is advisory data: nothing
	// in the pool expires a loan automatically.
	Term = 30 * 24 * time.Hour
)

var (
	ErrCreditLimitExceeded       = errors.New("loan amount exceeds credit limit")
	ErrActiveLoanExists          = errors.New("borrower already has an active loan")
	ErrInsufficientPoolLiquidity = errors.New("pool has insufficient liquidity")
	ErrLoanNotFound              = errors.New("loan not found")
	ErrLoanAlreadyRepaid         = errors.New("loan already repaid")
	ErrNoActiveLoan              = errors.New("no active loan")
	ErrTransferFailed            = errors.New("token transfer failed")
	ErrInvalidAmount             = errors.New("amount must be positive")
)

type Loan struct {
	LoanID     uint64    `json:"loanId"`
	Borrower   string    `json:"borrower"`
	Principal  uint64    `json:"principal"`
	AmountDue  uint64    `json:"amountDue"`
	DueDate    time.Time `json:"dueDate"`
	IsRepaid   bool      `json:"isRepaid"`
	BorrowedAt time.Time `json:"borrowedAt"`
}

type PoolStats struct {
	AvailableFunds uint64 `json:"availableFunds"`
	TotalDeposited uint64 `json:"totalDeposited"`
	TotalLoans     int    `json:"totalLoans"`
	ActiveLoans    int    `json:"activeLoans"`
}
