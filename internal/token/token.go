package token

import "errors"

// Symbol of the pool token. Amounts everywhere are integer base units;
// there is no floating point in the ledger.
const Symbol = "G$"

var (
	ErrUnauthorized          = errors.New("caller cannot mint")
	ErrInsufficientBalance   = errors.New("insufficient token balance")
	ErrInsufficientAllowance = errors.New("insufficient token allowance")
	ErrInvalidAmount         = errors.New("amount must be positive")
)

type BalanceResponse struct {
	Address string `json:"address"`
	Balance uint64 `json:"balance"`
	Symbol  string `json:"symbol"`
}

type TransferRequest struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

type ApproveRequest struct {
	Spender string `json:"spender"`
	Amount  uint64 `json:"amount"`
}

type MintRequest struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}
