package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"goodCredAPI/internal/loan"
	"goodCredAPI/internal/quest"
)

type Type string

const (
	TypeQuestAdded       Type = "quest.added"
	TypeQuestUpdated     Type = "quest.updated"
	TypeQuestActivated   Type = "quest.activated"
	TypeQuestDeactivated Type = "quest.deactivated"

	TypeUserRegistered Type = "score.registered"
	TypeUserVerified   Type = "score.verified"
	TypeQuestCompleted Type = "score.quest_completed"

	TypeTokensMinted  Type = "token.minted"
	TypeTokenTransfer Type = "token.transfer"
	TypeTokenApproval Type = "token.approval"

	TypePoolDeposit  Type = "pool.deposit"
	TypeLoanCreated  Type = "pool.loan_created"
	TypeLoanRepaid   Type = "pool.loan_repaid"
	TypeLoanReminded Type = "pool.loan_reminded"
)

// Event is one entry of the protocol journal. Seq is assigned by the
// journal on append and defines the single global replay order.
type Event struct {
	Seq       int64           `json:"seq"`
	ID        uuid.UUID       `json:"id"`
	Type      Type            `json:"type"`
	Actor     string          `json:"actor"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
}

// New builds an unjournaled event with a marshaled payload. Payload
// structs are small and known, so a marshal failure is a programming
// error and panics.
func New(t Type, actor string, payload any) Event {
	raw, err := json.Marshal(payload)
	if err != nil {
		panic(fmt.Sprintf("event: marshal %s payload: %v", t, err))
	}
	return Event{
		ID:        uuid.New(),
		Type:      t,
		Actor:     actor,
		Payload:   raw,
		CreatedAt: time.Now().UTC(),
	}
}

// Decode unmarshals the payload into dst.
func (e Event) Decode(dst any) error {
	if err := json.Unmarshal(e.Payload, dst); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}

type QuestAddedPayload struct {
	Quest quest.Quest `json:"quest"`
}

type QuestUpdatedPayload struct {
	Quest quest.Quest `json:"quest"`
}

type QuestActivePayload struct {
	QuestID  string `json:"questId"`
	IsActive bool   `json:"isActive"`
}

type UserRegisteredPayload struct {
	Address      string    `json:"address"`
	RegisteredAt time.Time `json:"registeredAt"`
}

type UserVerifiedPayload struct {
	Address    string    `json:"address"`
	Points     uint64    `json:"points"`
	VerifiedAt time.Time `json:"verifiedAt"`
}

type QuestCompletedPayload struct {
	Address     string          `json:"address"`
	QuestID     string          `json:"questId"`
	Points      uint64          `json:"points"`
	QuestType   quest.QuestType `json:"questType"`
	ProofSHA256 string          `json:"proofSha256,omitempty"` // off-chain path only
	CompletedAt time.Time       `json:"completedAt"`
}

type TokensMintedPayload struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

type TokenTransferPayload struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
	// Spender is set when the transfer spent an allowance.
	Spender string `json:"spender,omitempty"`
}

type TokenApprovalPayload struct {
	Owner   string `json:"owner"`
	Spender string `json:"spender"`
	Amount  uint64 `json:"amount"`
}

type PoolDepositPayload struct {
	Lender string `json:"lender"`
	Amount uint64 `json:"amount"`
}

type LoanCreatedPayload struct {
	Loan loan.Loan `json:"loan"`
}

type LoanRepaidPayload struct {
	LoanID   uint64 `json:"loanId"`
	Borrower string `json:"borrower"`
}

type LoanRemindedPayload struct {
	LoanID   uint64 `json:"loanId"`
	Borrower string `json:"borrower"`
}
