package quest

import (
	"errors"
	"time"
)

type QuestType string

const (
	TypeOnChain  QuestType = "ON_CHAIN"  // completion claimed against an on-chain action
	TypeOffChain QuestType = "OFF_CHAIN" // completion backed by a Reclaim proof
)

var (
	ErrUnauthorized   = errors.New("caller is not the owner")
	ErrDuplicateQuest = errors.New("quest id already exists")
	ErrQuestNotFound  = errors.New("quest not found")
	ErrQuestInactive  = errors.New("quest is not active")
)

type Quest struct {
	ID               string    `json:"id"`
	Description      string    `json:"description"`
	ScorePoints      uint64    `json:"scorePoints"`
	QuestType        QuestType `json:"questType"`
	TargetContract   string    `json:"targetContract,omitempty"`   // ON_CHAIN verification target
	ReclaimProvider  string    `json:"reclaimProvider,omitempty"`  // OFF_CHAIN proof scheme
	ReclaimClaimData string    `json:"reclaimClaimData,omitempty"`
	IsActive         bool      `json:"isActive"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

type CreateQuestRequest struct {
	QuestID          string    `json:"questId,omitempty"` // optional, derived from the name when empty
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	ScorePoints      uint64    `json:"scorePoints"`
	QuestType        QuestType `json:"questType"`
	TargetContract   string    `json:"targetContract,omitempty"`
	ReclaimProvider  string    `json:"reclaimProvider,omitempty"`
	ReclaimClaimData string    `json:"reclaimClaimData,omitempty"`
}

type UpdateQuestRequest struct {
	Description      string    `json:"description"`
	ScorePoints      uint64    `json:"scorePoints"`
	QuestType        QuestType `json:"questType"`
	TargetContract   string    `json:"targetContract,omitempty"`
	ReclaimProvider  string    `json:"reclaimProvider,omitempty"`
	ReclaimClaimData string    `json:"reclaimClaimData,omitempty"`
}
