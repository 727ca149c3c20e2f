package profile

import (
	"errors"
	"time"
)

// GoodIDVerificationPoints is the one-time score bonus for a confirmed
// identity verification.
const GoodIDVerificationPoints uint64 = 100

var (
	ErrAlreadyRegistered     = errors.New("profile already exists")
	ErrNotRegistered         = errors.New("user not registered")
	ErrAlreadyVerified       = errors.New("user already verified")
	ErrNotVerified           = errors.New("user not verified")
	ErrQuestAlreadyCompleted = errors.New("quest already completed")
	ErrWrongQuestType        = errors.New("quest type does not match completion path")
)

type UserProfile struct {
	Address      string     `json:"address"`
	IsVerified   bool       `json:"isVerified"`
	Score        uint64     `json:"score"`
	RegisteredAt time.Time  `json:"registeredAt"`
	VerifiedAt   *time.Time `json:"verifiedAt,omitempty"`

	// Completed is the per-user completion set, keyed by quest id.
	Completed map[string]time.Time `json:"-"`
}

// CompletedQuestIDs returns the completion set as a slice for API responses.
func (p *UserProfile) CompletedQuestIDs() []string {
	ids := make([]string, 0, len(p.Completed))
	for id := range p.Completed {
		ids = append(ids, id)
	}
	return ids
}

type ProfileResponse struct {
	Address         string     `json:"address"`
	IsVerified      bool       `json:"isVerified"`
	Score           uint64     `json:"score"`
	RegisteredAt    time.Time  `json:"registeredAt"`
	VerifiedAt      *time.Time `json:"verifiedAt,omitempty"`
	CompletedQuests []string   `json:"completedQuests"`
}
