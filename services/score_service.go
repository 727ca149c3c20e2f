package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"goodCredAPI/internal/event"
	"goodCredAPI/internal/notification"
	"goodCredAPI/internal/profile"
	"goodCredAPI/internal/quest"
)

// QuestReader is the slice of the registry the score ledger needs:
// current quest definitions, never stale ones.
type QuestReader interface {
	GetQuest(questID string) (*quest.Quest, error)
	IsQuestActive(questID string) bool
}

// ScoreService owns the per-user reputation ledger: registration state,
// verification state, cumulative score and the completion set. Scores
// only ever go up.
type ScoreService struct {
	mu       sync.RWMutex
	owner    string
	profiles map[string]*profile.UserProfile
	registry QuestReader
	journal  Journal
	notif    Notifier
}

func NewScoreService(owner string, registry QuestReader, journal Journal, notif Notifier) *ScoreService {
	return &ScoreService{
		owner:    strings.ToLower(owner),
		profiles: make(map[string]*profile.UserProfile),
		registry: registry,
		journal:  journal,
		notif:    notif,
	}
}

func (s *ScoreService) Register(ctx context.Context, caller string) (*profile.UserProfile, error) {
	addr := strings.ToLower(caller)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.profiles[addr]; exists {
		return nil, profile.ErrAlreadyRegistered
	}

	p := &profile.UserProfile{
		Address:      addr,
		Score:        0,
		RegisteredAt: time.Now().UTC(),
		Completed:    make(map[string]time.Time),
	}
	s.profiles[addr] = p

	s.journal.Append(ctx, event.New(event.TypeUserRegistered, addr, event.UserRegisteredPayload{
		Address:      addr,
		RegisteredAt: p.RegisteredAt,
	}))

	out := *p
	return &out, nil
}

// ConfirmGoodIDVerification is the owner-submitted confirmation path.
func (s *ScoreService) ConfirmGoodIDVerification(ctx context.Context, caller, user string) error {
	if !strings.EqualFold(caller, s.owner) {
		return quest.ErrUnauthorized
	}
	return s.confirmVerification(ctx, user)
}

// VerifyIdentity is the callback-driven path. The GoodID webhook handler
// authenticates the callback before calling this; the ledger trusts that
// upstream check and only guards its own state transitions.
func (s *ScoreService) VerifyIdentity(ctx context.Context, user string) error {
	return s.confirmVerification(ctx, user)
}

func (s *ScoreService) confirmVerification(ctx context.Context, user string) error {
	addr := strings.ToLower(user)

	s.mu.Lock()
	p, exists := s.profiles[addr]
	if !exists {
		s.mu.Unlock()
		return profile.ErrNotRegistered
	}
	if p.IsVerified {
		s.mu.Unlock()
		return profile.ErrAlreadyVerified
	}

	now := time.Now().UTC()
	p.IsVerified = true
	p.VerifiedAt = &now
	p.Score += profile.GoodIDVerificationPoints
	s.journal.Append(ctx, event.New(event.TypeUserVerified, addr, event.UserVerifiedPayload{
		Address:    addr,
		Points:     profile.GoodIDVerificationPoints,
		VerifiedAt: now,
	}))
	s.mu.Unlock()

	s.notif.Notify(ctx, &notification.CreateNotificationRequest{
		Address: addr,
		Type:    notification.TypeVerificationConfirmed,
		Title:   "Identity verified",
		Message: fmt.Sprintf("Your GoodID verification earned you %d points.", profile.GoodIDVerificationPoints),
	})

	return nil
}

// CompleteOnChainQuest records a claimed on-chain action. The ledger does
// not re-verify the on-chain state itself; the caller's claim is the
// trust boundary here, same as in the contract it mirrors.
func (s *ScoreService) CompleteOnChainQuest(ctx context.Context, caller, questID string) (uint64, error) {
	return s.completeQuest(ctx, caller, questID, quest.TypeOnChain, nil)
}

// CompleteOffChainQuest accepts Reclaim proof bytes that the upstream
// verification flow already validated. Only the proof hash is journaled.
func (s *ScoreService) CompleteOffChainQuest(ctx context.Context, caller, questID string, proof []byte) (uint64, error) {
	if len(proof) == 0 {
		return 0, fmt.Errorf("proof is required")
	}
	return s.completeQuest(ctx, caller, questID, quest.TypeOffChain, proof)
}

func (s *ScoreService) completeQuest(ctx context.Context, caller, questID string, wantType quest.QuestType, proof []byte) (uint64, error) {
	addr := strings.ToLower(caller)

	s.mu.Lock()
	p, exists := s.profiles[addr]
	if !exists {
		s.mu.Unlock()
		return 0, profile.ErrNotRegistered
	}
	if !p.IsVerified {
		s.mu.Unlock()
		return 0, profile.ErrNotVerified
	}

	q, err := s.registry.GetQuest(questID)
	if err != nil {
		s.mu.Unlock()
		return 0, err
	}
	if q.QuestType != wantType {
		s.mu.Unlock()
		return 0, profile.ErrWrongQuestType
	}
	if !q.IsActive {
		s.mu.Unlock()
		return 0, quest.ErrQuestInactive
	}
	if _, done := p.Completed[questID]; done {
		s.mu.Unlock()
		return 0, profile.ErrQuestAlreadyCompleted
	}

	now := time.Now().UTC()
	p.Completed[questID] = now
	p.Score += q.ScorePoints
	newScore := p.Score

	payload := event.QuestCompletedPayload{
		Address:     addr,
		QuestID:     questID,
		Points:      q.ScorePoints,
		QuestType:   q.QuestType,
		CompletedAt: now,
	}
	if proof != nil {
		sum := sha256.Sum256(proof)
		payload.ProofSHA256 = hex.EncodeToString(sum[:])
	}
	s.journal.Append(ctx, event.New(event.TypeQuestCompleted, addr, payload))
	s.mu.Unlock()

	s.notif.Notify(ctx, &notification.CreateNotificationRequest{
		Address: addr,
		Type:    notification.TypeQuestCompleted,
		Title:   "Quest completed",
		Message: fmt.Sprintf("You earned %d points. New score: %d.", q.ScorePoints, newScore),
		Data:    map[string]any{"quest_id": questID, "points": q.ScorePoints},
	})

	return newScore, nil
}

func (s *ScoreService) GetScore(user string) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, exists := s.profiles[strings.ToLower(user)]; exists {
		return p.Score
	}
	return 0
}

func (s *ScoreService) IsRegistered(user string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.profiles[strings.ToLower(user)]
	return exists
}

func (s *ScoreService) IsVerified(user string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.profiles[strings.ToLower(user)]
	return exists && p.IsVerified
}

func (s *ScoreService) HasCompletedQuest(user, questID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.profiles[strings.ToLower(user)]
	if !exists {
		return false
	}
	_, done := p.Completed[questID]
	return done
}

func (s *ScoreService) GetProfile(user string) (*profile.ProfileResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.profiles[strings.ToLower(user)]
	if !exists {
		return nil, profile.ErrNotRegistered
	}
	return &profile.ProfileResponse{
		Address:         p.Address,
		IsVerified:      p.IsVerified,
		Score:           p.Score,
		RegisteredAt:    p.RegisteredAt,
		VerifiedAt:      p.VerifiedAt,
		CompletedQuests: p.CompletedQuestIDs(),
	}, nil
}

// Restore applies a journaled score event during startup replay.
func (s *ScoreService) Restore(e event.Event) error {
	switch e.Type {
	case event.TypeUserRegistered:
		var p event.UserRegisteredPayload
		if err := e.Decode(&p); err != nil {
			return err
		}
		s.mu.Lock()
		s.profiles[p.Address] = &profile.UserProfile{
			Address:      p.Address,
			RegisteredAt: p.RegisteredAt,
			Completed:    make(map[string]time.Time),
		}
		s.mu.Unlock()

	case event.TypeUserVerified:
		var p event.UserVerifiedPayload
		if err := e.Decode(&p); err != nil {
			return err
		}
		s.mu.Lock()
		if prof, exists := s.profiles[p.Address]; exists && !prof.IsVerified {
			verifiedAt := p.VerifiedAt
			prof.IsVerified = true
			prof.VerifiedAt = &verifiedAt
			prof.Score += p.Points
		}
		s.mu.Unlock()

	case event.TypeQuestCompleted:
		var p event.QuestCompletedPayload
		if err := e.Decode(&p); err != nil {
			return err
		}
		s.mu.Lock()
		if prof, exists := s.profiles[p.Address]; exists {
			if _, done := prof.Completed[p.QuestID]; !done {
				prof.Completed[p.QuestID] = p.CompletedAt
				prof.Score += p.Points
			}
		}
		s.mu.Unlock()
	}
	return nil
}
