package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"goodCredAPI/internal/event"
	"goodCredAPI/internal/quest"
	"goodCredAPI/utils"
)

// Journal receives one event after every successful state-changing
// operation. Services call Append while still holding their ledger
// lock, so the journal's sequence order always matches the order the
// mutations were applied; replay depends on that. Append failures must
// not abort the already-committed operation; implementations log and
// move on.
type Journal interface {
	Append(ctx context.Context, e event.Event)
}

// QuestRegistryService owns the quest catalog. Quests are never deleted,
// only deactivated, and id listing preserves insertion order.
type QuestRegistryService struct {
	mu      sync.RWMutex
	owner   string
	quests  map[string]*quest.Quest
	order   []string
	journal Journal
}

func NewQuestRegistryService(owner string, journal Journal) *QuestRegistryService {
	return &QuestRegistryService{
		owner:   strings.ToLower(owner),
		quests:  make(map[string]*quest.Quest),
		journal: journal,
	}
}

func (s *QuestRegistryService) AddQuest(ctx context.Context, caller string, req *quest.CreateQuestRequest) (*quest.Quest, error) {
	if !strings.EqualFold(caller, s.owner) {
		return nil, quest.ErrUnauthorized
	}
	if req.ScorePoints == 0 {
		return nil, fmt.Errorf("scorePoints must be positive")
	}
	if req.QuestType != quest.TypeOnChain && req.QuestType != quest.TypeOffChain {
		return nil, fmt.Errorf("unknown quest type %q", req.QuestType)
	}

	id := req.QuestID
	if id == "" {
		id = utils.DeriveQuestID(req.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.quests[id]; exists {
		return nil, quest.ErrDuplicateQuest
	}

	now := time.Now().UTC()
	q := &quest.Quest{
		ID:               id,
		Description:      req.Description,
		ScorePoints:      req.ScorePoints,
		QuestType:        req.QuestType,
		TargetContract:   req.TargetContract,
		ReclaimProvider:  req.ReclaimProvider,
		ReclaimClaimData: req.ReclaimClaimData,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	s.quests[id] = q
	s.order = append(s.order, id)

	s.journal.Append(ctx, event.New(event.TypeQuestAdded, caller, event.QuestAddedPayload{Quest: *q}))

	out := *q
	return &out, nil
}

func (s *QuestRegistryService) UpdateQuest(ctx context.Context, caller, questID string, req *quest.UpdateQuestRequest) (*quest.Quest, error) {
	if !strings.EqualFold(caller, s.owner) {
		return nil, quest.ErrUnauthorized
	}
	if req.ScorePoints == 0 {
		return nil, fmt.Errorf("scorePoints must be positive")
	}
	if req.QuestType != quest.TypeOnChain && req.QuestType != quest.TypeOffChain {
		return nil, fmt.Errorf("unknown quest type %q", req.QuestType)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	q, exists := s.quests[questID]
	if !exists {
		return nil, quest.ErrQuestNotFound
	}

	q.Description = req.Description
	q.ScorePoints = req.ScorePoints
	q.QuestType = req.QuestType
	q.TargetContract = req.TargetContract
	q.ReclaimProvider = req.ReclaimProvider
	q.ReclaimClaimData = req.ReclaimClaimData
	q.UpdatedAt = time.Now().UTC()

	s.journal.Append(ctx, event.New(event.TypeQuestUpdated, caller, event.QuestUpdatedPayload{Quest: *q}))

	out := *q
	return &out, nil
}

func (s *QuestRegistryService) ActivateQuest(ctx context.Context, caller, questID string) error {
	return s.setActive(ctx, caller, questID, true)
}

func (s *QuestRegistryService) DeactivateQuest(ctx context.Context, caller, questID string) error {
	return s.setActive(ctx, caller, questID, false)
}

func (s *QuestRegistryService) setActive(ctx context.Context, caller, questID string, active bool) error {
	if !strings.EqualFold(caller, s.owner) {
		return quest.ErrUnauthorized
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	q, exists := s.quests[questID]
	if !exists {
		return quest.ErrQuestNotFound
	}
	if q.IsActive == active {
		return nil
	}
	q.IsActive = active
	q.UpdatedAt = time.Now().UTC()

	evtType := event.TypeQuestActivated
	if !active {
		evtType = event.TypeQuestDeactivated
	}
	s.journal.Append(ctx, event.New(evtType, caller, event.QuestActivePayload{QuestID: questID, IsActive: active}))

	return nil
}

func (s *QuestRegistryService) GetQuest(questID string) (*quest.Quest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, exists := s.quests[questID]
	if !exists {
		return nil, quest.ErrQuestNotFound
	}
	out := *q
	return &out, nil
}

func (s *QuestRegistryService) GetAllQuestIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, len(s.order))
	copy(ids, s.order)
	return ids
}

// GetAllQuests returns the catalog in insertion order; the dashboard
// quest board reads this.
func (s *QuestRegistryService) GetAllQuests() []*quest.Quest {
	s.mu.RLock()
	defer s.mu.RUnlock()

	quests := make([]*quest.Quest, 0, len(s.order))
	for _, id := range s.order {
		q := *s.quests[id]
		quests = append(quests, &q)
	}
	return quests
}

func (s *QuestRegistryService) IsQuestActive(questID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, exists := s.quests[questID]
	return exists && q.IsActive
}

// Restore applies a journaled registry event during startup replay.
// Authorization was checked when the event was recorded.
func (s *QuestRegistryService) Restore(e event.Event) error {
	switch e.Type {
	case event.TypeQuestAdded:
		var p event.QuestAddedPayload
		if err := e.Decode(&p); err != nil {
			return err
		}
		s.mu.Lock()
		q := p.Quest
		s.quests[q.ID] = &q
		s.order = append(s.order, q.ID)
		s.mu.Unlock()

	case event.TypeQuestUpdated:
		var p event.QuestUpdatedPayload
		if err := e.Decode(&p); err != nil {
			return err
		}
		s.mu.Lock()
		q := p.Quest
		s.quests[q.ID] = &q
		s.mu.Unlock()

	case event.TypeQuestActivated, event.TypeQuestDeactivated:
		var p event.QuestActivePayload
		if err := e.Decode(&p); err != nil {
			return err
		}
		s.mu.Lock()
		if q, exists := s.quests[p.QuestID]; exists {
			q.IsActive = p.IsActive
		}
		s.mu.Unlock()
	}
	return nil
}
