package services

import (
	"context"
	"strings"
	"sync"

	"goodCredAPI/internal/event"
	"goodCredAPI/internal/token"
)

// TokenService is the fungible G$ ledger the lending pool moves funds
// through: balances, allowances and an owner-gated mint. Every movement
// is all-or-nothing under the ledger lock, and its event is journaled
// before the lock is released so journal order matches apply order.
type TokenService struct {
	mu         sync.RWMutex
	owner      string
	balances   map[string]uint64
	allowances map[string]map[string]uint64
	journal    Journal
}

func NewTokenService(owner string, journal Journal) *TokenService {
	return &TokenService{
		owner:      strings.ToLower(owner),
		balances:   make(map[string]uint64),
		allowances: make(map[string]map[string]uint64),
		journal:    journal,
	}
}

func (s *TokenService) Mint(ctx context.Context, caller, to string, amount uint64) error {
	if !strings.EqualFold(caller, s.owner) {
		return token.ErrUnauthorized
	}
	if amount == 0 {
		return token.ErrInvalidAmount
	}
	to = strings.ToLower(to)

	s.mu.Lock()
	s.balances[to] += amount
	s.journal.Append(ctx, event.New(event.TypeTokensMinted, caller, event.TokensMintedPayload{
		To:     to,
		Amount: amount,
	}))
	s.mu.Unlock()
	return nil
}

func (s *TokenService) Transfer(ctx context.Context, from, to string, amount uint64) error {
	if amount == 0 {
		return token.ErrInvalidAmount
	}
	from = strings.ToLower(from)
	to = strings.ToLower(to)

	s.mu.Lock()
	if s.balances[from] < amount {
		s.mu.Unlock()
		return token.ErrInsufficientBalance
	}
	s.balances[from] -= amount
	s.balances[to] += amount
	s.journal.Append(ctx, event.New(event.TypeTokenTransfer, from, event.TokenTransferPayload{
		From:   from,
		To:     to,
		Amount: amount,
	}))
	s.mu.Unlock()
	return nil
}

func (s *TokenService) Approve(ctx context.Context, owner, spender string, amount uint64) error {
	owner = strings.ToLower(owner)
	spender = strings.ToLower(spender)

	s.mu.Lock()
	if s.allowances[owner] == nil {
		s.allowances[owner] = make(map[string]uint64)
	}
	s.allowances[owner][spender] = amount
	s.journal.Append(ctx, event.New(event.TypeTokenApproval, owner, event.TokenApprovalPayload{
		Owner:   owner,
		Spender: spender,
		Amount:  amount,
	}))
	s.mu.Unlock()
	return nil
}

// TransferFrom spends an allowance granted by from to spender. The
// allowance and balance checks and the movement happen under one lock.
func (s *TokenService) TransferFrom(ctx context.Context, spender, from, to string, amount uint64) error {
	if amount == 0 {
		return token.ErrInvalidAmount
	}
	spender = strings.ToLower(spender)
	from = strings.ToLower(from)
	to = strings.ToLower(to)

	s.mu.Lock()
	allowed := uint64(0)
	if s.allowances[from] != nil {
		allowed = s.allowances[from][spender]
	}
	if allowed < amount {
		s.mu.Unlock()
		return token.ErrInsufficientAllowance
	}
	if s.balances[from] < amount {
		s.mu.Unlock()
		return token.ErrInsufficientBalance
	}
	s.allowances[from][spender] = allowed - amount
	s.balances[from] -= amount
	s.balances[to] += amount
	s.journal.Append(ctx, event.New(event.TypeTokenTransfer, spender, event.TokenTransferPayload{
		From:    from,
		To:      to,
		Amount:  amount,
		Spender: spender,
	}))
	s.mu.Unlock()
	return nil
}

func (s *TokenService) BalanceOf(addr string) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[strings.ToLower(addr)]
}

func (s *TokenService) Allowance(owner, spender string) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if m := s.allowances[strings.ToLower(owner)]; m != nil {
		return m[strings.ToLower(spender)]
	}
	return 0
}

// Restore applies a journaled token event during startup replay.
func (s *TokenService) Restore(e event.Event) error {
	switch e.Type {
	case event.TypeTokensMinted:
		var p event.TokensMintedPayload
		if err := e.Decode(&p); err != nil {
			return err
		}
		s.mu.Lock()
		s.balances[p.To] += p.Amount
		s.mu.Unlock()

	case event.TypeTokenTransfer:
		var p event.TokenTransferPayload
		if err := e.Decode(&p); err != nil {
			return err
		}
		s.mu.Lock()
		if s.balances[p.From] >= p.Amount {
			s.balances[p.From] -= p.Amount
			s.balances[p.To] += p.Amount
			if p.Spender != "" && s.allowances[p.From] != nil && s.allowances[p.From][p.Spender] >= p.Amount {
				s.allowances[p.From][p.Spender] -= p.Amount
			}
		}
		s.mu.Unlock()

	case event.TypeTokenApproval:
		var p event.TokenApprovalPayload
		if err := e.Decode(&p); err != nil {
			return err
		}
		s.mu.Lock()
		if s.allowances[p.Owner] == nil {
			s.allowances[p.Owner] = make(map[string]uint64)
		}
		s.allowances[p.Owner][p.Spender] = p.Amount
		s.mu.Unlock()
	}
	return nil
}
