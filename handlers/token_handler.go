package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"goodCredAPI/internal/token"
	"goodCredAPI/middleware"
	"goodCredAPI/services"
)

type TokenHandler struct {
	tokenService *services.TokenService
}

func NewTokenHandler(tokenService *services.TokenService) *TokenHandler {
	return &TokenHandler{
		tokenService: tokenService,
	}
}

func (h *TokenHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	addr, ok := middleware.GetWalletAddress(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	respondWithJSON(w, http.StatusOK, token.BalanceResponse{
		Address: addr,
		Balance: h.tokenService.BalanceOf(addr),
		Symbol:  token.Symbol,
	})
}

func (h *TokenHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	addr, ok := middleware.GetWalletAddress(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req token.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.To == "" {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := h.tokenService.Transfer(ctx, addr, req.To, req.Amount)
	middleware.RecordLedgerOp("token", "transfer", err)
	if err != nil {
		respondWithError(w, statusForError(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, token.BalanceResponse{
		Address: addr,
		Balance: h.tokenService.BalanceOf(addr),
		Symbol:  token.Symbol,
	})
}

// Approve grants the pool (or any spender) an allowance, the same way
// the dashboard calls approve before deposit and repay.
func (h *TokenHandler) Approve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	addr, ok := middleware.GetWalletAddress(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req token.ApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Spender == "" {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := h.tokenService.Approve(ctx, addr, req.Spender, req.Amount)
	middleware.RecordLedgerOp("token", "approve", err)
	if err != nil {
		respondWithError(w, statusForError(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"spender":   req.Spender,
		"allowance": h.tokenService.Allowance(addr, req.Spender),
	})
}

func (h *TokenHandler) Mint(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	caller, ok := middleware.GetWalletAddress(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req token.MintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.To == "" {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := h.tokenService.Mint(ctx, caller, req.To, req.Amount)
	middleware.RecordLedgerOp("token", "mint", err)
	if err != nil {
		respondWithError(w, statusForError(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusCreated, token.BalanceResponse{
		Address: req.To,
		Balance: h.tokenService.BalanceOf(req.To),
		Symbol:  token.Symbol,
	})
}
