package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"goodCredAPI/internal/loan"
	"goodCredAPI/internal/profile"
	"goodCredAPI/internal/quest"
	"goodCredAPI/internal/token"
	"goodCredAPI/middleware"
	"goodCredAPI/services"
)

type ScoreHandler struct {
	scoreService *services.ScoreService
}

func NewScoreHandler(scoreService *services.ScoreService) *ScoreHandler {
	return &ScoreHandler{
		scoreService: scoreService,
	}
}

func (h *ScoreHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	addr, ok := middleware.GetWalletAddress(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	p, err := h.scoreService.Register(ctx, addr)
	middleware.RecordLedgerOp("score", "register", err)
	if err != nil {
		respondWithError(w, statusForError(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusCreated, p)
}

func (h *ScoreHandler) GetOwnScore(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	addr, ok := middleware.GetWalletAddress(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"address":      addr,
		"score":        h.scoreService.GetScore(addr),
		"isRegistered": h.scoreService.IsRegistered(addr),
		"isVerified":   h.scoreService.IsVerified(addr),
	})
}

func (h *ScoreHandler) GetOwnProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	addr, ok := middleware.GetWalletAddress(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	p, err := h.scoreService.GetProfile(addr)
	if err != nil {
		respondWithError(w, statusForError(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, p)
}

// GetUserScore is the public read the lending dashboard uses for any
// address.
func (h *ScoreHandler) GetUserScore(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	respondWithJSON(w, http.StatusOK, map[string]any{
		"address":      address,
		"score":        h.scoreService.GetScore(address),
		"isRegistered": h.scoreService.IsRegistered(address),
		"isVerified":   h.scoreService.IsVerified(address),
	})
}

func (h *ScoreHandler) GetUserProfile(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	p, err := h.scoreService.GetProfile(address)
	if err != nil {
		respondWithError(w, statusForError(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, p)
}

func (h *ScoreHandler) CompleteOnChainQuest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	addr, ok := middleware.GetWalletAddress(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	questID := mux.Vars(r)["questId"]

	newScore, err := h.scoreService.CompleteOnChainQuest(ctx, addr, questID)
	middleware.RecordLedgerOp("score", "complete_onchain_quest", err)
	if err != nil {
		respondWithError(w, statusForError(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"questId": questID, "score": newScore})
}

func (h *ScoreHandler) CompleteOffChainQuest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	addr, ok := middleware.GetWalletAddress(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	questID := mux.Vars(r)["questId"]

	var body struct {
		Proof string `json:"proof"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if body.Proof == "" {
		respondWithError(w, http.StatusBadRequest, "Reclaim proof is required")
		return
	}

	newScore, err := h.scoreService.CompleteOffChainQuest(ctx, addr, questID, []byte(body.Proof))
	middleware.RecordLedgerOp("score", "complete_offchain_quest", err)
	if err != nil {
		respondWithError(w, statusForError(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"questId": questID, "score": newScore})
}

// ConfirmVerification is the owner-submitted GoodID confirmation.
func (h *ScoreHandler) ConfirmVerification(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	caller, ok := middleware.GetWalletAddress(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var body struct {
		Address string `json:"address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Address == "" {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := h.scoreService.ConfirmGoodIDVerification(ctx, caller, body.Address)
	middleware.RecordLedgerOp("score", "confirm_verification", err)
	if err != nil {
		log.Printf("ConfirmVerification: %s -> %s failed: %v", caller, body.Address, err)
		respondWithError(w, statusForError(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Verification confirmed"})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Failed to marshal response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// statusForError maps ledger sentinel errors onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, quest.ErrUnauthorized), errors.Is(err, token.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, quest.ErrQuestNotFound),
		errors.Is(err, loan.ErrLoanNotFound),
		errors.Is(err, loan.ErrNoActiveLoan),
		errors.Is(err, profile.ErrNotRegistered):
		return http.StatusNotFound
	case errors.Is(err, quest.ErrDuplicateQuest),
		errors.Is(err, quest.ErrQuestInactive),
		errors.Is(err, profile.ErrAlreadyRegistered),
		errors.Is(err, profile.ErrAlreadyVerified),
		errors.Is(err, profile.ErrNotVerified),
		errors.Is(err, profile.ErrQuestAlreadyCompleted),
		errors.Is(err, profile.ErrWrongQuestType),
		errors.Is(err, loan.ErrActiveLoanExists),
		errors.Is(err, loan.ErrLoanAlreadyRepaid):
		return http.StatusConflict
	case errors.Is(err, loan.ErrCreditLimitExceeded),
		errors.Is(err, loan.ErrInsufficientPoolLiquidity),
		errors.Is(err, loan.ErrTransferFailed),
		errors.Is(err, token.ErrInsufficientBalance),
		errors.Is(err, token.ErrInsufficientAllowance):
		return http.StatusUnprocessableEntity
	case errors.Is(err, loan.ErrInvalidAmount), errors.Is(err, token.ErrInvalidAmount):
		return http.StatusBadRequest
	default:
		return http.StatusBadRequest
	}
}
