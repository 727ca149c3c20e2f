package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"goodCredAPI/middleware"
	"goodCredAPI/services"
)

type LendingHandler struct {
	lendingService *services.LendingService
}

func NewLendingHandler(lendingService *services.LendingService) *LendingHandler {
	return &LendingHandler{
		lendingService: lendingService,
	}
}

func (h *LendingHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	addr, ok := middleware.GetWalletAddress(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var body struct {
		Amount uint64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := h.lendingService.Deposit(ctx, addr, body.Amount)
	middleware.RecordLedgerOp("pool", "deposit", err)
	if err != nil {
		respondWithError(w, statusForError(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, h.lendingService.GetPoolStats())
}

func (h *LendingHandler) Borrow(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	addr, ok := middleware.GetWalletAddress(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var body struct {
		Amount uint64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	l, err := h.lendingService.Borrow(ctx, addr, body.Amount)
	middleware.RecordLedgerOp("pool", "borrow", err)
	if err != nil {
		respondWithError(w, statusForError(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusCreated, l)
}

func (h *LendingHandler) Repay(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	addr, ok := middleware.GetWalletAddress(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var body struct {
		LoanID uint64 `json:"loanId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := h.lendingService.Repay(ctx, addr, body.LoanID)
	middleware.RecordLedgerOp("pool", "repay", err)
	if err != nil {
		respondWithError(w, statusForError(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"loanId": body.LoanID, "isRepaid": true})
}

func (h *LendingHandler) GetMaxLoanAmount(w http.ResponseWriter, r *http.Request) {
	addr, ok := middleware.GetWalletAddress(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"address":       addr,
		"maxLoanAmount": h.lendingService.GetMaxLoanAmount(addr),
	})
}

func (h *LendingHandler) GetActiveLoan(w http.ResponseWriter, r *http.Request) {
	addr, ok := middleware.GetWalletAddress(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	l, err := h.lendingService.GetActiveLoan(addr)
	if err != nil {
		respondWithError(w, statusForError(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, l)
}

func (h *LendingHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := strconv.ParseUint(mux.Vars(r)["loanId"], 10, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid loan id")
		return
	}

	l, err := h.lendingService.GetLoan(loanID)
	if err != nil {
		respondWithError(w, statusForError(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, l)
}

func (h *LendingHandler) GetPoolStats(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.lendingService.GetPoolStats())
}
