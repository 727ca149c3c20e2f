package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"goodCredAPI/internal/quest"
	"goodCredAPI/middleware"
	"goodCredAPI/services"
)

type QuestHandler struct {
	registryService *services.QuestRegistryService
}

func NewQuestHandler(registryService *services.QuestRegistryService) *QuestHandler {
	return &QuestHandler{
		registryService: registryService,
	}
}

func (h *QuestHandler) GetQuests(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]any{
		"quests": h.registryService.GetAllQuests(),
	})
}

func (h *QuestHandler) GetQuest(w http.ResponseWriter, r *http.Request) {
	questID := mux.Vars(r)["questId"]

	q, err := h.registryService.GetQuest(questID)
	if err != nil {
		respondWithError(w, statusForError(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, q)
}

func (h *QuestHandler) CreateQuest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	caller, ok := middleware.GetWalletAddress(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req quest.CreateQuestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	q, err := h.registryService.AddQuest(ctx, caller, &req)
	middleware.RecordLedgerOp("registry", "add_quest", err)
	if err != nil {
		respondWithError(w, statusForError(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusCreated, q)
}

func (h *QuestHandler) UpdateQuest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	caller, ok := middleware.GetWalletAddress(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	questID := mux.Vars(r)["questId"]

	var req quest.UpdateQuestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	q, err := h.registryService.UpdateQuest(ctx, caller, questID, &req)
	middleware.RecordLedgerOp("registry", "update_quest", err)
	if err != nil {
		respondWithError(w, statusForError(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, q)
}

func (h *QuestHandler) ActivateQuest(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *QuestHandler) DeactivateQuest(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *QuestHandler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	caller, ok := middleware.GetWalletAddress(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	questID := mux.Vars(r)["questId"]

	var err error
	if active {
		err = h.registryService.ActivateQuest(ctx, caller, questID)
	} else {
		err = h.registryService.DeactivateQuest(ctx, caller, questID)
	}
	middleware.RecordLedgerOp("registry", "set_active", err)
	if err != nil {
		respondWithError(w, statusForError(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"questId": questID, "isActive": active})
}
