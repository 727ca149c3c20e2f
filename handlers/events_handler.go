package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"goodCredAPI/middleware"
	"goodCredAPI/services"
)

// EventsHandler serves the admin protocol event feed.
type EventsHandler struct {
	journalService *services.JournalService
	owner          string
}

func NewEventsHandler(journalService *services.JournalService, owner string) *EventsHandler {
	return &EventsHandler{
		journalService: journalService,
		owner:          strings.ToLower(owner),
	}
}

func (h *EventsHandler) GetRecentEvents(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	caller, ok := middleware.GetWalletAddress(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}
	if caller != h.owner {
		respondWithError(w, http.StatusForbidden, "Owner only")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	events, err := h.journalService.Recent(ctx, limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"events": events})
}
