package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"os"

	"goodCredAPI/middleware"
	"goodCredAPI/services"
)

// WebhookHandler receives the GoodID verification callback. The identity
// check itself happens in the provider's popup flow; this endpoint only
// authenticates the callback and confirms the user in the score ledger.
type WebhookHandler struct {
	scoreService *services.ScoreService
}

func NewWebhookHandler(scoreService *services.ScoreService) *WebhookHandler {
	return &WebhookHandler{
		scoreService: scoreService,
	}
}

type goodIDWebhookEvent struct {
	Type string `json:"type"`
	Data struct {
		WalletAddress string `json:"wallet_address"`
		Provider      string `json:"provider"`
	} `json:"data"`
}

func (h *WebhookHandler) HandleGoodIDWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Printf("Error reading webhook body: %v", err)
		http.Error(w, "Error reading body", http.StatusBadRequest)
		return
	}

	if !verifyGoodIDSignature(r, body) {
		log.Println("Invalid webhook signature")
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	var event goodIDWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Printf("Error parsing webhook: %v", err)
		http.Error(w, "Error parsing webhook", http.StatusBadRequest)
		return
	}

	log.Printf("Received GoodID webhook event: %s", event.Type)

	switch event.Type {
	case "verification.completed":
		if event.Data.WalletAddress == "" {
			http.Error(w, "Missing wallet address", http.StatusBadRequest)
			return
		}
		err := h.scoreService.VerifyIdentity(r.Context(), event.Data.WalletAddress)
		middleware.RecordLedgerOp("score", "verify_identity", err)
		if err != nil {
			log.Printf("Error confirming verification for %s: %v", event.Data.WalletAddress, err)
			respondWithError(w, statusForError(err), err.Error())
			return
		}

	default:
		log.Printf("Unhandled webhook event type: %s", event.Type)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"success": true}`))
}

func verifyGoodIDSignature(r *http.Request, body []byte) bool {
	webhookSecret := os.Getenv("GOODID_WEBHOOK_SECRET")
	if webhookSecret == "" {
		log.Println("GOODID_WEBHOOK_SECRET not set, skipping signature verification")
		return true
	}

	signature := r.Header.Get("X-GoodID-Signature")
	if signature == "" {
		log.Println("Missing webhook signature header")
		return false
	}

	mac := hmac.New(sha256.New, []byte(webhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(signature), []byte(expected))
}
