package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goodCredAPI/internal/event"
	"goodCredAPI/internal/loan"
	"goodCredAPI/internal/notification"
	"goodCredAPI/middleware"
	"goodCredAPI/services"
)

const flowOwner = "0xowner"

type nopJournal struct{}

func (nopJournal) Append(context.Context, event.Event) {}

type nopNotifier struct{}

func (n *nopNotifier) Notify(context.Context, *notification.CreateNotificationRequest) {}

type protocolFixture struct {
	registry *services.QuestRegistryService
	score    *services.ScoreService
	tokens   *services.TokenService
	lending  *services.LendingService

	questHandler   *QuestHandler
	scoreHandler   *ScoreHandler
	lendingHandler *LendingHandler
	tokenHandler   *TokenHandler
}

func newProtocolFixture() *protocolFixture {
	journal := nopJournal{}
	notif := &nopNotifier{}
	registry := services.NewQuestRegistryService(flowOwner, journal)
	score := services.NewScoreService(flowOwner, registry, journal, notif)
	tokens := services.NewTokenService(flowOwner, journal)
	lending := services.NewLendingService(score, tokens, journal, notif)

	return &protocolFixture{
		registry:       registry,
		score:          score,
		tokens:         tokens,
		lending:        lending,
		questHandler:   NewQuestHandler(registry),
		scoreHandler:   NewScoreHandler(score),
		lendingHandler: NewLendingHandler(lending),
		tokenHandler:   NewTokenHandler(tokens),
	}
}

// authedRequest builds a request carrying the wallet address the auth
// middleware would have extracted from a valid session token.
func authedRequest(method, target, body, wallet string, vars map[string]string) *http.Request {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	ctx := context.WithValue(r.Context(), middleware.WalletAddressKey, strings.ToLower(wallet))
	r = r.WithContext(ctx)
	if vars != nil {
		r = mux.SetURLVars(r, vars)
	}
	return r
}

// TestFullProtocolFlow walks a user through the whole protocol: register,
// verify, complete a quest, then borrow against the score and repay.
func TestFullProtocolFlow(t *testing.T) {
	f := newProtocolFixture()
	ctx := context.Background()
	alice := "0xalice"

	t.Log("Step 1: Owner creates a quest")
	rr := httptest.NewRecorder()
	f.questHandler.CreateQuest(rr, authedRequest(http.MethodPost, "/api/v1/admin/quests",
		`{"name": "first-swap", "description": "Make a swap", "scorePoints": 50, "questType": "ON_CHAIN"}`,
		flowOwner, nil))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)

	t.Log("Step 2: Non-owner quest creation is forbidden")
	rr = httptest.NewRecorder()
	f.questHandler.CreateQuest(rr, authedRequest(http.MethodPost, "/api/v1/admin/quests",
		`{"name": "evil", "scorePoints": 9999, "questType": "ON_CHAIN"}`, alice, nil))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	t.Log("Step 3: Alice registers")
	rr = httptest.NewRecorder()
	f.scoreHandler.Register(rr, authedRequest(http.MethodPost, "/api/v1/score/register", "", alice, nil))
	require.Equal(t, http.StatusCreated, rr.Code)

	t.Log("Step 4: Completing a quest before verification fails")
	rr = httptest.NewRecorder()
	f.scoreHandler.CompleteOnChainQuest(rr, authedRequest(http.MethodPost,
		"/api/v1/score/quests/"+created.ID+"/complete", "", alice, map[string]string{"questId": created.ID}))
	assert.Equal(t, http.StatusConflict, rr.Code)

	t.Log("Step 5: Owner confirms Alice's GoodID verification")
	rr = httptest.NewRecorder()
	f.scoreHandler.ConfirmVerification(rr, authedRequest(http.MethodPost, "/api/v1/admin/verifications",
		`{"address": "0xalice"}`, flowOwner, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, uint64(100), f.score.GetScore(alice))

	t.Log("Step 6: Alice completes the quest")
	rr = httptest.NewRecorder()
	f.scoreHandler.CompleteOnChainQuest(rr, authedRequest(http.MethodPost,
		"/api/v1/score/quests/"+created.ID+"/complete", "", alice, map[string]string{"questId": created.ID}))
	require.Equal(t, http.StatusOK, rr.Code)

	var completion struct {
		Score uint64 `json:"score"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &completion))
	assert.Equal(t, uint64(150), completion.Score)

	t.Log("Step 7: Completing the same quest again conflicts")
	rr = httptest.NewRecorder()
	f.scoreHandler.CompleteOnChainQuest(rr, authedRequest(http.MethodPost,
		"/api/v1/score/quests/"+created.ID+"/complete", "", alice, map[string]string{"questId": created.ID}))
	assert.Equal(t, http.StatusConflict, rr.Code)

	t.Log("Step 8: A lender funds the pool")
	require.NoError(t, f.tokens.Mint(ctx, flowOwner, "0xlender", 100_000))
	rr = httptest.NewRecorder()
	f.tokenHandler.Approve(rr, authedRequest(http.MethodPost, "/api/v1/token/approve",
		`{"spender": "goodcred-pool", "amount": 100000}`, "0xlender", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	f.lendingHandler.Deposit(rr, authedRequest(http.MethodPost, "/api/v1/lending/deposit",
		`{"amount": 100000}`, "0xlender", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	t.Log("Step 9: Alice checks her credit limit")
	rr = httptest.NewRecorder()
	f.lendingHandler.GetMaxLoanAmount(rr, authedRequest(http.MethodGet, "/api/v1/lending/max-loan", "", alice, nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var limit struct {
		MaxLoanAmount uint64 `json:"maxLoanAmount"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &limit))
	assert.Equal(t, uint64(15_000), limit.MaxLoanAmount, "score 150 * 100")

	t.Log("Step 10: Borrowing over the limit is rejected")
	rr = httptest.NewRecorder()
	f.lendingHandler.Borrow(rr, authedRequest(http.MethodPost, "/api/v1/lending/borrow",
		`{"amount": 20000}`, alice, nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	t.Log("Step 11: Alice borrows within the limit")
	rr = httptest.NewRecorder()
	f.lendingHandler.Borrow(rr, authedRequest(http.MethodPost, "/api/v1/lending/borrow",
		`{"amount": 5000}`, alice, nil))
	require.Equal(t, http.StatusCreated, rr.Code)

	var l loan.Loan
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &l))
	assert.Equal(t, uint64(5250), l.AmountDue)
	assert.Equal(t, uint64(5000), f.tokens.BalanceOf(alice))

	t.Log("Step 12: A second loan while one is active conflicts")
	rr = httptest.NewRecorder()
	f.lendingHandler.Borrow(rr, authedRequest(http.MethodPost, "/api/v1/lending/borrow",
		`{"amount": 100}`, alice, nil))
	assert.Equal(t, http.StatusConflict, rr.Code)

	t.Log("Step 13: Alice repays and can see the loan settled")
	require.NoError(t, f.tokens.Mint(ctx, flowOwner, alice, 250))
	rr = httptest.NewRecorder()
	f.tokenHandler.Approve(rr, authedRequest(http.MethodPost, "/api/v1/token/approve",
		`{"spender": "goodcred-pool", "amount": 5250}`, alice, nil))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	f.lendingHandler.Repay(rr, authedRequest(http.MethodPost, "/api/v1/lending/repay",
		`{"loanId": 1}`, alice, nil))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	f.lendingHandler.GetActiveLoan(rr, authedRequest(http.MethodGet, "/api/v1/lending/active-loan", "", alice, nil))
	assert.Equal(t, http.StatusNotFound, rr.Code, "no active loan after repayment")

	rr = httptest.NewRecorder()
	f.lendingHandler.GetLoan(rr, authedRequest(http.MethodGet, "/api/v1/lending/loans/1", "", alice,
		map[string]string{"loanId": "1"}))
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &l))
	assert.True(t, l.IsRepaid)
}

func TestRegisterRequiresAuth(t *testing.T) {
	f := newProtocolFixture()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/score/register", bytes.NewReader(nil))
	rr := httptest.NewRecorder()
	f.scoreHandler.Register(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestGetPublicQuestsAndPool(t *testing.T) {
	f := newProtocolFixture()

	rr := httptest.NewRecorder()
	f.questHandler.GetQuests(rr, httptest.NewRequest(http.MethodGet, "/api/v1/quests", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var quests struct {
		Quests []json.RawMessage `json:"quests"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &quests))
	assert.Empty(t, quests.Quests)

	rr = httptest.NewRecorder()
	f.lendingHandler.GetPoolStats(rr, httptest.NewRequest(http.MethodGet, "/api/v1/pool", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var stats loan.PoolStats
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stats))
	assert.Zero(t, stats.AvailableFunds)
}
