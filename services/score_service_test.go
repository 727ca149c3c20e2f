package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goodCredAPI/internal/profile"
	"goodCredAPI/internal/quest"
)

func newTestScoreService() (*ScoreService, *QuestRegistryService, *memoryJournal, *captureNotifier) {
	journal := &memoryJournal{}
	notif := &captureNotifier{}
	registry := NewQuestRegistryService(testOwner, journal)
	score := NewScoreService(testOwner, registry, journal, notif)
	return score, registry, journal, notif
}

func addQuest(t *testing.T, registry *QuestRegistryService, name string, points uint64, qt quest.QuestType) *quest.Quest {
	t.Helper()
	q, err := registry.AddQuest(context.Background(), testOwner, &quest.CreateQuestRequest{
		Name:        name,
		ScorePoints: points,
		QuestType:   qt,
	})
	require.NoError(t, err)
	return q
}

func TestRegisterAndVerify(t *testing.T) {
	ctx := context.Background()
	score, _, _, notif := newTestScoreService()

	user := "0xAliceWallet"

	p, err := score.Register(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, "0xalicewallet", p.Address, "addresses are canonicalized to lowercase")
	assert.Zero(t, p.Score)
	assert.False(t, p.IsVerified)

	_, err = score.Register(ctx, user)
	assert.ErrorIs(t, err, profile.ErrAlreadyRegistered)

	require.NoError(t, score.ConfirmGoodIDVerification(ctx, testOwner, user))
	assert.Equal(t, uint64(profile.GoodIDVerificationPoints), score.GetScore(user))
	assert.True(t, score.IsVerified(user))

	// Second confirmation must not double-count the bonus.
	err = score.ConfirmGoodIDVerification(ctx, testOwner, user)
	assert.ErrorIs(t, err, profile.ErrAlreadyVerified)
	assert.Equal(t, uint64(100), score.GetScore(user))

	sent := notif.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "0xalicewallet", sent[0].Address)
}

func TestConfirmVerificationGuards(t *testing.T) {
	ctx := context.Background()
	score, _, _, _ := newTestScoreService()

	err := score.ConfirmGoodIDVerification(ctx, "0xNotTheOwner", "0xalice")
	assert.ErrorIs(t, err, quest.ErrUnauthorized)

	err = score.ConfirmGoodIDVerification(ctx, testOwner, "0xneverregistered")
	assert.ErrorIs(t, err, profile.ErrNotRegistered)
}

func TestCompleteOnChainQuest(t *testing.T) {
	ctx := context.Background()
	score, registry, _, _ := newTestScoreService()
	q := addQuest(t, registry, "swap-once", 50, quest.TypeOnChain)

	user := "0xbob"
	_, err := score.Register(ctx, user)
	require.NoError(t, err)
	require.NoError(t, score.ConfirmGoodIDVerification(ctx, testOwner, user))

	newScore, err := score.CompleteOnChainQuest(ctx, user, q.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(150), newScore, "100 verification + 50 quest")
	assert.True(t, score.HasCompletedQuest(user, q.ID))

	_, err = score.CompleteOnChainQuest(ctx, user, q.ID)
	assert.ErrorIs(t, err, profile.ErrQuestAlreadyCompleted)
	assert.Equal(t, uint64(150), score.GetScore(user), "double completion must not add points")
}

func TestCompleteQuestPreconditions(t *testing.T) {
	ctx := context.Background()
	score, registry, _, _ := newTestScoreService()
	onChain := addQuest(t, registry, "vote", 30, quest.TypeOnChain)
	offChain := addQuest(t, registry, "link-twitter", 20, quest.TypeOffChain)

	user := "0xcarol"

	_, err := score.CompleteOnChainQuest(ctx, user, onChain.ID)
	assert.ErrorIs(t, err, profile.ErrNotRegistered)

	_, err = score.Register(ctx, user)
	require.NoError(t, err)

	_, err = score.CompleteOnChainQuest(ctx, user, onChain.ID)
	assert.ErrorIs(t, err, profile.ErrNotVerified, "unverified users cannot complete quests")

	require.NoError(t, score.ConfirmGoodIDVerification(ctx, testOwner, user))

	_, err = score.CompleteOnChainQuest(ctx, user, "0xunknownquest")
	assert.ErrorIs(t, err, quest.ErrQuestNotFound)

	// Wrong endpoint for the quest type.
	_, err = score.CompleteOnChainQuest(ctx, user, offChain.ID)
	assert.ErrorIs(t, err, profile.ErrWrongQuestType)

	require.NoError(t, registry.DeactivateQuest(ctx, testOwner, onChain.ID))
	_, err = score.CompleteOnChainQuest(ctx, user, onChain.ID)
	assert.ErrorIs(t, err, quest.ErrQuestInactive)
}

func TestCompleteOffChainQuestRequiresProof(t *testing.T) {
	ctx := context.Background()
	score, registry, _, _ := newTestScoreService()
	q := addQuest(t, registry, "reclaim-github", 40, quest.TypeOffChain)

	user := "0xdave"
	_, err := score.Register(ctx, user)
	require.NoError(t, err)
	require.NoError(t, score.ConfirmGoodIDVerification(ctx, testOwner, user))

	_, err = score.CompleteOffChainQuest(ctx, user, q.ID, nil)
	assert.Error(t, err)

	newScore, err := score.CompleteOffChainQuest(ctx, user, q.ID, []byte(`{"claim":"github"}`))
	require.NoError(t, err)
	assert.Equal(t, uint64(140), newScore)
}

func TestGetProfile(t *testing.T) {
	ctx := context.Background()
	score, registry, _, _ := newTestScoreService()
	q := addQuest(t, registry, "bridge", 10, quest.TypeOnChain)

	_, err := score.GetProfile("0xmissing")
	assert.ErrorIs(t, err, profile.ErrNotRegistered)

	user := "0xerin"
	_, err = score.Register(ctx, user)
	require.NoError(t, err)
	require.NoError(t, score.ConfirmGoodIDVerification(ctx, testOwner, user))
	_, err = score.CompleteOnChainQuest(ctx, user, q.ID)
	require.NoError(t, err)

	p, err := score.GetProfile(user)
	require.NoError(t, err)
	assert.Equal(t, uint64(110), p.Score)
	assert.True(t, p.IsVerified)
	require.NotNil(t, p.VerifiedAt)
	assert.Equal(t, []string{q.ID}, p.CompletedQuests)
}

func TestScoreReplayRebuildsProfiles(t *testing.T) {
	ctx := context.Background()
	score, registry, journal, _ := newTestScoreService()
	q := addQuest(t, registry, "replay-me", 50, quest.TypeOnChain)

	user := "0xfrank"
	_, err := score.Register(ctx, user)
	require.NoError(t, err)
	require.NoError(t, score.ConfirmGoodIDVerification(ctx, testOwner, user))
	_, err = score.CompleteOnChainQuest(ctx, user, q.ID)
	require.NoError(t, err)

	freshRegistry := NewQuestRegistryService(testOwner, &memoryJournal{})
	fresh := NewScoreService(testOwner, freshRegistry, &memoryJournal{}, &captureNotifier{})
	for _, e := range journal.Events() {
		require.NoError(t, freshRegistry.Restore(e))
		require.NoError(t, fresh.Restore(e))
	}

	assert.Equal(t, uint64(150), fresh.GetScore(user))
	assert.True(t, fresh.IsVerified(user))
	assert.True(t, fresh.HasCompletedQuest(user, q.ID))
}
