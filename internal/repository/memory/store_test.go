package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heritagequest/internal/models"
)

var seedTime = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

func TestSeedMatchesCatalog(t *testing.T) {
	s := New()
	s.Seed(seedTime)
	ctx := context.Background()

	quests, err := s.ListQuests(ctx)
	require.NoError(t, err)
	require.Len(t, quests, 3)
	for _, q := range quests {
		assert.Empty(t, q.Questions, q.ID)
	}

	q, err := s.GetQuest(ctx, "traditions")
	require.NoError(t, err)
	require.Len(t, q.Questions, 3)
	assert.Equal(t, 150, q.Questions[1].Points)

	// Callers get copies
	q.Questions[0].Text = "changed"
	again, _ := s.GetQuest(ctx, "traditions")
	assert.NotEqual(t, "changed", again.Questions[0].Text)

	missing, err := s.GetQuest(ctx, "atlantis")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestWalletUsedOnce(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.InsertWalletItem(ctx, models.WalletItem{ID: "w1", UserID: "u1", ShopItemID: "hint-token"}))
	require.NoError(t, s.InsertWalletItem(ctx, models.WalletItem{ID: "w2", UserID: "u2", ShopItemID: "hint-token"}))

	items, err := s.ListWalletItems(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 1)

	flipped, err := s.MarkWalletItemUsed(ctx, "w1")
	require.NoError(t, err)
	assert.True(t, flipped)

	flipped, err = s.MarkWalletItemUsed(ctx, "w1")
	require.NoError(t, err)
	assert.False(t, flipped)

	flipped, err = s.MarkWalletItemUsed(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, flipped)
}

func TestFailWith(t *testing.T) {
	s := New()
	boom := errors.New("boom")
	s.FailWith(boom)

	_, err := s.GetProfile(context.Background(), "u1")
	assert.ErrorIs(t, err, boom)

	s.FailWith(nil)
	p, err := s.GetProfile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestCompleteQuestCountsFirstCompletionOnly(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.PutProfile(models.NewProfile("u1", "curious-owl", 5, seedTime))

	p, inserted, err := s.CompleteQuest(ctx, "u1", "founders", seedTime)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, 1, p.TotalQuestsCompleted)

	p, inserted, err = s.CompleteQuest(ctx, "u1", "founders", seedTime)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Nil(t, p)

	_, _, err = s.CompleteQuest(ctx, "ghost", "founders", seedTime)
	assert.Error(t, err)
	done, err := s.IsQuestCompleted(ctx, "ghost", "founders")
	require.NoError(t, err)
	assert.False(t, done)
}
