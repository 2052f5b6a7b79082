package progression

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heritagequest/internal/models"
	"heritagequest/internal/repository/memory"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestService(t *testing.T) (*Service, *memory.Store, *fakeClock) {
	t.Helper()
	store := memory.New()
	clock := &fakeClock{now: baseTime}
	svc := NewService(store, nil, Options{
		MaxLives:      5,
		LivesCooldown: time.Hour,
		Clock:         clock.Now,
		NameGenerator: func() (string, error) { return "brave-explorer", nil },
	})
	return svc, store, clock
}

func TestGetProfileCreatesDefaults(t *testing.T) {
	svc, _, _ := newTestService(t)

	p, err := svc.GetProfile(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", p.UserID)
	assert.Equal(t, "brave-explorer", p.DisplayName)
	assert.Equal(t, 5, p.Lives)
	assert.Equal(t, 5, p.MaxLives)
	assert.Zero(t, p.TotalPoints)
}

func TestUnauthorizedOperations(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddPoints(ctx, "", 10)
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = svc.LoseLife(ctx, "")
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, _, err = svc.CompleteQuest(ctx, "", "old-campus")
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = svc.GetCompletedQuests(ctx, "")
	assert.ErrorIs(t, err, ErrUnauthorized)

	p, err := store.GetProfile(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, p, "no profile should be created for an anonymous caller")
}

func TestAddAndRemovePoints(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	p, err := svc.AddPoints(ctx, "user-1", 120)
	require.NoError(t, err)
	assert.Equal(t, 120, p.TotalPoints)

	p, err = svc.RemovePoints(ctx, "user-1", 20)
	require.NoError(t, err)
	assert.Equal(t, 100, p.TotalPoints)

	p, err = svc.RemovePoints(ctx, "user-1", 500)
	require.NoError(t, err)
	assert.Equal(t, 0, p.TotalPoints, "balance floors at zero")

	_, err = svc.AddPoints(ctx, "user-1", -5)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestSpendPoints(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.AddPoints(ctx, "user-1", 100)
	require.NoError(t, err)

	p, err := svc.SpendPoints(ctx, "user-1", 150)
	assert.ErrorIs(t, err, ErrInsufficientPoints)
	assert.Equal(t, 100, p.TotalPoints)

	p, err = svc.SpendPoints(ctx, "user-1", 60)
	require.NoError(t, err)
	assert.Equal(t, 40, p.TotalPoints)
}

func TestLoseLifeAndCooldown(t *testing.T) {
	svc, store, clock := newTestService(t)
	ctx := context.Background()

	store.PutProfile(profileWithLives(1, 5))

	p, err := svc.LoseLife(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, p.Lives)
	require.NotNil(t, p.LivesResetAt)
	assert.Equal(t, baseTime.Add(time.Hour), *p.LivesResetAt)

	p, err = svc.LoseLife(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, p.Lives)

	clock.Advance(30 * time.Minute)
	p, err = svc.CheckAndResetLives(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, p.Lives, "cooldown not yet elapsed")

	clock.Advance(30 * time.Minute)
	p, err = svc.CheckAndResetLives(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 5, p.Lives)
	assert.Nil(t, p.LivesResetAt)

	again, err := svc.CheckAndResetLives(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, p.Lives, again.Lives)
	assert.Equal(t, p.LivesResetAt, again.LivesResetAt)
}

func TestCheckAndResetLivesIgnoresPartialLives(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	store.PutProfile(profileWithLives(2, 5))

	p, err := svc.CheckAndResetLives(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, p.Lives)

	p, err = svc.ResetLives(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 5, p.Lives, "explicit reset tops up")
}

func TestResetLivesRespectsPendingCooldown(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	store.PutProfile(LoseLife(profileWithLives(1, 5), baseTime, time.Hour))

	p, err := svc.ResetLives(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, p.Lives)
	assert.NotNil(t, p.LivesResetAt)
}

func TestUpdateStreakThroughService(t *testing.T) {
	svc, store, clock := newTestService(t)
	ctx := context.Background()
	store.PutProfile(profileWithStreak(2, daysAgo(1)))

	p, err := svc.UpdateStreak(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 3, p.Streak)

	p, err = svc.UpdateStreak(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 3, p.Streak, "second update on the same day is a no-op")

	assert.Contains(t, svc.Achievements().NewlyUnlocked("user-1"), "streak-keeper")

	clock.Advance(72 * time.Hour)
	p, err = svc.UpdateStreak(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, p.Streak)
}

func TestCompleteQuestIsIdempotent(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	p, first, err := svc.CompleteQuest(ctx, "user-1", "old-campus")
	require.NoError(t, err)
	assert.True(t, first)
	assert.Equal(t, 1, p.TotalQuestsCompleted)

	p, again, err := svc.CompleteQuest(ctx, "user-1", "old-campus")
	require.NoError(t, err)
	assert.False(t, again)
	assert.Equal(t, 1, p.TotalQuestsCompleted)

	completed, err := store.ListCompletedQuests(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, completed, 1)

	done, err := svc.IsQuestCompleted(ctx, "user-1", "old-campus")
	require.NoError(t, err)
	assert.True(t, done)

	_, _, err = svc.CompleteQuest(ctx, "user-1", "")
	assert.ErrorIs(t, err, ErrInvalidQuest)
}

func TestCompleteQuestUnlocksAchievements(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	for _, quest := range []string{"old-campus", "founders", "traditions"} {
		_, _, err := svc.CompleteQuest(ctx, "user-1", quest)
		require.NoError(t, err)
	}

	newIDs, err := svc.NewAchievements("user-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"history-explorer", "campus-expert"}, newIDs)

	require.NoError(t, svc.MarkAchievementsSeen("user-1"))
	newIDs, err = svc.NewAchievements("user-1")
	require.NoError(t, err)
	assert.Empty(t, newIDs)

	statuses, err := svc.AchievementStatuses(ctx, "user-1")
	require.NoError(t, err)
	unlocked := 0
	for _, s := range statuses {
		if s.Unlocked {
			unlocked++
		}
	}
	assert.Equal(t, 2, unlocked)
}

func TestRecordCorrectAnswer(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	p, err := svc.RecordCorrectAnswer(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, p.TotalCorrectAnswers)
	assert.Contains(t, svc.Achievements().NewlyUnlocked("user-1"), "first-steps")
}

func TestStoreFailuresAreSurfaced(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.GetProfile(ctx, "user-1")
	require.NoError(t, err)

	store.FailWith(errors.New("connection reset"))

	_, err = svc.AddPoints(ctx, "user-1", 10)
	assert.ErrorIs(t, err, ErrStore)
	_, err = svc.LoseLife(ctx, "user-1")
	assert.ErrorIs(t, err, ErrStore)
	_, _, err = svc.CompleteQuest(ctx, "user-1", "old-campus")
	assert.ErrorIs(t, err, ErrStore)
	assert.Contains(t, err.Error(), "connection reset")
}

// flakyCompletionStore fails the next N quest completions without writing anything
type flakyCompletionStore struct {
	*memory.Store
	failures int
}

func (f *flakyCompletionStore) CompleteQuest(ctx context.Context, userID, questID string, at time.Time) (*models.Profile, bool, error) {
	if f.failures > 0 {
		f.failures--
		return nil, false, errors.New("counter update failed")
	}
	return f.Store.CompleteQuest(ctx, userID, questID, at)
}

func TestCompleteQuestRetryCountsAfterFailure(t *testing.T) {
	store := &flakyCompletionStore{Store: memory.New(), failures: 1}
	svc := NewService(store, nil, Options{
		Clock:         func() time.Time { return baseTime },
		NameGenerator: func() (string, error) { return "brave-explorer", nil },
	})
	ctx := context.Background()

	_, _, err := svc.CompleteQuest(ctx, "user-1", "old-campus")
	require.ErrorIs(t, err, ErrStore)

	done, err := svc.IsQuestCompleted(ctx, "user-1", "old-campus")
	require.NoError(t, err)
	assert.False(t, done, "a failed completion must leave no row behind")

	p, first, err := svc.CompleteQuest(ctx, "user-1", "old-campus")
	require.NoError(t, err)
	assert.True(t, first)
	assert.Equal(t, 1, p.TotalQuestsCompleted)
	assert.Contains(t, svc.Achievements().NewlyUnlocked("user-1"), "history-explorer")
}

// conflictStore rejects the first N state updates to exercise the retry loop
type conflictStore struct {
	*memory.Store
	rejections int
}

func (c *conflictStore) UpdateProfileState(ctx context.Context, p models.Profile) (bool, error) {
	if c.rejections > 0 {
		c.rejections--
		return false, nil
	}
	return c.Store.UpdateProfileState(ctx, p)
}

func TestMutateRetriesOnConflict(t *testing.T) {
	store := &conflictStore{Store: memory.New(), rejections: 2}
	store.PutProfile(profileWithLives(3, 5))
	svc := NewService(store, nil, Options{Clock: func() time.Time { return baseTime }})

	p, err := svc.LoseLife(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, p.Lives)
}

func TestMutateGivesUpAfterRetries(t *testing.T) {
	store := &conflictStore{Store: memory.New(), rejections: 100}
	store.PutProfile(profileWithLives(3, 5))
	svc := NewService(store, nil, Options{Clock: func() time.Time { return baseTime }, MaxRetries: 3})

	_, err := svc.LoseLife(context.Background(), "user-1")
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 97, store.rejections)
}

func TestConcurrentPointAdds(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.GetProfile(ctx, "user-1")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AddPoints(ctx, "user-1", 10)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	p, err := svc.GetProfile(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 200, p.TotalPoints)
}

func TestRefillLivesClearsPendingCooldown(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	store.PutProfile(LoseLife(profileWithLives(1, 5), baseTime, time.Hour))

	p, err := svc.RefillLives(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 5, p.Lives)
	assert.Nil(t, p.LivesResetAt)
}
