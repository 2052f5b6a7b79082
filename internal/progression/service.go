package progression

import (
	"context"
	"fmt"
	"time"

	"heritagequest/internal/credentials"
	"heritagequest/internal/logger"
	"heritagequest/internal/models"
)

const defaultMaxRetries = 5

// Options configures a Service
type Options struct {
	MaxLives      int
	LivesCooldown time.Duration
	Rules         []Rule
	Clock         func() time.Time
	NameGenerator func() (string, error)
	MaxRetries    int
}

// Service is the public progression API. Every operation is a single
// read-modify-write against the store for one user.
type Service struct {
	store        Store
	achievements *Evaluator
	log          *logger.Logger

	maxLives   int
	cooldown   time.Duration
	clock      func() time.Time
	names      func() (string, error)
	maxRetries int
}

// NewService creates a progression service
func NewService(store Store, log *logger.Logger, opts Options) *Service {
	if opts.MaxLives <= 0 {
		opts.MaxLives = models.DefaultMaxLives
	}
	if opts.LivesCooldown <= 0 {
		opts.LivesCooldown = DefaultLivesCooldown
	}
	if opts.Rules == nil {
		opts.Rules = DefaultRules
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.NameGenerator == nil {
		opts.NameGenerator = credentials.GenerateDisplayName
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	if log == nil {
		log = logger.Discard()
	}

	return &Service{
		store:        store,
		achievements: NewEvaluator(store, opts.Rules, opts.Clock),
		log:          log,
		maxLives:     opts.MaxLives,
		cooldown:     opts.LivesCooldown,
		clock:        opts.Clock,
		names:        opts.NameGenerator,
		maxRetries:   opts.MaxRetries,
	}
}

// Achievements exposes the evaluator
func (s *Service) Achievements() *Evaluator {
	return s.achievements
}

// Now returns the service clock in UTC
func (s *Service) Now() time.Time {
	return s.clock().UTC()
}

// GetProfile returns the user's profile, creating it with defaults on first access
func (s *Service) GetProfile(ctx context.Context, userID string) (models.Profile, error) {
	if userID == "" {
		return models.Profile{}, ErrUnauthorized
	}

	p, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return models.Profile{}, s.storeError(userID, "get profile", err)
	}
	if p != nil {
		return *p, nil
	}

	name, err := s.names()
	if err != nil {
		name = "explorer"
	}
	if err := s.store.CreateProfile(ctx, models.NewProfile(userID, name, s.maxLives, s.Now())); err != nil {
		return models.Profile{}, s.storeError(userID, "create profile", err)
	}
	s.log.WithUserID(userID).Info("profile created")

	p, err = s.store.GetProfile(ctx, userID)
	if err != nil {
		return models.Profile{}, s.storeError(userID, "get profile", err)
	}
	if p == nil {
		return models.Profile{}, s.storeError(userID, "get profile", fmt.Errorf("profile missing after create"))
	}
	return *p, nil
}

// AddPoints adds amount to the user's balance
func (s *Service) AddPoints(ctx context.Context, userID string, amount int) (models.Profile, error) {
	if amount < 0 {
		return models.Profile{}, ErrInvalidAmount
	}
	return s.addPoints(ctx, userID, amount)
}

// RemovePoints subtracts amount from the user's balance, flooring at zero
func (s *Service) RemovePoints(ctx context.Context, userID string, amount int) (models.Profile, error) {
	if amount < 0 {
		return models.Profile{}, ErrInvalidAmount
	}
	return s.addPoints(ctx, userID, -amount)
}

func (s *Service) addPoints(ctx context.Context, userID string, delta int) (models.Profile, error) {
	if _, err := s.GetProfile(ctx, userID); err != nil {
		return models.Profile{}, err
	}

	p, err := s.store.AddPoints(ctx, userID, delta)
	if err != nil {
		return models.Profile{}, s.storeError(userID, "add points", err)
	}
	s.evaluate(ctx, *p)
	return *p, nil
}

// SpendPoints subtracts amount only when the balance covers it
func (s *Service) SpendPoints(ctx context.Context, userID string, amount int) (models.Profile, error) {
	if amount < 0 {
		return models.Profile{}, ErrInvalidAmount
	}
	if _, err := s.GetProfile(ctx, userID); err != nil {
		return models.Profile{}, err
	}

	p, ok, err := s.store.SpendPoints(ctx, userID, amount)
	if err != nil {
		return models.Profile{}, s.storeError(userID, "spend points", err)
	}
	if !ok {
		if p == nil {
			return models.Profile{}, ErrInsufficientPoints
		}
		return *p, ErrInsufficientPoints
	}
	return *p, nil
}

// LoseLife takes one life from the user
func (s *Service) LoseLife(ctx context.Context, userID string) (models.Profile, error) {
	return s.mutate(ctx, userID, "lose life", func(p models.Profile) (models.Profile, bool) {
		next := LoseLife(p, s.Now(), s.cooldown)
		return next, next.Lives != p.Lives || !sameTime(next.LivesResetAt, p.LivesResetAt)
	})
}

// ResetLives refills lives through either regeneration branch
func (s *Service) ResetLives(ctx context.Context, userID string) (models.Profile, error) {
	return s.mutate(ctx, userID, "reset lives", func(p models.Profile) (models.Profile, bool) {
		next, reason := RegenerateLives(p, s.Now())
		return next, reason != RegenNone
	})
}

// RefillLives tops lives up to max even while a cooldown is pending
func (s *Service) RefillLives(ctx context.Context, userID string) (models.Profile, error) {
	return s.mutate(ctx, userID, "refill lives", func(p models.Profile) (models.Profile, bool) {
		next := RefillLives(p)
		return next, next.Lives != p.Lives || p.LivesResetAt != nil
	})
}

// CheckAndResetLives refills lives only when the depletion cooldown has elapsed
func (s *Service) CheckAndResetLives(ctx context.Context, userID string) (models.Profile, error) {
	return s.mutate(ctx, userID, "check lives", func(p models.Profile) (models.Profile, bool) {
		next, reason := RegenerateLives(p, s.Now())
		if reason != RegenCooldownExpired {
			return p, false
		}
		return next, true
	})
}

// UpdateStreak records that the user played today
func (s *Service) UpdateStreak(ctx context.Context, userID string) (models.Profile, error) {
	p, err := s.mutate(ctx, userID, "update streak", func(p models.Profile) (models.Profile, bool) {
		return UpdateStreak(p, s.Now())
	})
	if err != nil {
		return p, err
	}
	s.evaluate(ctx, p)
	return p, nil
}

// RecordCorrectAnswer bumps the correct answer counter
func (s *Service) RecordCorrectAnswer(ctx context.Context, userID string) (models.Profile, error) {
	if _, err := s.GetProfile(ctx, userID); err != nil {
		return models.Profile{}, err
	}

	p, err := s.store.IncrementCounters(ctx, userID, 1, 0)
	if err != nil {
		return models.Profile{}, s.storeError(userID, "record correct answer", err)
	}
	s.evaluate(ctx, *p)
	return *p, nil
}

// CompleteQuest records the quest as completed. Only the first completion per
// user and quest bumps the counter; it reports whether this call was that one.
func (s *Service) CompleteQuest(ctx context.Context, userID, questID string) (models.Profile, bool, error) {
	if questID == "" {
		return models.Profile{}, false, ErrInvalidQuest
	}
	p, err := s.GetProfile(ctx, userID)
	if err != nil {
		return models.Profile{}, false, err
	}

	updated, inserted, err := s.store.CompleteQuest(ctx, userID, questID, s.Now())
	if err != nil {
		return models.Profile{}, false, s.storeError(userID, "complete quest", err)
	}
	if !inserted {
		return p, false, nil
	}
	s.log.WithUserID(userID).WithField("quest_id", questID).Info("quest completed")
	s.evaluate(ctx, *updated)
	return *updated, true, nil
}

// GetCompletedQuests lists the user's completed quests
func (s *Service) GetCompletedQuests(ctx context.Context, userID string) ([]models.CompletedQuest, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	completed, err := s.store.ListCompletedQuests(ctx, userID)
	if err != nil {
		return nil, s.storeError(userID, "list completed quests", err)
	}
	return completed, nil
}

// IsQuestCompleted reports whether the user already finished the quest
func (s *Service) IsQuestCompleted(ctx context.Context, userID, questID string) (bool, error) {
	if userID == "" {
		return false, ErrUnauthorized
	}
	done, err := s.store.IsQuestCompleted(ctx, userID, questID)
	if err != nil {
		return false, s.storeError(userID, "check completed quest", err)
	}
	return done, nil
}

// AchievementStatuses lists the catalog with the user's unlocks
func (s *Service) AchievementStatuses(ctx context.Context, userID string) ([]models.AchievementStatus, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	return s.achievements.Statuses(ctx, userID)
}

// NewAchievements returns the user's unseen unlocks
func (s *Service) NewAchievements(userID string) ([]string, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	return s.achievements.NewlyUnlocked(userID), nil
}

// MarkAchievementsSeen clears the user's new unlock queue
func (s *Service) MarkAchievementsSeen(userID string) error {
	if userID == "" {
		return ErrUnauthorized
	}
	s.achievements.MarkSeen(userID)
	return nil
}

// mutate applies fn to the latest profile and writes it back with a version
// check, retrying when another writer got there first
func (s *Service) mutate(ctx context.Context, userID, op string, fn func(models.Profile) (models.Profile, bool)) (models.Profile, error) {
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		current, err := s.GetProfile(ctx, userID)
		if err != nil {
			return models.Profile{}, err
		}

		next, changed := fn(current)
		if !changed {
			return current, nil
		}
		next.UpdatedAt = s.Now()

		ok, err := s.store.UpdateProfileState(ctx, next)
		if err != nil {
			return models.Profile{}, s.storeError(userID, op, err)
		}
		if ok {
			next.Version++
			return next, nil
		}

		s.log.WithUserID(userID).WithField("attempt", attempt+1).Debugf("%s: version conflict, retrying", op)
	}

	s.log.WithUserID(userID).Warnf("%s: gave up after %d conflicts", op, s.maxRetries)
	return models.Profile{}, ErrConflict
}

// evaluate runs the achievement rules. A failure is logged and not returned:
// the counter change already happened and the rules run again on the next one.
func (s *Service) evaluate(ctx context.Context, p models.Profile) {
	unlocked, err := s.achievements.Evaluate(ctx, p.UserID, p.Counters())
	if err != nil {
		s.log.WithUserID(p.UserID).WithError(err).Error("achievement evaluation failed")
	}
	for _, id := range unlocked {
		s.log.WithUserID(p.UserID).WithField("achievement_id", id).Info("achievement unlocked")
	}
}

func (s *Service) storeError(userID, op string, err error) error {
	s.log.WithUserID(userID).WithError(err).Errorf("%s failed", op)
	return fmt.Errorf("%s: %w: %w", op, ErrStore, err)
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
