// Package memory is an in-process implementation of the repositories, used for
// tests and for running the server without a database.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"heritagequest/internal/models"
)

// Store keeps every table in maps guarded by one mutex
type Store struct {
	mu sync.Mutex

	profiles     map[string]models.Profile
	quests       map[string]models.Quest
	completed    map[string]map[string]time.Time
	achievements map[string]map[string]time.Time
	wallet       map[string]models.WalletItem
	walletOrder  []string

	err error
}

// New creates an empty store
func New() *Store {
	return &Store{
		profiles:     make(map[string]models.Profile),
		quests:       make(map[string]models.Quest),
		completed:    make(map[string]map[string]time.Time),
		achievements: make(map[string]map[string]time.Time),
		wallet:       make(map[string]models.WalletItem),
	}
}

// FailWith makes every subsequent call return err; nil restores normal behaviour
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// PutProfile stores p as is, bypassing the atomic update paths
func (s *Store) PutProfile(p models.Profile) {
	s.mu.Lock()
	s.profiles[p.UserID] = p
	s.mu.Unlock()
}

// PutQuest stores a quest with its questions
func (s *Store) PutQuest(q models.Quest) {
	s.mu.Lock()
	s.quests[q.ID] = q
	s.mu.Unlock()
}

func (s *Store) profileCopy(userID string) *models.Profile {
	p, ok := s.profiles[userID]
	if !ok {
		return nil
	}
	return &p
}

// GetProfile returns nil, nil when the profile does not exist
func (s *Store) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.profileCopy(userID), nil
}

func (s *Store) CreateProfile(ctx context.Context, p models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if _, ok := s.profiles[p.UserID]; !ok {
		s.profiles[p.UserID] = p
	}
	return nil
}

func (s *Store) AddPoints(ctx context.Context, userID string, delta int) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	p, ok := s.profiles[userID]
	if !ok {
		return nil, errNoProfile(userID)
	}
	p.TotalPoints += delta
	if p.TotalPoints < 0 {
		p.TotalPoints = 0
	}
	s.profiles[userID] = p
	return &p, nil
}

func (s *Store) SpendPoints(ctx context.Context, userID string, amount int) (*models.Profile, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, false, s.err
	}
	p, ok := s.profiles[userID]
	if !ok {
		return nil, false, errNoProfile(userID)
	}
	if p.TotalPoints < amount {
		return &p, false, nil
	}
	p.TotalPoints -= amount
	s.profiles[userID] = p
	return &p, true, nil
}

func (s *Store) IncrementCounters(ctx context.Context, userID string, correctAnswers, questsCompleted int) (*models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	p, ok := s.profiles[userID]
	if !ok {
		return nil, errNoProfile(userID)
	}
	p.TotalCorrectAnswers += correctAnswers
	p.TotalQuestsCompleted += questsCompleted
	s.profiles[userID] = p
	return &p, nil
}

// UpdateProfileState writes lives and streak fields when the version matches
func (s *Store) UpdateProfileState(ctx context.Context, next models.Profile) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	p, ok := s.profiles[next.UserID]
	if !ok || p.Version != next.Version {
		return false, nil
	}
	p.Lives = next.Lives
	p.MaxLives = next.MaxLives
	p.LivesResetAt = next.LivesResetAt
	p.Streak = next.Streak
	p.LastPlayedDate = next.LastPlayedDate
	p.UpdatedAt = next.UpdatedAt
	p.Version++
	s.profiles[next.UserID] = p
	return true, nil
}

func (s *Store) InsertCompletedQuest(ctx context.Context, userID, questID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	return insertPair(s.completed, userID, questID, at), nil
}

// CompleteQuest inserts the completion and bumps the counter under one lock
func (s *Store) CompleteQuest(ctx context.Context, userID, questID string, at time.Time) (*models.Profile, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, false, s.err
	}
	p, ok := s.profiles[userID]
	if !ok {
		return nil, false, errNoProfile(userID)
	}
	if !insertPair(s.completed, userID, questID, at) {
		return nil, false, nil
	}
	p.TotalQuestsCompleted++
	s.profiles[userID] = p
	return &p, true, nil
}

func (s *Store) ListCompletedQuests(ctx context.Context, userID string) ([]models.CompletedQuest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	var out []models.CompletedQuest
	for questID, at := range s.completed[userID] {
		out = append(out, models.CompletedQuest{UserID: userID, QuestID: questID, CompletedAt: at})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CompletedAt.Before(out[j].CompletedAt) })
	return out, nil
}

func (s *Store) IsQuestCompleted(ctx context.Context, userID, questID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	_, ok := s.completed[userID][questID]
	return ok, nil
}

func (s *Store) InsertUnlockedAchievement(ctx context.Context, userID, achievementID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	return insertPair(s.achievements, userID, achievementID, at), nil
}

func (s *Store) ListUnlockedAchievements(ctx context.Context, userID string) ([]models.UnlockedAchievement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	var out []models.UnlockedAchievement
	for id, at := range s.achievements[userID] {
		out = append(out, models.UnlockedAchievement{UserID: userID, AchievementID: id, UnlockedAt: at})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AchievementID < out[j].AchievementID })
	return out, nil
}

// GetQuest returns nil, nil for unknown quests
func (s *Store) GetQuest(ctx context.Context, questID string) (*models.Quest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	q, ok := s.quests[questID]
	if !ok {
		return nil, nil
	}
	q.Questions = append([]models.Question(nil), q.Questions...)
	return &q, nil
}

func (s *Store) ListQuests(ctx context.Context) ([]models.Quest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]models.Quest, 0, len(s.quests))
	for _, q := range s.quests {
		q.Questions = nil
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) InsertWalletItem(ctx context.Context, item models.WalletItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.wallet[item.ID] = item
	s.walletOrder = append(s.walletOrder, item.ID)
	return nil
}

func (s *Store) ListWalletItems(ctx context.Context, userID string) ([]models.WalletItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	var out []models.WalletItem
	for _, id := range s.walletOrder {
		if item := s.wallet[id]; item.UserID == userID {
			out = append(out, item)
		}
	}
	return out, nil
}

// GetWalletItem returns nil, nil for unknown items
func (s *Store) GetWalletItem(ctx context.Context, itemID string) (*models.WalletItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	item, ok := s.wallet[itemID]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

// MarkWalletItemUsed flips used once; it reports false if it was already used
func (s *Store) MarkWalletItemUsed(ctx context.Context, itemID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	item, ok := s.wallet[itemID]
	if !ok || item.Used {
		return false, nil
	}
	item.Used = true
	s.wallet[itemID] = item
	return true, nil
}

func insertPair(table map[string]map[string]time.Time, userID, key string, at time.Time) bool {
	if table[userID] == nil {
		table[userID] = make(map[string]time.Time)
	}
	if _, ok := table[userID][key]; ok {
		return false
	}
	table[userID][key] = at
	return true
}
