package repository

import (
	"context"
	"time"

	"heritagequest/internal/database"
	"heritagequest/internal/models"
)

// Store bundles the SQL repositories behind the data access interfaces the
// services depend on
type Store struct {
	*ProfileRepository
	*CompletionRepository
	*AchievementRepository
	*QuestRepository
	*WalletRepository

	db database.DBTX
}

// NewStore creates every repository over the same connection
func NewStore(db database.DBTX) *Store {
	return &Store{
		ProfileRepository:     NewProfileRepository(db),
		CompletionRepository:  NewCompletionRepository(db),
		AchievementRepository: NewAchievementRepository(db),
		QuestRepository:       NewQuestRepository(db),
		WalletRepository:      NewWalletRepository(db),
		db:                    db,
	}
}

// CompleteQuest records the completion and bumps the quest counter in one
// transaction. It reports false, with a nil profile, when the quest was
// already completed.
func (s *Store) CompleteQuest(ctx context.Context, userID, questID string, at time.Time) (*models.Profile, bool, error) {
	var (
		profile  *models.Profile
		inserted bool
	)
	err := s.inTx(ctx, func(tx database.DBTX) error {
		var err error
		inserted, err = NewCompletionRepository(tx).InsertCompletedQuest(ctx, userID, questID, at)
		if err != nil || !inserted {
			return err
		}
		profile, err = NewProfileRepository(tx).IncrementCounters(ctx, userID, 0, 1)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return profile, inserted, nil
}

// inTx runs fn in a new transaction, or directly when the store already
// wraps one
func (s *Store) inTx(ctx context.Context, fn func(tx database.DBTX) error) error {
	db, ok := s.db.(*database.DB)
	if !ok {
		return fn(s.db)
	}
	return db.WithTx(ctx, func(tx *database.Tx) error {
		return fn(tx)
	})
}
