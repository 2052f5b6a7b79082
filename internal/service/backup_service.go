package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"heritagequest/internal/database"
	"heritagequest/internal/logger"
	"heritagequest/internal/models"
	"heritagequest/internal/repository"
)

// BackupVersion is written into every export
const BackupVersion = "1.0"

// BackupData represents the complete progression backup
type BackupData struct {
	Version      string                       `json:"version"`
	ExportedAt   time.Time                    `json:"exported_at"`
	DatabaseType string                       `json:"database_type"`
	Profiles     []ProfileBackup              `json:"profiles"`
	Completed    []models.CompletedQuest      `json:"completed_quests"`
	Achievements []models.UnlockedAchievement `json:"achievements"`
	Wallet       []models.WalletItem          `json:"wallet_items"`
}

// ProfileBackup is a profile with the fields the API hides
type ProfileBackup struct {
	models.Profile
	Version int64 `json:"version"`
}

// BackupTables lists the progression tables, children first
var BackupTables = []string{"user_wallet_items", "user_achievements", "completed_quests", "profiles"}

// BackupService handles database backup and restore operations
type BackupService struct {
	db  *database.DB
	log *logger.Logger
	now func() time.Time
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB, log *logger.Logger) *BackupService {
	if log == nil {
		log = logger.Discard()
	}
	return &BackupService{db: db, log: log, now: time.Now}
}

// Export writes every profile and its progression records as JSON
func (s *BackupService) Export(ctx context.Context, w io.Writer) (*BackupData, error) {
	store := repository.NewStore(s.db)
	backup := &BackupData{
		Version:      BackupVersion,
		ExportedAt:   s.now().UTC(),
		DatabaseType: s.db.Dialect.DriverName(),
	}

	profiles, err := store.ListProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to export profiles: %w", err)
	}
	for _, p := range profiles {
		backup.Profiles = append(backup.Profiles, ProfileBackup{Profile: p, Version: p.Version})
	}

	if backup.Completed, err = store.ListAllCompletedQuests(ctx); err != nil {
		return nil, fmt.Errorf("failed to export completed quests: %w", err)
	}
	if backup.Achievements, err = store.ListAllUnlockedAchievements(ctx); err != nil {
		return nil, fmt.Errorf("failed to export achievements: %w", err)
	}
	if backup.Wallet, err = store.ListAllWalletItems(ctx); err != nil {
		return nil, fmt.Errorf("failed to export wallet items: %w", err)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return nil, fmt.Errorf("failed to encode backup: %w", err)
	}

	s.log.Entry().WithFields(backup.counts()).Info("database exported")
	return backup, nil
}

// Import restores a backup in one transaction. Profiles in the backup
// replace existing ones; records that already exist are skipped.
func (s *BackupService) Import(ctx context.Context, r io.Reader) (*BackupData, error) {
	var backup BackupData
	if err := json.NewDecoder(r).Decode(&backup); err != nil {
		return nil, fmt.Errorf("failed to decode backup: %w", err)
	}
	if backup.Version != BackupVersion {
		return nil, fmt.Errorf("unsupported backup version %q", backup.Version)
	}

	s.log.Entry().WithFields(logrus.Fields{
		"version":     backup.Version,
		"exported_at": backup.ExportedAt,
	}).Info("starting database import")

	err := s.db.WithTx(ctx, func(tx *database.Tx) error {
		store := repository.NewStore(tx)

		for _, p := range backup.Profiles {
			profile := p.Profile
			profile.Version = p.Version
			if err := store.RestoreProfile(ctx, profile); err != nil {
				return fmt.Errorf("failed to import profile %s: %w", profile.UserID, err)
			}
		}
		for _, c := range backup.Completed {
			if _, err := store.InsertCompletedQuest(ctx, c.UserID, c.QuestID, c.CompletedAt); err != nil {
				return fmt.Errorf("failed to import completed quest: %w", err)
			}
		}
		for _, a := range backup.Achievements {
			if _, err := store.InsertUnlockedAchievement(ctx, a.UserID, a.AchievementID, a.UnlockedAt); err != nil {
				return fmt.Errorf("failed to import achievement: %w", err)
			}
		}
		for _, item := range backup.Wallet {
			if err := store.RestoreWalletItem(ctx, item); err != nil {
				return fmt.Errorf("failed to import wallet item: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Entry().WithFields(backup.counts()).Info("database import completed")
	return &backup, nil
}

// Clear deletes every progression record. Quests are left alone.
func (s *BackupService) Clear(ctx context.Context) error {
	return s.db.WithTx(ctx, func(tx *database.Tx) error {
		for _, table := range BackupTables {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("failed to clear table %s: %w", table, err)
			}
			s.log.Entry().WithField("table", table).Info("cleared table")
		}
		return nil
	})
}

func (b *BackupData) counts() logrus.Fields {
	return logrus.Fields{
		"profiles":         len(b.Profiles),
		"completed_quests": len(b.Completed),
		"achievements":     len(b.Achievements),
		"wallet_items":     len(b.Wallet),
	}
}
