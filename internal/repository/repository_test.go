package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heritagequest/internal/database"
	"heritagequest/internal/models"
)

var now = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

func newMock(t *testing.T, dialect database.Dialect) (*database.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		sqlDB.Close()
	})
	return database.New(sqlDB, dialect), mock
}

var profileRowColumns = []string{
	"user_id", "display_name", "avatar_url", "total_points", "lives", "max_lives",
	"lives_reset_at", "streak", "last_played_date", "total_correct_answers",
	"total_quests_completed", "version", "created_at", "updated_at",
}

func profileRow(points, lives int, resetAt interface{}, lastPlayed interface{}) *sqlmock.Rows {
	return sqlmock.NewRows(profileRowColumns).
		AddRow("user-1", "brave-explorer", "", points, lives, 5, resetAt, 2, lastPlayed, 4, 1, 3, now, now)
}

func TestGetProfile(t *testing.T) {
	db, mock := newMock(t, database.NewSQLiteDialect())
	repo := NewProfileRepository(db)

	resetAt := now.Add(time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta("FROM profiles WHERE user_id = ?")).
		WithArgs("user-1").
		WillReturnRows(profileRow(250, 0, resetAt, "2026-03-09"))

	p, err := repo.GetProfile(context.Background(), "user-1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 250, p.TotalPoints)
	assert.Equal(t, 0, p.Lives)
	require.NotNil(t, p.LivesResetAt)
	assert.True(t, resetAt.Equal(*p.LivesResetAt))
	require.NotNil(t, p.LastPlayedDate)
	assert.Equal(t, "2026-03-09", p.LastPlayedDate.Format(models.DateLayout))
	assert.Equal(t, int64(3), p.Version)
}

func TestGetProfileNotFound(t *testing.T) {
	db, mock := newMock(t, database.NewSQLiteDialect())
	repo := NewProfileRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM profiles WHERE user_id = ?")).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	p, err := repo.GetProfile(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestGetProfileRejectsBadDate(t *testing.T) {
	db, mock := newMock(t, database.NewSQLiteDialect())
	repo := NewProfileRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM profiles WHERE user_id = ?")).
		WillReturnRows(profileRow(0, 5, nil, "yesterday"))

	_, err := repo.GetProfile(context.Background(), "user-1")
	assert.Error(t, err)
}

func TestCreateProfileUsesInsertIgnore(t *testing.T) {
	db, mock := newMock(t, database.NewPostgresDialect())
	repo := NewProfileRepository(db)

	p := models.NewProfile("user-1", "brave-explorer", 5, now)
	mock.ExpectExec(`INSERT INTO profiles .* VALUES \(\$1, .*\$14\) ON CONFLICT DO NOTHING`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.CreateProfile(context.Background(), p))
}

func TestAddPointsClampsInSQL(t *testing.T) {
	db, mock := newMock(t, database.NewSQLiteDialect())
	repo := NewProfileRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("SET total_points = CASE WHEN total_points + ? < 0 THEN 0 ELSE total_points + ? END")).
		WithArgs(-50, -50, sqlmock.AnyArg(), "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM profiles WHERE user_id = ?")).
		WillReturnRows(profileRow(0, 5, nil, nil))

	p, err := repo.AddPoints(context.Background(), "user-1", -50)
	require.NoError(t, err)
	assert.Equal(t, 0, p.TotalPoints)
	assert.Nil(t, p.LastPlayedDate)
}

func TestAddPointsMissingProfile(t *testing.T) {
	db, mock := newMock(t, database.NewSQLiteDialect())
	repo := NewProfileRepository(db)

	mock.ExpectExec("UPDATE profiles").WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.AddPoints(context.Background(), "ghost", 10)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSpendPoints(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{"covered", 1, true},
		{"insufficient", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMock(t, database.NewSQLiteDialect())
			repo := NewProfileRepository(db)

			mock.ExpectExec(regexp.QuoteMeta("WHERE user_id = ? AND total_points >= ?")).
				WithArgs(100, sqlmock.AnyArg(), "user-1", 100).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))
			mock.ExpectQuery("FROM profiles").WillReturnRows(profileRow(40, 5, nil, nil))

			p, ok, err := repo.SpendPoints(context.Background(), "user-1", 100)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
			assert.Equal(t, 40, p.TotalPoints)
		})
	}
}

func TestUpdateProfileStateChecksVersion(t *testing.T) {
	db, mock := newMock(t, database.NewSQLiteDialect())
	repo := NewProfileRepository(db)

	p := models.NewProfile("user-1", "brave-explorer", 5, now)
	p.Version = 7
	p.Lives = 4

	mock.ExpectExec(regexp.QuoteMeta("WHERE user_id = ? AND version = ?")).
		WithArgs(4, 5, nil, 0, nil, sqlmock.AnyArg(), "user-1", 7).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.UpdateProfileState(context.Background(), p)
	require.NoError(t, err)
	assert.False(t, ok, "stale version must not be written")
}

func TestIncrementCountersError(t *testing.T) {
	db, mock := newMock(t, database.NewSQLiteDialect())
	repo := NewProfileRepository(db)

	mock.ExpectExec("UPDATE profiles").WillReturnError(errors.New("disk I/O error"))

	_, err := repo.IncrementCounters(context.Background(), "user-1", 1, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk I/O error")
}

func TestInsertCompletedQuest(t *testing.T) {
	db, mock := newMock(t, database.NewSQLiteDialect())
	repo := NewCompletionRepository(db)
	ctx := context.Background()

	query := regexp.QuoteMeta("INSERT OR IGNORE INTO completed_quests")
	mock.ExpectExec(query).WithArgs("user-1", "old-campus", now).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(query).WithArgs("user-1", "old-campus", now).WillReturnResult(sqlmock.NewResult(0, 0))

	inserted, err := repo.InsertCompletedQuest(ctx, "user-1", "old-campus", now)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.InsertCompletedQuest(ctx, "user-1", "old-campus", now)
	require.NoError(t, err)
	assert.False(t, inserted)
}

func TestStoreCompleteQuest(t *testing.T) {
	insert := regexp.QuoteMeta("INSERT OR IGNORE INTO completed_quests")

	tests := []struct {
		name     string
		expect   func(mock sqlmock.Sqlmock)
		inserted bool
		wantErr  bool
	}{
		{
			name: "first completion commits both writes",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(insert).WithArgs("user-1", "old-campus", now).WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectExec("UPDATE profiles").WithArgs(0, 1, sqlmock.AnyArg(), "user-1").WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectQuery(regexp.QuoteMeta("FROM profiles WHERE user_id = ?")).
					WithArgs("user-1").
					WillReturnRows(profileRow(0, 5, nil, nil))
				mock.ExpectCommit()
			},
			inserted: true,
		},
		{
			name: "repeat completion leaves counters alone",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(insert).WithArgs("user-1", "old-campus", now).WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectCommit()
			},
		},
		{
			name: "failed counter bump rolls back the completion",
			expect: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(insert).WithArgs("user-1", "old-campus", now).WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectExec("UPDATE profiles").WillReturnError(errors.New("disk I/O error"))
				mock.ExpectRollback()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMock(t, database.NewSQLiteDialect())
			tt.expect(mock)

			p, inserted, err := NewStore(db).CompleteQuest(context.Background(), "user-1", "old-campus", now)
			if tt.wantErr {
				require.Error(t, err)
				assert.False(t, inserted)
				assert.Nil(t, p)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.inserted, inserted)
			assert.Equal(t, tt.inserted, p != nil)
		})
	}
}

func TestListAndCheckCompletedQuests(t *testing.T) {
	db, mock := newMock(t, database.NewSQLiteDialect())
	repo := NewCompletionRepository(db)
	ctx := context.Background()

	mock.ExpectQuery("FROM completed_quests").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "quest_id", "completed_at"}).
			AddRow("user-1", "old-campus", now).
			AddRow("user-1", "founders", now.Add(time.Hour)))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM completed_quests")).
		WithArgs("user-1", "traditions").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	completed, err := repo.ListCompletedQuests(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, completed, 2)
	assert.Equal(t, "founders", completed[1].QuestID)

	done, err := repo.IsQuestCompleted(ctx, "user-1", "traditions")
	require.NoError(t, err)
	assert.False(t, done)
}

func TestAchievementRepository(t *testing.T) {
	db, mock := newMock(t, database.NewMySQLDialect())
	repo := NewAchievementRepository(db)
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta("INSERT IGNORE INTO user_achievements")).
		WithArgs("user-1", "first-steps", now).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("FROM user_achievements").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "achievement_id", "unlocked_at"}).
			AddRow("user-1", "first-steps", now))

	inserted, err := repo.InsertUnlockedAchievement(ctx, "user-1", "first-steps", now)
	require.NoError(t, err)
	assert.True(t, inserted)

	unlocked, err := repo.ListUnlockedAchievements(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, unlocked, 1)
	assert.Equal(t, "first-steps", unlocked[0].AchievementID)
}

func TestGetQuestWithQuestions(t *testing.T) {
	db, mock := newMock(t, database.NewSQLiteDialect())
	repo := NewQuestRepository(db)

	mock.ExpectQuery("FROM quests").
		WithArgs("old-campus").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "category", "icon", "description", "created_at"}).
			AddRow("old-campus", "The Old Campus", "Architecture", "", "", now))
	mock.ExpectQuery("FROM quest_questions").
		WithArgs("old-campus").
		WillReturnRows(sqlmock.NewRows([]string{"id", "quest_id", "question", "options", "correct_answer", "fun_fact", "points", "sort_order"}).
			AddRow(1, "old-campus", "Which building was completed first?", `["Main Hall","Library"]`, 0, "", 100, 1).
			AddRow(2, "old-campus", "What covers the dome?", `["Slate","Copper"]`, 1, "", 0, 2))

	q, err := repo.GetQuest(context.Background(), "old-campus")
	require.NoError(t, err)
	require.NotNil(t, q)
	require.Len(t, q.Questions, 2)
	assert.Equal(t, []string{"Main Hall", "Library"}, q.Questions[0].Options)
	assert.True(t, q.Questions[1].IsCorrect(1))
	assert.Equal(t, models.DefaultQuestionPoints, q.Questions[1].Value())
}

func TestGetQuestMissingAndMalformed(t *testing.T) {
	db, mock := newMock(t, database.NewSQLiteDialect())
	repo := NewQuestRepository(db)
	ctx := context.Background()

	mock.ExpectQuery("FROM quests").WithArgs("nowhere").WillReturnError(sql.ErrNoRows)
	q, err := repo.GetQuest(ctx, "nowhere")
	require.NoError(t, err)
	assert.Nil(t, q)

	mock.ExpectQuery("FROM quests").
		WithArgs("broken").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "category", "icon", "description", "created_at"}).
			AddRow("broken", "Broken", "", "", "", now))
	mock.ExpectQuery("FROM quest_questions").
		WillReturnRows(sqlmock.NewRows([]string{"id", "quest_id", "question", "options", "correct_answer", "fun_fact", "points", "sort_order"}).
			AddRow(1, "broken", "?", `not json`, 0, "", 100, 1))
	_, err = repo.GetQuest(ctx, "broken")
	assert.Error(t, err)
}

func TestMarkWalletItemUsed(t *testing.T) {
	db, mock := newMock(t, database.NewPostgresDialect())
	repo := NewWalletRepository(db)
	ctx := context.Background()

	query := regexp.QuoteMeta("UPDATE user_wallet_items SET used = $1 WHERE id = $2 AND used = $3")
	mock.ExpectExec(query).WithArgs(true, "item-1", false).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(query).WithArgs(true, "item-1", false).WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.MarkWalletItemUsed(ctx, "item-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.MarkWalletItemUsed(ctx, "item-1")
	require.NoError(t, err)
	assert.False(t, ok, "an item can only be used once")
}

func TestWalletInsertAndGet(t *testing.T) {
	db, mock := newMock(t, database.NewSQLiteDialect())
	repo := NewWalletRepository(db)
	ctx := context.Background()

	item := models.WalletItem{
		ID: "item-1", UserID: "user-1", ShopItemID: "hint-token",
		Name: "Hint Token", PurchasedAt: now,
	}
	mock.ExpectExec("INSERT INTO user_wallet_items").
		WithArgs("item-1", "user-1", "hint-token", "Hint Token", "", "", now, false).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM user_wallet_items WHERE id").
		WithArgs("item-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "shop_item_id", "name", "description", "image", "purchased_at", "used"}).
			AddRow("item-1", "user-1", "hint-token", "Hint Token", "", "", now, false))
	mock.ExpectQuery("FROM user_wallet_items WHERE id").
		WithArgs("item-2").
		WillReturnError(sql.ErrNoRows)

	require.NoError(t, repo.InsertWalletItem(ctx, item))

	got, err := repo.GetWalletItem(ctx, "item-1")
	require.NoError(t, err)
	assert.Equal(t, item, *got)

	missing, err := repo.GetWalletItem(ctx, "item-2")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
