package repository

import (
	"context"
	"database/sql"
	"fmt"

	"heritagequest/internal/database"
	"heritagequest/internal/models"
)

const walletColumns = "id, user_id, shop_item_id, name, description, image, purchased_at, used"

// WalletRepository handles purchased item records
type WalletRepository struct {
	db database.DBTX
}

// NewWalletRepository creates a new wallet repository
func NewWalletRepository(db database.DBTX) *WalletRepository {
	return &WalletRepository{db: db}
}

// InsertWalletItem stores a purchase
func (r *WalletRepository) InsertWalletItem(ctx context.Context, item models.WalletItem) error {
	query := `
		INSERT INTO user_wallet_items (` + walletColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		item.ID, item.UserID, item.ShopItemID, item.Name, item.Description, item.Image,
		item.PurchasedAt.UTC(), item.Used,
	)
	if err != nil {
		return fmt.Errorf("failed to insert wallet item: %w", err)
	}
	return nil
}

// ListWalletItems retrieves the user's purchases, oldest first
func (r *WalletRepository) ListWalletItems(ctx context.Context, userID string) ([]models.WalletItem, error) {
	return r.list(ctx, `SELECT `+walletColumns+` FROM user_wallet_items WHERE user_id = ? ORDER BY purchased_at ASC`, userID)
}

// ListAllWalletItems retrieves every purchase, used by backups
func (r *WalletRepository) ListAllWalletItems(ctx context.Context) ([]models.WalletItem, error) {
	return r.list(ctx, `SELECT `+walletColumns+` FROM user_wallet_items ORDER BY user_id ASC, purchased_at ASC`)
}

// GetWalletItem retrieves a purchase by ID, returning nil when it does not exist
func (r *WalletRepository) GetWalletItem(ctx context.Context, itemID string) (*models.WalletItem, error) {
	item, err := scanWalletItem(r.db.QueryRowContext(ctx, `SELECT `+walletColumns+` FROM user_wallet_items WHERE id = ?`, itemID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet item: %w", err)
	}
	return item, nil
}

// MarkWalletItemUsed flips used from false to true; it reports false if the
// item was already used or does not exist
func (r *WalletRepository) MarkWalletItemUsed(ctx context.Context, itemID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, "UPDATE user_wallet_items SET used = ? WHERE id = ? AND used = ?", true, itemID, false)
	if err != nil {
		return false, fmt.Errorf("failed to mark wallet item used: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to mark wallet item used: %w", err)
	}
	return affected > 0, nil
}

func (r *WalletRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.WalletItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query wallet items: %w", err)
	}
	defer rows.Close()

	var items []models.WalletItem
	for rows.Next() {
		item, err := scanWalletItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wallet item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func scanWalletItem(row rowScanner) (*models.WalletItem, error) {
	item := &models.WalletItem{}
	err := row.Scan(
		&item.ID,
		&item.UserID,
		&item.ShopItemID,
		&item.Name,
		&item.Description,
		&item.Image,
		&item.PurchasedAt,
		&item.Used,
	)
	if err != nil {
		return nil, err
	}
	return item, nil
}

// RestoreWalletItem inserts a purchase unless its id already exists, used by backup imports
func (r *WalletRepository) RestoreWalletItem(ctx context.Context, item models.WalletItem) error {
	query := r.db.GetDialect().InsertIgnore(`
		INSERT INTO user_wallet_items (` + walletColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := r.db.ExecContext(ctx, query,
		item.ID, item.UserID, item.ShopItemID, item.Name, item.Description, item.Image,
		item.PurchasedAt.UTC(), item.Used,
	)
	if err != nil {
		return fmt.Errorf("failed to restore wallet item: %w", err)
	}
	return nil
}
