package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"heritagequest/internal/logger"
	"heritagequest/internal/models"
	"heritagequest/internal/progression"
)

var (
	ErrItemNotFound    = errors.New("item not found")
	ErrItemAlreadyUsed = errors.New("item already used")
)

// ExtraLifeItemID refills lives when used
const ExtraLifeItemID = "extra-life"

// DefaultShopItems is the built-in catalog
var DefaultShopItems = []models.ShopItem{
	{ID: "badge-frame", Name: "Badge Frame", Description: "A gilded frame for your achievement badges.", Image: "badge-frame.png", Cost: 200},
	{ID: "hint-token", Name: "Hint Token", Description: "Removes one wrong option from a question.", Image: "hint-token.png", Cost: 150},
	{ID: ExtraLifeItemID, Name: "Extra Life", Description: "Refills your lives immediately.", Image: "extra-life.png", Cost: 300},
	{ID: "museum-pass", Name: "Museum Pass", Description: "Free entry to the heritage museum.", Image: "museum-pass.png", Cost: 1000},
	{ID: "golden-quill", Name: "Golden Quill", Description: "Sign the digital guest book in gold.", Image: "golden-quill.png", Cost: 2500},
}

// Wallet persists purchased items
type Wallet interface {
	InsertWalletItem(ctx context.Context, item models.WalletItem) error
	ListWalletItems(ctx context.Context, userID string) ([]models.WalletItem, error)
	GetWalletItem(ctx context.Context, itemID string) (*models.WalletItem, error)
	MarkWalletItemUsed(ctx context.Context, itemID string) (bool, error)
}

// Points is the part of the progression facade the shop needs
type Points interface {
	SpendPoints(ctx context.Context, userID string, amount int) (models.Profile, error)
	AddPoints(ctx context.Context, userID string, amount int) (models.Profile, error)
	RefillLives(ctx context.Context, userID string) (models.Profile, error)
}

// PurchaseResult is a bought item with the balance after paying for it
type PurchaseResult struct {
	Item    models.WalletItem `json:"item"`
	Profile models.Profile    `json:"profile"`
}

// UseResult is a used item; Profile is set when using it changed the profile
type UseResult struct {
	Item    models.WalletItem `json:"item"`
	Profile *models.Profile   `json:"profile,omitempty"`
}

// ShopService handles the shop catalog and user wallets
type ShopService struct {
	points  Points
	wallet  Wallet
	catalog map[string]models.ShopItem
	items   []models.ShopItem
	log     *logger.Logger
	now     func() time.Time
}

// NewShopService creates a shop over the given catalog; nil means DefaultShopItems
func NewShopService(points Points, wallet Wallet, items []models.ShopItem, log *logger.Logger) *ShopService {
	if items == nil {
		items = DefaultShopItems
	}
	if log == nil {
		log = logger.Discard()
	}

	catalog := make(map[string]models.ShopItem, len(items))
	for _, item := range items {
		catalog[item.ID] = item
	}

	return &ShopService{
		points:  points,
		wallet:  wallet,
		catalog: catalog,
		items:   items,
		log:     log,
		now:     time.Now,
	}
}

// Items returns the catalog in display order
func (s *ShopService) Items() []models.ShopItem {
	return append([]models.ShopItem(nil), s.items...)
}

// Purchase pays for itemID and puts a new item in the user's wallet
func (s *ShopService) Purchase(ctx context.Context, userID, itemID string) (PurchaseResult, error) {
	if userID == "" {
		return PurchaseResult{}, progression.ErrUnauthorized
	}
	shopItem, ok := s.catalog[itemID]
	if !ok {
		return PurchaseResult{}, ErrItemNotFound
	}

	profile, err := s.points.SpendPoints(ctx, userID, shopItem.Cost)
	if err != nil {
		return PurchaseResult{}, err
	}

	item := models.WalletItem{
		ID:          uuid.New().String(),
		UserID:      userID,
		ShopItemID:  shopItem.ID,
		Name:        shopItem.Name,
		Description: shopItem.Description,
		Image:       shopItem.Image,
		PurchasedAt: s.now().UTC(),
	}
	if err := s.wallet.InsertWalletItem(ctx, item); err != nil {
		s.log.WithUserID(userID).WithError(err).WithField("item_id", itemID).Error("wallet insert failed, refunding")
		if _, refundErr := s.points.AddPoints(ctx, userID, shopItem.Cost); refundErr != nil {
			s.log.WithUserID(userID).WithError(refundErr).Error("refund failed")
		}
		return PurchaseResult{}, fmt.Errorf("failed to store purchase: %w: %w", progression.ErrStore, err)
	}

	s.log.WithUserID(userID).WithField("item_id", itemID).Info("item purchased")
	return PurchaseResult{Item: item, Profile: profile}, nil
}

// Wallet lists the user's purchased items
func (s *ShopService) Wallet(ctx context.Context, userID string) ([]models.WalletItem, error) {
	if userID == "" {
		return nil, progression.ErrUnauthorized
	}
	items, err := s.wallet.ListWalletItems(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallet: %w: %w", progression.ErrStore, err)
	}
	return items, nil
}

// UseItem spends a wallet item. Each item can be used once.
func (s *ShopService) UseItem(ctx context.Context, userID, walletItemID string) (UseResult, error) {
	if userID == "" {
		return UseResult{}, progression.ErrUnauthorized
	}

	item, err := s.wallet.GetWalletItem(ctx, walletItemID)
	if err != nil {
		return UseResult{}, fmt.Errorf("failed to get wallet item: %w: %w", progression.ErrStore, err)
	}
	if item == nil || item.UserID != userID {
		return UseResult{}, ErrItemNotFound
	}
	if item.Used {
		return UseResult{}, ErrItemAlreadyUsed
	}

	// Refill before the item is spent; RefillLives is idempotent
	var profile *models.Profile
	if item.ShopItemID == ExtraLifeItemID {
		refilled, err := s.points.RefillLives(ctx, userID)
		if err != nil {
			return UseResult{}, err
		}
		profile = &refilled
	}

	flipped, err := s.wallet.MarkWalletItemUsed(ctx, walletItemID)
	if err != nil {
		return UseResult{}, fmt.Errorf("failed to use wallet item: %w: %w", progression.ErrStore, err)
	}
	if !flipped {
		return UseResult{}, ErrItemAlreadyUsed
	}
	item.Used = true

	result := UseResult{Item: *item, Profile: profile}
	s.log.WithUserID(userID).WithField("item_id", item.ShopItemID).Info("item used")
	return result, nil
}
