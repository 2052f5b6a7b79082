package models

import "time"

// ShopItem is something points can buy
type ShopItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Cost        int    `json:"cost"`
}

// WalletItem is a purchased shop item. Used flips once and the row is never deleted.
type WalletItem struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	ShopItemID  string    `json:"shopItemId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Image       string    `json:"image"`
	PurchasedAt time.Time `json:"purchasedAt"`
	Used        bool      `json:"used"`
}
