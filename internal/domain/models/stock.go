package models

import "time"

// InventoryItem is a catalog entry as seen by the low-stock evaluator.
type InventoryItem struct {
	ID              string  `bson:"_id" json:"id"`
	Name            string  `bson:"name" json:"name"`
	Category        string  `bson:"category" json:"category"`
	Quantity        float64 `bson:"quantity" json:"quantity"`
	MinimumQuantity float64 `bson:"minimum_quantity" json:"minimum_quantity"`
	Location        string  `bson:"location" json:"location"`
	IsActive        bool    `bson:"is_active" json:"is_active"`
}

// IsLow reports whether the item is at or below its minimum quantity.
func (i InventoryItem) IsLow() bool {
	return i.Quantity <= i.MinimumQuantity
}

// Shortfall is how many units are needed to get back to the minimum.
func (i InventoryItem) Shortfall() float64 {
	if i.Quantity >= i.MinimumQuantity {
		return 0
	}
	return i.MinimumQuantity - i.Quantity
}

// LowStockState is the persisted per-item alert state.
type LowStockState struct {
	ItemID                   string     `bson:"item_id" json:"item_id"`
	IsLow                    bool       `bson:"is_low" json:"is_low"`
	FirstLowAt               *time.Time `bson:"first_low_at" json:"first_low_at"`
	LastThresholdEmailAt     *time.Time `bson:"last_threshold_email_at" json:"last_threshold_email_at"`
	LastDailyDigestLocalDate string     `bson:"last_daily_digest_local_date" json:"last_daily_digest_local_date"`
	UpdatedAt                time.Time  `bson:"updated_at" json:"updated_at"`
}

// ThresholdNotified reports whether the threshold email for the current low
// episode has already gone out.
func (s LowStockState) ThresholdNotified() bool {
	if !s.IsLow || s.FirstLowAt == nil || s.LastThresholdEmailAt == nil {
		return false
	}
	return !s.LastThresholdEmailAt.Before(*s.FirstLowAt)
}

// LowStockEntry pairs a currently low item with its state, used by listings
// and exports.
type LowStockEntry struct {
	Item  InventoryItem `json:"item"`
	State LowStockState `json:"state"`
}
