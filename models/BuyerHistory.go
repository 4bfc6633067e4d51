package models

import (
	"time"

	"gorm.io/datatypes"
)

// BuyerHistory is an append-only audit trail. Diff holds either the initial
// snapshot ({"created": true, "fields": {...}}) or a per-field change map
// ({"field": {"from": ..., "to": ...}}).
type BuyerHistory struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	BuyerID   string         `json:"buyerId" gorm:"type:uuid;not null;index"`
	ChangedBy uint           `json:"changedBy" gorm:"not null"`
	Diff      datatypes.JSON `json:"diff" gorm:"not null"`
	ChangedAt time.Time      `json:"changedAt" gorm:"autoCreateTime;index"`
}
