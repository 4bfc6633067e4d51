package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Buyer is a captured lead. Enum columns hold storage tokens (see
// utils/codec.go); optional columns are NULL when absent rather than empty
// strings so the audit diff can tell "cleared" from "never set".
type Buyer struct {
	ID           string         `json:"id" gorm:"type:uuid;primaryKey"`
	FullName     string         `json:"fullName" gorm:"not null"`
	Email        *string        `json:"email"`
	Phone        string         `json:"phone" gorm:"not null;index"`
	City         string         `json:"city" gorm:"not null"`
	PropertyType string         `json:"propertyType" gorm:"not null"`
	BHK          *string        `json:"bhk"`
	Purpose      string         `json:"purpose" gorm:"not null"`
	BudgetMin    *int           `json:"budgetMin"`
	BudgetMax    *int           `json:"budgetMax"`
	Timeline     string         `json:"timeline" gorm:"not null"`
	Source       string         `json:"source" gorm:"not null"`
	Notes        *string        `json:"notes"`
	Tags         datatypes.JSON `json:"tags"`
	Status       string         `json:"status" gorm:"not null;default:New"`
	OwnerID      uint           `json:"ownerId" gorm:"not null;index"`
	Owner        *User          `json:"-" gorm:"foreignKey:OwnerID;references:ID"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt" gorm:"index"`
}

func (b *Buyer) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// TagList unpacks the tags JSON column. Returns an empty slice for NULL or
// malformed values.
func (b *Buyer) TagList() []string {
	tags := []string{}
	if len(b.Tags) > 0 {
		_ = json.Unmarshal(b.Tags, &tags)
	}
	return tags
}

func (b Buyer) MarshalJSON() ([]byte, error) {
	type Alias Buyer
	return json.Marshal(&struct {
		Tags []string `json:"tags"`
		*Alias
	}{
		Tags:  b.TagList(),
		Alias: (*Alias)(&b),
	})
}

// BuyerInput is the UI-facing payload for create, update and import. Enum
// fields carry UI tokens here and are encoded to storage tokens when mapped
// onto a Buyer. Struct-level rules (phone digits, conditional bhk, budget
// ordering) live in utils/validation.go.
type BuyerInput struct {
	FullName     string   `json:"fullName" validate:"required,min=2,max=80"`
	Email        string   `json:"email" validate:"omitempty,email"`
	Phone        string   `json:"phone" validate:"required"`
	City         string   `json:"city" validate:"required,oneof=Chandigarh Mohali Zirakpur Panchkula Other"`
	PropertyType string   `json:"propertyType" validate:"required,oneof=Apartment Villa Plot Office Retail"`
	BHK          string   `json:"bhk" validate:"omitempty,oneof=1 2 3 4 Studio"`
	Purpose      string   `json:"purpose" validate:"required,oneof=Buy Rent"`
	BudgetMin    *int     `json:"budgetMin" validate:"omitempty,gte=0"`
	BudgetMax    *int     `json:"budgetMax" validate:"omitempty,gte=0"`
	Timeline     string   `json:"timeline" validate:"required,oneof=0-3m 3-6m >6m Exploring"`
	Source       string   `json:"source" validate:"required,oneof=Website Referral Walk-in Call Other"`
	Notes        string   `json:"notes" validate:"omitempty,max=1000"`
	Tags         []string `json:"tags" validate:"omitempty,dive,min=1,max=30"`
	Status       string   `json:"status" validate:"omitempty,oneof=New Qualified Contacted Visited Negotiation Converted Dropped"`
}
