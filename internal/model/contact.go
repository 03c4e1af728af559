package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Contact is a name, email and phone entry owned by the user who created it.
// Ownership follows OwnerID; CreatedBy mirrors the owner's current username.
type Contact struct {
	ID          uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	Name        string    `json:"name" gorm:"size:100;not null"`
	Email       string    `json:"email" gorm:"size:100;uniqueIndex;not null"`
	PhoneNumber string    `json:"phoneNumber" gorm:"size:20;uniqueIndex;not null"`
	OwnerID     uuid.UUID `json:"ownerId" gorm:"type:char(36);index;not null"`
	CreatedBy   string    `json:"createdBy" gorm:"size:30;not null"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// BeforeCreate sets UUID before creating the record.
func (c *Contact) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
