package entity

import "time"

// ExpiredProjection is the operator review ledger row created when a
// projection transitions to expired. It is independent of the live projection:
// verification never touches the live row, restore flips it back to unmatched.
type ExpiredProjection struct {
	ID           string `json:"id" gorm:"primaryKey;size:32"`
	ProjectionID string `json:"projection_id" gorm:"size:32;not null;index"`
	VendorID     string `json:"vendor_id" gorm:"size:32;not null;index"`
	Brand        string `json:"brand" gorm:"size:100"`

	SKU        string `json:"sku" gorm:"size:100"`
	Collection string `json:"collection" gorm:"size:200"`
	OrderType  string `json:"order_type" gorm:"size:20;not null"`

	Year  int `json:"year" gorm:"not null"`
	Month int `json:"month" gorm:"not null"`

	ProjectedQty   int64 `json:"projected_qty" gorm:"not null;default:0"`
	ProjectedValue int64 `json:"projected_value" gorm:"not null;default:0"`

	ExpiredAt     time.Time `json:"expired_at" gorm:"not null;index"`
	ExpiredReason string    `json:"expired_reason" gorm:"type:text"`
	ExpiredBy     string    `json:"expired_by" gorm:"size:32"` // empty for sweep expirations

	VerificationStatus string     `json:"verification_status" gorm:"size:20;not null;default:pending;index"` // pending/verified/cancelled/restored
	VerifiedBy         *string    `json:"verified_by" gorm:"size:32"`
	VerifiedAt         *time.Time `json:"verified_at"`
	VerificationNotes  string     `json:"verification_notes" gorm:"type:text"`

	RestoredBy *string    `json:"restored_by" gorm:"size:32"`
	RestoredAt *time.Time `json:"restored_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ExpiredProjection) TableName() string {
	return "recon_expired_projections"
}

// Verification status
const (
	VerificationPending   = "pending"
	VerificationVerified  = "verified"
	VerificationCancelled = "cancelled"
	VerificationRestored  = "restored"
)
