package entity

import "time"

// Vendor is the canonical vendor record that raw import names resolve to.
type Vendor struct {
	ID            string    `json:"id" gorm:"primaryKey;size:32"`
	Code          string    `json:"code" gorm:"size:32;uniqueIndex;not null"`
	CanonicalName string    `json:"canonical_name" gorm:"size:200;not null;index"`
	Country       string    `json:"country" gorm:"size:50"`
	Status        string    `json:"status" gorm:"size:20;default:active"` // active/inactive
	ContactEmail  string    `json:"contact_email" gorm:"size:200"`
	CreatedBy     string    `json:"created_by" gorm:"size:32"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Notes         string    `json:"notes" gorm:"type:text"`

	Aliases []VendorAlias `json:"aliases,omitempty" gorm:"foreignKey:VendorID"`
}

func (Vendor) TableName() string {
	return "recon_vendors"
}

const (
	VendorStatusActive   = "active"
	VendorStatusInactive = "inactive"
)

// VendorAlias maps a raw vendor-name string seen in imports to a vendor.
// Lookup is case-insensitive and whitespace-trimmed.
type VendorAlias struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	VendorID  string    `json:"vendor_id" gorm:"size:32;not null;index"`
	AliasText string    `json:"alias_text" gorm:"size:200;not null;uniqueIndex"`
	CreatedBy string    `json:"created_by" gorm:"size:32"`
	CreatedAt time.Time `json:"created_at"`
}

func (VendorAlias) TableName() string {
	return "recon_vendor_aliases"
}
