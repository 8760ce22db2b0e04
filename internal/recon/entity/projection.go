package entity

import "time"

// Projection is a vendor's forecasted order volume/value for a target month,
// keyed by SKU (regular) or by collection name (MTO). Quantity and value are
// non-negative integers; value is in minor currency units.
type Projection struct {
	ID       string `json:"id" gorm:"primaryKey;size:32"`
	VendorID string `json:"vendor_id" gorm:"size:32;not null;index"`
	Brand    string `json:"brand" gorm:"size:100;index"`

	// Exactly one of SKU/Collection is meaningful, depending on OrderType.
	SKU        string `json:"sku" gorm:"size:100;index"`
	Collection string `json:"collection" gorm:"size:200"`
	OrderType  string `json:"order_type" gorm:"size:20;not null;default:regular"` // regular/mto

	Year  int `json:"year" gorm:"not null;index"`
	Month int `json:"month" gorm:"not null;index"` // 1-12

	ProjectedQty   int64 `json:"projected_qty" gorm:"not null;default:0"`
	ProjectedValue int64 `json:"projected_value" gorm:"not null;default:0"`

	MatchStatus     string     `json:"match_status" gorm:"size:20;not null;default:unmatched;index"` // unmatched/partial/matched/expired
	MatchedPONumber *string    `json:"matched_po_number" gorm:"size:64"`
	MatchedAt       *time.Time `json:"matched_at"`

	ActualQty        *int64 `json:"actual_qty"`
	ActualValue      *int64 `json:"actual_value"`
	QuantityVariance *int64 `json:"quantity_variance"`
	ValueVariance    *int64 `json:"value_variance"`
	VariancePct      *int   `json:"variance_pct"`

	Comment   string    `json:"comment" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Vendor *Vendor `json:"vendor,omitempty" gorm:"foreignKey:VendorID"`
}

func (Projection) TableName() string {
	return "recon_projections"
}

// Match status
const (
	MatchStatusUnmatched = "unmatched"
	MatchStatusPartial   = "partial"
	MatchStatusMatched   = "matched"
	MatchStatusExpired   = "expired"
)

// Order type
const (
	OrderTypeRegular = "regular"
	OrderTypeMTO     = "mto"
)

// DueWindowEnd returns the last calendar day of the projection's target month.
func (p *Projection) DueWindowEnd() time.Time {
	return time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC).
		AddDate(0, 1, -1)
}

// ClearMatch resets all match and variance fields back to the unmatched shape.
func (p *Projection) ClearMatch() {
	p.MatchStatus = MatchStatusUnmatched
	p.MatchedPONumber = nil
	p.MatchedAt = nil
	p.ActualQty = nil
	p.ActualValue = nil
	p.QuantityVariance = nil
	p.ValueVariance = nil
	p.VariancePct = nil
}

// ProjectionHistory is an append-only copy of a projection row, written once
// per vendor re-import and never mutated afterward.
type ProjectionHistory struct {
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

	MatchStatus     string     `json:"match_status" gorm:"size:20;not null"`
	MatchedPONumber *string    `json:"matched_po_number" gorm:"size:64"`
	MatchedAt       *time.Time `json:"matched_at"`

	ActualQty        *int64 `json:"actual_qty"`
	ActualValue      *int64 `json:"actual_value"`
	QuantityVariance *int64 `json:"quantity_variance"`
	ValueVariance    *int64 `json:"value_variance"`
	VariancePct      *int   `json:"variance_pct"`

	Comment    string    `json:"comment" gorm:"type:text"`
	ArchivedAt time.Time `json:"archived_at" gorm:"not null;index"`
}

func (ProjectionHistory) TableName() string {
	return "recon_projection_history"
}
