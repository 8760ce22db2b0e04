package entity

import "time"

// IncomingPO is a staging row written by the upstream PO import pipeline.
// The reconciliation engine only reads these and stamps ProcessedAt after a
// matching run; it never creates or edits the order data itself.
type IncomingPO struct {
	ID            string `json:"id" gorm:"primaryKey;size:32"`
	PONumber      string `json:"po_number" gorm:"size:64;not null;index"`
	VendorNameRaw string `json:"vendor_name_raw" gorm:"size:200;not null"`

	SKU                string `json:"sku" gorm:"size:100"`
	ProgramDescription string `json:"program_description" gorm:"size:500"`

	Quantity int64 `json:"quantity" gorm:"not null;default:0"`
	Value    int64 `json:"value" gorm:"not null;default:0"` // minor units

	ShipDate *time.Time `json:"ship_date"`

	ImportBatchID string     `json:"import_batch_id" gorm:"size:32;index"`
	ProcessedAt   *time.Time `json:"processed_at" gorm:"index"`
	CreatedAt     time.Time  `json:"created_at"`
}

func (IncomingPO) TableName() string {
	return "recon_incoming_pos"
}
