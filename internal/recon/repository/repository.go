package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
)

// ProjectionFilter narrows projection queries. Nil fields are ignored.
type ProjectionFilter struct {
	VendorID    *string
	Brand       *string
	Year        *int
	Month       *int
	MatchStatus *string
	OrderType   *string
}

// Repositories is the reconciliation repository set.
type Repositories struct {
	Vendor     *VendorRepository
	Projection *ProjectionRepository
	History    *HistoryRepository
	Expired    *ExpiredRepository
	IncomingPO *IncomingPORepository
}

// NewRepositories creates the reconciliation repository set.
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Vendor:     NewVendorRepository(db),
		Projection: NewProjectionRepository(db),
		History:    NewHistoryRepository(db),
		Expired:    NewExpiredRepository(db),
		IncomingPO: NewIncomingPORepository(db),
	}
}
