package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harborline/merchops/internal/recon/entity"
	"github.com/harborline/merchops/internal/recon/repository"
)

// VendorService manages the canonical vendor registry and its aliases.
type VendorService struct {
	repo *repository.VendorRepository
}

func NewVendorService(repo *repository.VendorRepository) *VendorService {
	return &VendorService{repo: repo}
}

func (s *VendorService) List(ctx context.Context, page, pageSize int, search string) ([]entity.Vendor, int64, error) {
	return s.repo.FindAll(ctx, page, pageSize, search)
}

func (s *VendorService) Get(ctx context.Context, id string) (*entity.Vendor, error) {
	return s.repo.FindByID(ctx, id)
}

type CreateVendorRequest struct {
	Code          string `json:"code" binding:"required"`
	CanonicalName string `json:"canonical_name" binding:"required"`
	Country       string `json:"country"`
	ContactEmail  string `json:"contact_email"`
	Notes         string `json:"notes"`
}

func (s *VendorService) Create(ctx context.Context, userID string, req *CreateVendorRequest) (*entity.Vendor, error) {
	now := time.Now()
	v := &entity.Vendor{
		ID:            uuid.New().String()[:32],
		Code:          strings.TrimSpace(req.Code),
		CanonicalName: strings.TrimSpace(req.CanonicalName),
		Country:       req.Country,
		Status:        entity.VendorStatusActive,
		ContactEmail:  req.ContactEmail,
		Notes:         req.Notes,
		CreatedBy:     userID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

type UpdateVendorRequest struct {
	CanonicalName *string `json:"canonical_name"`
	Country       *string `json:"country"`
	Status        *string `json:"status"`
	ContactEmail  *string `json:"contact_email"`
	Notes         *string `json:"notes"`
}

func (s *VendorService) Update(ctx context.Context, id string, req *UpdateVendorRequest) (*entity.Vendor, error) {
	v, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.CanonicalName != nil {
		v.CanonicalName = strings.TrimSpace(*req.CanonicalName)
	}
	if req.Country != nil {
		v.Country = *req.Country
	}
	if req.Status != nil {
		v.Status = *req.Status
	}
	if req.ContactEmail != nil {
		v.ContactEmail = *req.ContactEmail
	}
	if req.Notes != nil {
		v.Notes = *req.Notes
	}
	v.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// AddAlias registers a raw import-name alias for a vendor.
func (s *VendorService) AddAlias(ctx context.Context, vendorID, aliasText, userID string) (*entity.VendorAlias, error) {
	if _, err := s.repo.FindByID(ctx, vendorID); err != nil {
		return nil, err
	}

	alias := &entity.VendorAlias{
		ID:        uuid.New().String()[:32],
		VendorID:  vendorID,
		AliasText: strings.TrimSpace(aliasText),
		CreatedBy: userID,
		CreatedAt: time.Now(),
	}
	if err := s.repo.AddAlias(ctx, alias); err != nil {
		return nil, err
	}
	return alias, nil
}

func (s *VendorService) RemoveAlias(ctx context.Context, aliasID string) error {
	return s.repo.RemoveAlias(ctx, aliasID)
}
