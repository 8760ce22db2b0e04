package service

import (
	"context"
	"errors"
	"strings"

	"github.com/harborline/merchops/internal/recon/entity"
	"github.com/harborline/merchops/internal/recon/repository"
)

// VendorDirectory is the canonical-name and alias registry the resolver
// queries.
type VendorDirectory interface {
	FindByCanonicalName(ctx context.Context, name string) (*entity.Vendor, error)
	FindByAlias(ctx context.Context, raw string) (*entity.Vendor, error)
}

// VendorResolver maps raw, free-text vendor names from imports to canonical
// vendors. An unresolved name is not an error; the caller skips the record.
type VendorResolver struct {
	directory VendorDirectory
}

func NewVendorResolver(directory VendorDirectory) *VendorResolver {
	return &VendorResolver{directory: directory}
}

// Resolve tries the canonical names first, then the alias table. Both lookups
// are case-insensitive and whitespace-trimmed. Returns nil when the name is
// unknown.
func (r *VendorResolver) Resolve(ctx context.Context, raw string) (*entity.Vendor, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	v, err := r.directory.FindByCanonicalName(ctx, raw)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	v, err = r.directory.FindByAlias(ctx, raw)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	return nil, nil
}
