package listing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"homegrid.io/internal/auth"
)

const (
	defaultPageSize = 100
	maxPageSize     = 1000
)

// Service enforces the authorization and visibility rules over the listing
// store. Every method takes the caller (nil for anonymous) so the decisions
// are testable without a transport in front.
type Service struct {
	store Store
}

// NewService constructs the listing service.
func NewService(store Store) (*Service, error) {
	if store == nil {
		return nil, errors.New("listing: store is required")
	}
	return &Service{store: store}, nil
}

// Create registers a new draft listing owned by the caller.
func (s *Service) Create(ctx context.Context, caller *auth.User, in NewProperty) (Property, error) {
	if caller == nil {
		return Property{}, auth.ErrForbidden
	}
	p := Property{
		Title:       strings.TrimSpace(in.Title),
		Price:       in.Price,
		Surface:     in.Surface,
		City:        strings.TrimSpace(in.City),
		Street:      strings.TrimSpace(in.Street),
		Address:     strings.TrimSpace(in.Address),
		Type:        in.Type,
		Bedrooms:    in.Bedrooms,
		Bathrooms:   in.Bathrooms,
		Description: in.Description,
		Images:      []string{},
		Status:      StatusDraft,
		OwnerID:     caller.ID,
	}
	if p.Title == "" {
		return Property{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if p.Price <= 0 {
		return Property{}, fmt.Errorf("%w: price must be > 0", ErrInvalidInput)
	}
	if p.Surface <= 0 {
		return Property{}, fmt.Errorf("%w: surface must be > 0", ErrInvalidInput)
	}
	if p.City == "" {
		return Property{}, fmt.Errorf("%w: city is required", ErrInvalidInput)
	}
	if !p.Type.Valid() {
		return Property{}, fmt.Errorf("%w: unsupported property type %q", ErrInvalidInput, in.Type)
	}
	return s.store.CreateProperty(ctx, p)
}

// Get fetches a single listing through the visibility filter. A draft
// hidden from the caller returns the same ErrNotFound as a missing row, so
// draft existence never leaks.
func (s *Service) Get(ctx context.Context, caller *auth.User, id int64) (Property, error) {
	p, err := s.store.GetProperty(ctx, id)
	if err != nil {
		return Property{}, err
	}
	if !auth.Visible(caller, p.OwnerID, p.Published()) {
		return Property{}, ErrNotFound
	}
	return p, nil
}

// Update applies a partial update and reports the status the listing had
// before the change, so callers can tell a fresh publish from a no-op one.
// A missing listing is ErrNotFound; an existing one the caller may not
// modify is ErrForbidden. Only the read path hides drafts, the write path
// reports denial outright.
func (s *Service) Update(ctx context.Context, caller *auth.User, id int64, upd PropertyUpdate) (Property, Status, error) {
	p, err := s.store.GetProperty(ctx, id)
	if err != nil {
		return Property{}, "", err
	}
	if !auth.Authorize(caller, p.OwnerID, auth.OpWrite) {
		return Property{}, "", auth.ErrForbidden
	}
	if err := validateUpdate(upd); err != nil {
		return Property{}, "", err
	}
	updated, err := s.store.UpdateProperty(ctx, id, upd)
	if err != nil {
		return Property{}, "", err
	}
	return updated, p.Status, nil
}

// CanModify checks write access to a listing without changing it, using the
// same rules as Update and Delete. Handlers with side effects outside the
// store (image files on disk) call it before producing any.
func (s *Service) CanModify(ctx context.Context, caller *auth.User, id int64) error {
	p, err := s.store.GetProperty(ctx, id)
	if err != nil {
		return err
	}
	if !auth.Authorize(caller, p.OwnerID, auth.OpWrite) {
		return auth.ErrForbidden
	}
	return nil
}

// Delete removes a listing; same access rule as Update.
func (s *Service) Delete(ctx context.Context, caller *auth.User, id int64) error {
	p, err := s.store.GetProperty(ctx, id)
	if err != nil {
		return err
	}
	if !auth.Authorize(caller, p.OwnerID, auth.OpDelete) {
		return auth.ErrForbidden
	}
	return s.store.DeleteProperty(ctx, id)
}

// ListMine returns the caller's own listings, drafts included.
func (s *Service) ListMine(ctx context.Context, caller *auth.User, status *Status, sort Sort, offset, limit int) ([]Property, error) {
	if caller == nil {
		return nil, auth.ErrForbidden
	}
	if status != nil && !status.Valid() {
		return nil, fmt.Errorf("%w: unsupported status %q", ErrInvalidInput, *status)
	}
	owner := caller.ID
	return s.store.ListProperties(ctx, Filter{
		OwnerID: &owner,
		Status:  status,
		Sort:    sort,
		Offset:  clampOffset(offset),
		Limit:   clampLimit(limit),
	})
}

// ListPublished returns published listings, visible to anyone.
func (s *Service) ListPublished(ctx context.Context, city string, sort Sort, offset, limit int) ([]Property, error) {
	status := StatusPublished
	return s.store.ListProperties(ctx, Filter{
		Status: &status,
		City:   strings.TrimSpace(city),
		Sort:   sort,
		Offset: clampOffset(offset),
		Limit:  clampLimit(limit),
	})
}

// ListAll returns every listing regardless of state. Admin only, no
// ownership exception.
func (s *Service) ListAll(ctx context.Context, caller *auth.User, offset, limit int) ([]Property, error) {
	if !caller.IsAdmin() {
		return nil, auth.ErrForbidden
	}
	return s.store.ListProperties(ctx, Filter{
		Offset: clampOffset(offset),
		Limit:  clampLimit(limit),
	})
}

// AttachImages appends stored image paths to a listing the caller may
// modify.
func (s *Service) AttachImages(ctx context.Context, caller *auth.User, id int64, images []string) (Property, error) {
	p, err := s.store.GetProperty(ctx, id)
	if err != nil {
		return Property{}, err
	}
	if !auth.Authorize(caller, p.OwnerID, auth.OpWrite) {
		return Property{}, auth.ErrForbidden
	}
	if len(images) == 0 {
		return Property{}, fmt.Errorf("%w: no images provided", ErrInvalidInput)
	}
	return s.store.AppendImages(ctx, id, images)
}

func validateUpdate(upd PropertyUpdate) error {
	if upd.Title != nil && strings.TrimSpace(*upd.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if upd.Price != nil && *upd.Price <= 0 {
		return fmt.Errorf("%w: price must be > 0", ErrInvalidInput)
	}
	if upd.Surface != nil && *upd.Surface <= 0 {
		return fmt.Errorf("%w: surface must be > 0", ErrInvalidInput)
	}
	if upd.City != nil && strings.TrimSpace(*upd.City) == "" {
		return fmt.Errorf("%w: city is required", ErrInvalidInput)
	}
	if upd.Type != nil && !upd.Type.Valid() {
		return fmt.Errorf("%w: unsupported property type %q", ErrInvalidInput, *upd.Type)
	}
	if upd.Status != nil && !upd.Status.Valid() {
		return fmt.Errorf("%w: unsupported status %q", ErrInvalidInput, *upd.Status)
	}
	return nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultPageSize
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}

func clampOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
