package listing

import (
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("property not found")
	ErrInvalidInput = errors.New("invalid input")
)

// Type categorizes a property listing.
type Type string

const (
	TypeHouse      Type = "house"
	TypeApartment  Type = "apartment"
	TypeCondo      Type = "condo"
	TypeLand       Type = "land"
	TypeCommercial Type = "commercial"
)

// Valid reports whether t is a known property type.
func (t Type) Valid() bool {
	switch t {
	case TypeHouse, TypeApartment, TypeCondo, TypeLand, TypeCommercial:
		return true
	default:
		return false
	}
}

// Status is the publication state of a listing. Drafts are private to their
// owner and admins; published listings are public.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// Valid reports whether s is a known publication state.
func (s Status) Valid() bool {
	return s == StatusDraft || s == StatusPublished
}

// Property is a real-estate listing. The owner is fixed at creation and
// never reassigned.
type Property struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Price       float64   `json:"price"`
	Surface     float64   `json:"surface"`
	City        string    `json:"city"`
	Street      string    `json:"street,omitempty"`
	Address     string    `json:"address,omitempty"`
	Type        Type      `json:"property_type"`
	Bedrooms    int       `json:"bedrooms,omitempty"`
	Bathrooms   int       `json:"bathrooms,omitempty"`
	Description string    `json:"description,omitempty"`
	Images      []string  `json:"images"`
	Status      Status    `json:"status"`
	OwnerID     int64     `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Published reports whether the listing is publicly visible.
func (p Property) Published() bool {
	return p.Status == StatusPublished
}

// NewProperty is the payload for creating a listing; owner and status are
// assigned by the service.
type NewProperty struct {
	Title       string  `json:"title"`
	Price       float64 `json:"price"`
	Surface     float64 `json:"surface"`
	City        string  `json:"city"`
	Street      string  `json:"street"`
	Address     string  `json:"address"`
	Type        Type    `json:"property_type"`
	Bedrooms    int     `json:"bedrooms"`
	Bathrooms   int     `json:"bathrooms"`
	Description string  `json:"description"`
}

// PropertyUpdate is a partial update: nil fields are left untouched.
type PropertyUpdate struct {
	Title       *string  `json:"title"`
	Price       *float64 `json:"price"`
	Surface     *float64 `json:"surface"`
	City        *string  `json:"city"`
	Street      *string  `json:"street"`
	Address     *string  `json:"address"`
	Type        *Type    `json:"property_type"`
	Bedrooms    *int     `json:"bedrooms"`
	Bathrooms   *int     `json:"bathrooms"`
	Description *string  `json:"description"`
	Status      *Status  `json:"status"`
}

// Sort orders listing queries.
type Sort string

const (
	SortNewest    Sort = "newest"
	SortPriceAsc  Sort = "price_asc"
	SortPriceDesc Sort = "price_desc"
)

// Filter narrows and pages listing queries at the store.
type Filter struct {
	OwnerID *int64
	Status  *Status
	City    string
	Sort    Sort
	Offset  int
	Limit   int
}
