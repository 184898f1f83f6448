package listing

import "context"

// Store describes the persistence operations the listing service requires.
type Store interface {
	CreateProperty(ctx context.Context, p Property) (Property, error)
	GetProperty(ctx context.Context, id int64) (Property, error)
	UpdateProperty(ctx context.Context, id int64, upd PropertyUpdate) (Property, error)
	DeleteProperty(ctx context.Context, id int64) error
	ListProperties(ctx context.Context, f Filter) ([]Property, error)
	AppendImages(ctx context.Context, id int64, images []string) (Property, error)
}
