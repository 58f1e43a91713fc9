package emergency

import (
	"context"
)

// Repository is the append-mostly document store the hub writes to.
type Repository interface {
	Insert(ctx context.Context, d *Document) error
}
