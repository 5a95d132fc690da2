package ports

import (
	"context"

	"github.com/taskmaster/trackcounters/internal/domain/entities"
)

// DocumentRepository defines how the tracks document is loaded and persisted
type DocumentRepository interface {
	// Load reads and shape-checks the whole document. It never writes.
	Load(ctx context.Context) (*entities.Document, error)
	// Save serializes the document and writes it to the target path.
	Save(ctx context.Context, doc *entities.Document) error
	// Source is the path the document is read from
	Source() string
	// Target is the path the document is written to
	Target() string
}
