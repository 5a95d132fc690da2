package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/renameio/v2"

	"github.com/taskmaster/trackcounters/internal/domain/entities"
	"github.com/taskmaster/trackcounters/internal/infrastructure/logger"
)

// FileOptions describes where the document lives and how it is written back
type FileOptions struct {
	InputPath   string
	OutputPath  string // empty means overwrite InputPath
	AtomicWrite bool
	Indent      int
	FilePerm    os.FileMode // used only when the target does not exist yet
}

// DocumentRepository implements ports.DocumentRepository on a local JSON file
type DocumentRepository struct {
	opts   FileOptions
	logger *logger.Logger
}

// NewDocumentRepository creates a new file-backed document repository
func NewDocumentRepository(opts FileOptions, log *logger.Logger) *DocumentRepository {
	if opts.FilePerm == 0 {
		opts.FilePerm = 0o644
	}
	return &DocumentRepository{
		opts:   opts,
		logger: log.WithComponent("document_repository"),
	}
}

// Source returns the input path
func (r *DocumentRepository) Source() string {
	return r.opts.InputPath
}

// Target returns the output path, which is the input path unless overridden
func (r *DocumentRepository) Target() string {
	if r.opts.OutputPath == "" {
		return r.opts.InputPath
	}
	return r.opts.OutputPath
}

// Load reads the whole file into memory and parses it
func (r *DocumentRepository) Load(ctx context.Context) (*entities.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := r.Source()
	log := r.logger.WithPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	doc, err := entities.ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	log.Debugw("Document loaded",
		"bytes", len(data),
		"tracks", len(doc.Tracks()),
	)

	return doc, nil
}

// Save encodes the document completely before touching the target file.
func (r *DocumentRepository) Save(ctx context.Context, doc *entities.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := Encode(doc, r.opts.Indent)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	path := r.Target()
	if r.opts.AtomicWrite {
		err = writeAtomic(path, data, r.opts.FilePerm)
	} else {
		err = writeInPlace(path, data, r.opts.FilePerm)
	}
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	r.logger.WithPath(path).Debugw("Document saved",
		"bytes", len(data),
		"atomic", r.opts.AtomicWrite,
	)

	return nil
}

// Encode serializes doc with the given indent width (0 for compact output).
// Non-ASCII text and HTML characters are written as-is and no trailing
// newline is added.
func Encode(doc *entities.Document, indent int) ([]byte, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent > 0 {
		enc.SetIndent("", strings.Repeat(" ", indent))
	}

	if err := enc.Encode(doc); err != nil {
		return nil, err
	}

	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// writeInPlace truncates and rewrites path. An interrupted write leaves the
// file partially written.
func writeInPlace(path string, data []byte, perm os.FileMode) (err error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	_, err = f.Write(data)
	return err
}

// writeAtomic replaces path through a temp file in the same directory. An
// existing file keeps its permission bits.
func writeAtomic(path string, data []byte, perm os.FileMode) error {
	return renameio.WriteFile(path, data, perm, renameio.WithExistingPermissions())
}
