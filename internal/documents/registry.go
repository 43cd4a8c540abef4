package documents

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ledgerline/ledgerline/pkg/pagination"
	"github.com/ledgerline/ledgerline/pkg/storage"
)

// batchConcurrency bounds parallel blob uploads during batch creation.
const batchConcurrency = 4

type registry struct {
	mu         sync.RWMutex
	docs       map[uuid.UUID]Document
	storage    storage.System
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a document registry implementing the System interface.
// Metadata lives in memory; file bytes live in blob storage.
func New(
	store storage.System,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &registry{
		docs:       make(map[uuid.UUID]Document),
		storage:    store,
		logger:     logger.With("system", "documents"),
		pagination: pagination,
	}
}

func (r *registry) Handler(maxUploadSize int64) *Handler {
	return NewHandler(r, r.logger, r.pagination, maxUploadSize)
}

func (r *registry) List(
	ctx context.Context,
	page pagination.PageRequest,
) (*pagination.PageResult[Document], error) {
	page.Normalize(r.pagination)

	r.mu.RLock()
	docs := make([]Document, 0, len(r.docs))
	for _, d := range r.docs {
		if page.Search == "" ||
			strings.Contains(strings.ToLower(d.Filename), strings.ToLower(page.Search)) {
			docs = append(docs, d)
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(docs, func(a, b Document) int {
		if c := b.UploadedAt.Compare(a.UploadedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})

	result := pagination.Paginate(docs, page)
	return &result, nil
}

func (r *registry) Find(ctx context.Context, id uuid.UUID) (*Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return &d, nil
}

func (r *registry) Create(ctx context.Context, cmd CreateCommand) (*Document, error) {
	if len(cmd.Data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrInvalidFile)
	}

	id := uuid.New()
	key := buildStorageKey(id, sanitizeFilename(cmd.Filename))

	if err := r.storage.Upload(ctx, key, bytes.NewReader(cmd.Data), cmd.ContentType); err != nil {
		return nil, fmt.Errorf("upload document blob: %w", err)
	}

	doc := Document{
		ID:          id,
		Filename:    cmd.Filename,
		ContentType: cmd.ContentType,
		SizeBytes:   int64(len(cmd.Data)),
		PageCount:   cmd.PageCount,
		StorageKey:  key,
		UploadedAt:  time.Now().UTC(),
	}

	r.mu.Lock()
	r.docs[id] = doc
	r.mu.Unlock()

	r.logger.Info("document created", "id", doc.ID, "filename", doc.Filename)
	return &doc, nil
}

// CreateBatch uploads multiple documents concurrently. Each file succeeds or
// fails independently; the results slice preserves input order.
func (r *registry) CreateBatch(ctx context.Context, cmds []CreateCommand) []BatchResult {
	results := make([]BatchResult, len(cmds))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchConcurrency)

	for i, cmd := range cmds {
		g.Go(func() error {
			doc, err := r.Create(gctx, cmd)
			if err != nil {
				results[i] = BatchResult{Filename: cmd.Filename, Error: err.Error()}
				return nil
			}
			results[i] = BatchResult{Filename: cmd.Filename, Document: doc}
			return nil
		})
	}

	g.Wait()
	return results
}

func (r *registry) Download(ctx context.Context, id uuid.UUID) (*Document, io.ReadCloser, error) {
	doc, err := r.Find(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	body, err := r.storage.Download(ctx, doc.StorageKey)
	if err != nil {
		return nil, nil, fmt.Errorf("download document blob: %w", err)
	}

	return doc, body, nil
}

func (r *registry) Delete(ctx context.Context, id uuid.UUID) error {
	doc, err := r.Find(ctx, id)
	if err != nil {
		return err
	}

	r.mu.Lock()
	delete(r.docs, id)
	r.mu.Unlock()

	if delErr := r.storage.Delete(ctx, doc.StorageKey); delErr != nil {
		r.logger.Warn(
			"blob delete failed after registry delete",
			"key", doc.StorageKey,
			"error", delErr,
		)
	}

	r.logger.Info("document deleted", "id", id)
	return nil
}

func buildStorageKey(id uuid.UUID, filename string) string {
	return fmt.Sprintf("documents/%s/%s", id, filename)
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	if name == "." || name == "" {
		name = "document"
	}
	return url.PathEscape(name)
}
