package documents

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/ledgerline/ledgerline/pkg/pagination"
)

// System defines the public contract for document domain operations.
type System interface {
	Handler(maxUploadSize int64) *Handler

	List(ctx context.Context, page pagination.PageRequest) (*pagination.PageResult[Document], error)
	Find(ctx context.Context, id uuid.UUID) (*Document, error)
	Create(ctx context.Context, cmd CreateCommand) (*Document, error)
	CreateBatch(ctx context.Context, cmds []CreateCommand) []BatchResult
	Download(ctx context.Context, id uuid.UUID) (*Document, io.ReadCloser, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
