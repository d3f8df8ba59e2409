package interfaces

import (
	"archivist/internal/models"
	"context"
	"iter"
)

type RepositoryInterface interface {
	Initialize(ctx context.Context) error
	Save(ctx context.Context, record models.Record) (models.Result, error)
	Finalize(ctx context.Context) error
	FindLatest(ctx context.Context, serviceID, documentType string) (models.Result, error)
	FindByID(ctx context.Context, id string) (models.Result, error)
	FindAll(ctx context.Context) ([]models.Record, error)
	Iterate(ctx context.Context) iter.Seq2[models.Record, error]
	Count(ctx context.Context) (int, error)
	RemoveAll(ctx context.Context) error
	LoadRecordContent(ctx context.Context, record models.Record) (models.Record, error)
}
