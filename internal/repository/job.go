package repository

import (
	"context"

	"github.com/relaysched/relay/internal/domain"
)

// JobRepository is consumed by the control plane (CRUD of job definitions)
// and by the scheduler (reading active jobs to materialize runs for).
type JobRepository interface {
	Create(ctx context.Context, job *domain.Job) (*domain.Job, error)
	GetByID(ctx context.Context, id int64) (*domain.Job, error)
	List(ctx context.Context) ([]*domain.Job, error)
	SetActive(ctx context.Context, id int64, active bool) error

	// ListActive returns every job with is_active = true, for the
	// scheduler's materialization pass.
	ListActive(ctx context.Context) ([]*domain.Job, error)
}
