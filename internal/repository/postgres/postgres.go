package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/datascout/datascout/internal/domain"
	"github.com/datascout/datascout/internal/repository"
)

// uniqueViolation is the PostgreSQL error code for unique constraint failures.
const uniqueViolation = "23505"

// Repository implements persistence interfaces on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// New constructs a Repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ensure Repository satisfies interfaces.
var (
	_ repository.UserRepository    = (*Repository)(nil)
	_ repository.DatasetRepository = (*Repository)(nil)
	_ repository.FollowRepository  = (*Repository)(nil)
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// CreateUser inserts a user and assigns its generated id.
func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	const query = `INSERT INTO users (name, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	row := r.pool.QueryRow(ctx, query, user.Name, user.Email, user.PasswordHash, user.CreatedAt)
	if err := row.Scan(&user.ID); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	return nil
}

// GetUserByEmail fetches a user by email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `SELECT id, name, email, password_hash, created_at FROM users WHERE email = $1`
	row := r.pool.QueryRow(ctx, query, email)
	var u domain.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetUserByID retrieves a user by identifier.
func (r *Repository) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	const query = `SELECT id, name, email, password_hash, created_at FROM users WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, id)
	var u domain.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// UpsertDataset inserts a cache row keyed by hf_id or overwrites the
// refreshable fields of an existing one, assigning the row id.
func (r *Repository) UpsertDataset(ctx context.Context, dataset *domain.Dataset) error {
	const query = `INSERT INTO datasets (hf_id, description, size_bytes, num_samples, download_count, impact_score, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (hf_id) DO UPDATE SET
			description = EXCLUDED.description,
			size_bytes = EXCLUDED.size_bytes,
			num_samples = EXCLUDED.num_samples,
			download_count = EXCLUDED.download_count,
			impact_score = EXCLUDED.impact_score,
			last_updated = EXCLUDED.last_updated
		RETURNING id`
	row := r.pool.QueryRow(ctx, query,
		dataset.HFID, dataset.Description, dataset.SizeBytes, dataset.NumSamples,
		dataset.DownloadCount, dataset.ImpactScore, dataset.LastUpdated)
	return row.Scan(&dataset.ID)
}

// EnsureDataset creates a bare cache row for hf_id if none exists and
// returns the row either way. Existing metadata is left untouched.
func (r *Repository) EnsureDataset(ctx context.Context, hfID string) (*domain.Dataset, error) {
	const query = `INSERT INTO datasets (hf_id)
		VALUES ($1)
		ON CONFLICT (hf_id) DO UPDATE SET hf_id = EXCLUDED.hf_id
		RETURNING id, hf_id, description, size_bytes, num_samples, download_count, impact_score, last_updated`
	row := r.pool.QueryRow(ctx, query, hfID)
	var d domain.Dataset
	if err := row.Scan(&d.ID, &d.HFID, &d.Description, &d.SizeBytes, &d.NumSamples,
		&d.DownloadCount, &d.ImpactScore, &d.LastUpdated); err != nil {
		return nil, err
	}
	return &d, nil
}

// GetDatasetByHFID fetches a cached dataset by its canonical registry id.
func (r *Repository) GetDatasetByHFID(ctx context.Context, hfID string) (*domain.Dataset, error) {
	const query = `SELECT id, hf_id, description, size_bytes, num_samples, download_count, impact_score, last_updated
		FROM datasets WHERE hf_id = $1`
	row := r.pool.QueryRow(ctx, query, hfID)
	var d domain.Dataset
	if err := row.Scan(&d.ID, &d.HFID, &d.Description, &d.SizeBytes, &d.NumSamples,
		&d.DownloadCount, &d.ImpactScore, &d.LastUpdated); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// CreateFollow inserts a follow edge. A concurrent insert of the same
// edge surfaces as ErrDuplicate via the composite unique constraint.
func (r *Repository) CreateFollow(ctx context.Context, follow *domain.Follow) error {
	const query = `INSERT INTO followed_datasets (user_id, dataset_id, followed_at)
		VALUES ($1, $2, $3)`
	if _, err := r.pool.Exec(ctx, query, follow.UserID, follow.DatasetID, follow.FollowedAt); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	return nil
}

// FollowExists reports whether the user already follows the dataset.
func (r *Repository) FollowExists(ctx context.Context, userID, datasetID int64) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM followed_datasets WHERE user_id = $1 AND dataset_id = $2)`
	row := r.pool.QueryRow(ctx, query, userID, datasetID)
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// DeleteFollow removes a follow edge, reporting ErrNotFound when absent.
func (r *Repository) DeleteFollow(ctx context.Context, userID, datasetID int64) error {
	const query = `DELETE FROM followed_datasets WHERE user_id = $1 AND dataset_id = $2`
	tag, err := r.pool.Exec(ctx, query, userID, datasetID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ListFollowedDatasets returns every dataset the user follows.
func (r *Repository) ListFollowedDatasets(ctx context.Context, userID int64) ([]domain.Dataset, error) {
	const query = `SELECT d.id, d.hf_id, d.description, d.size_bytes, d.num_samples, d.download_count, d.impact_score, d.last_updated
		FROM datasets d
		JOIN followed_datasets f ON f.dataset_id = d.id
		WHERE f.user_id = $1
		ORDER BY f.followed_at`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var datasets []domain.Dataset
	for rows.Next() {
		var d domain.Dataset
		if err := rows.Scan(&d.ID, &d.HFID, &d.Description, &d.SizeBytes, &d.NumSamples,
			&d.DownloadCount, &d.ImpactScore, &d.LastUpdated); err != nil {
			return nil, err
		}
		datasets = append(datasets, d)
	}
	return datasets, rows.Err()
}
