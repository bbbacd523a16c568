package leads

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the subset of pgxpool.Pool used by the repository.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores records in the lead_records table.
type PostgresRepository struct {
	pool PgxPool
}

var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool PgxPool) *PostgresRepository {
	if pool == nil {
		panic("leads: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

const recordColumns = `
	id::text, seq, contact, consultation_type, residence, acquisition_source,
	customer_name, name_suffix, test_answers, debt_info,
	status, COALESCE(remote_id, ''), is_duplicate, duplicate_count, attempts,
	COALESCE(error_kind, ''), COALESCE(error_detail, ''),
	created_at, updated_at
`

// Create inserts a new pending row.
func (r *PostgresRepository) Create(ctx context.Context, sub *Submission) (*Record, error) {
	if sub == nil || sub.Contact == "" {
		return nil, ErrMissingContact
	}

	id := uuid.New()
	query := `
		INSERT INTO lead_records (
			id, contact, consultation_type, residence, acquisition_source,
			customer_name, name_suffix, test_answers, debt_info, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING seq, created_at, updated_at
	`
	rec := &Record{
		ID:         id.String(),
		Submission: *sub,
		Outcome:    Outcome{Status: StatusPending},
	}
	if err := r.pool.QueryRow(ctx, query,
		id,
		sub.Contact,
		string(sub.ConsultationType),
		sub.Residence,
		sub.AcquisitionSource,
		sub.CustomerName,
		sub.NameSuffix,
		nullJSON(sub.TestAnswers),
		nullJSON(sub.DebtInfo),
		string(StatusPending),
	).Scan(&rec.Seq, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, fmt.Errorf("leads: insert failed: %w", err)
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()
	return rec, nil
}

// Update writes the outcome columns. Writing the same outcome twice leaves
// the row unchanged apart from updated_at.
func (r *PostgresRepository) Update(ctx context.Context, id string, outcome Outcome) error {
	if err := outcome.Validate(); err != nil {
		return err
	}
	if _, err := uuid.Parse(id); err != nil {
		return ErrRecordNotFound
	}
	query := `
		UPDATE lead_records
		SET status = $2,
			remote_id = NULLIF($3, ''),
			is_duplicate = $4,
			duplicate_count = $5,
			attempts = $6,
			error_kind = NULLIF($7, ''),
			error_detail = NULLIF($8, ''),
			updated_at = now()
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query,
		id,
		string(outcome.Status),
		outcome.RemoteID,
		outcome.IsDuplicate,
		outcome.DuplicateCount,
		outcome.Attempts,
		outcome.ErrorKind,
		outcome.ErrorDetail,
	)
	if err != nil {
		return fmt.Errorf("leads: update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// GetByID fetches one record.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrRecordNotFound
	}
	query := `SELECT ` + recordColumns + ` FROM lead_records WHERE id = $1`
	rec, err := scanRecord(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("leads: select failed: %w", err)
	}
	return rec, nil
}

// FindLatestByContact returns the newest record for contact; seq breaks ties.
func (r *PostgresRepository) FindLatestByContact(ctx context.Context, contact string) (*Record, error) {
	query := `SELECT ` + recordColumns + `
		FROM lead_records
		WHERE contact = $1
		ORDER BY created_at DESC, seq DESC
		LIMIT 1
	`
	rec, err := scanRecord(r.pool.QueryRow(ctx, query, contact))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("leads: select latest failed: %w", err)
	}
	return rec, nil
}

// ListAll returns every record, newest first.
func (r *PostgresRepository) ListAll(ctx context.Context) ([]*Record, error) {
	query := `SELECT ` + recordColumns + `
		FROM lead_records
		ORDER BY created_at DESC, seq DESC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("leads: list failed: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("leads: scan failed: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// MaxNameSuffix returns the largest customer-name suffix used for source.
func (r *PostgresRepository) MaxNameSuffix(ctx context.Context, source string) (int, error) {
	query := `SELECT COALESCE(MAX(name_suffix), 0) FROM lead_records WHERE acquisition_source = $1`
	var highest int
	if err := r.pool.QueryRow(ctx, query, source).Scan(&highest); err != nil {
		return 0, fmt.Errorf("leads: max suffix failed: %w", err)
	}
	return highest, nil
}

func scanRecord(row pgx.Row) (*Record, error) {
	var (
		rec              Record
		id               string
		consultationType string
		status           string
		testAnswers      []byte
		debtInfo         []byte
		createdAt        time.Time
		updatedAt        time.Time
	)
	if err := row.Scan(
		&id,
		&rec.Seq,
		&rec.Contact,
		&consultationType,
		&rec.Residence,
		&rec.AcquisitionSource,
		&rec.CustomerName,
		&rec.NameSuffix,
		&testAnswers,
		&debtInfo,
		&status,
		&rec.RemoteID,
		&rec.IsDuplicate,
		&rec.DuplicateCount,
		&rec.Attempts,
		&rec.ErrorKind,
		&rec.ErrorDetail,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}
	rec.ID = strings.TrimSpace(id)
	rec.ConsultationType = ConsultationType(consultationType)
	rec.Status = Status(status)
	if len(testAnswers) > 0 {
		rec.TestAnswers = testAnswers
	}
	if len(debtInfo) > 0 {
		rec.DebtInfo = debtInfo
	}
	rec.CreatedAt = createdAt.UTC()
	rec.UpdatedAt = updatedAt.UTC()
	return &rec, nil
}

func nullJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
