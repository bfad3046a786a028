package leads

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// pgxDB is the subset of pgxpool.Pool used here; pgxmock satisfies it in tests.
type pgxDB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
}

// PostgresRepository stores leads in the relational database.
type PostgresRepository struct {
	db pgxDB
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("leads: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting a mock database for testing.
func NewPostgresRepositoryWithDB(db pgxDB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const leadColumns = `id, name, email, status, created_at, updated_at`

// Insert inserts a new row.
func (r *PostgresRepository) Insert(ctx context.Context, lead *Lead) error {
	id := uuid.New()
	query := `
		INSERT INTO leads (id, name, email, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := r.db.Exec(ctx, query,
		id,
		lead.Name,
		lead.Email,
		string(lead.Status),
		lead.CreatedAt,
		lead.UpdatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("leads: insert failed: %w", err)
	}
	lead.ID = id.String()
	return nil
}

// FindByID fetches a lead; ids that are not UUIDs are simply not found.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*Lead, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrLeadNotFound
	}
	return r.scanOne(r.db.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, parsed))
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*Lead, error) {
	return r.scanOne(r.db.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE email = $1`, email))
}

func (r *PostgresRepository) Update(ctx context.Context, id string, changes Changes) (*Lead, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrLeadNotFound
	}

	args := []any{parsed}
	var sets []string
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if changes.Name != nil {
		add("name", *changes.Name)
	}
	if changes.Email != nil {
		add("email", *changes.Email)
	}
	if changes.Status != nil {
		add("status", string(*changes.Status))
	}
	add("updated_at", changes.UpdatedAt)

	query := `UPDATE leads SET ` + strings.Join(sets, ", ") + ` WHERE id = $1 RETURNING ` + leadColumns
	lead, err := r.scanOne(r.db.QueryRow(ctx, query, args...))
	if err != nil && isUniqueViolation(err) {
		return nil, ErrDuplicateEmail
	}
	return lead, err
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return ErrLeadNotFound
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM leads WHERE id = $1`, parsed)
	if err != nil {
		return fmt.Errorf("leads: delete failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLeadNotFound
	}
	return nil
}

func (r *PostgresRepository) Find(ctx context.Context, q Query) ([]*Lead, error) {
	where, args := postgresWhere(q)
	dir := "DESC"
	if q.Ascending() {
		dir = "ASC"
	}
	args = append(args, q.Limit, q.Skip())
	query := fmt.Sprintf(`SELECT %s FROM leads%s ORDER BY %s %s, id %s LIMIT $%d OFFSET $%d`,
		leadColumns, where, postgresSortColumn(q.SortBy), dir, dir, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("leads: select failed: %w", err)
	}
	defer rows.Close()

	out := []*Lead{}
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("leads: scan failed: %w", err)
		}
		out = append(out, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("leads: rows failed: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Count(ctx context.Context, q Query) (int64, error) {
	where, args := postgresWhere(q)
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM leads`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("leads: count failed: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) CountByStatus(ctx context.Context) (map[Status]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM leads GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("leads: count by status failed: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("leads: scan failed: %w", err)
		}
		counts[Status(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("leads: rows failed: %w", err)
	}
	return counts, nil
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func (r *PostgresRepository) scanOne(row pgx.Row) (*Lead, error) {
	lead, err := scanLead(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLeadNotFound
		}
		if isUniqueViolation(err) {
			return nil, err
		}
		return nil, fmt.Errorf("leads: select failed: %w", err)
	}
	return lead, nil
}

func scanLead(row pgx.Row) (*Lead, error) {
	var (
		lead   Lead
		id     uuid.UUID
		status string
	)
	if err := row.Scan(&id, &lead.Name, &lead.Email, &status, &lead.CreatedAt, &lead.UpdatedAt); err != nil {
		return nil, err
	}
	lead.ID = id.String()
	lead.Status = Status(status)
	lead.CreatedAt = lead.CreatedAt.UTC()
	lead.UpdatedAt = lead.UpdatedAt.UTC()
	return &lead, nil
}

// postgresWhere renders q's criteria as a WHERE clause with positional args.
func postgresWhere(q Query) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if q.Search != "" {
		args = append(args, "%"+escapeLike(q.Search)+"%")
		n := len(args)
		clauses = append(clauses, fmt.Sprintf(`(name ILIKE $%d ESCAPE '\' OR email ILIKE $%d ESCAPE '\')`, n, n))
	}
	if q.Status != nil {
		args = append(args, string(*q.Status))
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(term string) string {
	return likeEscaper.Replace(term)
}

func postgresSortColumn(f SortField) string {
	switch f {
	case SortByName:
		return "name"
	case SortByEmail:
		return "email"
	default:
		return "created_at"
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
