package clinical

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dentalcare/dentalcare/internal/platform/db"
	"github.com/dentalcare/dentalcare/internal/platform/spec"
)

// =========== Treatment Repository ===========

type treatmentRepoPG struct {
	pool *pgxpool.Pool
}

func NewTreatmentRepo(pool *pgxpool.Pool) TreatmentRepository {
	return &treatmentRepoPG{pool: pool}
}

func (r *treatmentRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const treatmentCols = `id, code, name, description, price_amount, price_currency,
	duration_minutes, active, created_at, updated_at`

func scanTreatment(row pgx.Row) (*Treatment, error) {
	var t Treatment
	err := row.Scan(&t.ID, &t.Code, &t.Name, &t.Description, &t.Price.Amount, &t.Price.Currency,
		&t.DurationMinutes, &t.Active, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *treatmentRepoPG) Create(ctx context.Context, t *Treatment) error {
	t.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO treatment (id, code, name, description, price_amount, price_currency,
			duration_minutes, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at, updated_at`,
		t.ID, t.Code, t.Name, t.Description, t.Price.Amount, t.Price.Currency,
		t.DurationMinutes, t.Active,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	return db.TranslateError(err, "treatment", t.ID)
}

func (r *treatmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Treatment, error) {
	t, err := scanTreatment(r.conn(ctx).QueryRow(ctx, `SELECT `+treatmentCols+` FROM treatment WHERE id = $1`, id))
	if err != nil {
		return nil, db.TranslateError(err, "treatment", id)
	}
	return t, nil
}

func (r *treatmentRepoPG) GetByCode(ctx context.Context, code string) (*Treatment, error) {
	t, err := scanTreatment(r.conn(ctx).QueryRow(ctx, `SELECT `+treatmentCols+` FROM treatment WHERE code = $1`, code))
	if err != nil {
		return nil, db.TranslateError(err, "treatment", code)
	}
	return t, nil
}

func (r *treatmentRepoPG) Update(ctx context.Context, t *Treatment) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE treatment SET code=$2, name=$3, description=$4, price_amount=$5, price_currency=$6,
			duration_minutes=$7, active=$8, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		t.ID, t.Code, t.Name, t.Description, t.Price.Amount, t.Price.Currency,
		t.DurationMinutes, t.Active,
	).Scan(&t.UpdatedAt)
	return db.TranslateError(err, "treatment", t.ID)
}

func (r *treatmentRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM treatment WHERE id = $1`, id)
	if err != nil {
		return db.TranslateError(err, "treatment", id)
	}
	if tag.RowsAffected() == 0 {
		return db.TranslateError(pgx.ErrNoRows, "treatment", id)
	}
	return nil
}

func (r *treatmentRepoPG) Find(ctx context.Context, s spec.Spec[*Treatment], limit, offset int) ([]*Treatment, int, error) {
	where, args := spec.Where(s, 1)

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM treatment WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count treatments: %w", err)
	}

	query := `SELECT ` + treatmentCols + ` FROM treatment WHERE ` + where +
		fmt.Sprintf(` ORDER BY code LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("query treatments: %w", err)
	}
	defer rows.Close()

	var items []*Treatment
	for rows.Next() {
		t, err := scanTreatment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan treatment: %w", err)
		}
		items = append(items, t)
	}
	return items, total, rows.Err()
}

// =========== Lesion Repository ===========

type lesionRepoPG struct {
	pool *pgxpool.Pool
}

func NewLesionRepo(pool *pgxpool.Pool) LesionRepository {
	return &lesionRepoPG{pool: pool}
}

func (r *lesionRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const lesionCols = `id, code, name, description, color, created_at, updated_at`

func scanLesion(row pgx.Row) (*Lesion, error) {
	var l Lesion
	if err := row.Scan(&l.ID, &l.Code, &l.Name, &l.Description, &l.Color, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *lesionRepoPG) Create(ctx context.Context, l *Lesion) error {
	l.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO lesion (id, code, name, description, color)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at, updated_at`,
		l.ID, l.Code, l.Name, l.Description, l.Color,
	).Scan(&l.CreatedAt, &l.UpdatedAt)
	return db.TranslateError(err, "lesion", l.ID)
}

func (r *lesionRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Lesion, error) {
	l, err := scanLesion(r.conn(ctx).QueryRow(ctx, `SELECT `+lesionCols+` FROM lesion WHERE id = $1`, id))
	if err != nil {
		return nil, db.TranslateError(err, "lesion", id)
	}
	return l, nil
}

func (r *lesionRepoPG) GetByCode(ctx context.Context, code string) (*Lesion, error) {
	l, err := scanLesion(r.conn(ctx).QueryRow(ctx, `SELECT `+lesionCols+` FROM lesion WHERE code = $1`, code))
	if err != nil {
		return nil, db.TranslateError(err, "lesion", code)
	}
	return l, nil
}

func (r *lesionRepoPG) Update(ctx context.Context, l *Lesion) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE lesion SET code=$2, name=$3, description=$4, color=$5, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		l.ID, l.Code, l.Name, l.Description, l.Color,
	).Scan(&l.UpdatedAt)
	return db.TranslateError(err, "lesion", l.ID)
}

func (r *lesionRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM lesion WHERE id = $1`, id)
	if err != nil {
		return db.TranslateError(err, "lesion", id)
	}
	if tag.RowsAffected() == 0 {
		return db.TranslateError(pgx.ErrNoRows, "lesion", id)
	}
	return nil
}

func (r *lesionRepoPG) Find(ctx context.Context, s spec.Spec[*Lesion], limit, offset int) ([]*Lesion, int, error) {
	where, args := spec.Where(s, 1)

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM lesion WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count lesions: %w", err)
	}

	query := `SELECT ` + lesionCols + ` FROM lesion WHERE ` + where +
		fmt.Sprintf(` ORDER BY code LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("query lesions: %w", err)
	}
	defer rows.Close()

	var items []*Lesion
	for rows.Next() {
		l, err := scanLesion(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan lesion: %w", err)
		}
		items = append(items, l)
	}
	return items, total, rows.Err()
}
