package odontogram

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dentalcare/dentalcare/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const odontogramCols = `id, patient_id, teeth, notes, created_at, updated_at`

func scanOdontogram(row pgx.Row) (*Odontogram, error) {
	var o Odontogram
	var teeth []byte
	if err := row.Scan(&o.ID, &o.PatientID, &teeth, &o.Notes, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(teeth, &o.Teeth); err != nil {
		return nil, fmt.Errorf("decode teeth of odontogram %s: %w", o.ID, err)
	}
	if o.Teeth == nil {
		o.Teeth = []ToothRecord{}
	}
	return &o, nil
}

func encodeTeeth(teeth []ToothRecord) ([]byte, error) {
	if teeth == nil {
		teeth = []ToothRecord{}
	}
	b, err := json.Marshal(teeth)
	if err != nil {
		return nil, fmt.Errorf("encode teeth: %w", err)
	}
	return b, nil
}

func (r *repoPG) Create(ctx context.Context, o *Odontogram) error {
	teeth, err := encodeTeeth(o.Teeth)
	if err != nil {
		return err
	}
	o.ID = uuid.New()
	err = r.conn(ctx).QueryRow(ctx, `
		INSERT INTO odontogram (id, patient_id, teeth, notes)
		VALUES ($1,$2,$3,$4)
		RETURNING created_at, updated_at`,
		o.ID, o.PatientID, teeth, o.Notes,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	return db.TranslateError(err, "odontogram", o.ID)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Odontogram, error) {
	o, err := scanOdontogram(r.conn(ctx).QueryRow(ctx, `SELECT `+odontogramCols+` FROM odontogram WHERE id = $1`, id))
	if err != nil {
		return nil, db.TranslateError(err, "odontogram", id)
	}
	return o, nil
}

func (r *repoPG) GetByPatient(ctx context.Context, patientID uuid.UUID) (*Odontogram, error) {
	o, err := scanOdontogram(r.conn(ctx).QueryRow(ctx,
		`SELECT `+odontogramCols+` FROM odontogram WHERE patient_id = $1`, patientID))
	if err != nil {
		return nil, db.TranslateError(err, "odontogram for patient", patientID)
	}
	return o, nil
}

func (r *repoPG) Update(ctx context.Context, o *Odontogram) error {
	teeth, err := encodeTeeth(o.Teeth)
	if err != nil {
		return err
	}
	err = r.conn(ctx).QueryRow(ctx, `
		UPDATE odontogram SET teeth=$2, notes=$3, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		o.ID, teeth, o.Notes,
	).Scan(&o.UpdatedAt)
	return db.TranslateError(err, "odontogram", o.ID)
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM odontogram WHERE id = $1`, id)
	if err != nil {
		return db.TranslateError(err, "odontogram", id)
	}
	if tag.RowsAffected() == 0 {
		return db.TranslateError(pgx.ErrNoRows, "odontogram", id)
	}
	return nil
}

func (r *repoPG) CountTreatmentReferences(ctx context.Context, treatmentID uuid.UUID) (int, error) {
	return r.countReferences(ctx, "treatment_id", treatmentID)
}

func (r *repoPG) CountLesionReferences(ctx context.Context, lesionID uuid.UUID) (int, error) {
	return r.countReferences(ctx, "lesion_id", lesionID)
}

func (r *repoPG) countReferences(ctx context.Context, field string, id uuid.UUID) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM odontogram
		WHERE teeth @> jsonb_build_array(jsonb_build_object($1::text, $2::text))`,
		field, id.String(),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count odontogram %s references: %w", field, err)
	}
	return n, nil
}
