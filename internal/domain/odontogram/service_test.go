package odontogram

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dentalcare/dentalcare/internal/domain/clinical"
	"github.com/dentalcare/dentalcare/internal/domain/identity"
	"github.com/dentalcare/dentalcare/internal/domain/values"
	"github.com/dentalcare/dentalcare/internal/platform/apperr"
)

// -- Mock Repositories --

type mockRepo struct {
	store map[uuid.UUID]*Odontogram
}

func newMockRepo() *mockRepo {
	return &mockRepo{store: make(map[uuid.UUID]*Odontogram)}
}

func clone(o *Odontogram) *Odontogram {
	cp := *o
	cp.Teeth = append([]ToothRecord{}, o.Teeth...)
	return &cp
}

func (m *mockRepo) Create(_ context.Context, o *Odontogram) error {
	for _, existing := range m.store {
		if existing.PatientID == o.PatientID {
			return apperr.Conflict("odontogram already exists")
		}
	}
	o.ID = uuid.New()
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	m.store[o.ID] = clone(o)
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Odontogram, error) {
	o, ok := m.store[id]
	if !ok {
		return nil, apperr.NotFound("odontogram", id)
	}
	return clone(o), nil
}

func (m *mockRepo) GetByPatient(_ context.Context, patientID uuid.UUID) (*Odontogram, error) {
	for _, o := range m.store {
		if o.PatientID == patientID {
			return clone(o), nil
		}
	}
	return nil, apperr.NotFound("odontogram for patient", patientID)
}

func (m *mockRepo) Update(_ context.Context, o *Odontogram) error {
	if _, ok := m.store[o.ID]; !ok {
		return apperr.NotFound("odontogram", o.ID)
	}
	o.UpdatedAt = time.Now()
	m.store[o.ID] = clone(o)
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.store[id]; !ok {
		return apperr.NotFound("odontogram", id)
	}
	delete(m.store, id)
	return nil
}

func (m *mockRepo) CountTreatmentReferences(_ context.Context, id uuid.UUID) (int, error) {
	return m.count(func(r ToothRecord) bool { return r.TreatmentID != nil && *r.TreatmentID == id }), nil
}

func (m *mockRepo) CountLesionReferences(_ context.Context, id uuid.UUID) (int, error) {
	return m.count(func(r ToothRecord) bool { return r.LesionID != nil && *r.LesionID == id }), nil
}

func (m *mockRepo) count(match func(ToothRecord) bool) int {
	n := 0
	for _, o := range m.store {
		for _, rec := range o.Teeth {
			if match(rec) {
				n++
				break
			}
		}
	}
	return n
}

type finder[T any] map[uuid.UUID]*T

func (f finder[T]) GetByID(_ context.Context, id uuid.UUID) (*T, error) {
	v, ok := f[id]
	if !ok {
		return nil, apperr.NotFound("record", id)
	}
	return v, nil
}

type inlineTx struct{}

func (inlineTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

var testNow = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

type fixture struct {
	svc        *Service
	repo       *mockRepo
	patientID  uuid.UUID
	doctorID   uuid.UUID
	lesionID   uuid.UUID
	treatments finder[clinical.Treatment]
	locks      []string
}

func newFixture() *fixture {
	f := &fixture{
		repo:       newMockRepo(),
		patientID:  uuid.New(),
		doctorID:   uuid.New(),
		lesionID:   uuid.New(),
		treatments: finder[clinical.Treatment]{},
	}
	patients := finder[identity.Patient]{f.patientID: {ID: f.patientID, Active: true}}
	doctors := finder[identity.Doctor]{f.doctorID: {ID: f.doctorID, Active: true}}
	lesions := finder[clinical.Lesion]{f.lesionID: {ID: f.lesionID, Code: "CARIES"}}

	f.svc = NewService(f.repo, patients, doctors, lesions, f.treatments, inlineTx{}, "USD")
	f.svc.now = func() time.Time { return testNow }
	f.svc.lock = func(_ context.Context, key string) error {
		f.locks = append(f.locks, key)
		return nil
	}
	return f
}

func (f *fixture) addTreatment(amount int64, currency string) uuid.UUID {
	t := &clinical.Treatment{ID: uuid.New(), Code: "T" + currency, Price: values.Money{Amount: amount, Currency: currency}, Active: true}
	f.treatments[t.ID] = t
	return t.ID
}

func (f *fixture) create(t *testing.T) *Odontogram {
	t.Helper()
	o, err := f.svc.Create(context.Background(), CreateInput{PatientID: f.patientID})
	require.NoError(t, err)
	return o
}

// -- Tests --

func TestService_Create(t *testing.T) {
	f := newFixture()
	o := f.create(t)
	assert.NotEqual(t, uuid.Nil, o.ID)
	assert.Empty(t, o.Teeth)
	assert.Equal(t, []string{patientLock(f.patientID)}, f.locks)

	_, err := f.svc.Create(context.Background(), CreateInput{PatientID: f.patientID})
	assert.Equal(t, apperr.CodeConflict, apperr.CodeOf(err), "one odontogram per patient")

	_, err = f.svc.Create(context.Background(), CreateInput{PatientID: uuid.New()})
	assert.True(t, apperr.IsNotFound(err), "patient must exist")

	_, err = f.svc.Create(context.Background(), CreateInput{})
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
}

func TestService_GetByPatient(t *testing.T) {
	f := newFixture()
	_, err := f.svc.GetByPatient(context.Background(), f.patientID)
	assert.True(t, apperr.IsNotFound(err), "no odontogram yet")

	o := f.create(t)
	got, err := f.svc.GetByPatient(context.Background(), f.patientID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)

	got, err = f.svc.GetByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, f.patientID, got.PatientID)
}

func TestService_UpsertTooth(t *testing.T) {
	f := newFixture()
	f.create(t)

	o, err := f.svc.UpsertTooth(context.Background(), f.patientID, 36, ToothInput{
		Status:     StatusDiagnosed,
		LesionID:   &f.lesionID,
		Surfaces:   []Surface{"occlusal", "mesial"},
		RecordedBy: &f.doctorID,
	})
	require.NoError(t, err)
	rec, ok := o.Tooth(36)
	require.True(t, ok)
	assert.Equal(t, testNow, rec.RecordedAt)
	assert.Equal(t, []Surface{SurfaceMesial, SurfaceOcclusal}, rec.Surfaces)

	stored, _ := f.svc.GetByPatient(context.Background(), f.patientID)
	require.Len(t, stored.Teeth, 1, "upsert is persisted")

	tid := f.addTreatment(5000, "USD")
	o, err = f.svc.UpsertTooth(context.Background(), f.patientID, 36, ToothInput{Status: StatusPlanned, TreatmentID: &tid})
	require.NoError(t, err)
	require.Len(t, o.Teeth, 1)
	assert.Equal(t, StatusPlanned, o.Teeth[0].Status)
}

func TestService_UpsertTooth_References(t *testing.T) {
	f := newFixture()
	f.create(t)
	missing := uuid.New()

	tests := []struct {
		name string
		in   ToothInput
		want apperr.Code
	}{
		{"unknown lesion", ToothInput{Status: StatusDiagnosed, LesionID: &missing}, apperr.CodeNotFound},
		{"unknown treatment", ToothInput{Status: StatusPlanned, TreatmentID: &missing}, apperr.CodeNotFound},
		{"unknown doctor", ToothInput{Status: StatusHealthy, RecordedBy: &missing}, apperr.CodeNotFound},
		{"no lesion or treatment", ToothInput{Status: StatusDiagnosed}, apperr.CodeValidation},
		{"no status", ToothInput{LesionID: &f.lesionID}, apperr.CodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.UpsertTooth(context.Background(), f.patientID, 11, tt.in)
			assert.Equal(t, tt.want, apperr.CodeOf(err))
		})
	}

	_, err := f.svc.UpsertTooth(context.Background(), uuid.New(), 11, ToothInput{Status: StatusHealthy})
	assert.True(t, apperr.IsNotFound(err), "odontogram must exist")
}

func TestService_RemoveToothAndNotes(t *testing.T) {
	f := newFixture()
	f.create(t)
	f.svc.UpsertTooth(context.Background(), f.patientID, 18, ToothInput{Status: StatusMissing})

	o, err := f.svc.RemoveTooth(context.Background(), f.patientID, 18)
	require.NoError(t, err)
	assert.Empty(t, o.Teeth)

	_, err = f.svc.RemoveTooth(context.Background(), f.patientID, 18)
	assert.True(t, apperr.IsNotFound(err))
	_, err = f.svc.RemoveTooth(context.Background(), f.patientID, 19)
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))

	o, err = f.svc.UpdateNotes(context.Background(), f.patientID, "bruxism, night guard advised")
	require.NoError(t, err)
	assert.Equal(t, "bruxism, night guard advised", o.Notes)
}

func TestService_TreatmentPlan(t *testing.T) {
	f := newFixture()
	f.create(t)

	plan, err := f.svc.TreatmentPlan(context.Background(), f.patientID)
	require.NoError(t, err)
	assert.Empty(t, plan.Items)
	assert.Equal(t, values.Money{Currency: "USD"}, plan.Total)

	endo := f.addTreatment(80000, "EUR")
	filling := f.addTreatment(12050, "EUR")
	ctx := context.Background()
	f.svc.UpsertTooth(ctx, f.patientID, 16, ToothInput{Status: StatusPlanned, TreatmentID: &endo})
	f.svc.UpsertTooth(ctx, f.patientID, 26, ToothInput{Status: StatusInProgress, TreatmentID: &filling})
	f.svc.UpsertTooth(ctx, f.patientID, 36, ToothInput{Status: StatusCompleted, TreatmentID: &filling})
	f.svc.UpsertTooth(ctx, f.patientID, 46, ToothInput{Status: StatusPlanned, LesionID: &f.lesionID})

	plan, err = f.svc.TreatmentPlan(ctx, f.patientID)
	require.NoError(t, err)
	require.Len(t, plan.Items, 3)
	assert.Nil(t, plan.Items[2].Treatment, "lesion-only records carry no treatment")
	assert.Equal(t, values.Money{Amount: 92050, Currency: "EUR"}, plan.Total)

	usd := f.addTreatment(100, "USD")
	f.svc.UpsertTooth(ctx, f.patientID, 46, ToothInput{Status: StatusPlanned, TreatmentID: &usd})
	_, err = f.svc.TreatmentPlan(ctx, f.patientID)
	assert.Equal(t, apperr.CodeBusinessRule, apperr.CodeOf(err), "mixed currencies cannot be summed")
}

func TestService_TreatmentPlan_SkipsRemovedTreatment(t *testing.T) {
	f := newFixture()
	f.create(t)
	ctx := context.Background()

	gone := f.addTreatment(30000, "USD")
	kept := f.addTreatment(4500, "USD")
	_, err := f.svc.UpsertTooth(ctx, f.patientID, 16, ToothInput{Status: StatusPlanned, TreatmentID: &gone})
	require.NoError(t, err)
	_, err = f.svc.UpsertTooth(ctx, f.patientID, 21, ToothInput{Status: StatusPlanned, TreatmentID: &kept})
	require.NoError(t, err)
	delete(f.treatments, gone)

	plan, err := f.svc.TreatmentPlan(ctx, f.patientID)
	require.NoError(t, err)
	require.Len(t, plan.Items, 2)
	assert.Nil(t, plan.Items[0].Treatment)
	assert.Equal(t, 16, plan.Items[0].Tooth.ToothNumber)
	assert.Equal(t, values.Money{Amount: 4500, Currency: "USD"}, plan.Total)
}

func TestMockRepo_CountReferences(t *testing.T) {
	f := newFixture()
	f.create(t)
	ctx := context.Background()
	tid := f.addTreatment(1000, "USD")
	_, err := f.svc.UpsertTooth(ctx, f.patientID, 11, ToothInput{Status: StatusPlanned, TreatmentID: &tid, LesionID: &f.lesionID})
	require.NoError(t, err)

	n, err := f.repo.CountTreatmentReferences(ctx, tid)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, _ = f.repo.CountLesionReferences(ctx, f.lesionID)
	assert.Equal(t, 1, n)
	n, _ = f.repo.CountLesionReferences(ctx, uuid.New())
	assert.Zero(t, n)
}

func TestService_Delete(t *testing.T) {
	f := newFixture()
	o := f.create(t)
	require.NoError(t, f.svc.Delete(context.Background(), o.ID))
	assert.True(t, apperr.IsNotFound(f.svc.Delete(context.Background(), o.ID)))
}
