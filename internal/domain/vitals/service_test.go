package vitals

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hms/hms/internal/domain/lab"
)

type mockRepo struct {
	sets map[uuid.UUID]*VitalSigns
}

func newMockRepo() *mockRepo {
	return &mockRepo{sets: make(map[uuid.UUID]*VitalSigns)}
}

func (m *mockRepo) Create(_ context.Context, v *VitalSigns) error {
	v.ID = uuid.New()
	m.sets[v.ID] = v
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*VitalSigns, error) {
	v, ok := m.sets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return v, nil
}

func (m *mockRepo) ListByPatient(_ context.Context, patientID uuid.UUID, _, _ int) ([]*VitalSigns, int, error) {
	var out []*VitalSigns
	for _, v := range m.sets {
		if v.PatientID == patientID {
			out = append(out, v)
		}
	}
	return out, len(out), nil
}

func (m *mockRepo) ListByEncounter(_ context.Context, encounterID uuid.UUID) ([]*VitalSigns, error) {
	var out []*VitalSigns
	for _, v := range m.sets {
		if v.EncounterID != nil && *v.EncounterID == encounterID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *mockRepo) Latest(_ context.Context, patientID uuid.UUID) (*VitalSigns, error) {
	var latest *VitalSigns
	for _, v := range m.sets {
		if v.PatientID != patientID {
			continue
		}
		if latest == nil || v.RecordedAt.After(latest.RecordedAt) {
			latest = v
		}
	}
	if latest == nil {
		return nil, pgx.ErrNoRows
	}
	return latest, nil
}

func f(v float64) *float64 { return &v }

func TestRecordNormalSet(t *testing.T) {
	svc := NewService(newMockRepo())
	v := &VitalSigns{
		PatientID:   uuid.New(),
		Temperature: f(36.8),
		Pulse:       f(72),
		RespRate:    f(16),
		Systolic:    f(118),
		Diastolic:   f(76),
		SpO2:        f(98),
	}
	if err := svc.Record(context.Background(), v, "Nurse Joy"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if v.IsAbnormal {
		t.Errorf("normal set flagged abnormal: %v", v.Flags)
	}
	for name, flag := range v.Flags {
		if flag != lab.FlagNormal {
			t.Errorf("%s = %s, want %s", name, flag, lab.FlagNormal)
		}
	}
	if v.RecordedBy != "Nurse Joy" {
		t.Errorf("recordedBy = %s", v.RecordedBy)
	}
	if v.RecordedAt.IsZero() {
		t.Error("recordedAt not stamped")
	}
}

func TestRecordFlagsOutOfRange(t *testing.T) {
	svc := NewService(newMockRepo())
	v := &VitalSigns{
		PatientID:   uuid.New(),
		Temperature: f(38.4), // febrile
		Pulse:       f(48),   // bradycardia
		SpO2:        f(88),   // hypoxic
	}
	if err := svc.Record(context.Background(), v, "Nurse Joy"); err != nil {
		t.Fatal(err)
	}
	if !v.IsAbnormal {
		t.Error("abnormal set not rolled up")
	}
	if v.Flags["temperature"] != lab.FlagHigh {
		t.Errorf("temperature = %s, want %s", v.Flags["temperature"], lab.FlagHigh)
	}
	if v.Flags["pulse"] != lab.FlagLow {
		t.Errorf("pulse = %s, want %s", v.Flags["pulse"], lab.FlagLow)
	}
	if v.Flags["spo2"] != lab.FlagCritical {
		t.Errorf("spo2 = %s, want %s", v.Flags["spo2"], lab.FlagCritical)
	}
}

func TestRecordCriticalThresholds(t *testing.T) {
	svc := NewService(newMockRepo())
	v := &VitalSigns{
		PatientID:   uuid.New(),
		Temperature: f(40.1),
		Systolic:    f(190),
		Pulse:       f(135),
	}
	if err := svc.Record(context.Background(), v, ""); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"temperature", "systolic", "pulse"} {
		if v.Flags[name] != lab.FlagCritical {
			t.Errorf("%s = %s, want %s", name, v.Flags[name], lab.FlagCritical)
		}
	}
}

func TestBMIComputed(t *testing.T) {
	svc := NewService(newMockRepo())
	v := &VitalSigns{
		PatientID: uuid.New(),
		WeightKg:  f(70),
		HeightCm:  f(175),
	}
	if err := svc.Record(context.Background(), v, ""); err != nil {
		t.Fatal(err)
	}
	if v.BMI == nil || *v.BMI != 22.9 {
		t.Fatalf("bmi = %v, want 22.9", v.BMI)
	}
	if v.Flags["bmi"] != lab.FlagNormal {
		t.Errorf("bmi flag = %s", v.Flags["bmi"])
	}
	if v.IsAbnormal {
		t.Error("normal bmi flagged abnormal")
	}
}

func TestBMIFlaggedWhenHigh(t *testing.T) {
	svc := NewService(newMockRepo())
	v := &VitalSigns{
		PatientID: uuid.New(),
		WeightKg:  f(95),
		HeightCm:  f(170),
	}
	if err := svc.Record(context.Background(), v, ""); err != nil {
		t.Fatal(err)
	}
	if v.BMI == nil || *v.BMI != 32.9 {
		t.Fatalf("bmi = %v, want 32.9", v.BMI)
	}
	if v.Flags["bmi"] != lab.FlagHigh {
		t.Errorf("bmi flag = %s, want %s", v.Flags["bmi"], lab.FlagHigh)
	}
	if !v.IsAbnormal {
		t.Error("high bmi not rolled up")
	}
}

func TestRecordRequiresAMeasurement(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	err := svc.Record(context.Background(), &VitalSigns{PatientID: uuid.New()}, "")
	if err == nil {
		t.Fatal("expected error for empty set")
	}
	if len(repo.sets) != 0 {
		t.Error("empty set was written")
	}
}

func TestWeightAloneHasNoBMI(t *testing.T) {
	svc := NewService(newMockRepo())
	v := &VitalSigns{PatientID: uuid.New(), WeightKg: f(70)}
	if err := svc.Record(context.Background(), v, ""); err != nil {
		t.Fatal(err)
	}
	if v.BMI != nil {
		t.Errorf("bmi = %v, want nil without height", *v.BMI)
	}
	if v.IsAbnormal {
		t.Error("weight alone flagged abnormal")
	}
}
