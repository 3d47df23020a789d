package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func passTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type mockRepo struct {
	appointments map[uuid.UUID]*Appointment
}

func newMockRepo() *mockRepo {
	return &mockRepo{appointments: make(map[uuid.UUID]*Appointment)}
}

func (m *mockRepo) Create(_ context.Context, a *Appointment) error {
	a.ID = uuid.New()
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	m.appointments[a.ID] = a
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := m.appointments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (m *mockRepo) Update(_ context.Context, a *Appointment) error {
	if _, ok := m.appointments[a.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *a
	m.appointments[a.ID] = &cp
	return nil
}

func (m *mockRepo) CountOverlapping(_ context.Context, doctorID uuid.UUID, start, end time.Time, exclude uuid.UUID) (int, error) {
	count := 0
	for _, a := range m.appointments {
		if a.ID == exclude || a.DoctorID != doctorID {
			continue
		}
		if a.Status == StatusCancelled || a.Status == StatusNoShow {
			continue
		}
		if a.StartsAt.Before(end) && a.EndsAt.After(start) {
			count++
		}
	}
	return count, nil
}

func (m *mockRepo) ListByDoctorDay(_ context.Context, doctorID uuid.UUID, day time.Time) ([]*Appointment, error) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)
	var out []*Appointment
	for _, a := range m.appointments {
		if a.DoctorID == doctorID && !a.StartsAt.Before(from) && a.StartsAt.Before(to) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockRepo) Search(_ context.Context, _ SearchParams, _, _ int) ([]*Appointment, int, error) {
	var out []*Appointment
	for _, a := range m.appointments {
		out = append(out, a)
	}
	return out, len(out), nil
}

func at(hour, min int) time.Time {
	return time.Date(2026, 9, 1, hour, min, 0, 0, time.UTC)
}

func booking(doctorID uuid.UUID, start, end time.Time) *Appointment {
	return &Appointment{
		PatientID: uuid.New(),
		DoctorID:  doctorID,
		StartsAt:  start,
		EndsAt:    end,
	}
}

func TestBookRejectsOverlap(t *testing.T) {
	svc := NewService(newMockRepo(), passTx)
	doctor := uuid.New()

	if err := svc.Book(context.Background(), booking(doctor, at(9, 0), at(9, 30))); err != nil {
		t.Fatalf("first booking: %v", err)
	}

	// Partial overlap with the existing slot.
	err := svc.Book(context.Background(), booking(doctor, at(9, 15), at(9, 45)))
	if err != ErrSlotTaken {
		t.Errorf("err = %v, want ErrSlotTaken", err)
	}

	// Back-to-back is fine.
	if err := svc.Book(context.Background(), booking(doctor, at(9, 30), at(10, 0))); err != nil {
		t.Errorf("adjacent booking rejected: %v", err)
	}

	// Another doctor is unaffected.
	if err := svc.Book(context.Background(), booking(uuid.New(), at(9, 0), at(9, 30))); err != nil {
		t.Errorf("other doctor rejected: %v", err)
	}
}

func TestBookRejectsInvertedWindow(t *testing.T) {
	svc := NewService(newMockRepo(), passTx)
	err := svc.Book(context.Background(), booking(uuid.New(), at(10, 0), at(9, 0)))
	if err == nil {
		t.Error("expected error for end before start")
	}
}

func TestCancelledSlotCanBeRebooked(t *testing.T) {
	svc := NewService(newMockRepo(), passTx)
	doctor := uuid.New()

	first := booking(doctor, at(9, 0), at(9, 30))
	if err := svc.Book(context.Background(), first); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.UpdateStatus(context.Background(), first.ID, StatusCancelled); err != nil {
		t.Fatal(err)
	}

	if err := svc.Book(context.Background(), booking(doctor, at(9, 0), at(9, 30))); err != nil {
		t.Errorf("rebooking cancelled slot: %v", err)
	}
}

func TestReschedule(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, passTx)
	doctor := uuid.New()

	a := booking(doctor, at(9, 0), at(9, 30))
	if err := svc.Book(context.Background(), a); err != nil {
		t.Fatal(err)
	}
	blocker := booking(doctor, at(11, 0), at(11, 30))
	if err := svc.Book(context.Background(), blocker); err != nil {
		t.Fatal(err)
	}

	// Into the blocker's slot fails.
	_, err := svc.Reschedule(context.Background(), a.ID, &RescheduleInput{StartsAt: at(11, 0), EndsAt: at(11, 30)})
	if err != ErrSlotTaken {
		t.Errorf("err = %v, want ErrSlotTaken", err)
	}

	// Shifting within its own old window succeeds: the appointment does
	// not conflict with itself.
	moved, err := svc.Reschedule(context.Background(), a.ID, &RescheduleInput{StartsAt: at(9, 15), EndsAt: at(9, 45)})
	if err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	if !moved.StartsAt.Equal(at(9, 15)) {
		t.Errorf("startsAt = %v", moved.StartsAt)
	}
}

func TestRescheduleRequiresBooked(t *testing.T) {
	svc := NewService(newMockRepo(), passTx)
	a := booking(uuid.New(), at(9, 0), at(9, 30))
	if err := svc.Book(context.Background(), a); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.UpdateStatus(context.Background(), a.ID, StatusCheckedIn); err != nil {
		t.Fatal(err)
	}
	_, err := svc.Reschedule(context.Background(), a.ID, &RescheduleInput{StartsAt: at(10, 0), EndsAt: at(10, 30)})
	if err == nil {
		t.Error("expected error rescheduling a checked-in appointment")
	}
}

func TestStatusLifecycle(t *testing.T) {
	svc := NewService(newMockRepo(), passTx)
	a := booking(uuid.New(), at(9, 0), at(9, 30))
	if err := svc.Book(context.Background(), a); err != nil {
		t.Fatal(err)
	}
	if a.Status != StatusBooked {
		t.Fatalf("status = %s", a.Status)
	}

	if _, err := svc.UpdateStatus(context.Background(), a.ID, StatusCompleted); err == nil {
		t.Error("Booked -> Completed should be rejected")
	}
	if _, err := svc.UpdateStatus(context.Background(), a.ID, StatusCheckedIn); err != nil {
		t.Fatal(err)
	}
	done, err := svc.UpdateStatus(context.Background(), a.ID, StatusCompleted)
	if err != nil {
		t.Fatal(err)
	}
	if done.Status != StatusCompleted {
		t.Errorf("status = %s", done.Status)
	}
	if _, err := svc.UpdateStatus(context.Background(), a.ID, StatusCancelled); err == nil {
		t.Error("completed appointment should be terminal")
	}
}

func TestValidateTransitionTable(t *testing.T) {
	cases := []struct {
		from, to string
		ok       bool
	}{
		{StatusBooked, StatusCheckedIn, true},
		{StatusBooked, StatusNoShow, true},
		{StatusBooked, StatusCompleted, false},
		{StatusCheckedIn, StatusCompleted, true},
		{StatusCheckedIn, StatusNoShow, false},
		{StatusCancelled, StatusBooked, false},
		{StatusNoShow, StatusCheckedIn, false},
	}
	for _, tc := range cases {
		err := ValidateTransition(tc.from, tc.to)
		if tc.ok && err != nil {
			t.Errorf("%s -> %s: unexpected error %v", tc.from, tc.to, err)
		}
		if !tc.ok && err == nil {
			t.Errorf("%s -> %s: expected error", tc.from, tc.to)
		}
	}
}

func TestDoctorDay(t *testing.T) {
	svc := NewService(newMockRepo(), passTx)
	doctor := uuid.New()

	if err := svc.Book(context.Background(), booking(doctor, at(9, 0), at(9, 30))); err != nil {
		t.Fatal(err)
	}
	if err := svc.Book(context.Background(), booking(doctor, at(14, 0), at(14, 30))); err != nil {
		t.Fatal(err)
	}
	nextDay := time.Date(2026, 9, 2, 10, 0, 0, 0, time.UTC)
	if err := svc.Book(context.Background(), booking(doctor, nextDay, nextDay.Add(30*time.Minute))); err != nil {
		t.Fatal(err)
	}

	day, err := svc.DoctorDay(context.Background(), doctor, at(0, 0))
	if err != nil {
		t.Fatal(err)
	}
	if len(day) != 2 {
		t.Errorf("appointments = %d, want 2", len(day))
	}
}
