package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hms/hms/internal/platform/db"
	"github.com/hms/hms/internal/platform/ws"
)

var (
	// ErrSlotTaken reports that the doctor already has an appointment
	// overlapping the requested window.
	ErrSlotTaken = errors.New("doctor already has an appointment in this slot")
)

var statusTransitions = map[string][]string{
	StatusBooked:    {StatusCheckedIn, StatusCancelled, StatusNoShow},
	StatusCheckedIn: {StatusCompleted, StatusCancelled},
	StatusCompleted: {},
	StatusCancelled: {},
	StatusNoShow:    {},
}

// ValidateTransition checks an appointment status change against the
// allowed lifecycle.
func ValidateTransition(from, to string) error {
	for _, allowed := range statusTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return fmt.Errorf("cannot move appointment from %s to %s", from, to)
}

type Service struct {
	repo   Repository
	tx     db.TxRunner
	events ws.EventPublisher
}

func NewService(repo Repository, tx db.TxRunner) *Service {
	return &Service{repo: repo, tx: tx}
}

func (s *Service) SetEventPublisher(p ws.EventPublisher) {
	s.events = p
}

// Book creates an appointment after checking the doctor's calendar for
// conflicts. The overlap check and insert run in one transaction.
func (s *Service) Book(ctx context.Context, a *Appointment) error {
	if !a.EndsAt.After(a.StartsAt) {
		return fmt.Errorf("appointment must end after it starts")
	}
	a.Status = StatusBooked

	err := s.tx(ctx, func(ctx context.Context) error {
		overlapping, err := s.repo.CountOverlapping(ctx, a.DoctorID, a.StartsAt, a.EndsAt, uuid.Nil)
		if err != nil {
			return err
		}
		if overlapping > 0 {
			return ErrSlotTaken
		}
		return s.repo.Create(ctx, a)
	})
	if err != nil {
		return err
	}
	s.publish(ctx, "appointment.booked", a)
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

// Reschedule moves a booked appointment to a new slot, rechecking the
// doctor's calendar with the appointment itself excluded.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, in *RescheduleInput) (*Appointment, error) {
	if !in.EndsAt.After(in.StartsAt) {
		return nil, fmt.Errorf("appointment must end after it starts")
	}

	var a *Appointment
	err := s.tx(ctx, func(ctx context.Context) error {
		var err error
		a, err = s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if a.Status != StatusBooked {
			return fmt.Errorf("only booked appointments can be rescheduled")
		}
		overlapping, err := s.repo.CountOverlapping(ctx, a.DoctorID, in.StartsAt, in.EndsAt, a.ID)
		if err != nil {
			return err
		}
		if overlapping > 0 {
			return ErrSlotTaken
		}
		a.StartsAt = in.StartsAt
		a.EndsAt = in.EndsAt
		return s.repo.Update(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, "appointment.rescheduled", a)
	return a, nil
}

// UpdateStatus advances the appointment lifecycle.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ValidateTransition(a.Status, status); err != nil {
		return nil, err
	}
	a.Status = status
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}
	s.publish(ctx, "appointment."+statusEvent(status), a)
	return a, nil
}

func statusEvent(status string) string {
	switch status {
	case StatusCheckedIn:
		return "checked_in"
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	case StatusNoShow:
		return "no_show"
	}
	return "updated"
}

// DoctorDay lists a doctor's appointments for one calendar day.
func (s *Service) DoctorDay(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]*Appointment, error) {
	return s.repo.ListByDoctorDay(ctx, doctorID, day)
}

func (s *Service) Search(ctx context.Context, params SearchParams, limit, offset int) ([]*Appointment, int, error) {
	return s.repo.Search(ctx, params, limit, offset)
}

func (s *Service) publish(ctx context.Context, event string, a *Appointment) {
	if s.events == nil {
		return
	}
	data, err := json.Marshal(a)
	if err != nil {
		return
	}
	s.events.Publish(ctx, ws.Event{
		Type:       event,
		Topic:      ws.TopicAppointments,
		Resource:   "appointment",
		ResourceID: a.ID.String(),
		Timestamp:  time.Now().UTC(),
		Data:       data,
	})
}
