package attendance

import (
	"context"
	"log"

	"classtrack/internal/apperr"
	"classtrack/internal/bus"
	"classtrack/internal/model"
)

// StudentChecker answers whether a student id exists. The students
// package provides it; the indirection keeps the two domains apart.
type StudentChecker interface {
	Get(ctx context.Context, id int64) (*model.Student, error)
}

// Snapshot is the full attendance state reshaped for dashboards:
// whole-day marks under Daily, per-hour marks under Hourly. A row lands
// in exactly one of the two.
type Snapshot struct {
	Daily  map[string]map[int64]string         `json:"daily"`
	Hourly map[string]map[int64]map[int]string `json:"hourly"`
}

type markPayload struct {
	StudentID int64  `json:"studentId"`
	Date      string `json:"date"`
	Status    string `json:"status"`
	Hour      *int   `json:"hour"`
}

// Recorded is the normalized result of an upsert.
type Recorded struct {
	Success   bool   `json:"success"`
	StudentID int64  `json:"studentId"`
	Date      string `json:"date"`
	Status    string `json:"status"`
	Hour      *int   `json:"hour"`
}

// Service coordinates attendance marks and broadcasts every mutation.
type Service struct {
	repo     *Repository
	students StudentChecker
	bus      bus.Bus
}

// NewService creates a service backed by a repository and an event bus.
func NewService(repo *Repository, students StudentChecker, b bus.Bus) *Service {
	return &Service{repo: repo, students: students, bus: b}
}

// GetAll fetches every mark and reshapes it into the daily and hourly
// mappings. Both maps are present even when empty.
func (s *Service) GetAll(ctx context.Context) (Snapshot, error) {
	snap := Snapshot{
		Daily:  map[string]map[int64]string{},
		Hourly: map[string]map[int64]map[int]string{},
	}
	marks, err := s.repo.ListAll(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	for _, m := range marks {
		if m.Hour == model.HourNone {
			day := snap.Daily[m.Date]
			if day == nil {
				day = map[int64]string{}
				snap.Daily[m.Date] = day
			}
			day[m.StudentID] = m.Status
			continue
		}
		day := snap.Hourly[m.Date]
		if day == nil {
			day = map[int64]map[int]string{}
			snap.Hourly[m.Date] = day
		}
		hours := day[m.StudentID]
		if hours == nil {
			hours = map[int]string{}
			day[m.StudentID] = hours
		}
		hours[m.Hour] = m.Status
	}
	return snap, nil
}

// Record upserts a mark by its natural key (studentID, date, hour). A
// nil hour records a whole-day mark, kept distinct from any hourly mark
// on the same date. Emits attendance_updated on success.
func (s *Service) Record(ctx context.Context, studentID int64, date, status string, hour *int) (Recorded, error) {
	if studentID == 0 {
		return Recorded{}, apperr.Validation("studentId is required")
	}
	if date == "" {
		return Recorded{}, apperr.Validation("date is required")
	}
	if status == "" {
		return Recorded{}, apperr.Validation("status is required")
	}

	st, err := s.students.Get(ctx, studentID)
	if err != nil {
		return Recorded{}, err
	}
	if st == nil {
		return Recorded{}, apperr.NotFound("student", studentID)
	}

	h := model.HourNone
	if hour != nil {
		h = *hour
	}

	existing, err := s.repo.Find(ctx, studentID, date, h)
	if err != nil {
		return Recorded{}, err
	}
	if existing != nil {
		err = s.repo.UpdateStatus(ctx, studentID, date, h, status)
	} else {
		err = s.repo.Insert(ctx, studentID, date, h, status)
	}
	if err != nil {
		return Recorded{}, err
	}

	s.publish(ctx, bus.Event{Name: bus.EventAttendanceUpdated, Payload: markPayload{
		StudentID: studentID, Date: date, Status: status, Hour: hour,
	}})
	return Recorded{Success: true, StudentID: studentID, Date: date, Status: status, Hour: hour}, nil
}

func (s *Service) publish(ctx context.Context, evt bus.Event) {
	if err := s.bus.Publish(ctx, evt); err != nil {
		log.Printf("attendance: publish %s failed: %v", evt.Name, err)
	}
}
