package model

import "time"

// HourNone marks a whole-day attendance record. It is stored as a real
// column value so the (student_id, date, hour) unique index treats
// "no hour" as an ordinary key component instead of SQL NULL.
const HourNone = -1

// Student is a tracked class member.
type Student struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Group     string    `json:"group"`
	Course    int       `json:"course"`
	CreatedAt time.Time `json:"created_at"`
}

// Mark is one attendance record for a student on a date, optionally
// scoped to a lesson hour.
type Mark struct {
	StudentID int64     `json:"studentId"`
	Date      string    `json:"date"`
	Hour      int       `json:"hour"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// Entry is a legacy freeform record kept for backward compatibility.
// It has no relational ties to students or marks.
type Entry struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Date      string    `json:"date"`
	Note      string    `json:"note"`
	UpdatedAt time.Time `json:"updated_at"`
}
