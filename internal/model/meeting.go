package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type MeetingStatus string

const (
	MeetingScheduled MeetingStatus = "scheduled"
	MeetingCanceled  MeetingStatus = "canceled"
)

// Meeting keeps the calendar fields the way the clients send them: a
// YYYY-MM-DD date plus HH:MM wall-clock times, no timezone attached.
type Meeting struct {
	ID              uuid.UUID     `db:"id" json:"id"`
	Title           string        `db:"title" json:"title"`
	Description     string        `db:"description" json:"description"`
	Date            string        `db:"date" json:"date"`
	StartTime       string        `db:"start_time" json:"startTime"`
	EndTime         string        `db:"end_time" json:"endTime"`
	Participants    []string      `db:"-" json:"participants"`
	CreatedBy       uuid.UUID     `db:"created_by" json:"createdBy"`
	CreatorUsername *string       `db:"-" json:"creatorUsername"`
	Status          MeetingStatus `db:"status" json:"status"`
	CreatedAt       time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updatedAt"`
}

// StartsAt combines date and start time into a local instant, used for
// chronological ordering.
func (m *Meeting) StartsAt() time.Time {
	t, err := time.ParseInLocation("2006-01-02T15:04", m.Date+"T"+m.StartTime, time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}

// HasParticipant reports whether email is on the participant list.
// Participant emails are the visibility key, so the match is exact but
// case-insensitive like email addresses themselves.
func (m *Meeting) HasParticipant(email string) bool {
	for _, p := range m.Participants {
		if strings.EqualFold(p, email) {
			return true
		}
	}
	return false
}
