package events

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"meeting-service/internal/model"
)

type EventPublisher interface {
	PublishMeetingCreated(meeting *model.Meeting) error
	PublishMeetingCanceled(meetingID, actorID uuid.UUID) error
	PublishPasswordResetRequested(userID uuid.UUID, email, resetToken string) error
}

type NatsPublisher struct {
	conn *nats.Conn
}

func NewNatsPublisher(natsURL string) (EventPublisher, error) {
	nc, err := nats.Connect(natsURL)

	if err != nil {
		return nil, err
	}

	return &NatsPublisher{conn: nc}, nil
}

type MeetingCreatedEvent struct {
	EventType    string    `json:"event_type"`
	MeetingID    uuid.UUID `json:"meeting_id"`
	CreatedBy    uuid.UUID `json:"created_by"`
	Title        string    `json:"title"`
	Date         string    `json:"date"`
	StartTime    string    `json:"start_time"`
	Participants []string  `json:"participants"`
}

type MeetingCanceledEvent struct {
	EventType  string    `json:"event_type"`
	MeetingID  uuid.UUID `json:"meeting_id"`
	CanceledBy uuid.UUID `json:"canceled_by"`
	CanceledAt time.Time `json:"canceled_at"`
}

// PasswordResetRequestedEvent is consumed by the notification worker,
// which owns mail delivery; the API never sends email itself.
type PasswordResetRequestedEvent struct {
	EventType   string    `json:"event_type"`
	UserID      uuid.UUID `json:"user_id"`
	Email       string    `json:"email"`
	ResetToken  string    `json:"reset_token"`
	RequestedAt time.Time `json:"requested_at"`
}

func (p *NatsPublisher) PublishMeetingCreated(meeting *model.Meeting) error {
	event := MeetingCreatedEvent{
		EventType:    "meeting.created",
		MeetingID:    meeting.ID,
		CreatedBy:    meeting.CreatedBy,
		Title:        meeting.Title,
		Date:         meeting.Date,
		StartTime:    meeting.StartTime,
		Participants: meeting.Participants,
	}

	return p.publish("meeting.created", event)
}

func (p *NatsPublisher) PublishMeetingCanceled(meetingID, actorID uuid.UUID) error {
	event := MeetingCanceledEvent{
		EventType:  "meeting.canceled",
		MeetingID:  meetingID,
		CanceledBy: actorID,
		CanceledAt: time.Now(),
	}

	return p.publish("meeting.canceled", event)
}

func (p *NatsPublisher) PublishPasswordResetRequested(userID uuid.UUID, email, resetToken string) error {
	event := PasswordResetRequestedEvent{
		EventType:   "user.password_reset_requested",
		UserID:      userID,
		Email:       email,
		ResetToken:  resetToken,
		RequestedAt: time.Now(),
	}

	return p.publish("user.password_reset_requested", event)
}

func (p *NatsPublisher) publish(subject string, event any) error {
	eventJSON, err := json.Marshal(event)

	if err != nil {
		slog.Error("Error marshalling event JSON", "subject", subject, "error", err)
		return err
	}

	if err := p.conn.Publish(subject, eventJSON); err != nil {
		slog.Error("Error publishing to NATS", "subject", subject, "error", err)
		return err
	}

	slog.Info("Published event to NATS", "subject", subject)

	return nil
}
