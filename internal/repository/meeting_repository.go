package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"meeting-service/internal/model"
)

type MeetingRepository interface {
	Create(ctx context.Context, meeting *model.Meeting) (*model.Meeting, error)
	FindByID(ctx context.Context, meetingID uuid.UUID) (*model.Meeting, error)
	ListAll(ctx context.Context) ([]model.Meeting, error)
	ListByParticipant(ctx context.Context, email string) ([]model.Meeting, error)
	Update(ctx context.Context, meeting *model.Meeting) error
	UpdateStatus(ctx context.Context, meetingID uuid.UUID, status model.MeetingStatus) error
	Delete(ctx context.Context, meetingID uuid.UUID) error
}

type postgresMeetingRepository struct {
	db *sqlx.DB
}

func NewPostgresMeetingRepository(db *sqlx.DB) MeetingRepository {
	return &postgresMeetingRepository{db: db}
}

func (r *postgresMeetingRepository) Create(ctx context.Context, meeting *model.Meeting) (*model.Meeting, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO meetings (title, description, date, start_time, end_time, created_by, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	row := tx.QueryRowxContext(ctx, query,
		meeting.Title, meeting.Description, meeting.Date,
		meeting.StartTime, meeting.EndTime, meeting.CreatedBy, meeting.Status,
	)
	if err := row.Scan(&meeting.ID, &meeting.CreatedAt, &meeting.UpdatedAt); err != nil {
		return nil, err
	}

	for _, email := range meeting.Participants {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO meeting_participants (meeting_id, email) VALUES ($1, $2)`,
			meeting.ID, email,
		)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return meeting, nil
}

func (r *postgresMeetingRepository) FindByID(ctx context.Context, meetingID uuid.UUID) (*model.Meeting, error) {
	var meeting model.Meeting
	query := `
		SELECT id, title, description, date, start_time, end_time, created_by, status, created_at, updated_at
		FROM meetings WHERE id = $1
	`
	err := r.db.GetContext(ctx, &meeting, query, meetingID)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}

		return nil, err
	}

	list := []model.Meeting{meeting}
	if err := r.attachParticipants(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// ListAll is the admin fetch: every meeting, default-ordered by the
// (date, start time) composite the calendar views expect.
func (r *postgresMeetingRepository) ListAll(ctx context.Context) ([]model.Meeting, error) {
	var meetings []model.Meeting
	query := `
		SELECT id, title, description, date, start_time, end_time, created_by, status, created_at, updated_at
		FROM meetings
		ORDER BY date ASC, start_time ASC
	`
	err := r.db.SelectContext(ctx, &meetings, query)
	if err != nil {
		return nil, err
	}

	if err := r.attachParticipants(ctx, meetings); err != nil {
		return nil, err
	}

	if meetings == nil {
		meetings = []model.Meeting{}
	}

	return meetings, nil
}

// ListByParticipant is the user fetch: meetings whose participant list
// contains the caller's email.
func (r *postgresMeetingRepository) ListByParticipant(ctx context.Context, email string) ([]model.Meeting, error) {
	var meetings []model.Meeting
	query := `
		SELECT m.id, m.title, m.description, m.date, m.start_time, m.end_time, m.created_by, m.status, m.created_at, m.updated_at
		FROM meetings m
		JOIN meeting_participants mp ON m.id = mp.meeting_id
		WHERE lower(mp.email) = lower($1)
		ORDER BY m.date ASC, m.start_time ASC
	`
	err := r.db.SelectContext(ctx, &meetings, query, email)
	if err != nil {
		return nil, err
	}

	if err := r.attachParticipants(ctx, meetings); err != nil {
		return nil, err
	}

	if meetings == nil {
		meetings = []model.Meeting{}
	}

	return meetings, nil
}

// Update patches the mutable fields and replaces the participant set.
// id, created_by and created_at never change.
func (r *postgresMeetingRepository) Update(ctx context.Context, meeting *model.Meeting) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		UPDATE meetings
		SET title = $2, description = $3, date = $4, start_time = $5, end_time = $6, status = $7, updated_at = now()
		WHERE id = $1
	`
	_, err = tx.ExecContext(ctx, query,
		meeting.ID, meeting.Title, meeting.Description, meeting.Date,
		meeting.StartTime, meeting.EndTime, meeting.Status,
	)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM meeting_participants WHERE meeting_id = $1`, meeting.ID)
	if err != nil {
		return err
	}

	for _, email := range meeting.Participants {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO meeting_participants (meeting_id, email) VALUES ($1, $2)`,
			meeting.ID, email,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *postgresMeetingRepository) UpdateStatus(ctx context.Context, meetingID uuid.UUID, status model.MeetingStatus) error {
	query := `UPDATE meetings SET status = $2, updated_at = now() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, meetingID, status)
	return err
}

func (r *postgresMeetingRepository) Delete(ctx context.Context, meetingID uuid.UUID) error {
	query := `DELETE FROM meetings WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, meetingID)
	return err
}

type participantRow struct {
	MeetingID uuid.UUID `db:"meeting_id"`
	Email     string    `db:"email"`
}

func (r *postgresMeetingRepository) attachParticipants(ctx context.Context, meetings []model.Meeting) error {
	if len(meetings) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(meetings))
	for i := range meetings {
		ids[i] = meetings[i].ID
	}

	query, args, err := sqlx.In(`SELECT meeting_id, email FROM meeting_participants WHERE meeting_id IN (?) ORDER BY email`, ids)
	if err != nil {
		return err
	}
	query = r.db.Rebind(query)

	var rows []participantRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return err
	}

	byMeeting := make(map[uuid.UUID][]string, len(meetings))
	for _, row := range rows {
		byMeeting[row.MeetingID] = append(byMeeting[row.MeetingID], row.Email)
	}

	for i := range meetings {
		meetings[i].Participants = byMeeting[meetings[i].ID]
	}

	return nil
}
