package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"meeting-service/internal/cache"
	"meeting-service/internal/events"
	"meeting-service/internal/model"
	"meeting-service/internal/query"
	"meeting-service/internal/repository"
)

var (
	ErrMeetingNotFound  = errors.New("meeting not found")
	ErrNotAllowed       = errors.New("only the creator or an admin can modify this meeting")
	ErrEndNotAfterStart = errors.New("end time must be after start time")
	ErrBadDate          = errors.New("date must be YYYY-MM-DD")
	ErrBadTime          = errors.New("times must be HH:MM")
)

// MeetingInput carries the client-editable fields. Status is only
// honored on update and only with a valid value; create always starts
// at scheduled.
type MeetingInput struct {
	Title        string
	Description  string
	Date         string
	StartTime    string
	EndTime      string
	Participants []string
	Status       string
}

type MeetingService interface {
	CreateMeeting(ctx context.Context, input MeetingInput, creator *model.User) (*model.Meeting, error)
	ListMeetings(ctx context.Context, viewer *model.User, effectiveRole string, opts query.Options) ([]model.Meeting, error)
	GetMeeting(ctx context.Context, meetingID uuid.UUID, viewer *model.User) (*model.Meeting, error)
	UpdateMeeting(ctx context.Context, meetingID uuid.UUID, input MeetingInput, actor *model.User) (*model.Meeting, error)
	CancelMeeting(ctx context.Context, meetingID uuid.UUID, actor *model.User) error
	DeleteMeeting(ctx context.Context, meetingID uuid.UUID, actor *model.User) error
}

type meetingService struct {
	meetingRepo repository.MeetingRepository
	userRepo    repository.UserRepository
	names       *cache.NameCache
	publisher   events.EventPublisher
}

func NewMeetingService(meetingRepo repository.MeetingRepository, userRepo repository.UserRepository, names *cache.NameCache, publisher events.EventPublisher) MeetingService {
	return &meetingService{
		meetingRepo: meetingRepo,
		userRepo:    userRepo,
		names:       names,
		publisher:   publisher,
	}
}

func (s *meetingService) CreateMeeting(ctx context.Context, input MeetingInput, creator *model.User) (*model.Meeting, error) {
	if err := validateTimeRange(input.Date, input.StartTime, input.EndTime); err != nil {
		return nil, err
	}

	meeting := &model.Meeting{
		Title:        input.Title,
		Description:  input.Description,
		Date:         input.Date,
		StartTime:    input.StartTime,
		EndTime:      input.EndTime,
		Participants: normalizeParticipants(input.Participants, creator.Email),
		CreatedBy:    creator.ID,
		Status:       model.MeetingScheduled,
	}

	created, err := s.meetingRepo.Create(ctx, meeting)
	if err != nil {
		return nil, err
	}

	go s.publisher.PublishMeetingCreated(created)

	name := creator.DisplayName()
	created.CreatorUsername = &name

	return created, nil
}

func (s *meetingService) ListMeetings(ctx context.Context, viewer *model.User, effectiveRole string, opts query.Options) ([]model.Meeting, error) {
	var (
		meetings []model.Meeting
		err      error
	)

	if effectiveRole == model.RoleAdmin {
		meetings, err = s.meetingRepo.ListAll(ctx)
	} else if viewer.ID != uuid.Nil && viewer.Email != "" {
		meetings, err = s.meetingRepo.ListByParticipant(ctx, viewer.Email)
	} else {
		return []model.Meeting{}, nil
	}
	if err != nil {
		return nil, err
	}

	if err := s.resolveCreatorNames(ctx, meetings); err != nil {
		return nil, err
	}

	return query.Apply(meetings, opts, query.Viewer{Role: effectiveRole, Email: viewer.Email}), nil
}

func (s *meetingService) GetMeeting(ctx context.Context, meetingID uuid.UUID, viewer *model.User) (*model.Meeting, error) {
	meeting, err := s.meetingRepo.FindByID(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if meeting == nil {
		return nil, ErrMeetingNotFound
	}

	if viewer.Role != model.RoleAdmin && !meeting.HasParticipant(viewer.Email) && meeting.CreatedBy != viewer.ID {
		// hide existence from outsiders
		return nil, ErrMeetingNotFound
	}

	list := []model.Meeting{*meeting}
	if err := s.resolveCreatorNames(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

func (s *meetingService) UpdateMeeting(ctx context.Context, meetingID uuid.UUID, input MeetingInput, actor *model.User) (*model.Meeting, error) {
	meeting, err := s.authorize(ctx, meetingID, actor)
	if err != nil {
		return nil, err
	}

	if err := validateTimeRange(input.Date, input.StartTime, input.EndTime); err != nil {
		return nil, err
	}

	creatorEmail := s.creatorEmail(ctx, meeting.CreatedBy)

	meeting.Title = input.Title
	meeting.Description = input.Description
	meeting.Date = input.Date
	meeting.StartTime = input.StartTime
	meeting.EndTime = input.EndTime
	meeting.Participants = normalizeParticipants(input.Participants, creatorEmail)
	if input.Status == string(model.MeetingScheduled) || input.Status == string(model.MeetingCanceled) {
		meeting.Status = model.MeetingStatus(input.Status)
	}

	if err := s.meetingRepo.Update(ctx, meeting); err != nil {
		return nil, err
	}

	return meeting, nil
}

// CancelMeeting is a status patch, not a delete. Canceling an already
// canceled meeting is a no-op.
func (s *meetingService) CancelMeeting(ctx context.Context, meetingID uuid.UUID, actor *model.User) error {
	if _, err := s.authorize(ctx, meetingID, actor); err != nil {
		return err
	}

	if err := s.meetingRepo.UpdateStatus(ctx, meetingID, model.MeetingCanceled); err != nil {
		return err
	}

	go s.publisher.PublishMeetingCanceled(meetingID, actor.ID)

	return nil
}

func (s *meetingService) DeleteMeeting(ctx context.Context, meetingID uuid.UUID, actor *model.User) error {
	if _, err := s.authorize(ctx, meetingID, actor); err != nil {
		return err
	}

	return s.meetingRepo.Delete(ctx, meetingID)
}

func (s *meetingService) authorize(ctx context.Context, meetingID uuid.UUID, actor *model.User) (*model.Meeting, error) {
	meeting, err := s.meetingRepo.FindByID(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if meeting == nil {
		return nil, ErrMeetingNotFound
	}
	if actor.Role != model.RoleAdmin && meeting.CreatedBy != actor.ID {
		if !meeting.HasParticipant(actor.Email) {
			// outsiders learn nothing, same as GetMeeting
			return nil, ErrMeetingNotFound
		}
		return nil, ErrNotAllowed
	}
	return meeting, nil
}

// creatorEmail resolves the meeting owner's current email so the
// participant invariant survives edits by admins. A deleted owner
// contributes nothing.
func (s *meetingService) creatorEmail(ctx context.Context, createdBy uuid.UUID) string {
	owner, err := s.userRepo.FindByID(ctx, createdBy)
	if err != nil {
		return ""
	}
	return owner.Email
}

func (s *meetingService) resolveCreatorNames(ctx context.Context, meetings []model.Meeting) error {
	resolved := make(map[uuid.UUID]*string)

	lookup := func(ctx context.Context, id uuid.UUID) (*string, error) {
		user, err := s.userRepo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil
			}
			return nil, err
		}
		name := user.DisplayName()
		return &name, nil
	}

	for i := range meetings {
		id := meetings[i].CreatedBy
		name, ok := resolved[id]
		if !ok {
			var err error
			name, err = s.names.Resolve(ctx, id, lookup)
			if err != nil {
				return err
			}
			resolved[id] = name
		}
		meetings[i].CreatorUsername = name
	}

	return nil
}

// normalizeParticipants de-duplicates case-insensitively, preserving
// first-seen order and spelling, and guarantees the creator's email is a
// member.
func normalizeParticipants(participants []string, creatorEmail string) []string {
	seen := make(map[string]bool, len(participants)+1)
	out := make([]string, 0, len(participants)+1)

	add := func(email string) {
		email = strings.TrimSpace(email)
		if email == "" {
			return
		}
		key := strings.ToLower(email)
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, email)
	}

	for _, p := range participants {
		add(p)
	}
	add(creatorEmail)

	return out
}

func validateTimeRange(date, start, end string) error {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return ErrBadDate
	}
	startT, err := time.Parse("15:04", start)
	if err != nil {
		return ErrBadTime
	}
	endT, err := time.Parse("15:04", end)
	if err != nil {
		return ErrBadTime
	}
	if !endT.After(startT) {
		return ErrEndNotAfterStart
	}
	return nil
}
