package service_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"meeting-service/internal/model"
	"meeting-service/internal/query"
	"meeting-service/internal/service"
)

type fakeMeetingRepo struct {
	mu       sync.Mutex
	meetings map[uuid.UUID]*model.Meeting
	order    []uuid.UUID
}

func newFakeMeetingRepo() *fakeMeetingRepo {
	return &fakeMeetingRepo{meetings: make(map[uuid.UUID]*model.Meeting)}
}

func (r *fakeMeetingRepo) Create(ctx context.Context, meeting *model.Meeting) (*model.Meeting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := *meeting
	m.ID = uuid.New()
	r.meetings[m.ID] = &m
	r.order = append(r.order, m.ID)
	out := m
	return &out, nil
}

func (r *fakeMeetingRepo) FindByID(ctx context.Context, meetingID uuid.UUID) (*model.Meeting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.meetings[meetingID]
	if !ok {
		return nil, nil
	}
	out := *m
	return &out, nil
}

func (r *fakeMeetingRepo) ListAll(ctx context.Context) ([]model.Meeting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Meeting, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.meetings[id])
	}
	return out, nil
}

func (r *fakeMeetingRepo) ListByParticipant(ctx context.Context, email string) ([]model.Meeting, error) {
	all, _ := r.ListAll(ctx)
	out := make([]model.Meeting, 0, len(all))
	for _, m := range all {
		if m.HasParticipant(email) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMeetingRepo) Update(ctx context.Context, meeting *model.Meeting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := *meeting
	r.meetings[m.ID] = &m
	return nil
}

func (r *fakeMeetingRepo) UpdateStatus(ctx context.Context, meetingID uuid.UUID, status model.MeetingStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.meetings[meetingID]; ok {
		m.Status = status
	}
	return nil
}

func (r *fakeMeetingRepo) Delete(ctx context.Context, meetingID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.meetings, meetingID)
	for i, id := range r.order {
		if id == meetingID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*model.User
}

func newFakeUserRepo(users ...*model.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[uuid.UUID]*model.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) Create(ctx context.Context, user *model.User) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := uuid.New()
	u := *user
	u.ID = id
	r.users[id] = &u
	return id, nil
}

func (r *fakeUserRepo) CreateWithID(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := *user
	r.users[u.ID] = &u
	return nil
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	out := *u
	return &out, nil
}

func (r *fakeUserRepo) ListAll(ctx context.Context) ([]model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, nil
}

func (r *fakeUserRepo) UpdateRole(ctx context.Context, id uuid.UUID, role string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		u.Role = role
	}
	return nil
}

func (r *fakeUserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
	return nil
}

type fakePublisher struct{}

func (p *fakePublisher) PublishMeetingCreated(meeting *model.Meeting) error { return nil }
func (p *fakePublisher) PublishMeetingCanceled(meetingID, actorID uuid.UUID) error {
	return nil
}
func (p *fakePublisher) PublishPasswordResetRequested(userID uuid.UUID, email, resetToken string) error {
	return nil
}

func newTestMeetingService(meetingRepo *fakeMeetingRepo, userRepo *fakeUserRepo) service.MeetingService {
	return service.NewMeetingService(meetingRepo, userRepo, nil, &fakePublisher{})
}

func validInput() service.MeetingInput {
	return service.MeetingInput{
		Title:     "Standup",
		Date:      "2026-09-15",
		StartTime: "09:00",
		EndTime:   "09:30",
	}
}

func alice() *model.User {
	return &model.User{ID: uuid.New(), Email: "alice@corp.com", Username: "alice", Role: model.RoleUser}
}

func TestCreateMeeting_CreatorAlwaysParticipantExactlyOnce(t *testing.T) {
	svc := newTestMeetingService(newFakeMeetingRepo(), newFakeUserRepo())
	creator := alice()

	input := validInput()
	input.Participants = []string{" bob@corp.com ", "ALICE@corp.com", "bob@corp.com", ""}

	created, err := svc.CreateMeeting(context.Background(), input, creator)
	require.NoError(t, err)
	require.Equal(t, []string{"bob@corp.com", "ALICE@corp.com"}, created.Participants)
	require.Equal(t, model.MeetingScheduled, created.Status)
	require.Equal(t, creator.ID, created.CreatedBy)
	require.NotNil(t, created.CreatorUsername)
	require.Equal(t, "alice", *created.CreatorUsername)
}

func TestCreateMeeting_RejectsBadTimeRange(t *testing.T) {
	svc := newTestMeetingService(newFakeMeetingRepo(), newFakeUserRepo())

	input := validInput()
	input.StartTime = "10:00"
	input.EndTime = "10:00"
	_, err := svc.CreateMeeting(context.Background(), input, alice())
	require.ErrorIs(t, err, service.ErrEndNotAfterStart)

	input = validInput()
	input.Date = "15-09-2026"
	_, err = svc.CreateMeeting(context.Background(), input, alice())
	require.ErrorIs(t, err, service.ErrBadDate)

	input = validInput()
	input.EndTime = "9pm"
	_, err = svc.CreateMeeting(context.Background(), input, alice())
	require.ErrorIs(t, err, service.ErrBadTime)
}

func TestCreateMeeting_IgnoresClientStatus(t *testing.T) {
	svc := newTestMeetingService(newFakeMeetingRepo(), newFakeUserRepo())

	input := validInput()
	input.Status = "canceled"
	created, err := svc.CreateMeeting(context.Background(), input, alice())
	require.NoError(t, err)
	require.Equal(t, model.MeetingScheduled, created.Status)
}

func TestListMeetings_UserOnlySeesParticipating(t *testing.T) {
	meetingRepo := newFakeMeetingRepo()
	creator := alice()
	userRepo := newFakeUserRepo(creator)
	svc := newTestMeetingService(meetingRepo, userRepo)

	_, err := svc.CreateMeeting(context.Background(), validInput(), creator)
	require.NoError(t, err)

	other := validInput()
	other.Title = "Private"
	stranger := &model.User{ID: uuid.New(), Email: "eve@corp.com", Role: model.RoleUser}
	_, err = svc.CreateMeeting(context.Background(), other, stranger)
	require.NoError(t, err)

	got, err := svc.ListMeetings(context.Background(), creator, model.RoleUser, query.Options{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "Standup", got[0].Title)

	asAdmin, err := svc.ListMeetings(context.Background(), creator, model.RoleAdmin, query.Options{})
	require.NoError(t, err)
	require.Len(t, asAdmin, 2)
}

func TestListMeetings_ResolvesCreatorNames(t *testing.T) {
	meetingRepo := newFakeMeetingRepo()
	creator := alice()
	userRepo := newFakeUserRepo(creator)
	svc := newTestMeetingService(meetingRepo, userRepo)

	_, err := svc.CreateMeeting(context.Background(), validInput(), creator)
	require.NoError(t, err)

	got, err := svc.ListMeetings(context.Background(), creator, model.RoleUser, query.Options{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.NotNil(t, got[0].CreatorUsername)
	require.Equal(t, "alice", *got[0].CreatorUsername)
}

func TestListMeetings_DeletedCreatorRendersNil(t *testing.T) {
	meetingRepo := newFakeMeetingRepo()
	creator := alice()
	svc := newTestMeetingService(meetingRepo, newFakeUserRepo())

	_, err := svc.CreateMeeting(context.Background(), validInput(), creator)
	require.NoError(t, err)

	got, err := svc.ListMeetings(context.Background(), creator, model.RoleUser, query.Options{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Nil(t, got[0].CreatorUsername)
}

func TestGetMeeting_HidesExistenceFromOutsiders(t *testing.T) {
	meetingRepo := newFakeMeetingRepo()
	creator := alice()
	userRepo := newFakeUserRepo(creator)
	svc := newTestMeetingService(meetingRepo, userRepo)

	created, err := svc.CreateMeeting(context.Background(), validInput(), creator)
	require.NoError(t, err)

	outsider := &model.User{ID: uuid.New(), Email: "eve@corp.com", Role: model.RoleUser}
	_, err = svc.GetMeeting(context.Background(), created.ID, outsider)
	require.ErrorIs(t, err, service.ErrMeetingNotFound)

	got, err := svc.GetMeeting(context.Background(), created.ID, creator)
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)

	adminUser := &model.User{ID: uuid.New(), Email: "root@corp.com", Role: model.RoleAdmin}
	got, err = svc.GetMeeting(context.Background(), created.ID, adminUser)
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)
}

func TestUpdateMeeting_OnlyCreatorOrAdmin(t *testing.T) {
	meetingRepo := newFakeMeetingRepo()
	creator := alice()
	userRepo := newFakeUserRepo(creator)
	svc := newTestMeetingService(meetingRepo, userRepo)

	in := validInput()
	in.Participants = []string{"bob@corp.com"}
	created, err := svc.CreateMeeting(context.Background(), in, creator)
	require.NoError(t, err)

	input := validInput()
	input.Title = "Renamed"

	// an outsider cannot even learn the meeting exists
	stranger := &model.User{ID: uuid.New(), Email: "eve@corp.com", Role: model.RoleUser}
	_, err = svc.UpdateMeeting(context.Background(), created.ID, input, stranger)
	require.ErrorIs(t, err, service.ErrMeetingNotFound)

	// a participant who is not the creator sees it but may not edit it
	bob := &model.User{ID: uuid.New(), Email: "bob@corp.com", Role: model.RoleUser}
	_, err = svc.UpdateMeeting(context.Background(), created.ID, input, bob)
	require.ErrorIs(t, err, service.ErrNotAllowed)

	updated, err := svc.UpdateMeeting(context.Background(), created.ID, input, creator)
	require.NoError(t, err)
	require.Equal(t, "Renamed", updated.Title)
}

func TestUpdateMeeting_KeepsCreatorOnParticipantList(t *testing.T) {
	meetingRepo := newFakeMeetingRepo()
	creator := alice()
	userRepo := newFakeUserRepo(creator)
	svc := newTestMeetingService(meetingRepo, userRepo)

	created, err := svc.CreateMeeting(context.Background(), validInput(), creator)
	require.NoError(t, err)

	// an admin edit that drops every participant still re-adds the owner
	input := validInput()
	input.Participants = []string{"bob@corp.com"}
	adminUser := &model.User{ID: uuid.New(), Email: "root@corp.com", Role: model.RoleAdmin}

	updated, err := svc.UpdateMeeting(context.Background(), created.ID, input, adminUser)
	require.NoError(t, err)
	require.Equal(t, []string{"bob@corp.com", "alice@corp.com"}, updated.Participants)
}

func TestCancelMeeting_IsIdempotent(t *testing.T) {
	meetingRepo := newFakeMeetingRepo()
	creator := alice()
	userRepo := newFakeUserRepo(creator)
	svc := newTestMeetingService(meetingRepo, userRepo)

	created, err := svc.CreateMeeting(context.Background(), validInput(), creator)
	require.NoError(t, err)

	require.NoError(t, svc.CancelMeeting(context.Background(), created.ID, creator))
	require.NoError(t, svc.CancelMeeting(context.Background(), created.ID, creator))

	got, err := svc.GetMeeting(context.Background(), created.ID, creator)
	require.NoError(t, err)
	require.Equal(t, model.MeetingCanceled, got.Status)
}

func TestDeleteMeeting_GoneAfterwards(t *testing.T) {
	meetingRepo := newFakeMeetingRepo()
	creator := alice()
	userRepo := newFakeUserRepo(creator)
	svc := newTestMeetingService(meetingRepo, userRepo)

	created, err := svc.CreateMeeting(context.Background(), validInput(), creator)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteMeeting(context.Background(), created.ID, creator))

	_, err = svc.GetMeeting(context.Background(), created.ID, creator)
	require.ErrorIs(t, err, service.ErrMeetingNotFound)
}

func TestMutations_UnknownMeetingIsNotFound(t *testing.T) {
	svc := newTestMeetingService(newFakeMeetingRepo(), newFakeUserRepo())
	actor := alice()

	_, err := svc.UpdateMeeting(context.Background(), uuid.New(), validInput(), actor)
	require.ErrorIs(t, err, service.ErrMeetingNotFound)

	err = svc.CancelMeeting(context.Background(), uuid.New(), actor)
	require.ErrorIs(t, err, service.ErrMeetingNotFound)

	err = svc.DeleteMeeting(context.Background(), uuid.New(), actor)
	require.ErrorIs(t, err, service.ErrMeetingNotFound)
}
