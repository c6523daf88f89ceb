package query_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"meeting-service/internal/model"
	"meeting-service/internal/query"
)

func strPtr(s string) *string { return &s }

func admin() query.Viewer {
	return query.Viewer{Role: model.RoleAdmin, Email: "admin@corp.com"}
}

func fixtures() []model.Meeting {
	return []model.Meeting{
		{
			ID:              uuid.New(),
			Title:           "Budget review",
			Description:     "Q3 numbers",
			Date:            "2026-09-01",
			StartTime:       "09:00",
			EndTime:         "10:00",
			Status:          model.MeetingScheduled,
			Participants:    []string{"alice@corp.com", "bob@corp.com"},
			CreatorUsername: strPtr("alice"),
			CreatedAt:       time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		},
		{
			ID:              uuid.New(),
			Title:           "Design sync",
			Description:     "weekly",
			Date:            "2026-09-02",
			StartTime:       "14:00",
			EndTime:         "15:00",
			Status:          model.MeetingCanceled,
			Participants:    []string{"bob@corp.com"},
			CreatorUsername: strPtr("bob"),
			CreatedAt:       time.Date(2026, 8, 2, 12, 0, 0, 0, time.UTC),
		},
		{
			ID:              uuid.New(),
			Title:           "All hands",
			Description:     "budget and roadmap",
			Date:            "2026-08-30",
			StartTime:       "11:00",
			EndTime:         "12:00",
			Status:          model.MeetingScheduled,
			Participants:    []string{"alice@corp.com", "carol@corp.com"},
			CreatorUsername: nil,
		},
	}
}

func titles(meetings []model.Meeting) []string {
	out := make([]string, 0, len(meetings))
	for _, m := range meetings {
		out = append(out, m.Title)
	}
	return out
}

func TestApply_SearchIsCaseInsensitive(t *testing.T) {
	got := query.Apply(fixtures(), query.Options{Search: "budget"}, admin())
	require.Equal(t, []string{"All hands", "Budget review"}, titles(got))

	got = query.Apply(fixtures(), query.Options{Search: "BUDGET"}, admin())
	require.Equal(t, []string{"All hands", "Budget review"}, titles(got))
}

func TestApply_SearchMatchesCreatorName(t *testing.T) {
	got := query.Apply(fixtures(), query.Options{Search: "alice"}, admin())
	require.Equal(t, []string{"Budget review"}, titles(got))
}

func TestApply_ParticipantSubstringFilter(t *testing.T) {
	got := query.Apply(fixtures(), query.Options{Participant: "Carol"}, admin())
	require.Equal(t, []string{"All hands"}, titles(got))

	// substring, not exact match
	got = query.Apply(fixtures(), query.Options{Participant: "@corp.com"}, admin())
	require.Len(t, got, 3)
}

func TestApply_StatusFilter(t *testing.T) {
	got := query.Apply(fixtures(), query.Options{Status: "canceled"}, admin())
	require.Equal(t, []string{"Design sync"}, titles(got))

	got = query.Apply(fixtures(), query.Options{Status: query.StatusAll}, admin())
	require.Len(t, got, 3)

	got = query.Apply(fixtures(), query.Options{}, admin())
	require.Len(t, got, 3)
}

func TestApply_UserRoleOnlySeesOwnMeetings(t *testing.T) {
	viewer := query.Viewer{Role: model.RoleUser, Email: "carol@corp.com"}

	got := query.Apply(fixtures(), query.Options{}, viewer)
	require.Equal(t, []string{"All hands"}, titles(got))
}

func TestApply_UserRoleParticipantMatchIsCaseInsensitive(t *testing.T) {
	viewer := query.Viewer{Role: model.RoleUser, Email: "CAROL@CORP.COM"}

	got := query.Apply(fixtures(), query.Options{}, viewer)
	require.Equal(t, []string{"All hands"}, titles(got))
}

func TestApply_SortKeys(t *testing.T) {
	cases := []struct {
		sort query.SortKey
		want []string
	}{
		{query.SortDateAsc, []string{"All hands", "Budget review", "Design sync"}},
		{query.SortDateDesc, []string{"Design sync", "Budget review", "All hands"}},
		{query.SortStartTimeAsc, []string{"Budget review", "All hands", "Design sync"}},
		{query.SortStartTimeDesc, []string{"Design sync", "All hands", "Budget review"}},
		{query.SortTitleAsc, []string{"All hands", "Budget review", "Design sync"}},
	}

	for _, tc := range cases {
		got := query.Apply(fixtures(), query.Options{Sort: tc.sort}, admin())
		require.Equal(t, tc.want, titles(got), "sort %s", tc.sort)
	}
}

func TestApply_CreatedAtSortTreatsMissingAsOldest(t *testing.T) {
	// "All hands" has a zero CreatedAt and must sort before any real
	// timestamp on ascending, after on descending.
	got := query.Apply(fixtures(), query.Options{Sort: query.SortCreatedAtAsc}, admin())
	require.Equal(t, []string{"All hands", "Budget review", "Design sync"}, titles(got))

	got = query.Apply(fixtures(), query.Options{Sort: query.SortCreatedAtDesc}, admin())
	require.Equal(t, []string{"Design sync", "Budget review", "All hands"}, titles(got))
}

func TestApply_StableOnTies(t *testing.T) {
	a := model.Meeting{Title: "first", Date: "2026-09-01", StartTime: "09:00"}
	b := model.Meeting{Title: "second", Date: "2026-09-01", StartTime: "09:00"}

	got := query.Apply([]model.Meeting{a, b}, query.Options{Sort: query.SortDateAsc}, admin())
	require.Equal(t, []string{"first", "second"}, titles(got))
}

func TestApply_DoesNotModifyInput(t *testing.T) {
	in := fixtures()
	query.Apply(in, query.Options{Sort: query.SortTitleAsc}, admin())
	require.Equal(t, "Budget review", in[0].Title)
}

func TestParseSortKey(t *testing.T) {
	require.Equal(t, query.SortDateDesc, query.ParseSortKey("dateDesc"))
	require.Equal(t, query.SortTitleAsc, query.ParseSortKey("titleAsc"))
	require.Equal(t, query.SortDateAsc, query.ParseSortKey(""))
	require.Equal(t, query.SortDateAsc, query.ParseSortKey("bogus"))
}
