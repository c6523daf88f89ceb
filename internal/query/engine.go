// Package query is the in-memory meeting query engine: given the fetched
// meeting set it applies free-text search, participant and status filters,
// the role-based visibility rule, and a single user-selected sort key.
// Everything here is pure and synchronous; the database only provides the
// role-scoped fetch and the default (date, start time) ordering.
package query

import (
	"sort"
	"strings"

	"meeting-service/internal/model"
)

type SortKey string

const (
	SortDateAsc       SortKey = "dateAsc"
	SortDateDesc      SortKey = "dateDesc"
	SortStartTimeAsc  SortKey = "startTimeAsc"
	SortStartTimeDesc SortKey = "startTimeDesc"
	SortCreatedAtAsc  SortKey = "createdAtAsc"
	SortCreatedAtDesc SortKey = "createdAtDesc"
	SortTitleAsc      SortKey = "titleAsc"
)

const StatusAll = "all"

// Options are the user-selectable list controls. Zero values mean "no
// filtering" and the default chronological sort.
type Options struct {
	Search      string
	Participant string
	Status      string
	Sort        SortKey
}

// Viewer identifies who is looking at the list. Role is the effective
// role: an admin previewing the user experience passes RoleUser here.
type Viewer struct {
	Role  string
	Email string
}

// Apply filters and sorts meetings for the viewer. The input slice is not
// modified. A user-role viewer only ever sees meetings that list their
// email as a participant, whatever the fetch layer returned.
func Apply(meetings []model.Meeting, opts Options, viewer Viewer) []model.Meeting {
	out := make([]model.Meeting, 0, len(meetings))

	for _, m := range meetings {
		if !matches(&m, opts) {
			continue
		}
		if viewer.Role == model.RoleUser && !m.HasParticipant(viewer.Email) {
			continue
		}
		out = append(out, m)
	}

	sortMeetings(out, opts.Sort)
	return out
}

func matches(m *model.Meeting, opts Options) bool {
	if opts.Search != "" {
		needle := strings.ToLower(opts.Search)
		creator := ""
		if m.CreatorUsername != nil {
			creator = *m.CreatorUsername
		}
		if !strings.Contains(strings.ToLower(m.Title), needle) &&
			!strings.Contains(strings.ToLower(m.Description), needle) &&
			!strings.Contains(strings.ToLower(creator), needle) {
			return false
		}
	}

	if opts.Participant != "" {
		needle := strings.ToLower(opts.Participant)
		found := false
		for _, p := range m.Participants {
			if strings.Contains(strings.ToLower(p), needle) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if opts.Status != "" && opts.Status != StatusAll && string(m.Status) != opts.Status {
		return false
	}

	return true
}

// sortMeetings orders by the selected key. SliceStable keeps insertion
// order for ties, so equal keys fall back to the fetch ordering.
func sortMeetings(meetings []model.Meeting, key SortKey) {
	var less func(a, b *model.Meeting) bool

	switch key {
	case SortDateDesc:
		less = func(a, b *model.Meeting) bool { return a.StartsAt().After(b.StartsAt()) }
	case SortStartTimeAsc:
		less = func(a, b *model.Meeting) bool { return a.StartTime < b.StartTime }
	case SortStartTimeDesc:
		less = func(a, b *model.Meeting) bool { return a.StartTime > b.StartTime }
	case SortCreatedAtAsc:
		less = func(a, b *model.Meeting) bool { return createdAtUnix(a) < createdAtUnix(b) }
	case SortCreatedAtDesc:
		less = func(a, b *model.Meeting) bool { return createdAtUnix(a) > createdAtUnix(b) }
	case SortTitleAsc:
		less = func(a, b *model.Meeting) bool { return a.Title < b.Title }
	default: // SortDateAsc
		less = func(a, b *model.Meeting) bool { return a.StartsAt().Before(b.StartsAt()) }
	}

	sort.SliceStable(meetings, func(i, j int) bool {
		return less(&meetings[i], &meetings[j])
	})
}

// Meetings that never got a creation timestamp sort as the epoch.
func createdAtUnix(m *model.Meeting) int64 {
	if m.CreatedAt.IsZero() {
		return 0
	}
	return m.CreatedAt.Unix()
}

// ParseSortKey maps a request parameter onto a known key, falling back to
// the chronological default.
func ParseSortKey(s string) SortKey {
	switch SortKey(s) {
	case SortDateAsc, SortDateDesc, SortStartTimeAsc, SortStartTimeDesc,
		SortCreatedAtAsc, SortCreatedAtDesc, SortTitleAsc:
		return SortKey(s)
	}
	return SortDateAsc
}
