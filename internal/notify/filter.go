package notify

import (
	"slices"
	"strings"
	"time"

	"github.com/nhle/airwatch/internal/model"
)

// DateRange limits alerts to a recent window.
type DateRange int

const (
	RangeAll DateRange = iota
	RangeToday
	RangeWeek
	RangeMonth
)

// DateRanges lists the ranges in the order the filter cycles through them.
var DateRanges = []DateRange{RangeAll, RangeToday, RangeWeek, RangeMonth}

func (r DateRange) String() string {
	switch r {
	case RangeToday:
		return "today"
	case RangeWeek:
		return "this week"
	case RangeMonth:
		return "this month"
	default:
		return "all dates"
	}
}

// since returns the earliest timestamp inside the range, or the zero time
// for RangeAll.
func (r DateRange) since(now time.Time) time.Time {
	switch r {
	case RangeToday:
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	case RangeWeek:
		return now.AddDate(0, 0, -7)
	case RangeMonth:
		return now.AddDate(0, -1, 0)
	default:
		return time.Time{}
	}
}

// ReadStatus filters on the per-alert read flag.
type ReadStatus int

const (
	ReadAny ReadStatus = iota
	ReadOnly
	UnreadOnly
)

// ReadStatuses lists the read filters in cycling order.
var ReadStatuses = []ReadStatus{ReadAny, UnreadOnly, ReadOnly}

func (s ReadStatus) String() string {
	switch s {
	case ReadOnly:
		return "read"
	case UnreadOnly:
		return "unread"
	default:
		return "any status"
	}
}

// Filter selects alerts on the alerts page. Zero values match everything.
type Filter struct {
	Search   string
	Type     model.NotificationType
	Priority model.Priority
	Range    DateRange
	Read     ReadStatus
}

// Match reports whether n passes every criterion.
func (f Filter) Match(n model.Notification, now time.Time) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		if !strings.Contains(strings.ToLower(n.Message), q) &&
			!strings.Contains(strings.ToLower(n.Type.Label()), q) &&
			!strings.Contains(strings.ToLower(n.Location), q) {
			return false
		}
	}
	if f.Type != "" && n.Type != f.Type {
		return false
	}
	if f.Priority != "" && n.Priority != f.Priority {
		return false
	}
	switch f.Read {
	case ReadOnly:
		if !n.Read {
			return false
		}
	case UnreadOnly:
		if n.Read {
			return false
		}
	}
	if since := f.Range.since(now); !since.IsZero() && n.Timestamp.Before(since) {
		return false
	}
	return true
}

// Apply returns the matching alerts, newest first.
func (f Filter) Apply(list []model.Notification, now time.Time) []model.Notification {
	var out []model.Notification
	for _, n := range list {
		if f.Match(n, now) {
			out = append(out, n)
		}
	}
	slices.SortStableFunc(out, func(a, b model.Notification) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return out
}

// Active reports whether any criterion is set.
func (f Filter) Active() bool {
	return f != Filter{}
}

// Stats are the counters shown above the alert list.
type Stats struct {
	Total    int
	Unread   int
	Critical int
	Today    int
}

// ComputeStats counts list as of now.
func ComputeStats(list []model.Notification, now time.Time) Stats {
	var s Stats
	today := RangeToday.since(now)
	tomorrow := today.AddDate(0, 0, 1)
	for _, n := range list {
		s.Total++
		if !n.Read {
			s.Unread++
		}
		if n.Priority == model.PriorityCritical {
			s.Critical++
		}
		if !n.Timestamp.Before(today) && n.Timestamp.Before(tomorrow) {
			s.Today++
		}
	}
	return s
}

// Latest returns at most n alerts, newest first.
func Latest(list []model.Notification, n int) []model.Notification {
	if len(list) > n {
		list = list[:n]
	}
	return list
}
