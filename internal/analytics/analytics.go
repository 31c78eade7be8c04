// Package analytics aggregates stored sessions into the numbers shown on the
// dashboard, the analytics view and the stats command. Every function is pure.
package analytics

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/sadopc/studylog/internal/store"
)

const (
	UntitledTopic  = "Untitled"
	UnknownSubject = "Unknown"
	dateLayout     = "2006-01-02"
)

type DailyBucket struct {
	Date            string  `json:"date"` // YYYY-MM-DD
	TotalHours      float64 `json:"totalHours"`
	AvgProductivity float64 `json:"avgProductivity"`
	Sessions        int     `json:"sessions"`
}

type TopicHours struct {
	Topic        string  `json:"topic"`
	TotalHours   float64 `json:"totalHours"`
	SessionCount int     `json:"sessionCount"`
}

type SubjectHours struct {
	SubjectID  string  `json:"subjectId"`
	Name       string  `json:"name"`
	Color      string  `json:"color"`
	TotalHours float64 `json:"totalHours"`
	Sessions   int     `json:"sessions"`
}

type Stats struct {
	TotalSessions   int     `json:"totalSessions"`
	TotalHours      float64 `json:"totalHours"`
	AvgProductivity float64 `json:"avgProductivity"`
}

// Round1 rounds half away from zero to one decimal place.
func Round1(x float64) float64 {
	return math.Round(x*10) / 10
}

func minutes(s store.Session) int {
	if s.DurationMinutes < 0 {
		return 0
	}
	return s.DurationMinutes
}

func rating(s store.Session) int {
	if s.ProductivityRating < 1 || s.ProductivityRating > 5 {
		return 0
	}
	return s.ProductivityRating
}

func dayOf(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(dateLayout)
}

// Summary totals all records. Hours and average rating are rounded to one decimal.
func Summary(records []store.Session) Stats {
	if len(records) == 0 {
		return Stats{}
	}
	var mins, ratings int
	for _, r := range records {
		mins += minutes(r)
		ratings += rating(r)
	}
	return Stats{
		TotalSessions:   len(records),
		TotalHours:      Round1(float64(mins) / 60),
		AvgProductivity: Round1(float64(ratings) / float64(len(records))),
	}
}

// Today is Summary restricted to records completed on now's calendar date.
func Today(records []store.Session, now time.Time, loc *time.Location) Stats {
	today := dayOf(now, loc)
	var sel []store.Session
	for _, r := range records {
		if dayOf(r.CompletedAt, loc) == today {
			sel = append(sel, r)
		}
	}
	return Summary(sel)
}

// DailyBuckets returns one bucket per calendar date for the last days dates ending
// with now's date, oldest first. Days without records are zero.
func DailyBuckets(records []store.Session, days int, now time.Time, loc *time.Location) []DailyBucket {
	if days <= 0 {
		return nil
	}
	if loc == nil {
		loc = time.Local
	}
	type acc struct{ mins, ratings, n int }
	byDay := make(map[string]*acc)
	for _, r := range records {
		d := dayOf(r.CompletedAt, loc)
		a := byDay[d]
		if a == nil {
			a = &acc{}
			byDay[d] = a
		}
		a.mins += minutes(r)
		a.ratings += rating(r)
		a.n++
	}

	local := now.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 12, 0, 0, 0, loc).AddDate(0, 0, -(days - 1))
	out := make([]DailyBucket, 0, days)
	for i := 0; i < days; i++ {
		d := start.AddDate(0, 0, i).Format(dateLayout)
		b := DailyBucket{Date: d}
		if a := byDay[d]; a != nil {
			b.TotalHours = Round1(float64(a.mins) / 60)
			b.AvgProductivity = Round1(float64(a.ratings) / float64(a.n))
			b.Sessions = a.n
		}
		out = append(out, b)
	}
	return out
}

// TopicRanking sums hours per topic and returns the topN largest. Ties keep the
// order in which topics first appear in records. topN <= 0 returns every topic.
func TopicRanking(records []store.Session, topN int) []TopicHours {
	mins := make(map[string]int)
	counts := make(map[string]int)
	var order []string
	for _, r := range records {
		topic := strings.TrimSpace(r.Topic)
		if topic == "" {
			topic = UntitledTopic
		}
		if _, ok := mins[topic]; !ok {
			order = append(order, topic)
		}
		mins[topic] += minutes(r)
		counts[topic]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return mins[order[i]] > mins[order[j]]
	})
	if topN > 0 && len(order) > topN {
		order = order[:topN]
	}
	out := make([]TopicHours, 0, len(order))
	for _, t := range order {
		out = append(out, TopicHours{Topic: t, TotalHours: Round1(float64(mins[t]) / 60), SessionCount: counts[t]})
	}
	return out
}

// SubjectTotals sums hours per subject, largest first. Records pointing at a
// subject that no longer exists are grouped under "Unknown".
func SubjectTotals(records []store.Session, subjects []store.Subject) []SubjectHours {
	known := make(map[string]store.Subject, len(subjects))
	for _, s := range subjects {
		known[s.ID] = s
	}

	type acc struct {
		SubjectHours
		mins int
	}
	byID := make(map[string]*acc)
	var order []string
	for _, r := range records {
		key := r.SubjectID
		if _, ok := known[key]; !ok {
			key = ""
		}
		a := byID[key]
		if a == nil {
			a = &acc{SubjectHours: SubjectHours{SubjectID: key, Name: UnknownSubject}}
			if s, ok := known[key]; ok {
				a.Name, a.Color = s.Name, s.Color
			}
			byID[key] = a
			order = append(order, key)
		}
		a.mins += minutes(r)
		a.Sessions++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return byID[order[i]].mins > byID[order[j]].mins
	})
	out := make([]SubjectHours, 0, len(order))
	for _, k := range order {
		a := byID[k]
		a.TotalHours = Round1(float64(a.mins) / 60)
		out = append(out, a.SubjectHours)
	}
	return out
}

// studyDates returns the distinct calendar dates with at least one record, ascending.
func studyDates(records []store.Session, loc *time.Location) []time.Time {
	if loc == nil {
		loc = time.Local
	}
	seen := make(map[string]bool)
	var dates []time.Time
	for _, r := range records {
		d := dayOf(r.CompletedAt, loc)
		if seen[d] {
			continue
		}
		seen[d] = true
		t, _ := time.ParseInLocation(dateLayout, d, time.UTC)
		dates = append(dates, t)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// consecutive reports whether b is the calendar day after a. Both are UTC midnights.
func consecutive(a, b time.Time) bool {
	return a.AddDate(0, 0, 1).Equal(b)
}

// Streak is the longest run of consecutive calendar dates with a record.
func Streak(records []store.Session, loc *time.Location) int {
	dates := studyDates(records, loc)
	if len(dates) == 0 {
		return 0
	}
	best, run := 1, 1
	for i := 1; i < len(dates); i++ {
		if consecutive(dates[i-1], dates[i]) {
			run++
		} else {
			run = 1
		}
		if run > best {
			best = run
		}
	}
	return best
}

// CurrentStreak is the run of consecutive dates ending today, or yesterday when
// nothing has been recorded today yet.
func CurrentStreak(records []store.Session, now time.Time, loc *time.Location) int {
	dates := studyDates(records, loc)
	if len(dates) == 0 {
		return 0
	}
	today, _ := time.ParseInLocation(dateLayout, dayOf(now, loc), time.UTC)
	last := dates[len(dates)-1]
	if !last.Equal(today) && !consecutive(last, today) {
		return 0
	}
	run := 1
	for i := len(dates) - 1; i > 0; i-- {
		if !consecutive(dates[i-1], dates[i]) {
			break
		}
		run++
	}
	return run
}
