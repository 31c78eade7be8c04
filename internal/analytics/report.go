package analytics

import (
	"time"

	"github.com/sadopc/studylog/internal/store"
)

// Report bundles every analytics view. It is the body of GET /api/analytics and the
// data behind the stats command.
type Report struct {
	Summary       Stats          `json:"summary"`
	Today         Stats          `json:"today"`
	Daily         []DailyBucket  `json:"daily"`
	Topics        []TopicHours   `json:"topics"`
	Subjects      []SubjectHours `json:"subjects"`
	LongestStreak int            `json:"longestStreak"`
	CurrentStreak int            `json:"currentStreak"`
}

func BuildReport(sessions []store.Session, subjects []store.Subject, days, top int, now time.Time, loc *time.Location) Report {
	return Report{
		Summary:       Summary(sessions),
		Today:         Today(sessions, now, loc),
		Daily:         DailyBuckets(sessions, days, now, loc),
		Topics:        TopicRanking(sessions, top),
		Subjects:      SubjectTotals(sessions, subjects),
		LongestStreak: Streak(sessions, loc),
		CurrentStreak: CurrentStreak(sessions, now, loc),
	}
}
