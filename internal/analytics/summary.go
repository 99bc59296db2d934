package analytics

import (
	"time"

	"github.com/ShashankAtmakur/survey-management-system/internal/model"
)

// RecentWindow is the lookback of SurveySummary.RecentResponses7d
const RecentWindow = 7 * 24 * time.Hour

// Summary builds the dashboard summary of s. A record is complete when it
// answers every required question; with no records the rate is 100.
func Summary(s *model.Survey, records []*model.ResponseRecord, now time.Time) model.SurveySummary {
	sum := model.SurveySummary{
		SurveyID:       s.ID,
		Title:          s.Title,
		TotalQuestions: len(s.Questions),
		TotalResponses: len(records),
		CompletionRate: 100,
		CreatedAt:      s.CreatedAt,
		IsActive:       s.IsActive,
	}
	if len(records) == 0 {
		return sum
	}

	cutoff := now.Add(-RecentWindow)
	complete := 0
	for _, r := range records {
		if !r.SubmittedAt.Before(cutoff) {
			sum.RecentResponses7d++
		}
		if isComplete(s, r) {
			complete++
		}
	}
	sum.CompletionRate = round2(100 * float64(complete) / float64(len(records)))
	return sum
}

func isComplete(s *model.Survey, r *model.ResponseRecord) bool {
	for _, q := range s.Questions {
		if q.Required && !r.Answered(q.Text) {
			return false
		}
	}
	return true
}
