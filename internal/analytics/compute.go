// Package analytics aggregates survey responses into per-question statistics.
package analytics

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ShashankAtmakur/survey-management-system/internal/model"
	"github.com/ShashankAtmakur/survey-management-system/internal/question"
)

const (
	NoResponses    = model.Notice("No responses")
	NoValidRatings = model.Notice("No valid ratings")

	// SampleSize bounds the text samples kept per question
	SampleSize = 3
)

// Compute builds the analytics view of survey s over records. It performs no I/O.
func Compute(s *model.Survey, records []*model.ResponseRecord) model.AnalyticsResult {
	result := model.AnalyticsResult{
		SurveyID:       s.ID,
		Title:          s.Title,
		TotalResponses: len(records),
		Analytics:      make(map[string]model.QuestionAnalytics, len(s.Questions)),
		QuestionOrder:  make([]string, 0, len(s.Questions)),
		GeneratedAt:    time.Now().UTC(),
	}

	for _, q := range s.Questions {
		answers := answersFor(q.Text, records)
		qa := model.QuestionAnalytics{
			Type:          q.Type,
			ResponseCount: len(answers),
			Data:          NoResponses,
		}
		if len(answers) > 0 {
			qa.Data = aggregate(question.KindOf(q), answers)
		}
		if _, seen := result.Analytics[q.Text]; !seen {
			result.QuestionOrder = append(result.QuestionOrder, q.Text)
		}
		result.Analytics[q.Text] = qa
	}
	return result
}

// answersFor returns the trimmed non-blank answers to text in record order.
func answersFor(text string, records []*model.ResponseRecord) []string {
	var out []string
	for _, r := range records {
		if r == nil || !r.Answered(text) {
			continue
		}
		out = append(out, strings.TrimSpace(r.Responses[text].String()))
	}
	return out
}

// aggregate dispatches answers to the aggregator for k. A failed visit is
// reported as a notice so one question cannot blank the whole result.
func aggregate(k question.Kind, answers []string) model.AnalyticsData {
	a := &aggregator{answers: answers}
	if err := k.Accept(a); err != nil {
		return model.Notice(fmt.Sprintf("Analytics unavailable: %v", err))
	}
	if a.out == nil {
		return NoResponses
	}
	return a.out
}

// aggregator computes the data payload for one question with at least one answer.
type aggregator struct {
	answers []string
	out     model.AnalyticsData
}

func (a *aggregator) VisitRating(k question.Rating) error {
	a.out = ratingStats(a.answers, k.Max)
	return nil
}

func (a *aggregator) VisitMultipleChoice(k question.MultipleChoice) error {
	a.out = choiceStats(a.answers, k.Options)
	return nil
}

func (a *aggregator) VisitText(question.Text) error {
	a.out = textSummary(a.answers)
	return nil
}

func (a *aggregator) VisitNumber(k question.Number) error {
	a.out = notComputed(len(a.answers), k.Type())
	return nil
}

func (a *aggregator) VisitYesNo(k question.YesNo) error {
	a.out = notComputed(len(a.answers), k.Type())
	return nil
}

func (a *aggregator) VisitAudio(k question.Audio) error {
	a.out = notComputed(len(a.answers), k.Type())
	return nil
}

func notComputed(n int, t model.QuestionType) model.Notice {
	return model.Notice(fmt.Sprintf("%d answers; aggregation not computed for %s", n, t))
}

func ratingStats(answers []string, scaleMax int) model.AnalyticsData {
	values := make([]float64, 0, len(answers))
	dist := make(map[string]int)
	for _, ans := range answers {
		v, err := strconv.ParseFloat(ans, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		values = append(values, v)
		dist[strconv.FormatFloat(v, 'f', -1, 64)]++
	}
	if len(values) == 0 {
		return NoValidRatings
	}

	slices.Sort(values)
	var sum float64
	for _, v := range values {
		sum += v
	}

	n := len(values)
	median := values[n/2]
	if n%2 == 0 {
		median = (values[n/2-1] + values[n/2]) / 2
	}

	return model.RatingStats{
		Average:        round2(sum / float64(n)),
		Median:         round2(median),
		Min:            values[0],
		Max:            values[n-1],
		Distribution:   dist,
		ValidResponses: n,
		ScaleMax:       scaleMax,
	}
}

func choiceStats(answers []string, configured []string) model.ChoiceStats {
	stats := model.ChoiceStats{
		Options:       append([]string{}, configured...),
		Responses:     make(map[string]int, len(configured)),
		Percentages:   make(map[string]int, len(configured)),
		TotalAnswered: len(answers),
	}
	for _, opt := range configured {
		stats.Responses[opt] = 0
	}
	for _, ans := range answers {
		if _, known := stats.Responses[ans]; !known {
			stats.Options = append(stats.Options, ans)
		}
		stats.Responses[ans]++
	}

	for _, opt := range stats.Options {
		count := stats.Responses[opt]
		stats.Percentages[opt] = int(math.Round(100 * float64(count) / float64(len(answers))))
		if count > 0 && (stats.MostCommon == nil || count > stats.MostCommon.Count) {
			stats.MostCommon = &model.ChoiceCount{Option: opt, Count: count}
		}
	}
	return stats
}

func textSummary(answers []string) model.TextSummary {
	sum := model.TextSummary{
		TotalResponses:   len(answers),
		SampleResponses:  append([]string{}, answers[:min(SampleSize, len(answers))]...),
		LongestResponse:  answers[0],
		ShortestResponse: answers[0],
	}
	words := 0
	for _, ans := range answers {
		words += len(strings.Fields(ans))
		n := utf8.RuneCountInString(ans)
		if n > utf8.RuneCountInString(sum.LongestResponse) {
			sum.LongestResponse = ans
		}
		if n < utf8.RuneCountInString(sum.ShortestResponse) {
			sum.ShortestResponse = ans
		}
	}
	sum.AverageWordCount = round2(float64(words) / float64(len(answers)))
	return sum
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
