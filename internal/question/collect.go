package question

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/ShashankAtmakur/survey-management-system/internal/capture"
	"github.com/ShashankAtmakur/survey-management-system/internal/model"
)

// Input is raw captured input for one question. Value carries text, number
// and selected options; Score carries ratings; Audio carries a finished
// recording.
type Input struct {
	Value string
	Score int
	Audio *capture.Recording
}

// Collect turns raw input into the stored answer value for q.
func Collect(q model.Question, in Input) (model.AnswerValue, error) {
	c := &collector{in: in}
	if err := KindOf(q).Accept(c); err != nil {
		return "", &FieldError{Question: q.Text, Err: err}
	}
	return c.out, nil
}

type collector struct {
	in  Input
	out model.AnswerValue
}

func (c *collector) VisitText(Text) error {
	c.out = model.AnswerValue(c.in.Value)
	return nil
}

func (c *collector) VisitNumber(Number) error {
	c.out = model.AnswerValue(c.in.Value)
	return nil
}

func (c *collector) VisitMultipleChoice(k MultipleChoice) error {
	return c.choose(k.Options)
}

func (c *collector) VisitYesNo(YesNo) error {
	return c.choose(YesNoOptions)
}

func (c *collector) choose(options []string) error {
	v := strings.TrimSpace(c.in.Value)
	if v == "" {
		return nil
	}
	if !slices.Contains(options, v) {
		return fmt.Errorf("%w: %q", ErrUnknownOption, v)
	}
	c.out = model.AnswerValue(v)
	return nil
}

func (c *collector) VisitRating(k Rating) error {
	if c.in.Score == 0 {
		return nil
	}
	if c.in.Score < k.Min || c.in.Score > k.Max {
		return fmt.Errorf("%w: %d not in %d..%d", ErrScoreOutOfRange, c.in.Score, k.Min, k.Max)
	}
	c.out = model.AnswerValue(strconv.Itoa(c.in.Score))
	return nil
}

func (c *collector) VisitAudio(Audio) error {
	if c.in.Audio != nil {
		c.out = model.AnswerValue(c.in.Audio.DataURL())
	}
	return nil
}
