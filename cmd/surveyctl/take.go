package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ShashankAtmakur/survey-management-system/internal/capture"
	"github.com/ShashankAtmakur/survey-management-system/internal/client"
	"github.com/ShashankAtmakur/survey-management-system/internal/model"
	"github.com/ShashankAtmakur/survey-management-system/internal/question"
)

var takeCmd = &cobra.Command{
	Use:   "take <survey-id>",
	Short: "Answer a survey interactively",
	Long: `Prompts for each question in order and submits the answers.

Audio questions are recorded with --mic (ffmpeg on the default input) or
answered from a recorded file with --audio-file. Without either they can
only be skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		audioFile, _ := cmd.Flags().GetString("audio-file")
		useMic, _ := cmd.Flags().GetBool("mic")

		var device capture.Device
		switch {
		case audioFile != "":
			device = capture.FileDevice{Path: audioFile}
		case useMic:
			device = capture.DefaultFFmpegDevice()
		}

		c, err := newClient(false)
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		survey, err := c.GetSurvey(ctx, args[0])
		cancel()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s\n", survey.Title)
		if survey.Description != "" {
			fmt.Fprintf(out, "%s\n", survey.Description)
		}
		answers, err := takeSurvey(cmd.Context(), cmd.InOrStdin(), out, survey, device)
		if err != nil {
			return err
		}

		ctx, cancel = commandContext(cmd)
		defer cancel()
		record, err := c.SubmitResponse(ctx, survey.ID, answers)
		if err != nil {
			var apiErr *client.APIError
			if errors.As(err, &apiErr) {
				for _, f := range apiErr.Fields {
					fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %s\n", f.Question, f.Error)
				}
			}
			return err
		}
		fmt.Fprintf(out, "\nThank you! Response %s recorded.\n", record.ID)
		return nil
	},
}

func init() {
	takeCmd.Flags().String("audio-file", "", "Answer audio questions with this recording")
	takeCmd.Flags().Bool("mic", false, "Record audio questions from the microphone with ffmpeg")
}

// errRetry marks input the respondent should re-enter.
var errRetry = errors.New("invalid input")

// takeSurvey prompts for every question of survey and returns the answers.
// Input that fails collection or validation is asked for again. A nil
// device leaves audio questions unanswered.
func takeSurvey(ctx context.Context, in io.Reader, out io.Writer, survey *model.Survey, device capture.Device) (model.Answers, error) {
	t := &taker{
		ctx:     ctx,
		scanner: bufio.NewScanner(in),
		out:     out,
	}
	if device != nil {
		t.recorder = capture.NewRecorder(device)
		defer t.recorder.Reset()
	}

	answers := make(model.Answers, len(survey.Questions))
	for i, q := range survey.Questions {
		mark := ""
		if q.Required {
			mark = " *"
		}
		fmt.Fprintf(out, "\n[%d/%d] %s%s\n", i+1, len(survey.Questions), q.Text, mark)

		value, err := t.ask(q)
		if err != nil {
			return nil, err
		}
		if !value.IsBlank() {
			answers[q.Text] = value
		}
	}
	return answers, nil
}

type taker struct {
	ctx      context.Context
	scanner  *bufio.Scanner
	out      io.Writer
	recorder *capture.Recorder
}

func (t *taker) ask(q model.Question) (model.AnswerValue, error) {
	if t.recorder != nil {
		// a new question discards any capture left open by the previous one
		defer t.recorder.Reset()
	}
	for {
		p := &prompter{taker: t}
		err := question.KindOf(q).Accept(p)
		if errors.Is(err, errRetry) {
			fmt.Fprintf(t.out, "  %v\n", err)
			continue
		}
		if err != nil {
			return "", err
		}

		value, err := question.Collect(q, p.input)
		if err == nil {
			err = question.Validate(q, value)
		}
		if err != nil {
			fmt.Fprintf(t.out, "  %v\n", err)
			continue
		}
		return value, nil
	}
}

func (t *taker) readLine(prompt string) (string, error) {
	if err := t.ctx.Err(); err != nil {
		return "", err
	}
	fmt.Fprint(t.out, prompt)
	if !t.scanner.Scan() {
		if err := t.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.ErrUnexpectedEOF
	}
	return strings.TrimSpace(t.scanner.Text()), nil
}

// prompter reads the raw input of one question kind.
type prompter struct {
	*taker
	input question.Input
}

func (p *prompter) VisitText(question.Text) error {
	line, err := p.readLine("> ")
	p.input.Value = line
	return err
}

func (p *prompter) VisitNumber(question.Number) error {
	line, err := p.readLine("number> ")
	p.input.Value = line
	return err
}

func (p *prompter) VisitMultipleChoice(k question.MultipleChoice) error {
	for i, opt := range k.Options {
		fmt.Fprintf(p.out, "  %d) %s\n", i+1, opt)
	}
	line, err := p.readLine("choice> ")
	if err != nil {
		return err
	}
	if n, err := strconv.Atoi(line); err == nil {
		if n < 1 || n > len(k.Options) {
			return fmt.Errorf("%w: pick 1 to %d", errRetry, len(k.Options))
		}
		line = k.Options[n-1]
	}
	p.input.Value = line
	return nil
}

func (p *prompter) VisitRating(k question.Rating) error {
	line, err := p.readLine(fmt.Sprintf("rating %d-%d> ", k.Min, k.Max))
	if err != nil || line == "" {
		return err
	}
	score, err := strconv.Atoi(line)
	if err != nil {
		return fmt.Errorf("%w: enter a whole number", errRetry)
	}
	p.input.Score = score
	return nil
}

func (p *prompter) VisitYesNo(question.YesNo) error {
	line, err := p.readLine("y/n> ")
	if err != nil {
		return err
	}
	switch strings.ToLower(line) {
	case "y", "yes":
		line = "Yes"
	case "n", "no":
		line = "No"
	}
	p.input.Value = line
	return nil
}

func (p *prompter) VisitAudio(question.Audio) error {
	if p.recorder == nil {
		fmt.Fprintln(p.out, "  audio capture is off (use --mic or --audio-file)")
		_, err := p.readLine("press Enter to skip> ")
		return err
	}

	line, err := p.readLine("press Enter to record, s to skip> ")
	if err != nil || strings.EqualFold(line, "s") {
		return err
	}
	session, err := p.recorder.Start(p.ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", errRetry, err)
	}
	if _, err := p.readLine("recording, press Enter to stop> "); err != nil {
		return err
	}
	rec, err := session.Stop()
	if err != nil {
		return fmt.Errorf("%w: %v", errRetry, err)
	}
	if rec.Empty() {
		fmt.Fprintln(p.out, "  nothing was recorded")
		return nil
	}
	fmt.Fprintf(p.out, "  recorded %d bytes of %s\n", len(rec.Data), rec.MIME)
	p.input.Audio = &rec
	return nil
}
