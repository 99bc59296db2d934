package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ShashankAtmakur/survey-management-system/internal/model"
)

var loginCmd = &cobra.Command{
	Use:   "login <username>",
	Short: "Log in as the survey owner and save the token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, _ := cmd.Flags().GetString("password")
		if password == "" {
			password = os.Getenv("SURVEYCTL_PASSWORD")
		}
		c, err := newClient(false)
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()

		resp, err := c.Login(ctx, args[0], password)
		if err != nil {
			return err
		}
		path, err := saveToken(resp.Token)
		if err != nil {
			return fmt.Errorf("save token: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s, token saved to %s\n", resp.OwnerID, path)
		return nil
	},
}

var surveysCmd = &cobra.Command{
	Use:   "surveys",
	Short: "List and inspect surveys",
}

var surveysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your surveys, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(true)
		if err != nil {
			return err
		}
		activeOnly, _ := cmd.Flags().GetBool("active")
		ctx, cancel := commandContext(cmd)
		defer cancel()

		surveys, err := c.ListSurveys(ctx, 0, 0, activeOnly)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTITLE\tQUESTIONS\tACTIVE\tCREATED")
		for _, s := range surveys {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%t\t%s\n", s.ID, s.Title, len(s.Questions), s.IsActive, s.CreatedAt.Format("2006-01-02 15:04"))
		}
		return tw.Flush()
	},
}

var surveysGetCmd = &cobra.Command{
	Use:   "get <survey-id>",
	Short: "Print a survey as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(false)
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()

		survey, err := c.GetSurvey(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), survey)
	},
}

var responsesCmd = &cobra.Command{
	Use:   "responses",
	Short: "Review and export responses",
}

var responsesListCmd = &cobra.Command{
	Use:   "list <survey-id>",
	Short: "Print the response table of a survey",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(true)
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()

		table, err := c.ExportTable(ctx, args[0])
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for i, col := range table.Columns {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, col.Header)
		}
		fmt.Fprintln(tw)
		for _, row := range table.Rows {
			for i, col := range table.Columns {
				if i > 0 {
					fmt.Fprint(tw, "\t")
				}
				fmt.Fprint(tw, strconv.Quote(row[col.Field]))
			}
			fmt.Fprintln(tw)
		}
		return tw.Flush()
	},
}

var responsesExportCmd = &cobra.Command{
	Use:   "export <survey-id>",
	Short: "Download responses as CSV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(true)
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()

		out, _ := cmd.Flags().GetString("output")
		var w io.Writer = cmd.OutOrStdout()
		if out != "" && out != "-" {
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}
		if err := c.ExportCSV(ctx, args[0], w); err != nil {
			return err
		}
		if f, ok := w.(*os.File); ok && f != os.Stdout {
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported responses to %s\n", out)
			return f.Sync()
		}
		return nil
	},
}

var analyticsCmd = &cobra.Command{
	Use:   "analytics <survey-id>",
	Short: "Print aggregate analytics of a survey",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(true)
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()

		result, err := c.Analytics(ctx, args[0])
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(cmd.OutOrStdout(), result)
		}
		printAnalytics(cmd.OutOrStdout(), result)
		return nil
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Draft survey questions from a prompt",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient(true)
		if err != nil {
			return err
		}
		prompt, _ := cmd.Flags().GetString("prompt")
		count, _ := cmd.Flags().GetInt("count")
		ctx, cancel := commandContext(cmd)
		defer cancel()

		resp, err := c.GenerateQuestions(ctx, prompt, count)
		if err != nil {
			return err
		}
		if !resp.Success {
			fmt.Fprintf(cmd.ErrOrStderr(), "generation failed: %s\n", resp.Error)
		}
		return printJSON(cmd.OutOrStdout(), resp.Questions)
	},
}

func init() {
	loginCmd.Flags().String("password", "", "Owner password (or set SURVEYCTL_PASSWORD)")
	surveysListCmd.Flags().Bool("active", false, "Only list active surveys")
	responsesExportCmd.Flags().StringP("output", "o", "", "Output file (default stdout)")
	analyticsCmd.Flags().Bool("json", false, "Print the raw analytics JSON")
	generateCmd.Flags().String("prompt", "", "What the survey is about")
	generateCmd.Flags().Int("count", 5, "Number of questions")
	generateCmd.MarkFlagRequired("prompt")
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printAnalytics(w io.Writer, r *model.AnalyticsResult) {
	fmt.Fprintf(w, "%s: %d responses\n", r.Title, r.TotalResponses)
	for _, text := range r.QuestionOrder {
		qa := r.Analytics[text]
		fmt.Fprintf(w, "\n%s (%s, %d answers)\n", text, qa.Type, qa.ResponseCount)
		switch d := qa.Data.(type) {
		case model.RatingStats:
			fmt.Fprintf(w, "  average %.2f  median %.2f  min %g  max %g  (scale 1-%d)\n", d.Average, d.Median, d.Min, d.Max, d.ScaleMax)
		case model.ChoiceStats:
			for _, opt := range d.Options {
				fmt.Fprintf(w, "  %-20s %4d  %3d%%\n", opt, d.Responses[opt], d.Percentages[opt])
			}
		case model.TextSummary:
			fmt.Fprintf(w, "  average %.0f words\n", d.AverageWordCount)
			for _, s := range d.SampleResponses {
				fmt.Fprintf(w, "  - %s\n", s)
			}
		case model.Notice:
			fmt.Fprintf(w, "  %s\n", string(d))
		}
	}
}
