package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ShashankAtmakur/survey-management-system/internal/client"
)

var (
	cfg     = viper.New()
	timeout time.Duration
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "surveyctl",
	Short: "Author, take and review surveys from the terminal",
	Long: `surveyctl talks to the survey service REST API.

Respondents can take a survey without logging in. Owner commands need a
token from 'surveyctl login', read from --token, SURVEYCTL_TOKEN or the
saved token file.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("server", "http://localhost:8080", "Survey service base URL (or set SURVEYCTL_SERVER)")
	rootCmd.PersistentFlags().String("token", "", "Owner token (or set SURVEYCTL_TOKEN)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Per-command timeout")
	cfg.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server"))
	cfg.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))
	cfg.SetEnvPrefix("SURVEYCTL")
	cfg.AutomaticEnv()

	surveysCmd.AddCommand(surveysListCmd)
	surveysCmd.AddCommand(surveysGetCmd)
	responsesCmd.AddCommand(responsesListCmd)
	responsesCmd.AddCommand(responsesExportCmd)

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(surveysCmd)
	rootCmd.AddCommand(takeCmd)
	rootCmd.AddCommand(responsesCmd)
	rootCmd.AddCommand(analyticsCmd)
	rootCmd.AddCommand(generateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, client.ErrUnavailable) {
			fmt.Fprintln(os.Stderr, "The survey service could not be reached. Check --server and try again.")
		}
		os.Exit(1)
	}
}

// commandContext bounds a command by --timeout
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), timeout)
}

func tokenFile() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "surveyctl", "token"), nil
}

func saveToken(token string) (string, error) {
	path, err := tokenFile()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", err
	}
	return path, os.WriteFile(path, []byte(token+"\n"), 0o600)
}

// newClient returns an API client; owner commands also load the token.
func newClient(owner bool) (*client.Client, error) {
	c := client.New(cfg.GetString("server"))
	if !owner {
		return c, nil
	}
	token := cfg.GetString("token")
	if token == "" {
		if path, err := tokenFile(); err == nil {
			if data, err := os.ReadFile(path); err == nil {
				token = strings.TrimSpace(string(data))
			}
		}
	}
	if token == "" {
		return nil, errors.New("not logged in: run 'surveyctl login' or pass --token")
	}
	c.SetToken(token)
	return c, nil
}
