// Package cli implements salahctl, an operator tool that drives the prayer
// core directly against the configured backend.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Nixie-Tech-LLC/salah/internal/app"
	"github.com/Nixie-Tech-LLC/salah/internal/config"
)

// Opener builds the application from configuration.
type Opener func(cfg *config.Config) (*app.App, error)

// session is shared by every subcommand of one invocation.
type session struct {
	open    Opener
	now     func() time.Time
	cfg     *config.Config
	app     *app.App
	logFile io.Closer
	jsonOut bool
}

// NewRootCmd creates the root command for salahctl.
// The version parameter is set by the calling binary via ldflags.
func NewRootCmd(version string) *cobra.Command {
	return newRootCmd(version, app.New, time.Now)
}

func newRootCmd(version string, open Opener, now func() time.Time) *cobra.Command {
	s := &session{open: open, now: now}

	rootCmd := &cobra.Command{
		Use:     "salahctl",
		Short:   "Inspect and record daily prayers",
		Long:    "salahctl reads and records prayer state for a user against the configured database.",
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(); err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			s.cfg = cfg
			s.logFile = app.SetupLogger(cfg)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			s.close()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVar(&s.jsonOut, "json", false, "Output as JSON")

	rootCmd.AddCommand(newMigrateCmd(s))
	rootCmd.AddCommand(newUserCmd(s))
	rootCmd.AddCommand(newDayCmd(s))
	rootCmd.AddCommand(newMarkCmd(s, markComplete))
	rootCmd.AddCommand(newMarkCmd(s, markQada))
	rootCmd.AddCommand(newStreakCmd(s))
	rootCmd.AddCommand(newCompletionsCmd(s))

	return rootCmd
}

// App opens the application on first use.
func (s *session) App() (*app.App, error) {
	if s.app != nil {
		return s.app, nil
	}
	a, err := s.open(s.cfg)
	if err != nil {
		return nil, err
	}
	s.app = a
	return a, nil
}

func (s *session) close() {
	if s.app != nil {
		s.app.Close()
		s.app = nil
	}
	if s.logFile != nil {
		s.logFile.Close()
		s.logFile = nil
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
