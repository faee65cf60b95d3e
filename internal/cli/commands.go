package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Nixie-Tech-LLC/salah/internal/app"
	"github.com/Nixie-Tech-LLC/salah/internal/db"
	"github.com/Nixie-Tech-LLC/salah/internal/http/middleware"
	"github.com/Nixie-Tech-LLC/salah/internal/model"
	"github.com/Nixie-Tech-LLC/salah/internal/prayer"
)

const clockFormat = "15:04"

func newMigrateCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if s.cfg.DatabaseDriver == db.DriverMemory {
				return errors.New("migrate needs a SQL database, DATABASE_DRIVER is memory")
			}
			// opening the app applies every *.up.sql in order
			if _, err := s.App(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s migrations from %s applied\n", color.GreenString("✓"), s.cfg.MigrationsPath)
			return nil
		},
	}
}

func newUserCmd(s *session) *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage local user records",
	}

	var (
		id, email, timezone string
		latitude, longitude float64
	)
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Create a user so prayers can be tracked for it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := time.LoadLocation(timezone); err != nil {
				return fmt.Errorf("invalid timezone %q: %w", timezone, err)
			}
			a, err := s.App()
			if err != nil {
				return err
			}

			u := &model.User{
				ID:        id,
				Email:     email,
				Timezone:  timezone,
				CreatedAt: s.now().UTC().Truncate(time.Second),
			}
			if u.ID == "" {
				u.ID = uuid.NewString()
			}
			flags := cmd.Flags()
			if flags.Changed("latitude") != flags.Changed("longitude") {
				return errors.New("--latitude and --longitude must be given together")
			}
			if flags.Changed("latitude") {
				u.Latitude, u.Longitude = &latitude, &longitude
			}

			if err := a.Store.CreateUser(cmd.Context(), u); err != nil {
				return err
			}
			if s.jsonOut {
				return writeJSON(cmd.OutOrStdout(), u)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s user %s created\n", color.GreenString("✓"), u.ID)
			return nil
		},
	}
	addCmd.Flags().StringVar(&id, "id", "", "User id (default: a new uuid)")
	addCmd.Flags().StringVar(&email, "email", "", "Email address")
	addCmd.Flags().StringVar(&timezone, "timezone", "UTC", "IANA timezone, e.g. Asia/Kolkata")
	addCmd.Flags().Float64Var(&latitude, "latitude", 0, "Latitude used for prayer times")
	addCmd.Flags().Float64Var(&longitude, "longitude", 0, "Longitude used for prayer times")
	_ = addCmd.MarkFlagRequired("email")

	var (
		tokenUser string
		ttl       time.Duration
	)
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for an existing user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.cfg.RequireJWT(); err != nil {
				return err
			}
			a, err := s.App()
			if err != nil {
				return err
			}
			if _, err := a.Store.GetUserByID(cmd.Context(), tokenUser); err != nil {
				return err
			}
			token, err := middleware.GenerateJWT(tokenUser, s.cfg.JWTSecret, ttl)
			if err != nil {
				return fmt.Errorf("sign token: %w", err)
			}
			if s.jsonOut {
				return writeJSON(cmd.OutOrStdout(), tokenOutput{UserID: tokenUser, Token: token})
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "User id")
	tokenCmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	_ = tokenCmd.MarkFlagRequired("user")

	userCmd.AddCommand(addCmd)
	userCmd.AddCommand(tokenCmd)
	return userCmd
}

type tokenOutput struct {
	UserID string `json:"user_id"`
	Token  string `json:"token"`
}

func newDayCmd(s *session) *cobra.Command {
	var userID, date string
	cmd := &cobra.Command{
		Use:   "day",
		Short: "Show the five prayers of a day and their state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.App()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			now := s.now()

			tc, err := timeContext(ctx, a, userID)
			if err != nil {
				return err
			}
			d, err := resolveDate(date, now, tc)
			if err != nil {
				return err
			}

			day, err := a.Assembler.GetDayStatus(ctx, userID, d, now)
			if err != nil {
				return err
			}
			if s.jsonOut {
				return writeJSON(cmd.OutOrStdout(), day)
			}
			summary, err := a.Assembler.Summarize(ctx, userID, d, now)
			if err != nil {
				return err
			}
			return printDay(cmd.OutOrStdout(), day, summary, tc.Location)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User id")
	cmd.Flags().StringVar(&date, "date", "", "Civil date YYYY-MM-DD (default: today in the user's timezone)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

type markKind int

const (
	markComplete markKind = iota
	markQada
)

func newMarkCmd(s *session, kind markKind) *cobra.Command {
	var userID, instanceID, notes string

	use, short := "complete", "Record a pending prayer as prayed on time"
	if kind == markQada {
		use, short = "qada", "Record a missed prayer as made up"
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.App()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			mark := a.Assembler.Complete
			if kind == markQada {
				mark = a.Assembler.MarkQada
			}
			var note *string
			if cmd.Flags().Changed("notes") {
				note = &notes
			}

			rec, err := mark(ctx, userID, instanceID, s.now(), note)
			if prayer.IsConflict(err) {
				fmt.Fprintf(out, "%s prayer %s is already recorded\n", color.YellowString("!"), instanceID)
				return nil
			}
			if err != nil {
				return err
			}
			if s.jsonOut {
				return writeJSON(out, rec)
			}

			inst, err := a.Store.GetInstance(ctx, rec.PrayerInstanceID)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s %s on %s recorded as %s\n",
				color.GreenString("✓"), inst.PrayerType.Title(), inst.CivilDate, rec.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User id")
	cmd.Flags().StringVar(&instanceID, "instance", "", "Prayer instance id, as shown by the day command")
	cmd.Flags().StringVar(&notes, "notes", "", "Optional note stored with the record")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("instance")
	return cmd
}

type streakOutput struct {
	CurrentStreak int       `json:"current_streak"`
	LastUpdated   time.Time `json:"last_updated"`
}

func newStreakCmd(s *session) *cobra.Command {
	var (
		userID  string
		maxDays int
	)
	cmd := &cobra.Command{
		Use:   "streak",
		Short: "Count consecutive days with all five prayers recorded",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := s.App()
			if err != nil {
				return err
			}
			now := s.now()
			n, err := a.Assembler.Streak(cmd.Context(), userID, now, maxDays)
			if err != nil {
				return err
			}
			if s.jsonOut {
				return writeJSON(cmd.OutOrStdout(), streakOutput{CurrentStreak: n, LastUpdated: now.UTC()})
			}

			label := color.New(color.FgHiBlack).Sprint("no streak")
			if n > 0 {
				label = color.New(color.FgHiGreen).Sprintf("%d day streak", n)
			}
			fmt.Fprintln(cmd.OutOrStdout(), label)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User id")
	cmd.Flags().IntVar(&maxDays, "max-days", prayer.DefaultStreakDays, "Number of days to look back")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newCompletionsCmd(s *session) *cobra.Command {
	var userID, from, to, only string
	cmd := &cobra.Command{
		Use:   "completions",
		Short: "List recorded prayers in a date range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fromDate, err := model.ParseCivilDate(from)
			if err != nil {
				return err
			}
			toDate, err := model.ParseCivilDate(to)
			if err != nil {
				return err
			}
			var filter *model.PrayerType
			if only != "" {
				p, err := model.ParsePrayerType(only)
				if err != nil {
					return err
				}
				filter = &p
			}

			a, err := s.App()
			if err != nil {
				return err
			}
			entries, err := a.Assembler.ListCompletions(cmd.Context(), userID, fromDate, toDate)
			if err != nil {
				return err
			}
			if filter != nil {
				kept := entries[:0]
				for _, e := range entries {
					if e.Instance.PrayerType == *filter {
						kept = append(kept, e)
					}
				}
				entries = kept
			}

			if s.jsonOut {
				return writeJSON(cmd.OutOrStdout(), entries)
			}
			return printCompletions(cmd.OutOrStdout(), entries)
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "User id")
	cmd.Flags().StringVar(&from, "from", "", "First civil date, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "Last civil date, YYYY-MM-DD")
	cmd.Flags().StringVar(&only, "prayer", "", "Only show one prayer (fajr, dhuhr, asr, maghrib, isha)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func timeContext(ctx context.Context, a *app.App, userID string) (*model.UserTimeContext, error) {
	u, err := a.Store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.TimeContext()
}

// resolveDate parses raw, or returns today in the user's zone when raw is empty.
func resolveDate(raw string, now time.Time, tc *model.UserTimeContext) (model.CivilDate, error) {
	if raw == "" {
		return model.CivilDateOf(now, tc.Location), nil
	}
	return model.ParseCivilDate(raw)
}

func statusLabel(s model.PrayerStatus) string {
	switch s {
	case model.StatusCompleted:
		return color.New(color.FgHiGreen).Sprint(s)
	case model.StatusQada:
		return color.New(color.FgCyan).Sprint(s)
	case model.StatusPending:
		return color.New(color.FgYellow).Sprint(s)
	case model.StatusMissed:
		return color.New(color.FgRed).Sprint(s)
	default:
		return color.New(color.FgHiBlack).Sprint(s)
	}
}

func printDay(w io.Writer, day *model.DayStatus, summary *model.DaySummary, loc *time.Location) error {
	fmt.Fprintf(w, "%s (%s)\n\n", day.Date, day.Timezone)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PRAYER\tWINDOW\tINSTANCE\tSTATUS")
	for _, p := range day.Prayers {
		window := p.WindowStart.In(loc).Format(clockFormat) + "-" + p.WindowEnd.In(loc).Format(clockFormat)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.PrayerType.Title(), window, p.InstanceID, statusLabel(p.Status))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	counts := []string{
		fmt.Sprintf("%d completed", summary.Completed),
		fmt.Sprintf("%d qada", summary.Qada),
		fmt.Sprintf("%d missed", summary.Missed),
		fmt.Sprintf("%d pending", summary.Pending),
		fmt.Sprintf("%d future", summary.Future),
	}
	_, err := fmt.Fprintf(w, "\n%s\n", strings.Join(counts, ", "))
	return err
}

func printCompletions(w io.Writer, entries []model.CompletionEntry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "no prayers recorded in range")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tPRAYER\tMARKED AT\tSTATUS")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			e.Instance.CivilDate, e.Instance.PrayerType.Title(), e.Record.MarkedAt.UTC().Format(time.RFC3339), e.Record.Status)
	}
	return tw.Flush()
}
