package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/comitanigiacomo/kanso-reminders/internal/adapters/database"
	"github.com/comitanigiacomo/kanso-reminders/internal/adapters/repository"
	"github.com/comitanigiacomo/kanso-reminders/internal/config"
	"github.com/comitanigiacomo/kanso-reminders/internal/core/domain"
)

// Context is handed to every command's Run method.
type Context struct {
	Env    string
	Log    zerolog.Logger
	Out    io.Writer
	Config func(files ...string) (*config.Config, error)
}

func (c *Context) openDB(ctx context.Context) (*sqlx.DB, error) {
	cfg, err := c.Config(c.Env)
	if err != nil {
		return nil, err
	}
	return database.Open(ctx, cfg.DB.DSN())
}

type MigrateCmd struct{}

func (cmd *MigrateCmd) Run(c *Context) error {
	ctx := context.Background()
	db, err := c.openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	applied, err := database.Migrate(ctx, db.DB, c.Log)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		fmt.Fprintln(c.Out, "database is up to date")
		return nil
	}
	fmt.Fprintf(c.Out, "applied migrations %v\n", applied)
	return nil
}

type SeedWeekdaysCmd struct{}

func (cmd *SeedWeekdaysCmd) Run(c *Context) error {
	ctx := context.Background()
	db, err := c.openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := database.SeedWeekDays(ctx, db.DB)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.Out, "inserted %d week days\n", n)
	return nil
}

type JobsCmd struct{}

func (cmd *JobsCmd) Run(c *Context) error {
	ctx := context.Background()
	db, err := c.openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	jobs, err := repository.NewPostgresStore(db).Schedules().ListEnabledJobs(ctx)
	if err != nil {
		return err
	}
	return printJobs(c.Out, jobs)
}

func printJobs(out io.Writer, jobs []*domain.ScheduledJob) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCRON\tCREATED")
	for _, j := range jobs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", j.ID, j.Name, j.Cron.String(), j.CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

type CompileCmd struct {
	Frequency string   `help:"Frequency template." default:"m h * * *"`
	Time      string   `help:"Start time (HH:MM)." required:""`
	End       string   `help:"End time (HH:MM) for several times per day."`
	Days      []string `help:"Day codes for selected-days templates." sep:","`
}

func (cmd *CompileCmd) Run(c *Context) error {
	expr, err := cmd.compile()
	if err != nil {
		return err
	}
	fmt.Fprintln(c.Out, expr)
	return nil
}

func (cmd *CompileCmd) compile() (string, error) {
	if !domain.IsKnownFrequency(cmd.Frequency) {
		return "", domain.ErrUnknownFrequency
	}

	start, err := clock(cmd.Time)
	if err != nil {
		return "", fmt.Errorf("--time: %w", err)
	}
	h := &domain.Habit{FrequencyTemplate: cmd.Frequency, Time: &start}

	if cmd.End != "" {
		end, err := clock(cmd.End)
		if err != nil {
			return "", fmt.Errorf("--end: %w", err)
		}
		h.EndTime = &end
	}

	days, err := domain.NormalizeWeekDays(cmd.Days)
	if err != nil {
		return "", err
	}
	h.DaysOfWeek = days

	expr, _, err := domain.CompileSchedule(h)
	return expr, err
}

func clock(s string) (time.Time, error) {
	return time.Parse("15:04", strings.TrimSpace(s))
}
