package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/comitanigiacomo/kanso-reminders/internal/config"
	"github.com/comitanigiacomo/kanso-reminders/internal/logger"
)

var CLI struct {
	Env      string `help:"Path of a .env file to load." type:"path" default:".env"`
	LogLevel string `help:"Log level." default:"info" enum:"trace,debug,info,warn,error"`

	Migrate      MigrateCmd      `cmd:"" help:"Apply pending database migrations."`
	SeedWeekdays SeedWeekdaysCmd `cmd:"seed-weekdays" help:"Insert the seven week days if they are missing."`
	Jobs         JobsCmd         `cmd:"" help:"List enabled reminder jobs."`
	Compile      CompileCmd      `cmd:"" help:"Compile a frequency template into a cron expression."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("habitctl"),
		kong.Description("Maintenance commands for the kanso reminders database"),
		kong.UsageOnError(),
	)

	err := ctx.Run(&Context{
		Env:    CLI.Env,
		Log:    logger.New(CLI.LogLevel, true),
		Out:    os.Stdout,
		Config: config.Load,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
