package main

import (
	"os"

	"apod_etl/internal/logger"

	"github.com/jessevdk/go-flags"
)

// Options — глобальные флаги, общие для всех команд.
type Options struct {
	Config string `short:"c" long:"config" env:"APOD_CONFIG" default:"config.yaml" description:"Path to JSON or YAML config file"`
	Debug  bool   `long:"debug" description:"Enable debug logging (also DEBUG=true)"`
}

var opts Options

func main() {
	parser := flags.NewParser(&opts, flags.Default)
	parser.CommandHandler = func(cmd flags.Commander, args []string) error {
		logger.Init(opts.Debug)
		if cmd == nil {
			return nil
		}
		return cmd.Execute(args)
	}

	parser.AddCommand("run", "Run the pipeline once",
		"Ensure schema, fetch, transform and load one APOD record, then exit.", &RunCommand{})
	parser.AddCommand("serve", "Run the pipeline daily",
		"Run the pipeline once per day and serve /api/apod, /health and /metrics.", &ServeCommand{})
	parser.AddCommand("consume", "Run the pipeline on AMQP ticks",
		"Consume tick messages from the configured queue, one run per message.", &ConsumeCommand{})
	parser.AddCommand("trigger", "Publish a tick",
		"Publish one tick message to the configured AMQP queue.", &TriggerCommand{})
	parser.AddCommand("init-schema", "Create the destination table",
		"Create apod_data if it does not exist.", &InitSchemaCommand{})

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			return
		}
		os.Exit(1)
	}
}
