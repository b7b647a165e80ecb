// MQTT Event Publisher
//
// mqttpublish reads newline-delimited records and publishes each one to a
// single MQTT broker. Records are buffered in memory and delivered in order;
// when the broker is unreachable delivery is retried at a fixed interval
// until it succeeds or the process is asked to stop.
//
//	mqttpublish run --config configs/config.yaml --input events.jsonl
//	tail -F app.log | mqttpublish run
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "mqttpublish",
		Usage:   "Publish newline-delimited events to an MQTT broker",
		Version: fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Read events and publish them until input ends or a signal arrives",
				Flags: runFlags(),
				Action: func(c *cli.Context) error {
					return run(c.Context, runOptions{
						configPath: c.String("config"),
						inputPath:  c.String("input"),
						verbose:    c.Bool("verbose"),
					})
				},
			},
		},
	}
}

// runFlags returns the flags of the run command.
func runFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to the YAML configuration file",
			EnvVars: []string{"MQTTPUB_CONFIG"},
			Value:   defaultConfigPath,
		},
		&cli.StringFlag{
			Name:    "input",
			Aliases: []string{"i"},
			Usage:   "File to read events from, or - for standard input",
			EnvVars: []string{"MQTTPUB_INPUT"},
			Value:   "-",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Enable debug logging",
		},
	}
}
