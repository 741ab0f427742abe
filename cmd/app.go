package cmd

import (
	"errors"

	"github.com/urfave/cli"
)

// Exit statuses.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

// Create the command line application.
func NewApp() *cli.App {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "stilltrace"
	app.Usage = "render a still image from a scene description"
	app.UsageText = "stilltrace [options] <scene file> <output.ppm>"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
		cli.IntFlag{
			Name:  "workers, w",
			Value: 0,
			Usage: "number of worker goroutines (0 = number of CPUs)",
		},
		cli.Uint64Flag{
			Name:  "seed",
			Usage: "random seed for jitter and sampling (default: time based)",
		},
		cli.IntFlag{
			Name:  "chunk-rows",
			Value: 0,
			Usage: "scanlines scheduled per chunk (0 = whole frame)",
		},
	}
	app.Action = RenderFrame

	// Errors are mapped to exit statuses by ExitCode.
	app.ExitErrHandler = func(*cli.Context, error) {}

	return app
}

// Map an error returned by the application to a process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrUsage):
		return ExitUsage
	}
	return ExitError
}
