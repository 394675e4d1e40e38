package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/justapithecus/ingot/cli/reader"
	"github.com/justapithecus/ingot/cli/render"
)

// StatsCommand returns the stats command: aggregated facts derived
// from a full scan of a stream artifact.
func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:      "stats",
		Usage:     "Show aggregate statistics for a stream artifact",
		ArgsUsage: "<file.vrt|file.iqc>",
		Flags:     ReadOnlyFlags(),
		Action:    statsAction,
	}
}

func statsAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("file required", 1)
	}
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for stats", 1)
	}
	path := c.Args().First()

	kind, err := reader.Detect(path)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	if kind == reader.KindCapture {
		stats, err := reader.StatsCapture(path)
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		return r.Render(stats)
	}
	stats, err := reader.StatsVRT(path)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	return r.Render(stats)
}
