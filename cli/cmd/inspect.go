package cmd

import (
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/ingot/cli/reader"
	"github.com/justapithecus/ingot/cli/render"
	"github.com/justapithecus/ingot/cli/tui"
)

// InspectCommand returns the inspect command: a per-record view of a
// serialized stream artifact (.vrt packet stream or .iqc capture).
func InspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Inspect packets or capture frames in a stream artifact",
		ArgsUsage: "<file.vrt|file.iqc>",
		Flags: append(ReadOnlyFlags(),
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Stop after this many records (0 = all)",
			},
		),
		Action: inspectAction,
	}
}

func inspectAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("file required", 1)
	}
	path := c.Args().First()

	kind, err := reader.Detect(path)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	switch kind {
	case reader.KindVRT:
		records, err := reader.ReadPackets(path, c.Int("limit"))
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		if c.Bool("tui") {
			return tui.RunInspect(path, packetItems(records))
		}
		r, err := render.NewRenderer(c)
		if err != nil {
			return err
		}
		return r.Render(records)
	case reader.KindCapture:
		records, err := reader.ReadFrames(path, c.Int("limit"))
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		if c.Bool("tui") {
			return tui.RunInspect(path, frameItems(records))
		}
		r, err := render.NewRenderer(c)
		if err != nil {
			return err
		}
		return r.Render(records)
	default:
		return cli.Exit(fmt.Sprintf("unsupported artifact kind %q", kind), 1)
	}
}

// packetItems converts decoded packets into browsable records.
func packetItems(records []reader.PacketRecord) []tui.Item {
	items := make([]tui.Item, len(records))
	for i, rec := range records {
		fields := [][2]string{
			{"type", rec.Type},
			{"stream_id", fmt.Sprintf("0x%X", rec.StreamID)},
			{"count", strconv.Itoa(int(rec.Count))},
			{"size_words", strconv.Itoa(rec.SizeWords)},
			{"payload_bytes", strconv.Itoa(rec.PayloadBytes)},
		}
		if rec.Timestamp != "" {
			fields = append(fields, [2]string{"timestamp", rec.Timestamp})
		}
		if rec.Detail != "" {
			fields = append(fields, [2]string{"detail", rec.Detail})
		}
		items[i] = tui.Item{
			Label:  fmt.Sprintf("%4d  %-14s count=%2d  %d words", rec.Index, rec.Type, rec.Count, rec.SizeWords),
			Fields: fields,
		}
	}
	return items
}

// frameItems converts capture frames into browsable records.
func frameItems(records []reader.FrameRecord) []tui.Item {
	items := make([]tui.Item, len(records))
	for i, rec := range records {
		fields := [][2]string{{"type", rec.Type}}
		if rec.Time != "" {
			fields = append(fields, [2]string{"time", rec.Time})
		}
		if rec.Pairs > 0 {
			fields = append(fields,
				[2]string{"pairs", strconv.Itoa(rec.Pairs)},
				[2]string{"bytes", strconv.Itoa(rec.Bytes)},
			)
		}
		if rec.Detail != "" {
			fields = append(fields, [2]string{"detail", rec.Detail})
		}
		items[i] = tui.Item{
			Label:  fmt.Sprintf("%4d  %-8s %s", rec.Index, rec.Type, rec.Time),
			Fields: fields,
		}
	}
	return items
}
