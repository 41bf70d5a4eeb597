package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"reclip/internal/outpath"
	"reclip/internal/tui"
	"reclip/media"
	"reclip/playback"
	"reclip/probe"
	"reclip/transcode"
)

var version = "dev"

func main() {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	var (
		in      = flag.String("in", "", "input video file")
		out     = flag.String("out", "", "output file (default: input with suffix, uniquified)")
		sizeMB  = flag.Float64("size", 5, "target output size in MB")
		scale   = flag.Int("scale", 1, "scale divisor: 1, 2 or 4")
		start   = flag.Float64("start", 0, "range start in seconds")
		end     = flag.Float64("end", 0, "range end in seconds (0 = source duration)")
		suffix  = flag.String("suffix", "small", "suffix for the default output name")
		preview = flag.Bool("preview", false, "open the interactive preview instead of transcoding")
	)
	flag.Parse()

	if *in == "" {
		fmt.Fprintln(os.Stderr, "usage: reclip -in <file> [-preview | -size MB -scale N -start S -end S -out FILE]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	if *preview {
		if err := runPreview(*in); err != nil {
			slog.Error("preview failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := runShrink(*in, *out, *sizeMB, *scale, *start, *end, *suffix); err != nil {
		slog.Error("transcode failed", "error", err)
		os.Exit(1)
	}
}

func runShrink(in, out string, sizeMB float64, scale int, start, end float64, suffix string) error {
	info, err := probe.Probe(in)
	if err != nil {
		return err
	}
	if end <= 0 {
		end = info.Duration
	}
	if out == "" {
		out = outpath.Uniquify(outpath.WithSuffix(in, suffix))
	}

	slog.Info("reclip starting",
		"version", version,
		"input", in,
		"output", out,
		"targetMB", sizeMB,
		"scale", scale,
		"startSeconds", start,
		"endSeconds", end,
	)

	return transcode.Transcode(transcode.Request{
		Input:        in,
		Output:       out,
		TargetSizeMB: sizeMB,
		ScaleDivisor: scale,
		StartSeconds: start,
		EndSeconds:   end,
	})
}

func runPreview(in string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	mgr := playback.NewManager(nil)
	defer func() {
		if err := mgr.Close(); err != nil {
			slog.Error("session shutdown", "error", err)
		}
	}()

	sess, err := mgr.Open(in)
	if err != nil {
		return err
	}

	// The poster fills the preview until the first decoded frame; losing
	// it is cosmetic, not fatal.
	var poster *media.Picture
	if p, err := probe.PosterFrame(in); err != nil {
		slog.Warn("poster frame extraction failed", "error", err)
	} else {
		poster = &p
	}

	prog := tea.NewProgram(tui.NewModel(sess, poster))

	var final tea.Model
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		m, err := prog.Run()
		final = m
		cancel()
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		prog.Quit()
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	if m, ok := final.(tui.Model); ok {
		if req, ok := m.MarkedRequest(transcode.Request{Input: in}); ok {
			slog.Info("range marked, rerun without -preview to shrink it",
				"startSeconds", req.StartSeconds,
				"endSeconds", req.EndSeconds)
		}
	}
	return nil
}
