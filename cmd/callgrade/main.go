package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/callgrade/callgrade/internal/config"
	"github.com/callgrade/callgrade/internal/grade"
	"github.com/callgrade/callgrade/internal/metrics"
	"github.com/callgrade/callgrade/internal/notify"
	"github.com/callgrade/callgrade/internal/pipeline"
	"github.com/callgrade/callgrade/internal/sample"
	"github.com/callgrade/callgrade/internal/sla"
	"github.com/callgrade/callgrade/internal/source"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	sourcePath := flag.String("source", "", "CSV source path (overrides the config source)")
	goalFlag := flag.String("goal", "", "goal grade S|A|B|C|D (overrides report.goal)")
	scenario := flag.String("scenario", "", "scenario annotation included verbatim in the report")
	outPath := flag.String("out", "", "write the report to this file instead of stdout")
	jsonOut := flag.Bool("json", false, "print the structured run result as JSON instead of the report")
	watch := flag.Bool("watch", false, "re-run whenever the source file changes (file sources only)")
	samplePath := flag.String("sample", "", "write a sample call-volume CSV to this path and exit")
	flag.Parse()

	// The report owns stdout; logs go to stderr.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if *samplePath != "" {
		if err := sample.WriteFile(*samplePath, time.Now().UnixNano()); err != nil {
			slog.Error("failed to write sample data", "err", err)
			os.Exit(1)
		}
		slog.Info("sample data written", "path", *samplePath)
		return
	}

	cfg, err := loadConfig(*configPath, *sourcePath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	src, goal, err := resolveInputs(cfg, *sourcePath, *goalFlag)
	if err != nil {
		slog.Error("invalid inputs", "err", err)
		os.Exit(1)
	}

	analyzer := sla.New(sla.Options{
		Source: src,
		Goal:   goal,
		Strict: cfg.Report.Strict,
	})
	notifier := notify.New(cfg.Notify.Webhooks)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runOnce := func() bool {
		res := analyzer.Run(ctx, *scenario)
		slog.Info("run finished",
			"success", res.Success,
			"grade", res.Grade,
			"incoming", res.IncomingTotal,
			"answered", res.AnsweredTotal,
		)

		if err := emit(res, *jsonOut, *outPath); err != nil {
			slog.Error("failed to write output", "err", err)
		}
		notifier.Deliver(res)
		if cfg.Metrics.Textfile != "" {
			if err := metrics.Write(cfg.Metrics.Textfile, res, goal); err != nil {
				slog.Error("failed to write metrics", "err", err)
			}
		}
		return res.Success
	}

	ok := runOnce()

	if *watch {
		fileSrc, isFile := src.(source.FileSource)
		if !isFile {
			slog.Error("-watch requires a file source")
			os.Exit(1)
		}
		if err := source.Watch(ctx, fileSrc.Path, func() { runOnce() }); err != nil {
			slog.Error("watch stopped", "err", err)
			os.Exit(1)
		}
		return
	}

	if !ok {
		os.Exit(1)
	}
}

// loadConfig reads the config file. When the file is absent but the source
// was given on the command line, the built-in defaults are used so ad-hoc
// runs need no config at all.
func loadConfig(path, sourceOverride string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil && errors.Is(err, os.ErrNotExist) && sourceOverride != "" {
		slog.Info("no config file found, using defaults", "path", path)
		return config.Default(), nil
	}
	return cfg, err
}

// resolveInputs applies command-line overrides on top of the config.
func resolveInputs(cfg *config.Config, sourceOverride, goalOverride string) (source.Source, grade.Grade, error) {
	var src source.Source
	var err error
	if sourceOverride != "" {
		src = source.FileSource{Path: sourceOverride}
	} else if src, err = cfg.BuildSource(); err != nil {
		return nil, "", err
	}

	goal := cfg.Goal()
	if goalOverride != "" {
		if goal, err = grade.Parse(strings.ToUpper(goalOverride)); err != nil {
			return nil, "", err
		}
	}
	return src, goal, nil
}

// emit writes either the report text or the JSON result.
func emit(res pipeline.Result, jsonOut bool, outPath string) error {
	var out []byte
	if jsonOut {
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		out = append(data, '\n')
	} else {
		out = []byte(res.Report)
	}

	if outPath != "" {
		return os.WriteFile(outPath, out, 0o644)
	}
	_, err := os.Stdout.Write(out)
	return err
}
