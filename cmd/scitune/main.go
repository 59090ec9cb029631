// Command scitune tunes a regression model family on a CSV file or on
// synthetic catchment data and prints the ranked candidates, the selected
// configuration, test metrics and the residual table.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/YuminosukeSato/scitune/adapter"
	"github.com/YuminosukeSato/scitune/dataset"
	"github.com/YuminosukeSato/scitune/pkg/errors"
	"github.com/YuminosukeSato/scitune/pkg/log"
	"github.com/YuminosukeSato/scitune/preprocessing"
	"github.com/YuminosukeSato/scitune/search"
)

func main() {
	_ = godotenv.Load()

	cfg, err := parseConfig(os.Args[1:], os.Getenv, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "scitune:", err)
		os.Exit(2)
	}
	if err := log.SetupLogger(cfg.logLevel, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "scitune:", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, os.Stdout); err != nil {
		slog.Error("scitune failed", log.ErrAttr(err))
		stop()
		os.Exit(1)
	}
}

func loadDataset(cfg config) (*dataset.Dataset, error) {
	if cfg.synthetic > 0 {
		return dataset.Synthetic(cfg.synthetic, cfg.seed)
	}
	f, err := os.Open(cfg.input)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", cfg.input)
	}
	defer f.Close()
	return dataset.ReadCSV(f, cfg.target)
}

// registry returns the model families configured from the command line.
func registry(cfg config) *adapter.Registry {
	r := adapter.NewRegistry()
	_ = r.Register(adapter.LinearName, func() adapter.Adapter { return adapter.NewLinear() })
	_ = r.Register(adapter.BoostedTreesName, func() adapter.Adapter {
		return adapter.NewBoostedTrees(adapter.WithBoostedTrees(cfg.trees))
	})
	_ = r.Register(adapter.RandomForestName, func() adapter.Adapter {
		return adapter.NewRandomForest()
	})
	return r
}

func run(ctx context.Context, cfg config, stdout io.Writer) error {
	ds, err := loadDataset(cfg)
	if err != nil {
		return err
	}
	var drop []string
	for _, c := range cfg.drop {
		switch {
		case ds.HasColumn(c):
			drop = append(drop, c)
		case cfg.dropSet:
			return errors.NewUnknownColumnError("drop", c)
		}
	}

	opts := []search.Option{
		search.WithTrainFraction(cfg.trainFraction),
		search.WithFoldCount(cfg.folds),
		search.WithCandidateCount(cfg.candidates),
		search.WithMetrics(cfg.metrics...),
		search.WithSelection(cfg.selection, cfg.direction),
		search.WithSeed(cfg.seed),
		search.WithWorkers(cfg.workers),
		search.WithMaxEvaluations(cfg.maxEvals),
		search.WithStrata(cfg.strata),
		search.WithGlobalPipeline(cfg.global),
		search.WithPipeline(preprocessing.Default(drop...)),
	}

	reg := registry(cfg)
	rep := newReporter(stdout)
	rep.dataset(ds, drop)

	if cfg.compare {
		families := make([]adapter.Adapter, 0, len(reg.Names()))
		for _, name := range reg.Names() {
			a, err := reg.New(name)
			if err != nil {
				return err
			}
			families = append(families, a)
		}
		cmp, err := search.CompareFamilies(ctx, ds, families, opts...)
		if err != nil {
			return err
		}
		rep.comparison(cmp, cfg.metrics, cfg.selection)
	}

	a, err := reg.New(cfg.family)
	if err != nil {
		return err
	}
	res, err := search.Run(ctx, ds, a, opts...)
	if err != nil {
		return err
	}
	rep.result(res, cfg.metrics, cfg.top)

	switch cfg.residuals {
	case "":
		return nil
	case "-":
		return writeResiduals(stdout, ds, res.Residuals)
	default:
		f, err := os.Create(cfg.residuals)
		if err != nil {
			return errors.Wrapf(err, "create %s", cfg.residuals)
		}
		if err := writeResiduals(f, ds, res.Residuals); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}
}
