package main

import (
	"bufio"
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/gykovacs/vessel-sub003/svr"
	"github.com/gykovacs/vessel-sub003/tracing"
)

func runTrain(args []string) error {
	fs := pflag.NewFlagSet("train", pflag.ContinueOnError)
	var (
		cfgPath    = fs.StringP("config", "c", "configs/svr.toml", "configuration file (toml)")
		dataPath   = fs.StringP("data", "d", "", "training CSV, last column is the target")
		maskPath   = fs.String("mask", "", "optional 0/1 mask selecting training rows")
		matrixPath = fs.String("kernel-matrix", "", "optional precomputed kernel matrix of the masked samples")
		namespace  = fs.String("cache-namespace", "", "kernel cache namespace (default: data file name)")
		outPath    = fs.StringP("out", "o", "model.txt", "where to write the trained model")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dataPath == "" {
		return errors.New("--data is required")
	}

	e, err := newEnv(*cfgPath, "train", true)
	if err != nil {
		return err
	}
	shutdown, err := tracing.InitTracer(e.conf.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			e.logger.Error("tracer shutdown failed", "error", err)
		}
	}()

	store, closeStore, err := e.newStore()
	if err != nil {
		return err
	}
	defer closeStore()

	trainer, err := e.newTrainer(store, cacheNamespace(*namespace, *dataPath))
	if err != nil {
		return err
	}

	ds, err := readDataset(*dataPath)
	if err != nil {
		return err
	}
	mask, err := readMask(*maskPath)
	if err != nil {
		return err
	}
	rows, err := readKernelMatrix(*matrixPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := e.logger.LogDuration(ctx, "training", "data", *dataPath)
	var res *svr.Result
	if rows != nil {
		res, err = trainer.TrainWithPrecomputedKernel(ctx, ds, mask, rows)
	} else {
		res, err = trainer.Train(ctx, ds, mask)
	}
	if err != nil {
		return err
	}
	done()

	if res.Status == svr.MaxIterations {
		e.logger.WarnContext(ctx, "iteration limit reached before convergence",
			"run_id", res.RunID, "gap", res.Gap, "tol", e.conf.Trainer.Tol)
	}
	return writeModel(trainer, *outPath)
}

func writeModel(t *svr.Trainer, path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	w := bufio.NewWriter(f)
	if err := t.SaveModel(w); err != nil {
		return err
	}
	return w.Flush()
}
