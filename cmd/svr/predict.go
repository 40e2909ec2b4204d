package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/gykovacs/vessel-sub003/dataset"
	"github.com/gykovacs/vessel-sub003/kernel"
	"github.com/gykovacs/vessel-sub003/svr"
)

func runPredict(args []string) error {
	fs := pflag.NewFlagSet("predict", pflag.ContinueOnError)
	var (
		modelPath = fs.StringP("model", "m", "model.txt", "saved model")
		dataPath  = fs.StringP("data", "d", "", "CSV to predict, last column is the reference target")
		cross     = fs.String("cross-kernel", "", "kernel descriptor used at prediction time (default: training kernel)")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dataPath == "" {
		return errors.New("--data is required")
	}

	f, err := os.Open(*modelPath)
	if err != nil {
		return err
	}
	m, ok, err := svr.DecodeModel(f)
	f.Close()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s is not a %s model", *modelPath, svr.ModelTag)
	}
	if *cross != "" {
		k, err := kernel.Parse(*cross)
		if err != nil {
			return err
		}
		m = m.WithCrossKernel(k)
	}

	ds, err := readDataset(*dataPath)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(os.Stdout)
	if err := writePredictions(w, m, ds); err != nil {
		return err
	}
	return w.Flush()
}

// writePredictions 每行输出 "预测值,参考值"。
func writePredictions(w io.Writer, m *svr.Model, ds *dataset.Dataset) error {
	for i, s := range ds.Samples {
		v, err := m.Regress(s.Features)
		if err != nil {
			return fmt.Errorf("sample %d: %w", i, err)
		}
		line := strconv.FormatFloat(v, 'g', -1, 64) + "," + strconv.FormatFloat(s.Target, 'g', -1, 64) + "\n"
		if _, err := io.WriteString(w, line); err != nil {
			return err
		}
	}
	return nil
}
