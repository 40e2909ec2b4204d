package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gykovacs/vessel-sub003/config"
	"github.com/gykovacs/vessel-sub003/kernel"
	"github.com/gykovacs/vessel-sub003/kernelcache"
	"github.com/gykovacs/vessel-sub003/logging"
	"github.com/gykovacs/vessel-sub003/svr"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestTrainWritesModelAndCache(t *testing.T) {
	dir := t.TempDir()
	cacheDir := filepath.Join(dir, "cache")
	data := writeFile(t, dir, "train.csv", "x,y\n1,1\n2,1\n-1,-1\n-2,-1\n")
	cfg := writeFile(t, dir, "svr.toml", fmt.Sprintf(`
[log]
level = "error"

[trainer]
c = 1.0
epsilon = 0.1
tol = 0.001
max_iteration = 1000
check_interval = 1
snapshot_interval = 1

[kernel]
descriptor = %q

[store]
backend = "file"
dir = %q
`, kernel.Linear{}.Descriptor(), cacheDir))
	out := filepath.Join(dir, "model.txt")

	if err := runTrain([]string{"--config", cfg, "--data", data, "--out", out}); err != nil {
		t.Fatalf("train: %v", err)
	}

	if _, err := os.Stat(filepath.Join(cacheDir, "train", "kernel_cache_4_-1.data")); err != nil {
		t.Errorf("kernel cache not written: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("open model: %v", err)
	}
	defer f.Close()
	m, ok, err := svr.DecodeModel(f)
	if err != nil || !ok {
		t.Fatalf("decode model: ok=%v err=%v", ok, err)
	}
	if len(m.FeatureNames) != 1 || m.FeatureNames[0] != "x" {
		t.Errorf("feature names = %v", m.FeatureNames)
	}
	hi, _ := m.Regress([]float64{2})
	lo, _ := m.Regress([]float64{-2})
	if hi <= 0 || lo >= 0 {
		t.Errorf("predictions have wrong sign: f(2)=%g f(-2)=%g", hi, lo)
	}
}

func TestTrainRequiresData(t *testing.T) {
	if err := runTrain(nil); err == nil || !strings.Contains(err.Error(), "--data") {
		t.Errorf("err = %v", err)
	}
}

func TestWritePredictions(t *testing.T) {
	m := &svr.Model{
		Kernel:         kernel.Linear{},
		SupportVectors: [][]float64{{1}},
		Coefficients:   []float64{2},
		Bias:           0.5,
		Dim:            1,
	}
	d, err := readDataset(writeFile(t, t.TempDir(), "query.csv", "1,2.5\n-1,0\n"))
	if err != nil {
		t.Fatalf("readDataset: %v", err)
	}
	var buf bytes.Buffer
	if err := writePredictions(&buf, m, d); err != nil {
		t.Fatalf("writePredictions: %v", err)
	}
	if got, want := buf.String(), "1.5,2.5\n-2.5,0\n"; got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestReadKernelMatrix(t *testing.T) {
	km, err := kernelcache.FromPrecomputed([][]float64{{1, 0.25}, {0.25, 1}})
	if err != nil {
		t.Fatalf("FromPrecomputed: %v", err)
	}
	var buf bytes.Buffer
	if err := km.Encode(&buf); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	rows, err := readKernelMatrix(writeFile(t, t.TempDir(), "K.txt", buf.String()))
	if err != nil {
		t.Fatalf("readKernelMatrix: %v", err)
	}
	if len(rows) != 2 || rows[0][1] != 0.25 || rows[1][1] != 1 {
		t.Errorf("rows = %v", rows)
	}
	if rows, err := readKernelMatrix(""); rows != nil || err != nil {
		t.Errorf("empty path = %v, %v", rows, err)
	}
}

func TestNewStore(t *testing.T) {
	e := &env{
		conf:   &config.Config{},
		logger: logging.NewWithWriter(logging.Config{Level: "error"}, &bytes.Buffer{}),
	}
	if s, _, err := e.newStore(); s != nil || err != nil {
		t.Errorf("empty backend = %v, %v", s, err)
	}

	e.conf.Store.Backend = "memory"
	if s, _, err := e.newStore(); err != nil {
		t.Errorf("memory: %v", err)
	} else if _, ok := s.(*kernelcache.MemoryStore); !ok {
		t.Errorf("memory backend returned %T", s)
	}

	e.conf.Store = config.StoreConfig{Backend: "file", Dir: t.TempDir()}
	if s, _, err := e.newStore(); err != nil {
		t.Errorf("file: %v", err)
	} else if _, ok := s.(*kernelcache.ObjectStore); !ok {
		t.Errorf("file backend returned %T", s)
	}

	e.conf.Store.Backend = "tape"
	if _, _, err := e.newStore(); err == nil {
		t.Error("unknown backend should fail")
	}
}

func TestCacheNamespace(t *testing.T) {
	if got := cacheNamespace("", "/data/housing.csv"); got != "housing" {
		t.Errorf("derived namespace = %q", got)
	}
	if got := cacheNamespace("custom", "/data/housing.csv"); got != "custom" {
		t.Errorf("explicit namespace = %q", got)
	}
}

func TestTrainerConfigMapping(t *testing.T) {
	c := trainerConfig(config.TrainerConfig{C: 2, Epsilon: 0.1, Tol: 1e-3, MaxIteration: 10, CheckInterval: 2, SnapshotInterval: 3, KernelWorkers: 4})
	if c.C != 2 || c.Epsilon != 0.1 || c.MaxIteration != 10 || c.SnapshotInterval != 3 || c.KernelWorkers != 4 {
		t.Errorf("mapped config = %+v", c)
	}
}
