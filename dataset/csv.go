package dataset

import (
	"bufio"
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/gykovacs/vessel-sub003/xerrors"
)

// ReadCSV 读取 CSV：最后一列为目标值，其余为特征。
// 首行若含非数值字段则视为表头，前 D 个字段作为特征名。
func ReadCSV(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	ds := &Dataset{}
	line := 0
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, xerrors.ErrInvalidSample.WithCause(err, "read csv")
		}
		line++
		if len(rec) < 2 {
			return nil, xerrors.ErrDimMismatch.With("csv record %d needs at least one feature and a target", line)
		}
		vals, err := parseRecord(rec)
		if err != nil {
			if line == 1 {
				ds.FeatureNames = append([]string(nil), rec[:len(rec)-1]...)
				continue
			}
			return nil, xerrors.ErrInvalidSample.WithCause(err, "csv record %d", line)
		}
		ds.Samples = append(ds.Samples, Sample{
			Features: vals[:len(vals)-1],
			Target:   vals[len(vals)-1],
		})
	}
	return ds, nil
}

func parseRecord(rec []string) ([]float64, error) {
	vals := make([]float64, len(rec))
	for i, f := range rec {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}

// WriteCSV 以 ReadCSV 可读取的格式写出数据集。
func WriteCSV(w io.Writer, d *Dataset) error {
	cw := csv.NewWriter(w)
	if len(d.FeatureNames) > 0 {
		if err := cw.Write(append(append([]string(nil), d.FeatureNames...), "target")); err != nil {
			return err
		}
	}
	for _, s := range d.Samples {
		rec := make([]string, 0, len(s.Features)+1)
		for _, v := range s.Features {
			rec = append(rec, strconv.FormatFloat(v, 'g', -1, 64))
		}
		rec = append(rec, strconv.FormatFloat(s.Target, 'g', -1, 64))
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadMask 读取掩码文件：空白分隔的 0/1（或 true/false）值。
func ReadMask(r io.Reader) ([]bool, error) {
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)
	var mask []bool
	for sc.Scan() {
		b, err := strconv.ParseBool(sc.Text())
		if err != nil {
			return nil, xerrors.ErrInvalidMask.WithCause(err, "mask entry %d", len(mask))
		}
		mask = append(mask, b)
	}
	if err := sc.Err(); err != nil {
		return nil, xerrors.ErrInvalidMask.WithCause(err, "read mask")
	}
	return mask, nil
}
