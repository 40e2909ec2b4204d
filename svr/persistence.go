package svr

import (
	"bufio"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/gykovacs/vessel-sub003/kernel"
	"github.com/gykovacs/vessel-sub003/xerrors"
)

// ModelTag 是模型文件的首行标记。
const ModelTag = "SequentialSVRegression"

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func joinFloats(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = formatFloat(v)
	}
	return strings.Join(parts, " ")
}

// Encode 以行文本格式写出模型，浮点数按最短可逆表示输出。
func (m *Model) Encode(w io.Writer) error {
	if m == nil || m.Kernel == nil {
		return xerrors.ErrNotTrained.With("nothing to save")
	}
	bw := bufio.NewWriter(w)
	lines := make([]string, 0, 7+len(m.FeatureNames)+len(m.SupportVectors))
	lines = append(lines, ModelTag, strconv.Itoa(len(m.FeatureNames)))
	lines = append(lines, m.FeatureNames...)
	lines = append(lines,
		m.Kernel.Descriptor(),
		strconv.Itoa(len(m.SupportVectors)),
		strconv.Itoa(m.Dim),
	)
	for _, sv := range m.SupportVectors {
		lines = append(lines, joinFloats(sv))
	}
	lines = append(lines, joinFloats(m.Coefficients), formatFloat(m.Bias))
	for _, l := range lines {
		if _, err := bw.WriteString(l + "\n"); err != nil {
			return xerrors.WrapInternal(err, "write model")
		}
	}
	if err := bw.Flush(); err != nil {
		return xerrors.WrapInternal(err, "write model")
	}
	return nil
}

type lineReader struct {
	br   *bufio.Reader
	line int
}

func (lr *lineReader) next(what string) (string, error) {
	s, err := lr.br.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && s != "") {
		if errors.Is(err, io.EOF) {
			return "", xerrors.ErrMalformedModel.With("unexpected end of model before %s (line %d)", what, lr.line+1)
		}
		return "", xerrors.ErrMalformedModel.WithCause(err, "read %s", what)
	}
	lr.line++
	return strings.TrimRight(s, "\r\n"), nil
}

func (lr *lineReader) readInt(what string) (int, error) {
	s, err := lr.next(what)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v < 0 {
		return 0, xerrors.ErrMalformedModel.With("line %d: invalid %s %q", lr.line, what, s)
	}
	return v, nil
}

func (lr *lineReader) readFloats(what string, want int) ([]float64, error) {
	s, err := lr.next(what)
	if err != nil {
		return nil, err
	}
	fields := strings.Fields(s)
	if len(fields) != want {
		return nil, xerrors.ErrMalformedModel.With("line %d: %s has %d values, expected %d", lr.line, what, len(fields), want)
	}
	out := make([]float64, want)
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, xerrors.ErrMalformedModel.WithCause(err, "line %d: %s value %d", lr.line, what, i)
		}
		out[i] = v
	}
	return out, nil
}

// DecodeModel 读取 Encode 写出的模型。
// 首行不是 ModelTag 时返回 (nil, false, nil)；内容截断或格式错误返回 ErrMalformedModel。
func DecodeModel(r io.Reader) (*Model, bool, error) {
	lr := &lineReader{br: bufio.NewReader(r)}
	head, err := lr.br.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, false, xerrors.WrapInternal(err, "read model")
	}
	if !strings.HasPrefix(head, ModelTag) {
		return nil, false, nil
	}
	if errors.Is(err, io.EOF) {
		return nil, true, xerrors.ErrMalformedModel.With("model ends after the tag line")
	}
	lr.line = 1

	names, err := lr.readInt("feature name count")
	if err != nil {
		return nil, true, err
	}
	m := &Model{}
	for i := 0; i < names; i++ {
		name, err := lr.next("feature name")
		if err != nil {
			return nil, true, err
		}
		m.FeatureNames = append(m.FeatureNames, name)
	}

	desc, err := lr.next("kernel descriptor")
	if err != nil {
		return nil, true, err
	}
	if m.Kernel, err = kernel.Parse(desc); err != nil {
		return nil, true, xerrors.ErrMalformedModel.WithCause(err, "line %d: kernel descriptor %q", lr.line, desc)
	}

	count, err := lr.readInt("support vector count")
	if err != nil {
		return nil, true, err
	}
	if m.Dim, err = lr.readInt("dimensionality"); err != nil {
		return nil, true, err
	}
	if m.Dim == 0 {
		return nil, true, xerrors.ErrMalformedModel.With("line %d: dimensionality must be positive", lr.line)
	}
	if names > 0 && names != m.Dim {
		return nil, true, xerrors.ErrMalformedModel.With("%d feature names for dimensionality %d", names, m.Dim)
	}
	m.SupportVectors = make([][]float64, 0, count)
	for i := 0; i < count; i++ {
		sv, err := lr.readFloats("support vector", m.Dim)
		if err != nil {
			return nil, true, err
		}
		m.SupportVectors = append(m.SupportVectors, sv)
	}
	if m.Coefficients, err = lr.readFloats("coefficients", count); err != nil {
		return nil, true, err
	}
	b, err := lr.readFloats("bias", 1)
	if err != nil {
		return nil, true, err
	}
	m.Bias = b[0]
	return m, true, nil
}
