package kernelcache

import (
	"bufio"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/gykovacs/vessel-sub003/xerrors"
)

// Encode 写出文本格式：首行为 N，随后 N 行，每行 N 个空格分隔的数值。
func (m *Matrix) Encode(w io.Writer) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(strconv.Itoa(m.n))
	bw.WriteByte('\n')
	buf := make([]byte, 0, 32)
	for i := 0; i < m.n; i++ {
		for j, v := range m.Row(i) {
			if j > 0 {
				bw.WriteByte(' ')
			}
			buf = strconv.AppendFloat(buf[:0], v, 'g', -1, 64)
			bw.Write(buf)
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// Decode 读取 Encode 的输出。expectN > 0 时要求阶数一致。
// 截断、行长不符、多余数据、无法解析的数值、NaN/Inf 或不对称都返回 ErrMalformedCache。
func Decode(r io.Reader, expectN int) (*Matrix, error) {
	br := bufio.NewReader(r)
	header, err := readLine(br)
	if err != nil {
		return nil, xerrors.ErrMalformedCache.WithCause(err, "missing header")
	}
	n, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || n <= 0 {
		return nil, xerrors.ErrMalformedCache.With("invalid order %q", header)
	}
	if expectN > 0 && n != expectN {
		return nil, xerrors.ErrMalformedCache.With("cache holds order %d, expected %d", n, expectN)
	}

	m := newMatrix(n)
	for i := 0; i < n; i++ {
		line, err := readLine(br)
		if err != nil {
			return nil, xerrors.ErrMalformedCache.WithCause(err, "truncated at row %d of %d", i, n)
		}
		fields := strings.Fields(line)
		if len(fields) != n {
			return nil, xerrors.ErrMalformedCache.With("row %d has %d values, expected %d", i, len(fields), n)
		}
		row := m.data[i*n : (i+1)*n]
		for j, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, xerrors.ErrMalformedCache.WithCause(err, "row %d column %d", i, j)
			}
			row[j] = v
		}
	}
	for {
		line, err := readLine(br)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, xerrors.ErrMalformedCache.WithCause(err, "read trailer")
		}
		if strings.TrimSpace(line) != "" {
			return nil, xerrors.ErrMalformedCache.With("unexpected data after %d rows", n)
		}
	}
	if err := m.check(); err != nil {
		return nil, xerrors.ErrMalformedCache.WithCause(err, "cached kernel matrix rejected")
	}
	return m, nil
}

// readLine 读取一行（不含换行符）。最后一行没有换行符也可以；
// 流已结束且无任何内容时返回 io.EOF。
func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
