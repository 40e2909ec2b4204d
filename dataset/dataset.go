// Package dataset 提供训练样本集：掩码过滤、维度校验、CSV 读取与退化样本判定。
package dataset

import (
	"math"

	"github.com/gykovacs/vessel-sub003/xerrors"
)

// Sample 是一个带回归目标的特征向量。
type Sample struct {
	Features []float64
	Target   float64
}

// Dataset 是有序样本集合，FeatureNames 可为空。
type Dataset struct {
	Samples      []Sample
	FeatureNames []string
}

// New 由特征矩阵与目标向量构造数据集。
func New(features [][]float64, targets []float64) (*Dataset, error) {
	if len(features) != len(targets) {
		return nil, xerrors.ErrDimMismatch.With("%d feature rows but %d targets", len(features), len(targets))
	}
	ds := &Dataset{Samples: make([]Sample, len(features))}
	for i := range features {
		ds.Samples[i] = Sample{Features: features[i], Target: targets[i]}
	}
	return ds, nil
}

// Len 样本数。
func (d *Dataset) Len() int { return len(d.Samples) }

// Dim 特征维度，空数据集为 0。
func (d *Dataset) Dim() int {
	if len(d.Samples) == 0 {
		return 0
	}
	return len(d.Samples[0].Features)
}

// Validate 检查样本非空、维度一致且所有数值有限。
func (d *Dataset) Validate() error {
	if d == nil || len(d.Samples) == 0 {
		return xerrors.ErrEmptyData.With("dataset has no samples")
	}
	dim := len(d.Samples[0].Features)
	if dim == 0 {
		return xerrors.ErrDimMismatch.With("samples have no features")
	}
	if len(d.FeatureNames) > 0 && len(d.FeatureNames) != dim {
		return xerrors.ErrDimMismatch.With("%d feature names for %d features", len(d.FeatureNames), dim)
	}
	for i, s := range d.Samples {
		if len(s.Features) != dim {
			return xerrors.ErrDimMismatch.With("sample %d has %d features, expected %d", i, len(s.Features), dim)
		}
		if !finite(s.Target) {
			return xerrors.ErrInvalidSample.With("sample %d target is %v", i, s.Target)
		}
		for j, v := range s.Features {
			if !finite(v) {
				return xerrors.ErrInvalidSample.With("sample %d feature %d is %v", i, j, v)
			}
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Filter 保留 mask 为 true 的样本，nil 掩码保留全部。
// 返回新数据集及保留样本在原数据集中的下标。
func (d *Dataset) Filter(mask []bool) (*Dataset, []int, error) {
	if mask == nil {
		idx := make([]int, len(d.Samples))
		for i := range idx {
			idx[i] = i
		}
		return d.subset(idx), idx, nil
	}
	if len(mask) != len(d.Samples) {
		return nil, nil, xerrors.ErrInvalidMask.With("mask has %d entries, dataset has %d samples", len(mask), len(d.Samples))
	}
	idx := make([]int, 0, len(mask))
	for i, keep := range mask {
		if keep {
			idx = append(idx, i)
		}
	}
	return d.subset(idx), idx, nil
}

// Without 返回去掉给定下标（升序）后的数据集。
func (d *Dataset) Without(removed []int) *Dataset {
	if len(removed) == 0 {
		return d
	}
	drop := make(map[int]struct{}, len(removed))
	for _, i := range removed {
		drop[i] = struct{}{}
	}
	idx := make([]int, 0, len(d.Samples)-len(drop))
	for i := range d.Samples {
		if _, ok := drop[i]; !ok {
			idx = append(idx, i)
		}
	}
	return d.subset(idx)
}

func (d *Dataset) subset(idx []int) *Dataset {
	out := &Dataset{
		Samples:      make([]Sample, len(idx)),
		FeatureNames: d.FeatureNames,
	}
	for k, i := range idx {
		out.Samples[k] = d.Samples[i]
	}
	return out
}

// Features 返回特征矩阵视图（行共享底层数组）。
func (d *Dataset) Features() [][]float64 {
	out := make([][]float64, len(d.Samples))
	for i, s := range d.Samples {
		out[i] = s.Features
	}
	return out
}

// Targets 返回目标向量副本。
func (d *Dataset) Targets() []float64 {
	out := make([]float64, len(d.Samples))
	for i, s := range d.Samples {
		out[i] = s.Target
	}
	return out
}
