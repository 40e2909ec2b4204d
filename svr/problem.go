// Package svr 实现基于序列最小优化 (SMO) 的 ε-不敏感支持向量回归训练器。
//
// 对偶问题有 2N 个变量 α：前 N 个对应样本的 "+ε" 副本 (y=+1)，
// 后 N 个对应 "-ε" 副本 (y=-1)。Q(i,j) = y(i)·y(j)·K(i mod N, j mod N)。
package svr

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/gykovacs/vessel-sub003/kernelcache"
)

// problem 保存一次训练的对偶变量、线性项与梯度。只由训练协程修改。
type problem struct {
	k     *kernelcache.Matrix
	n     int
	c     float64
	eps   float64
	alpha []float64
	p     []float64
	g     []float64
}

func newProblem(k *kernelcache.Matrix, targets []float64, c, eps float64) *problem {
	n := k.N()
	pr := &problem{
		k:     k,
		n:     n,
		c:     c,
		eps:   eps,
		alpha: make([]float64, 2*n),
		p:     make([]float64, 2*n),
		g:     make([]float64, 2*n),
	}
	for i, t := range targets {
		pr.p[i] = eps - t
		pr.p[i+n] = eps + t
	}
	return pr
}

func (pr *problem) y(k int) float64 { return pr.k.Sign(k) }

// upFree 表示 α(k) 还能沿 -y·g 增大的方向移动。
func (pr *problem) upFree(k int) bool {
	if k < pr.n {
		return pr.alpha[k] < pr.c
	}
	return pr.alpha[k] > 0
}

// lowFree 是 upFree 的互补可行条件。
func (pr *problem) lowFree(k int) bool {
	if k < pr.n {
		return pr.alpha[k] > 0
	}
	return pr.alpha[k] < pr.c
}

// inMaxSet 对应 (α=0, y=-1) 或 (α=C, y=+1)，停止判据在该集合上取 y·g 的最大值。
func (pr *problem) inMaxSet(k int) bool {
	if k < pr.n {
		return pr.alpha[k] == pr.c
	}
	return pr.alpha[k] == 0
}

// inMinSet 对应 (α=0, y=+1) 或 (α=C, y=-1)，停止判据在该集合上取 y·g 的最小值。
func (pr *problem) inMinSet(k int) bool {
	if k < pr.n {
		return pr.alpha[k] == 0
	}
	return pr.alpha[k] == pr.c
}

// beta 返回 β(i) = α(i) - α(i+N)，即每个样本的回归系数。
func (pr *problem) beta() []float64 {
	b := make([]float64, pr.n)
	floats.SubTo(b, pr.alpha[:pr.n], pr.alpha[pr.n:])
	return b
}

// objective 计算 ½·αᵀQα + pᵀα。αᵀQα = βᵀKβ，因此只需一次 N×N 二次型。
func (pr *problem) objective() float64 {
	beta := mat.NewVecDense(pr.n, pr.beta())
	quad := mat.Inner(beta, pr.k.Sym(), beta)
	return 0.5*quad + floats.Dot(pr.p, pr.alpha)
}

// boundExtrema 返回 inMaxSet 上 y·g 的最大值与 inMinSet 上 y·g 的最小值，
// 集合为空时对应返回 -Inf / +Inf。
func (pr *problem) boundExtrema() (maxA, minB float64) {
	maxA, minB = math.Inf(-1), math.Inf(1)
	for k := range pr.alpha {
		yg := pr.y(k) * pr.g[k]
		if pr.inMaxSet(k) && yg > maxA {
			maxA = yg
		}
		if pr.inMinSet(k) && yg < minB {
			minB = yg
		}
	}
	return maxA, minB
}
