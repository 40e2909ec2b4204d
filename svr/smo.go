package svr

// tauStep 防止 qc 接近奇异时除零。
const tauStep = 1e-7

// step 对工作集 (i, j) 做一次解析更新并保持 0 ≤ α ≤ C。
// y(i) ≠ y(j) 时保持 α(i)-α(j) 不变，否则保持 α(i)+α(j) 不变。
// 只有 α 实际发生变化时才更新梯度，返回值表示是否变化。
func step(pr *problem, gt *gradientTracker, i, j int) bool {
	q := pr.k
	c := pr.c
	a := pr.alpha
	oldI, oldJ := a[i], a[j]

	if pr.y(i) != pr.y(j) {
		qc := q.Q(i, i) + q.Q(j, j) + 2*q.Q(i, j)
		if qc <= 0 {
			qc = tauStep
		}
		delta := (-pr.g[i] - pr.g[j]) / qc
		diff := a[i] - a[j]
		a[i] += delta
		a[j] += delta

		if diff > 0 {
			if a[j] < 0 {
				a[j] = 0
				a[i] = diff
			}
		} else if a[i] < 0 {
			a[i] = 0
			a[j] = -diff
		}
		if diff > 0 {
			if a[i] > c {
				a[i] = c
				a[j] = c - diff
			}
		} else if a[j] > c {
			a[j] = c
			a[i] = c + diff
		}
	} else {
		qc := q.Q(i, i) + q.Q(j, j) - 2*q.Q(i, j)
		if qc <= 0 {
			qc = tauStep
		}
		delta := (pr.g[i] - pr.g[j]) / qc
		sum := a[i] + a[j]
		a[i] -= delta
		a[j] += delta

		if sum > c {
			if a[i] > c {
				a[i] = c
				a[j] = sum - c
			}
		} else if a[j] < 0 {
			a[j] = 0
			a[i] = sum
		}
		if sum > c {
			if a[j] > c {
				a[j] = c
				a[i] = sum - c
			}
		} else if a[i] < 0 {
			a[i] = 0
			a[j] = sum
		}
	}

	if a[i] == oldI && a[j] == oldJ {
		return false
	}
	gt.Update(i, j, a[i]-oldI, a[j]-oldJ)
	return true
}
