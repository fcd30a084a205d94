package equilibrium

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Rachford-Rice 式の許容値
const rr_tol = 1e-14

// 多相の Rachford-Rice 式の最大反復回数
const rr_max_iter = 200

/*
2相の Rachford-Rice 式を解く。

	Args:
		z: 原料組成, [i]
		K: 平衡比 y_i/x_i, [i]

	Returns:
		(1) 第2相の相分率 β
		(2) 2相が存在するか否か（K が全て1より大きい・小さい場合は false、β は 1 または 0）

	Notes:
		Σ z_i (K_i - 1) / (1 + β (K_i - 1)) = 0
		負のフラッシュ（β < 0, β > 1）を許す区間で Newton 法と二分法を併用する。
*/
func RachfordRice(z, K []float64) (float64, bool) {
	kmin, kmax := floats.Min(K), floats.Max(K)
	if kmin >= 1 {
		return 1, false
	}
	if kmax <= 1 {
		return 0, false
	}

	g := func(beta float64) (float64, float64) {
		var v, dv float64
		for i := range z {
			k := K[i] - 1
			t := 1 + beta*k
			v += z[i] * k / t
			dv -= z[i] * k * k / (t * t)
		}
		return v, dv
	}

	// g は単調減少。漸近線の間で解を探す。
	lo := 1 / (1 - kmax)
	hi := 1 / (1 - kmin)
	eps := 1e-12 * (hi - lo)
	lo, hi = lo+eps, hi-eps

	beta := 0.5
	if beta <= lo || beta >= hi {
		beta = (lo + hi) / 2
	}
	for it := 0; it < 200; it++ {
		v, dv := g(beta)
		if math.Abs(v) < rr_tol {
			break
		}
		if v > 0 {
			lo = beta
		} else {
			hi = beta
		}
		bn := beta - v/dv
		if !(bn > lo && bn < hi) {
			bn = (lo + hi) / 2
		}
		if math.Abs(bn-beta) < rr_tol*(1+math.Abs(beta)) {
			beta = bn
			break
		}
		beta = bn
	}
	return beta, true
}

/*
多相の Rachford-Rice 式を解く。

	Args:
		z: 原料組成, [i]
		K: 基準相に対する各相の平衡比, [相][i]
		beta0: 相分率の初期値, [相]

	Returns:
		(1) 基準相以外の相分率, [相]（収束しない場合は最後の反復値）
		(2) エラー

	Notes:
		x_i = z_i / (1 + Σ_j β_j (K_ji - 1))
		Σ_i x_i (K_ji - 1) = 0 を Newton 法で解く。相分率は [0, 1] に制限する。
*/
func rachford_rice_multi(z []float64, K [][]float64, beta0 []float64) ([]float64, error) {
	return _rachford_rice_multi(z, K, beta0, rr_max_iter)
}

func _rachford_rice_multi(z []float64, K [][]float64, beta0 []float64, max_iter int) ([]float64, error) {
	np := len(K)
	beta := append([]float64(nil), beta0...)

	t_of := func(beta []float64) ([]float64, bool) {
		t := make([]float64, len(z))
		for i := range z {
			t[i] = 1
			for j := 0; j < np; j++ {
				t[i] += beta[j] * (K[j][i] - 1)
			}
			if t[i] <= 0 {
				return nil, false
			}
		}
		return t, true
	}

	jac := mat.NewDense(np, np, nil)
	g := mat.NewVecDense(np, nil)
	var step mat.VecDense

	for it := 0; it < max_iter; it++ {
		t, ok := t_of(beta)
		if !ok {
			return nil, fmt.Errorf("%w: multiphase Rachford-Rice left its domain", ErrConvergence)
		}
		var norm float64
		for j := 0; j < np; j++ {
			var v float64
			for i := range z {
				v += z[i] * (K[j][i] - 1) / t[i]
			}
			g.SetVec(j, -v)
			norm += math.Abs(v)
			for k := 0; k < np; k++ {
				var h float64
				for i := range z {
					h -= z[i] * (K[j][i] - 1) * (K[k][i] - 1) / (t[i] * t[i])
				}
				jac.Set(j, k, h)
			}
		}
		if norm < rr_tol {
			return beta, nil
		}
		if err := step.SolveVec(jac, g); err != nil {
			return nil, fmt.Errorf("%w: singular multiphase Rachford-Rice: %v", ErrConvergence, err)
		}

		// 分母が正で相分率が範囲内に収まるまで刻みを縮める。
		s := 1.0
		next := make([]float64, np)
		for k := 0; k < 30; k++ {
			for j := range next {
				next[j] = math.Max(0, math.Min(1, beta[j]+s*step.AtVec(j)))
			}
			if _, ok := t_of(next); ok && floats.Sum(next) <= 1 {
				break
			}
			s /= 2
		}
		if floats.Distance(next, beta, 1) < rr_tol {
			return next, nil
		}
		beta = next
	}
	return beta, fmt.Errorf("%w: multiphase Rachford-Rice after %d iterations", ErrConvergence, max_iter)
}
