package equilibrium

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat/distmv"

	"saft_gamma_mie/eos"
)

// 試行組成の乱数の種
const tpd_seed = 20

// 極小点が一致したとみなす組成差
const tpd_unique_tol = 1e-4

// 組成の下限（対数の発散を避ける）
const w_floor = 1e-300

/*
接平面距離の計算結果

	W: 試行相の組成, [i]
	Tpd: 接平面距離 Σ w_i (ln w_i + ln φ_i(w) - ln z_i - ln φ_i(z))
	Iterations: 最小化の反復回数
	Success: 最小化が収束したか否か
*/
type TpdResult struct {
	W          []float64
	Tpd        float64
	Iterations int
	Success    bool
}

// 原料の d_i = ln z_i + ln φ_i(z)
func _tpd_feed(e *eos.EoS, ta *eos.TempAux, z []float64, P float64, feed eos.Phase) ([]float64, error) {
	ph, err := e.PhaseAux(ta, P, z, feed, 0, nil)
	if err != nil {
		return nil, err
	}
	d := make([]float64, len(z))
	for i := range z {
		d[i] = math.Log(math.Max(z[i], w_floor)) + ph.LnPhi[i]
	}
	return d, nil
}

/*
接平面距離を計算する。

	Args:
		e: 状態方程式
		w: 試行相の組成, [i]
		z: 原料組成, [i]
		T: 温度, K
		P: 圧力, Pa
		trial: 試行相の種類
		feed: 原料の相の種類

	Returns:
		接平面距離, 無次元
*/
func Tpd(e *eos.EoS, w, z []float64, T, P float64, trial, feed eos.Phase) (float64, error) {
	ta, err := e.TemperatureAux(T)
	if err != nil {
		return 0, err
	}
	d, err := _tpd_feed(e, ta, z, P, feed)
	if err != nil {
		return 0, err
	}
	ph, err := e.PhaseAux(ta, P, w, trial, 0, nil)
	if err != nil {
		return 0, err
	}
	var tpd float64
	for i := range w {
		if w[i] > 0 {
			tpd += w[i] * (math.Log(w[i]) + ph.LnPhi[i] - d[i])
		}
	}
	return tpd, nil
}

/*
接平面距離を最小化する。

	Args:
		e: 状態方程式
		w0: 試行相の組成の初期値, [i]
		z: 原料組成, [i]
		T: 温度, K
		P: 圧力, Pa
		trial: 試行相の種類
		feed: 原料の相の種類
		opts: 計算条件

	Returns:
		最小化の結果

	Notes:
		変形した距離 tm(W) = 1 + Σ W_i (ln W_i + ln φ_i(w) - d_i - 1) を α_i = 2√W_i について
		BFGS 法で最小化する。勾配は √W_i (ln W_i + ln φ_i(w) - d_i) で厳密に与えられる。
*/
func TpdMin(e *eos.EoS, w0, z []float64, T, P float64, trial, feed eos.Phase, opts Options) (*TpdResult, error) {
	if err := opts.check(); err != nil {
		return nil, err
	}
	nc := e.NumComponents()
	if len(w0) != nc || len(z) != nc {
		return nil, fmt.Errorf("%w: tpd compositions must have %d entries", eos.ErrComposition, nc)
	}
	ta, err := e.TemperatureAux(T)
	if err != nil {
		return nil, err
	}
	d, err := _tpd_feed(e, ta, z, P, feed)
	if err != nil {
		return nil, err
	}
	return _tpd_min(e, ta, w0, d, P, trial, opts)
}

func _tpd_min(e *eos.EoS, ta *eos.TempAux, w0, d []float64, P float64, trial eos.Phase, opts Options) (*TpdResult, error) {
	nc := len(w0)

	alpha0 := make([]float64, nc)
	for i, w := range w0 {
		alpha0[i] = 2 * math.Sqrt(math.Max(w, 1e-12))
	}

	var rho float64
	var xass []float64
	W := make([]float64, nc)
	w := make([]float64, nc)

	var last_a []float64
	var last_tm float64
	last_grad := make([]float64, nc)
	var last_err error

	eval := func(a []float64) {
		if last_a != nil && floats.Equal(a, last_a) {
			return
		}
		last_a = append(last_a[:0], a...)
		for i := range a {
			W[i] = math.Max(a[i]*a[i]/4, w_floor)
		}
		wt := floats.Sum(W)
		for i := range W {
			w[i] = W[i] / wt
		}
		ph, err := e.PhaseAux(ta, P, w, trial, rho, xass)
		if err != nil {
			last_err = err
			last_tm = math.Inf(1)
			return
		}
		rho, xass = ph.Rho, ph.Assoc.X

		last_tm = 1
		for i := range W {
			g := math.Log(W[i]) + ph.LnPhi[i] - d[i]
			last_tm += W[i] * (g - 1)
			last_grad[i] = math.Sqrt(W[i]) * g
		}
	}

	problem := optimize.Problem{
		Func: func(a []float64) float64 {
			eval(a)
			return last_tm
		},
		Grad: func(grad, a []float64) {
			eval(a)
			copy(grad, last_grad)
		},
	}
	settings := &optimize.Settings{
		GradientThreshold: 1e-10,
		MajorIterations:   opts.MaxIter,
	}
	res, err := optimize.Minimize(problem, alpha0, settings, &optimize.BFGS{})
	if last_err != nil {
		return nil, last_err
	}
	if res == nil {
		return nil, fmt.Errorf("%w: tpd minimization: %v", ErrConvergence, err)
	}

	eval(res.X)
	out := &TpdResult{
		W:          append([]float64(nil), w...),
		Iterations: res.Stats.MajorIterations,
		Success:    err == nil,
	}
	// 正規化した組成での接平面距離 Σ w_i (g_i - ln ΣW)
	tpd := -math.Log(floats.Sum(W))
	for i := range W {
		tpd += w[i] * last_grad[i] / math.Sqrt(W[i])
	}
	out.Tpd = tpd
	return out, nil
}

/*
複数の初期値から接平面距離の極小点を探す。

	Args:
		e: 状態方程式
		nmin: 求める極小点の数
		z: 原料組成, [i]
		T: 温度, K
		P: 圧力, Pa
		trial: 試行相の種類
		feed: 原料の相の種類
		opts: 計算条件

	Returns:
		接平面距離の小さい順に並べた重複のない極小点（原料と同じ組成は除く）

	Notes:
		初期値は各成分に富む組成と Dirichlet 分布に従う乱数組成。
*/
func TpdMinimas(e *eos.EoS, nmin int, z []float64, T, P float64, trial, feed eos.Phase, opts Options) ([]TpdResult, error) {
	if err := opts.check(); err != nil {
		return nil, err
	}
	nc := e.NumComponents()
	if len(z) != nc {
		return nil, fmt.Errorf("%w: feed must have %d entries", eos.ErrComposition, nc)
	}
	if nmin <= 0 || nc < 2 {
		return nil, fmt.Errorf("%w: %d minima for %d components", eos.ErrSpecification, nmin, nc)
	}
	ta, err := e.TemperatureAux(T)
	if err != nil {
		return nil, err
	}
	d, err := _tpd_feed(e, ta, z, P, feed)
	if err != nil {
		return nil, err
	}

	starts := make([][]float64, 0, nc+4*nmin)
	for i := 0; i < nc; i++ {
		w := make([]float64, nc)
		for j := range w {
			w[j] = 0.01 / float64(nc-1)
		}
		w[i] = 0.99
		starts = append(starts, w)
	}
	alpha := make([]float64, nc)
	for i := range alpha {
		alpha[i] = 1
	}
	dir := distmv.NewDirichlet(alpha, rand.NewSource(tpd_seed))
	for k := 0; k < 4*nmin; k++ {
		starts = append(starts, dir.Rand(nil))
	}

	var found []TpdResult
	for _, w0 := range starts {
		r, err := _tpd_min(e, ta, w0, d, P, trial, opts)
		if err != nil {
			continue
		}
		if floats.Distance(r.W, z, 1) < tpd_unique_tol {
			continue
		}
		dup := slices.IndexFunc(found, func(f TpdResult) bool {
			return floats.Distance(f.W, r.W, 1) < tpd_unique_tol
		})
		if dup >= 0 {
			continue
		}
		found = append(found, *r)
	}

	slices.SortFunc(found, func(a, b TpdResult) bool {
		return a.Tpd < b.Tpd
	})
	if len(found) > nmin {
		found = found[:nmin]
	}
	return found, nil
}

/*
液液平衡の初期値として2つの異なる極小点を求める。

	Args:
		e: 状態方程式
		z: 原料組成, [i]
		T: 温度, K
		P: 圧力, Pa
		opts: 計算条件

	Returns:
		(1) 第1液相の組成
		(2) 第2液相の組成
*/
func LleInit(e *eos.EoS, z []float64, T, P float64, opts Options) ([]float64, []float64, error) {
	mins, err := TpdMinimas(e, 2, z, T, P, eos.Liquid, eos.Liquid, opts)
	if err != nil {
		return nil, nil, err
	}
	switch len(mins) {
	case 0:
		return nil, nil, fmt.Errorf("%w: no tpd minimum apart from the feed", ErrNoPhaseSplit)
	case 1:
		return mins[0].W, append([]float64(nil), z...), nil
	}
	return mins[0].W, mins[1].W, nil
}
