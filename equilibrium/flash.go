package equilibrium

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"

	"saft_gamma_mie/eos"
)

// 逐次代入から Gibbs エネルギー最小化へ切り替えるまでの反復回数
const n_flash_ss = 50

// Gibbs エネルギー最小化の収束判定（逃散度の対数の差）
const gibbs_tol = 1e-7

// 相の組成が一致したとみなす差
const trivial_tol = 1e-6

/*
等温等圧の2相フラッシュ計算

	Args:
		e: 状態方程式
		x0, y0: 第1相・第2相の組成の初期値, [i]
		z: 原料組成, [i]
		T: 温度, K
		P: 圧力, Pa
		states: 第1相・第2相の種類（液液平衡では両方とも液相）
		opts: 計算条件

	Returns:
		平衡計算の結果（Beta は各相の相分率）
		相分離しない場合は原料の1相を返す。

	Notes:
		Rachford-Rice 式による逐次代入の後、収束しなければ Gibbs エネルギーを BFGS 法で最小化し、
		その解から再び逐次代入を行う。
		途中で相の状態が求まらない場合は、それまでの結果とエラーを返す。
*/
func Flash(e *eos.EoS, x0, y0, z []float64, T, P float64, states [2]eos.Phase, opts Options) (*Solution, error) {
	if err := opts.check(); err != nil {
		return nil, err
	}
	nc := e.NumComponents()
	if len(x0) != nc || len(y0) != nc || len(z) != nc {
		return nil, fmt.Errorf("%w: flash compositions must have %d entries", eos.ErrComposition, nc)
	}
	ta, err := e.TemperatureAux(T)
	if err != nil {
		return nil, err
	}

	x := append([]float64(nil), x0...)
	y := append([]float64(nil), y0...)
	lnk := make([]float64, nc)
	K := make([]float64, nc)

	ph := [2]*eos.PhaseProps{}
	phase := func(i int, w []float64) error {
		var rho0 float64
		var xass []float64
		if ph[i] != nil {
			rho0, xass = ph[i].Rho, ph[i].Assoc.X
		}
		p, err := e.PhaseAux(ta, P, w, states[i], rho0, xass)
		if err != nil {
			return err
		}
		ph[i] = p
		return nil
	}

	sol := &Solution{Method: "ss", Error: math.Inf(1)}
	beta := 0.5

	// 逐次代入（相分離しない場合は true）
	ss := func(n int) (bool, error) {
		prev := math.Inf(1)
		for it := 1; it <= n; it++ {
			sol.Iterations++
			if err := phase(0, x); err != nil {
				return false, err
			}
			if err := phase(1, y); err != nil {
				return false, err
			}

			var dk float64
			for i := range K {
				l := ph[0].LnPhi[i] - ph[1].LnPhi[i]
				dk += math.Abs(l - lnk[i])
				lnk[i] = l
				K[i] = math.Exp(l)
			}

			var two bool
			beta, two = RachfordRice(z, K)
			if !two {
				return true, nil
			}
			for i := range z {
				x[i] = z[i] / (1 + beta*(K[i]-1))
				y[i] = K[i] * x[i]
			}
			floats.Scale(1/floats.Sum(x), x)
			floats.Scale(1/floats.Sum(y), y)

			if floats.Distance(x, y, 1) < trivial_tol {
				return true, nil
			}

			sol.Error = dk
			if it > 1 && (dk < opts.Tol || stalled(dk, prev, opts.Tol)) {
				sol.Success = true
				return false, nil
			}
			prev = dk
		}
		return false, nil
	}

	fail := func(err error) (*Solution, error) {
		return sol, fmt.Errorf("flash at T=%g K, P=%g Pa after %d iterations: %w", T, P, sol.Iterations, err)
	}

	single, err := ss(min_int(n_flash_ss, opts.MaxIter))
	if err != nil {
		return fail(err)
	}
	if single {
		return _single_phase(e, ta, z, P, states, sol)
	}

	if !sol.Success {
		beta, err = _gibbs_flash(e, ta, z, P, states, x, y, beta, opts, sol)
		if err != nil {
			return fail(err)
		}
		if floats.Distance(x, y, 1) < trivial_tol {
			return _single_phase(e, ta, z, P, states, sol)
		}
		if !sol.Success {
			// 最小化の解から逐次代入で仕上げる。
			sol.Method = "gibbs/ss"
			single, err = ss(n_flash_ss)
			if err != nil {
				return fail(err)
			}
			if single {
				return _single_phase(e, ta, z, P, states, sol)
			}
		}
		if err := phase(0, x); err != nil {
			return fail(err)
		}
		if err := phase(1, y); err != nil {
			return fail(err)
		}
	}

	if beta < 0 || beta > 1 {
		// 負のフラッシュの解は物理的な2相ではない。
		return _single_phase(e, ta, z, P, states, sol)
	}

	sol.Beta = []float64{1 - beta, beta}
	sol.Phases = []PhaseState{
		new_phase_state(T, P, x, ph[0], states[0]),
		new_phase_state(T, P, y, ph[1], states[1]),
	}
	return sol, nil
}

// 原料の1相を解とする。
func _single_phase(e *eos.EoS, ta *eos.TempAux, z []float64, P float64, states [2]eos.Phase, sol *Solution) (*Solution, error) {
	// 2つの相の種類のうち Gibbs エネルギーの低い方
	var best *eos.PhaseProps
	var label eos.Phase
	var gbest float64
	for _, s := range states {
		p, err := e.PhaseAux(ta, P, z, s, 0, nil)
		if err != nil {
			return sol, fmt.Errorf("single phase %s at T=%g K, P=%g Pa: %w", s, ta.T(), P, err)
		}
		g := floats.Dot(z, p.LnPhi)
		if best == nil || g < gbest {
			best, label, gbest = p, s, g
		}
	}
	sol.Method += "/single-phase"
	sol.Success = true
	sol.Error = 0
	sol.Beta = []float64{1}
	sol.Phases = []PhaseState{new_phase_state(ta.T(), P, z, best, label)}
	return sol, nil
}

func logistic(u float64) float64 {
	return 1 / (1 + math.Exp(-u))
}

/*
Gibbs エネルギー最小化による2相フラッシュ

	第2相のモル数 v_i = z_i s(u_i) （s はロジスティック関数）を変数とし、
	G/RT = Σ l_i ln(x_i φ_i(x)) + Σ v_i ln(y_i φ_i(y)) を BFGS 法で最小化する。
	x, y は解で上書きする。

	Returns:
		第2相の相分率
*/
func _gibbs_flash(e *eos.EoS, ta *eos.TempAux, z []float64, P float64, states [2]eos.Phase,
	x, y []float64, beta float64, opts Options, sol *Solution) (float64, error) {
	nc := len(z)
	beta = math.Max(1e-6, math.Min(1-1e-6, beta))

	u0 := make([]float64, nc)
	for i := range z {
		s := beta * y[i] / z[i]
		s = math.Max(1e-10, math.Min(1-1e-10, s))
		u0[i] = math.Log(s / (1 - s))
	}

	var rho [2]float64
	var xass [2][]float64
	l := make([]float64, nc)
	v := make([]float64, nc)
	xa := make([]float64, nc)
	ya := make([]float64, nc)

	// 直前に評価した点の値
	var last_u []float64
	var last_g float64
	last_grad := make([]float64, nc)
	var last_err error

	eval := func(u []float64) {
		if last_u != nil && floats.Equal(u, last_u) {
			return
		}
		last_u = append(last_u[:0], u...)
		for i := range u {
			v[i] = z[i] * logistic(u[i])
			l[i] = z[i] - v[i]
		}
		lt, vt := floats.Sum(l), floats.Sum(v)
		for i := range u {
			xa[i] = l[i] / lt
			ya[i] = v[i] / vt
		}
		px, err := e.PhaseAux(ta, P, xa, states[0], rho[0], xass[0])
		if err != nil {
			last_err = err
			last_g = math.Inf(1)
			return
		}
		py, err := e.PhaseAux(ta, P, ya, states[1], rho[1], xass[1])
		if err != nil {
			last_err = err
			last_g = math.Inf(1)
			return
		}
		rho[0], xass[0] = px.Rho, px.Assoc.X
		rho[1], xass[1] = py.Rho, py.Assoc.X

		last_g = 0
		for i := range u {
			fx := math.Log(xa[i]) + px.LnPhi[i]
			fy := math.Log(ya[i]) + py.LnPhi[i]
			last_g += l[i]*fx + v[i]*fy
			s := logistic(u[i])
			last_grad[i] = (fy - fx) * z[i] * s * (1 - s)
		}
	}

	problem := optimize.Problem{
		Func: func(u []float64) float64 {
			eval(u)
			return last_g
		},
		Grad: func(grad, u []float64) {
			eval(u)
			copy(grad, last_grad)
		},
	}
	settings := &optimize.Settings{
		GradientThreshold: 1e-12,
		MajorIterations:   opts.MaxIter,
	}
	res, err := optimize.Minimize(problem, u0, settings, &optimize.BFGS{})
	if last_err != nil {
		return 0, last_err
	}
	sol.Method = "gibbs"
	if res == nil {
		return 0, fmt.Errorf("%w: gibbs minimization: %v", ErrConvergence, err)
	}
	sol.Iterations += res.Stats.MajorIterations

	eval(res.X)
	copy(x, xa)
	copy(y, ya)

	// 逃散度の差
	var df float64
	for i := range last_grad {
		s := logistic(res.X[i])
		df += math.Abs(last_grad[i] / (z[i] * s * (1 - s)))
	}
	sol.Error = df
	sol.Success = df < gibbs_tol
	return floats.Sum(v), nil
}

func min_int(a, b int) int {
	if a < b {
		return a
	}
	return b
}
