package equilibrium

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"saft_gamma_mie/eos"
)

// 平衡比の温度感度の目安 d ln K/d(1/T), K（蒸発エンタルピー/R 程度）
const dlnk_dinvt = 4000.

/*
沸点圧力を求める（温度・液相組成を与える）。

	Args:
		e: 状態方程式
		x: 液相組成, [i]
		T: 温度, K
		init: 初期値（P は必須、X は気相組成の初期値）
		opts: 計算条件

	Returns:
		平衡計算の結果（Phases[0] が液相、Phases[1] が気相）
*/
func BubblePy(e *eos.EoS, x []float64, T float64, init Init, opts Options) (*Solution, error) {
	init.T = T
	return _saturation(e, x, init, opts, true, false)
}

/*
沸点温度を求める（圧力・液相組成を与える）。

	Args:
		e: 状態方程式
		x: 液相組成, [i]
		P: 圧力, Pa
		init: 初期値（T は必須、X は気相組成の初期値）
		opts: 計算条件
*/
func BubbleTy(e *eos.EoS, x []float64, P float64, init Init, opts Options) (*Solution, error) {
	init.P = P
	return _saturation(e, x, init, opts, true, true)
}

/*
露点圧力を求める（温度・気相組成を与える）。

	Args:
		e: 状態方程式
		y: 気相組成, [i]
		T: 温度, K
		init: 初期値（P は必須、X は液相組成の初期値）
		opts: 計算条件
*/
func DewPx(e *eos.EoS, y []float64, T float64, init Init, opts Options) (*Solution, error) {
	init.T = T
	return _saturation(e, y, init, opts, false, false)
}

/*
露点温度を求める（圧力・気相組成を与える）。

	Args:
		e: 状態方程式
		y: 気相組成, [i]
		P: 圧力, Pa
		init: 初期値（T は必須、X は液相組成の初期値）
		opts: 計算条件
*/
func DewTx(e *eos.EoS, y []float64, P float64, init Init, opts Options) (*Solution, error) {
	init.P = P
	return _saturation(e, y, init, opts, false, true)
}

/*
沸点・露点の共通計算

	Notes:
		平衡比の逐次代入で共存相の組成を更新し、外側で P または T を更新する。
		圧力は P ← P S（沸点）、P ← P / S（露点）、温度は ln S の割線法。
		S = Σ K_i x_i（沸点）、Σ y_i / K_i（露点）
*/
func _saturation(e *eos.EoS, z []float64, init Init, opts Options, bubble, solve_t bool) (*Solution, error) {
	if err := opts.check(); err != nil {
		return nil, err
	}
	nc := e.NumComponents()
	if len(z) != nc {
		return nil, fmt.Errorf("%w: %d fractions for %d components", eos.ErrComposition, len(z), nc)
	}
	if !(init.T > 0) || !(init.P > 0) {
		return nil, fmt.Errorf("%w: saturation point needs positive T and P guesses", eos.ErrSpecification)
	}

	T, P := init.T, init.P
	w := append([]float64(nil), z...)
	if len(init.X) == nc {
		copy(w, init.X)
	}

	var rhol, rhov float64
	var xl, xv []float64
	var L, V *eos.PhaseProps

	// L, V を評価した温度・圧力・共存相の組成
	var t_eval, p_eval float64
	var w_eval []float64

	// 前回の温度と ln S（割線法）
	var t_prev, f_prev float64

	sol := &Solution{Error: math.Inf(1)}
	switch {
	case bubble && solve_t:
		sol.Method = "bubbleTy"
	case bubble:
		sol.Method = "bubblePy"
	case solve_t:
		sol.Method = "dewTx"
	default:
		sol.Method = "dewPx"
	}

	phases := func() {
		if L == nil {
			return
		}
		liq, vap := z, w_eval
		if !bubble {
			liq, vap = w_eval, z
		}
		sol.Phases = []PhaseState{
			new_phase_state(t_eval, p_eval, liq, L, eos.Liquid),
			new_phase_state(t_eval, p_eval, vap, V, eos.Vapor),
		}
	}
	fail := func(err error) (*Solution, error) {
		phases()
		return sol, fmt.Errorf("%s at T=%g K, P=%g Pa after %d iterations: %w", sol.Method, T, P, sol.Iterations, err)
	}

	prev := math.Inf(1)
	for it := 1; it <= opts.MaxIter; it++ {
		sol.Iterations = it

		ta, err := e.TemperatureAux(T)
		if err != nil {
			return fail(err)
		}

		liq, vap := z, w
		if !bubble {
			liq, vap = w, z
		}
		l, err := e.PhaseAux(ta, P, liq, eos.Liquid, rhol, xl)
		if err != nil {
			return fail(err)
		}
		v, err := e.PhaseAux(ta, P, vap, eos.Vapor, rhov, xv)
		if err != nil {
			return fail(err)
		}
		L, V = l, v
		t_eval, p_eval = T, P
		w_eval = append(w_eval[:0], w...)
		rhol, rhov, xl, xv = L.Rho, V.Rho, L.Assoc.X, V.Assoc.X

		wn := make([]float64, nc)
		for i := range wn {
			k := math.Exp(L.LnPhi[i] - V.LnPhi[i])
			if bubble {
				wn[i] = k * z[i]
			} else {
				wn[i] = z[i] / k
			}
		}
		S := floats.Sum(wn)
		floats.Scale(1/S, wn)

		f := math.Log(S)
		sol.Error = math.Abs(f) + floats.Distance(wn, w, 1)
		copy(w, wn)
		if sol.Error < opts.Tol || stalled(sol.Error, prev, opts.Tol) {
			sol.Success = true
			break
		}
		prev = sol.Error

		if !solve_t {
			if bubble {
				P *= S
			} else {
				P /= S
			}
			continue
		}

		var tn float64
		if it == 1 || f == f_prev {
			// ln S ≈ ±(ΔH/R)(1/T_sat - 1/T)
			sign := 1.
			if !bubble {
				sign = -1
			}
			tn = T - sign*f*T*T/dlnk_dinvt
		} else {
			tn = T - f*(T-t_prev)/(f-f_prev)
		}
		tn = math.Max(0.8*T, math.Min(1.2*T, tn))
		t_prev, f_prev = T, f
		T = tn
	}

	phases()
	return sol, nil
}
