package eos

import (
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
)

// 5点中心差分（1階）
var five_point = fd.Formula{
	Stencil:    []fd.Point{{Loc: -2, Coeff: 1. / 12}, {Loc: -1, Coeff: -2. / 3}, {Loc: 1, Coeff: 2. / 3}, {Loc: 2, Coeff: -1. / 12}},
	Derivative: 1,
	Step:       1e-3,
}

// 5点中心差分（2階）
var five_point2 = fd.Formula{
	Stencil:    []fd.Point{{Loc: -2, Coeff: -1. / 12}, {Loc: -1, Coeff: 4. / 3}, {Loc: 0, Coeff: -5. / 2}, {Loc: 1, Coeff: 4. / 3}, {Loc: 2, Coeff: -1. / 12}},
	Derivative: 2,
	Step:       1e-3,
}

// 差分の刻み
const (
	h_lnrho = 1e-3 // ln ρ
	h_x     = 1e-3 // モル分率
	h_t     = 1e-4 // 温度（相対）
)

/*
非結合分率を固定した残余 Helmholtz エネルギー

	Args:
		ta: 温度の補助量
		rho: 分子数密度, 1/m3
		x: モル分率
		X: 非結合分率（会合しない場合は nil）

	Returns:
		a_res, 無次元 (1分子あたり /kT)

	Notes:
		会合項は Q 関数で評価する。X が解であれば a_assoc と一致する。
*/
func (e *EoS) _ares_fixed(ta *TempAux, rho float64, x []float64, X []float64) float64 {
	da := e.density_aux(ta, rho, x)
	a := e._get_a_mono(ta, da) + e._get_a_chain(ta, da)
	if e.params.associating() {
		a += _get_q(rho, e._site_numbers(x), e._get_delta(ta, da), X)
	}
	return a
}

// 非結合分率を解く（会合しない場合は収束済みの空の結果）。
func (e *EoS) _solve_assoc(ta *TempAux, rho float64, x []float64, X0 []float64) AssocResult {
	if !e.params.associating() {
		return AssocResult{Converged: true}
	}
	da := e.density_aux(ta, rho, x)
	return _solve_xass(rho, e._site_numbers(x), e._get_delta(ta, da), X0, e.opts.Assoc)
}

// 残余 Helmholtz エネルギー（非結合分率を解く）
func (e *EoS) _ares(ta *TempAux, rho float64, x []float64, X0 []float64) (float64, AssocResult) {
	r := e._solve_assoc(ta, rho, x, X0)
	return e._ares_fixed(ta, rho, x, r.X), r
}

/*
圧縮因子

	Z = 1 + ρ (∂a/∂ρ)_T,x

	Notes:
		Q 関数は X について停留するため、X を固定した1階微分は厳密。
*/
func (e *EoS) _z(ta *TempAux, rho float64, x []float64, X []float64) float64 {
	f := func(lr float64) float64 {
		return e._ares_fixed(ta, math.Exp(lr), x, X)
	}
	return 1 + fd.Derivative(f, math.Log(rho), &fd.Settings{Formula: five_point, Step: h_lnrho})
}

/*
残余化学ポテンシャル

	Returns:
		μ_i^res/kT = ∂(n a_res)/∂n_i (T, V 一定), [i]

	Notes:
		μ_i^res/kT = a + (Z - 1) + ∂a/∂x_i - Σ_j x_j ∂a/∂x_j
		組成微分は密度を固定して取る。
*/
func (e *EoS) _mu_res(ta *TempAux, rho float64, x []float64, X []float64) []float64 {
	a := e._ares_fixed(ta, rho, x, X)
	z := e._z(ta, rho, x, X)
	f := func(xs []float64) float64 {
		return e._ares_fixed(ta, rho, xs, X)
	}
	mu := fd.Gradient(nil, f, x, &fd.Settings{Formula: five_point, Step: h_x})
	dot := floats.Dot(x, mu)
	for i := range mu {
		mu[i] += a + z - 1 - dot
	}
	return mu
}

/*
圧力

	Returns:
		(1) 圧力, Pa
		(2) 圧縮因子
		(3) 非結合分率の計算結果
*/
func (e *EoS) _pressure(ta *TempAux, rho float64, x []float64, X0 []float64) (float64, float64, AssocResult) {
	r := e._solve_assoc(ta, rho, x, X0)
	z := e._z(ta, rho, x, r.X)
	return rho * kb * ta.t * z, z, r
}

// 圧力の分子数密度微分, Pa m3
func (e *EoS) _dpdrho(ta *TempAux, rho float64, x []float64, X0 []float64) float64 {
	f := func(lr float64) float64 {
		P, _, _ := e._pressure(ta, math.Exp(lr), x, X0)
		return P
	}
	return fd.Derivative(f, math.Log(rho), &fd.Settings{Formula: five_point, Step: h_lnrho}) / rho
}

/*
残余 Helmholtz エネルギーの温度微分（密度一定）

	Returns:
		(1) a_res
		(2) ∂a_res/∂T, 1/K
		(3) ∂²a_res/∂T², 1/K2
*/
func (e *EoS) _ares_dt(T, rho float64, x []float64, X0 []float64) (float64, float64, float64) {
	ta := e.temperature_aux(T)
	a, r := e._ares(ta, rho, x, X0)

	fixed := func(t float64) float64 {
		return e._ares_fixed(e.temperature_aux(t), rho, x, r.X)
	}
	solved := func(t float64) float64 {
		v, _ := e._ares(e.temperature_aux(t), rho, x, r.X)
		return v
	}
	h := h_t * T
	da := fd.Derivative(fixed, T, &fd.Settings{Formula: five_point, Step: h})
	d2a := fd.Derivative(solved, T, &fd.Settings{Formula: five_point2, Step: 10 * h, OriginKnown: true, OriginValue: a})
	return a, da, d2a
}
