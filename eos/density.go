package eos

import (
	"fmt"
	"math"
)

// 密度探索の格子
const (
	n_grid_log = 40    // 低密度側（対数間隔）の点数
	n_grid_lin = 60    // 高密度側（等間隔）の点数
	eta_low    = 1e-14 // 最小の充填率
	eta_switch = 0.1   // 対数間隔から等間隔に切り替える充填率
	eta_top    = 0.74  // 最大の充填率
)

// 密度の収束判定（ln ρ の変化量）
const (
	rho_tol       = 1e-14 // Newton 法
	rho_tol_brent = 1e-12 // Brent 法
	rho_stall     = 1e-10 // 変化量が減らなくなった場合に許容する上限
)

// 充填率 ζ_3 を 1 とする分子数密度に対する比（ζ_3 = η のときの密度 = η / _zeta3_per_rho）
func (e *EoS) _zeta3_per_rho(ta *TempAux, x []float64) float64 {
	da := e.density_aux(ta, 1, x)
	return da.zeta[3]
}

/*
温度・圧力から密度を求める。

	Args:
		ta: 温度の補助量
		P: 圧力, Pa
		x: モル分率
		state: 液相または気相
		rho0: 密度の初期値, 1/m3（0 以下の場合は格子探索）
		X0: 非結合分率の初期値

	Returns:
		(1) 分子数密度, 1/m3
		(2) 非結合分率の計算結果
		(3) エラー

	Notes:
		格子上で P(ρ)-P の符号変化を探し、気相は最も低密度の根、液相は最も高密度の根を採る。
		根は Brent 法で求め、Newton 法で仕上げる。初期値がある場合は Newton 法を先に試みる。
*/
func (e *EoS) _density(ta *TempAux, P float64, x []float64, state Phase, rho0 float64, X0 []float64) (float64, AssocResult, error) {
	if rho0 > 0 {
		if rho, r, ok := e._density_newton(ta, P, x, rho0, X0); ok {
			return rho, r, nil
		}
	}
	return e._density_grid(ta, P, x, state, X0)
}

// 初期値からの Newton 法（ln ρ について）
func (e *EoS) _density_newton(ta *TempAux, P float64, x []float64, rho0 float64, X0 []float64) (float64, AssocResult, bool) {
	z3 := e._zeta3_per_rho(ta, x)
	rho_max := eta_max / z3

	rho := rho0
	X := X0
	prev := math.Inf(1)
	for it := 0; it < 50; it++ {
		p, _, r := e._pressure(ta, rho, x, X)
		X = r.X
		dpdrho := e._dpdrho(ta, rho, x, X)
		if !(dpdrho > 0) {
			return 0, r, false
		}
		dlnrho := -(p - P) / (rho * dpdrho)
		if dlnrho > 0.5 {
			dlnrho = 0.5
		} else if dlnrho < -0.5 {
			dlnrho = -0.5
		}
		rho *= math.Exp(dlnrho)
		if rho >= rho_max || math.IsNaN(rho) {
			return 0, r, false
		}
		step := math.Abs(dlnrho)
		if step < rho_tol || (step < rho_stall && step > 0.5*prev) {
			r = e._solve_assoc(ta, rho, x, X)
			return rho, r, true
		}
		prev = step
	}
	return 0, AssocResult{}, false
}

func (e *EoS) _density_grid(ta *TempAux, P float64, x []float64, state Phase, X0 []float64) (float64, AssocResult, error) {
	z3 := e._zeta3_per_rho(ta, x)

	etas := make([]float64, 0, n_grid_log+n_grid_lin)
	step := math.Log(eta_switch/eta_low) / float64(n_grid_log-1)
	for i := 0; i < n_grid_log; i++ {
		etas = append(etas, eta_low*math.Exp(step*float64(i)))
	}
	for i := 1; i <= n_grid_lin; i++ {
		etas = append(etas, eta_switch+(eta_top-eta_switch)*float64(i)/float64(n_grid_lin))
	}

	f := func(rho float64, X []float64) (float64, []float64) {
		p, _, r := e._pressure(ta, rho, x, X)
		return p - P, r.X
	}

	rhos := make([]float64, len(etas))
	fs := make([]float64, len(etas))
	X := X0
	for i, eta := range etas {
		rhos[i] = eta / z3
		fs[i], X = f(rhos[i], X)
	}

	// 最低密度でも圧力が高すぎる場合は理想気体
	if fs[0] > 0 {
		rho := P / (kb * ta.t)
		return rho, e._solve_assoc(ta, rho, x, X0), nil
	}

	lo := -1
	for i := 0; i+1 < len(etas); i++ {
		if fs[i] < 0 && fs[i+1] >= 0 {
			if lo < 0 || state == Liquid {
				lo = i
			}
			if state == Vapor {
				break
			}
		}
	}
	if lo < 0 {
		return 0, AssocResult{}, fmt.Errorf("%w: no density root at T=%g K, P=%g Pa", ErrDomain, ta.t, P)
	}

	var Xb []float64
	g := func(rho float64) float64 {
		v, xb := f(rho, Xb)
		Xb = xb
		return v
	}
	rho := _brent(g, rhos[lo], rhos[lo+1], fs[lo], fs[lo+1], rho_tol_brent, 100)

	// Newton 法で仕上げる（同じ根に留まる場合のみ）。
	if rn, r, ok := e._density_newton(ta, P, x, rho, Xb); ok && math.Abs(math.Log(rn/rho)) < 1e-6 {
		return rn, r, nil
	}
	return rho, e._solve_assoc(ta, rho, x, Xb), nil
}

/*
Brent 法による根の探索

	Args:
		f: 関数
		a, b: 根を挟む区間
		fa, fb: 区間端の関数値（符号が異なること）
		tol: 区間幅の許容値（相対）
		max_iter: 最大反復回数

	Returns:
		根
*/
func _brent(f func(float64) float64, a, b, fa, fb, tol float64, max_iter int) float64 {
	if fa == 0 {
		return a
	}
	if fb == 0 {
		return b
	}
	if math.Abs(fa) < math.Abs(fb) {
		a, b = b, a
		fa, fb = fb, fa
	}
	c, fc := a, fa
	d := b - a
	mflag := true

	for it := 0; it < max_iter; it++ {
		if fb == 0 || math.Abs(b-a) <= tol*math.Abs(b) {
			return b
		}

		var s float64
		if fa != fc && fb != fc {
			// 逆二次補間
			s = a*fb*fc/((fa-fb)*(fa-fc)) + b*fa*fc/((fb-fa)*(fb-fc)) + c*fa*fb/((fc-fa)*(fc-fb))
		} else {
			// 割線法
			s = b - fb*(b-a)/(fb-fa)
		}

		q := (3*a + b) / 4
		bisect := (s-q)*(s-b) > 0 ||
			(mflag && math.Abs(s-b) >= math.Abs(b-c)/2) ||
			(!mflag && math.Abs(s-b) >= math.Abs(c-d)/2) ||
			(mflag && math.Abs(b-c) < tol*math.Abs(b)) ||
			(!mflag && math.Abs(c-d) < tol*math.Abs(b))
		if bisect {
			s = (a + b) / 2
			mflag = true
		} else {
			mflag = false
		}

		fs := f(s)
		d = c
		c, fc = b, fb
		if fa*fs < 0 {
			b, fb = s, fs
		} else {
			a, fa = s, fs
		}
		if math.Abs(fa) < math.Abs(fb) {
			a, b = b, a
			fa, fb = fb, fa
		}
	}
	return b
}
