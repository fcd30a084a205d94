package equilibrium

import (
	"fmt"
	"math"

	"saft_gamma_mie/eos"
)

// スピノーダル探索の格子
const (
	n_spinodal_log = 50
	n_spinodal_lin = 60
	eta_spin_low   = 1e-10
	eta_spin_mid   = 0.1
	eta_spin_top   = 0.72
	eta_close      = 0.7405
)

// 圧力の下限のスピノーダル上限に対する比
const p_floor_ratio = 1e-15

/*
純物質の飽和圧力を求める。

	Args:
		e: 状態方程式（純物質）
		T: 温度, K
		init: 初期値（P, VL, VV, XassL, XassV。0 または nil は推定）
		opts: 計算条件

	Returns:
		平衡計算の結果（Phases[0] が液相、Phases[1] が気相）

	Notes:
		ln P について Newton 法 ln P ← ln P + (ln φ_L - ln φ_V)/(Z_V - Z_L) を用いる。
		共存する2根が得られない場合はスピノーダル圧力で挟んだ区間に戻す。
*/
func Psat(e *eos.EoS, T float64, init Init, opts Options) (*Solution, error) {
	if e.NumComponents() != 1 {
		return nil, fmt.Errorf("%w: psat requires a pure fluid, got %d components", eos.ErrSpecification, e.NumComponents())
	}
	if err := opts.check(); err != nil {
		return nil, err
	}
	ta, err := e.TemperatureAux(T)
	if err != nil {
		return nil, err
	}
	return _psat(e, ta, init, opts)
}

func _psat(e *eos.EoS, ta *eos.TempAux, init Init, opts Options) (*Solution, error) {
	T := ta.T()
	x := []float64{1}

	var lo, hi float64
	bracket := func() error {
		if hi > 0 {
			return nil
		}
		var err error
		lo, hi, err = _spinodal_bracket(e, ta, x)
		return err
	}

	P := init.P
	if !(P > 0) {
		if err := bracket(); err != nil {
			return nil, err
		}
		P = hi / 2
	}

	rhol0, rhov0 := rho_of(init.VL), rho_of(init.VV)
	xl, xv := init.XassL, init.XassV

	sol := &Solution{Method: "newton", Error: math.Inf(1)}
	var L, V *eos.PhaseProps
	p_eval := P // L, V を評価した圧力
	prev := math.Inf(1)
	for it := 1; it <= opts.MaxIter; it++ {
		sol.Iterations = it

		l, errl := e.PhaseAux(ta, P, x, eos.Liquid, rhol0, xl)
		v, errv := e.PhaseAux(ta, P, x, eos.Vapor, rhov0, xv)
		if errl != nil || errv != nil || math.Abs(l.Rho-v.Rho) < 1e-6*l.Rho {
			// 2根が共存しない圧力、または初期値から同じ根に収束した。
			if err := bracket(); err != nil {
				return nil, err
			}
			sol.Method = "bracket"
			if P <= lo || P >= hi || (rhol0 == 0 && rhov0 == 0) {
				P = math.Sqrt(lo * hi)
			}
			rhol0, rhov0, xl, xv = 0, 0, nil, nil
			continue
		}
		L, V, p_eval = l, v, P

		f := L.LnPhi[0] - V.LnPhi[0]
		sol.Error = math.Abs(f)
		rhol0, rhov0 = L.Rho, V.Rho
		xl, xv = L.Assoc.X, V.Assoc.X
		if sol.Error < opts.Tol || stalled(sol.Error, prev, opts.Tol) {
			sol.Success = true
			break
		}
		prev = sol.Error

		if hi > 0 {
			if f > 0 {
				lo = math.Max(lo, P)
			} else {
				hi = math.Min(hi, P)
			}
		}

		dlnp := f / (V.Z - L.Z)
		dlnp = math.Max(-2, math.Min(2, dlnp))
		Pn := P * math.Exp(dlnp)
		if hi > 0 && (Pn <= lo || Pn >= hi) {
			Pn = math.Sqrt(lo * hi)
		}
		P = Pn
	}

	if L == nil {
		return sol, nil
	}
	if P != p_eval {
		// 最後の更新後の圧力で2相を評価し直す。
		l, errl := e.PhaseAux(ta, P, x, eos.Liquid, rhol0, xl)
		v, errv := e.PhaseAux(ta, P, x, eos.Vapor, rhov0, xv)
		if errl == nil && errv == nil && math.Abs(l.Rho-v.Rho) >= 1e-6*l.Rho {
			L, V, p_eval = l, v, P
			sol.Error = math.Abs(L.LnPhi[0] - V.LnPhi[0])
			sol.Success = sol.Error < opts.Tol
		}
	}
	sol.Phases = []PhaseState{
		new_phase_state(T, p_eval, x, L, eos.Liquid),
		new_phase_state(T, p_eval, x, V, eos.Vapor),
	}
	return sol, nil
}

/*
スピノーダル圧力で飽和圧力を挟む区間を求める。

	Returns:
		(1) 液相スピノーダル圧力（負の場合は下限値）, Pa
		(2) 気相スピノーダル圧力, Pa
*/
func _spinodal_bracket(e *eos.EoS, ta *eos.TempAux, x []float64) (float64, float64, error) {
	rho_close := e.MaxDensityAux(ta, x)

	etas := make([]float64, 0, n_spinodal_log+n_spinodal_lin)
	step := math.Log(eta_spin_mid/eta_spin_low) / float64(n_spinodal_log-1)
	for i := 0; i < n_spinodal_log; i++ {
		etas = append(etas, eta_spin_low*math.Exp(step*float64(i)))
	}
	for i := 1; i <= n_spinodal_lin; i++ {
		etas = append(etas, eta_spin_mid+(eta_spin_top-eta_spin_mid)*float64(i)/float64(n_spinodal_lin))
	}

	var xass []float64
	p_of := func(rho float64) float64 {
		P, r, err := e.PressureAux(ta, rho, x, xass)
		if err != nil {
			return math.NaN()
		}
		xass = r.X
		return P
	}

	rhos := make([]float64, len(etas))
	ps := make([]float64, len(etas))
	for i, eta := range etas {
		rhos[i] = eta / eta_close * rho_close
		ps[i] = p_of(rhos[i])
	}

	imax := -1
	for i := 1; i+1 < len(ps); i++ {
		if ps[i] >= ps[i-1] && ps[i] > ps[i+1] {
			imax = i
			break
		}
	}
	if imax < 0 {
		return 0, 0, fmt.Errorf("%w: pressure is monotonic in density at T=%g K", ErrNoPhaseSplit, ta.T())
	}
	imin := imax + 1
	for imin+1 < len(ps) && ps[imin+1] < ps[imin] {
		imin++
	}
	if imin+1 >= len(ps) {
		return 0, 0, fmt.Errorf("%w: no liquid spinodal at T=%g K", ErrNoPhaseSplit, ta.T())
	}

	xass = nil
	hi := -_golden(func(r float64) float64 { return -p_of(r) }, rhos[imax-1], rhos[imax+1])
	xass = nil
	lo := _golden(p_of, rhos[imin-1], rhos[imin+1])

	if !(hi > 0) || lo >= hi {
		return 0, 0, fmt.Errorf("%w: degenerate van der Waals loop at T=%g K", ErrNoPhaseSplit, ta.T())
	}
	lo = math.Max(lo, hi*p_floor_ratio)
	return lo, hi, nil
}

// 黄金分割法による最小値
func _golden(f func(float64) float64, a, b float64) float64 {
	const g = 0.6180339887498949
	c := b - g*(b-a)
	d := a + g*(b-a)
	fc, fd := f(c), f(d)
	for i := 0; i < 60 && (b-a) > 1e-10*math.Abs(b); i++ {
		if fc < fd {
			b, d, fd = d, c, fc
			c = b - g*(b-a)
			fc = f(c)
		} else {
			a, c, fc = c, d, fd
			d = a + g*(b-a)
			fd = f(d)
		}
	}
	return math.Min(fc, fd)
}

/*
純物質の飽和温度を求める。

	Args:
		e: 状態方程式（純物質）
		P: 圧力, Pa
		T0: 温度の初期値, K
		opts: 計算条件

	Returns:
		平衡計算の結果

	Notes:
		ln psat を 1/T の関数として割線法で解く。
*/
func Tsat(e *eos.EoS, P, T0 float64, opts Options) (*Solution, error) {
	if e.NumComponents() != 1 {
		return nil, fmt.Errorf("%w: tsat requires a pure fluid", eos.ErrSpecification)
	}
	if err := opts.check(); err != nil {
		return nil, err
	}
	if !(P > 0) || !(T0 > 0) {
		return nil, fmt.Errorf("%w: P=%g Pa, T0=%g K", eos.ErrDomain, P, T0)
	}

	var prev *Solution
	eval := func(T float64) (float64, *Solution, error) {
		init := Init{}
		if prev != nil {
			init = Init{P: prev.P(), VL: prev.Phases[0].V, VV: prev.Phases[1].V, XassL: prev.Phases[0].Xass, XassV: prev.Phases[1].Xass}
		}
		s, err := Psat(e, T, init, opts)
		if err != nil {
			return 0, nil, err
		}
		if !s.Success || len(s.Phases) == 0 {
			return 0, s, s.Err()
		}
		return math.Log(s.P()) - math.Log(P), s, nil
	}

	u1 := 1 / T0
	f1, s1, err := eval(T0)
	if err != nil {
		return nil, err
	}
	prev = s1

	u2 := u1 * 0.99
	f2, s2, err := eval(1 / u2)
	for err != nil && u2 < u1*0.9999 {
		// 臨界温度を超えた場合は刻みを縮める。
		u2 = (u1 + u2) / 2
		f2, s2, err = eval(1 / u2)
	}
	if err != nil {
		return nil, err
	}
	prev = s2

	sol := &Solution{Method: "secant", Error: math.Abs(f2)}
	for it := 1; it <= opts.MaxIter; it++ {
		sol.Iterations = it
		if math.Abs(f2) < opts.Tol || math.Abs(u2-u1) < opts.Tol*u2 {
			sol.Success = true
			break
		}
		u3 := u2 - f2*(u2-u1)/(f2-f1)
		f3, s3, err := eval(1 / u3)
		for err != nil && math.Abs(u3-u2) > opts.Tol*u2 {
			u3 = (u2 + u3) / 2
			f3, s3, err = eval(1 / u3)
		}
		if err != nil {
			break
		}
		u1, f1 = u2, f2
		u2, f2, s2 = u3, f3, s3
		prev = s2
		sol.Error = math.Abs(f2)
	}
	sol.Phases = s2.Phases
	return sol, nil
}
