package eos

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"
)

/*
温度・圧力・組成から求めた相の状態

	Rho: モル密度, mol/m3
	Z: 圧縮因子
	LnPhi: 逃散度係数の対数, [i]
	Assoc: 非結合分率の計算結果（次の計算の初期値に用いる）
*/
type PhaseProps struct {
	Rho   float64
	Z     float64
	LnPhi []float64
	Assoc AssocResult
}

// モル体積, m3/mol
func (p *PhaseProps) V() float64 {
	return 1 / p.Rho
}

/*
温度の補助量を用いて相の状態を求める。

	Args:
		ta: 温度の補助量
		P: 圧力, Pa
		x: モル分率
		state: 液相または気相
		rho0: 密度の初期値, mol/m3（0 の場合は探索）
		xass0: 非結合分率の初期値（nil 可）

	Returns:
		相の状態
*/
func (e *EoS) PhaseAux(ta *TempAux, P float64, x []float64, state Phase, rho0 float64, xass0 []float64) (*PhaseProps, error) {
	if err := e.check_x(x); err != nil {
		return nil, err
	}
	if err := check_pressure(P); err != nil {
		return nil, err
	}
	if !state.valid() {
		return nil, fmt.Errorf("%w: phase %q", ErrSpecification, string(state))
	}

	rho, r, err := e._density(ta, P, x, state, rho0*Na, xass0)
	if err != nil {
		return nil, err
	}
	// ln Z は指定した圧力から求める。
	z := P / (rho * kb * ta.t)
	mu := e._mu_res(ta, rho, x, r.X)
	lnz := math.Log(z)
	for i := range mu {
		mu[i] -= lnz
	}
	return &PhaseProps{Rho: rho / Na, Z: z, LnPhi: mu, Assoc: r}, nil
}

/*
密度を求める。

	Args:
		T: 温度, K
		P: 圧力, Pa
		x: モル分率
		state: 液相または気相
		rho0: 密度の初期値, mol/m3（0 の場合は探索）

	Returns:
		モル密度, mol/m3
*/
func (e *EoS) Density(T, P float64, x []float64, state Phase, rho0 float64) (float64, error) {
	ta, err := e.TemperatureAux(T)
	if err != nil {
		return 0, err
	}
	if err := e.check_x(x); err != nil {
		return 0, err
	}
	if err := check_pressure(P); err != nil {
		return 0, err
	}
	if !state.valid() {
		return 0, fmt.Errorf("%w: phase %q", ErrSpecification, string(state))
	}
	rho, _, err := e._density(ta, P, x, state, rho0*Na, nil)
	if err != nil {
		return 0, err
	}
	return rho / Na, nil
}

/*
逃散度係数を求める。

	Args:
		T: 温度, K
		P: 圧力, Pa
		x: モル分率
		state: 液相または気相
		rho0: 密度の初期値, mol/m3（0 の場合は探索）

	Returns:
		(1) 逃散度係数の対数, [i]
		(2) モル体積, m3/mol
*/
func (e *EoS) LogFugacity(T, P float64, x []float64, state Phase, rho0 float64) ([]float64, float64, error) {
	ta, err := e.TemperatureAux(T)
	if err != nil {
		return nil, 0, err
	}
	ph, err := e.PhaseAux(ta, P, x, state, rho0, nil)
	if err != nil {
		return nil, 0, err
	}
	return ph.LnPhi, ph.V(), nil
}

// 温度・密度の検査を行い、温度の補助量を返す。
func (e *EoS) _prepare(T, rho float64, x []float64) (*TempAux, error) {
	ta, err := e.TemperatureAux(T)
	if err != nil {
		return nil, err
	}
	if err := e.check_x(x); err != nil {
		return nil, err
	}
	if err := e.check_state(ta, rho, x); err != nil {
		return nil, err
	}
	return ta, nil
}

/*
残余 Helmholtz エネルギー

	Args:
		T: 温度, K
		rho: モル密度, mol/m3
		x: モル分率

	Returns:
		a_res = A_res/(NkT), 無次元
*/
func (e *EoS) Ares(T, rho float64, x []float64) (float64, error) {
	ta, err := e._prepare(T, rho, x)
	if err != nil {
		return 0, err
	}
	a, _ := e._ares(ta, rho*Na, x, nil)
	return a, check_finite(T, rho, a)
}

/*
圧力

	Args:
		T: 温度, K
		rho: モル密度, mol/m3
		x: モル分率

	Returns:
		圧力, Pa
*/
func (e *EoS) Pressure(T, rho float64, x []float64) (float64, error) {
	ta, err := e._prepare(T, rho, x)
	if err != nil {
		return 0, err
	}
	P, _, _ := e._pressure(ta, rho*Na, x, nil)
	return P, check_finite(T, rho, P)
}

// 圧縮因子
func (e *EoS) Compressibility(T, rho float64, x []float64) (float64, error) {
	ta, err := e._prepare(T, rho, x)
	if err != nil {
		return 0, err
	}
	_, z, _ := e._pressure(ta, rho*Na, x, nil)
	return z, check_finite(T, rho, z)
}

// 圧力のモル密度微分, Pa m3/mol
func (e *EoS) DPdRho(T, rho float64, x []float64) (float64, error) {
	ta, err := e._prepare(T, rho, x)
	if err != nil {
		return 0, err
	}
	r := e._solve_assoc(ta, rho*Na, x, nil)
	return e._dpdrho(ta, rho*Na, x, r.X) * Na, nil
}

/*
化学ポテンシャル

	Args:
		T: 温度, K
		rho: モル密度, mol/m3
		x: モル分率

	Returns:
		化学ポテンシャル, J/mol, [i]

	Notes:
		理想気体の基準は単位モル密度 (1 mol/m3)。
*/
func (e *EoS) ChemicalPotential(T, rho float64, x []float64) ([]float64, error) {
	ta, err := e._prepare(T, rho, x)
	if err != nil {
		return nil, err
	}
	r := e._solve_assoc(ta, rho*Na, x, nil)
	mu := e._mu_res(ta, rho*Na, x, r.X)
	if err := check_finite(T, rho, mu...); err != nil {
		return nil, err
	}
	for i := range mu {
		mu[i] = R * T * (mu[i] + math.Log(rho*x[i]))
	}
	return mu, nil
}

/*
各成分の密度を与えたときの局所的な状態

	F: Helmholtz エネルギー密度, J/m3
	Mu: 化学ポテンシャル, J/mol, [i]
	P: 圧力, Pa
	Assoc: 非結合分率の計算結果
*/
type LocalProps struct {
	F     float64
	Mu    []float64
	P     float64
	Assoc AssocResult
}

/*
グランドポテンシャル密度の平衡値からの差

	Args:
		rho: 各成分のモル密度, mol/m3, [i]
		mu_eq: 平衡状態の化学ポテンシャル, J/mol, [i]
		P_eq: 平衡圧力, Pa

	Returns:
		ΔΩ = f - Σ ρ_i μ_i^eq + P_eq, J/m3
*/
func (l *LocalProps) DeltaOmega(rho []float64, mu_eq []float64, P_eq float64) float64 {
	om := l.F + P_eq
	for i, r := range rho {
		om -= r * mu_eq[i]
	}
	return om
}

/*
各成分の密度から局所的な状態を求める。

	Args:
		ta: 温度の補助量
		rho: 各成分のモル密度, mol/m3, [i]
		xass0: 非結合分率の初期値（nil 可）

	Returns:
		局所的な状態
*/
func (e *EoS) LocalAux(ta *TempAux, rho []float64, xass0 []float64) (*LocalProps, error) {
	if len(rho) != e.params.nc() {
		return nil, fmt.Errorf("%w: %d densities for %d components", ErrComposition, len(rho), e.params.nc())
	}
	var rt float64
	for _, r := range rho {
		if !(r > 0) || math.IsInf(r, 0) {
			return nil, fmt.Errorf("%w: component density %g mol/m3", ErrDomain, r)
		}
		rt += r
	}
	x := make([]float64, len(rho))
	for i, r := range rho {
		x[i] = r / rt
	}
	if err := e.check_state(ta, rt, x); err != nil {
		return nil, err
	}

	a, res := e._ares(ta, rt*Na, x, xass0)
	mu := e._mu_res(ta, rt*Na, x, res.X)

	rtt := R * ta.t
	l := &LocalProps{Mu: mu, Assoc: res}
	l.F = rtt * rt * a
	var sum_mu float64
	for i, r := range rho {
		l.F += rtt * r * (math.Log(r) - 1)
		sum_mu += x[i] * mu[i]
		mu[i] = rtt * (mu[i] + math.Log(r))
	}
	l.P = rtt * rt * (1 + sum_mu - a)
	return l, nil
}

/*
Helmholtz エネルギー密度

	Args:
		T: 温度, K
		rho: 各成分のモル密度, mol/m3, [i]

	Returns:
		f = RT [Σ ρ_i (ln ρ_i - 1) + ρ a_res], J/m3
*/
func (e *EoS) HelmholtzDensity(T float64, rho []float64) (float64, error) {
	ta, err := e.TemperatureAux(T)
	if err != nil {
		return 0, err
	}
	l, err := e.LocalAux(ta, rho, nil)
	if err != nil {
		return 0, err
	}
	return l.F, nil
}

/*
グランドポテンシャル密度の平衡値からの差

	Args:
		T: 温度, K
		rho: 各成分のモル密度, mol/m3, [i]
		mu_eq: 平衡状態の化学ポテンシャル, J/mol, [i]
		P_eq: 平衡圧力, Pa

	Returns:
		ΔΩ, J/m3
*/
func (e *EoS) GrandPotential(T float64, rho, mu_eq []float64, P_eq float64) (float64, error) {
	ta, err := e.TemperatureAux(T)
	if err != nil {
		return 0, err
	}
	l, err := e.LocalAux(ta, rho, nil)
	if err != nil {
		return 0, err
	}
	return l.DeltaOmega(rho, mu_eq, P_eq), nil
}

/*
残余物性（温度・圧力基準）

	H: 残余エンタルピー, J/mol
	S: 残余エントロピー, J/(mol K)
	G: 残余 Gibbs エネルギー, J/mol
	Cv: 残余定容熱容量, J/(mol K)
	Cp: 残余定圧熱容量, J/(mol K)
*/
type ResidualProps struct {
	H, S, G, Cv, Cp float64
}

// 残余物性と圧力の微分（密度一定の温度微分、温度一定の密度微分）
func (e *EoS) _residual(T, P float64, x []float64, state Phase, rho0 float64) (ResidualProps, float64, float64, float64, error) {
	var out ResidualProps
	ta, err := e.TemperatureAux(T)
	if err != nil {
		return out, 0, 0, 0, err
	}
	ph, err := e.PhaseAux(ta, P, x, state, rho0, nil)
	if err != nil {
		return out, 0, 0, 0, err
	}
	rho := ph.Rho * Na
	X := ph.Assoc.X

	a, da, d2a := e._ares_dt(T, rho, x, X)
	z := ph.Z

	out.H = R * T * (-T*da + z - 1)
	out.S = R * (-a - T*da + math.Log(z))
	out.G = R * T * (a + z - 1 - math.Log(z))
	out.Cv = R * (-2*T*da - T*T*d2a)

	// 密度一定の圧力の温度微分, Pa/K
	pt := func(t float64) float64 {
		p, _, _ := e._pressure(e.temperature_aux(t), rho, x, X)
		return p
	}
	dpdt := fd.Derivative(pt, T, &fd.Settings{Formula: five_point, Step: h_t * T})
	// 温度一定の圧力のモル密度微分, Pa m3/mol
	dpdrho := e._dpdrho(ta, rho, x, X) * Na

	cpcv := T * dpdt * dpdt / (ph.Rho * ph.Rho * dpdrho)
	out.Cp = out.Cv + cpcv - R
	return out, dpdt, dpdrho, ph.Rho, nil
}

/*
残余物性を求める。

	Args:
		T: 温度, K
		P: 圧力, Pa
		x: モル分率
		state: 液相または気相
		rho0: 密度の初期値, mol/m3（0 の場合は探索）

	Returns:
		残余物性
*/
func (e *EoS) Residual(T, P float64, x []float64, state Phase, rho0 float64) (ResidualProps, error) {
	out, _, _, _, err := e._residual(T, P, x, state, rho0)
	return out, err
}

/*
音速を求める。

	Args:
		T: 温度, K
		P: 圧力, Pa
		x: モル分率
		state: 液相または気相
		rho0: 密度の初期値, mol/m3（0 の場合は探索）

	Returns:
		音速, m/s

	Notes:
		理想気体の定容熱容量は単原子分子の値 (3/2 R) とする。
*/
func (e *EoS) SpeedOfSound(T, P float64, x []float64, state Phase, rho0 float64) (float64, error) {
	res, dpdt, dpdrho, rho, err := e._residual(T, P, x, state, rho0)
	if err != nil {
		return 0, err
	}
	cv := 1.5*R + res.Cv
	cp := cv + T*dpdt*dpdt/(rho*rho*dpdrho)

	// モル質量, kg/mol
	mw := e.Mw(x) / 1000
	w2 := cp / cv * dpdrho / mw
	if !(w2 > 0) {
		return 0, fmt.Errorf("%w: mechanically unstable state at T=%g K, P=%g Pa", ErrDomain, T, P)
	}
	return math.Sqrt(w2), nil
}

/*
影響パラメータの相関式

	Returns:
		成分ごとの影響パラメータ, J m5/mol2, [i]

	Notes:
		Garrido et al., AIChE J. 62 (2016) 1781, Eq.(23)
		分子平均の σ̄, ε̄, α を用いる。
*/
func (e *EoS) CiiCorrelation() []float64 {
	p := e.params
	out := make([]float64, p.nc())
	for i := range out {
		sigma := math.Cbrt(p.sigma3_ii[i])
		c := p.Ms[i] * (0.12008072630855947 + 2.2197907527439655*p.mie_ii[i].alpha)
		c *= math.Sqrt(Na * Na * p.eps_ii[i] * math.Pow(sigma, 5))
		out[i] = c * c
	}
	return out
}

/*
温度の補助量を用いて圧力を求める。

	Args:
		ta: 温度の補助量
		rho: モル密度, mol/m3
		x: モル分率
		xass0: 非結合分率の初期値（nil 可）

	Returns:
		(1) 圧力, Pa
		(2) 非結合分率の計算結果
*/
func (e *EoS) PressureAux(ta *TempAux, rho float64, x []float64, xass0 []float64) (float64, AssocResult, error) {
	if err := e.check_x(x); err != nil {
		return 0, AssocResult{}, err
	}
	if err := e.check_state(ta, rho, x); err != nil {
		return 0, AssocResult{}, err
	}
	P, _, r := e._pressure(ta, rho*Na, x, xass0)
	return P, r, nil
}

// 最密充填 (ζ_3 = 0.7405) に相当するモル密度, mol/m3
func (e *EoS) MaxDensityAux(ta *TempAux, x []float64) float64 {
	return eta_max / (e._zeta3_per_rho(ta, x) * Na)
}
