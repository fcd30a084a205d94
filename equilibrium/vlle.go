package equilibrium

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"saft_gamma_mie/eos"
)

// 固定する変数
type Spec string

// 固定する変数
const (
	FixedT Spec = "T" // 温度を固定して圧力を求める
	FixedP Spec = "P" // 圧力を固定して温度を求める
)

// 有効な指定か否か
func (s Spec) valid() bool {
	return s == FixedT || s == FixedP
}

// Newton 法の1回の刻みの上限
const max_newton_step = 1.

func logit(x float64) float64 {
	x = math.Max(1e-15, math.Min(1-1e-15, x))
	return math.Log(x / (1 - x))
}

/*
2成分系の不均一共沸点（気液液平衡）を求める。

	Args:
		e: 状態方程式（2成分）
		x0, w0: 2つの液相の組成の初期値, [i]
		y0: 気相の組成の初期値, [i]
		guess: 求める変数の初期値（FixedT の場合は圧力 Pa、FixedP の場合は温度 K）
		fixed: 固定する変数の値（FixedT の場合は温度 K、FixedP の場合は圧力 Pa）
		spec: 固定する変数
		opts: 計算条件

	Returns:
		平衡計算の結果（Phases は 液相 x、液相 w、気相 y の順）

	Notes:
		未知数は各相の第1成分のロジットと ln P（または ln T）。
		3相の等逃散度条件を Newton 法で解き、Jacobian は差分で求める。
*/
func Vlleb(e *eos.EoS, x0, w0, y0 []float64, guess, fixed float64, spec Spec, opts Options) (*Solution, error) {
	if e.NumComponents() != 2 {
		return nil, fmt.Errorf("%w: vlleb is defined for binary mixtures, got %d components", eos.ErrSpecification, e.NumComponents())
	}
	if err := opts.check(); err != nil {
		return nil, err
	}
	if !spec.valid() {
		return nil, fmt.Errorf("%w: spec %q", eos.ErrSpecification, string(spec))
	}
	if len(x0) != 2 || len(w0) != 2 || len(y0) != 2 {
		return nil, fmt.Errorf("%w: vlleb compositions must have 2 entries", eos.ErrComposition)
	}
	if !(guess > 0) || !(fixed > 0) {
		return nil, fmt.Errorf("%w: guess=%g, fixed=%g", eos.ErrDomain, guess, fixed)
	}

	labels := [3]eos.Phase{eos.Liquid, eos.Liquid, eos.Vapor}
	var rho0 [3]float64
	var xass0 [3][]float64

	T_P := func(u []float64) (float64, float64) {
		if spec == FixedT {
			return fixed, math.Exp(u[3])
		}
		return math.Exp(u[3]), fixed
	}
	comps := func(u []float64) [3][]float64 {
		var c [3][]float64
		for j := 0; j < 3; j++ {
			a := 1 / (1 + math.Exp(-u[j]))
			c[j] = []float64{a, 1 - a}
		}
		return c
	}

	// 等逃散度条件の残差（基準点の密度を初期値とし、相の状態を props に書き込む）
	residual := func(out, u []float64, props *[3]*eos.PhaseProps) error {
		T, P := T_P(u)
		ta, err := e.TemperatureAux(T)
		if err != nil {
			return err
		}
		c := comps(u)
		var lnf [3][2]float64
		for j := 0; j < 3; j++ {
			p, err := e.PhaseAux(ta, P, c[j], labels[j], rho0[j], xass0[j])
			if err != nil {
				return err
			}
			props[j] = p
			for i := 0; i < 2; i++ {
				lnf[j][i] = math.Log(c[j][i]) + p.LnPhi[i]
			}
		}
		out[0] = lnf[0][0] - lnf[2][0]
		out[1] = lnf[0][1] - lnf[2][1]
		out[2] = lnf[1][0] - lnf[2][0]
		out[3] = lnf[1][1] - lnf[2][1]
		return nil
	}

	u := []float64{logit(x0[0]), logit(w0[0]), logit(y0[0]), math.Log(guess)}
	f := make([]float64, 4)
	jac := mat.NewDense(4, 4, nil)
	var du mat.VecDense

	// props は u_eval で評価した相の状態
	var props [3]*eos.PhaseProps
	u_eval := make([]float64, 4)

	sol := &Solution{Method: "vlleb", Error: math.Inf(1)}
	phases := func() {
		if props[0] == nil {
			return
		}
		T, P := T_P(u_eval)
		c := comps(u_eval)
		sol.Phases = make([]PhaseState, 3)
		for j := 0; j < 3; j++ {
			sol.Phases[j] = new_phase_state(T, P, c[j], props[j], labels[j])
		}
	}
	fail := func(err error) (*Solution, error) {
		phases()
		return sol, fmt.Errorf("vlleb after %d iterations: %w", sol.Iterations, err)
	}

	prev := math.Inf(1)
	for it := 1; it <= opts.MaxIter; it++ {
		sol.Iterations = it
		var trial [3]*eos.PhaseProps
		if err := residual(f, u, &trial); err != nil {
			return fail(err)
		}
		props = trial
		copy(u_eval, u)
		for j := 0; j < 3; j++ {
			rho0[j], xass0[j] = props[j].Rho, props[j].Assoc.X
		}
		sol.Error = floats.Norm(f, math.Inf(1))
		if sol.Error < opts.Tol || stalled(sol.Error, prev, opts.Tol) {
			sol.Success = true
			break
		}
		prev = sol.Error

		// 差分の評価点の状態は捨てる。
		var jac_err error
		var scratch [3]*eos.PhaseProps
		fd.Jacobian(jac, func(out, v []float64) {
			if err := residual(out, v, &scratch); err != nil {
				jac_err = err
				floats.Scale(0, out)
			}
		}, u, &fd.JacobianSettings{
			Formula:     fd.Central,
			Step:        1e-6,
			OriginValue: f,
		})
		if jac_err != nil {
			return fail(jac_err)
		}
		rhs := make([]float64, 4)
		floats.ScaleTo(rhs, -1, f)
		if err := du.SolveVec(jac, mat.NewVecDense(4, rhs)); err != nil {
			break
		}
		step := floats.Norm(du.RawVector().Data, math.Inf(1))
		s := 1.
		if step > max_newton_step {
			s = max_newton_step / step
		}
		for k := range u {
			u[k] += s * du.AtVec(k)
		}
	}

	phases()
	return sol, nil
}

/*
多成分系の3相（気液液）フラッシュ計算

	Args:
		e: 状態方程式
		x0, w0: 2つの液相の組成の初期値, [i]
		y0: 気相の組成の初期値, [i]
		z: 原料組成, [i]
		T: 温度, K
		P: 圧力, Pa
		opts: 計算条件

	Returns:
		平衡計算の結果（Phases は 液相 x、液相 w、気相 y の順、Beta は相分率）

	Notes:
		液相 x を基準とした平衡比を逐次代入で更新し、相分率は多相の Rachford-Rice 式で求める。
*/
func Vlle(e *eos.EoS, x0, w0, y0, z []float64, T, P float64, opts Options) (*Solution, error) {
	if err := opts.check(); err != nil {
		return nil, err
	}
	nc := e.NumComponents()
	if len(x0) != nc || len(w0) != nc || len(y0) != nc || len(z) != nc {
		return nil, fmt.Errorf("%w: vlle compositions must have %d entries", eos.ErrComposition, nc)
	}
	ta, err := e.TemperatureAux(T)
	if err != nil {
		return nil, err
	}

	labels := [3]eos.Phase{eos.Liquid, eos.Liquid, eos.Vapor}
	comp := [3][]float64{
		append([]float64(nil), x0...),
		append([]float64(nil), w0...),
		append([]float64(nil), y0...),
	}
	var props [3]*eos.PhaseProps

	// props を評価した組成
	comp_eval := [3][]float64{make([]float64, nc), make([]float64, nc), make([]float64, nc)}

	K := [][]float64{make([]float64, nc), make([]float64, nc)}
	lnk := [2][]float64{make([]float64, nc), make([]float64, nc)}
	beta := []float64{1. / 3, 1. / 3}
	beta_eval := append([]float64(nil), beta...)

	sol := &Solution{Method: "vlle-ss", Error: math.Inf(1)}
	phases := func() {
		if props[2] == nil {
			return
		}
		sol.Beta = []float64{1 - beta_eval[0] - beta_eval[1], beta_eval[0], beta_eval[1]}
		sol.Phases = make([]PhaseState, 3)
		for j := 0; j < 3; j++ {
			sol.Phases[j] = new_phase_state(T, P, comp_eval[j], props[j], labels[j])
		}
	}

	prev := math.Inf(1)
	for it := 1; it <= opts.MaxIter; it++ {
		sol.Iterations = it

		for j := 0; j < 3; j++ {
			var rho0 float64
			var xass []float64
			if props[j] != nil {
				rho0, xass = props[j].Rho, props[j].Assoc.X
			}
			p, err := e.PhaseAux(ta, P, comp[j], labels[j], rho0, xass)
			if err != nil {
				phases()
				return sol, fmt.Errorf("vlle phase %d at T=%g K, P=%g Pa after %d iterations: %w", j, T, P, it, err)
			}
			props[j] = p
		}
		for j := 0; j < 3; j++ {
			copy(comp_eval[j], comp[j])
		}
		copy(beta_eval, beta)

		var dk float64
		for j := 0; j < 2; j++ {
			for i := 0; i < nc; i++ {
				l := props[0].LnPhi[i] - props[j+1].LnPhi[i]
				dk += math.Abs(l - lnk[j][i])
				lnk[j][i] = l
				K[j][i] = math.Exp(l)
			}
		}
		sol.Error = dk
		if it > 1 && (dk < opts.Tol || stalled(dk, prev, opts.Tol)) {
			sol.Success = true
			break
		}
		prev = dk

		b, err := rachford_rice_multi(z, K, beta)
		if err != nil {
			phases()
			return sol, fmt.Errorf("vlle after %d iterations: %w", it, err)
		}
		beta = b
		for i := 0; i < nc; i++ {
			t := 1 + beta[0]*(K[0][i]-1) + beta[1]*(K[1][i]-1)
			comp[0][i] = z[i] / t
			comp[1][i] = K[0][i] * comp[0][i]
			comp[2][i] = K[1][i] * comp[0][i]
		}
		for j := 0; j < 3; j++ {
			floats.Scale(1/floats.Sum(comp[j]), comp[j])
		}
	}

	phases()
	return sol, nil
}
