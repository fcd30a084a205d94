package sgt

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/mat"

	"saft_gamma_mie/eos"
)

/*
混合物の界面張力を参照成分法で求める（相互作用補正 β = 0）。

	Args:
		e: 状態方程式（全成分に影響パラメータを与えたもの）
		rhol: 液相の成分モル密度, mol/m3, [i]
		rhov: 気相の成分モル密度, mol/m3, [i]
		T: 温度, K
		P: 平衡圧力, Pa
		opts: 計算条件

	Returns:
		界面張力と密度分布

	Notes:
		c_ij = sqrt(c_ii c_jj) のとき Euler-Lagrange 式は代数式
		sqrt(c_ss) (μ_j - μ_j^eq) = sqrt(c_jj) (μ_s - μ_s^eq) に帰着する。
		密度差の最も大きい成分 s を参照とし、各節点で他成分の密度を Newton 法で解く。
		γ = ∫ sqrt(2ΔΩ) |Σ sqrt(c_ii) dρ_i/dt| dt
*/
func MixtureBeta0(e *eos.EoS, rhol, rhov []float64, T, P float64, opts Options) (*Result, error) {
	nc := e.NumComponents()
	if nc < 2 {
		return nil, fmt.Errorf("%w: mixture sgt needs at least two components", eos.ErrSpecification)
	}
	if err := opts.check(); err != nil {
		return nil, err
	}
	if err := check_bulk(e, rhol, rhov); err != nil {
		return nil, err
	}
	c, err := influence(e, T)
	if err != nil {
		return nil, err
	}
	ta, err := e.TemperatureAux(T)
	if err != nil {
		return nil, err
	}

	sc := make([]float64, nc)
	for i := range c {
		sc[i] = math.Sqrt(c[i])
	}

	// 参照成分
	diff := make([]float64, nc)
	floats.SubTo(diff, rhol, rhov)
	for i := range diff {
		diff[i] = math.Abs(diff[i])
	}
	s := floats.MaxIdx(diff)

	bulk, err := e.LocalAux(ta, rhol, nil)
	if err != nil {
		return nil, err
	}
	mu_eq := bulk.Mu
	rt := eos.R * T

	// 参照成分以外の添字
	others := make([]int, 0, nc-1)
	for i := 0; i < nc; i++ {
		if i != s {
			others = append(others, i)
		}
	}
	m := len(others)

	t := lobatto(opts.N)
	n := len(t)
	path := mat.NewDense(n, nc, nil)
	path.SetRow(0, rhov)
	path.SetRow(n-1, rhol)
	domega := make([]float64, n)

	res := &Result{Success: true}
	rho := append([]float64(nil), rhov...)
	var xass []float64
	var last_err error

	// 参照成分の密度を固定した Euler-Lagrange 残差（ln ρ_j について）
	residual := func(out, u []float64) {
		for k, j := range others {
			rho[j] = math.Exp(u[k])
		}
		l, err := e.LocalAux(ta, rho, xass)
		if err != nil {
			last_err = err
			floats.Scale(0, out)
			return
		}
		for k, j := range others {
			out[k] = (sc[s]*(l.Mu[j]-mu_eq[j]) - sc[j]*(l.Mu[s]-mu_eq[s])) / (rt * sc[s])
		}
	}

	u := make([]float64, m)
	f := make([]float64, m)
	jac := mat.NewDense(m, m, nil)
	var du mat.VecDense

	for k := 1; k < n-1; k++ {
		rho[s] = rhov[s] + t[k]*(rhol[s]-rhov[s])
		for q, j := range others {
			// 前の節点の解、最初は両相の線形補間
			if k == 1 {
				u[q] = math.Log(rhov[j] + t[k]*(rhol[j]-rhov[j]))
			} else {
				u[q] = math.Log(path.At(k-1, j))
			}
		}

		converged := false
		for it := 0; it < opts.MaxIter; it++ {
			res.Iterations++
			last_err = nil
			residual(f, u)
			if last_err != nil {
				return nil, last_err
			}
			if floats.Norm(f, math.Inf(1)) < opts.Tol {
				converged = true
				break
			}
			fd.Jacobian(jac, residual, u, &fd.JacobianSettings{
				Formula:     fd.Central,
				Step:        1e-6,
				OriginValue: f,
			})
			if last_err != nil {
				return nil, last_err
			}
			floats.Scale(-1, f)
			if err := du.SolveVec(jac, mat.NewVecDense(m, f)); err != nil {
				break
			}
			step := floats.Norm(du.RawVector().Data, math.Inf(1))
			a := 1.
			if step > 1 {
				a = 1 / step
			}
			for q := range u {
				u[q] += a * du.AtVec(q)
			}
		}
		residual(f, u)
		res.Error = math.Max(res.Error, floats.Norm(f, math.Inf(1)))
		if !converged {
			res.Success = false
		}

		l, err := e.LocalAux(ta, rho, xass)
		if err != nil {
			return nil, err
		}
		xass = l.Assoc.X
		path.SetRow(k, rho)
		domega[k] = math.Max(0, l.DeltaOmega(rho, mu_eq, P))
	}

	// dρ_i/dt
	drho := mat.NewDense(n, nc, nil)
	for i := 0; i < nc; i++ {
		var as interp.AkimaSpline
		if err := as.Fit(t, mat.Col(nil, i, path)); err != nil {
			return nil, err
		}
		for k := range t {
			drho.Set(k, i, as.PredictDerivative(t[k]))
		}
	}

	grad := make([]float64, n)
	integrand := make([]float64, n)
	for k := range t {
		grad[k] = math.Abs(floats.Dot(sc, drho.RawRowView(k)))
		integrand[k] = math.Sqrt(2*domega[k]) * grad[k]
	}
	res.Tension = integrate.Simpsons(t, integrand)
	res.Profile, err = _profile_from_path(t, path, domega, grad)
	if err != nil {
		return nil, err
	}
	return res, nil
}

/*
参照成分法の経路から空間座標の分布を求める。

	dz/dt = |Σ sqrt(c_ii) dρ_i/dt| / sqrt(2ΔΩ)
	両端（ΔΩ = 0）は除き、両相の中間点を原点とする。
*/
func _profile_from_path(t []float64, path *mat.Dense, domega, grad []float64) (*Profile, error) {
	_, nc := path.Dims()
	var ts []float64
	var rows []float64
	var dz []float64
	var g_prev, t_prev float64
	for k := 1; k < len(t)-1; k++ {
		if domega[k] <= 0 {
			continue
		}
		g := grad[k] / math.Sqrt(2*domega[k])
		if len(ts) == 0 {
			dz = append(dz, 0)
		} else {
			step := (t[k] - t_prev) * (g + g_prev) / 2
			if !(step > 0) {
				continue
			}
			dz = append(dz, step)
		}
		ts = append(ts, t[k])
		rows = append(rows, path.RawRowView(k)...)
		g_prev, t_prev = g, t[k]
	}
	if len(ts) < 2 {
		return nil, fmt.Errorf("%w: bulk states do not bound an interface", eos.ErrDomain)
	}

	z := make([]float64, len(dz))
	floats.CumSum(z, dz)
	var pl interp.PiecewiseLinear
	if err := pl.Fit(ts, z); err != nil {
		return nil, err
	}
	floats.AddConst(-pl.Predict(0.5), z)
	return new_profile(z, mat.NewDense(len(ts), nc, rows))
}
