package sgt

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"

	"saft_gamma_mie/database"
	"saft_gamma_mie/eos"
)

/*
影響パラメータの当てはめ結果

	Coef: 温度の多項式の係数（高次から）, J m5/mol2
	AAD: 界面張力の平均絶対相対偏差
	Tension: 当てはめた係数による界面張力, N/m, [点]
*/
type Fit struct {
	Coef    []float64
	AAD     float64
	Tension []float64
}

/*
界面張力の実測値から影響パラメータの温度多項式を求める。

	Args:
		e: 状態方程式（純物質）
		data: 実測データ（T, P, 液相・気相密度, 界面張力）
		degree: 多項式の次数
		opts: 計算条件

	Returns:
		当てはめ結果

	Notes:
		γ は sqrt(c) に比例するので、c = 1 の界面張力 γ_1 から各点の c = (γ_exp/γ_1)² を求め、
		QR 分解による最小二乗法で多項式を当てはめる。
		その後 Σ (γ/γ_exp - 1)² を Nelder-Mead 法で最小化して係数を改善する。
*/
func FitCii(e *eos.EoS, data []database.Experiment, degree int, opts Options) (*Fit, error) {
	if e.NumComponents() != 1 {
		return nil, fmt.Errorf("%w: fit_cii needs a pure fluid", eos.ErrSpecification)
	}
	if degree < 0 || len(data) < degree+1 {
		return nil, fmt.Errorf("%w: %d points for a degree %d polynomial", eos.ErrSpecification, len(data), degree)
	}
	if err := opts.check(); err != nil {
		return nil, err
	}

	n := len(data)
	g1 := make([]float64, n)
	cs := make([]float64, n)
	ts := make([]float64, n)
	for k, d := range data {
		ta, err := e.TemperatureAux(d.T)
		if err != nil {
			return nil, err
		}
		r, err := _pure(e, ta, d.RhoL, d.RhoV, d.P, 1, opts)
		if err != nil {
			return nil, fmt.Errorf("point %d (T=%g K): %w", k, d.T, err)
		}
		if !(r.Tension > 0) {
			return nil, fmt.Errorf("%w: zero tension at point %d (T=%g K)", eos.ErrDomain, k, d.T)
		}
		g1[k] = r.Tension
		cs[k] = math.Pow(d.Tension/r.Tension, 2)
		ts[k] = d.T
	}

	// 係数の桁をそろえる。
	c_ref := stat.Mean(cs, nil)
	t_ref := stat.Mean(ts, nil)

	A := mat.NewDense(n, degree+1, nil)
	b := mat.NewDense(n, 1, nil)
	for k := 0; k < n; k++ {
		tau := ts[k] / t_ref
		for m := 0; m <= degree; m++ {
			A.Set(k, m, math.Pow(tau, float64(degree-m)))
		}
		b.Set(k, 0, cs[k]/c_ref)
	}
	var qr mat.QR
	qr.Factorize(A)
	var q mat.Dense
	if err := qr.SolveTo(&q, false, b); err != nil {
		return nil, fmt.Errorf("%w: polynomial fit: %v", eos.ErrDomain, err)
	}
	coef := mat.Col(nil, 0, &q)

	tension := func(coef []float64, k int) float64 {
		c := eval_poly(coef, ts[k]/t_ref)
		if c <= 0 {
			return 0
		}
		return math.Sqrt(c*c_ref) * g1[k]
	}
	objective := func(coef []float64) float64 {
		var f float64
		for k, d := range data {
			r := tension(coef, k)/d.Tension - 1
			f += r * r
		}
		return f
	}

	f0 := objective(coef)
	if f0 > 0 {
		res, err := optimize.Minimize(optimize.Problem{Func: objective}, coef, nil, &optimize.NelderMead{})
		if res != nil && res.F < f0 {
			coef = res.X
		} else if err != nil && res == nil {
			return nil, fmt.Errorf("%w: cii refinement: %v", eos.ErrDomain, err)
		}
	}

	out := &Fit{Coef: make([]float64, degree+1), Tension: make([]float64, n)}
	for m := 0; m <= degree; m++ {
		out.Coef[m] = c_ref * coef[m] / math.Pow(t_ref, float64(degree-m))
	}
	dev := make([]float64, n)
	for k, d := range data {
		out.Tension[k] = tension(coef, k)
		dev[k] = math.Abs(out.Tension[k]/d.Tension - 1)
	}
	out.AAD = stat.Mean(dev, nil)
	return out, nil
}

// 多項式を評価する（係数は高次から）。
func eval_poly(coef []float64, x float64) float64 {
	var y float64
	for _, c := range coef {
		y = y*x + c
	}
	return y
}

// 当てはめた係数で影響パラメータを評価する, J m5/mol2
func (f *Fit) Cii(T float64) float64 {
	return eval_poly(f.Coef, T)
}

// 当てはめた界面張力の最大相対偏差
func (f *Fit) MaxDeviation(data []database.Experiment) float64 {
	dev := make([]float64, len(data))
	for k, d := range data {
		dev[k] = math.Abs(f.Tension[k]/d.Tension - 1)
	}
	return floats.Max(dev)
}
