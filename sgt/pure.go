package sgt

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate/quad"
	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/mat"

	"saft_gamma_mie/eos"
)

/*
純物質の界面張力を求める。

	Args:
		e: 状態方程式（純物質、影響パラメータを与えたもの）
		rhol: 液相モル密度, mol/m3
		rhov: 気相モル密度, mol/m3
		T: 温度, K
		P: 飽和圧力, Pa
		opts: 計算条件

	Returns:
		界面張力と密度分布

	Notes:
		γ = ∫ sqrt(2 c ΔΩ(ρ)) dρ を Gauss-Legendre 求積で求める。
		ΔΩ は数値誤差による負の値を 0 に切り上げる。
*/
func Pure(e *eos.EoS, rhol, rhov, T, P float64, opts Options) (*Result, error) {
	if e.NumComponents() != 1 {
		return nil, fmt.Errorf("%w: pure sgt needs one component, got %d", eos.ErrSpecification, e.NumComponents())
	}
	if err := opts.check(); err != nil {
		return nil, err
	}
	if err := check_bulk(e, []float64{rhol}, []float64{rhov}); err != nil {
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
	return _pure(e, ta, rhol, rhov, P, c[0], opts)
}

func _pure(e *eos.EoS, ta *eos.TempAux, rhol, rhov, P, c float64, opts Options) (*Result, error) {
	if rhol < rhov {
		rhol, rhov = rhov, rhol
	}
	bulk, err := e.LocalAux(ta, []float64{rhol}, nil)
	if err != nil {
		return nil, err
	}
	mu_eq := bulk.Mu

	var last_err error
	domega := func(rho float64, xass []float64) (float64, []float64) {
		l, err := e.LocalAux(ta, []float64{rho}, xass)
		if err != nil {
			last_err = err
			return 0, nil
		}
		return math.Max(0, l.DeltaOmega([]float64{rho}, mu_eq, P)), l.Assoc.X
	}

	tension := quad.Fixed(func(rho float64) float64 {
		dom, _ := domega(rho, nil)
		return math.Sqrt(2 * c * dom)
	}, rhov, rhol, opts.N, quad.Legendre{}, 0)
	if last_err != nil {
		return nil, last_err
	}

	// 密度分布 z(ρ) = ∫ sqrt(c / 2ΔΩ) dρ
	t := lobatto(opts.N + 2)
	rhos := make([]float64, 0, opts.N)
	dz := make([]float64, 0, opts.N)
	var xass []float64
	var g_prev, r_prev float64
	for _, tk := range t[1 : len(t)-1] {
		rho := rhov + tk*(rhol-rhov)
		var dom float64
		dom, xass = domega(rho, xass)
		if last_err != nil {
			return nil, last_err
		}
		if dom <= 0 {
			continue
		}
		g := math.Sqrt(c / (2 * dom))
		if len(rhos) == 0 {
			dz = append(dz, 0)
		} else {
			dz = append(dz, (rho-r_prev)*(g+g_prev)/2)
		}
		rhos = append(rhos, rho)
		g_prev, r_prev = g, rho
	}

	if len(rhos) < 2 {
		return nil, fmt.Errorf("%w: no interface between %g and %g mol/m3", eos.ErrDomain, rhov, rhol)
	}
	z := make([]float64, len(dz))
	floats.CumSum(z, dz)

	// 密度が両相の平均となる位置を原点とする。
	var pl interp.PiecewiseLinear
	if err := pl.Fit(rhos, z); err != nil {
		return nil, err
	}
	floats.AddConst(-pl.Predict((rhol+rhov)/2), z)

	prof, err := new_profile(z, mat.NewDense(len(rhos), 1, rhos))
	if err != nil {
		return nil, err
	}
	return &Result{
		Tension:    tension,
		Profile:    prof,
		Iterations: 1,
		Success:    true,
	}, nil
}
