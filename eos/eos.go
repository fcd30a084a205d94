package eos

import (
	"fmt"
	"math"

	"saft_gamma_mie/database"
)

// 状態方程式の計算条件
type Options struct {
	Assoc AssocOptions // 会合の非結合分率
}

// 既定の計算条件
func DefaultOptions() Options {
	return Options{Assoc: DefaultAssocOptions()}
}

/*
SAFT-γ-Mie 状態方程式

	作成後は変更しないため、複数の goroutine から同時に使用してよい。
*/
type EoS struct {
	params *Parameters
	opts   Options
}

/*
混合物の状態方程式を作成する。

	Args:
		ps: 官能基パラメータのカタログ
		mix: 混合物

	Returns:
		状態方程式
*/
func New(ps *database.ParameterSet, mix *Mixture) (*EoS, error) {
	return NewWithOptions(ps, mix, DefaultOptions())
}

// 計算条件を指定して状態方程式を作成する。
func NewWithOptions(ps *database.ParameterSet, mix *Mixture, opts Options) (*EoS, error) {
	if opts.Assoc.Tol <= 0 || opts.Assoc.MaxIter <= 0 {
		return nil, fmt.Errorf("%w: association options %+v", ErrSpecification, opts.Assoc)
	}
	p, err := Resolve(ps, mix)
	if err != nil {
		return nil, err
	}
	return &EoS{params: p, opts: opts}, nil
}

// 純物質の状態方程式を作成する。
func NewPure(ps *database.ParameterSet, comp *Component) (*EoS, error) {
	mix, err := NewMixture(comp)
	if err != nil {
		return nil, err
	}
	return New(ps, mix)
}

// 解決済みパラメータ
func (e *EoS) Parameters() *Parameters {
	return e.params
}

// 計算条件
func (e *EoS) Options() Options {
	return e.opts
}

// 成分数
func (e *EoS) NumComponents() int {
	return e.params.nc()
}

// 会合サイトを持つか否か
func (e *EoS) Associating() bool {
	return e.params.associating()
}

// モル質量, g/mol
func (e *EoS) Mw(x []float64) float64 {
	var mw float64
	for i, xi := range x {
		mw += xi * e.params.Mw[i]
	}
	return mw
}

// 組成の検査
func (e *EoS) check_x(x []float64) error {
	if len(x) != e.params.nc() {
		return fmt.Errorf("%w: %d fractions for %d components", ErrComposition, len(x), e.params.nc())
	}
	var s float64
	for _, xi := range x {
		if xi < 0 || math.IsNaN(xi) {
			return fmt.Errorf("%w: fraction %g", ErrComposition, xi)
		}
		s += xi
	}
	if math.Abs(s-1) > 1e-8 {
		return fmt.Errorf("%w: fractions sum to %g", ErrComposition, s)
	}
	return nil
}

// 温度・密度の検査（密度はモル密度, mol/m3）
func (e *EoS) check_state(ta *TempAux, rho float64, x []float64) error {
	if !(rho > 0) || math.IsInf(rho, 0) {
		return fmt.Errorf("%w: density %g mol/m3", ErrDomain, rho)
	}
	if z3 := e._zeta3_per_rho(ta, x) * rho * Na; z3 > eta_max {
		return fmt.Errorf("%w: packing fraction %g", ErrDomain, z3)
	}
	return nil
}

// 計算結果の検査（NaN と無限大は定義域外として扱う）
func check_finite(T, rho float64, vs ...float64) error {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite result at T=%g K, density %g mol/m3", ErrDomain, T, rho)
		}
	}
	return nil
}

func check_pressure(P float64) error {
	if !(P > 0) || math.IsInf(P, 0) {
		return fmt.Errorf("%w: pressure %g Pa", ErrDomain, P)
	}
	return nil
}
