package sgt

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/mat"

	"saft_gamma_mie/eos"
)

/*
界面張力計算の条件

	N: 密度方向の節点数（求積点・参照成分の節点）
	NGrid: 境界値問題の空間格子点数
	Tol: Newton 法の収束判定値（化学ポテンシャル差 / RT）
	MaxIter: Newton 法の最大反復回数
*/
type Options struct {
	N       int
	NGrid   int
	Tol     float64
	MaxIter int
}

// 既定の計算条件
func DefaultOptions() Options {
	return Options{N: 50, NGrid: 100, Tol: 1e-8, MaxIter: 50}
}

func (o Options) check() error {
	if o.N < 5 || o.NGrid < 5 || !(o.Tol > 0) || o.MaxIter <= 0 {
		return fmt.Errorf("%w: sgt options %+v", eos.ErrSpecification, o)
	}
	return nil
}

/*
界面の密度分布

	Z: 界面に垂直な座標, m（気相側が負）
	Rho: 各点の成分モル密度, mol/m3, [点][i]
*/
type Profile struct {
	Z   []float64
	Rho *mat.Dense

	fits []interp.PiecewiseLinear
}

/*
密度分布を作成し、成分ごとの補間を用意する。

	Args:
		z: 座標, m（狭義単調増加）
		rho: 各点の成分モル密度, mol/m3, [点][i]

	Returns:
		密度分布
*/
func new_profile(z []float64, rho *mat.Dense) (*Profile, error) {
	n, nc := rho.Dims()
	if n != len(z) || n < 2 {
		return nil, fmt.Errorf("%w: profile has %d coordinates and %d rows", eos.ErrSpecification, len(z), n)
	}
	for k := 1; k < n; k++ {
		if !(z[k] > z[k-1]) {
			return nil, fmt.Errorf("%w: profile coordinates not increasing at point %d", eos.ErrSpecification, k)
		}
	}
	p := &Profile{Z: z, Rho: rho, fits: make([]interp.PiecewiseLinear, nc)}
	for i := range p.fits {
		if err := p.fits[i].Fit(z, p.Component(i)); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// 成分 i の密度分布, mol/m3
func (p *Profile) Component(i int) []float64 {
	return mat.Col(nil, i, p.Rho)
}

/*
座標 z における密度を線形補間で求める（範囲外は端の値）。

	Args:
		z: 座標, m

	Returns:
		成分モル密度, mol/m3, [i]
*/
func (p *Profile) At(z float64) []float64 {
	out := make([]float64, len(p.fits))
	z = math.Max(p.Z[0], math.Min(p.Z[len(p.Z)-1], z))
	for i := range p.fits {
		out[i] = p.fits[i].Predict(z)
	}
	return out
}

/*
界面張力の計算結果

	Tension: 界面張力, N/m
	Profile: 密度分布
	Iterations: Newton 法の反復回数
	Error: 最終的な残差
	Success: 収束したか否か
*/
type Result struct {
	Tension    float64
	Profile    *Profile
	Iterations int
	Error      float64
	Success    bool
}

// 界面張力, mN/m
func (r *Result) MilliNewton() float64 {
	return ToMilliNewton(r.Tension)
}

// N/m から mN/m への換算
func ToMilliNewton(t float64) float64 {
	return t * 1e3
}

// [0, 1] の Chebyshev-Lobatto 節点（両端で密）
func lobatto(n int) []float64 {
	t := make([]float64, n)
	for k := range t {
		t[k] = (1 - math.Cos(math.Pi*float64(k)/float64(n-1))) / 2
	}
	t[0], t[n-1] = 0, 1
	return t
}

// 成分密度を検査する。
func check_bulk(e *eos.EoS, rhol, rhov []float64) error {
	nc := e.NumComponents()
	if len(rhol) != nc || len(rhov) != nc {
		return fmt.Errorf("%w: bulk densities must have %d entries", eos.ErrComposition, nc)
	}
	for i := 0; i < nc; i++ {
		if !(rhol[i] > 0) || !(rhov[i] > 0) {
			return fmt.Errorf("%w: bulk density of component %d must be positive", eos.ErrDomain, i)
		}
	}
	return nil
}

// 影響パラメータ, J m5/mol2, [i]
func influence(e *eos.EoS, T float64) ([]float64, error) {
	p := e.Parameters()
	if !p.HasCii() {
		return nil, fmt.Errorf("%w: influence parameters are not set for all components", eos.ErrSpecification)
	}
	c := p.Cii(T)
	for i, v := range c {
		if !(v > 0) {
			return nil, fmt.Errorf("%w: influence parameter of %s is %g at %g K", eos.ErrDomain, p.Names[i], v, T)
		}
	}
	return c, nil
}
