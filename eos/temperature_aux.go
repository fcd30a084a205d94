package eos

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/integrate/quad"
)

// 有効径の積分に用いる Gauss-Legendre の節点数
const n_gauss = 100

/*
温度に依存する補助量

	同じ温度で繰り返し評価する場合（密度の収束計算など）に再利用する。
*/
type TempAux struct {
	t    float64
	beta float64 // 1/kT, 1/J

	dkk [][]float64 // 有効径 d_kl, m
	d3  [][]float64 // d_kl^3, m3
	x0  [][]float64 // σ_kl/d_kl

	d3_ii    []float64 // 分子平均の d̄_ii^3, m3
	x0_ii    []float64 // σ̄_ii/d̄_ii
	theta_ii []float64 // exp(βε̄_ii)-1

	fab   [][]float64 // exp(βε^HB)-1, [site][site]
	tstar [][]float64 // kT/ε_ij, [i][j]
}

// 温度, K
func (ta *TempAux) T() float64 {
	return ta.t
}

/*
温度に依存する補助量を計算する。

	Args:
		T: 温度, K

	Returns:
		補助量

	Notes:
		Lafitte et al. (2013), Eq.(7)
*/
func (e *EoS) TemperatureAux(T float64) (*TempAux, error) {
	if !(T > 0) || math.IsInf(T, 0) {
		return nil, fmt.Errorf("%w: temperature %g K", ErrDomain, T)
	}
	return e.temperature_aux(T), nil
}

func (e *EoS) temperature_aux(T float64) *TempAux {
	p := e.params
	ng, nc := p.ng(), p.nc()
	beta := 1 / (kb * T)

	ta := &TempAux{
		t:     T,
		beta:  beta,
		dkk:   new_matrix(ng, ng),
		d3:    new_matrix(ng, ng),
		x0:    new_matrix(ng, ng),
		d3_ii: make([]float64, nc),
		x0_ii: make([]float64, nc),
	}

	for k := 0; k < ng; k++ {
		ta.dkk[k][k] = _get_d(beta, p.Sigma[k][k], p.Eps[k][k], &p.mie[k][k])
	}
	for k := 0; k < ng; k++ {
		for l := 0; l < ng; l++ {
			if k != l {
				ta.dkk[k][l] = (ta.dkk[k][k] + ta.dkk[l][l]) / 2
			}
			ta.d3[k][l] = cube(ta.dkk[k][l])
			ta.x0[k][l] = p.Sigma[k][l] / ta.dkk[k][l]
		}
	}

	ta.theta_ii = make([]float64, nc)
	for i := 0; i < nc; i++ {
		var d3 float64
		for k := 0; k < ng; k++ {
			for l := 0; l < ng; l++ {
				d3 += p.Zki[i][k] * p.Zki[i][l] * ta.d3[k][l]
			}
		}
		ta.d3_ii[i] = d3
		ta.x0_ii[i] = math.Cbrt(p.sigma3_ii[i] / d3)
		ta.theta_ii[i] = math.Exp(beta*p.eps_ii[i]) - 1
	}

	ns := len(p.sites)
	ta.fab = new_matrix(ns, ns)
	for a := 0; a < ns; a++ {
		for b := 0; b < ns; b++ {
			if p.eps_hb[a][b] > 0 {
				ta.fab[a][b] = math.Expm1(beta * p.eps_hb[a][b])
			}
		}
	}

	ta.tstar = new_matrix(nc, nc)
	for i := 0; i < nc; i++ {
		for j := 0; j < nc; j++ {
			ta.tstar[i][j] = kb * T / p.eps_ij[i][j]
		}
	}

	return ta
}

/*
Barker-Henderson の有効径を計算する。

	Args:
		beta: 1/kT, 1/J
		sigma: セグメント径, m
		eps: セグメントエネルギー, J
		m: Mie 定数

	Returns:
		有効径, m
*/
func _get_d(beta, sigma, eps float64, m *mieConstants) float64 {
	// r/σ = x として ∫_0^1 exp(-βu(x)) dx を求める。
	integrand := func(x float64) float64 {
		u := m.c * eps * (math.Pow(x, -m.lr) - math.Pow(x, -m.la))
		return math.Exp(-beta * u)
	}
	return sigma * (1 - quad.Fixed(integrand, 0, 1, n_gauss, quad.Legendre{}, 0))
}
