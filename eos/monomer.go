package eos

import "math"

/*
密度・組成に依存する補助量

	Args (生成時):
		rho: 分子数密度, 1/m3
		x: モル分率, [i]
*/
type densityAux struct {
	rho     float64    // 分子数密度, 1/m3
	x       []float64  // モル分率
	mbar    float64    // 平均セグメント数 Σ x_i m_s,i
	rho_s   float64    // セグメント数密度, 1/m3
	xs      []float64  // セグメント分率 x_s,k
	zeta    [4]float64 // ζ_0..ζ_3
	zetax   float64    // ζ_x（有効径）
	zetax_s float64    // ζ̄_x（セグメント径）
}

func (e *EoS) density_aux(ta *TempAux, rho float64, x []float64) *densityAux {
	p := e.params
	ng := p.ng()

	da := &densityAux{rho: rho, x: x, xs: make([]float64, ng)}

	for i, xi := range x {
		da.mbar += xi * p.Ms[i]
	}
	da.rho_s = rho * da.mbar

	for k := 0; k < ng; k++ {
		var s float64
		for i, xi := range x {
			s += xi * p.Nu[i][k] * p.Vk[k] * p.Sk[k]
		}
		da.xs[k] = s / da.mbar
	}

	f := math.Pi * da.rho_s / 6
	for k := 0; k < ng; k++ {
		d := ta.dkk[k][k]
		da.zeta[0] += da.xs[k]
		da.zeta[1] += da.xs[k] * d
		da.zeta[2] += da.xs[k] * d * d
		da.zeta[3] += da.xs[k] * d * d * d
	}
	for m := range da.zeta {
		da.zeta[m] *= f
	}

	var zx, zxs float64
	for k := 0; k < ng; k++ {
		for l := 0; l < ng; l++ {
			xx := da.xs[k] * da.xs[l]
			zx += xx * ta.d3[k][l]
			zxs += xx * cube(p.Sigma[k][l])
		}
	}
	da.zetax = f * zx
	da.zetax_s = f * zxs

	return da
}

/*
剛体球項

	Notes:
		Boublík / Mansoori-Carnahan-Starling-Leland
		Papaioannou et al. (2014), Eq.(17)
*/
func _get_a_hs(da *densityAux) float64 {
	z0, z1, z2, z3 := da.zeta[0], da.zeta[1], da.zeta[2], da.zeta[3]
	if z3 == 0 {
		return 0
	}
	t1 := (z2*z2*z2/(z3*z3) - z0) * math.Log1p(-z3)
	t2 := 3 * z1 * z2 / (1 - z3)
	t3 := z2 * z2 * z2 / (z3 * (1 - z3) * (1 - z3))
	return 6 / (math.Pi * da.rho_s) * (t1 + t2 + t3)
}

// (1-ζ/2)/(1-ζ)^3 とその導関数
func _g1(z float64) (float64, float64) {
	w := 1 - z
	return (1 - z/2) / (w * w * w), (2.5 - z) / (w * w * w * w)
}

// 9ζ(1+ζ)/(2(1-ζ)^3) とその導関数
func _g2(z float64) (float64, float64) {
	w := 1 - z
	return 4.5 * z * (1 + z) / (w * w * w), 4.5 * (1 + 4*z + z*z) / (w * w * w * w)
}

/*
a1^S + B を計算する（指数 λ の Sutherland 項）。

	Args:
		rho_s: セグメント数密度, 1/m3
		zetax: 充填率 ζ_x
		eps: エネルギー, J
		d3: 有効径の3乗, m3
		lambda: 指数
		x0: σ/d
		c: ζ_eff の係数

	Returns:
		(1) a1^S + B, J
		(2) ρ_s に関する導関数, J m3

	Notes:
		Lafitte et al. (2013), Eqs.(33)-(40)
*/
func _get_a1s_b(rho_s, zetax, eps, d3, lambda, x0 float64, c *[4]float64) (float64, float64) {
	zeff := zetax * (c[0] + zetax*(c[1]+zetax*(c[2]+zetax*c[3])))
	dzeff := c[0] + zetax*(2*c[1]+zetax*(3*c[2]+zetax*4*c[3]))

	f, df := _g1(zeff)
	pre := -2 * math.Pi * eps * d3 / (lambda - 3)
	a1s := pre * rho_s * f
	da1s := pre * (f + zetax*df*dzeff)

	x3 := math.Pow(x0, 3-lambda)
	x4 := x3 * x0
	i_l := -(x3 - 1) / (lambda - 3)
	j_l := -(x4*(lambda-3) - x3*(lambda-4) - 1) / ((lambda - 3) * (lambda - 4))

	g1, dg1 := _g1(zetax)
	g2, dg2 := _g2(zetax)
	pre_b := 2 * math.Pi * d3 * eps
	b := pre_b * rho_s * (g1*i_l - g2*j_l)
	db := pre_b * ((g1+zetax*dg1)*i_l - (g2+zetax*dg2)*j_l)

	return a1s + b, da1s + db
}

// 剛体球の等温圧縮率 K^HS とその ζ_x 導関数
func _get_khs(z float64) (float64, float64) {
	w := 1 - z
	w3 := w * w * w
	w4 := w3 * w
	den := 1 + 4*z + 4*z*z - 4*z*z*z + z*z*z*z
	dden := 4 + 8*z - 12*z*z + 4*z*z*z
	return w4 / den, (-4*w3*den - w4*dden) / (den * den)
}

/*
単量体項

	Returns:
		a_mono, 無次元 (1分子あたり /kT)

	Notes:
		Papaioannou et al. (2014), Eqs.(14)-(36)
*/
func (e *EoS) _get_a_mono(ta *TempAux, da *densityAux) float64 {
	p := e.params
	ng := p.ng()

	a_hs := _get_a_hs(da)

	khs, _ := _get_khs(da.zetax)
	zs := da.zetax_s
	zs5 := math.Pow(zs, 5)
	zs8 := zs5 * zs * zs * zs

	var a1, a2, a3 float64
	for k := 0; k < ng; k++ {
		for l := 0; l < ng; l++ {
			xx := da.xs[k] * da.xs[l]
			if xx == 0 {
				continue
			}
			m := &p.mie[k][l]
			eps := p.Eps[k][l]
			d3 := ta.d3[k][l]
			x0 := ta.x0[k][l]
			lam := m.exponents()

			var v [5]float64
			for n := range lam {
				v[n], _ = _get_a1s_b(da.rho_s, da.zetax, eps, d3, lam[n], x0, &m.cc[n])
			}

			// 一次摂動項
			a1_kl := m.c * (math.Pow(x0, m.la)*v[0] - math.Pow(x0, m.lr)*v[1])

			// 二次摂動項
			chi := m.f[0]*zs + m.f[1]*zs5 + m.f[2]*zs8
			bracket := math.Pow(x0, 2*m.la)*v[2] - 2*math.Pow(x0, m.la+m.lr)*v[4] + math.Pow(x0, 2*m.lr)*v[3]
			a2_kl := 0.5 * khs * (1 + chi) * eps * m.c * m.c * bracket

			// 三次摂動項
			a3_kl := -eps * eps * eps * m.f[3] * zs * math.Exp(m.f[4]*zs+m.f[5]*zs*zs)

			a1 += xx * a1_kl
			a2 += xx * a2_kl
			a3 += xx * a3_kl
		}
	}

	beta := ta.beta
	return da.mbar * (a_hs + beta*a1 + beta*beta*a2 + beta*beta*beta*a3)
}
