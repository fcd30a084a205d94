package eos

import "math"

/*
剛体球の接触点での動径分布関数

	Args:
		zetax: 充填率 ζ_x
		x0: σ̄/d̄

	Notes:
		Lafitte et al. (2013), Eqs.(47)-(51)
*/
func _get_ghs(zetax, x0 float64) float64 {
	z := zetax
	w := 1 - z
	w2 := w * w
	w3 := w2 * w
	k0 := -math.Log(w) + (42*z-39*z*z+9*z*z*z-2*z*z*z*z)/(6*w3)
	k1 := (z*z*z*z + 6*z*z - 12*z) / (2 * w3)
	k2 := -3 * z * z / (8 * w2)
	k3 := (-z*z*z*z + 3*z*z + 3*z) / (6 * w3)
	return math.Exp(k0 + x0*(k1+x0*(k2+x0*k3)))
}

/*
連鎖項

	Returns:
		a_chain, 無次元

	Notes:
		Papaioannou et al. (2014), Eqs.(46)-(63)
		分子平均のパラメータ σ̄, ε̄, λ̄ を用いる。
*/
func (e *EoS) _get_a_chain(ta *TempAux, da *densityAux) float64 {
	p := e.params
	rho_s := da.rho_s
	zx := da.zetax
	zs := da.zetax_s

	khs, dkhs := _get_khs(zx)
	// dζx/dρ_s
	kappa := zx / rho_s

	var a float64
	for i, xi := range da.x {
		if xi == 0 || p.Ms[i] == 1 {
			continue
		}

		m := &p.mie_ii[i]
		eps := p.eps_ii[i]
		d3 := ta.d3_ii[i]
		x0 := ta.x0_ii[i]
		lam := m.exponents()

		var v, dv [5]float64
		for n := range lam {
			v[n], dv[n] = _get_a1s_b(rho_s, zx, eps, d3, lam[n], x0, &m.cc[n])
		}

		xla := math.Pow(x0, m.la)
		xlr := math.Pow(x0, m.lr)
		x2la := xla * xla
		x2lr := xlr * xlr
		xlalr := xla * xlr

		ghs := _get_ghs(zx, x0)

		// 一次の項 g1
		da1 := m.c * (xla*dv[0] - xlr*dv[1])
		g1 := (3*da1 - m.c*m.la*xla*v[0]/rho_s + m.c*m.lr*xlr*v[1]/rho_s) / (2 * math.Pi * eps * d3)

		// 二次の項 g2
		cc2 := m.c * m.c
		bracket := x2la*v[2] - 2*xlalr*v[4] + x2lr*v[3]
		dbracket := x2la*dv[2] - 2*xlalr*dv[4] + x2lr*dv[3]
		da2 := 0.5 * eps * cc2 * (dkhs*kappa*bracket + khs*dbracket)
		g2mca := 3 * da2
		g2mca -= eps * khs * cc2 * m.lr * x2lr * v[3] / rho_s
		g2mca += eps * khs * cc2 * (m.lr + m.la) * xlalr * v[4] / rho_s
		g2mca -= eps * khs * cc2 * m.la * x2la * v[2] / rho_s
		g2mca /= 2 * math.Pi * eps * eps * d3

		gammac := phi7[0] * (1 - math.Tanh(phi7[1]*(phi7[2]-m.alpha))) *
			zs * ta.theta_ii[i] * math.Exp(phi7[3]*zs+phi7[4]*zs*zs)
		g2 := (1 + gammac) * g2mca

		be := ta.beta * eps
		lng := math.Log(ghs) + be*g1/ghs + be*be*g2/ghs

		a -= xi * (p.Ms[i] - 1) * lng
	}
	return a
}
