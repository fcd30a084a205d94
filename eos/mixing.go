package eos

import "math"

// f_i(α) の係数 (i = 1..6, n = 0..6)
var phi16 = [6][7]float64{
	{7.5365557, -37.60463, 71.745953, -46.83552, -2.467982, -0.50272, 8.0956883},
	{-359.44, 1825.6, -3168.0, 1884.2, -0.82376, -3.1935, 3.7090},
	{1550.9, -5070.1, 6534.6, -3288.7, -2.7171, 2.0883, 0},
	{-1.19932, 9.063632, -17.9482, 11.34027, 20.52142, -56.6377, 40.53683},
	{-1911.28, 21390.175, -51320.7, 37064.54, 1103.742, -3264.61, 2556.181},
	{9236.9, -129430., 357230., -315530., 1390.2, -4518.2, 4241.6},
}

// γc の係数
var phi7 = [5]float64{10., 10., 0.57, -6.7, -8.}

// ζ_eff の係数行列
var c_matrix = [4][4]float64{
	{0.81096, 1.7888, -37.578, 92.284},
	{1.0205, -19.341, 151.26, -463.5},
	{-1.9057, 22.845, -228.14, 973.92},
	{1.0885, -6.1962, 106.98, -677.64},
}

/*
f_i(α) を計算する。

	Args:
		alpha: van der Waals 定数, -
		i: 1..6

	Notes:
		Lafitte et al., J. Chem. Phys. 139 (2013) 154504, Eq.(20)
*/
func fi(alpha float64, i int) float64 {
	phi := phi16[i-1]
	num := phi[0] + alpha*(phi[1]+alpha*(phi[2]+alpha*phi[3]))
	den := 1 + alpha*(phi[4]+alpha*(phi[5]+alpha*phi[6]))
	return num / den
}

// Mie ポテンシャルの前置係数 C
func mie_prefactor(lr, la float64) float64 {
	dif := lr - la
	return lr / dif * math.Pow(lr/la, la/dif)
}

// van der Waals 定数 α
func mie_alpha(c, lr, la float64) float64 {
	return c * (1/(la-3) - 1/(lr-3))
}

// ζ_eff の係数 c1..c4
func zeta_eff_coef(lambda float64) [4]float64 {
	var c [4]float64
	inv := 1 / lambda
	for i := 0; i < 4; i++ {
		c[i] = c_matrix[i][0] + inv*(c_matrix[i][1]+inv*(c_matrix[i][2]+inv*c_matrix[i][3]))
	}
	return c
}

// 異種間のセグメント径
func combine_sigma(sk, sl float64) float64 {
	return (sk + sl) / 2
}

/*
異種間のエネルギーパラメータ

	Args:
		sk, sl, skl: 径 σ_kk, σ_ll, σ_kl
		ek, el: エネルギー ε_kk, ε_ll

	Notes:
		Papaioannou et al., J. Chem. Phys. 140 (2014) 054107, Eq.(39)
*/
func combine_eps(sk, sl, skl, ek, el float64) float64 {
	return math.Sqrt(sk*sk*sk*sl*sl*sl) / (skl * skl * skl) * math.Sqrt(ek*el)
}

// 異種間の指数
func combine_lambda(lk, ll float64) float64 {
	return 3 + math.Sqrt((lk-3)*(ll-3))
}

// 会合エネルギーの組み合わせ則
func combine_eps_hb(ek, el float64) float64 {
	return math.Sqrt(ek * el)
}

// 結合体積の組み合わせ則
func combine_kab(kk, kl float64) float64 {
	c := (math.Cbrt(kk) + math.Cbrt(kl)) / 2
	return c * c * c
}

// 指数の組に依存する定数（温度・密度に依存しない部分）
type mieConstants struct {
	c     float64    // 前置係数 C
	alpha float64    // α
	f     [6]float64 // f1..f6(α)
	lr    float64
	la    float64
	// ζ_eff の係数 [λa, λr, 2λa, 2λr, λa+λr]
	cc [5][4]float64
}

func new_mie_constants(lr, la float64) mieConstants {
	c := mie_prefactor(lr, la)
	alpha := mie_alpha(c, lr, la)
	m := mieConstants{c: c, alpha: alpha, lr: lr, la: la}
	for i := 1; i <= 6; i++ {
		m.f[i-1] = fi(alpha, i)
	}
	for i, lam := range m.exponents() {
		m.cc[i] = zeta_eff_coef(lam)
	}
	return m
}

// ζ_eff の係数に対応する指数 [λa, λr, 2λa, 2λr, λa+λr]
func (m *mieConstants) exponents() [5]float64 {
	return [5]float64{m.la, m.lr, 2 * m.la, 2 * m.lr, m.la + m.lr}
}
