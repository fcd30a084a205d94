package eos

import (
	"log"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// 会合強度の積分 I の係数 c_pq（p: 換算密度、q: 換算温度の次数）
var cpq = [11][]float64{
	{7.56425183020431e-02, -1.28667137050961e-01, 1.28350632316055e-01, -7.25321780970292e-02, 2.57782547511452e-02, -6.01170055221687e-03, 9.33363147191978e-04, -9.55607377143667e-05, 6.19576039900837e-06, -2.30466608213628e-07, 3.74605718435540e-09},
	{1.34228218276565e-01, -1.82682168504886e-01, 7.71662412959262e-02, -7.17458641164565e-04, -8.72427344283170e-03, 2.97971836051287e-03, -4.84863997651451e-04, 4.35262491516424e-05, -2.07789181640066e-06, 4.13749349344802e-08},
	{-5.65116428942893e-01, 1.00930692226792e+00, -6.60166945915607e-01, 2.14492212294301e-01, -3.88462990166792e-02, 4.06016982985030e-03, -2.39515566373142e-04, 7.25488368831468e-06, -8.58904640281928e-08},
	{-3.87336382687019e-01, -2.11614570109503e-01, 4.50442894490509e-01, -1.76931752538907e-01, 3.17171522104923e-02, -2.91368915845693e-03, 1.30193710011706e-04, -2.14505500786531e-06},
	{2.13713180911797e+00, -2.02798460133021e+00, 3.36709255682693e-01, 1.18106507393722e-03, -6.00058423301506e-03, 6.26343952584415e-04, -2.03636395699819e-05},
	{-3.00527494795524e-01, 2.89920714512243e+00, -5.67134839686498e-01, 5.18085125423494e-02, -2.39326776760414e-03, 4.15107362643844e-05},
	{-6.21028065719194e+00, -1.92883360342573e+00, 2.84109761066570e-01, -1.57606767372364e-02, 3.68599073256615e-04},
	{1.16083532818029e+01, 7.42215544511197e-01, -8.23976531246117e-02, 1.86167650098254e-03},
	{-1.02632535542427e+01, -1.25035689035085e-01, 1.14299144831867e-02},
	{4.65297446837297e+00, -1.92518067137033e-03},
	{-8.67296219639940e-01},
}

// 逐次代入から Newton 法へ切り替えるまでの反復回数
const n_substitution = 5

/*
会合の非結合分率の計算条件

	Tol: 非結合分率の変化量の許容値
	MaxIter: 最大反復回数
*/
type AssocOptions struct {
	Tol     float64
	MaxIter int
}

// 既定の計算条件
func DefaultAssocOptions() AssocOptions {
	return AssocOptions{Tol: 1e-12, MaxIter: 200}
}

/*
会合の非結合分率の計算結果

	収束しなかった場合も最良の反復値を X に保持する。
*/
type AssocResult struct {
	X          []float64 // 非結合分率, [サイト]
	Iterations int
	Residual   float64
	Converged  bool
}

/*
会合強度の積分

	Args:
		rho_sigma3: ρ_s σ_x^3
		tstar: kT/ε_ij

	Notes:
		Papaioannou et al. (2014), Eq.(71)
*/
func _get_i(rho_sigma3, tstar float64) float64 {
	var s float64
	rp := 1.0
	for p := 0; p < len(cpq); p++ {
		var t float64
		tq := 1.0
		for _, c := range cpq[p] {
			t += c * tq
			tq *= tstar
		}
		s += t * rp
		rp *= rho_sigma3
	}
	return s
}

/*
サイト間の会合強度 Δ を計算する。

	Returns:
		Δ, m3, [サイト][サイト]
*/
func (e *EoS) _get_delta(ta *TempAux, da *densityAux) [][]float64 {
	p := e.params
	n := len(p.inst)
	delta := new_matrix(n, n)

	// ρ_s σ_x^3 = 6 ζ̄_x / π
	rs3 := 6 * da.zetax_s / math.Pi

	for s := 0; s < n; s++ {
		is := p.inst[s]
		for t := s; t < n; t++ {
			it := p.inst[t]
			fk := ta.fab[is.site][it.site] * p.kab[is.site][it.site]
			if fk == 0 {
				continue
			}
			d := fk * _get_i(rs3, ta.tstar[is.comp][it.comp])
			delta[s][t], delta[t][s] = d, d
		}
	}
	return delta
}

// 分子あたりのサイト数 N_s = x_i n_s
func (e *EoS) _site_numbers(x []float64) []float64 {
	p := e.params
	ns := make([]float64, len(p.inst))
	for s, in := range p.inst {
		ns[s] = x[in.comp] * in.n
	}
	return ns
}

/*
非結合分率を解く。

	Args:
		rho: 分子数密度, 1/m3
		ns: 分子あたりのサイト数, [サイト]
		delta: 会合強度, m3
		x0: 初期値（nil の場合は逐次代入から開始する）
		opts: 計算条件

	Returns:
		計算結果

	Notes:
		逐次代入（減衰付き）の後、Newton 法で仕上げる。各反復で X を (0, 1] に留める。
		X_s = 1 / (1 + ρ Σ_t N_t Δ_st X_t)
*/
func _solve_xass(rho float64, ns []float64, delta [][]float64, x0 []float64, opts AssocOptions) AssocResult {
	n := len(ns)
	X := make([]float64, n)
	warm := len(x0) == n
	if warm {
		copy(X, x0)
		for s := range X {
			if !(X[s] > 0) || X[s] > 1 {
				X[s] = 1
			}
		}
	} else {
		for s := range X {
			X[s] = 1
		}
	}

	// ρ Σ_t N_t Δ_st X_t
	sum_t := func(X []float64, s int) float64 {
		var v float64
		for t := 0; t < n; t++ {
			v += ns[t] * delta[s][t] * X[t]
		}
		return rho * v
	}

	res := AssocResult{X: X, Residual: math.Inf(1)}
	Xn := make([]float64, n)
	jac := mat.NewDense(n, n, nil)
	fvec := mat.NewVecDense(n, nil)
	var dx mat.VecDense

	for it := 1; it <= opts.MaxIter; it++ {
		res.Iterations = it

		newton := warm || it > n_substitution
		if newton {
			for s := 0; s < n; s++ {
				fvec.SetVec(s, -(1/X[s] - 1 - sum_t(X, s)))
				for t := 0; t < n; t++ {
					v := -rho * delta[s][t] * ns[t]
					if s == t {
						v -= 1 / (X[s] * X[s])
					}
					jac.Set(s, t, v)
				}
			}
			if err := dx.SolveVec(jac, fvec); err != nil {
				newton = false
			} else {
				for s := 0; s < n; s++ {
					xs := X[s] + dx.AtVec(s)
					if !(xs > 0) {
						xs = X[s] / 5
					} else if xs > 1 {
						xs = 1
					}
					Xn[s] = xs
				}
			}
		}
		if !newton {
			for s := 0; s < n; s++ {
				xs := 0.5*X[s] + 0.5/(1+sum_t(X, s))
				if !(xs > 0) {
					xs = X[s] / 5
				} else if xs > 1 {
					xs = 1
				}
				Xn[s] = xs
			}
		}

		res.Residual = floats.Distance(Xn, X, math.Inf(1))
		copy(X, Xn)
		if res.Residual < opts.Tol {
			res.Converged = true
			break
		}
	}

	if !res.Converged {
		log.Printf("WARNING: association did not converge (iterations=%d, residual=%g)", res.Iterations, res.Residual)
	}
	return res
}

/*
Michelsen-Hendriks の Q 関数

	Q = Σ N_s (ln X_s - X_s + 1) - ρ/2 ΣΣ N_s N_t X_s X_t Δ_st

	非結合分率の解において会合項 a_assoc と一致し、X について停留する。
*/
func _get_q(rho float64, ns []float64, delta [][]float64, X []float64) float64 {
	var q, bond float64
	for s := range ns {
		q += ns[s] * (math.Log(X[s]) - X[s] + 1)
		for t := range ns {
			bond += ns[s] * ns[t] * X[s] * X[t] * delta[s][t]
		}
	}
	return q - 0.5*rho*bond
}
