package sgt

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/mat"

	"saft_gamma_mie/eos"
)

// 参照成分法の分布幅に対する計算領域の幅
const domain_widen = 1.5

/*
混合物の界面張力を境界値問題として求める。

	Args:
		e: 状態方程式（全成分に影響パラメータを与えたもの）
		rhol: 液相の成分モル密度, mol/m3, [i]
		rhov: 気相の成分モル密度, mol/m3, [i]
		T: 温度, K
		P: 平衡圧力, Pa
		beta: 影響パラメータの相互作用補正 β_ij, [i][j]（nil は 0）
		opts: 計算条件

	Returns:
		界面張力と密度分布

	Notes:
		c_ij = (1 - β_ij) sqrt(c_ii c_jj)
		Σ_j c_ij d²ρ_j/dz² = μ_i(ρ) - μ_i^eq を等間隔格子の差分で離散化し、
		両端を気相・液相の密度に固定して Newton 法で解く。
		初期値は参照成分法の分布。γ = ∫ Σ c_ij ρ_i' ρ_j' dz
*/
func Mixture(e *eos.EoS, rhol, rhov []float64, T, P float64, beta [][]float64, opts Options) (*Result, error) {
	nc := e.NumComponents()
	if beta != nil {
		if len(beta) != nc {
			return nil, fmt.Errorf("%w: beta must be %dx%d", eos.ErrSpecification, nc, nc)
		}
		for i := range beta {
			if len(beta[i]) != nc || beta[i][i] != 0 {
				return nil, fmt.Errorf("%w: beta must be %dx%d with a zero diagonal", eos.ErrSpecification, nc, nc)
			}
		}
	}

	ref, err := MixtureBeta0(e, rhol, rhov, T, P, opts)
	if err != nil {
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

	C := mat.NewSymDense(nc, nil)
	for i := 0; i < nc; i++ {
		for j := i; j < nc; j++ {
			b := 0.
			if beta != nil {
				b = beta[i][j]
			}
			C.SetSym(i, j, (1-b)*math.Sqrt(c[i]*c[j]))
		}
	}

	// 等間隔格子と初期分布
	zp := ref.Profile.Z
	zmid := (zp[0] + zp[len(zp)-1]) / 2
	half := domain_widen * (zp[len(zp)-1] - zp[0]) / 2
	ng := opts.NGrid
	z := make([]float64, ng)
	floats.Span(z, zmid-half, zmid+half)
	h := z[1] - z[0]

	rho := mat.NewDense(ng, nc, nil)
	rho.SetRow(0, rhov)
	rho.SetRow(ng-1, rhol)
	for k := 1; k < ng-1; k++ {
		rho.SetRow(k, ref.Profile.At(z[k]))
	}

	bulk, err := e.LocalAux(ta, rhol, nil)
	if err != nil {
		return nil, err
	}
	mu_eq := bulk.Mu
	rt := eos.R * T

	ni := ng - 2
	m := ni * nc
	xass := make([][]float64, ng)
	mu := mat.NewDense(ng, nc, nil)
	dmu := make([]*mat.Dense, ng)
	for k := range dmu {
		dmu[k] = mat.NewDense(nc, nc, nil)
	}

	// 格子点 k の化学ポテンシャルとその密度微分
	var last_err error
	local := func(k int) error {
		r := rho.RawRowView(k)
		l, err := e.LocalAux(ta, r, xass[k])
		if err != nil {
			return err
		}
		xass[k] = l.Assoc.X
		mu.SetRow(k, l.Mu)

		u := make([]float64, nc)
		for i := range u {
			u[i] = math.Log(r[i])
		}
		xk := xass[k]
		fd.Jacobian(dmu[k], func(out, u []float64) {
			w := make([]float64, nc)
			for i := range w {
				w[i] = math.Exp(u[i])
			}
			l, err := e.LocalAux(ta, w, xk)
			if err != nil {
				last_err = err
				floats.Scale(0, out)
				return
			}
			copy(out, l.Mu)
		}, u, &fd.JacobianSettings{Formula: fd.Central, Step: 1e-6, OriginValue: l.Mu})
		if last_err != nil {
			return last_err
		}
		// d/d ln ρ_j から d/dρ_j へ
		for j := 0; j < nc; j++ {
			for i := 0; i < nc; i++ {
				dmu[k].Set(i, j, dmu[k].At(i, j)/r[j])
			}
		}
		return nil
	}

	F := mat.NewVecDense(m, nil)
	J := mat.NewDense(m, m, nil)
	var step mat.VecDense
	lap := make([]float64, nc)
	d2 := make([]float64, nc)

	res := &Result{Error: math.Inf(1)}
	for it := 1; it <= opts.MaxIter; it++ {
		res.Iterations = it
		for k := 1; k < ng-1; k++ {
			if err := local(k); err != nil {
				return nil, err
			}
		}

		J.Zero()
		var norm float64
		for k := 1; k < ng-1; k++ {
			row := (k - 1) * nc
			for j := 0; j < nc; j++ {
				d2[j] = (rho.At(k+1, j) - 2*rho.At(k, j) + rho.At(k-1, j)) / (h * h)
			}
			mat.NewVecDense(nc, lap).MulVec(C, mat.NewVecDense(nc, d2))
			for i := 0; i < nc; i++ {
				f := (lap[i] - (mu.At(k, i) - mu_eq[i])) / rt
				F.SetVec(row+i, f)
				norm = math.Max(norm, math.Abs(f))
				for j := 0; j < nc; j++ {
					cij := C.At(i, j) / (h * h * rt)
					J.Set(row+i, row+j, -2*cij-dmu[k].At(i, j)/rt)
					if k > 1 {
						J.Set(row+i, row-nc+j, cij)
					}
					if k < ng-2 {
						J.Set(row+i, row+nc+j, cij)
					}
				}
			}
		}
		res.Error = norm
		if norm < opts.Tol {
			res.Success = true
			break
		}

		F.ScaleVec(-1, F)
		if err := step.SolveVec(J, F); err != nil {
			break
		}

		// 密度が正に保たれるように刻みを縮める。
		a := 1.
		for k := 1; k < ng-1; k++ {
			for i := 0; i < nc; i++ {
				d := step.AtVec((k-1)*nc + i)
				if r := rho.At(k, i); r+d <= 0 {
					a = math.Min(a, 0.9*r/-d)
				}
			}
		}
		for k := 1; k < ng-1; k++ {
			for i := 0; i < nc; i++ {
				rho.Set(k, i, rho.At(k, i)+a*step.AtVec((k-1)*nc+i))
			}
		}
	}

	// γ = ∫ ρ'ᵀ C ρ' dz
	integrand := make([]float64, ng)
	grad := mat.NewVecDense(nc, nil)
	for k := 0; k < ng; k++ {
		for i := 0; i < nc; i++ {
			switch k {
			case 0:
				grad.SetVec(i, (rho.At(1, i)-rho.At(0, i))/h)
			case ng - 1:
				grad.SetVec(i, (rho.At(ng-1, i)-rho.At(ng-2, i))/h)
			default:
				grad.SetVec(i, (rho.At(k+1, i)-rho.At(k-1, i))/(2*h))
			}
		}
		integrand[k] = mat.Inner(grad, C, grad)
	}
	res.Tension = integrate.Simpsons(z, integrand)
	res.Profile, err = new_profile(z, rho)
	if err != nil {
		return nil, err
	}
	return res, nil
}
