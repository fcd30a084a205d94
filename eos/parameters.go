package eos

import (
	"fmt"
	"math"

	"saft_gamma_mie/database"
)

// 会合サイト（官能基 k のサイト種類 a）
type site struct {
	group int
	kind  database.SiteType
	count float64 // 官能基あたりのサイト数 n_k,a
}

// 成分 i に属する会合サイト（未知数 X の添字）
type siteInstance struct {
	comp int
	site int
	n    float64 // 分子あたりのサイト数 ν_k,i n_k,a
}

/*
解決済みパラメータ

	SI 単位 (J, m, m3) で保持する。Resolve で一度だけ作成し、以後変更しない。
	官能基の添字 k, l は Groups の並び、成分の添字 i, j は Names の並びに対応する。
*/
type Parameters struct {
	Names  []string // 成分名
	Groups []string // 全成分の官能基の和集合（出現順）

	Nu [][]float64 // ν_k,i 成分 i における官能基 k の数, [i][k]
	Vk []float64   // v*_k
	Sk []float64   // S_k

	Sigma   [][]float64 // σ_kl, m
	Eps     [][]float64 // ε_kl, J
	LambdaR [][]float64 // λr_kl
	LambdaA [][]float64 // λa_kl

	Ms  []float64   // 分子あたりのセグメント数 m_s,i
	Zki [][]float64 // 分子内の官能基セグメント分率 z_k,i, [i][k]
	Mw  []float64   // モル質量, g/mol

	mie [][]mieConstants // 官能基対の Mie 定数

	// 連鎖項で用いる分子平均パラメータ
	sigma3_ii []float64
	eps_ii    []float64
	mie_ii    []mieConstants
	eps_ij    [][]float64 // 分子間エネルギー（会合強度の換算温度に使用）, J

	// 会合
	sites  []site
	inst   []siteInstance
	eps_hb [][]float64 // ε^HB, J, [site][site]
	kab    [][]float64 // K, m3, [site][site]

	cii [][]float64 // 影響パラメータ係数, [i]
}

// 成分数
func (p *Parameters) nc() int {
	return len(p.Names)
}

// 官能基数
func (p *Parameters) ng() int {
	return len(p.Groups)
}

// 会合を考慮するか否か
func (p *Parameters) associating() bool {
	return len(p.inst) > 0
}

/*
混合物の官能基パラメータをデータベースから解決する。

	Args:
		ps: 官能基パラメータのカタログ
		mix: 混合物の定義

	Returns:
		解決済みパラメータ

	Notes:
		上書きの優先順位は 混合物の WithUnlike > カタログの異種間パラメータ > 組み合わせ則
*/
func Resolve(ps *database.ParameterSet, mix *Mixture) (*Parameters, error) {
	if ps == nil || mix == nil {
		return nil, fmt.Errorf("%w: nil parameter set or mixture", ErrSpecification)
	}

	comps := mix.components
	nc := len(comps)

	// 官能基の和集合
	index := map[string]int{}
	var groups []database.Group
	for _, c := range comps {
		for _, gc := range c.groups {
			if _, ok := index[gc.Name]; ok {
				continue
			}
			g, err := ps.Group(gc.Name)
			if err != nil {
				return nil, fmt.Errorf("component %q: %w", c.name, err)
			}
			index[gc.Name] = len(groups)
			groups = append(groups, g)
		}
	}
	ng := len(groups)

	p := &Parameters{
		Names:  make([]string, nc),
		Groups: make([]string, ng),
		Nu:     new_matrix(nc, ng),
		Vk:     make([]float64, ng),
		Sk:     make([]float64, ng),
		Ms:     make([]float64, nc),
		Zki:    new_matrix(nc, ng),
		Mw:     make([]float64, nc),
		cii:    make([][]float64, nc),
	}

	for k, g := range groups {
		p.Groups[k] = g.Name
		p.Vk[k] = g.Vk
		p.Sk[k] = g.Sk
	}

	for i, c := range comps {
		p.Names[i] = c.name
		p.cii[i] = c.cii
		for _, gc := range c.groups {
			k := index[gc.Name]
			p.Nu[i][k] = float64(gc.Count)
			p.Mw[i] += float64(gc.Count) * groups[k].Mw
		}
		for k := 0; k < ng; k++ {
			p.Ms[i] += p.Nu[i][k] * p.Vk[k] * p.Sk[k]
		}
		for k := 0; k < ng; k++ {
			p.Zki[i][k] = p.Nu[i][k] * p.Vk[k] * p.Sk[k] / p.Ms[i]
		}
	}

	_resolve_pairs(p, ps, mix, groups)
	_resolve_molecular(p)
	if err := _resolve_association(p, ps, groups); err != nil {
		return nil, err
	}

	return p, nil
}

// 官能基対のパラメータ（組み合わせ則と上書き）
func _resolve_pairs(p *Parameters, ps *database.ParameterSet, mix *Mixture, groups []database.Group) {
	ng := len(groups)
	p.Sigma = new_matrix(ng, ng)
	p.Eps = new_matrix(ng, ng)
	p.LambdaR = new_matrix(ng, ng)
	p.LambdaA = new_matrix(ng, ng)
	p.mie = make([][]mieConstants, ng)
	for k := range p.mie {
		p.mie[k] = make([]mieConstants, ng)
	}

	for k := 0; k < ng; k++ {
		gk := groups[k]
		for l := k; l < ng; l++ {
			gl := groups[l]

			// 対角は同種パラメータと厳密に一致させる。
			var sigma, eps, lr, la float64
			if k == l {
				sigma = gk.Sigma * angstrom
				eps = gk.Eps * kb
				lr = gk.LambdaR
				la = gk.LambdaA
			} else {
				sigma = combine_sigma(gk.Sigma, gl.Sigma)
				eps = combine_eps(gk.Sigma, gl.Sigma, sigma, gk.Eps, gl.Eps) * kb
				sigma *= angstrom
				lr = combine_lambda(gk.LambdaR, gl.LambdaR)
				la = combine_lambda(gk.LambdaA, gl.LambdaA)

				if u, ok := ps.Unlike(gk.Name, gl.Name); ok {
					if u.Eps > 0 {
						eps = u.Eps * kb
					}
					if u.LambdaR > 0 {
						lr = u.LambdaR
					}
				}
				if u, ok := mix.unlike[unlike_key(gk.Name, gl.Name)]; ok {
					if u.eps > 0 {
						eps = u.eps * kb
					}
					if u.lr > 0 {
						lr = u.lr
					}
				}
			}

			p.Sigma[k][l], p.Sigma[l][k] = sigma, sigma
			p.Eps[k][l], p.Eps[l][k] = eps, eps
			p.LambdaR[k][l], p.LambdaR[l][k] = lr, lr
			p.LambdaA[k][l], p.LambdaA[l][k] = la, la

			m := new_mie_constants(lr, la)
			p.mie[k][l], p.mie[l][k] = m, m
		}
	}
}

/*
分子平均パラメータ

	Notes:
		Papaioannou et al. (2014), Eqs.(40)-(45)
*/
func _resolve_molecular(p *Parameters) {
	nc, ng := p.nc(), p.ng()
	p.sigma3_ii = make([]float64, nc)
	p.eps_ii = make([]float64, nc)
	p.mie_ii = make([]mieConstants, nc)

	for i := 0; i < nc; i++ {
		var s3, e, lr, la float64
		for k := 0; k < ng; k++ {
			for l := 0; l < ng; l++ {
				zz := p.Zki[i][k] * p.Zki[i][l]
				s3 += zz * cube(p.Sigma[k][l])
				e += zz * p.Eps[k][l]
				lr += zz * p.LambdaR[k][l]
				la += zz * p.LambdaA[k][l]
			}
		}
		p.sigma3_ii[i] = s3
		p.eps_ii[i] = e
		p.mie_ii[i] = new_mie_constants(lr, la)
	}

	p.eps_ij = new_matrix(nc, nc)
	for i := 0; i < nc; i++ {
		for j := 0; j < nc; j++ {
			si, sj := math.Cbrt(p.sigma3_ii[i]), math.Cbrt(p.sigma3_ii[j])
			p.eps_ij[i][j] = combine_eps(si, sj, combine_sigma(si, sj), p.eps_ii[i], p.eps_ii[j])
		}
	}
}

// 会合サイトの列挙と会合パラメータ
func _resolve_association(p *Parameters, ps *database.ParameterSet, groups []database.Group) error {
	for k, g := range groups {
		for _, s := range database.SiteTypes {
			if n := g.Sites(s); n > 0 {
				p.sites = append(p.sites, site{group: k, kind: s, count: float64(n)})
			}
		}
	}

	ns := len(p.sites)
	p.eps_hb = new_matrix(ns, ns)
	p.kab = new_matrix(ns, ns)

	any_bond := false
	for a := 0; a < ns; a++ {
		for b := a; b < ns; b++ {
			sa, sb := p.sites[a], p.sites[b]
			gk, gl := groups[sa.group], groups[sb.group]

			var eps, kab float64
			if pr, ok := ps.Assoc(gk.Name, sa.kind, gl.Name, sb.kind); ok {
				eps, kab = pr.EpsAB, pr.KAB
			} else if gk.Name != gl.Name {
				pk, ok1 := ps.Assoc(gk.Name, sa.kind, gk.Name, sb.kind)
				pl, ok2 := ps.Assoc(gl.Name, sa.kind, gl.Name, sb.kind)
				if ok1 && ok2 {
					eps = combine_eps_hb(pk.EpsAB, pl.EpsAB)
					kab = combine_kab(pk.KAB, pl.KAB)
				}
			}
			if eps < 0 || kab < 0 {
				return fmt.Errorf("%w: negative association parameter %s-%s", ErrSpecification, gk.Name, gl.Name)
			}
			if eps > 0 && kab > 0 {
				any_bond = true
			}

			p.eps_hb[a][b], p.eps_hb[b][a] = eps*kb, eps*kb
			p.kab[a][b], p.kab[b][a] = kab*angstrom3, kab*angstrom3
		}
	}

	// 結合相手のないサイトは X=1 で寄与しないため未知数から除く。
	if !any_bond {
		return nil
	}
	for i := 0; i < p.nc(); i++ {
		for a, s := range p.sites {
			if p.Nu[i][s.group] == 0 || !_site_can_bond(p, a) {
				continue
			}
			p.inst = append(p.inst, siteInstance{comp: i, site: a, n: p.Nu[i][s.group] * s.count})
		}
	}
	return nil
}

func _site_can_bond(p *Parameters, a int) bool {
	for b := range p.sites {
		if p.eps_hb[a][b] > 0 && p.kab[a][b] > 0 {
			return true
		}
	}
	return false
}

/*
影響パラメータを計算する。

	Args:
		T: 温度, K

	Returns:
		成分 i の影響パラメータ, J m5/mol2, [i]
*/
func (p *Parameters) Cii(T float64) []float64 {
	out := make([]float64, p.nc())
	for i, c := range p.cii {
		out[i] = polyval(c, T)
	}
	return out
}

// 全成分の影響パラメータが与えられているか否か
func (p *Parameters) HasCii() bool {
	for _, c := range p.cii {
		if len(c) == 0 {
			return false
		}
	}
	return true
}

func new_matrix(r, c int) [][]float64 {
	m := make([][]float64, r)
	data := make([]float64, r*c)
	for i := range m {
		m[i] = data[i*c : (i+1)*c]
	}
	return m
}

func cube(x float64) float64 {
	return x * x * x
}
