package eos

import (
	"fmt"
)

// 分子中の官能基とその数
type GroupCount struct {
	Name  string // 官能基名
	Count int    // 分子あたりの出現回数
}

/*
成分の定義

	官能基の並びと影響パラメータを保持するだけの入力仕様。
	パラメータの解決は Resolve で行う。
*/
type Component struct {
	name   string
	groups []GroupCount
	cii    []float64 // 影響パラメータの温度多項式係数（高次から）, J m5/mol2
}

/*
成分を作成する。

	Args:
		name: 成分名
		groups: 官能基と出現回数（並び順を保持する）
		cii: 影響パラメータ c_ii の温度多項式係数（高次から）, J m5/mol2
			係数が1つの場合は定数。省略した場合は SGT で使用できない。

	Returns:
		成分
*/
func NewComponent(name string, groups []GroupCount, cii ...float64) (*Component, error) {
	if len(groups) == 0 {
		return nil, fmt.Errorf("%w: component %q has no groups", ErrSpecification, name)
	}

	seen := make(map[string]bool, len(groups))
	for _, g := range groups {
		if g.Count <= 0 {
			return nil, fmt.Errorf("%w: group %q of %q has count %d", ErrSpecification, g.Name, name, g.Count)
		}
		if seen[g.Name] {
			return nil, fmt.Errorf("%w: group %q listed twice in %q", ErrSpecification, g.Name, name)
		}
		seen[g.Name] = true
	}

	c := &Component{
		name:   name,
		groups: append([]GroupCount(nil), groups...),
		cii:    append([]float64(nil), cii...),
	}
	return c, nil
}

// 成分名
func (c *Component) Name() string {
	return c.name
}

// 官能基と出現回数
func (c *Component) Groups() []GroupCount {
	return append([]GroupCount(nil), c.groups...)
}

/*
影響パラメータを計算する。

	Args:
		T: 温度, K

	Returns:
		影響パラメータ, J m5/mol2
*/
func (c *Component) Cii(T float64) float64 {
	return polyval(c.cii, T)
}

// 影響パラメータが与えられているか否か
func (c *Component) HasCii() bool {
	return len(c.cii) > 0
}

// 多項式を評価する（係数は高次から）。
func polyval(coef []float64, x float64) float64 {
	var y float64
	for _, c := range coef {
		y = y*x + c
	}
	return y
}

// 異種官能基間パラメータの上書き
type unlikeOverride struct {
	eps float64 // ε_kl/k, K
	lr  float64 // λr_kl, 0 の場合は組み合わせ則
}

/*
混合物の定義

	成分の並びと官能基間の上書きパラメータを保持する。
*/
type Mixture struct {
	components []*Component
	unlike     map[[2]string]unlikeOverride
}

/*
成分を並べて混合物を作成する。

	Args:
		components: 成分（順序を保持する）

	Returns:
		混合物
*/
func NewMixture(components ...*Component) (*Mixture, error) {
	if len(components) == 0 {
		return nil, fmt.Errorf("%w: mixture without components", ErrSpecification)
	}
	for i, c := range components {
		if c == nil {
			return nil, fmt.Errorf("%w: component %d is nil", ErrSpecification, i)
		}
	}
	return &Mixture{
		components: append([]*Component(nil), components...),
		unlike:     map[[2]string]unlikeOverride{},
	}, nil
}

/*
官能基間の相互作用を上書きした混合物を返す。

	Args:
		k, l: 官能基名
		eps: ε_kl/k, K
		lr: λr_kl, 0 の場合は組み合わせ則

	Returns:
		上書きを加えた新しい混合物（元の混合物は変更しない）
*/
func (m *Mixture) WithUnlike(k, l string, eps, lr float64) *Mixture {
	out := &Mixture{
		components: m.components,
		unlike:     make(map[[2]string]unlikeOverride, len(m.unlike)+1),
	}
	for key, v := range m.unlike {
		out.unlike[key] = v
	}
	out.unlike[unlike_key(k, l)] = unlikeOverride{eps: eps, lr: lr}
	return out
}

// 成分
func (m *Mixture) Components() []*Component {
	return append([]*Component(nil), m.components...)
}

func unlike_key(k, l string) [2]string {
	if k > l {
		k, l = l, k
	}
	return [2]string{k, l}
}
