package main

import (
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/exp/slices"

	"saft_gamma_mie/database"
	"saft_gamma_mie/eos"
)

/*
成分の指定

	Name: 成分名
	Groups: 官能基名と分子あたりの出現回数
	Cii: 影響パラメータの温度多項式の係数（高次から）, J m5/mol2
*/
type ComponentCase struct {
	Name   string         `json:"name"`
	Groups map[string]int `json:"groups"`
	Cii    []float64      `json:"cii"`
}

// 異種官能基間パラメータの上書き
type UnlikeCase struct {
	K   string  `json:"k"`
	L   string  `json:"l"`
	Eps float64 `json:"eps"` // ε_kl/k, K
	Lr  float64 `json:"lr"`  // λr_kl（0 は組合せ則）
}

/*
計算条件

	Components: 成分
	Unlike: 異種官能基間パラメータの上書き
	X: 混合物の液相組成（沸点計算）
	TMin, TMax, TStep: 温度の範囲と刻み, K
	PGuess: 混合物の沸点圧力の初期値, Pa
	Experiments: 影響パラメータを当てはめる界面張力の実測データ CSV（純物質のみ）
	FitDegree: 影響パラメータの多項式の次数
*/
type Case struct {
	Components  []ComponentCase `json:"components"`
	Unlike      []UnlikeCase    `json:"unlike"`
	X           []float64       `json:"x"`
	TMin        float64         `json:"t_min"`
	TMax        float64         `json:"t_max"`
	TStep       float64         `json:"t_step"`
	PGuess      float64         `json:"p_guess"`
	Experiments string          `json:"experiments"`
	FitDegree   int             `json:"fit_degree"`
}

/*
計算条件 JSON ファイルを読み込む。

	Args:
		file_path: JSON ファイルのパス

	Returns:
		計算条件
*/
func load_case(file_path string) (*Case, error) {
	bytes, err := os.ReadFile(file_path)
	if err != nil {
		return nil, err
	}
	var c Case
	if err := json.Unmarshal(bytes, &c); err != nil {
		return nil, fmt.Errorf("read %s: %w", file_path, err)
	}
	if len(c.Components) == 0 {
		return nil, fmt.Errorf("%w: %s has no components", eos.ErrSpecification, file_path)
	}
	if !(c.TMin > 0) || c.TMax < c.TMin {
		return nil, fmt.Errorf("%w: temperature range [%g, %g]", eos.ErrSpecification, c.TMin, c.TMax)
	}
	if c.TStep <= 0 {
		c.TStep = c.TMax - c.TMin
		if c.TStep == 0 {
			c.TStep = 1
		}
	}
	if len(c.Components) > 1 && len(c.X) != len(c.Components) {
		return nil, fmt.Errorf("%w: mixture case needs x with %d entries", eos.ErrComposition, len(c.Components))
	}
	if len(c.Components) > 1 && !(c.PGuess > 0) {
		c.PGuess = get_p_atm()
	}
	return &c, nil
}

// 計算する温度, K
func (c *Case) temperatures() []float64 {
	n := int((c.TMax-c.TMin)/c.TStep+1e-9) + 1
	ts := make([]float64, n)
	for i := range ts {
		ts[i] = c.TMin + float64(i)*c.TStep
	}
	return ts
}

/*
計算条件から状態方程式を作成する。

	Args:
		ps: 官能基パラメータのカタログ

	Returns:
		状態方程式
*/
func (c *Case) build(ps *database.ParameterSet) (*eos.EoS, error) {
	comps := make([]*eos.Component, 0, len(c.Components))
	for _, cc := range c.Components {
		// JSON のマップは順序を持たないので官能基名で並べる。
		names := make([]string, 0, len(cc.Groups))
		for g := range cc.Groups {
			names = append(names, g)
		}
		slices.Sort(names)
		groups := make([]eos.GroupCount, len(names))
		for i, g := range names {
			groups[i] = eos.GroupCount{Name: g, Count: cc.Groups[g]}
		}
		comp, err := eos.NewComponent(cc.Name, groups, cc.Cii...)
		if err != nil {
			return nil, fmt.Errorf("component %s: %w", cc.Name, err)
		}
		comps = append(comps, comp)
	}

	mix, err := eos.NewMixture(comps...)
	if err != nil {
		return nil, err
	}
	for _, u := range c.Unlike {
		mix = mix.WithUnlike(u.K, u.L, u.Eps, u.Lr)
	}
	return eos.New(ps, mix)
}
