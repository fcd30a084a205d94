package database

// 会合サイトの種類
type SiteType string

// 会合サイトの種類
const (
	SiteH  SiteType = "H"
	SiteE1 SiteType = "e1"
	SiteE2 SiteType = "e2"
)

// サイトの種類の並び順
var SiteTypes = []SiteType{SiteH, SiteE1, SiteE2}

/*
官能基 (group) のパラメータ

	CSV の1行に対応する。単位はデータベースの慣習に従い K, Å とする。
*/
type Group struct {
	Name    string  `csv:"group"` // 官能基名
	Vk      float64 `csv:"vk"`    // 官能基あたりのセグメント数 v*_k, -
	Sk      float64 `csv:"Sk"`    // 形状因子 S_k, -
	Sigma   float64 `csv:"sigma"` // セグメント径, Å
	Eps     float64 `csv:"eps"`   // セグメントエネルギー ε/k, K
	LambdaR float64 `csv:"lr"`    // 反発指数, -
	LambdaA float64 `csv:"la"`    // 引力指数, -
	NH      int     `csv:"nH"`    // H サイトの数
	NE1     int     `csv:"ne1"`   // e1 サイトの数
	NE2     int     `csv:"ne2"`   // e2 サイトの数
	Mw      float64 `csv:"mw"`    // モル質量, g/mol
}

// サイトの種類ごとの数を取得する。
func (g Group) Sites(s SiteType) int {
	switch s {
	case SiteH:
		return g.NH
	case SiteE1:
		return g.NE1
	case SiteE2:
		return g.NE2
	default:
		panic("invalid site type")
	}
}

// 会合サイトを持つか否か
func (g Group) IsAssociating() bool {
	return g.NH+g.NE1+g.NE2 > 0
}

/*
異種官能基間のパラメータ

	Eps が 0 の場合は組み合わせ則を用いる。LambdaR も同様。
*/
type UnlikePair struct {
	GroupK  string  `csv:"group_k"`
	GroupL  string  `csv:"group_l"`
	Eps     float64 `csv:"eps"` // ε_kl/k, K
	LambdaR float64 `csv:"lr"`  // λr_kl, -
}

// 会合サイト間のパラメータ
type AssocPair struct {
	GroupK string   `csv:"group_k"`
	SiteA  SiteType `csv:"site_a"`
	GroupL string   `csv:"group_l"`
	SiteB  SiteType `csv:"site_b"`
	EpsAB  float64  `csv:"eps_ab"` // 会合エネルギー ε^HB/k, K
	KAB    float64  `csv:"kab"`    // 結合体積, Å^3
}
