package database

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
)

//go:embed data/*.csv
var embedded embed.FS

// 官能基の組（順序なし）
type pairKey struct {
	k, l string
}

func newPairKey(k, l string) pairKey {
	if k > l {
		k, l = l, k
	}
	return pairKey{k, l}
}

// 会合サイトの組（順序なし）
type assocKey struct {
	k string
	a SiteType
	l string
	b SiteType
}

func newAssocKey(k string, a SiteType, l string, b SiteType) assocKey {
	if k > l || (k == l && a > b) {
		k, a, l, b = l, b, k, a
	}
	return assocKey{k, a, l, b}
}

/*
官能基パラメータのカタログ

	構築後は変更しない。複数の EoS から同時に参照してよい。
*/
type ParameterSet struct {
	groups map[string]Group
	order  []string
	unlike map[pairKey]UnlikePair
	assoc  map[assocKey]AssocPair
}

/*
レコードからパラメータセットを作成する。

	Args:
		groups: 官能基のレコード
		unlike: 異種官能基間のレコード
		assoc: 会合サイト間のレコード

	Returns:
		パラメータセット
*/
func NewParameterSet(groups []Group, unlike []UnlikePair, assoc []AssocPair) (*ParameterSet, error) {
	ps := &ParameterSet{
		groups: make(map[string]Group, len(groups)),
		order:  make([]string, 0, len(groups)),
		unlike: make(map[pairKey]UnlikePair, len(unlike)),
		assoc:  make(map[assocKey]AssocPair, len(assoc)),
	}

	for _, g := range groups {
		if _, ok := ps.groups[g.Name]; ok {
			return nil, fmt.Errorf("%w: duplicated group %q", ErrInvalidRecord, g.Name)
		}
		if g.Sigma <= 0 || g.Eps <= 0 || g.Vk <= 0 || g.Sk <= 0 {
			return nil, fmt.Errorf("%w: group %q has non-positive size or energy", ErrInvalidRecord, g.Name)
		}
		if g.LambdaR <= 3 || g.LambdaA <= 3 || g.LambdaR <= g.LambdaA {
			return nil, fmt.Errorf("%w: group %q has invalid Mie exponents", ErrInvalidRecord, g.Name)
		}
		ps.groups[g.Name] = g
		ps.order = append(ps.order, g.Name)
	}

	for _, u := range unlike {
		if _, err := ps.Group(u.GroupK); err != nil {
			return nil, err
		}
		if _, err := ps.Group(u.GroupL); err != nil {
			return nil, err
		}
		ps.unlike[newPairKey(u.GroupK, u.GroupL)] = u
	}

	for _, a := range assoc {
		gk, err := ps.Group(a.GroupK)
		if err != nil {
			return nil, err
		}
		gl, err := ps.Group(a.GroupL)
		if err != nil {
			return nil, err
		}
		if gk.Sites(a.SiteA) == 0 || gl.Sites(a.SiteB) == 0 {
			return nil, fmt.Errorf("%w: association %s(%s)-%s(%s) refers to a missing site", ErrInvalidRecord, a.GroupK, a.SiteA, a.GroupL, a.SiteB)
		}
		ps.assoc[newAssocKey(a.GroupK, a.SiteA, a.GroupL, a.SiteB)] = a
	}

	return ps, nil
}

/*
ディレクトリから CSV を読み込みパラメータセットを作成する。

	Args:
		dir: groups.csv, unlike.csv, assoc.csv を含むディレクトリ

	Returns:
		パラメータセット
*/
func LoadParameterSet(dir string) (*ParameterSet, error) {
	var groups []Group
	if err := _unmarshal_file(filepath.Join(dir, "groups.csv"), &groups); err != nil {
		return nil, err
	}

	var unlike []UnlikePair
	if err := _unmarshal_file(filepath.Join(dir, "unlike.csv"), &unlike); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	var assoc []AssocPair
	if err := _unmarshal_file(filepath.Join(dir, "assoc.csv"), &assoc); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	return NewParameterSet(groups, unlike, assoc)
}

func _unmarshal_file(path string, out interface{}) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := gocsv.UnmarshalFile(file, out); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}

/*
組み込みのサンプルパラメータセットを取得する。

	Notes:
		SAFT-γ-Mie の公開パラメータ (CH3, CH2, CH, CH4, H2O, CH2OH, CO2) の一部。
*/
func Default() *ParameterSet {
	var groups []Group
	var unlike []UnlikePair
	var assoc []AssocPair

	for name, out := range map[string]interface{}{
		"data/groups.csv": &groups,
		"data/unlike.csv": &unlike,
		"data/assoc.csv":  &assoc,
	} {
		b, err := embedded.ReadFile(name)
		if err != nil {
			panic(err)
		}
		if err := gocsv.UnmarshalBytes(b, out); err != nil {
			panic(err)
		}
	}

	ps, err := NewParameterSet(groups, unlike, assoc)
	if err != nil {
		panic(err)
	}
	return ps
}

// 官能基を名前で検索する。
func (ps *ParameterSet) Group(name string) (Group, error) {
	g, ok := ps.groups[name]
	if !ok {
		return Group{}, fmt.Errorf("%w: %q", ErrUnknownGroup, name)
	}
	return g, nil
}

// 登録されている官能基名（登録順）
func (ps *ParameterSet) Groups() []string {
	names := make([]string, len(ps.order))
	copy(names, ps.order)
	return names
}

// 異種官能基間の明示パラメータを検索する。
func (ps *ParameterSet) Unlike(k, l string) (UnlikePair, bool) {
	u, ok := ps.unlike[newPairKey(k, l)]
	return u, ok
}

// 会合サイト間の明示パラメータを検索する。
func (ps *ParameterSet) Assoc(k string, a SiteType, l string, b SiteType) (AssocPair, bool) {
	p, ok := ps.assoc[newAssocKey(k, a, l, b)]
	return p, ok
}
