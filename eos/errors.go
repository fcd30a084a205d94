package eos

import "errors"

var (
	// ErrComposition: 組成が不正（長さ不一致、負値、総和が1でない）。
	ErrComposition = errors.New("invalid composition")
	// ErrDomain: 温度・密度が物理的に取り得ない値（負の密度、充填率が1以上など）。
	ErrDomain = errors.New("value out of domain")
	// ErrSpecification: 成分・混合物の定義が不正。
	ErrSpecification = errors.New("invalid specification")
)
