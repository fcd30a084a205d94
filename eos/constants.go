package eos

// ボルツマン定数, J/K
const kb = 1.380649e-23

// アボガドロ数, 1/mol
const Na = 6.02214076e23

// 気体定数, J/(mol K)
const R = kb * Na

// 単位換算
const (
	angstrom  = 1e-10 // Å -> m
	angstrom3 = 1e-30 // Å^3 -> m3
)

// 剛体球の最密充填率
const eta_max = 0.7405
