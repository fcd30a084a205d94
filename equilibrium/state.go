package equilibrium

import (
	"errors"
	"fmt"

	"saft_gamma_mie/eos"
)

var (
	// ErrConvergence: 反復計算が許容回数内に収束しなかった。
	ErrConvergence = errors.New("solver did not converge")
	// ErrNoPhaseSplit: 相分離が起こらない条件（臨界温度以上など）。
	ErrNoPhaseSplit = errors.New("no phase split")
)

/*
相の状態

	T: 温度, K
	P: 圧力, Pa
	V: モル体積, m3/mol
	X: モル分率, [i]
	Xass: 非結合分率（次の計算の初期値に用いる）
	Label: 液相または気相
*/
type PhaseState struct {
	T     float64
	P     float64
	V     float64
	X     []float64
	Xass  []float64
	Label eos.Phase
}

// モル密度, mol/m3
func (s PhaseState) Rho() float64 {
	return 1 / s.V
}

func new_phase_state(T, P float64, x []float64, ph *eos.PhaseProps, label eos.Phase) PhaseState {
	return PhaseState{
		T:     T,
		P:     P,
		V:     ph.V(),
		X:     append([]float64(nil), x...),
		Xass:  ph.Assoc.X,
		Label: label,
	}
}

/*
平衡計算の結果

	Phases: 共存する相
	Beta: 各相の相分率（フラッシュ計算のみ）
	Iterations: 反復回数
	Error: 最終的な残差
	Success: 収束したか否か
	Method: 最終的に用いた解法
*/
type Solution struct {
	Phases     []PhaseState
	Beta       []float64
	Iterations int
	Error      float64
	Success    bool
	Method     string
}

// 温度, K
func (s *Solution) T() float64 {
	return s.Phases[0].T
}

// 圧力, Pa
func (s *Solution) P() float64 {
	return s.Phases[0].P
}

// 収束しなかった場合にエラーを返す。
func (s *Solution) Err() error {
	if s.Success {
		return nil
	}
	return fmt.Errorf("%w: %s after %d iterations (error %g)", ErrConvergence, s.Method, s.Iterations, s.Error)
}

/*
反復計算の条件

	Tol: 収束判定の許容値
	MaxIter: 最大反復回数
*/
type Options struct {
	Tol     float64
	MaxIter int
}

// 既定の計算条件
func DefaultOptions() Options {
	return Options{Tol: 1e-10, MaxIter: 100}
}

// 残差の許容値に対する収束とみなす上限の倍率
const stall_factor = 100

// 残差が許容値の stall_factor 倍未満で、前回から半分以下に減らなくなった。
func stalled(err, prev, tol float64) bool {
	return err < stall_factor*tol && err > 0.5*prev
}

func (o Options) check() error {
	if o.Tol <= 0 || o.MaxIter <= 0 {
		return fmt.Errorf("%w: options %+v", eos.ErrSpecification, o)
	}
	return nil
}

/*
初期値

	P: 圧力, Pa（0 の場合は推定）
	T: 温度, K（0 の場合は推定）
	VL, VV: 液相・気相のモル体積, m3/mol（0 の場合は探索）
	XassL, XassV: 液相・気相の非結合分率
	X: 共存相の組成（露点・沸点計算）
*/
type Init struct {
	P, T         float64
	VL, VV       float64
	XassL, XassV []float64
	X            []float64
}

// モル体積から密度の初期値へ（0 は探索を意味する）
func rho_of(v float64) float64 {
	if v > 0 {
		return 1 / v
	}
	return 0
}
