package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/gocarina/gocsv"
	"golang.org/x/exp/slices"

	"saft_gamma_mie/equilibrium"
	"saft_gamma_mie/sgt"
)

// 計算結果の出力行
type Row struct {
	T          float64 `csv:"T_K"`
	P          float64 `csv:"P_Pa"`
	RhoL       float64 `csv:"rhol_mol_m3"`
	RhoV       float64 `csv:"rhov_mol_m3"`
	Y          string  `csv:"y"`
	Tension    float64 `csv:"tension_mN_m"`
	Iterations int     `csv:"iterations"`
	Error      float64 `csv:"error"`
	Success    bool    `csv:"success"`
	Method     string  `csv:"method"`
}

/*
温度ごとの計算結果を記録する。

	ステップ n は温度の並びの添字。複数の goroutine から異なる n に書き込んでよい。
*/
type Recorder struct {
	t_ns   []float64
	rows   []*Row
	n_done int
}

func NewRecorder(t_ns []float64) *Recorder {
	return &Recorder{
		t_ns: t_ns,
		rows: make([]*Row, len(t_ns)),
	}
}

/*
ステップ n の結果を記録する。

	Args:
		n: 温度の添字
		s: 平衡計算の結果（Phases[0] が液相、Phases[1] が気相）
		r: 界面張力の計算結果（nil 可）
*/
func (r *Recorder) recording(n int, s *equilibrium.Solution, t *sgt.Result) {
	row := &Row{
		T:          r.t_ns[n],
		Iterations: s.Iterations,
		Error:      s.Error,
		Success:    s.Success,
		Method:     s.Method,
	}
	if len(s.Phases) >= 2 {
		row.P = s.P()
		row.RhoL = s.Phases[0].Rho()
		row.RhoV = s.Phases[1].Rho()
		y := make([]string, len(s.Phases[1].X))
		for i, v := range s.Phases[1].X {
			y[i] = fmt.Sprintf("%.6g", v)
		}
		row.Y = strings.Join(y, " ")
	}
	if t != nil {
		row.Tension = t.MilliNewton()
	}
	r.rows[n] = row
}

// 記録済みの行（温度順）
func (r *Recorder) post_recording() []*Row {
	out := make([]*Row, 0, len(r.rows))
	for _, row := range r.rows {
		if row != nil {
			out = append(out, row)
		}
	}
	slices.SortFunc(out, func(a, b *Row) bool {
		return a.T < b.T
	})
	r.n_done = len(out)
	return out
}

/*
計算結果を CSV ファイルに出力する。

	Args:
		file_path: 出力ファイルのパス
*/
func (r *Recorder) export(file_path string) error {
	rows := r.post_recording()
	file, err := os.Create(file_path)
	if err != nil {
		return err
	}
	defer file.Close()
	return gocsv.MarshalFile(&rows, file)
}
