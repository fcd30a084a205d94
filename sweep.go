package main

import (
	"log"
	"sync"

	"gonum.org/v1/gonum/floats"

	"saft_gamma_mie/eos"
	"saft_gamma_mie/equilibrium"
	"saft_gamma_mie/sgt"
)

// 飽和点から界面張力を求める（影響パラメータがない場合は nil）。
func _tension(e *eos.EoS, s *equilibrium.Solution) *sgt.Result {
	if !e.Parameters().HasCii() || !s.Success || len(s.Phases) < 2 {
		return nil
	}
	L, V := s.Phases[0], s.Phases[1]
	var r *sgt.Result
	var err error
	if e.NumComponents() == 1 {
		r, err = sgt.Pure(e, L.Rho(), V.Rho(), s.T(), s.P(), sgt.DefaultOptions())
	} else {
		rhol := make([]float64, len(L.X))
		rhov := make([]float64, len(V.X))
		floats.ScaleTo(rhol, L.Rho(), L.X)
		floats.ScaleTo(rhov, V.Rho(), V.X)
		r, err = sgt.MixtureBeta0(e, rhol, rhov, s.T(), s.P(), sgt.DefaultOptions())
	}
	if err != nil {
		log.Printf("WARNING: interfacial tension at T=%g K: %v", s.T(), err)
		return nil
	}
	return r
}

/*
純物質の飽和圧力を温度の順に求める（前の温度の解を初期値とする）。

	Args:
		e: 状態方程式（純物質）
		rec: 記録
*/
func sweep_pure_warm(e *eos.EoS, rec *Recorder) {
	opts := equilibrium.DefaultOptions()
	init := equilibrium.Init{}
	for n, T := range rec.t_ns {
		s, err := equilibrium.Psat(e, T, init, opts)
		if err != nil {
			log.Printf("WARNING: psat at T=%g K: %v", T, err)
			init = equilibrium.Init{}
			continue
		}
		if err := s.Err(); err != nil {
			log.Printf("WARNING: %v", err)
		}
		rec.recording(n, s, _tension(e, s))
		if s.Success {
			init = equilibrium.Init{
				P:     s.P(),
				VL:    s.Phases[0].V,
				VV:    s.Phases[1].V,
				XassL: s.Phases[0].Xass,
				XassV: s.Phases[1].Xass,
			}
		}
	}
}

/*
純物質の飽和圧力を温度ごとに独立に求める。

	Args:
		e: 状態方程式（純物質）
		rec: 記録
		n_workers: 同時に計算する goroutine の数
*/
func sweep_pure_cold(e *eos.EoS, rec *Recorder, n_workers int) {
	if n_workers < 1 {
		n_workers = 1
	}
	opts := equilibrium.DefaultOptions()
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < n_workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := range jobs {
				T := rec.t_ns[n]
				s, err := equilibrium.Psat(e, T, equilibrium.Init{}, opts)
				if err != nil {
					log.Printf("WARNING: psat at T=%g K: %v", T, err)
					continue
				}
				if err := s.Err(); err != nil {
					log.Printf("WARNING: %v", err)
				}
				rec.recording(n, s, _tension(e, s))
			}
		}()
	}
	for n := range rec.t_ns {
		jobs <- n
	}
	close(jobs)
	wg.Wait()
}

/*
混合物の沸点圧力を温度の順に求める。

	Args:
		e: 状態方程式
		x: 液相組成, [i]
		p0: 最初の温度の圧力の初期値, Pa
		rec: 記録
*/
func sweep_bubble(e *eos.EoS, x []float64, p0 float64, rec *Recorder) {
	opts := equilibrium.Options{Tol: 1e-10, MaxIter: 500}
	init := equilibrium.Init{P: p0}
	for n, T := range rec.t_ns {
		s, err := equilibrium.BubblePy(e, x, T, init, opts)
		if err != nil {
			log.Printf("WARNING: bubble point at T=%g K: %v", T, err)
			continue
		}
		if err := s.Err(); err != nil {
			log.Printf("WARNING: %v", err)
		}
		rec.recording(n, s, _tension(e, s))
		if s.Success {
			init = equilibrium.Init{P: s.P(), X: s.Phases[1].X}
		}
	}
}
