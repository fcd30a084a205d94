package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"saft_gamma_mie/database"
	"saft_gamma_mie/eos"
	"saft_gamma_mie/sgt"
)

/*
飽和計算と界面張力計算の実行

	Args:
		case_path: 計算条件JSONファイルへのパス
		output_data_dir: 出力フォルダへのパス
		parameter_dir: 官能基パラメータの CSV フォルダ（空の場合は組み込みのカタログ）
		warm_start: 前の温度の解を初期値とするか否か
		n_workers: warm_start でない場合に同時に計算する goroutine の数
*/
func run(
	case_path string,
	output_data_dir string,
	parameter_dir string,
	warm_start bool,
	n_workers int,
) error {
	// ---- 事前準備 ----

	// 出力ディレクトリの作成
	if err := os.MkdirAll(output_data_dir, 0755); err != nil {
		return err
	}

	log.Printf("計算条件JSONファイルの読み込み開始")
	c, err := load_case(case_path)
	if err != nil {
		return err
	}

	log.Printf("官能基パラメータの読み込み開始")
	ps := database.Default()
	if parameter_dir != "" {
		ps, err = database.LoadParameterSet(parameter_dir)
		if err != nil {
			return err
		}
	}

	e, err := c.build(ps)
	if err != nil {
		return err
	}

	// 影響パラメータの当てはめ
	if c.Experiments != "" {
		if e.NumComponents() != 1 {
			return fmt.Errorf("%w: cii fit needs a pure fluid", eos.ErrSpecification)
		}
		log.Printf("影響パラメータの当てはめ開始: %s", c.Experiments)
		data, err := database.LoadExperiments(c.Experiments)
		if err != nil {
			return err
		}
		fit, err := sgt.FitCii(e, data, c.FitDegree, sgt.DefaultOptions())
		if err != nil {
			return err
		}
		log.Printf("cii = %v J m5/mol2 (AAD %.3g %%)", fit.Coef, 100*fit.AAD)
		c.Components[0].Cii = fit.Coef
		if e, err = c.build(ps); err != nil {
			return err
		}
	}

	// ---- 計算 ----

	rec := NewRecorder(c.temperatures())
	switch {
	case e.NumComponents() > 1:
		log.Printf("沸点計算開始 (%d 点)", len(rec.t_ns))
		sweep_bubble(e, c.X, c.PGuess, rec)
	case warm_start:
		log.Printf("飽和圧力計算開始 (%d 点, 連続計算)", len(rec.t_ns))
		sweep_pure_warm(e, rec)
	default:
		log.Printf("飽和圧力計算開始 (%d 点, %d 並列)", len(rec.t_ns), n_workers)
		sweep_pure_cold(e, rec, n_workers)
	}

	// ---- 計算結果ファイルの保存 ----

	result_path := filepath.Join(output_data_dir, get_result_file_name())
	log.Printf("Save calculation results to `%s`", result_path)
	if err := rec.export(result_path); err != nil {
		return err
	}
	log.Printf("%d / %d points solved", rec.n_done, len(rec.t_ns))
	return nil
}

func main() {
	var case_path string
	flag.StringVar(&case_path, "input", "", "計算を実行するJSONファイル")

	var output_data_dir string
	flag.StringVar(&output_data_dir, "o", ".", "出力フォルダ")

	var parameter_dir string
	flag.StringVar(&parameter_dir, "parameters", "", "官能基パラメータの CSV フォルダ (groups.csv, unlike.csv, assoc.csv)")

	var warm_start bool
	flag.BoolVar(&warm_start, "warm", true, "前の温度の解を初期値として連続計算するか否かを指定します。")

	var n_workers int
	flag.IntVar(&n_workers, "workers", get_n_workers(), "連続計算しない場合に同時に計算する数を指定します。")

	// 引数を受け取る
	flag.Parse()

	if case_path == "" {
		flag.Usage()
		os.Exit(2)
	}

	start := time.Now()

	if err := run(case_path, output_data_dir, parameter_dir, warm_start, n_workers); err != nil {
		log.Fatal(err)
	}

	elapsedTime := time.Since(start)
	log.Printf("elapsed_time: %v [sec]", elapsedTime.Seconds())
}
