package main

import "runtime"

// 大気圧, Pa
func get_p_atm() float64 {
	return 101325.0
}

// 並列計算の既定の goroutine 数
func get_n_workers() int {
	return runtime.NumCPU()
}

// 出力ファイル名
func get_result_file_name() string {
	return "result_saturation.csv"
}
