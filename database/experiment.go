package database

import (
	"fmt"
	"os"

	"github.com/gocarina/gocsv"
)

// 界面張力の実測データ（1行）
type Experiment struct {
	T       float64 `csv:"T"`       // 温度, K
	P       float64 `csv:"P"`       // 飽和圧力, Pa
	RhoL    float64 `csv:"rhol"`    // 液相モル密度, mol/m3
	RhoV    float64 `csv:"rhov"`    // 気相モル密度, mol/m3
	Tension float64 `csv:"tension"` // 界面張力, N/m
}

/*
界面張力の実測データを読み込む。

	Args:
		file_path: CSV ファイルのパス (列: T, P, rhol, rhov, tension)

	Returns:
		実測データ
*/
func LoadExperiments(file_path string) ([]Experiment, error) {
	file, err := os.Open(file_path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var rows []Experiment
	if err := gocsv.UnmarshalFile(file, &rows); err != nil {
		return nil, fmt.Errorf("read %s: %w", file_path, err)
	}

	for i, r := range rows {
		if r.T <= 0 || r.RhoL <= 0 || r.RhoV <= 0 || r.Tension < 0 {
			return nil, fmt.Errorf("%w: row %d of %s", ErrInvalidRecord, i+1, file_path)
		}
	}

	return rows, nil
}
