package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gocarina/gocsv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saft_gamma_mie/database"
	"saft_gamma_mie/eos"
)

func write_case(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "case.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func read_rows(t *testing.T, dir string) []Row {
	file, err := os.Open(filepath.Join(dir, get_result_file_name()))
	require.NoError(t, err)
	defer file.Close()
	var rows []Row
	require.NoError(t, gocsv.UnmarshalFile(file, &rows))
	return rows
}

func TestLoadCase(t *testing.T) {
	c, err := load_case(filepath.Join("example", "water.json"))
	require.NoError(t, err)
	assert.Len(t, c.temperatures(), 11)
	assert.Equal(t, 300., c.temperatures()[0])
	assert.Equal(t, 400., c.temperatures()[10])

	e, err := c.build(database.Default())
	require.NoError(t, err)
	assert.Equal(t, 1, e.NumComponents())
	assert.True(t, e.Parameters().HasCii())

	m, err := load_case(filepath.Join("example", "hexane_butane.json"))
	require.NoError(t, err)
	assert.Equal(t, []float64{0.3, 0.7}, m.X)

	_, err = load_case(write_case(t, `{"components": [], "t_min": 300, "t_max": 310}`))
	assert.ErrorIs(t, err, eos.ErrSpecification)

	_, err = load_case(write_case(t, `{"components": [{"name": "a", "groups": {"CH4": 1}}, {"name": "b", "groups": {"CH3": 2}}], "t_min": 300, "t_max": 310}`))
	assert.ErrorIs(t, err, eos.ErrComposition)
}

func TestBuildUnknownGroup(t *testing.T) {
	c, err := load_case(write_case(t, `{"components": [{"name": "x", "groups": {"XYZ": 1}}], "t_min": 300, "t_max": 300}`))
	require.NoError(t, err)
	_, err = c.build(database.Default())
	assert.ErrorIs(t, err, database.ErrUnknownGroup)
}

func TestRunWaterSweep(t *testing.T) {
	path := write_case(t, `{
		"components": [{"name": "water", "groups": {"H2O": 1}, "cii": [1.5e-20]}],
		"t_min": 300, "t_max": 320, "t_step": 10
	}`)

	warm := t.TempDir()
	require.NoError(t, run(path, warm, "", true, 1))
	rows := read_rows(t, warm)
	require.Len(t, rows, 3)
	for i, r := range rows {
		assert.True(t, r.Success)
		assert.Greater(t, r.Tension, 0.)
		assert.Greater(t, r.RhoL, r.RhoV)
		if i > 0 {
			assert.Greater(t, r.P, rows[i-1].P)
			assert.Less(t, r.Tension, rows[i-1].Tension)
		}
	}

	cold := t.TempDir()
	require.NoError(t, run(path, cold, "", false, 2))
	cold_rows := read_rows(t, cold)
	require.Len(t, cold_rows, 3)
	for i := range rows {
		assert.Equal(t, rows[i].T, cold_rows[i].T)
		assert.InEpsilon(t, rows[i].P, cold_rows[i].P, 1e-6)
	}
}

func TestRunBubbleSweep(t *testing.T) {
	path := write_case(t, `{
		"components": [
			{"name": "n-butane", "groups": {"CH3": 2, "CH2": 2}},
			{"name": "n-hexane", "groups": {"CH3": 2, "CH2": 4}}
		],
		"x": [0.3, 0.7], "t_min": 290, "t_max": 310, "t_step": 10
	}`)
	dir := t.TempDir()
	require.NoError(t, run(path, dir, "", true, 1))
	rows := read_rows(t, dir)
	require.Len(t, rows, 3)
	for i, r := range rows {
		assert.True(t, r.Success)
		assert.NotEmpty(t, r.Y)
		assert.Equal(t, 0., r.Tension)
		if i > 0 {
			assert.Greater(t, r.P, rows[i-1].P)
		}
	}
}
