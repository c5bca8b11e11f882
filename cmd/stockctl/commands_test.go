package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/stocklens/internal/config"
)

const columnCSV = `Index,Brand Name,Rate,Quantity,Monthly Sale value,Stock value Today
101,Royal Stag,100,10,100,350
102,Blenders Pride,50,1,200,50
`

const simpleList = "Royal Stag\nBlenders Pride\n101\n100\n10\n102\n50\n1\n"

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	err := app.Run(append([]string{"stockctl"}, args...))
	return out.String(), err
}

func TestAnalyzeMultipleFiles(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "column.csv", columnCSV)
	b := writeFile(t, dir, "list.csv", simpleList)

	out, err := run(t, "analyze", "--workers", "2", a, b)
	require.NoError(t, err)

	var results []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	assert.Equal(t, a, results[0]["file"])
	assert.Equal(t, b, results[1]["file"])
	assert.Len(t, results[0]["overstock_analysis"], 1)
}

func TestAnalyzeOverstockMultiplier(t *testing.T) {
	v := viper.New()
	config.SetDefaults(v)
	v.Set("ANALYTICS_OVERSTOCK_MULTIPLIER", 5.0)
	cfg := config.FromViper(v)

	orig := loadConfig
	loadConfig = func() *config.Config { return cfg }
	t.Cleanup(func() { loadConfig = orig })

	path := writeFile(t, t.TempDir(), "column.csv", columnCSV)

	tests := []struct {
		name string
		args []string
		want float64
	}{
		{name: "configured default", args: []string{"analyze", path}, want: 5},
		{name: "flag overrides", args: []string{"analyze", "--overstock-multiplier", "2", path}, want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.args...)
			require.NoError(t, err)

			var results []struct {
				Summary struct {
					Multiplier float64 `json:"overstock_multiplier"`
				} `json:"summary"`
			}
			require.NoError(t, json.Unmarshal([]byte(out), &results))
			require.Len(t, results, 1)
			assert.Equal(t, tt.want, results[0].Summary.Multiplier)
		})
	}
}

func TestAnalyzeFailsOnBadFile(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.csv", "Brand A\n1\n")

	_, err := run(t, "analyze", writeFile(t, dir, "ok.csv", columnCSV), bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.csv")
}

func TestDemand(t *testing.T) {
	path := writeFile(t, t.TempDir(), "column.csv", columnCSV)
	out, err := run(t, "demand", path)
	require.NoError(t, err)

	var plan struct {
		Recommendations []map[string]interface{} `json:"recommendations"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &plan))
	require.Len(t, plan.Recommendations, 1)
	assert.Equal(t, float64(102), plan.Recommendations[0]["index"])
}

func TestExport(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "column.csv", columnCSV)
	target := filepath.Join(dir, "forecast.xlsx")

	out, err := run(t, "export", "-o", target, path)
	require.NoError(t, err)
	assert.Contains(t, out, "forecast.xlsx")

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("PK")))
}
