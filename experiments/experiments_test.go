package experiments

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"raiders/config"
	"testing"

	"github.com/stretchr/testify/require"
)

const twoBases = `
raid:
  seed: 11
bases:
  - id: 1
    resources: [{name: wood, amount: 1000}, {name: stone, amount: 500}]
  - id: 2
    resources: [{name: metal, amount: 80}]
`

func TestRunRaidExperiment(t *testing.T) {
	t.Run("clamped runs never go negative", func(t *testing.T) {
		cfg, err := config.Parse(twoBases)
		require.NoError(t, err)

		result, err := RunRaidExperiment(cfg, 50, "")

		require.NoError(t, err)
		require.Empty(t, result.Dir)
		require.Len(t, result.Runs, 2)
		require.Len(t, result.Records, 100)
		for _, record := range result.Records {
			require.GreaterOrEqual(t, record.Attackers, 1)
			require.LessOrEqual(t, record.Attackers, 5)
			if record.Policy == "clamped" {
				require.Zero(t, record.NegativeStock)
			}
		}
		for _, id := range result.Final[2].IDs() {
			inv, _ := result.Final[2].Resources(id)
			for _, r := range inv {
				require.GreaterOrEqual(t, r.Amount, 0, "clamped run left %s negative", r.Name)
			}
		}
	})

	t.Run("writes csv records", func(t *testing.T) {
		cfg, err := config.Parse(twoBases)
		require.NoError(t, err)

		result, err := RunRaidExperiment(cfg, 5, t.TempDir())
		require.NoError(t, err)
		require.NotEmpty(t, result.Dir)

		f, err := os.Open(filepath.Join(result.Dir, "raid_records.csv"))
		require.NoError(t, err)
		defer f.Close()
		rows, err := csv.NewReader(f).ReadAll()
		require.NoError(t, err)
		require.Len(t, rows, 11, "Header plus five raids per run")
		require.Equal(t, "id", rows[0][0])

		_, err = os.Stat(filepath.Join(result.Dir, "run_configs.csv"))
		require.NoError(t, err)
	})

	t.Run("needs bases", func(t *testing.T) {
		cfg, err := config.Parse("")
		require.NoError(t, err)

		_, err = RunRaidExperiment(cfg, 5, "")
		require.Error(t, err)
	})
}
