package metrics

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// RunConfig describes one experiment arm.
type RunConfig struct {
	ID        int
	Policy    string
	Raids     int
	Bases     int
	Seed      uint64
	Attackers [2]int // Min and max attacker count
}

type RaidRecord struct {
	ID     int
	Run    int // RunConfig.ID
	Policy string
	RaidMetric
}

type Writer struct {
	baseDir string
}

// NewWriter creates a timestamped output folder under dir.
func NewWriter(dir, name string) (*Writer, error) {
	timestamp := time.Now().UTC().Format("20060102T150405Z")
	baseDir := filepath.Join(dir, name, timestamp)
	err := os.MkdirAll(baseDir, 0755)
	if err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	return &Writer{
		baseDir: baseDir,
	}, nil
}

func (w *Writer) Dir() string {
	return w.baseDir
}

func (w *Writer) WriteRunConfigs(configs []RunConfig) error {
	header := []string{"id", "policy", "raids", "bases", "seed", "min_attackers", "max_attackers"}
	rows := make([][]string, 0, len(configs))
	for _, config := range configs {
		rows = append(rows, []string{
			strconv.Itoa(config.ID),
			config.Policy,
			strconv.Itoa(config.Raids),
			strconv.Itoa(config.Bases),
			strconv.FormatUint(config.Seed, 10),
			strconv.Itoa(config.Attackers[0]),
			strconv.Itoa(config.Attackers[1]),
		})
	}
	return w.write("run_configs.csv", header, rows)
}

func (w *Writer) WriteRaidRecords(records []RaidRecord) error {
	header := []string{"id", "run", "policy", "base", "attackers", "thefts", "empty_handed", "stolen", "deducted", "negative_stock", "start_time", "duration"}
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		rows = append(rows, []string{
			strconv.Itoa(record.ID),
			strconv.Itoa(record.Run),
			record.Policy,
			strconv.FormatUint(record.BaseID, 10),
			strconv.Itoa(record.Attackers),
			strconv.Itoa(record.Thefts),
			strconv.Itoa(record.EmptyHanded),
			strconv.Itoa(record.Stolen),
			strconv.Itoa(record.Deducted),
			strconv.Itoa(record.NegativeStock),
			record.StartTime.Format(time.RFC3339),
			record.Duration.String(),
		})
	}
	return w.write("raid_records.csv", header, rows)
}

func (w *Writer) write(name string, header []string, rows [][]string) error {
	path := filepath.Join(w.baseDir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)

	err = writer.Write(header)
	if err != nil {
		return fmt.Errorf("failed to write %s header: %w", name, err)
	}
	for _, row := range rows {
		err = writer.Write(row)
		if err != nil {
			return fmt.Errorf("failed to write %s row: %w", name, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
