package reporting

import (
	"fmt"
	"os"
	"path/filepath"

	"whale-index-lab/internal/domain"
)

// Output file names written by WriteFiles.
const (
	ReportFile  = "WHALE_INDEX_REPORT.md"
	HistoryFile = "whale_index_history.csv"
	SignalFile  = "signal_backtest.csv"
)

// WriteFiles writes the markdown report and both CSV exports into dir,
// creating it when missing. Returns the written paths.
func WriteFiles(dir string, r *Report, series domain.AnnotatedSeries) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	files := []struct {
		name    string
		content string
	}{
		{ReportFile, RenderMarkdown(r)},
		{HistoryFile, RenderHistoryCSV(series)},
		{SignalFile, RenderSignalCSV(r.SignalMetrics)},
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := os.WriteFile(path, []byte(f.content), 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", f.name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
