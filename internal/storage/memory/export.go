// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/squadlab/posrating/pkg/core"
)

// ReportsExport is the root JSON structure of an export file
type ReportsExport struct {
	GeneratedAt   time.Time            `json:"generatedAt"`
	PlayerCount   int                  `json:"playerCount"`
	TablesVersion string               `json:"tablesVersion,omitempty"`
	Reports       []*core.RatingReport `json:"reports"`
}

// Export writes the latest report per player to a JSON file in the output
// directory and returns its path.
func (b *Backend) Export() (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	export := b.buildExport(time.Now().UTC())

	var filename string
	if b.cfg.CompressOutput {
		filename = fmt.Sprintf("ratings_%s.json.gz", export.GeneratedAt.Format("20060102_150405"))
	} else {
		filename = fmt.Sprintf("ratings_%s.json", export.GeneratedAt.Format("20060102_150405"))
	}

	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	if b.cfg.CompressOutput {
		err = writeGzipJSON(outputPath, export)
	} else {
		err = writeJSON(outputPath, export)
	}
	if err != nil {
		return "", err
	}

	b.lastExportPath = outputPath
	return outputPath, nil
}

// LastExportPath returns the path written by the most recent Export.
func (b *Backend) LastExportPath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

func (b *Backend) buildExport(now time.Time) ReportsExport {
	export := ReportsExport{
		GeneratedAt: now,
		Reports:     make([]*core.RatingReport, 0, len(b.history)),
	}

	for _, h := range b.history {
		if len(h) == 0 {
			continue
		}
		export.Reports = append(export.Reports, h[len(h)-1])
	}
	sort.Slice(export.Reports, func(i, j int) bool {
		return export.Reports[i].PlayerID < export.Reports[j].PlayerID
	})

	export.PlayerCount = len(export.Reports)
	if len(export.Reports) > 0 {
		export.TablesVersion = export.Reports[0].TablesVersion
	}
	return export
}

func writeJSON(path string, data ReportsExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	return encoder.Encode(data)
}

func writeGzipJSON(path string, data ReportsExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	defer gzWriter.Close()

	encoder := json.NewEncoder(gzWriter)
	return encoder.Encode(data)
}
