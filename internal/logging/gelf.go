package logging

import (
	"fmt"
	"log/slog"

	"github.com/Graylog2/go-gelf/gelf"
)

// NewGraylogHandler returns a JSON slog handler that ships each record to a
// Graylog GELF UDP input at addr. The returned writer should be closed on
// shutdown.
func NewGraylogHandler(addr, level string) (slog.Handler, *gelf.Writer, error) {
	w, err := gelf.NewWriter(addr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to graylog at %s: %w", addr, err)
	}
	w.Facility = ServiceName
	return slog.NewJSONHandler(w, handlerOptions(parseLevel(level))), w, nil
}
