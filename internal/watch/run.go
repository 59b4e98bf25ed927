package watch

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/qaartru2266-jpg/hxc143/internal/converter"
)

// Run converts every job once and then re-converts the jobs whose sources
// change, until ctx is done. report is called after each conversion.
// Conversion failures are reported and do not stop the loop.
func Run(ctx context.Context, jobs []converter.Job, report func(converter.Result, error)) error {
	bySource := make(map[string][]converter.Job)
	sources := make([]string, 0, len(jobs))
	for _, job := range jobs {
		abs, err := filepath.Abs(job.Source)
		if err != nil {
			return err
		}
		if _, ok := bySource[abs]; !ok {
			sources = append(sources, abs)
		}
		bySource[abs] = append(bySource[abs], job)
	}

	// Start watching before the first pass so edits made during it are seen.
	w, err := New(sources)
	if err != nil {
		return err
	}
	defer w.Close()

	converter.RunAll(jobs, report)
	slog.Info("watching sources", "count", len(sources), "polling", w.Polling())

	return w.Run(ctx, func(changed []string) {
		for _, path := range changed {
			slog.Debug("source changed", "path", path)
			converter.RunAll(bySource[path], report)
		}
	})
}
