package seed

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
)

// Files returns an Adapter that executes the contents of each SQL file
// verbatim, in the listed order. Each file may contain multiple statements;
// they are sent over the simple query protocol in one round trip. The first
// error stops the run.
func Files(paths ...string) Adapter {
	return &filesAdapter{paths: paths}
}

type filesAdapter struct {
	paths []string
}

func (a *filesAdapter) Apply(ctx context.Context, sc *Context) error {
	for _, path := range a.paths {
		contents, err := os.ReadFile(path)
		if err != nil {
			return &Error{Adapter: "files", Err: fmt.Errorf("failed to read %q: %w", path, err)}
		}
		sc.Logger.Debug("applying SQL file", zap.String("path", path), zap.Int("bytes", len(contents)))
		if _, err := sc.PG.Exec(ctx, string(contents)); err != nil {
			return &Error{Adapter: "files", Err: fmt.Errorf("failed to execute %q: %w", path, err)}
		}
	}
	return nil
}
