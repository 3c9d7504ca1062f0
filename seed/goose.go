package seed

import (
	"context"
	"fmt"
	"os"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

// Goose returns an Adapter that applies every pending goose migration from
// dir to the target database, driving goose through the Context's standard
// library pool.
func Goose(dir string) Adapter {
	return &gooseAdapter{dir: dir}
}

type gooseAdapter struct {
	dir string
}

func (a *gooseAdapter) Apply(ctx context.Context, sc *Context) error {
	provider, err := goose.NewProvider(goose.DialectPostgres, sc.SQL, os.DirFS(a.dir))
	if err != nil {
		return &Error{Adapter: "goose", Err: fmt.Errorf("failed to create provider for %q: %w", a.dir, err)}
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return &Error{Adapter: "goose", Err: fmt.Errorf("failed to apply migrations from %q: %w", a.dir, err)}
	}
	sc.Logger.Info("applied goose migrations", zap.String("dir", a.dir), zap.Int("count", len(results)))
	return nil
}
