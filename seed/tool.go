package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"go.uber.org/zap"
)

// Tool is an Adapter that shells out to an external migration/deployment
// CLI to apply a named package's migrations to the target database. The
// tool is always invoked non-interactively: Package must be set explicitly
// so the tool never blocks on a selection prompt. Connection details are
// passed through the standard PG* environment variables.
type Tool struct {
	Binary  string   // Executable to run, e.g. "pgpm". Required.
	Dir     string   // Module path the tool runs in (working directory). Required.
	Package string   // Package whose migration plan is applied. Required.
	Args    []string // Overrides the default arguments ("deploy --package <Package> --yes").
	Env     []string // Extra environment entries appended after the PG* variables.
}

// Apply implements Adapter.
func (t Tool) Apply(ctx context.Context, sc *Context) error {
	if t.Binary == "" {
		return &Error{Adapter: "tool", Err: errors.New("Binary must be set")}
	}
	if t.Dir == "" {
		return &Error{Adapter: "tool", Err: errors.New("Dir must be set")}
	}
	if t.Package == "" {
		return &Error{Adapter: "tool", Err: errors.New("Package must be set; interactive package selection is not supported")}
	}

	args := t.Args
	if len(args) == 0 {
		args = []string{"deploy", "--package", t.Package, "--yes"}
	}

	cmd := exec.CommandContext(ctx, t.Binary, args...)
	cmd.Dir = t.Dir
	cmd.Env = append(os.Environ(),
		"PGHOST="+sc.Target.Host,
		"PGPORT="+strconv.FormatUint(uint64(sc.Target.Port), 10),
		"PGUSER="+sc.Target.Username,
		"PGPASSWORD="+sc.Target.Password,
		"PGDATABASE="+sc.Target.Database,
	)
	cmd.Env = append(cmd.Env, t.Env...)

	sc.Logger.Info("running external migration tool",
		zap.String("binary", t.Binary),
		zap.Strings("args", args),
		zap.String("dir", t.Dir),
		zap.String("database", sc.Target.Database),
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return &Error{Adapter: "tool", Err: fmt.Errorf("%s %v failed: %w\n%s", t.Binary, args, err, out)}
	}
	sc.Logger.Debug("external migration tool finished", zap.ByteString("output", out))
	return nil
}
