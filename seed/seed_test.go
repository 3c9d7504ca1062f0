package seed

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testContext(t *testing.T) *Context {
	return &Context{
		Target: Target{Host: "localhost", Port: 5432, Username: "u", Password: "p", Database: "d"},
		Logger: zaptest.NewLogger(t),
	}
}

func TestError_FormatAndUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := &Error{Adapter: "files", Err: cause}

	assert.Equal(t, "seed: files adapter failed: boom", err.Error())
	assert.Same(t, cause, errors.Unwrap(err))
	assert.ErrorIs(t, err, cause)
}

func TestFunc_WrapsErrors(t *testing.T) {
	cause := errors.New("fn failed")
	a := Func(func(ctx context.Context, sc *Context) error { return cause })

	err := a.Apply(context.Background(), testContext(t))
	var seedErr *Error
	require.ErrorAs(t, err, &seedErr)
	assert.Equal(t, "func", seedErr.Adapter)
	assert.ErrorIs(t, err, cause)
}

func TestCompose_OrderAndFailFast(t *testing.T) {
	var order []string
	step := func(name string) Adapter {
		return Func(func(ctx context.Context, sc *Context) error {
			order = append(order, name)
			return nil
		})
	}
	failing := Func(func(ctx context.Context, sc *Context) error {
		order = append(order, "failing")
		return errors.New("stop here")
	})
	unreached := step("unreached")

	err := Compose(step("a"), step("b"), failing, unreached).
		Apply(context.Background(), testContext(t))

	require.Error(t, err)
	assert.Equal(t, []string{"a", "b", "failing"}, order)
}

func TestCompose_Empty(t *testing.T) {
	assert.NoError(t, Compose().Apply(context.Background(), testContext(t)))
}

func TestNoOp(t *testing.T) {
	assert.NoError(t, NoOp{}.Apply(context.Background(), testContext(t)))
}

func TestFiles_MissingFile(t *testing.T) {
	err := Files("does/not/exist.sql").Apply(context.Background(), testContext(t))

	var seedErr *Error
	require.ErrorAs(t, err, &seedErr)
	assert.Equal(t, "files", seedErr.Adapter)
}

func TestTool_ValidatesRequiredFields(t *testing.T) {
	tests := []struct {
		name string
		tool Tool
		want string
	}{
		{"missing binary", Tool{Dir: ".", Package: "app"}, "Binary"},
		{"missing dir", Tool{Binary: "pgpm", Package: "app"}, "Dir"},
		{"missing package", Tool{Binary: "pgpm", Dir: "."}, "Package"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tool.Apply(context.Background(), testContext(t))

			var seedErr *Error
			require.ErrorAs(t, err, &seedErr)
			assert.Equal(t, "tool", seedErr.Adapter)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestTool_FailedCommandIncludesOutput(t *testing.T) {
	err := Tool{Binary: "false", Dir: t.TempDir(), Package: "app"}.
		Apply(context.Background(), testContext(t))

	var seedErr *Error
	require.ErrorAs(t, err, &seedErr)
	assert.Equal(t, "tool", seedErr.Adapter)
}
