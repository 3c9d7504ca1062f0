package seed

import "context"

// Func wraps a user-supplied callback as an Adapter. Whatever the callback
// writes through the Context handles becomes part of the seeded state.
func Func(fn func(ctx context.Context, sc *Context) error) Adapter {
	return funcAdapter(fn)
}

type funcAdapter func(ctx context.Context, sc *Context) error

func (f funcAdapter) Apply(ctx context.Context, sc *Context) error {
	if err := f(ctx, sc); err != nil {
		return &Error{Adapter: "func", Err: err}
	}
	return nil
}

// Compose returns an Adapter that applies the given adapters in order,
// equivalent to concatenating them.
func Compose(adapters ...Adapter) Adapter {
	return composeAdapter(adapters)
}

type composeAdapter []Adapter

func (c composeAdapter) Apply(ctx context.Context, sc *Context) error {
	for _, a := range c {
		if err := a.Apply(ctx, sc); err != nil {
			return err
		}
	}
	return nil
}
