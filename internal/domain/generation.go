package domain

import "context"

// Fragment is one incremental piece of generated text. A non-nil Err is
// terminal: no further fragments follow it.
type Fragment struct {
	Text string
	Err  error
}

// Generator is the text generation contract. Both modes take the same
// prompt; Stream yields fragments in arrival order over an unbuffered
// channel (the producer must not run ahead of a slow consumer) and closes
// it after the last fragment or a terminal error.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Stream(ctx context.Context, prompt string) (<-chan Fragment, error)
}
