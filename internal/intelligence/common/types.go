// Package common declares the contracts shared by the intelligence layer.
package common

import (
	"context"

	"github.com/turtacn/MultiNLU/pkg/types/nlu"
)

// Interpreter is a loaded locale model. Parse classifies text and returns
// the raw model output, which carries at least an "entities" list.
// Implementations must be safe for concurrent use.
type Interpreter interface {
	Parse(ctx context.Context, text string) (nlu.ParseResult, error)
}

// InterpreterFunc adapts a function to Interpreter.
type InterpreterFunc func(ctx context.Context, text string) (nlu.ParseResult, error)

// Parse calls f.
func (f InterpreterFunc) Parse(ctx context.Context, text string) (nlu.ParseResult, error) {
	return f(ctx, text)
}

// Pinger is implemented by interpreters whose backend can be health-checked.
type Pinger interface {
	Ping(ctx context.Context) error
}

//Personal.AI order the ending
