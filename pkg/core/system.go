package core

import "context"

// Invocation is the payload of one successful capability call.
type Invocation struct {
	Output string
}

// System is the abstract system under test. Adapters translate a
// Configuration plus raw input into one outbound call; every failure
// mode comes back as an error value, which the engine records as data.
type System interface {
	Name() string
	Invoke(ctx context.Context, cfg Configuration, input string) (Invocation, error)
}

// Grader is the optional secondary capability that scores a produced
// artifact against a separate ground truth (e.g. running generated
// code through an expression evaluator). It is invoke-shaped like
// System and feeds the custom-validation path.
type Grader interface {
	Name() string
	Grade(ctx context.Context, artifact string) (Invocation, error)
}
