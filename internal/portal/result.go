package portal

// State tags the outcome of a read or lookup against the live page.
type State int

const (
	// StateNotReady means the page has not rendered what we need yet.
	// Callers retry until their deadline.
	StateNotReady State = iota
	StateReady
	// StateFatal means retrying cannot help.
	StateFatal
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateFatal:
		return "fatal"
	default:
		return "not_ready"
	}
}

// Result carries a value or the reason there is none.
type Result[T any] struct {
	State State
	Value T
	Err   error
}

func Ready[T any](v T) Result[T] {
	return Result[T]{State: StateReady, Value: v}
}

func NotReady[T any](reason error) Result[T] {
	return Result[T]{State: StateNotReady, Err: reason}
}

func Fatal[T any](err error) Result[T] {
	return Result[T]{State: StateFatal, Err: err}
}

func (r Result[T]) IsReady() bool {
	return r.State == StateReady
}
