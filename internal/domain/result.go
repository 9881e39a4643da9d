package domain

// ServiceStatus is the three-way outcome every adapter call reports.
type ServiceStatus int

const (
	// StatusOK means the call succeeded and Value is usable.
	StatusOK ServiceStatus = iota
	// StatusUnavailable means the feature is not configured. Callers stay
	// silent: the capability simply does not fire.
	StatusUnavailable
	// StatusFailed means the feature is configured but the call failed.
	// Message carries the one fixed user-facing sentence for the feature.
	StatusFailed
)

// Result is the uniform adapter contract. Adapters trap every external
// fault and convert it to a Result; no raw error crosses the boundary.
type Result[T any] struct {
	Status  ServiceStatus
	Value   T
	Message string
}

func Ok[T any](v T) Result[T] {
	return Result[T]{Status: StatusOK, Value: v}
}

func Unavailable[T any]() Result[T] {
	return Result[T]{Status: StatusUnavailable}
}

func Failed[T any](msg string) Result[T] {
	return Result[T]{Status: StatusFailed, Message: msg}
}
