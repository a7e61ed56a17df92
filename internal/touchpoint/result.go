package touchpoint

import "fmt"

// Result is the normalized outcome of one executor invocation.
// Result is set only on success and Error only on failure.
type Result struct {
	Success bool           `json:"success"`
	Result  map[string]any `json:"result,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// Succeeded returns a successful Result carrying r (never nil).
func Succeeded(r map[string]any) Result {
	if r == nil {
		r = map[string]any{}
	}
	return Result{Success: true, Result: r}
}

// Failed returns a failed Result with a formatted error message.
func Failed(format string, args ...any) Result {
	return Result{Success: false, Error: fmt.Sprintf(format, args...)}
}
