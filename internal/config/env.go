package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// envReader reads typed variables, remembering every value that is set but
// malformed so Load can report them together.
type envReader struct {
	lookup func(string) (string, bool)
	errs   []error
}

func newEnvReader() *envReader { return &envReader{lookup: os.LookupEnv} }

// raw returns the trimmed value of k; unset and blank are the same.
func (r *envReader) raw(k string) (string, bool) {
	v, ok := r.lookup(k)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (r *envReader) bad(k, v, want string) {
	r.errs = append(r.errs, fmt.Errorf("%s: %q is not a valid %s", k, v, want))
}

func (r *envReader) str(k, def string) string {
	if v, ok := r.raw(k); ok {
		return v
	}
	return def
}

func (r *envReader) lower(k, def string) string {
	return strings.ToLower(r.str(k, def))
}

func (r *envReader) integer(k string, def int) int {
	v, ok := r.raw(k)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.bad(k, v, "integer")
		return def
	}
	return n
}

func (r *envReader) number(k string, def float64) float64 {
	v, ok := r.raw(k)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.bad(k, v, "number")
		return def
	}
	return f
}

func (r *envReader) flag(k string, def bool) bool {
	v, ok := r.raw(k)
	if !ok {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	}
	r.bad(k, v, "boolean")
	return def
}

func (r *envReader) duration(k string, def time.Duration) time.Duration {
	v, ok := r.raw(k)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.bad(k, v, "duration")
		return def
	}
	return d
}

// list splits a comma-separated value, dropping blanks.
func (r *envReader) list(k string) []string {
	v, ok := r.raw(k)
	if !ok {
		return nil
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
