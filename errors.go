package vidra

import "strings"

// ValidationError aggregates every validation failure found in a single
// Project.Validate pass.
type ValidationError []error

func (e ValidationError) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return "validation failed (" + itoa(len(e)) + " issue(s)): " + strings.Join(msgs, "; ")
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// RenderError is a fatal error for a single render_frame_index call or for
// the whole batch: frame index out of bounds, custom shader compile
// failure, expression compile failure, or LUT parse failure.
type RenderError struct {
	Op  string
	Err error
}

func (e *RenderError) Error() string { return "render: " + e.Op + ": " + e.Err.Error() }
func (e *RenderError) Unwrap() error { return e.Err }

func renderErrorf(op string, err error) error {
	return &RenderError{Op: op, Err: err}
}
