package cli

import (
	"encoding/json"
	"fmt"
	"io"
)

// printer writes either indented JSON or the text rendering of a result.
type printer struct {
	format string
	w      io.Writer
}

func (p printer) print(data any, text func(w io.Writer)) error {
	if p.format == "json" {
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}
	text(p.w)
	return nil
}

func dots(week [7]bool) string {
	out := make([]byte, 0, len(week))
	for _, done := range week {
		if done {
			out = append(out, 'x')
		} else {
			out = append(out, '.')
		}
	}
	return string(out)
}

func fprintf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
