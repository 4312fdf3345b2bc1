package output

import (
	"fmt"
	"io"
	"strconv"
)

// flushIfPossible flushes buffered sink writers after each streamed
// record so scripts tailing an NDJSON stream see lines promptly.
func flushIfPossible(w io.Writer) error {
	if f, ok := w.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// stringifyCell formats a summary value for table output without the
// %v float noise on whole numbers.
func stringifyCell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', 2, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}
