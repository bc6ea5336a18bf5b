package export

import "io"

type flusher interface {
	Flush() error
}

// flushIfPossible pushes buffered bytes out for writers such as bufio.Writer or
// an http.ResponseWriter wrapper, so ndjson consumers see each line immediately.
func flushIfPossible(w io.Writer) error {
	f, ok := w.(flusher)
	if !ok {
		return nil
	}
	return f.Flush()
}
