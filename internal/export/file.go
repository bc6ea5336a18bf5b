package export

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileSink exports the run to a file. ndjson streams events as they arrive;
// every other format collects records and renders the document on Close.
type FileSink struct {
	path    string
	format  string
	opts    Options
	file    *os.File
	buf     *bufio.Writer
	mu      sync.Mutex
	records []Record
}

// NewFileSink creates path (and its directory). format must already be
// resolved, see config.ResolveOutFormat.
func NewFileSink(path, format string, opts Options) (*FileSink, error) {
	if path == "" {
		return nil, fmt.Errorf("output path required")
	}
	switch format {
	case FormatJSON, FormatNDJSON, FormatYAML, FormatCSV, FormatPDF:
	case FormatSh, FormatBat:
		if opts.CloneBatch <= 0 {
			return nil, fmt.Errorf("clone batch size must be >= 1, got %d", opts.CloneBatch)
		}
	default:
		return nil, fmt.Errorf("unsupported output format: %q", format)
	}

	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	perm := os.FileMode(0644)
	if format == FormatSh {
		perm = 0755
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	return &FileSink{
		path:   path,
		format: format,
		opts:   opts,
		file:   f,
		buf:    bufio.NewWriter(f),
	}, nil
}

// Path is the file being written.
func (s *FileSink) Path() string { return s.path }

func (s *FileSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.format == FormatNDJSON {
		e, ok := asEvent(v)
		if !ok {
			return nil
		}
		return json.NewEncoder(s.buf).Encode(e)
	}
	if r, ok := v.(Record); ok {
		s.records = append(s.records, r)
	}
	return nil
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.format != FormatNDJSON {
		err = Write(s.buf, s.format, s.records, s.opts)
	}
	if flushErr := s.buf.Flush(); flushErr != nil && err == nil {
		err = flushErr
	}
	if closeErr := s.file.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}
