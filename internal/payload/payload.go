// Package payload reads request bodies for the create and update commands
// from an inline string, a file or stdin, and decodes them into the typed
// books inputs.
package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Stdin is the file name that selects standard input.
const Stdin = "-"

// ErrNoBody is returned by Decode when no body was provided.
var ErrNoBody = errors.New("a request body is required: use --body or --body-file")

// Source yields a request body; file and inline sources can be read again.
type Source interface {
	NewReader() (io.ReadCloser, error)
	ContentLength() (int64, bool)
}

// NewSource picks the body source. body and file are mutually exclusive; a
// file named "-" reads stdin.
func NewSource(body, file string, stdin io.Reader) (Source, error) {
	file = strings.TrimSpace(file)
	if body != "" && file != "" {
		return nil, errors.New("body and body file cannot both be provided")
	}

	if body != "" {
		return &inlineSource{data: []byte(body)}, nil
	}

	switch file {
	case "":
		return emptySource{}, nil
	case Stdin:
		if stdin == nil {
			return nil, errors.New("stdin is not available")
		}
		return &readerSource{r: stdin}, nil
	}

	info, err := os.Stat(file)
	if err != nil {
		return nil, fmt.Errorf("body file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("body file %q is a directory", file)
	}
	return &fileSource{path: file, size: info.Size()}, nil
}

// Decode reads src as a single JSON object into v. Strict decoding rejects
// fields v does not declare.
func Decode(src Source, v any, strict bool) error {
	if n, ok := src.ContentLength(); ok && n == 0 {
		return ErrNoBody
	}
	rc, err := src.NewReader()
	if err != nil {
		return fmt.Errorf("open body: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return ErrNoBody
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	if dec.More() {
		return errors.New("decode body: unexpected data after the JSON object")
	}
	return nil
}

type inlineSource struct {
	data []byte
}

func (s *inlineSource) NewReader() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.data)), nil
}

func (s *inlineSource) ContentLength() (int64, bool) {
	return int64(len(s.data)), true
}

type fileSource struct {
	path string
	size int64
}

func (s *fileSource) NewReader() (io.ReadCloser, error) {
	file, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	return file, nil
}

func (s *fileSource) ContentLength() (int64, bool) {
	return s.size, true
}

// readerSource can be read once.
type readerSource struct {
	r    io.Reader
	used bool
}

func (s *readerSource) NewReader() (io.ReadCloser, error) {
	if s.used {
		return nil, errors.New("stdin body was already consumed")
	}
	s.used = true
	return io.NopCloser(s.r), nil
}

func (s *readerSource) ContentLength() (int64, bool) {
	return 0, false
}

type emptySource struct{}

func (emptySource) NewReader() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(nil)), nil
}

func (emptySource) ContentLength() (int64, bool) {
	return 0, true
}
