// Package script loads program source files and decodes them to UTF-8.
package script

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/zurustar/stacklang/pkg/fileutil"
)

// DefaultEncoding is used when no encoding is configured.
const DefaultEncoding = "utf-8"

// Script is a source file decoded to UTF-8.
type Script struct {
	FileName string // base name as found on disk
	Path     string
	Content  string
	Size     int64 // size on disk, before decoding
}

// Loader reads source files in one configured encoding.
type Loader struct {
	name     string
	encoding encoding.Encoding
}

// NewLoader creates a Loader for the named encoding. Names are WHATWG
// labels ("utf-8", "shift_jis", "euc-jp", "utf-16le", ...), matched
// case-insensitively. An empty name selects UTF-8.
func NewLoader(encodingName string) (*Loader, error) {
	enc, err := LookupEncoding(encodingName)
	if err != nil {
		return nil, err
	}
	if encodingName == "" {
		encodingName = DefaultEncoding
	}
	return &Loader{name: strings.ToLower(encodingName), encoding: enc}, nil
}

// LookupEncoding resolves an encoding label.
func LookupEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf8", "utf-8":
		return unicode.UTF8, nil
	case "sjis", "shift_jis", "shift-jis", "cp932":
		return japanese.ShiftJIS, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
	}
	return enc, nil
}

// Encoding returns the normalized encoding name.
func (l *Loader) Encoding() string {
	return l.name
}

// Load reads and decodes the file at path. When path does not exist, a
// file in the same directory whose name differs only in case is used.
func (l *Loader) Load(path string) (*Script, error) {
	actual, err := fileutil.ResolvePath(path)
	if err != nil {
		return nil, fmt.Errorf("failed to find script %s: %w", path, err)
	}

	info, err := os.Stat(actual)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", actual)
	}

	data, err := os.ReadFile(actual)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	content, err := l.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to convert encoding of %s: %w", actual, err)
	}

	return &Script{
		FileName: filepath.Base(actual),
		Path:     actual,
		Content:  content,
		Size:     info.Size(),
	}, nil
}

// Decode converts data from the loader's encoding to UTF-8. A leading
// byte order mark overrides the configured encoding and is dropped.
func (l *Loader) Decode(data []byte) (string, error) {
	decoder := unicode.BOMOverride(l.encoding.NewDecoder())
	reader := transform.NewReader(bytes.NewReader(data), decoder)

	utf8Data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s: %w", l.name, err)
	}

	return string(utf8Data), nil
}
