package schema

import (
	"fmt"
	"net/url"
	"path/filepath"
)

// Source identifies where a schema document lives. Loaders read files, fs.FS
// entries, URLs, or inline payloads embedded in wizard definitions.
type Source interface {
	Kind() SourceKind
	Location() string
}

// SourceKind enumerates the loader modalities.
type SourceKind string

const (
	SourceKindFile   SourceKind = "file"
	SourceKindFS     SourceKind = "fs"
	SourceKindURL    SourceKind = "url"
	SourceKindInline SourceKind = "inline"
)

type fileSource struct {
	path string
}

func (s fileSource) Location() string { return s.path }

func (s fileSource) Kind() SourceKind { return SourceKindFile }

// SourceFromFile returns a Source pointing to a file path.
func SourceFromFile(path string) Source {
	return fileSource{path: filepath.Clean(path)}
}

type fsSource struct {
	name string
}

func (s fsSource) Location() string { return s.name }

func (s fsSource) Kind() SourceKind { return SourceKindFS }

// SourceFromFS returns a Source identifying a resource inside an fs.FS.
func SourceFromFS(name string) Source {
	return fsSource{name: name}
}

type urlSource struct {
	raw string
}

func (s urlSource) Location() string { return s.raw }

func (s urlSource) Kind() SourceKind { return SourceKindURL }

// SourceFromURL parses the supplied URL string and returns a Source.
func SourceFromURL(raw string) (Source, error) {
	if raw == "" {
		return nil, fmt.Errorf("schema: empty URL source")
	}
	if _, err := url.ParseRequestURI(raw); err != nil {
		return nil, fmt.Errorf("schema: invalid URL %q: %w", raw, err)
	}
	return urlSource{raw: raw}, nil
}

// InlineSource carries a schema payload that was embedded in another
// document, typically a wizard definition file.
type InlineSource struct {
	Name string
	Data []byte
}

func (s InlineSource) Location() string { return s.Name }

func (s InlineSource) Kind() SourceKind { return SourceKindInline }

// SourceFromBytes wraps raw bytes as an inline Source. The name is only used
// in error messages.
func SourceFromBytes(name string, data []byte) Source {
	return InlineSource{Name: name, Data: append([]byte(nil), data...)}
}
