// Package source discovers documents in a source directory and extracts
// their text.
package source

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"code.sajari.com/docconv"
)

// DefaultExtensions is the extension filter when none is configured.
var DefaultExtensions = []string{"md"}

// ErrRead is returned when the directory or a document cannot be read.
var ErrRead = errors.New("source read failed")

// plainText extensions are read verbatim; everything else goes through docconv.
var plainText = map[string]bool{
	"md":       true,
	"markdown": true,
	"txt":      true,
}

// Document is one source file's text.
type Document struct {
	Content  string
	Filename string
	Filepath string
}

// ExtSet normalises an extension list ("MD", ".md", "md") into a lookup set.
func ExtSet(exts []string) map[string]bool {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}
	set := make(map[string]bool, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))
		if e != "" {
			set[e] = true
		}
	}
	return set
}

func extOf(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// Match reports whether name passes the extension filter. Hidden files never
// match.
func Match(name string, exts map[string]bool) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return exts[extOf(base)]
}

// List returns the paths of matching regular files directly inside dir,
// sorted by name. Subdirectories are not descended into.
func List(dir string, exts []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	set := ExtSet(exts)

	var paths []string
	for _, e := range entries {
		// Directories and symlinks are not regular.
		if !e.Type().IsRegular() || !Match(e.Name(), set) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// Discover lists and reads every matching document in dir.
func Discover(dir string, exts []string) ([]Document, error) {
	paths, err := List(dir, exts)
	if err != nil {
		return nil, err
	}
	docs := make([]Document, 0, len(paths))
	for _, p := range paths {
		d, err := Read(p)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, nil
}

// Read loads one document. Plain-text formats are read as-is; other formats
// (html, docx, pdf, ...) are converted to text by docconv.
func Read(path string) (Document, error) {
	doc := Document{Filename: filepath.Base(path), Filepath: path}

	if plainText[extOf(path)] {
		data, err := os.ReadFile(path)
		if err != nil {
			return doc, fmt.Errorf("%w: %w", ErrRead, err)
		}
		doc.Content = string(data)
		return doc, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return doc, fmt.Errorf("%w: %w", ErrRead, err)
	}
	defer f.Close()

	res, err := docconv.Convert(f, docconv.MimeTypeByExtension(path), false)
	if err != nil {
		return doc, fmt.Errorf("%w: convert %s: %w", ErrRead, doc.Filename, err)
	}
	doc.Content = res.Body
	return doc, nil
}
