// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package input resolves the analyze command's input argument into plain
// texts. It accepts stdin, a single file, a directory tree, or a list
// file naming one input path per line, and extracts text from Markdown,
// HTML, PDF, and DOCX sources.
package input

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdiddy/rst-engine/pkg/types"
)

// stdin is the reader used for the "-" input. Tests override it.
var stdin io.Reader = os.Stdin

// supportedExts maps recognized file extensions to their extractors.
var supportedExts = map[string]func(io.Reader) (string, error){
	".txt":      extractPlain,
	".md":       extractMarkdown,
	".markdown": extractMarkdown,
	".html":     extractHTML,
	".htm":      extractHTML,
	".pdf":      nil, // handled by path, see loadFile
	".docx":     extractDOCX,
}

// Load resolves the input argument into documents. "-" or the empty
// string reads a single text from stdin; a directory loads every
// supported file under it; a plain-text file whose non-empty lines all
// name existing paths is treated as a list of inputs; any other file is
// loaded directly.
func Load(inp string) ([]types.Document, error) {
	if inp == "" || inp == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return []types.Document{{Name: "stdin", Text: string(data)}}, nil
	}

	info, err := os.Stat(inp)
	if err != nil {
		return nil, fmt.Errorf("input %s: %w", inp, err)
	}

	if info.IsDir() {
		return loadDir(inp)
	}

	if paths, ok, err := listFilePaths(inp); err != nil {
		return nil, err
	} else if ok {
		docs := make([]types.Document, 0, len(paths))
		for _, path := range paths {
			doc, err := loadFile(path)
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
		}
		return docs, nil
	}

	doc, err := loadFile(inp)
	if err != nil {
		return nil, err
	}
	return []types.Document{doc}, nil
}

// loadDir walks a directory tree and loads every supported file in
// lexical order.
func loadDir(dir string) ([]types.Document, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if _, ok := supportedExts[strings.ToLower(filepath.Ext(path))]; ok {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}
	sort.Strings(paths)

	if len(paths) == 0 {
		return nil, fmt.Errorf("no supported input files under %s", dir)
	}

	docs := make([]types.Document, 0, len(paths))
	for _, path := range paths {
		doc, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// listFilePaths reports whether the file is a path list: a .txt or
// extensionless file with more than one non-empty line, every line
// naming an existing file.
func listFilePaths(path string) ([]string, bool, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".txt" && ext != "" {
		return nil, false, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("reading %s: %w", path, err)
	}

	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) < 2 {
		return nil, false, nil
	}
	for _, line := range lines {
		if _, err := os.Stat(line); err != nil {
			return nil, false, nil
		}
	}
	return lines, true, nil
}

// loadFile loads one file and extracts its plain text.
func loadFile(path string) (types.Document, error) {
	ext := strings.ToLower(filepath.Ext(path))

	// The PDF extractor needs random access, so it opens the path itself.
	if ext == ".pdf" {
		text, err := extractPDF(path)
		if err != nil {
			return types.Document{}, fmt.Errorf("extracting %s: %w", path, err)
		}
		return types.Document{Name: filepath.Base(path), Text: text}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return types.Document{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	extract := supportedExts[ext]
	if extract == nil {
		extract = extractPlain
	}
	text, err := extract(f)
	if err != nil {
		return types.Document{}, fmt.Errorf("extracting %s: %w", path, err)
	}
	return types.Document{Name: filepath.Base(path), Text: text}, nil
}

func extractPlain(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
