package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/xhad/ragchat/internal/models"
	"github.com/xhad/ragchat/internal/types"
)

// DirectoryConfig points at a tree of .txt, .md and .pdf files.
type DirectoryConfig struct {
	Dir        string
	Logger     *log.Logger
	OnProgress func(path string)
}

type Directory struct {
	config DirectoryConfig
	logger *log.Logger
}

var _ types.Source = (*Directory)(nil)

type fileParser func(data []byte) (string, error)

var parsers = map[string]fileParser{
	".txt":      parseText,
	".md":       parseText,
	".markdown": parseText,
	".pdf":      parsePDF,
}

func NewDirectory(config DirectoryConfig) (*Directory, error) {
	if config.Dir == "" {
		return nil, types.Configf("directory", "directory path is required")
	}
	return &Directory{config: config, logger: loggerOrDefault(config.Logger)}, nil
}

// Fetch reads every supported file under Dir in lexical order. Files that
// cannot be parsed are logged and skipped.
func (d *Directory) Fetch(ctx context.Context) ([]models.Document, error) {
	info, err := os.Stat(d.config.Dir)
	if err != nil {
		return nil, fmt.Errorf("open directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", d.config.Dir)
	}

	var paths []string
	err = filepath.WalkDir(d.config.Dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if path != d.config.Dir && strings.HasPrefix(entry.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := parsers[strings.ToLower(filepath.Ext(path))]; ok {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	sort.Strings(paths)

	var documents []models.Document
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return documents, err
		}
		if d.config.OnProgress != nil {
			d.config.OnProgress(path)
		}

		doc, err := d.readFile(path)
		if err != nil {
			d.logger.Printf("Error reading %s: %v", path, err)
			continue
		}
		if strings.TrimSpace(doc.Content) == "" {
			continue
		}
		documents = append(documents, doc)
	}
	return documents, nil
}

func (d *Directory) readFile(path string) (models.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Document{}, err
	}

	ext := strings.ToLower(filepath.Ext(path))
	content, err := parsers[ext](data)
	if err != nil {
		return models.Document{}, err
	}

	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if ext == ".md" || ext == ".markdown" {
		if heading := markdownTitle(content); heading != "" {
			title = heading
		}
	}

	return models.Document{
		Title:   title,
		Content: content,
		URL:     "file://" + filepath.ToSlash(path),
		Metadata: map[string]interface{}{
			"source": KindDirectory,
			"path":   path,
		},
	}, nil
}

func parseText(data []byte) (string, error) {
	return string(data), nil
}

func parsePDF(data []byte) (string, error) {
	doc, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	plain, err := doc.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}

	buf := &bytes.Buffer{}
	if _, err := io.Copy(buf, plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return buf.String(), nil
}

// markdownTitle returns the text of the first level-one heading.
func markdownTitle(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
	}
	return ""
}
