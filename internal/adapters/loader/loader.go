// Package loader provides the document loading adapter.
package loader

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/0xcro3dile/ulcerrag/internal/domain/entities"
	"github.com/0xcro3dile/ulcerrag/internal/domain/ports"
)

// DefaultExtensions are loaded when no extension set is configured.
var DefaultExtensions = []string{".txt"}

// FileLoader loads a single file or every matching file directly inside a directory.
type FileLoader struct {
	extensions map[string]bool
	parser     ports.DocumentParser
	logger     *zap.Logger
}

// NewFileLoader creates a loader for the given extensions (".txt", ".md", ".pdf").
// parser handles ".pdf" files and may be nil when PDFs are not loaded.
func NewFileLoader(extensions []string, parser ports.DocumentParser, logger *zap.Logger) *FileLoader {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	set := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = true
	}
	return &FileLoader{extensions: set, parser: parser, logger: logger}
}

// Load reads path. A directory yields its matching files in file-name order;
// subdirectories are not descended.
func (l *FileLoader) Load(ctx context.Context, path string) ([]entities.SourceDocument, error) {
	const op = "load documents"

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, entities.Errorf(entities.ErrNotFound, op, "%s does not exist", path)
	}
	if err != nil {
		return nil, entities.NewError(entities.ErrInput, op, err)
	}

	if !info.IsDir() {
		if !info.Mode().IsRegular() {
			return nil, entities.Errorf(entities.ErrNotFound, op, "%s is neither a file nor a directory", path)
		}
		doc, err := l.loadFile(ctx, path)
		if err != nil {
			return nil, err
		}
		return []entities.SourceDocument{doc}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, entities.NewError(entities.ErrInput, op, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var docs []entities.SourceDocument
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !l.extensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		doc, err := l.loadFile(ctx, filepath.Join(path, entry.Name()))
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	l.logger.Info("Loaded documents", zap.String("path", path), zap.Int("count", len(docs)))
	return docs, nil
}

// SupportedExtensions returns the configured extensions in sorted order.
func (l *FileLoader) SupportedExtensions() []string {
	exts := make([]string, 0, len(l.extensions))
	for ext := range l.extensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

func (l *FileLoader) loadFile(ctx context.Context, path string) (entities.SourceDocument, error) {
	const op = "load document"

	if err := ctx.Err(); err != nil {
		return entities.SourceDocument{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return entities.SourceDocument{}, entities.NewError(entities.ErrInput, op, err)
	}

	var text string
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		if l.parser == nil {
			return entities.SourceDocument{}, entities.Errorf(entities.ErrInput, op, "%s: no PDF parser configured", path)
		}
		text, err = l.parser.Parse(ctx, data, filepath.Base(path))
		if err != nil {
			return entities.SourceDocument{}, entities.NewError(entities.ErrInput, op, err)
		}
	} else {
		if !utf8.Valid(data) {
			return entities.SourceDocument{}, entities.Errorf(entities.ErrInput, op, "%s is not valid UTF-8", path)
		}
		text = string(data)
	}

	l.logger.Debug("Loaded document", zap.String("path", path), zap.Int("bytes", len(data)))
	return entities.SourceDocument{
		ID:   generateDocID(path),
		Text: text,
		Metadata: map[string]string{
			entities.MetaSource: filepath.Base(path),
			entities.MetaPath:   path,
		},
	}, nil
}

// generateDocID creates a deterministic ID for a document.
func generateDocID(path string) string {
	hash := sha256.Sum256([]byte(filepath.Clean(path)))
	return hex.EncodeToString(hash[:8])
}
