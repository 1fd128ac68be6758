package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

const fileFormatVersion = 1

// FileStore keeps the guild → channel bindings in a YAML document. Writes go
// to a temporary file that is renamed over the target, so a crash never
// leaves a half-written mapping behind.
type FileStore struct {
	filePath string
	mu       sync.Mutex
}

type bindingFile struct {
	Version  int           `yaml:"version"`
	Bindings []bindingLine `yaml:"bindings"`
}

type bindingLine struct {
	GuildID   string `yaml:"guild_id"`
	ChannelID string `yaml:"channel_id"`
}

// NewFileStore creates a FileStore for filePath. The file need not exist yet.
func NewFileStore(filePath string) *FileStore {
	return &FileStore{filePath: filePath}
}

// Path returns the backing file location.
func (f *FileStore) Path() string { return f.filePath }

// LoadBindings parses the file strictly: unknown fields, a foreign version
// or a guild listed twice are errors. A missing or empty file is an empty mapping.
func (f *FileStore) LoadBindings(ctx context.Context) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var doc bindingFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to decode yaml: %w", err)
	}
	if doc.Version != fileFormatVersion {
		return nil, fmt.Errorf("unsupported bindings file version %d", doc.Version)
	}

	out := make(map[string]string, len(doc.Bindings))
	for _, b := range doc.Bindings {
		if _, dup := out[b.GuildID]; dup {
			return nil, fmt.Errorf("guild %q bound more than once", b.GuildID)
		}
		out[b.GuildID] = b.ChannelID
	}
	return out, nil
}

// SaveBindings rewrites the whole file with bindings, sorted by guild id.
func (f *FileStore) SaveBindings(ctx context.Context, bindings map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc := bindingFile{Version: fileFormatVersion, Bindings: make([]bindingLine, 0, len(bindings))}
	for g, c := range bindings {
		doc.Bindings = append(doc.Bindings, bindingLine{GuildID: g, ChannelID: c})
	}
	sort.Slice(doc.Bindings, func(i, j int) bool { return doc.Bindings[i].GuildID < doc.Bindings[j].GuildID })

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("failed to marshal yaml: %w", err)
	}

	dir := filepath.Dir(f.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.filePath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, f.filePath); err != nil {
		return fmt.Errorf("failed to replace file: %w", err)
	}
	return nil
}

// Close is a no-op; it lets FileStore share an interface with Store.
func (f *FileStore) Close() error { return nil }
