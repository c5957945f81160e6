package elementStore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/WaterTechWarriors/PDMS2/internal/domain/element"
	"github.com/WaterTechWarriors/PDMS2/pkg/logger_i"
)

// FileStore keeps element sequences as <id>.json under the partitioned
// directory and chunk sequences as <id>.json under the chunked directory.
// Every save rewrites the whole file - that is the durability contract the
// enrichment engine relies on.
type FileStore struct {
	partitionedDir string
	chunkedDir     string
	logger         *logger_i.Logger
}

func NewFileStore(partitionedDir, chunkedDir string) (*FileStore, error) {
	for _, dir := range []string{partitionedDir, chunkedDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating store directory %s: %w", dir, err)
		}
	}
	return &FileStore{
		partitionedDir: partitionedDir,
		chunkedDir:     chunkedDir,
		logger:         logger_i.NewLogger("FileStore"),
	}, nil
}

func (s *FileStore) LoadElements(ctx context.Context, id string) ([]element.Element, error) {
	data, err := os.ReadFile(s.elementPath(id))
	if err != nil {
		return nil, fmt.Errorf("reading elements for %s: %w", id, err)
	}
	var elements []element.Element
	if err := json.Unmarshal(data, &elements); err != nil {
		return nil, fmt.Errorf("decoding elements for %s: %w", id, err)
	}
	return elements, nil
}

func (s *FileStore) SaveElements(ctx context.Context, id string, elements []element.Element) error {
	return s.writeJSON(s.elementPath(id), elements)
}

func (s *FileStore) LoadChunks(ctx context.Context, id string) ([]element.Chunk, error) {
	data, err := os.ReadFile(s.chunkPath(id))
	if err != nil {
		return nil, fmt.Errorf("reading chunks for %s: %w", id, err)
	}
	var chunks []element.Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, fmt.Errorf("decoding chunks for %s: %w", id, err)
	}
	return chunks, nil
}

func (s *FileStore) SaveChunks(ctx context.Context, id string, chunks []element.Chunk) error {
	return s.writeJSON(s.chunkPath(id), chunks)
}

func (s *FileStore) ListElementIDs(ctx context.Context) ([]string, error) {
	return listJSONIDs(s.partitionedDir)
}

func (s *FileStore) ListChunkIDs(ctx context.Context) ([]string, error) {
	return listJSONIDs(s.chunkedDir)
}

// NormalizeExtensions renames any <name>.json.json artifact the chunking
// stage leaves behind down to a single .json. Returns how many files were
// renamed; a rename collision is reported but does not stop the pass.
func (s *FileStore) NormalizeExtensions(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(s.chunkedDir)
	if err != nil {
		return 0, fmt.Errorf("reading chunked directory: %w", err)
	}

	renamed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json.json") {
			continue
		}
		oldPath := filepath.Join(s.chunkedDir, name)
		newPath := filepath.Join(s.chunkedDir, strings.TrimSuffix(name, ".json"))
		if err := os.Rename(oldPath, newPath); err != nil {
			s.logger.Error("Could not normalize extension", "file", name, "error", err)
			continue
		}
		renamed++
	}
	return renamed, nil
}

func (s *FileStore) elementPath(id string) string {
	return filepath.Join(s.partitionedDir, id+".json")
}

func (s *FileStore) chunkPath(id string) string {
	return filepath.Join(s.chunkedDir, id+".json")
}

func (s *FileStore) writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func listJSONIDs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}
	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}
