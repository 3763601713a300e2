package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"rdpmon/middleware"
	"rdpmon/model"
	"rdpmon/utils"
)

// FileStore keeps the document as one pretty-printed JSON file,
// rewritten in full on every save. A malformed or missing file is
// replaced with an empty valid document rather than reported as an
// error, so a corrupt data file costs history, never availability.
type FileStore struct {
	Path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

func (s *FileStore) LoadAll(_ context.Context) (*model.Document, error) {
	timer := middleware.TrackStoreOperation("load")
	defer timer.ObserveDuration()

	if err := s.ensureFile(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read data file: %w", err)
	}
	doc := model.NewDocument()
	if err := json.Unmarshal(raw, doc); err != nil {
		log.Printf("Failed to parse data file %s, resetting to empty document: %v", s.Path, err)
		doc = model.NewDocument()
		if err := s.write(doc); err != nil {
			return nil, err
		}
	}
	doc.Normalize(utils.NowStamp())
	return doc, nil
}

func (s *FileStore) SaveAll(_ context.Context, doc *model.Document) error {
	timer := middleware.TrackStoreOperation("save")
	defer timer.ObserveDuration()

	if err := s.ensureFile(); err != nil {
		return err
	}
	return s.write(doc)
}

func (s *FileStore) ensureFile() error {
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	if _, err := os.Stat(s.Path); os.IsNotExist(err) {
		return s.write(model.NewDocument())
	}
	return nil
}

func (s *FileStore) write(doc *model.Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	if err := os.WriteFile(s.Path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write data file: %w", err)
	}
	return nil
}
