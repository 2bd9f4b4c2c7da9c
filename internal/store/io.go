package store

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
	"gopkg.in/yaml.v3"

	"fjacquet/donor-mapper/internal/logging"
	"fjacquet/donor-mapper/internal/models"
)

// ExportYAML writes every learned mapping to w as a MappingFile document.
func (s *Store) ExportYAML(ctx context.Context, w io.Writer) (int, error) {
	mappings, err := s.All(ctx)
	if err != nil {
		return 0, err
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(models.MappingFile{Mappings: mappings}); err != nil {
		return 0, fmt.Errorf("failed to encode mappings: %w", err)
	}
	if err := enc.Close(); err != nil {
		return 0, fmt.Errorf("failed to flush mappings: %w", err)
	}
	return len(mappings), nil
}

// ImportYAML reads a MappingFile document from r and records every mapping
// with source "imported". Existing normalized values are merged.
func (s *Store) ImportYAML(ctx context.Context, r io.Reader) (int, error) {
	var file models.MappingFile
	if err := yaml.NewDecoder(r).Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to decode mappings: %w", err)
	}

	recs := make([]models.MappingRecord, len(file.Mappings))
	for i, m := range file.Mappings {
		recs[i] = models.MappingRecord{
			RawValue:        m.RawValue,
			NormalizedValue: m.NormalizedValue,
			MappedTo:        m.MappedTo,
			MappedKey:       m.MappedKey,
			Confidence:      m.Confidence,
			Source:          models.SourceImported,
			Approved:        m.Approved,
			Metadata:        m.Metadata,
		}
	}

	n, err := s.BulkRecord(ctx, recs)
	if err != nil {
		return 0, err
	}
	s.logger.Info("Imported mappings", logging.Field{Key: logging.FieldCount, Value: n})
	return n, nil
}

// ExportCSV writes every learned mapping to w as CSV with a header row.
func (s *Store) ExportCSV(ctx context.Context, w io.Writer) (int, error) {
	mappings, err := s.All(ctx)
	if err != nil {
		return 0, err
	}
	if err := gocsv.Marshal(&mappings, w); err != nil {
		return 0, fmt.Errorf("failed to write mappings CSV: %w", err)
	}
	return len(mappings), nil
}

// WriteSuggestionsCSV writes field alignment suggestions to w as CSV.
func WriteSuggestionsCSV(w io.Writer, suggestions []models.MappingSuggestion) error {
	if err := gocsv.Marshal(&suggestions, w); err != nil {
		return fmt.Errorf("failed to write suggestions CSV: %w", err)
	}
	return nil
}
