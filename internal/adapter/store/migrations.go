package store

import (
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"
)

// CurrentSchemaVersion is the current schema version.
// Increment this when making breaking changes to the storage format.
const CurrentSchemaVersion = 1

var keySchemaInfo = []byte("schema_info")

// SchemaInfo records which storage format and embedding model produced the
// stored vectors.
type SchemaInfo struct {
	Version   int    `json:"version"`
	Model     string `json:"model"`
	Dimension int    `json:"dimension"`
}

// MigrationResult describes the result of a compatibility check.
type MigrationResult struct {
	NeedsRebuild bool
	Stored       SchemaInfo
	Reason       string
}

// SchemaInfo returns the recorded schema info. A store that has never been
// written to reports the zero value.
func (s *BoltVectorStore) SchemaInfo() (SchemaInfo, error) {
	var info SchemaInfo
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketMeta).Get(keySchemaInfo)
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &info)
	})
	return info, err
}

func (s *BoltVectorStore) writeSchemaInfo(tx *bbolt.Tx, model string, dimension int) error {
	data, err := json.Marshal(SchemaInfo{
		Version:   CurrentSchemaVersion,
		Model:     model,
		Dimension: dimension,
	})
	if err != nil {
		return err
	}
	return tx.Bucket(bucketMeta).Put(keySchemaInfo, data)
}

// CheckCompatibility reports whether the stored vectors can be searched with
// the store's configured model and dimension. Vectors from a different model
// are not comparable, so any mismatch requires a rebuild.
func (s *BoltVectorStore) CheckCompatibility() (*MigrationResult, error) {
	info, err := s.SchemaInfo()
	if err != nil {
		return nil, fmt.Errorf("failed to get schema info: %w", err)
	}

	result := &MigrationResult{Stored: info}
	switch {
	case info.Version == 0:
		// empty or never written
	case info.Version > CurrentSchemaVersion:
		result.NeedsRebuild = true
		result.Reason = fmt.Sprintf("database created by newer version (v%d > v%d)", info.Version, CurrentSchemaVersion)
	case info.Model != s.model:
		result.NeedsRebuild = true
		result.Reason = fmt.Sprintf("embedding model changed from %q to %q", info.Model, s.model)
	case info.Dimension != s.dimension:
		result.NeedsRebuild = true
		result.Reason = fmt.Sprintf("embedding dimension changed from %d to %d", info.Dimension, s.dimension)
	}
	return result, nil
}
