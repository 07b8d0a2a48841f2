package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/solder/internal/interfaces"
	"github.com/ternarybob/solder/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// GlueStorage implements the GlueStorage interface for Badger. One record
// per firmware source path, overwritten on every successful glue pass.
type GlueStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewGlueStorage creates a new GlueStorage instance
func NewGlueStorage(db *BadgerDB, logger arbor.ILogger) interfaces.GlueStorage {
	return &GlueStorage{
		db:     db,
		logger: logger,
	}
}

func (s *GlueStorage) SaveArtifact(ctx context.Context, artifact *models.GlueArtifact) error {
	if artifact.SourcePath == "" {
		return fmt.Errorf("artifact source path is required")
	}

	if err := s.db.Store().Upsert(artifact.SourcePath, artifact); err != nil {
		return fmt.Errorf("failed to save glue artifact: %w", err)
	}
	return nil
}

func (s *GlueStorage) GetArtifact(ctx context.Context, sourcePath string) (*models.GlueArtifact, error) {
	var artifact models.GlueArtifact
	if err := s.db.Store().Get(sourcePath, &artifact); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("glue artifact not found: %s", sourcePath)
		}
		return nil, fmt.Errorf("failed to get glue artifact: %w", err)
	}
	return &artifact, nil
}

func (s *GlueStorage) LatestArtifact(ctx context.Context) (*models.GlueArtifact, error) {
	var artifacts []*models.GlueArtifact
	query := badgerhold.Where("SourcePath").Ne("").SortBy("GeneratedAt").Reverse().Limit(1)

	if err := s.db.Store().Find(&artifacts, query); err != nil {
		return nil, fmt.Errorf("failed to query glue artifacts: %w", err)
	}
	if len(artifacts) == 0 {
		return nil, nil
	}
	return artifacts[0], nil
}
