package recorder

import (
	"archivist/internal/providers"
	"archivist/internal/recorder/gitbackend"
	"archivist/internal/recorder/interfaces"
	"archivist/internal/structures"
	"context"
)

// NewRepository opens the git history configured in conf, creating it when
// needed, and makes it ready for use.
func NewRepository(conf *structures.Config, logger providers.Logger) (interfaces.RepositoryInterface, error) {
	repo := NewGitRepository(gitbackend.NewBackend(conf), conf, logger)
	if err := repo.Initialize(context.Background()); err != nil {
		return nil, err
	}
	logger.Infof(providers.TypeRecorder, "Version history ready at %s", conf.Repository.Path)
	return repo, nil
}
