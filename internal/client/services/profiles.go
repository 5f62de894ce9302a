package services

import (
	"context"

	"github.com/dmitrijs2005/incidentdesk/internal/client/codec"
	"github.com/dmitrijs2005/incidentdesk/internal/client/models"
	"github.com/dmitrijs2005/incidentdesk/internal/client/pipeline"
	"github.com/dmitrijs2005/incidentdesk/internal/common"
)

// ProfileCache receives every freshly fetched profile; session.Manager
// implements it.
type ProfileCache interface {
	UpdateProfile(ctx context.Context, p models.UserProfile)
}

type ProfileService interface {
	// Current fetches the signed-in user and replaces the cached profile.
	Current(ctx context.Context) (models.UserProfile, error)
}

type profileService struct {
	pipe  *pipeline.Pipeline
	cache ProfileCache
	path  string
}

// NewProfileService fetches profiles from path; "" means
// common.PathCurrentUser.
func NewProfileService(pipe *pipeline.Pipeline, cache ProfileCache, path string) ProfileService {
	if path == "" {
		path = common.PathCurrentUser
	}
	return &profileService{pipe: pipe, cache: cache, path: path}
}

func (s *profileService) Current(ctx context.Context) (models.UserProfile, error) {
	p, err := pipeline.Execute(ctx, s.pipe, pipeline.Get(s.path), codec.DecodeProfile)
	if err != nil {
		return models.UserProfile{}, err
	}
	if s.cache != nil {
		s.cache.UpdateProfile(ctx, p)
	}
	return p, nil
}
