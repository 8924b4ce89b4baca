package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/mpetrashov/projecthub/internal/events"
	"github.com/mpetrashov/projecthub/internal/logging"
	"github.com/mpetrashov/projecthub/internal/models"
	"github.com/mpetrashov/projecthub/internal/repo"
)

// Indexer mirrors project mutations into the search index.
type Indexer interface {
	IndexProject(ctx context.Context, project *models.Project) error
	DeleteProject(ctx context.Context, id uint) error
}

type ProjectService struct {
	Repo   repo.GormRepo
	Events events.Publisher
	Index  Indexer
}

func validateProjectName(name string) error {
	if len(name) < 3 || len(name) > 250 {
		return fmt.Errorf("%w: name must be 3-250 characters", ErrValidation)
	}
	return nil
}

func validateProjectDescription(description string) error {
	if len(description) > 1000 {
		return fmt.Errorf("%w: description must be at most 1000 characters", ErrValidation)
	}
	return nil
}

func (s *ProjectService) Create(ctx context.Context, owner *models.User, name, description string) (*models.Project, error) {
	if err := validateProjectName(name); err != nil {
		return nil, err
	}
	if err := validateProjectDescription(description); err != nil {
		return nil, err
	}

	project, err := s.Repo.CreateProject(ctx, &models.Project{
		Name:        name,
		Description: description,
		OwnerID:     owner.ID,
	})
	if err != nil {
		return nil, err
	}

	s.index(ctx, project)
	s.publish(ctx, project.ID, map[string]any{
		"type":       "project_created",
		"project_id": project.ID,
		"owner_id":   project.OwnerID,
	})

	return project, nil
}

// List returns the caller's own projects; admins see all.
func (s *ProjectService) List(ctx context.Context, caller *models.User, offset, limit int) (int64, []models.Project, error) {
	if caller.IsAdmin() {
		return s.Repo.GetProjects(ctx, offset, limit)
	}
	return s.Repo.GetProjectsByOwner(ctx, caller.ID, offset, limit)
}

// Get allows the owner or an admin to view a project.
func (s *ProjectService) Get(ctx context.Context, caller *models.User, id uint) (*models.Project, error) {
	project, err := s.Repo.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if project.OwnerID != caller.ID && !caller.IsAdmin() {
		return nil, ErrForbidden
	}
	return project, nil
}

// Patch updates only the supplied fields. Owner only, admins included.
func (s *ProjectService) Patch(ctx context.Context, caller *models.User, id uint, name, description *string) (*models.Project, error) {
	project, err := s.Repo.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if project.OwnerID != caller.ID {
		return nil, ErrForbidden
	}

	if name != nil {
		if err := validateProjectName(*name); err != nil {
			return nil, err
		}
	}
	if description != nil {
		if err := validateProjectDescription(*description); err != nil {
			return nil, err
		}
	}

	project, err = s.Repo.PatchProject(ctx, id, name, description)
	if err != nil {
		return nil, err
	}

	s.index(ctx, project)
	s.publish(ctx, project.ID, map[string]any{
		"type":       "project_updated",
		"project_id": project.ID,
		"owner_id":   project.OwnerID,
	})

	return project, nil
}

func (s *ProjectService) Delete(ctx context.Context, caller *models.User, id uint) error {
	project, err := s.Repo.GetProject(ctx, id)
	if err != nil {
		return err
	}
	if project.OwnerID != caller.ID {
		return ErrForbidden
	}

	if err := s.Repo.DeleteProject(ctx, id); err != nil {
		return err
	}

	s.deindex(ctx, id)
	s.publish(ctx, id, map[string]any{
		"type":       "project_deleted",
		"project_id": id,
		"owner_id":   project.OwnerID,
	})

	return nil
}

func (s *ProjectService) index(ctx context.Context, project *models.Project) {
	if s.Index == nil {
		return
	}
	if err := s.Index.IndexProject(ctx, project); err != nil {
		logging.FromContext(ctx).Warn("project_index_failed", "project_id", project.ID, "error", err)
	}
}

func (s *ProjectService) deindex(ctx context.Context, id uint) {
	if s.Index == nil {
		return
	}
	if err := s.Index.DeleteProject(ctx, id); err != nil {
		logging.FromContext(ctx).Warn("project_deindex_failed", "project_id", id, "error", err)
	}
}

func (s *ProjectService) publish(ctx context.Context, projectID uint, event map[string]any) {
	if s.Events == nil {
		return
	}
	key := strconv.FormatUint(uint64(projectID), 10)
	if err := s.Events.Publish(ctx, events.TopicProjectEvents, key, event); err != nil {
		logging.FromContext(ctx).Warn("event_publish_failed", "topic", events.TopicProjectEvents, "error", err)
	}
}
