package repo

import (
	"context"

	"github.com/mpetrashov/projecthub/internal/models"
	"gorm.io/gorm"
)

func (r *GormRepo) CreateProject(ctx context.Context, project *models.Project) (*models.Project, error) {
	if err := r.DB.WithContext(ctx).Create(project).Error; err != nil {
		return nil, err
	}
	return project, nil
}

func (r *GormRepo) GetProject(ctx context.Context, id uint) (*models.Project, error) {
	var project models.Project
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *GormRepo) GetProjects(ctx context.Context, offset, limit int) (int64, []models.Project, error) {
	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.Project{}).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var items []models.Project
	if err := r.DB.WithContext(ctx).Model(&models.Project{}).
		Order("id ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return 0, nil, err
	}

	return total, items, nil
}

func (r *GormRepo) GetProjectsByOwner(ctx context.Context, ownerID uint, offset, limit int) (int64, []models.Project, error) {
	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.Project{}).
		Where("owner_id = ?", ownerID).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var items []models.Project
	if err := r.DB.WithContext(ctx).Model(&models.Project{}).
		Where("owner_id = ?", ownerID).
		Order("id ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return 0, nil, err
	}

	return total, items, nil
}

func (r *GormRepo) PatchProject(ctx context.Context, id uint, name, description *string) (*models.Project, error) {
	var project models.Project
	if err := r.DB.WithContext(ctx).First(&project, id).Error; err != nil {
		return nil, err
	}

	if name != nil {
		project.Name = *name
	}
	if description != nil {
		project.Description = *description
	}

	if err := r.DB.WithContext(ctx).Save(&project).Error; err != nil {
		return nil, err
	}

	return &project, nil
}

func (r *GormRepo) DeleteProject(ctx context.Context, id uint) error {
	res := r.DB.WithContext(ctx).Delete(&models.Project{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
