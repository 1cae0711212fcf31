package manager

import (
	"context"
	"fmt"

	"github.com/openfroyo/agentcore/pkg/engine"
	"github.com/openfroyo/agentcore/pkg/model"
)

// AddECRRepository registers a shared image repository.
func (m *Manager) AddECRRepository(ctx context.Context, repo model.ECRRepository) (*MutationResult, error) {
	path := "global_resources.ecr_repositories." + repo.Name
	return m.mutate(ctx, "AddECRRepository", path, func(doc *model.Document) error {
		if _, ok := doc.GlobalResources.ECRRepositories[repo.Name]; ok {
			return alreadyExists(path, "ECR repository %q already exists", repo.Name)
		}
		r := repo
		r.AvailableTags = append([]string(nil), repo.AvailableTags...)
		if r.CreatedAt.IsZero() {
			r.CreatedAt = m.timestamp()
		}
		doc.GlobalResources.ECRRepositories[repo.Name] = &r
		return nil
	})
}

// RemoveECRRepository unregisters a repository. Runtimes or versions that
// still name it are reported as dangling-reference warnings.
func (m *Manager) RemoveECRRepository(ctx context.Context, name string) (*MutationResult, error) {
	path := "global_resources.ecr_repositories." + name
	return m.mutate(ctx, "RemoveECRRepository", path, func(doc *model.Document) error {
		if _, err := doc.ECRRepository(name); err != nil {
			return err
		}
		delete(doc.GlobalResources.ECRRepositories, name)
		return nil
	})
}

// AddIAMRole registers a shared IAM role.
func (m *Manager) AddIAMRole(ctx context.Context, role model.IAMRoleConfig) (*MutationResult, error) {
	path := "global_resources.iam_roles." + role.Name
	return m.mutate(ctx, "AddIAMRole", path, func(doc *model.Document) error {
		if _, ok := doc.GlobalResources.IAMRoles[role.Name]; ok {
			return alreadyExists(path, "IAM role %q already exists", role.Name)
		}
		r := role
		if r.CreatedAt.IsZero() {
			r.CreatedAt = m.timestamp()
		}
		doc.GlobalResources.IAMRoles[role.Name] = &r
		return nil
	})
}

// RemoveIAMRole unregisters an IAM role.
func (m *Manager) RemoveIAMRole(ctx context.Context, name string) (*MutationResult, error) {
	path := "global_resources.iam_roles." + name
	return m.mutate(ctx, "RemoveIAMRole", path, func(doc *model.Document) error {
		if _, ok := doc.GlobalResources.IAMRoles[name]; !ok {
			return engine.NewNotFoundError(path, fmt.Sprintf("IAM role %q does not exist", name))
		}
		delete(doc.GlobalResources.IAMRoles, name)
		return nil
	})
}
