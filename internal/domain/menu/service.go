package menu

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinicdesk/internal/platform/auth"
)

// Service owns menu item writes and the cached tree entry point. Every
// write bumps the shared version counter, which is the only invalidation
// mechanism the tree cache has.
type Service struct {
	repo    Repository
	builder *Builder
	cache   *TreeCache
	logger  zerolog.Logger
}

func NewService(repo Repository, builder *Builder, cache *TreeCache, logger zerolog.Logger) *Service {
	return &Service{repo: repo, builder: builder, cache: cache, logger: logger}
}

// Tree returns the navigation tree for the principal, served from cache when
// the version matches. Note the cached entry wins even when currentPath
// differs from the path it was built for.
func (s *Service) Tree(ctx context.Context, principal auth.Principal, currentPath string) ([]*TreeNode, error) {
	if nodes, ok := s.cache.Get(ctx, principal); ok {
		return nodes, nil
	}

	items, err := s.repo.ListVisible(ctx)
	if err != nil {
		return nil, err
	}
	nodes := s.builder.BuildTree(items, principal, currentPath)
	if nodes == nil {
		nodes = []*TreeNode{}
	}
	s.cache.Put(ctx, principal, nodes)
	return nodes, nil
}

func (s *Service) Create(ctx context.Context, item *MenuItem) error {
	if err := item.Validate(); err != nil {
		return err
	}
	if err := s.checkParentCycle(ctx, item.ID, item.ParentID); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return err
	}
	s.cache.Bump(ctx)
	return nil
}

func (s *Service) Update(ctx context.Context, item *MenuItem) error {
	if err := item.Validate(); err != nil {
		return err
	}
	if err := s.checkParentCycle(ctx, item.ID, item.ParentID); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, item); err != nil {
		return err
	}
	s.cache.Bump(ctx)
	return nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Bump(ctx)
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*MenuItem, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*MenuItem, error) {
	return s.repo.ListAll(ctx)
}

// checkParentCycle walks the ancestor chain from the proposed parent and
// rejects the assignment when the item itself shows up, at any depth.
func (s *Service) checkParentCycle(ctx context.Context, itemID uuid.UUID, parentID *uuid.UUID) error {
	if parentID == nil || itemID == uuid.Nil {
		return nil
	}
	seen := map[uuid.UUID]bool{itemID: true}
	current := parentID
	for current != nil {
		if seen[*current] {
			return fmt.Errorf("menu item parent chain contains a cycle")
		}
		seen[*current] = true
		parent, err := s.repo.GetByID(ctx, *current)
		if err != nil {
			return fmt.Errorf("parent %s: %w", *current, err)
		}
		current = parent.ParentID
	}
	return nil
}
