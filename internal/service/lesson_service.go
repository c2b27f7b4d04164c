package service

import (
	"context"
	"fmt"

	"desorientado_backend/internal/model"
)

type LessonModule struct {
	Name    string         `json:"name"`
	Lessons []model.Lesson `json:"lessons"`
}

type LessonService struct {
	catalog LessonCatalog
}

func NewLessonService(catalog LessonCatalog) *LessonService {
	return &LessonService{catalog: catalog}
}

// Modules groups the curriculum by module, keeping teaching order.
func (s *LessonService) Modules(ctx context.Context) ([]LessonModule, error) {
	lessons, err := s.catalog.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}

	modules := []LessonModule{}
	index := map[string]int{}
	for _, l := range lessons {
		i, ok := index[l.Module]
		if !ok {
			i = len(modules)
			index[l.Module] = i
			modules = append(modules, LessonModule{Name: l.Module})
		}
		modules[i].Lessons = append(modules[i].Lessons, l)
	}
	return modules, nil
}
