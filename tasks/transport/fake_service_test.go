package transport

import (
	"context"
	"time"

	"github.com/taskdata/taskd"
	"github.com/taskdata/taskd/resource"
)

// fakeService keeps task records in a map so the handler tests never need a
// database.
type fakeService struct {
	records map[taskd.ID]*taskd.Task
	nextID  taskd.ID

	forcedErr error
}

func newFakeService() *fakeService {
	return &fakeService{
		records: map[taskd.ID]*taskd.Task{},
		nextID:  1,
	}
}

func (s *fakeService) ListOwned(_ context.Context, owner taskd.ID, _ resource.Filter) (resource.RecordList, error) {
	if s.forcedErr != nil {
		return nil, s.forcedErr
	}

	list := taskd.TaskList{}
	for _, rec := range s.records {
		if rec.UserID == owner {
			list = append(list, rec)
		}
	}

	return &list, nil
}

func (s *fakeService) GetOwned(_ context.Context, owner, id taskd.ID) (interface{}, error) {
	if s.forcedErr != nil {
		return nil, s.forcedErr
	}

	rec, ok := s.records[id]
	if !ok || rec.UserID != owner {
		return nil, nil
	}

	return rec, nil
}

func (s *fakeService) Create(_ context.Context, owner taskd.ID, payload map[string]interface{}) (interface{}, error) {
	if s.forcedErr != nil {
		return nil, s.forcedErr
	}

	now := time.Now()
	rec := &taskd.Task{
		ID:        s.nextID,
		UserID:    owner,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if title, ok := payload["title"].(string); ok {
		rec.Title = title
	}

	s.nextID++
	s.records[rec.ID] = rec

	return rec, nil
}

func (s *fakeService) Update(_ context.Context, owner, id taskd.ID, payload map[string]interface{}) (interface{}, error) {
	if s.forcedErr != nil {
		return nil, s.forcedErr
	}

	rec, ok := s.records[id]
	if !ok || rec.UserID != owner {
		return nil, nil
	}

	if title, ok := payload["title"].(string); ok {
		rec.Title = title
	}
	rec.UpdatedAt = time.Now()

	return rec, nil
}

func (s *fakeService) Delete(_ context.Context, owner, id taskd.ID) (bool, error) {
	if s.forcedErr != nil {
		return false, s.forcedErr
	}

	rec, ok := s.records[id]
	if !ok || rec.UserID != owner {
		return false, nil
	}

	delete(s.records, id)

	return true, nil
}

func (s *fakeService) Toggle(_ context.Context, owner, id taskd.ID, field string) (interface{}, error) {
	if s.forcedErr != nil {
		return nil, s.forcedErr
	}

	rec, ok := s.records[id]
	if !ok || rec.UserID != owner {
		return nil, nil
	}

	rec.Completed = !rec.Completed
	rec.UpdatedAt = time.Now()

	return rec, nil
}
