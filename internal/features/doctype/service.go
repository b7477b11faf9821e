package doctype

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// MetaService answers schema questions about doctypes. Lookups are served
// from a cache so the sync path never hits the registry collection per field.
type MetaService interface {
	Get(ctx context.Context, name string) (*Doctype, error)
	TableFields(ctx context.Context, name string) ([]DocField, error)
	LinkFields(ctx context.Context, name string) ([]DocField, error)
	DynamicLinkFields(ctx context.Context, name string) ([]DocField, error)
	Invalidate(name string)
}

type DoctypeService interface {
	MetaService
	CreateDoctype(ctx context.Context, dt *Doctype) error
	ListDoctypes(ctx context.Context) ([]Doctype, error)
	UpdateDoctype(ctx context.Context, dt *Doctype) error
	DeleteDoctype(ctx context.Context, name string) error
}

type DoctypeServiceImpl struct {
	Repo DoctypeRepository

	mu    sync.RWMutex
	cache map[string]*Doctype
}

func NewDoctypeService(repo DoctypeRepository) DoctypeService {
	return &DoctypeServiceImpl{
		Repo:  repo,
		cache: make(map[string]*Doctype),
	}
}

func (s *DoctypeServiceImpl) CreateDoctype(ctx context.Context, dt *Doctype) error {
	if dt.Name == "" || dt.Label == "" {
		return errors.New("doctype name and label are required")
	}

	if _, err := s.Repo.FindByName(ctx, dt.Name); err == nil {
		return fmt.Errorf("doctype %s already exists", dt.Name)
	}

	dt.CreatedAt = time.Now()
	dt.UpdatedAt = time.Now()
	s.appendSystemFields(dt)

	return s.Repo.Create(ctx, dt)
}

func (s *DoctypeServiceImpl) ListDoctypes(ctx context.Context) ([]Doctype, error) {
	return s.Repo.List(ctx)
}

func (s *DoctypeServiceImpl) UpdateDoctype(ctx context.Context, dt *Doctype) error {
	dt.UpdatedAt = time.Now()
	if err := s.Repo.Update(ctx, dt); err != nil {
		return err
	}
	s.Invalidate(dt.Name)
	return nil
}

func (s *DoctypeServiceImpl) DeleteDoctype(ctx context.Context, name string) error {
	dt, err := s.Repo.FindByName(ctx, name)
	if err != nil {
		return fmt.Errorf("doctype %s not found", name)
	}
	if dt.IsSystem {
		return fmt.Errorf("doctype %s is a system doctype and cannot be deleted", name)
	}
	if err := s.Repo.Delete(ctx, name); err != nil {
		return err
	}
	s.Invalidate(name)
	return nil
}

func (s *DoctypeServiceImpl) Get(ctx context.Context, name string) (*Doctype, error) {
	s.mu.RLock()
	dt, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return dt, nil
	}

	dt, err := s.Repo.FindByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("unknown doctype %s: %w", name, err)
	}

	s.mu.Lock()
	s.cache[name] = dt
	s.mu.Unlock()

	return dt, nil
}

func (s *DoctypeServiceImpl) TableFields(ctx context.Context, name string) ([]DocField, error) {
	return s.fieldsOfType(ctx, name, FieldTypeTable)
}

func (s *DoctypeServiceImpl) LinkFields(ctx context.Context, name string) ([]DocField, error) {
	return s.fieldsOfType(ctx, name, FieldTypeLink)
}

func (s *DoctypeServiceImpl) DynamicLinkFields(ctx context.Context, name string) ([]DocField, error) {
	return s.fieldsOfType(ctx, name, FieldTypeDynamicLink)
}

func (s *DoctypeServiceImpl) Invalidate(name string) {
	s.mu.Lock()
	delete(s.cache, name)
	s.mu.Unlock()
}

func (s *DoctypeServiceImpl) fieldsOfType(ctx context.Context, name string, ft FieldType) ([]DocField, error) {
	dt, err := s.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	var fields []DocField
	for _, f := range dt.Fields {
		if f.Type == ft {
			fields = append(fields, f)
		}
	}
	return fields, nil
}

// appendSystemFields stamps the fields every replicated document carries:
// its identity and, when the remote name is not preserved, the
// remote-identity side channel.
func (s *DoctypeServiceImpl) appendSystemFields(dt *Doctype) {
	system := []DocField{
		{Fieldname: "name", Label: "Name", Type: FieldTypeData, IsSystem: true},
		{Fieldname: "remote_docname", Label: "Remote Document Name", Type: FieldTypeData, IsSystem: true},
		{Fieldname: "remote_site", Label: "Remote Site", Type: FieldTypeData, IsSystem: true},
	}

	existing := make(map[string]bool, len(dt.Fields))
	for _, f := range dt.Fields {
		existing[f.Fieldname] = true
	}
	for _, f := range system {
		if !existing[f.Fieldname] {
			dt.Fields = append(dt.Fields, f)
		}
	}
}
