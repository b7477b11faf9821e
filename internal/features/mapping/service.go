package mapping

import (
	"context"
	"errors"
	"fmt"
	"time"

	"docstream/internal/features/doctype"

	"github.com/d5/tengo/v2"
)

type Service interface {
	CreateMapping(ctx context.Context, m *DoctypeMapping) error
	GetMapping(ctx context.Context, name string) (*DoctypeMapping, error)
	ListMappings(ctx context.Context) ([]DoctypeMapping, error)
	UpdateMapping(ctx context.Context, m *DoctypeMapping) error
	DeleteMapping(ctx context.Context, name string) error
	Resolve(m *DoctypeMapping, data map[string]interface{}) (map[string]interface{}, error)
}

type ServiceImpl struct {
	Repo MappingRepository
	Meta doctype.MetaService
}

func NewMappingService(repo MappingRepository, meta doctype.MetaService) Service {
	return &ServiceImpl{
		Repo: repo,
		Meta: meta,
	}
}

func (s *ServiceImpl) CreateMapping(ctx context.Context, m *DoctypeMapping) error {
	if m.Name == "" {
		return errors.New("mapping name is required")
	}
	if m.LocalDoctype == "" || m.RemoteDoctype == "" {
		return errors.New("mapping requires both local and remote doctype")
	}

	// The target doctype must resolve to a concrete local schema.
	if _, err := s.Meta.Get(ctx, m.LocalDoctype); err != nil {
		return fmt.Errorf("local doctype %s is not registered: %w", m.LocalDoctype, err)
	}

	if _, err := s.Repo.FindByName(ctx, m.Name); err == nil {
		return fmt.Errorf("mapping %s already exists", m.Name)
	}

	if m.TransformScript != "" {
		script := tengo.NewScript([]byte(m.TransformScript))
		_ = script.Add("doc", map[string]interface{}{})
		if _, err := script.Compile(); err != nil {
			return fmt.Errorf("transform script does not compile: %w", err)
		}
	}

	return s.Repo.Create(ctx, m)
}

func (s *ServiceImpl) GetMapping(ctx context.Context, name string) (*DoctypeMapping, error) {
	return s.Repo.FindByName(ctx, name)
}

func (s *ServiceImpl) ListMappings(ctx context.Context) ([]DoctypeMapping, error) {
	return s.Repo.List(ctx)
}

func (s *ServiceImpl) UpdateMapping(ctx context.Context, m *DoctypeMapping) error {
	m.UpdatedAt = time.Now()
	return s.Repo.Update(ctx, m)
}

func (s *ServiceImpl) DeleteMapping(ctx context.Context, name string) error {
	return s.Repo.Delete(ctx, name)
}

// Resolve transforms a remote payload into the local field layout. It is a
// pure transform: fields without a map entry are dropped, remote fields
// absent from the payload are skipped.
func (s *ServiceImpl) Resolve(m *DoctypeMapping, data map[string]interface{}) (map[string]interface{}, error) {
	if m.LocalDoctype == "" {
		return nil, &MappingError{Mapping: m.Name, Reason: "no local doctype configured"}
	}
	if data == nil {
		return nil, &MappingError{Mapping: m.Name, Reason: "no payload to map"}
	}

	out := make(map[string]interface{}, len(m.FieldMap))
	for _, entry := range m.FieldMap {
		if entry.LocalFieldname == "" {
			return nil, &MappingError{Mapping: m.Name, Reason: fmt.Sprintf("field map entry for %s has no local fieldname", entry.RemoteFieldname)}
		}
		if val, ok := data[entry.RemoteFieldname]; ok {
			out[entry.LocalFieldname] = val
		}
	}

	for _, table := range m.TableMaps {
		rows, ok := data[table.RemoteFieldname]
		if !ok {
			continue
		}
		rowList, ok := rows.([]interface{})
		if !ok {
			return nil, &MappingError{Mapping: m.Name, Reason: fmt.Sprintf("table field %s is not a list", table.RemoteFieldname)}
		}

		mapped := make([]interface{}, 0, len(rowList))
		for _, raw := range rowList {
			row, ok := raw.(map[string]interface{})
			if !ok {
				return nil, &MappingError{Mapping: m.Name, Reason: fmt.Sprintf("table field %s has a non-object row", table.RemoteFieldname)}
			}
			mappedRow := make(map[string]interface{}, len(table.FieldMap))
			for _, entry := range table.FieldMap {
				if val, ok := row[entry.RemoteFieldname]; ok {
					mappedRow[entry.LocalFieldname] = val
				}
			}
			mapped = append(mapped, mappedRow)
		}
		out[table.LocalFieldname] = mapped
	}

	// Keep the remote identity so the apply path can still resolve it.
	if name, ok := data["name"]; ok {
		if _, mapped := out["name"]; !mapped {
			out["name"] = name
		}
	}

	if m.TransformScript != "" {
		transformed, err := s.runTransform(m, out)
		if err != nil {
			return nil, err
		}
		out = transformed
	}

	return out, nil
}

func (s *ServiceImpl) runTransform(m *DoctypeMapping, doc map[string]interface{}) (map[string]interface{}, error) {
	script := tengo.NewScript([]byte(m.TransformScript))

	if err := script.Add("doc", doc); err != nil {
		return nil, &MappingError{Mapping: m.Name, Reason: fmt.Sprintf("payload not scriptable: %v", err)}
	}

	compiled, err := script.RunContext(context.Background())
	if err != nil {
		return nil, &MappingError{Mapping: m.Name, Reason: fmt.Sprintf("transform script failed: %v", err)}
	}

	result := compiled.Get("doc").Map()
	if result == nil {
		return nil, &MappingError{Mapping: m.Name, Reason: "transform script dropped the doc variable"}
	}
	return result, nil
}
