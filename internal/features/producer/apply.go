package producer

import (
	"context"
	"errors"
	"fmt"

	"docstream/internal/features/document"
)

// applyEngine executes a single update against local storage. Every branch
// is idempotent: re-applying the same update leaves local state unchanged.
type applyEngine struct {
	docs document.Service
	deps *dependencyResolver
}

func newApplyEngine(docs document.Service, deps *dependencyResolver) *applyEngine {
	return &applyEngine{
		docs: docs,
		deps: deps,
	}
}

// Apply dispatches on the update type and returns the local identity of the
// affected document, or "" for a tolerated no-op.
func (e *applyEngine) Apply(ctx context.Context, client SiteClient, p *EventProducer, update *UpdateLog, useSameName bool) (string, error) {
	switch update.UpdateType {
	case UpdateTypeCreate:
		return e.applyCreate(ctx, client, p, update, useSameName)
	case UpdateTypeUpdate:
		return e.applyUpdate(ctx, client, p, update, useSameName)
	case UpdateTypeDelete:
		return e.applyDelete(ctx, p, update, useSameName)
	default:
		return "", fmt.Errorf("unknown update type %q", update.UpdateType)
	}
}

func (e *applyEngine) applyCreate(ctx context.Context, client SiteClient, p *EventProducer, update *UpdateLog, useSameName bool) (string, error) {
	// Already applied?
	if useSameName {
		exists, err := e.docs.Exists(ctx, update.RefDoctype, update.Docname)
		if err != nil {
			return "", err
		}
		if exists {
			return update.Docname, nil
		}
	} else {
		existing, err := e.docs.GetByFilter(ctx, update.RefDoctype, remoteIdentityFilter(p, update.Docname))
		if err == nil {
			name, _ := existing["name"].(string)
			return name, nil
		}
		if !errors.Is(err, document.ErrNotFound) {
			return "", err
		}
	}

	data := copyDoc(update.Data)

	if err := e.deps.EnsureDependencies(ctx, client, update.RefDoctype, data); err != nil {
		return "", err
	}

	if useSameName {
		return e.docs.Insert(ctx, update.RefDoctype, data, update.Docname)
	}

	// Generated local identity; keep the remote identity as a side channel
	// so later updates and deletes can still find this document.
	delete(data, "name")
	data["remote_docname"] = update.Docname
	data["remote_site"] = p.URL
	return e.docs.Insert(ctx, update.RefDoctype, data, "")
}

func (e *applyEngine) applyUpdate(ctx context.Context, client SiteClient, p *EventProducer, update *UpdateLog, useSameName bool) (string, error) {
	local, err := e.getLocalDoc(ctx, p, update, useSameName)
	if errors.Is(err, document.ErrNotFound) {
		// Cannot update what was never created; tolerated no-op.
		return "", nil
	}
	if err != nil {
		return "", err
	}

	localName, _ := local["name"].(string)

	data := copyDoc(update.Data)
	delete(data, "name")

	// Resolve against the document as it will look after the merge, so
	// link targets arriving in this update are fetched too.
	merged := copyDoc(local)
	for k, v := range data {
		merged[k] = v
	}
	if err := e.deps.EnsureDependencies(ctx, client, update.RefDoctype, merged); err != nil {
		return "", err
	}

	if err := e.docs.Update(ctx, update.RefDoctype, localName, data); err != nil {
		return "", err
	}
	return localName, nil
}

func (e *applyEngine) applyDelete(ctx context.Context, p *EventProducer, update *UpdateLog, useSameName bool) (string, error) {
	local, err := e.getLocalDoc(ctx, p, update, useSameName)
	if errors.Is(err, document.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	localName, _ := local["name"].(string)
	if err := e.docs.Delete(ctx, update.RefDoctype, localName); err != nil {
		return "", err
	}
	return localName, nil
}

func (e *applyEngine) getLocalDoc(ctx context.Context, p *EventProducer, update *UpdateLog, useSameName bool) (map[string]interface{}, error) {
	if useSameName {
		return e.docs.Get(ctx, update.RefDoctype, update.Docname)
	}
	return e.docs.GetByFilter(ctx, update.RefDoctype, remoteIdentityFilter(p, update.Docname))
}

func remoteIdentityFilter(p *EventProducer, remoteDocname string) map[string]interface{} {
	return map[string]interface{}{
		"remote_docname": remoteDocname,
		"remote_site":    p.URL,
	}
}

func copyDoc(doc map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}
