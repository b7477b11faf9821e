package producer

import (
	"context"
	"errors"
	"fmt"

	"docstream/internal/features/doctype"
	"docstream/internal/features/document"
)

// dependencyResolver makes sure every record a document links to exists
// locally before the document itself is written. Resolution order is fixed:
// child-table row links first, then direct links, then dynamic links.
//
// Missing dependencies are fetched from the producer and inserted under
// their remote name regardless of the dependent's naming policy, so
// cross-references stay stable. Recursion is bounded by a visited set and a
// depth limit; the source graph is not trusted to be acyclic.
type dependencyResolver struct {
	meta     doctype.MetaService
	docs     document.Service
	maxDepth int
}

func newDependencyResolver(meta doctype.MetaService, docs document.Service, maxDepth int) *dependencyResolver {
	if maxDepth <= 0 {
		maxDepth = 10
	}
	return &dependencyResolver{
		meta:     meta,
		docs:     docs,
		maxDepth: maxDepth,
	}
}

func (r *dependencyResolver) EnsureDependencies(ctx context.Context, client SiteClient, doctypeName string, doc map[string]interface{}) error {
	return r.ensure(ctx, client, doctypeName, doc, 0, make(map[string]bool))
}

func (r *dependencyResolver) ensure(ctx context.Context, client SiteClient, doctypeName string, doc map[string]interface{}, depth int, seen map[string]bool) error {
	if depth > r.maxDepth {
		return &DependencyError{
			Doctype: doctypeName,
			Reason:  fmt.Sprintf("dependency chain exceeds depth %d", r.maxDepth),
		}
	}

	tableFields, err := r.meta.TableFields(ctx, doctypeName)
	if err != nil {
		return err
	}
	for _, tf := range tableFields {
		if err := r.ensureChildTable(ctx, client, tf, doc, depth, seen); err != nil {
			return err
		}
	}

	linkFields, err := r.meta.LinkFields(ctx, doctypeName)
	if err != nil {
		return err
	}
	if err := r.ensureLinks(ctx, client, linkFields, doc, depth, seen); err != nil {
		return err
	}

	dynamicFields, err := r.meta.DynamicLinkFields(ctx, doctypeName)
	if err != nil {
		return err
	}
	for _, df := range dynamicFields {
		linkedDoctype := stringField(doc, df.Options)
		docname := stringField(doc, df.Fieldname)
		if err := r.fulfill(ctx, client, linkedDoctype, docname, depth, seen); err != nil {
			return err
		}
	}

	return nil
}

func (r *dependencyResolver) ensureChildTable(ctx context.Context, client SiteClient, tf doctype.DocField, doc map[string]interface{}, depth int, seen map[string]bool) error {
	rows, ok := doc[tf.Fieldname]
	if !ok || tf.Options == "" {
		return nil
	}

	childLinks, err := r.meta.LinkFields(ctx, tf.Options)
	if err != nil {
		return err
	}

	for _, raw := range asRows(rows) {
		if err := r.ensureLinks(ctx, client, childLinks, raw, depth, seen); err != nil {
			return err
		}
	}
	return nil
}

func (r *dependencyResolver) ensureLinks(ctx context.Context, client SiteClient, linkFields []doctype.DocField, doc map[string]interface{}, depth int, seen map[string]bool) error {
	for _, lf := range linkFields {
		docname := stringField(doc, lf.Fieldname)
		if err := r.fulfill(ctx, client, lf.Options, docname, depth, seen); err != nil {
			return err
		}
	}
	return nil
}

// fulfill guarantees linkedDoctype/docname exists locally, fetching and
// inserting it from the producer when it does not. A failed insert means the
// fetched record has dependencies of its own; those are resolved first and
// the insert retried once.
func (r *dependencyResolver) fulfill(ctx context.Context, client SiteClient, linkedDoctype, docname string, depth int, seen map[string]bool) error {
	if linkedDoctype == "" || docname == "" {
		return nil
	}

	key := linkedDoctype + "/" + docname
	if seen[key] {
		// Already being resolved higher up the chain.
		return nil
	}

	exists, err := r.docs.Exists(ctx, linkedDoctype, docname)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	seen[key] = true

	fetched, err := client.GetDoc(ctx, linkedDoctype, docname)
	if err != nil {
		return &DependencyError{Doctype: linkedDoctype, Docname: docname, Reason: "fetch from producer failed", Err: err}
	}

	// Dependencies always keep their remote name.
	_, err = r.docs.Insert(ctx, linkedDoctype, fetched, docname)
	if err == nil {
		return nil
	}

	// A missing link inside the fetched record: resolve its own
	// dependencies first, then retry the insert once.
	var unmet *document.UnmetLinkError
	if !errors.As(err, &unmet) {
		return &DependencyError{Doctype: linkedDoctype, Docname: docname, Reason: "insert failed", Err: err}
	}
	if depErr := r.ensure(ctx, client, linkedDoctype, fetched, depth+1, seen); depErr != nil {
		return &DependencyError{Doctype: linkedDoctype, Docname: docname, Reason: "nested dependency unresolvable", Err: depErr}
	}
	if _, err := r.docs.Insert(ctx, linkedDoctype, fetched, docname); err != nil {
		return &DependencyError{Doctype: linkedDoctype, Docname: docname, Reason: "insert failed after resolving nested dependencies", Err: err}
	}

	return nil
}

func stringField(doc map[string]interface{}, field string) string {
	if field == "" || doc == nil {
		return ""
	}
	if v, ok := doc[field].(string); ok {
		return v
	}
	return ""
}

func asRows(rows interface{}) []map[string]interface{} {
	switch v := rows.(type) {
	case []map[string]interface{}:
		return v
	case []interface{}:
		out := make([]map[string]interface{}, 0, len(v))
		for _, raw := range v {
			if row, ok := raw.(map[string]interface{}); ok {
				out = append(out, row)
			}
		}
		return out
	default:
		return nil
	}
}
