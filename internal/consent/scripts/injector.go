package scripts

import (
	"context"
	"errors"
	"fmt"

	"cookiegate/internal/consent/metrics"
	"cookiegate/internal/consent/models"
)

// DocumentInjector loads every registry script unlocked by a category into a
// Document. A script whose marker is already present is skipped.
type DocumentInjector struct {
	doc      Document
	registry *Registry
	metrics  *metrics.Metrics
}

// NewDocumentInjector binds a registry to a document. m may be nil.
func NewDocumentInjector(doc Document, registry *Registry, m *metrics.Metrics) *DocumentInjector {
	return &DocumentInjector{doc: doc, registry: registry, metrics: m}
}

func (i *DocumentInjector) Inject(_ context.Context, category models.Category) error {
	var errs []error
	for _, s := range i.registry.For(category) {
		if i.doc.HasScript(s.ID) {
			continue
		}
		if err := i.doc.AppendScript(s); err != nil {
			errs = append(errs, fmt.Errorf("inject %s: %w", s.ID, err))
			continue
		}
		i.metrics.IncrementScriptInjection(string(category))
		for _, cmd := range s.Init {
			if err := i.doc.Exec(cmd); err != nil {
				errs = append(errs, fmt.Errorf("init %s: %w", s.ID, err))
			}
		}
	}
	return errors.Join(errs...)
}
