package services

import (
	"context"
	"sync"
)

type SchemaInitializer interface {
	EnsureSchema(ctx context.Context) error
}

// SchemaGate runs schema initialization until it succeeds once and then
// short-circuits. One gate is shared by every service built on the same store.
type SchemaGate struct {
	mu          sync.Mutex
	initializer SchemaInitializer
	ready       bool
}

func NewSchemaGate(initializer SchemaInitializer) *SchemaGate {
	return &SchemaGate{initializer: initializer}
}

func (g *SchemaGate) Ready(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.ready {
		return nil
	}
	if err := g.initializer.EnsureSchema(ctx); err != nil {
		return err
	}
	g.ready = true
	return nil
}

func (g *SchemaGate) IsReady() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ready
}
