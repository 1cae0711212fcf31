package telemetry

import (
	"context"

	"github.com/openfroyo/agentcore/pkg/engine"
)

// InstrumentedMirror records a span and metrics around every remote call.
type InstrumentedMirror struct {
	inner engine.Mirror
	tel   *Telemetry
}

// InstrumentMirror wraps m.
func InstrumentMirror(m engine.Mirror, tel *Telemetry) *InstrumentedMirror {
	return &InstrumentedMirror{inner: m, tel: tel}
}

// Name returns the wrapped backend name.
func (m *InstrumentedMirror) Name() string { return m.inner.Name() }

// Get calls the wrapped mirror.
func (m *InstrumentedMirror) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, span := m.tel.Tracer.StartRemoteSpan(ctx, "get", m.Name(), key)
	defer span.End()

	timer := NewTimer()
	data, err := m.inner.Get(ctx, key)
	m.tel.Metrics.RecordRemoteCall(m.Name(), "get", timer.Duration(), err)
	if err != nil && !engine.IsNotFound(err) {
		RecordError(span, err)
	}
	return data, err
}

// Put calls the wrapped mirror.
func (m *InstrumentedMirror) Put(ctx context.Context, key string, data []byte) error {
	ctx, span := m.tel.Tracer.StartRemoteSpan(ctx, "put", m.Name(), key)
	defer span.End()

	timer := NewTimer()
	err := m.inner.Put(ctx, key, data)
	m.tel.Metrics.RecordRemoteCall(m.Name(), "put", timer.Duration(), err)
	RecordError(span, err)
	return err
}

var _ engine.Mirror = (*InstrumentedMirror)(nil)
