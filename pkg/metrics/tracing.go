package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
)

// TraceMethodCall traces a method call with a given struct/package and method
// names. Within a New Relic transaction a segment is recorded; otherwise, when
// an application is injected, only the call duration is recorded. The returned
// tracer is nil when neither is available, and all its methods are nil safe.
func TraceMethodCall(ctx context.Context, structOrPackageName, methodName string) *MethodTracer {
	name := fmt.Sprintf("%s %s", structOrPackageName, methodName)

	txn := newrelic.FromContext(ctx)
	app, hasApp := applicationFromContext(ctx)
	if txn == nil && !hasApp {
		return nil
	}

	t := &MethodTracer{
		name:  name,
		start: time.Now(),
		app:   app,
		txn:   txn,
	}
	if txn != nil {
		t.seg = txn.StartSegment(name)
	}
	return t
}

// MethodTracer collects analytics for a given method call.
type MethodTracer struct {
	name  string
	start time.Time

	app *newrelic.Application
	txn *newrelic.Transaction
	seg *newrelic.Segment
}

// AddAttribute adds a key-value pair metadata to the method trace
func (t *MethodTracer) AddAttribute(key string, value interface{}) {
	if t == nil || t.seg == nil {
		return
	}

	t.seg.AddAttribute(key, value)
}

// AddAttributes adds a set of key-value pair metadata to the method trace
func (t *MethodTracer) AddAttributes(attributes map[string]interface{}) {
	for key, value := range attributes {
		t.AddAttribute(key, value)
	}
}

// OnError observes an error within a method trace
func (t *MethodTracer) OnError(err error) {
	if t == nil || err == nil {
		return
	}

	if t.txn != nil {
		t.txn.NoticeError(err)
	}
}

// End completes the trace for the method call.
func (t *MethodTracer) End() {
	if t == nil {
		return
	}

	if t.seg != nil {
		t.seg.End()
	}
	if t.app != nil && t.txn == nil {
		t.app.RecordCustomMetric("Custom/"+t.name, float64(time.Since(t.start)/time.Millisecond))
	}
}
