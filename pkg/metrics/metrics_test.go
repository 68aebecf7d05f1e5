package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopWithoutApplication(t *testing.T) {
	ctx := WithApplication(context.Background(), nil)
	assert.Nil(t, ctx.Value(NewRelicContextKey{}))

	RecordCount(ctx, "count", 1)
	RecordDuration(ctx, "duration", time.Second)
	RecordEvent(ctx, "event", map[string]interface{}{"key": "value"})

	tracer := TraceMethodCall(ctx, "struct", "method")
	assert.Nil(t, tracer)
	tracer.AddAttribute("key", "value")
	tracer.AddAttributes(map[string]interface{}{"key": "value"})
	tracer.OnError(errors.New("error"))
	tracer.End()
}

func TestNewRelicMiddleware_PassThrough(t *testing.T) {
	var called bool
	handler := NewRelicMiddleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.True(t, called)
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestForwardedMessage(t *testing.T) {
	e := &logrus.Entry{Message: "submitted", Data: logrus.Fields{}}
	assert.Equal(t, "submitted", forwardedMessage(e))

	e.Data = logrus.Fields{
		"type":          "wiser/vault",
		logrus.ErrorKey: errors.New("blockhash not found"),
	}
	assert.Equal(t, `message="submitted", error="blockhash not found", data={"type":"wiser/vault"}`, forwardedMessage(e))
}
