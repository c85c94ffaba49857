// Package remote carries listing analysis requests over NATS request/reply,
// with OpenTelemetry trace context propagated in message headers.
package remote

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"

	"bargain-hunter/models"
)

// DefaultQueue is the queue group analyzer workers join so that each
// request is answered by exactly one worker.
const DefaultQueue = "bargain-analyzers"

// AnalysisRequest is the payload sent to an analyzer worker.
type AnalysisRequest struct {
	Listing models.RawListing `json:"listing"`
	Prompt  string            `json:"prompt"`
}

// AnalysisResponse is the worker's reply. Exactly one of Analysis and Error
// is set.
type AnalysisResponse struct {
	Analysis *models.ListingAnalysis `json:"analysis,omitempty"`
	Error    string                  `json:"error,omitempty"`
}

// headerCarrier adapts nats.Msg headers for OTel TextMapCarrier.
type headerCarrier nats.Msg

func (c *headerCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *headerCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *headerCarrier) Keys() []string {
	if c.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

// request sends req as JSON and decodes the reply into Resp. The call is
// bounded by ctx.
func request[Req, Resp any](ctx context.Context, nc *nats.Conn, subject string, req Req) (Resp, error) {
	var zero Resp
	data, err := json.Marshal(req)
	if err != nil {
		return zero, fmt.Errorf("remote: encode request: %w", err)
	}
	msg := &nats.Msg{Subject: subject, Data: data}
	otel.GetTextMapPropagator().Inject(ctx, (*headerCarrier)(msg))

	reply, err := nc.RequestMsgWithContext(ctx, msg)
	if err != nil {
		return zero, fmt.Errorf("remote: request %s: %w", subject, err)
	}

	var out Resp
	if err := json.Unmarshal(reply.Data, &out); err != nil {
		return zero, fmt.Errorf("remote: decode reply: %w", err)
	}
	return out, nil
}

// extract returns a context carrying the trace context found in msg headers.
func extract(msg *nats.Msg) context.Context {
	return otel.GetTextMapPropagator().Extract(context.Background(), (*headerCarrier)(msg))
}
