// Package metrics provides the OpenTelemetry instruments shared by the
// plugin bridge and the gateway: counters for sessions, tool calls, token
// issuance, and fingerprint changes, exported via a Prometheus scrape
// endpoint.
package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/daichi-629/obsiscripta-mcp"

// Metrics holds the counters recorded across both tiers. All fields are
// safe for concurrent use; the underlying OTel instruments synchronise
// internally.
type Metrics struct {
	SessionsCreated      metric.Int64Counter
	SessionsClosed       metric.Int64Counter
	ToolCalls            metric.Int64Counter
	TokensIssued         metric.Int64Counter
	FingerprintChanges   metric.Int64Counter
	UpstreamRequestsTime metric.Float64Histogram
}

// New creates a fully initialised Metrics using the given MeterProvider.
func New(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	met := &Metrics{}
	var err error

	if met.SessionsCreated, err = m.Int64Counter("mcp.sessions.created",
		metric.WithDescription("Total MCP sessions created.")); err != nil {
		return nil, fmt.Errorf("create sessions_created counter: %w", err)
	}
	if met.SessionsClosed, err = m.Int64Counter("mcp.sessions.closed",
		metric.WithDescription("Total MCP sessions closed, by reason.")); err != nil {
		return nil, fmt.Errorf("create sessions_closed counter: %w", err)
	}
	if met.ToolCalls, err = m.Int64Counter("mcp.tool.calls",
		metric.WithDescription("Total tools/call invocations, by tool and outcome.")); err != nil {
		return nil, fmt.Errorf("create tool_calls counter: %w", err)
	}
	if met.TokensIssued, err = m.Int64Counter("oauth.tokens.issued",
		metric.WithDescription("Total OAuth tokens issued, by grant type.")); err != nil {
		return nil, fmt.Errorf("create tokens_issued counter: %w", err)
	}
	if met.FingerprintChanges, err = m.Int64Counter("mcp.fingerprint.changes",
		metric.WithDescription("Total tool set fingerprint changes observed.")); err != nil {
		return nil, fmt.Errorf("create fingerprint_changes counter: %w", err)
	}
	if met.UpstreamRequestsTime, err = m.Float64Histogram("gateway.upstream.request.duration",
		metric.WithDescription("Latency of gateway-to-plugin-bridge upstream hops."),
		metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("create upstream_request_duration histogram: %w", err)
	}

	return met, nil
}

// RecordToolCall increments the tool call counter with the tool name and
// outcome ("ok" or "error") as attributes.
func (m *Metrics) RecordToolCall(ctx context.Context, tool, outcome string) {
	m.ToolCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("outcome", outcome),
	))
}

// RecordTokenIssued increments the token issuance counter for a grant type
// ("authorization_code" or "refresh_token").
func (m *Metrics) RecordTokenIssued(ctx context.Context, grantType string) {
	m.TokensIssued.Add(ctx, 1, metric.WithAttributes(attribute.String("grant_type", grantType)))
}

// RecordSessionClosed increments the session-closed counter for a reason
// ("delete", "idle_timeout", "transport_error").
func (m *Metrics) RecordSessionClosed(ctx context.Context, reason string) {
	m.SessionsClosed.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}
