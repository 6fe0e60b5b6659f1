package grpc

import (
	"testing"

	"github.com/ulta-agent/ulta/logging"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestJSONCodec_RoundTrips(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}
	c := jsonCodec{}
	data, err := c.Marshal(payload{Name: "job-1"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out payload
	if err := c.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Name != "job-1" {
		t.Fatalf("expected job-1, got %s", out.Name)
	}
	if c.Name() != "json" {
		t.Fatalf("expected codec name json, got %s", c.Name())
	}
}

func TestWrapRPCError_ClassifiesByCode(t *testing.T) {
	cases := []struct {
		code              codes.Code
		wantNotFound      bool
		wantRejected      bool
		wantTransient     bool
		wantUnrecognized  bool
	}{
		{codes.NotFound, true, true, false, true},
		{codes.FailedPrecondition, false, true, false, false},
		{codes.Unavailable, false, false, true, false},
		{codes.PermissionDenied, false, false, true, true},
		{codes.OK, false, false, false, false},
	}

	for _, tc := range cases {
		err := wrapRPCError("/ulta.ControlPlane/GetJob", status.Error(tc.code, "boom"))
		rpcErr, ok := err.(*rpcError)
		if !ok {
			t.Fatalf("expected *rpcError, got %T", err)
		}
		if rpcErr.NotFound() != tc.wantNotFound {
			t.Errorf("code %v: NotFound = %v, want %v", tc.code, rpcErr.NotFound(), tc.wantNotFound)
		}
		if rpcErr.Rejected() != tc.wantRejected {
			t.Errorf("code %v: Rejected = %v, want %v", tc.code, rpcErr.Rejected(), tc.wantRejected)
		}
		if rpcErr.Transient() != tc.wantTransient {
			t.Errorf("code %v: Transient = %v, want %v", tc.code, rpcErr.Transient(), tc.wantTransient)
		}
		if rpcErr.AgentUnrecognized() != tc.wantUnrecognized {
			t.Errorf("code %v: AgentUnrecognized = %v, want %v", tc.code, rpcErr.AgentUnrecognized(), tc.wantUnrecognized)
		}
	}
}

func TestWrapRPCError_NilIsNil(t *testing.T) {
	if wrapRPCError("method", nil) != nil {
		t.Fatal("expected nil error to stay nil")
	}
}

func TestClient_PrepareTestDataWrapsAggregateAndStats(t *testing.T) {
	c := &Client{}
	got := c.PrepareTestData("aggregate", "stats")
	wire, ok := got.(trailWire)
	if !ok {
		t.Fatalf("expected trailWire, got %T", got)
	}
	if wire.Aggregate != "aggregate" || wire.Stats != "stats" {
		t.Fatalf("unexpected trailWire: %+v", wire)
	}
}

func TestClient_PrepareMonitoringDataPassesThrough(t *testing.T) {
	c := &Client{}
	got := c.PrepareMonitoringData("chunk")
	if got != "chunk" {
		t.Fatalf("expected passthrough, got %v", got)
	}
}

func TestSeverityNames_CoversEveryDeclaredSeverity(t *testing.T) {
	for _, sev := range []logging.Severity{
		logging.SeverityDebug, logging.SeverityInfo, logging.SeverityWarning,
		logging.SeverityError, logging.SeverityFatal,
	} {
		if _, ok := severityNames[sev]; !ok {
			t.Errorf("severity %v missing from severityNames", sev)
		}
	}
}
