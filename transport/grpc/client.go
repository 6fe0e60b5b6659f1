// Package grpc implements the agent's control-plane client: job
// claiming, status and telemetry reporting, and agent registration, all
// dialed over a single gRPC connection with a shared retry policy.
package grpc

import (
	"context"
	"encoding/base64"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/ulta-agent/ulta/errors"
	"github.com/ulta-agent/ulta/logging"
	"github.com/ulta-agent/ulta/model"
	"github.com/ulta-agent/ulta/ulta"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

const (
	dialTimeout  = 10 * time.Second
	maxRetries   = 3
	retryBackoff = 50 * time.Millisecond
	callTimeout  = 30 * time.Second

	// ratePerSecond bounds how often this agent hammers the control
	// plane with retries; one connection, one job at a time, never
	// needs a deep burst.
	ratePerSecond = 20
	rateBurst     = 20
)

// Client is the control-plane RPC client. It satisfies identity.Client,
// logging.Sender, statusreport.Client, tank.UploaderClient and
// ulta.LoadtestingClient structurally.
type Client struct {
	conn    *grpc.ClientConn
	logger  *zap.SugaredLogger
	limiter *rate.Limiter
}

// Dial opens the control-plane connection. addr is host:port; the
// connection blocks until ready or dialTimeout elapses.
func Dial(addr string, logger *zap.SugaredLogger) (*Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	conn, err := grpc.DialContext(ctx, addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(jsonCodecName)),
		grpc.WithBlock(),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "dial control plane at %s", addr)
	}
	if logger != nil {
		logger.Infow("connected to control plane", "address", addr)
	}
	return &Client{conn: conn, logger: logger, limiter: rate.NewLimiter(ratePerSecond, rateBurst)}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// call invokes method with retry: up to maxRetries additional attempts
// on a transient status code, retryBackoff apart, each attempt stamped
// with a fresh x-client-request-id and a trace id shared across all
// attempts of this call.
func (c *Client) call(ctx context.Context, method string, req, resp any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "throttled before dispatching request")
	}

	traceID := uuid.New().String()
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		attemptCtx := metadata.AppendToOutgoingContext(ctx,
			"x-client-request-id", uuid.New().String(),
			"x-client-trace-id", traceID,
		)
		attemptCtx, cancel := context.WithTimeout(attemptCtx, callTimeout)
		err := c.conn.Invoke(attemptCtx, method, req, resp)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isTransientCode(err) || attempt == maxRetries {
			break
		}
		if c.logger != nil {
			c.logger.Warnw("retrying control-plane call", "method", method, "attempt", attempt+1, "error", err)
		}
		time.Sleep(retryBackoff)
	}
	return wrapRPCError(method, lastErr)
}

// --- identity.Client ---

type registerAgentRequest struct {
	ComputeInstanceID string `json:"compute_instance_id"`
}

type registerAgentResponse struct {
	AgentID string `json:"agent_id"`
}

func (c *Client) RegisterAgent(ctx context.Context, computeInstanceID string) (string, error) {
	var resp registerAgentResponse
	err := c.call(ctx, "/ulta.ControlPlane/RegisterAgent", &registerAgentRequest{ComputeInstanceID: computeInstanceID}, &resp)
	if err != nil {
		return "", err
	}
	return resp.AgentID, nil
}

type registerExternalAgentRequest struct {
	FolderID string `json:"folder_id"`
	Name     string `json:"name"`
}

func (c *Client) RegisterExternalAgent(ctx context.Context, folderID, name string) (string, error) {
	var resp registerAgentResponse
	err := c.call(ctx, "/ulta.ControlPlane/RegisterExternalAgent", &registerExternalAgentRequest{FolderID: folderID, Name: name}, &resp)
	if err != nil {
		return "", err
	}
	return resp.AgentID, nil
}

// --- ulta.LoadtestingClient ---

type getJobRequest struct {
	JobID string `json:"job_id,omitempty"`
}

type jobPayloadWire struct {
	Name            string `json:"name"`
	IsTransient     bool   `json:"is_transient"`
	StorageBucket   string `json:"storage_bucket"`
	StorageFilename string `json:"storage_filename"`
}

type artifactSettingsWire struct {
	OutputBucket  string   `json:"output_bucket"`
	OutputName    string   `json:"output_name"`
	IsArchive     bool     `json:"is_archive"`
	FilterInclude []string `json:"filter_include"`
	FilterExclude []string `json:"filter_exclude"`
}

type getJobResponse struct {
	ID               string                `json:"id"`
	LogGroupID       string                `json:"log_group_id"`
	ConfigJSON       string                `json:"config_json"`
	DataPayload      []jobPayloadWire      `json:"data_payload"`
	ArtifactSettings *artifactSettingsWire `json:"artifact_settings,omitempty"`
}

func (c *Client) GetJob(jobID string) (*ulta.JobMessage, error) {
	ctx := context.Background()
	var resp getJobResponse
	if err := c.call(ctx, "/ulta.ControlPlane/GetJob", &getJobRequest{JobID: jobID}, &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, nil
	}

	msg := &ulta.JobMessage{
		ID:         resp.ID,
		LogGroupID: resp.LogGroupID,
		ConfigJSON: resp.ConfigJSON,
	}
	for _, p := range resp.DataPayload {
		msg.DataPayload = append(msg.DataPayload, ulta.JobPayload{
			Name:            p.Name,
			IsTransient:     p.IsTransient,
			StorageBucket:   p.StorageBucket,
			StorageFilename: p.StorageFilename,
		})
	}
	if resp.ArtifactSettings != nil {
		msg.ArtifactSettings = &model.ArtifactSettings{
			OutputBucket:  resp.ArtifactSettings.OutputBucket,
			OutputName:    resp.ArtifactSettings.OutputName,
			IsArchive:     resp.ArtifactSettings.IsArchive,
			FilterInclude: resp.ArtifactSettings.FilterInclude,
			FilterExclude: resp.ArtifactSettings.FilterExclude,
		}
	}
	return msg, nil
}

type getJobSignalRequest struct {
	JobID string `json:"job_id"`
}

type getJobSignalResponse struct {
	Signal   string `json:"signal"`
	RunInSec int64  `json:"run_in_seconds"`
}

func (c *Client) GetJobSignal(jobID string) (ulta.Signal, error) {
	var resp getJobSignalResponse
	err := c.call(context.Background(), "/ulta.ControlPlane/GetJobSignal", &getJobSignalRequest{JobID: jobID}, &resp)
	if err != nil {
		return ulta.Signal{}, err
	}
	return ulta.Signal{Name: resp.Signal, RunIn: time.Duration(resp.RunInSec) * time.Second}, nil
}

type claimJobStatusRequest struct {
	JobID     string `json:"job_id"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	ErrorType string `json:"error_type,omitempty"`
}

func (c *Client) ClaimJobStatus(jobID, status, errMsg, errType string) error {
	return c.call(context.Background(), "/ulta.ControlPlane/ClaimJobStatus",
		&claimJobStatusRequest{JobID: jobID, Status: status, Error: errMsg, ErrorType: errType}, &struct{}{})
}

type downloadTransientAmmoRequest struct {
	JobID    string `json:"job_id"`
	AmmoName string `json:"ammo_name"`
}

type downloadTransientAmmoResponse struct {
	ContentBase64 string `json:"content_base64"`
}

func (c *Client) DownloadTransientAmmo(jobID, ammoName, localPath string) error {
	var resp downloadTransientAmmoResponse
	err := c.call(context.Background(), "/ulta.ControlPlane/DownloadTransientAmmo",
		&downloadTransientAmmoRequest{JobID: jobID, AmmoName: ammoName}, &resp)
	if err != nil {
		return err
	}
	content, err := base64.StdEncoding.DecodeString(resp.ContentBase64)
	if err != nil {
		return errors.Wrap(err, "decode transient ammo payload")
	}
	if err := os.WriteFile(localPath, content, 0o644); err != nil {
		return errors.Wrapf(err, "write transient ammo to %s", localPath)
	}
	return nil
}

// --- statusreport.Client ---

type claimTankStatusRequest struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (c *Client) ClaimTankStatus(status, message string) error {
	return c.call(context.Background(), "/ulta.ControlPlane/ClaimTankStatus",
		&claimTankStatusRequest{Status: status, Message: message}, &struct{}{})
}

// --- tank.UploaderClient ---

type trailWire struct {
	Aggregate any `json:"aggregate"`
	Stats     any `json:"stats"`
}

func (c *Client) PrepareTestData(dataItem, statItem any) any {
	return trailWire{Aggregate: dataItem, Stats: statItem}
}

func (c *Client) PrepareMonitoringData(dataItem any) any {
	return dataItem
}

type sendTrailsRequest struct {
	JobID  string `json:"job_id"`
	Trails []any  `json:"trails"`
}

func (c *Client) SendTrails(jobID string, trails []any) error {
	return c.call(context.Background(), "/ulta.ControlPlane/SendTrails",
		&sendTrailsRequest{JobID: jobID, Trails: trails}, &struct{}{})
}

type sendMonitoringsRequest struct {
	JobID string `json:"job_id"`
	Data  []any  `json:"data"`
}

func (c *Client) SendMonitorings(jobID string, data []any) error {
	return c.call(context.Background(), "/ulta.ControlPlane/SendMonitorings",
		&sendMonitoringsRequest{JobID: jobID, Data: data}, &struct{}{})
}

type setImbalanceRequest struct {
	JobID     string    `json:"job_id"`
	RPS       float64   `json:"rps"`
	Timestamp time.Time `json:"timestamp"`
	Comment   string    `json:"comment"`
}

func (c *Client) SetImbalanceAndDSC(jobID string, rps float64, timestamp time.Time, comment string) error {
	return c.call(context.Background(), "/ulta.ControlPlane/SetImbalanceAndDSC",
		&setImbalanceRequest{JobID: jobID, RPS: rps, Timestamp: timestamp, Comment: comment}, &struct{}{})
}

// --- logging.Sender ---

type logMessageWire struct {
	Message   string            `json:"message"`
	Labels    map[string]string `json:"labels,omitempty"`
	Level     string            `json:"level"`
	CreatedAt time.Time         `json:"created_at"`
}

type reportEventLogsRequest struct {
	IdempotencyKey string           `json:"idempotency_key"`
	LogGroupID     string           `json:"log_group_id"`
	ResourceType   string           `json:"resource_type"`
	ResourceID     string           `json:"resource_id"`
	Messages       []logMessageWire `json:"messages"`
}

var severityNames = map[logging.Severity]string{
	logging.SeverityDebug:   "DEBUG",
	logging.SeverityInfo:    "INFO",
	logging.SeverityWarning: "WARNING",
	logging.SeverityError:   "ERROR",
	logging.SeverityFatal:   "FATAL",
}

func (c *Client) SendLog(logGroupID string, messages []logging.Message, resourceType, resourceID string) error {
	wire := make([]logMessageWire, 0, len(messages))
	for _, m := range messages {
		level, ok := severityNames[m.Level]
		if !ok {
			level = "INFO"
		}
		wire = append(wire, logMessageWire{
			Message:   m.Message,
			Labels:    m.Labels,
			Level:     level,
			CreatedAt: m.CreatedAt,
		})
	}
	req := &reportEventLogsRequest{
		IdempotencyKey: uuid.New().String(),
		LogGroupID:     logGroupID,
		ResourceType:   resourceType,
		ResourceID:     resourceID,
		Messages:       wire,
	}
	return c.call(context.Background(), "/ulta.ControlPlane/ReportEventLogs", req, &struct{}{})
}
