package grpc

import "github.com/ulta-agent/ulta/logging"

// PlainLogAdapter satisfies artifact.LogClient by wrapping the same
// control-plane connection Client uses for logging.Sender. The two
// interfaces both name their single method SendLog but disagree on the
// message type ([]logging.Message vs plain []string), so Client itself
// cannot implement both; this type exists only to bridge that gap.
type PlainLogAdapter struct {
	client *Client
}

// NewPlainLogAdapter wraps client for artifact's plain-text log uploads.
func NewPlainLogAdapter(client *Client) *PlainLogAdapter {
	return &PlainLogAdapter{client: client}
}

func (a *PlainLogAdapter) SendLog(logGroupID string, messages []string, resourceType, resourceID string) error {
	wrapped := make([]logging.Message, 0, len(messages))
	for _, line := range messages {
		wrapped = append(wrapped, logging.Message{Message: line, Level: logging.SeverityInfo})
	}
	return a.client.SendLog(logGroupID, wrapped, resourceType, resourceID)
}
