package logging

import "sync"

// LabelContext tracks the labels that should be attached to every log
// record emitted while a scope is active, e.g. the current agent identity
// or job id. Scopes nest: EnterLabels returns a func that restores the
// labels as they were before the call.
type LabelContext struct {
	mu     sync.RWMutex
	labels map[string]string
}

func NewLabelContext() *LabelContext {
	return &LabelContext{labels: map[string]string{}}
}

// Labels returns a snapshot of the currently active labels.
func (c *LabelContext) Labels() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snapshot := make(map[string]string, len(c.labels))
	for k, v := range c.labels {
		snapshot[k] = v
	}
	return snapshot
}

// EnterLabels merges labels into the active scope and returns a func that
// restores the prior scope. Call the returned func (typically via defer)
// to pop the scope.
func (c *LabelContext) EnterLabels(labels map[string]string) func() {
	if len(labels) == 0 {
		return func() {}
	}

	c.mu.Lock()
	prior := c.labels
	merged := make(map[string]string, len(prior)+len(labels))
	for k, v := range prior {
		merged[k] = v
	}
	for k, v := range labels {
		merged[k] = v
	}
	c.labels = merged
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		c.labels = prior
		c.mu.Unlock()
	}
}

// EnterAgent stamps the scope with the agent's identity labels.
func (c *LabelContext) EnterAgent(agentID, agentName, agentVersion string) func() {
	return c.EnterLabels(map[string]string{
		"agent_id":      agentID,
		"agent_name":    agentName,
		"agent_version": agentVersion,
	})
}
