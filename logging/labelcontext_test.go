package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLabelContext_EnterAndRestore(t *testing.T) {
	c := NewLabelContext()
	assert.Empty(t, c.Labels())

	exit := c.EnterLabels(map[string]string{"job_id": "1"})
	assert.Equal(t, map[string]string{"job_id": "1"}, c.Labels())

	exitNested := c.EnterLabels(map[string]string{"stage": "prepare"})
	assert.Equal(t, map[string]string{"job_id": "1", "stage": "prepare"}, c.Labels())

	exitNested()
	assert.Equal(t, map[string]string{"job_id": "1"}, c.Labels())

	exit()
	assert.Empty(t, c.Labels())
}

func TestLabelContext_EnterAgent(t *testing.T) {
	c := NewLabelContext()
	defer c.EnterAgent("a1", "agent-name", "1.2.3")()
	assert.Equal(t, map[string]string{
		"agent_id": "a1", "agent_name": "agent-name", "agent_version": "1.2.3",
	}, c.Labels())
}
