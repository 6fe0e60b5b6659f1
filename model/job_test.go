package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func phantomConfig() map[string]PluginSection {
	return map[string]PluginSection{
		"phantom": {"package": string(JobPluginPhantom), "enabled": true},
	}
}

func TestJob_GeneratorPrefersPandoraOverPhantom(t *testing.T) {
	j := NewJob("job-1")
	j.Config = map[string]PluginSection{
		"phantom": {"package": string(JobPluginPhantom), "enabled": true},
		"pandora": {"package": string(JobPluginPandora), "enabled": true},
	}
	assert.Equal(t, GeneratorPandora, j.Generator())
}

func TestJob_GeneratorUnknownWhenNoPluginEnabled(t *testing.T) {
	j := NewJob("job-1")
	j.Config = map[string]PluginSection{
		"phantom": {"package": string(JobPluginPhantom), "enabled": false},
	}
	assert.Equal(t, GeneratorUnknown, j.Generator())
}

func TestJob_GeneratorIgnoresDisabledSections(t *testing.T) {
	j := NewJob("job-1")
	j.Config = map[string]PluginSection{
		"jmeter": {"package": string(JobPluginJMeter), "enabled": false},
	}
	assert.False(t, j.PluginEnabled(JobPluginJMeter))
}

func TestJob_FinishedAndResult(t *testing.T) {
	j := NewJob("job-1")
	j.Config = phantomConfig()
	assert.False(t, j.Finished())

	j.UpdateStatus(NewJobStatusFromRawExitCode(StatusStopped, "", "", ""))
	assert.True(t, j.Finished())
	assert.Equal(t, JobResult{Status: StatusStopped, ExitCode: 0}, j.Result())
}
