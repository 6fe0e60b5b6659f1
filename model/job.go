package model

// JobPluginType identifies a generator plugin package by its tank
// configuration name.
type JobPluginType string

const (
	JobPluginTelegraf      JobPluginType = "yandextank.plugins.Telegraf"
	JobPluginAutostop      JobPluginType = "yandextank.plugins.Autostop"
	JobPluginUploader      JobPluginType = "yandextank.plugins.DataUploader"
	JobPluginPhantom       JobPluginType = "yandextank.plugins.Phantom"
	JobPluginPandora       JobPluginType = "yandextank.plugins.Pandora"
	JobPluginJMeter        JobPluginType = "yandextank.plugins.JMeter"
	JobPluginResourceCheck JobPluginType = "yandextank.plugins.ResourceCheck"
)

// Generator identifies which load-generator engine a job's config
// selects.
type Generator int

const (
	GeneratorUnknown Generator = iota
	GeneratorPhantom
	GeneratorPandora
	GeneratorJMeter
)

func (g Generator) String() string {
	switch g {
	case GeneratorPhantom:
		return "PHANTOM"
	case GeneratorPandora:
		return "PANDORA"
	case GeneratorJMeter:
		return "JMETER"
	default:
		return "UNKNOWN"
	}
}

// ArtifactSettings controls where and how a job's test artifacts are
// published once the job finishes.
type ArtifactSettings struct {
	OutputBucket   string
	OutputName     string
	IsArchive      bool
	FilterInclude  []string
	FilterExclude  []string
}

// Ammo describes a single ammunition (payload) source attached to a job.
type Ammo struct {
	Name   string
	Source string
}

// PluginSection is one named entry of a job's tank config, e.g. the
// "phantom" or "autostop" block.
type PluginSection map[string]any

// Package reads the plugin section's "package" key.
func (p PluginSection) Package() string {
	v, _ := p["package"].(string)
	return v
}

// Enabled reads the plugin section's "enabled" key.
func (p PluginSection) Enabled() bool {
	v, _ := p["enabled"].(bool)
	return v
}

// Job is a single load-testing job as tracked by the agent: its
// ammunition, the tank config that drives it, where its artifacts live
// on disk, and its last known status.
type Job struct {
	ID                     string
	Ammos                  []Ammo
	LogGroupID             string
	TankJobID              string
	Config                 map[string]PluginSection
	TestDataDir            string
	UploadArtifactSettings *ArtifactSettings
	ArtifactDirPath        string
	LastStatus             JobStatus

	generator       Generator
	generatorCached bool
}

// NewJob builds a Job with its terminal status initialized to
// unspecified, mirroring a freshly claimed but not-yet-executed job.
func NewJob(id string) *Job {
	return &Job{
		ID:         id,
		LastStatus: NewJobStatusFromRawExitCode(StatusUnspecified, "", "", ""),
	}
}

// Status returns the job's last known status.
func (j *Job) Status() JobStatus {
	return j.LastStatus
}

// UpdateStatus records a new last-known status for the job.
func (j *Job) UpdateStatus(status JobStatus) {
	j.LastStatus = status
}

// Finished reports whether the job's last known status is terminal.
func (j *Job) Finished() bool {
	return j.LastStatus.Finished()
}

// Result reduces the job's last known status to a JobResult.
func (j *Job) Result() JobResult {
	return j.LastStatus.Result()
}

// PluginEnabled reports whether any section of the job's config enables
// the given plugin type.
func (j *Job) PluginEnabled(pluginType JobPluginType) bool {
	return len(j.GetPlugins(pluginType)) > 0
}

// GetPlugins returns every config section whose package matches
// pluginType and which is enabled.
func (j *Job) GetPlugins(pluginType JobPluginType) []PluginSection {
	var out []PluginSection
	for _, section := range j.Config {
		if section.Package() == string(pluginType) && section.Enabled() {
			out = append(out, section)
		}
	}
	return out
}

// Generator derives which generator engine this job uses from its
// config, preferring Pandora, then Phantom, then JMeter. The result is
// computed once and cached, matching the source data's immutability
// once a job has been claimed.
func (j *Job) Generator() Generator {
	if j.generatorCached {
		return j.generator
	}
	switch {
	case j.PluginEnabled(JobPluginPandora):
		j.generator = GeneratorPandora
	case j.PluginEnabled(JobPluginPhantom):
		j.generator = GeneratorPhantom
	case j.PluginEnabled(JobPluginJMeter):
		j.generator = GeneratorJMeter
	default:
		j.generator = GeneratorUnknown
	}
	j.generatorCached = true
	return j.generator
}
