package tank

import (
	"os"
	"path/filepath"

	"github.com/ulta-agent/ulta/model"
	"gopkg.in/yaml.v3"
)

const (
	corePluginSection    = "core"
	phantomPluginSection = "phantom"
)

// applyConfigPatches mutates a job's config in place so it runs against
// this agent's own filesystem layout: artifacts and the lock file land
// under directories the agent manages, the phantom stpd cache is shared
// across jobs unless the job already picked one, and any uploader plugin
// pointed back at this agent's own data-uploader endpoint is disabled so
// the generator doesn't try to report through itself.
func applyConfigPatches(job *model.Job, artifactDirPath, lockDir, phantomCacheDir, ownDataUploaderAddress string) {
	if job.Config == nil {
		job.Config = map[string]model.PluginSection{}
	}

	core := job.Config[corePluginSection]
	if core == nil {
		core = model.PluginSection{}
	}
	core["artifacts_base_dir"] = artifactDirPath
	core["lock_dir"] = lockDir
	job.Config[corePluginSection] = core

	if phantom, ok := job.Config[phantomPluginSection]; ok {
		if _, hasCacheDir := phantom["cache_dir"]; !hasCacheDir {
			phantom["cache_dir"] = phantomCacheDir
			job.Config[phantomPluginSection] = phantom
		}
	}

	disableDataUploaders(job, ownDataUploaderAddress)
}

// disableDataUploaders turns off every enabled uploader plugin section
// whose api_address points back at this agent, so the generator never
// loops data through the same control plane client that's already
// draining its queues via the background uploaders.
func disableDataUploaders(job *model.Job, ownDataUploaderAddress string) {
	if ownDataUploaderAddress == "" {
		return
	}
	for name, section := range job.Config {
		if section.Package() != string(model.JobPluginUploader) || !section.Enabled() {
			continue
		}
		addr, _ := section["api_address"].(string)
		if addr == ownDataUploaderAddress {
			section["enabled"] = false
			job.Config[name] = section
		}
	}
}

// dumpJobConfig writes the job's tank config as YAML to testsDir/config,
// the path the generator subprocess is pointed at when it's started.
func dumpJobConfig(job *model.Job, testsDir string) error {
	path := filepath.Join(testsDir, "config")
	data, err := yaml.Marshal(job.Config)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
