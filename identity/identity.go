// Package identity computes an agent's origin and handles its one-time
// registration against the control plane.
package identity

import (
	"context"
	"os"
	"path/filepath"

	"github.com/Masterminds/semver/v3"
	"github.com/ulta-agent/ulta/errors"
	"github.com/ulta-agent/ulta/model"
	"go.uber.org/zap"
)

// AgentOriginError is returned when an agent cannot be identified as
// either provider-created or a usable external agent.
var AgentOriginError = errors.New("unable to identify agent id: for an external agent, folder id and a name must be provided")

// Client performs the control-plane registration calls. Implemented by
// the transport package.
type Client interface {
	RegisterAgent(ctx context.Context, computeInstanceID string) (string, error)
	RegisterExternalAgent(ctx context.Context, folderID, name string) (string, error)
}

// Config is the subset of agent configuration Register needs.
type Config struct {
	AgentName          string
	AgentVersion       string
	FolderID           string
	ComputeInstanceID  string
	InstanceLTCreated  bool
	AgentIDFile        string
	NoCache            bool
	AgentID            string // pre-seeded id, if already known
}

// MakeAgentInfo derives an AgentInfo's origin from the config, per the
// provider-created vs external agent split.
func MakeAgentInfo(cfg Config) model.AgentInfo {
	origin := model.AgentOriginExternal
	if cfg.InstanceLTCreated && cfg.ComputeInstanceID != "" {
		origin = model.AgentOriginComputeLTCreated
	}
	return model.AgentInfo{
		ID:       cfg.AgentID,
		Name:     cfg.AgentName,
		Version:  cfg.AgentVersion,
		Origin:   origin,
		FolderID: cfg.FolderID,
	}
}

// Register resolves and, where needed, calls the control plane to obtain
// the agent's id, caching it to AgentIDFile for persistent external agents.
func Register(ctx context.Context, logger *zap.SugaredLogger, cfg Config, client Client, agent model.AgentInfo) (model.AgentInfo, error) {
	if agent.ID != "" {
		return agent, nil
	}

	if cfg.AgentVersion != "" {
		if _, err := semver.NewVersion(cfg.AgentVersion); err != nil && logger != nil {
			logger.Warnw("agent version is not a valid semantic version", "version", cfg.AgentVersion)
		}
	}

	switch {
	case agent.Origin == model.AgentOriginComputeLTCreated:
		id, err := client.RegisterAgent(ctx, cfg.ComputeInstanceID)
		if err != nil {
			return agent, errors.Wrap(err, "register agent")
		}
		agent.ID = id
		if logger != nil {
			logger.Infow("the agent has been registered", "agent_id", id)
		}
		return agent, nil

	case agent.IsPersistentExternalAgent():
		if !cfg.NoCache && cfg.AgentIDFile != "" {
			if cached, ok := loadCachedID(cfg.AgentIDFile, logger); ok {
				agent.ID = cached
				if logger != nil {
					logger.Infow("loaded agent_id from file", "agent_id", cached)
				}
				return agent, nil
			}
		}
		id, err := client.RegisterExternalAgent(ctx, cfg.FolderID, agent.Name)
		if err != nil {
			return agent, errors.Wrap(err, "register external agent")
		}
		agent.ID = id
		if logger != nil {
			logger.Infow("the agent has been registered", "agent_id", id)
		}
		if !cfg.NoCache && cfg.AgentIDFile != "" {
			storeCachedID(cfg.AgentIDFile, id, logger)
		}
		return agent, nil

	case agent.IsAnonymousExternalAgent():
		return agent, nil

	default:
		return agent, AgentOriginError
	}
}

const maxCachedIDBytes = 50

func loadCachedID(path string, logger *zap.SugaredLogger) (string, bool) {
	f, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) && logger != nil {
			logger.Errorw("failed to load agent_id from file", "path", path, "error", err)
		}
		return "", false
	}
	defer f.Close()

	buf := make([]byte, maxCachedIDBytes)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		return "", false
	}
	id := string(buf[:n])
	if id == "" {
		return "", false
	}
	return id, true
}

func storeCachedID(path, id string, logger *zap.SugaredLogger) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		if logger != nil {
			logger.Errorw("failed to save agent_id to file", "path", path, "error", err)
		}
		return
	}
	if err := os.WriteFile(path, []byte(id), 0o644); err != nil {
		if logger != nil {
			logger.Errorw("failed to save agent_id to file", "path", path, "error", err)
		}
	}
}
