// Package model holds the shared data types passed between the agent's
// components: agent identity, job records and status, and artifact
// upload settings. It has no behavior of its own beyond small derived
// queries on those types.
package model

// AgentOrigin describes who created the agent record in the control
// plane.
type AgentOrigin int

const (
	AgentOriginUnknown AgentOrigin = iota
	AgentOriginComputeLTCreated
	AgentOriginExternal
)

func (o AgentOrigin) String() string {
	switch o {
	case AgentOriginComputeLTCreated:
		return "COMPUTE_LT_CREATED"
	case AgentOriginExternal:
		return "EXTERNAL"
	default:
		return "UNKNOWN"
	}
}

// AgentInfo is the identity record an agent holds for itself once
// registered with the control plane.
type AgentInfo struct {
	ID       string
	Name     string
	Version  string
	Origin   AgentOrigin
	FolderID string
}

// IsExternal reports whether the agent was created outside the
// load-testing control plane (a customer-managed compute node running
// the agent against their own account).
func (a AgentInfo) IsExternal() bool {
	return a.Origin == AgentOriginExternal
}

// IsAnonymousExternalAgent reports whether this is an external agent
// with no assigned name. Such agents are not persisted across restarts
// under their own identity.
func (a AgentInfo) IsAnonymousExternalAgent() bool {
	return a.IsExternal() && a.Name == ""
}

// IsPersistentExternalAgent reports whether this is an external agent
// with both a name and a folder, and therefore reusable across restarts.
func (a AgentInfo) IsPersistentExternalAgent() bool {
	return a.IsExternal() && a.Name != "" && a.FolderID != ""
}
