package engine

import "swapmesh/core/state"

// HealthStatus is the health.read response.
type HealthStatus struct {
	Status        string          `json:"status"`
	PausedModules map[string]bool `json:"paused_modules"`
	Intents       int             `json:"intents"`
	Proposals     int             `json:"proposals"`
}

// HealthRead implements health.read. It never mutates state, but the
// manifest still gates which actor types may call it.
func (e *Engine) HealthRead(caller Caller) (HealthStatus, error) {
	if err := e.Manifest.Authorize("health.read", caller.Actor, caller.GrantedScopes, caller.Delegation); err != nil {
		return HealthStatus{}, err
	}
	status := HealthStatus{Status: "ok"}
	e.Store.View(func(snap *state.Snapshot) {
		status.PausedModules = snap.PausedModules
		status.Intents = len(snap.Intents)
		status.Proposals = len(snap.Proposals)
		for _, paused := range snap.PausedModules {
			if paused {
				status.Status = "degraded"
				break
			}
		}
	})
	return status, nil
}
