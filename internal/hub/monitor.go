package hub

import (
	"time"

	"parley/internal/model"
)

// MonitorService provides methods to gather hub statistics
type MonitorService struct {
	hub *Hub
}

// NewMonitorService creates a new monitor service
func NewMonitorService(hub *Hub) *MonitorService {
	return &MonitorService{hub: hub}
}

// GetStats gathers and returns all hub statistics
func (ms *MonitorService) GetStats() model.MonitorResponse {
	groups := ms.getGroups()

	total := 0
	for _, g := range groups {
		total += g.Connections
	}

	// Determine overall health status
	status := "healthy"
	if total == 0 {
		status = "idle"
	}

	return model.MonitorResponse{
		Status: status,
		Connections: model.ConnectionStats{
			TotalConnected: total,
			TotalUsers:     len(groups),
		},
		Groups:     groups,
		UptimeSecs: int64(time.Since(ms.hub.startedAt).Seconds()),
	}
}

// getGroups walks all shards and reports every user's connection group.
func (ms *MonitorService) getGroups() []model.GroupInfo {
	groups := make([]model.GroupInfo, 0)

	for _, bucket := range ms.hub.shards {
		bucket.RLock()
		for userID, group := range bucket.groups {
			groups = append(groups, model.GroupInfo{
				UserID:      userID,
				Connections: len(group),
			})
		}
		bucket.RUnlock()
	}

	return groups
}
