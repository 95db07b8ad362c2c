package model

// MonitorResponse is the full stats payload of the monitor endpoint.
type MonitorResponse struct {
	Status      string          `json:"status"`
	Connections ConnectionStats `json:"connections"`
	Groups      []GroupInfo     `json:"groups"`
	UptimeSecs  int64           `json:"uptimeSeconds"`
}

// ConnectionStats summarizes live connections.
type ConnectionStats struct {
	TotalConnected int `json:"totalConnected"`
	TotalUsers     int `json:"totalUsers"`
}

// GroupInfo describes one user's connection group.
type GroupInfo struct {
	UserID      string `json:"userId"`
	Connections int    `json:"connections"`
}
