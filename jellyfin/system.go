package jellyfin

import "net/http"

// GET /System/Ping
func (s *Service) pingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`"Finch Server"`))
}

// GET /System/Info
func (s *Service) systemInfoHandler(w http.ResponseWriter, r *http.Request) {
	if mustUser(w, r) == nil {
		return
	}
	serveJSON(w, JFSystemInfo{
		ID:                     s.serverID,
		ServerName:             s.serverName,
		Version:                serverVersion,
		ProductName:            "Finch Server",
		OperatingSystem:        "Linux",
		StartupWizardCompleted: true,
	})
}

// GET /System/Info/Public
func (s *Service) systemInfoPublicHandler(w http.ResponseWriter, r *http.Request) {
	serveJSON(w, JFPublicSystemInfo{
		ID:                     s.serverID,
		ServerName:             s.serverName,
		Version:                serverVersion,
		ProductName:            "Finch Server",
		StartupWizardCompleted: true,
	})
}
