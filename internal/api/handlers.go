package api

import (
	"encoding/json"
	"net/http"

	"github.com/voltix/agent/internal/config"
	"github.com/voltix/agent/internal/events"
)

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	trust := s.pipeline.Status()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":             "ok",
		"version":            config.Version,
		"adapter":            s.driver.AdapterName(),
		"trust_mode":         trust.Mode,
		"verification_count": trust.TotalVerifications,
		"blocked_count":      trust.TotalBlocked,
		"demo_mode":          s.cfg.DemoMode,
	})
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.diag.Collect())
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	all := s.alerts.GetAll()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"alerts": all,
		"count":  len(all),
	})
}

func (s *Server) handleAdapter(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"adapter": s.driver.AdapterName(),
		"state":   s.driver.State(),
	})
}

func (s *Server) handleIntentLogs(w http.ResponseWriter, r *http.Request) {
	logs := s.pipeline.Audit().Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"logs":  logs,
		"count": len(logs),
	})
}

func (s *Server) handleTrustStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.pipeline.Status())
}

func (s *Server) handleAutoHeal(w http.ResponseWriter, r *http.Request) {
	rep := s.healer.AutoHeal(s.driver)
	s.bus.Emit(events.TypeHeal, "healer", map[string]interface{}{
		"state":  string(rep.State),
		"action": rep.Action,
		"fixed":  rep.Fixed,
	})
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleFlushDNS(w http.ResponseWriter, r *http.Request) {
	ok, out := s.driver.FlushDNS()
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": ok, "output": out})
}

func (s *Server) handleEnableWiFi(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.driver.EnableWiFi())
}

func (s *Server) handleRestartNetwork(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.driver.RestartNetwork())
}

func (s *Server) handleAlertsClear(w http.ResponseWriter, r *http.Request) {
	s.alerts.Clear()
	writeJSON(w, http.StatusOK, map[string]bool{"cleared": true})
}

func (s *Server) handleIntentLogsClear(w http.ResponseWriter, r *http.Request) {
	s.pipeline.Audit().Clear()
	writeJSON(w, http.StatusOK, map[string]bool{"cleared": true})
}

func (s *Server) handleSimulateFailure(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.simulator.SimulateWiFiFailure())
}

func (s *Server) handleUnsafeAction(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusForbidden, s.simulator.UnsafeActionAttempt())
}
