package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"
	"github.com/jellydator/ttlcache/v3"

	"github.com/carverauto/piponger/pkg/coordinator"
	"github.com/carverauto/piponger/pkg/db"
	"github.com/carverauto/piponger/pkg/models"
)

// IndexResponse describes the node and, on a master, its iterations.
type IndexResponse struct {
	Roles  models.Roles        `json:"roles"`
	Master *coordinator.Status `json:"master,omitempty"`
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	resp := IndexResponse{Roles: s.roles}

	if s.roles.Master && s.coordinator != nil {
		status, err := s.coordinator.Status(r.Context())
		if err != nil {
			log.Error("building master status failed", "error", err)
			writeFailure(w, http.StatusInternalServerError, err.Error())

			return
		}

		resp.Master = status
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) registerNode(role models.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.RegisterRequest
		if !decode(w, r, &req) {
			return
		}

		node, err := s.registrar.Register(r.Context(), role, callerIP(r), req.APIPort, req.APIProtocol)
		if err != nil {
			log.Warn("registration rejected", "role", role, "remote", r.RemoteAddr, "error", err)
			writeFailure(w, http.StatusOK, err.Error())

			return
		}

		writeSuccess(w, fmt.Sprintf("registered %s %s:%d", role, node.Address, node.APIPort))
	}
}

func (s *Server) reportResult(w http.ResponseWriter, r *http.Request) {
	var req models.ReportRequest
	if !decode(w, r, &req) {
		return
	}

	err := s.coordinator.ReportResult(r.Context(), req.MasterRemoteID, callerIP(r), req.LocalPort, req.Result)
	if err != nil {
		log.Warn("result report rejected", "iteration", req.MasterRemoteID, "remote", r.RemoteAddr, "error", err)
		writeFailure(w, http.StatusOK, err.Error())

		return
	}

	writeSuccess(w, "")
}

func (s *Server) forceCreateIteration(w http.ResponseWriter, r *http.Request) {
	it, err := s.coordinator.CreateIteration(r.Context())
	if err != nil {
		writeFailure(w, http.StatusOK, err.Error())

		return
	}

	log.Info("iteration created on request", "iteration", it.ID, "remote", r.RemoteAddr)
	writeSuccess(w, fmt.Sprintf("created iteration %d", it.ID))
}

const (
	formatJSON = "json"
	formatDOT  = "dot"
)

func (s *Server) resultPlot(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid iteration id")

		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = formatJSON
	}

	if format != formatJSON && format != formatDOT {
		writeFailure(w, http.StatusBadRequest, "unknown format "+strconv.Quote(format))

		return
	}

	body, err := s.renderGraph(r, id, format)

	switch {
	case errors.Is(err, db.ErrNotFound), errors.Is(err, coordinator.ErrNoGraph):
		writeFailure(w, http.StatusNotFound, err.Error())

		return
	case err != nil:
		log.Error("rendering graph failed", "iteration", id, "error", err)
		writeFailure(w, http.StatusInternalServerError, err.Error())

		return
	}

	if format == formatDOT {
		w.Header().Set("Content-Type", "text/vnd.graphviz")
	} else {
		w.Header().Set("Content-Type", "application/json")
	}

	_, _ = w.Write([]byte(body))
}

func (s *Server) renderGraph(r *http.Request, id int64, format string) (string, error) {
	key := fmt.Sprintf("%d/%s", id, format)

	if item := s.graphs.Get(key); item != nil {
		return item.Value(), nil
	}

	g, flagged, err := s.coordinator.Graph(r.Context(), id)
	if err != nil {
		return "", err
	}

	var body string

	if format == formatDOT {
		body = g.DOT(fmt.Sprintf("iteration_%d", id), flagged)
	} else if body, err = g.JSON(); err != nil {
		return "", err
	}

	s.graphs.Set(key, body, ttlcache.DefaultTTL)

	return body, nil
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request) {
	var req models.StartSessionRequest
	if !decode(w, r, &req) {
		return
	}

	it, err := s.pinger.StartSession(r.Context(), &req, callerIP(r))
	if err != nil {
		log.Warn("session rejected", "session", req.MasterIterationID, "remote", r.RemoteAddr, "error", err)
		writeJSON(w, http.StatusOK, models.StartSessionResponse{Result: models.ResultFailure, Msg: err.Error()})

		return
	}

	writeJSON(w, http.StatusOK, models.StartSessionResponse{Result: models.ResultSuccess, PingIterationID: it.ID})
}

func (s *Server) iperfServer(w http.ResponseWriter, r *http.Request) {
	port, err := s.ponger.RequestServer(r.Context(), callerIP(r))
	if err != nil {
		log.Warn("measurement server request failed", "remote", r.RemoteAddr, "error", err)
		writeJSON(w, http.StatusOK, models.ServerResponse{Result: models.ResultFailure, Msg: err.Error()})

		return
	}

	writeJSON(w, http.StatusOK, models.ServerResponse{Result: models.ResultSuccess, Port: port})
}
