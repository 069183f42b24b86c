/*-
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package api serves the node's HTTP API. Every route is registered on every
// node; a route whose role the node does not run answers with a failure.
package api

import (
	"encoding/json"
	"net"
	"net/http"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"
	"github.com/jellydator/ttlcache/v3"

	"github.com/carverauto/piponger/pkg/client"
	"github.com/carverauto/piponger/pkg/config"
	httpx "github.com/carverauto/piponger/pkg/http"
	"github.com/carverauto/piponger/pkg/models"
)

const (
	PathIndex       = "/"
	PathSiteMap     = "/site-map"
	PathForceCreate = "/force_create_iteration"
	PathResultPlot  = "/get_result_plot/{id:[0-9]+}"

	defaultGraphTTL = 5 * time.Minute
	maxBodySize     = 4 << 20
)

// Server is the HTTP API of one node.
type Server struct {
	roles       models.Roles
	auth        config.AuthConfig
	coordinator Coordinator
	registrar   Registrar
	pinger      SessionStarter
	ponger      ServerProvider
	graphs      *ttlcache.Cache[string, string]
	router      *mux.Router
}

// Option wires a role's service into the server.
type Option func(*Server)

// WithMaster serves the master routes. Rendered graphs are cached for ttl.
func WithMaster(c Coordinator, r Registrar, ttl time.Duration) Option {
	return func(s *Server) {
		s.coordinator = c
		s.registrar = r

		if ttl > 0 {
			s.graphs = newGraphCache(ttl)
		}
	}
}

func WithPinger(p SessionStarter) Option {
	return func(s *Server) {
		s.pinger = p
	}
}

func WithPonger(p ServerProvider) Option {
	return func(s *Server) {
		s.ponger = p
	}
}

// NewServer builds the router for a node running roles.
func NewServer(roles models.Roles, auth config.AuthConfig, opts ...Option) *Server {
	s := &Server{
		roles:  roles,
		auth:   auth,
		router: mux.NewRouter(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.graphs == nil {
		s.graphs = newGraphCache(defaultGraphTTL)
	}

	s.setupRoutes()

	return s
}

func newGraphCache(ttl time.Duration) *ttlcache.Cache[string, string] {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, string](ttl),
		ttlcache.WithDisableTouchOnHit[string, string](),
	)

	go cache.Start()

	return cache
}

func (s *Server) setupRoutes() {
	s.router.Use(httpx.RequestLogger)
	s.router.Use(httpx.CommonMiddleware)
	s.router.Use(httpx.BasicAuth(s.auth, PathSiteMap))

	s.router.HandleFunc(PathIndex, s.index).Methods(http.MethodGet, http.MethodPost)
	s.router.HandleFunc(PathSiteMap, s.siteMap).Methods(http.MethodGet)

	// master
	s.router.HandleFunc(client.PathRegisterPinger, s.master(s.registerNode(models.RolePinger))).
		Methods(http.MethodPost)
	s.router.HandleFunc(client.PathRegisterPonger, s.master(s.registerNode(models.RolePonger))).
		Methods(http.MethodPost)
	s.router.HandleFunc(client.PathReportResult, s.master(s.reportResult)).Methods(http.MethodPost)
	s.router.HandleFunc(PathForceCreate, s.master(s.forceCreateIteration)).Methods(http.MethodGet)
	s.router.HandleFunc(PathResultPlot, s.master(s.resultPlot)).Methods(http.MethodGet)

	// pinger
	s.router.HandleFunc(client.PathStartSession, s.gate(models.RolePinger, s.startSession)).
		Methods(http.MethodPost)

	// ponger
	s.router.HandleFunc(client.PathIperfServer, s.gate(models.RolePonger, s.iperfServer)).
		Methods(http.MethodPost)
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close stops the graph cache.
func (s *Server) Close() {
	s.graphs.Stop()
}

func (s *Server) master(h http.HandlerFunc) http.HandlerFunc {
	return s.gate(models.RoleMaster, h)
}

// gate answers with a failure envelope when the node does not run role.
func (s *Server) gate(role models.Role, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.roles.Has(role) {
			log.Debug("request for a role this node does not run", "role", role, "path", r.URL.Path)
			writeFailure(w, http.StatusOK, "this node is not a "+string(role))

			return
		}

		h(w, r)
	}
}

type route struct {
	Path    string   `json:"path"`
	Methods []string `json:"methods"`
}

func (s *Server) siteMap(w http.ResponseWriter, _ *http.Request) {
	var routes []route

	_ = s.router.Walk(func(r *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		tpl, err := r.GetPathTemplate()
		if err != nil {
			return nil
		}

		methods, _ := r.GetMethods()
		routes = append(routes, route{Path: tpl, Methods: methods})

		return nil
	})

	sort.Slice(routes, func(i, j int) bool { return routes[i].Path < routes[j].Path })

	writeJSON(w, http.StatusOK, routes)
}

// callerIP is the address the request came from. Forwarding headers are
// ignored.
func callerIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(v); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid request body: "+err.Error())

		return false
	}

	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("encoding response failed", "error", err)
	}
}

func writeSuccess(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, models.Response{Result: models.ResultSuccess, Msg: msg})
}

func writeFailure(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, models.Response{Result: models.ResultFailure, Msg: msg})
}
