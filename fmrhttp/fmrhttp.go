/*Package fmrhttp exposes a small read-mostly introspection and debug HTTP
surface over a carbon.Device: the modules each side has resolved, each
Client's state-machine state, the static module routing table, and a
debug invoke endpoint. It is an optional observability layer - a
carbon.Device has no dependency on it, and nothing here is on the hot
path of a real FMR call.
*/
package fmrhttp

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"gopkg.in/yaml.v2"

	"goji.io"
	"goji.io/pat"

	"github.com/nicholastmosher/flipper/carbon"
	"github.com/nicholastmosher/flipper/client"
	"github.com/nicholastmosher/flipper/lf"
)

// Server wraps a carbon.Device in a goji.Mux, logging through a
// package-level or injected *log.Logger the way the rest of this module's
// ambient stack does.
type Server struct {
	Device *carbon.Device
	Logger *log.Logger
	mux    *goji.Mux
}

// NewServer builds a Server ready to be used as an http.Handler.
func NewServer(dev *carbon.Device, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{Device: dev, Logger: logger}
	s.mux = goji.NewMux()
	s.mux.HandleFunc(pat.Get("/modules"), s.handleModules)
	s.mux.HandleFunc(pat.Get("/state"), s.handleState)
	s.mux.HandleFunc(pat.Get("/routing"), s.handleRouting)
	s.mux.Handle(pat.New("/debug/*"), s.debugRouter())
	return s
}

// ServeHTTP makes Server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

type modulesResponse struct {
	Atmegau2 []string `json:"atmegau2"`
	Atsam4s  []string `json:"atsam4s"`
}

func (s *Server) handleModules(w http.ResponseWriter, r *http.Request) {
	resp := modulesResponse{
		Atmegau2: s.Device.Atmegau2().Modules(),
		Atsam4s:  s.Device.Atsam4s().Modules(),
	}
	s.writeJSON(w, resp)
}

type stateResponse struct {
	Atmegau2 string `json:"atmegau2"`
	Atsam4s  string `json:"atsam4s"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	resp := stateResponse{
		Atmegau2: s.Device.Atmegau2().State().String(),
		Atsam4s:  s.Device.Atsam4s().State().String(),
	}
	s.writeJSON(w, resp)
}

func (s *Server) handleRouting(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/x-yaml")
	if err := yaml.NewEncoder(w).Encode(s.Device.ATMEGAModules()); err != nil {
		s.Logger.Printf("fmrhttp: error encoding routing table: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// debugRouter builds the chi.Router mounted at /debug, one route per debug
// operation, the way generichttp/motion mounts one router per axis.
func (s *Server) debugRouter() chi.Router {
	r := chi.NewRouter()
	r.Post("/debug/{module}/{function}", s.handleDebugInvoke)
	return r
}

type debugInvokeRequest struct {
	Ret  string   `json:"ret"`
	Args []uint64 `json:"args"`
}

type debugInvokeResponse struct {
	Value uint64 `json:"value"`
}

// handleDebugInvoke issues a raw invoke against the named module/function
// with every argument tagged uint32, for ad-hoc poking at a device from a
// shell. Real callers should use the client package directly.
func (s *Server) handleDebugInvoke(w http.ResponseWriter, r *http.Request) {
	module := chi.URLParam(r, "module")
	fnStr := chi.URLParam(r, "function")
	fn, err := strconv.ParseUint(fnStr, 10, 8)
	if err != nil {
		http.Error(w, "function must be a small unsigned integer", http.StatusBadRequest)
		return
	}

	var req debugInvokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	args := lf.NewArgs()
	for _, a := range req.Args {
		args = args.AppendUint32(uint32(a))
	}

	value, err := s.Device.Invoke(module, uint8(fn), lf.Uint64, args)
	if err != nil {
		if _, ok := err.(*client.InvocationError); ok {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		s.Logger.Printf("fmrhttp: debug invoke %s.%d failed: %v", module, fn, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, debugInvokeResponse{Value: value})
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Printf("fmrhttp: error encoding response: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
