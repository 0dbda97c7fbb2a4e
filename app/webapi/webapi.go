// Package webapi provides the http api of the classification dashboard: single message checks,
// batch checks, session history and the remote prediction endpoint.
package webapi

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/didip/tollbooth/v8"
	"github.com/didip/tollbooth/v8/limiter"
	cache "github.com/go-pkgz/expirable-cache/v3"
	log "github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/routegroup"

	"github.com/umputun/spamdash/lib/batch"
	"github.com/umputun/spamdash/lib/gateway"
	"github.com/umputun/spamdash/lib/history"
	"github.com/umputun/spamdash/lib/msgcheck"
)

// Server is a web API server.
type Server struct {
	Config
	sessions cache.Cache[string, *history.Store]
}

// DetectionFunc is called for every successful single message check
type DetectionFunc func(backend, msg string, res msgcheck.Result)

// NewServer creates a new web API server.
func NewServer(config Config) *Server {
	config = config.withDefaults()
	sessions := cache.NewCache[string, *history.Store]().WithTTL(config.SessionTTL).WithMaxKeys(config.MaxSessions).WithLRU()
	return &Server{Config: config, sessions: sessions}
}

// Run starts server and accepts requests checking messages.
func (s *Server) Run(ctx context.Context) error {
	if s.AuthPasswd != "" {
		log.Printf("[INFO] basic auth enabled for webapi server")
	} else {
		log.Printf("[WARN] basic auth disabled, access to webapi is not protected")
	}

	srv := &http.Server{Addr: s.ListenAddr, Handler: s.router(), ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout: 30 * time.Second, WriteTimeout: s.WriteTimeout, IdleTimeout: 60 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] failed to shutdown webapi server: %v", err)
		} else {
			log.Printf("[INFO] webapi server stopped")
		}
	}()

	log.Printf("[INFO] start webapi server on %s, backends: %v", s.ListenAddr, s.backendNames())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to run server: %w", err)
	}
	return nil
}

// router makes the handler with all middlewares and routes
func (s *Server) router() http.Handler {
	lmt := tollbooth.NewLimiter(s.RateLimit, nil)
	lmt.SetIPLookup(limiter.IPLookup{Name: "RemoteAddr", IndexFromRight: 0})

	router := routegroup.New(http.NewServeMux())
	router.Use(rest.Recoverer(log.Default()))
	router.Use(rest.RealIP)
	router.Use(rest.Throttle(1000))
	router.Use(rest.AppInfo("spamdash", "umputun", s.Version))
	router.Use(rest.Ping)
	router.Use(tollbooth.HTTPMiddleware(lmt))
	router.Use(rest.SizeLimit(s.MaxBodySize))

	s.routes(router)
	return router
}

func (s *Server) routes(router *routegroup.Bundle) *routegroup.Bundle {
	// prediction contract for other instances, no session
	router.Group().Route(func(api *routegroup.Bundle) {
		api.Use(s.authMiddleware(rest.BasicAuthWithUserPasswd(s.AuthUser, s.AuthPasswd)))
		api.HandleFunc("POST /predict", s.predictHandler)
	})

	// dashboard api, session based
	router.Group().Route(func(dash *routegroup.Bundle) {
		dash.Use(s.authMiddleware(rest.BasicAuthWithPrompt(s.AuthUser, s.AuthPasswd)))
		dash.HandleFunc("POST /check", s.checkHandler)          // check a single message
		dash.HandleFunc("POST /batch", s.batchHandler)          // check messages from body or uploaded file
		dash.HandleFunc("GET /history", s.historyHandler)       // session history, optionally filtered by label
		dash.HandleFunc("GET /history/export", s.exportHandler) // session history as csv
		dash.HandleFunc("DELETE /history", s.resetHandler)      // clear session history
		dash.HandleFunc("GET /backends", s.backendsHandler)     // available backends
		dash.HandleFunc("GET /config", s.configHandler)         // non-secret runtime settings
	})
	return router
}

type checkRequest struct {
	Message string `json:"message"`
	Backend string `json:"backend,omitempty"`
}

// predictHandler handles POST /predict request.
// It gets {"message": "..."} and returns {"prediction": "...", "probabilities": {...}} from the default backend.
func (s *Server) predictHandler(w http.ResponseWriter, r *http.Request) {
	req := checkRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		rest.RenderJSON(w, rest.JSON{"error": "can't decode request", "details": err.Error()})
		log.Printf("[WARN] can't decode request: %v", err)
		return
	}

	gw, ok := s.Gateways[s.DefaultBackend]
	if !ok {
		w.WriteHeader(http.StatusServiceUnavailable)
		rest.RenderJSON(w, rest.JSON{"error": "no backend available", "kind": msgcheck.KindModel})
		return
	}
	res, err := gw.Infer(r.Context(), req.Message)
	if err != nil {
		s.renderError(w, err)
		return
	}
	rest.RenderJSON(w, res)
}

// checkHandler handles POST /check request.
// It classifies the message with the requested or default backend and appends the result to the session history.
func (s *Server) checkHandler(w http.ResponseWriter, r *http.Request) {
	req := checkRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		rest.RenderJSON(w, rest.JSON{"error": "can't decode request", "details": err.Error()})
		log.Printf("[WARN] can't decode request: %v", err)
		return
	}

	name, gw, ok := s.gateway(req.Backend)
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		rest.RenderJSON(w, rest.JSON{"error": "unknown backend", "backend": req.Backend, "available": s.backendNames()})
		return
	}

	res, err := gw.Infer(r.Context(), req.Message)
	if err != nil {
		s.renderError(w, err)
		return
	}

	s.session(w, r).Append(history.Entry{Message: req.Message, Prediction: res.Label, Backend: name})
	if s.OnDetect != nil {
		s.OnDetect(name, req.Message, res)
	}
	rest.RenderJSON(w, rest.JSON{"prediction": res.Label, "probabilities": res.Probabilities, "backend": name})
}

type batchItem struct {
	Message       string                  `json:"message"`
	Prediction    msgcheck.Label          `json:"prediction,omitempty"`
	Probabilities *msgcheck.Probabilities `json:"probabilities,omitempty"`
	Error         string                  `json:"error,omitempty"`
	ErrorKind     msgcheck.ErrKind        `json:"error_kind,omitempty"`
}

// batchHandler handles POST /batch request.
// Messages are read from multipart "file" field or from the raw body, one per line.
// With ?format=csv the report is returned as csv attachment.
func (s *Server) batchHandler(w http.ResponseWriter, r *http.Request) {
	name, gw, ok := s.gateway(r.URL.Query().Get("backend"))
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		rest.RenderJSON(w, rest.JSON{"error": "unknown backend", "available": s.backendNames()})
		return
	}

	var src io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			rest.RenderJSON(w, rest.JSON{"error": "can't get uploaded file", "details": err.Error()})
			return
		}
		defer file.Close()
		src = file
	}

	msgs, err := batch.ReadMessages(src)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		rest.RenderJSON(w, rest.JSON{"error": "can't read messages", "details": err.Error()})
		return
	}
	if s.MaxBatch > 0 && len(msgs) > s.MaxBatch {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		rest.RenderJSON(w, rest.JSON{"error": fmt.Sprintf("too many messages, %d > %d", len(msgs), s.MaxBatch)})
		return
	}

	rep, err := batch.NewRunner(gw).Run(r.Context(), msgs)
	if errors.Is(err, msgcheck.ErrEmptyBatch) {
		w.WriteHeader(http.StatusBadRequest)
		rest.RenderJSON(w, rest.JSON{"error": err.Error()})
		return
	}
	if err != nil {
		s.renderError(w, err)
		return
	}
	log.Printf("[INFO] batch of %d checked with %s, spam: %d, ham: %d, errors: %d",
		rep.Summary.Total, name, rep.Summary.Spam, rep.Summary.Ham, rep.Summary.Errors)

	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="batch_results.csv"`)
		if err := batch.WriteCSV(w, rep); err != nil {
			log.Printf("[WARN] can't write batch csv: %v", err)
		}
		return
	}

	items := make([]batchItem, 0, len(rep.Items))
	for _, it := range rep.Items {
		bi := batchItem{Message: it.Message}
		if it.OK() {
			probs := it.Result.Probabilities
			bi.Prediction, bi.Probabilities = it.Result.Label, &probs
		} else {
			bi.Error, bi.ErrorKind = it.Err.Error(), it.Kind()
		}
		items = append(items, bi)
	}
	rest.RenderJSON(w, rest.JSON{
		"backend": name,
		"items":   items,
		"summary": rep.Summary,
		"percent": rest.JSON{
			"spam":   rep.Summary.SpamPercent(),
			"ham":    rep.Summary.HamPercent(),
			"errors": rep.Summary.ErrorPercent(),
		},
	})
}

// historyHandler handles GET /history request, optional ?label=SPAM|HAM filter
func (s *Server) historyHandler(w http.ResponseWriter, r *http.Request) {
	label, ok := s.labelParam(w, r)
	if !ok {
		return
	}
	hist := s.session(w, r)
	rest.RenderJSON(w, rest.JSON{"entries": hist.Filter(label), "counts": hist.Counts()})
}

// exportHandler handles GET /history/export request, returns csv with Message,Prediction columns
func (s *Server) exportHandler(w http.ResponseWriter, r *http.Request) {
	label, ok := s.labelParam(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="history.csv"`)
	if err := s.session(w, r).WriteCSV(w, label); err != nil {
		log.Printf("[WARN] can't write history csv: %v", err)
	}
}

// resetHandler handles DELETE /history request
func (s *Server) resetHandler(w http.ResponseWriter, r *http.Request) {
	hist := s.session(w, r)
	count := hist.Len()
	hist.Reset()
	rest.RenderJSON(w, rest.JSON{"deleted": count})
}

// backendsHandler handles GET /backends request
func (s *Server) backendsHandler(w http.ResponseWriter, _ *http.Request) {
	rest.RenderJSON(w, rest.JSON{"backends": s.backendNames(), "default": s.DefaultBackend})
}

// labelParam parses optional label query parameter, renders error if invalid
func (s *Server) labelParam(w http.ResponseWriter, r *http.Request) (msgcheck.Label, bool) {
	val := r.URL.Query().Get("label")
	if val == "" {
		return "", true
	}
	label, err := msgcheck.ParseLabel(val)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		rest.RenderJSON(w, rest.JSON{"error": "invalid label", "details": err.Error()})
		return "", false
	}
	return label, true
}

// gateway returns backend by name, default one for empty name
func (s *Server) gateway(name string) (string, gateway.Gateway, bool) {
	if name == "" {
		name = s.DefaultBackend
	}
	gw, ok := s.Gateways[name]
	return name, gw, ok
}

func (s *Server) backendNames() []string {
	res := make([]string, 0, len(s.Gateways))
	for name := range s.Gateways {
		res = append(res, name)
	}
	sort.Strings(res)
	return res
}

// renderError maps classification errors to http status codes
func (s *Server) renderError(w http.ResponseWriter, err error) {
	kind := msgcheck.Kind(err)
	status := http.StatusInternalServerError
	resp := rest.JSON{"error": err.Error(), "kind": kind}
	switch kind {
	case msgcheck.KindValidation:
		status = http.StatusBadRequest
	case msgcheck.KindModel:
		status = http.StatusServiceUnavailable
	case msgcheck.KindRemote:
		status = http.StatusBadGateway
		var remoteErr *msgcheck.RemoteError
		if errors.As(err, &remoteErr) {
			resp["status"] = remoteErr.Status
		}
	case msgcheck.KindConnectivity:
		status = http.StatusGatewayTimeout
	case msgcheck.KindCanceled:
		status = http.StatusServiceUnavailable
	}
	if status >= 500 {
		log.Printf("[WARN] request failed, %s: %v", kind, err)
	}
	w.WriteHeader(status)
	rest.RenderJSON(w, resp)
}

func (s *Server) authMiddleware(mw func(next http.Handler) http.Handler) func(next http.Handler) http.Handler {
	if s.AuthPasswd == "" {
		return func(next http.Handler) http.Handler {
			return next
		}
	}
	return mw
}

// GenerateRandomPassword generates a random password of a given length
func GenerateRandomPassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	var password strings.Builder
	charsetSize := big.NewInt(int64(len(charset)))
	for range length {
		n, err := rand.Int(rand.Reader, charsetSize)
		if err != nil {
			return "", err
		}
		password.WriteByte(charset[n.Int64()])
	}
	return password.String(), nil
}
