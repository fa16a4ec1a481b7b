package plot

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/spectra-tools/mrsbasis/internal/basis"
)

// Server serves the rendered spectrum preview and a small JSON API over
// a localhost HTTP listener.
type Server struct {
	set        *basis.Set
	opts       Options
	httpServer *http.Server
	listener   net.Listener
	mu         sync.Mutex
	addr       string
}

// NewServer creates a preview server for the given basis set.
func NewServer(set *basis.Set, opts Options) *Server {
	return &Server{set: set, opts: opts}
}

// Addr returns the address the server is listening on (e.g., "localhost:PORT").
// Returns empty string if the server hasn't started yet.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// ListenAndServe starts the HTTP server on an OS-assigned port and blocks
// until the context is cancelled. Returns nil on clean shutdown.
func (s *Server) ListenAndServe(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/spectrum.svg", s.handleSVG)
	mux.HandleFunc("/api/basis", s.handleBasis)

	// Let the OS pick a free port.
	ln, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	s.mu.Lock()
	s.listener = ln
	s.addr = ln.Addr().String()
	s.httpServer = &http.Server{Handler: mux}
	s.mu.Unlock()

	// Graceful shutdown when context is cancelled.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	err = s.httpServer.Serve(ln)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// handleIndex serves a minimal page embedding the rendered spectrum.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head><title>%s</title></head>
<body style="margin:0;font-family:sans-serif">
<img src="/spectrum.svg" style="display:block;width:100%%;max-width:1200px;margin:0 auto" alt="basis spectra">
</body>
</html>
`, escapeXML(s.opts.Title))
}

// handleSVG renders and serves the spectrum image.
func (s *Server) handleSVG(w http.ResponseWriter, r *http.Request) {
	svg, err := Render(s.set, s.opts)
	if err != nil {
		http.Error(w, "render error: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Write(svg)
}

// basisInfo is the JSON shape served by /api/basis.
type basisInfo struct {
	Names     []string `json:"names"`
	Points    int      `json:"points"`
	DwellTime float64  `json:"dwell_time"`
	CentreMHz float64  `json:"centre_mhz"`
}

// handleBasis reports the loaded basis set's shape.
func (s *Server) handleBasis(w http.ResponseWriter, r *http.Request) {
	info := basisInfo{Names: s.set.Names()}
	if s.set.Len() > 0 {
		first := s.set.Spectra[0]
		info.Points = first.Points()
		info.DwellTime = first.DwellTime
		info.CentreMHz = first.CentreMHz
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(info)
}
