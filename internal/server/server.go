package server

import (
	"crypto/tls"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"

	apperrors "github.com/nowspinning/host/internal/errors"
	"github.com/nowspinning/host/internal/imagecache"
	"github.com/nowspinning/host/internal/render"
	"github.com/nowspinning/host/internal/sonos"
	"github.com/nowspinning/host/internal/web"
)

// registerAttempts bounds identifier regeneration on the (practically
// impossible) collision of two random 8-character session IDs.
const registerAttempts = 5

// Config carries the server's wiring.
type Config struct {
	// Addr is the listen address, e.g. "0.0.0.0:8080".
	Addr string

	// ExternalURL is the origin browsers use to reach this server,
	// e.g. "http://192.168.1.10:8080". It is baked into rewritten
	// artwork proxy URLs.
	ExternalURL string

	// Metadata answers speaker queries.
	Metadata sonos.Client

	// Cache is the artwork proxy cache.
	Cache *imagecache.Cache

	// Renderer renders the dashboard page and widget.
	Renderer *render.Renderer

	// Verbose enables debug logging.
	Verbose bool
}

// Server serves the dashboard page, the websocket sessions behind it, and
// the same-origin artwork proxy.
type Server struct {
	addr        string
	externalURL string

	// upgrader converts HTTP connections to WebSocket connections.
	upgrader websocket.Upgrader

	// registry tracks live sessions. Constructed here, shared with every
	// session lifecycle.
	registry *Registry

	metadata sonos.Client
	cache    *imagecache.Cache
	renderer *render.Renderer
	verbose  bool

	// mu protects stopped.
	mu      sync.Mutex
	stopped bool

	// httpServer is the underlying HTTP server for shutdown.
	httpServer *http.Server
}

// New creates a dashboard server. Call StartAsync or StartAsyncTLS to begin
// accepting connections.
func New(cfg Config) *Server {
	return &Server{
		addr:        cfg.Addr,
		externalURL: cfg.ExternalURL,
		registry:    NewRegistry(),
		metadata:    cfg.Metadata,
		cache:       cfg.Cache,
		renderer:    cfg.Renderer,
		verbose:     cfg.Verbose,
		upgrader: websocket.Upgrader{
			// The dashboard is an open LAN service; displays connect from
			// whatever origin the wall device uses.
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Registry returns the session registry.
func (s *Server) Registry() *Registry {
	return s.registry
}

// Addr returns the server's listening address.
func (s *Server) Addr() string {
	return s.addr
}

// createMux creates the HTTP mux with all endpoints.
func (s *Server) createMux() *http.ServeMux {
	mux := http.NewServeMux()

	// The dashboard page and the websocket share one path; the upgrade
	// header decides which a request gets.
	mux.HandleFunc("/", s.handleIndex)

	// Same-origin artwork proxy.
	mux.HandleFunc("/image_proxy", s.handleImageProxy)

	// Embedded static assets. The embedded FS is rooted above static/, so
	// request paths map directly.
	mux.Handle("/static/", http.FileServer(http.FS(web.Static)))

	return mux
}

// StartAsync starts the plaintext server in a goroutine and returns any
// startup errors. The returned channel receives nil if startup succeeded,
// or an error if the listener could not be created (e.g., port in use).
func (s *Server) StartAsync() <-chan error {
	errCh := make(chan error, 1)

	mux := s.createMux()

	// Create the listener first to detect port conflicts immediately.
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		errCh <- fmt.Errorf("failed to listen on %s: %w", s.addr, err)
		close(errCh)
		return errCh
	}

	s.httpServer = &http.Server{
		Handler: mux,
	}

	go func() {
		log.Printf("Server listening on http://%s", s.addr)
		errCh <- nil
		close(errCh)

		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Printf("Server error: %v", err)
		}
	}()

	return errCh
}

// TLSConfig holds the TLS configuration for the server.
type TLSConfig struct {
	// CertPath is the path to the TLS certificate file.
	CertPath string
	// KeyPath is the path to the TLS private key file.
	KeyPath string
}

// StartAsyncTLS starts the server with TLS. The certificate and key are
// supplied out of band; a missing pair is an unrecoverable startup failure.
func (s *Server) StartAsyncTLS(tlsCfg TLSConfig) <-chan error {
	errCh := make(chan error, 1)

	mux := s.createMux()

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		errCh <- fmt.Errorf("failed to listen on %s: %w", s.addr, err)
		close(errCh)
		return errCh
	}

	cert, err := tls.LoadX509KeyPair(tlsCfg.CertPath, tlsCfg.KeyPath)
	if err != nil {
		ln.Close()
		errCh <- fmt.Errorf("failed to load TLS certificate: %w", err)
		close(errCh)
		return errCh
	}

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}
	tlsLn := tls.NewListener(ln, tlsConfig)

	s.httpServer = &http.Server{
		Handler: mux,
	}

	go func() {
		log.Printf("Server listening on https://%s", s.addr)
		errCh <- nil
		close(errCh)

		if err := s.httpServer.Serve(tlsLn); err != nil && err != http.ErrServerClosed {
			log.Printf("Server error: %v", err)
		}
	}()

	return errCh
}

// Stop gracefully shuts down the server: every live session is closed and
// unregistered, then the HTTP server stops accepting connections. Safe to
// call more than once; only the first call does the work.
func (s *Server) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	s.mu.Unlock()

	s.registry.CloseAll()

	if s.httpServer != nil {
		return s.httpServer.Close()
	}
	return nil
}

// proxyImageURL rewrites an artwork URL into a same-origin proxy URL of the
// form <scheme>://<host>:<port>/image_proxy?url=<encoded-artwork-url>.
func (s *Server) proxyImageURL(artworkURL string) string {
	return s.externalURL + "/image_proxy?url=" + url.QueryEscape(artworkURL)
}

// handleIndex serves the dashboard page, or upgrades to a websocket session
// when the client asks for one. Non-websocket clients fall through to the
// plain page; that is the CONNECTING state's failure path, not an error.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	if !websocket.IsWebSocketUpgrade(r) {
		s.servePage(w)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote an HTTP error response.
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	session := newSession(s, conn)

	// Collisions are near-impossible with random identifiers, but the
	// registry refuses to overwrite a live session, so regenerate and
	// retry rather than dropping either party.
	registered := false
	for i := 0; i < registerAttempts; i++ {
		if err := s.registry.Register(session); err == nil {
			registered = true
			break
		}
		session.id = newSessionID()
	}
	if !registered {
		log.Printf("Warning: could not register session, closing connection")
		conn.Close()
		return
	}

	log.Printf("Client %s connected.", session.id)

	go session.writePump()
	go session.readPump()
}

// servePage renders and serves the dashboard index page.
func (s *Server) servePage(w http.ResponseWriter) {
	page, err := s.renderer.Page()
	if err != nil {
		log.Printf("Failed to render page: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, page)
}

// handleImageProxy serves cached artwork for /image_proxy?url=<source-url>.
// A miss that cannot be populated (upstream error or non-success status)
// surfaces as a 404.
func (s *Server) handleImageProxy(w http.ResponseWriter, r *http.Request) {
	src := r.URL.Query().Get("url")
	if src == "" {
		http.Error(w, "missing url parameter", http.StatusBadRequest)
		return
	}

	fp, err := s.cache.Fetch(r.Context(), src)
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeCacheNotFound) {
			http.NotFound(w, r)
			return
		}
		log.Printf("Image proxy error for %s: %v", src, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	// Content type is implied by the cache's fixed extension.
	w.Header().Set("Content-Type", "image/jpeg")
	http.ServeFile(w, r, fp)
}
