package server

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/nowspinning/host/internal/render"
)

// sendBufferSize is the buffer for the per-session send channel. Refresh
// replies are small and infrequent, but a slow display must not block the
// session's read loop.
const sendBufferSize = 16

// refreshTimeout bounds the whole metadata-refresh protocol: speaker
// queries, the station directory fallback, and rendering.
const refreshTimeout = 20 * time.Second

// Session is one websocket connection and its server-side state.
//
// Lifecycle: created on a successful upgrade, registered under a random
// 8-character identifier, destroyed on disconnect, malformed frame type, or
// shutdown. The read loop processes refresh actions strictly in arrival
// order; there is never a concurrent refresh within one session.
type Session struct {
	// id is the short identifier this session is registered under.
	id string

	// conn is the underlying WebSocket connection. Owned by the session's
	// pumps once registered.
	conn *websocket.Conn

	// send buffers outgoing messages for the write pump.
	send chan interface{}

	// done is closed to signal the session should shut down.
	done chan struct{}

	// closeOnce ensures done is only closed once. The read pump, the
	// registry's CloseAll, and Stop() may all try.
	closeOnce sync.Once

	// server is a reference back to the parent server.
	server *Server

	// refreshLimiter bounds refresh actions per session. A stuck client
	// looping on refresh must not hammer the speaker.
	refreshLimiter *rate.Limiter
}

// newSessionID generates a short session identifier: the first 8 characters
// of a UUID, matching what connected widgets log on the browser side.
func newSessionID() string {
	return uuid.New().String()[:8]
}

// newSession wraps an upgraded connection in a Session.
func newSession(srv *Server, conn *websocket.Conn) *Session {
	return &Session{
		id:             newSessionID(),
		conn:           conn,
		send:           make(chan interface{}, sendBufferSize),
		done:           make(chan struct{}),
		server:         srv,
		refreshLimiter: rate.NewLimiter(rate.Limit(1), 5),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// closeSend signals the session to shut down exactly once. Safe to call from
// any goroutine; only the done channel is closed, so in-flight Send calls
// never race a channel close.
func (s *Session) closeSend() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

// Send queues a message for this session only. Non-blocking: if the session
// is shutting down or its buffer is full, the message is dropped. A refresh
// reply to a dead display is worthless anyway.
func (s *Session) Send(msg interface{}) {
	select {
	case <-s.done:
	case s.send <- msg:
	default:
		log.Printf("Warning: session %s send buffer full, dropping message", s.id)
	}
}

// writePump sends queued messages to the WebSocket and pings periodically.
// A write failure means the peer reset the connection: the pump closes the
// connection, which makes the read pump exit and unregister the session.
// That path is a normal disconnect, never a propagated error.
func (s *Session) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case <-s.done:
			// Shutdown signaled; send close frame and exit.
			s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			s.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case msg := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))

			data, err := json.Marshal(msg)
			if err != nil {
				log.Printf("Failed to marshal message: %v", err)
				continue
			}

			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				// Peer reset. Expected condition; clean up quietly.
				if s.server.verbose {
					log.Printf("Write to session %s failed: %v", s.id, err)
				}
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump is the session's OPEN state: a blocking receive loop that
// dispatches actions until the connection closes or a non-text frame
// arrives. On exit the session is unregistered exactly once, regardless of
// which path caused closing.
func (s *Session) readPump() {
	defer func() {
		s.server.registry.Unregister(s.id)
		s.closeSend()
		log.Printf("Client %s disconnected.", s.id)
	}()

	s.conn.SetReadLimit(4 * 1024)
	s.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
				websocket.CloseAbnormalClosure) {
				log.Printf("Read error on session %s: %v", s.id, err)
			}
			return
		}

		// Only text frames carry actions. Any other frame type ends the
		// session; a malformed payload inside a text frame does not.
		if msgType != websocket.TextMessage {
			log.Printf("Session %s sent non-text frame, closing", s.id)
			return
		}

		cmd := parseCommand(data)
		switch cmd.Action {
		case ActionRefresh:
			if !s.refreshLimiter.Allow() {
				log.Printf("Warning: session %s refresh rate limited", s.id)
				continue
			}
			s.handleRefresh(cmd.Speaker)
		case ActionNone:
			// No-op: unknown action, missing fields, or undecodable
			// payload. Keep the loop alive.
		}
	}
}

// handleRefresh runs the metadata-refresh protocol for one speaker and sends
// the rendered widget HTML back on this connection only.
//
// Speaker-offline and directory failures are expected conditions: they are
// logged and the refresh is silently dropped. The session loop survives.
func (s *Session) handleRefresh(speaker string) {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	client := s.server.metadata

	transport, err := client.GetTransportInfo(ctx, speaker)
	if err != nil {
		log.Printf("Warning: refresh for %q failed: %v", speaker, err)
		return
	}
	track, err := client.GetTrackInfo(ctx, speaker)
	if err != nil {
		log.Printf("Warning: refresh for %q failed: %v", speaker, err)
		return
	}

	title := track.Title
	artist := track.Artist
	album := track.Album
	imgSrc := track.ArtworkURL

	// No artwork in track metadata usually means a radio stream: fall back
	// to the media channel name and look the station's logo up in the
	// directory.
	if imgSrc == "" {
		media, err := client.GetMediaInfo(ctx, speaker)
		if err != nil {
			log.Printf("Warning: refresh for %q failed: %v", speaker, err)
			return
		}

		channel := media.Channel
		stations, err := client.SearchStations(ctx, channel)
		if err != nil {
			// The widget is still useful without a logo; render with the
			// channel name alone.
			log.Printf("Warning: station search for %q failed: %v", channel, err)
			stations = nil
		}
		if len(stations) > 0 {
			imgSrc = stations[0].LogoURL
		}
		title = channel
		artist = ""
		album = ""
	}

	// Rewrite the artwork URL to point back at this server so the browser
	// loads it same-origin through the image cache. An empty artwork URL
	// stays empty; the template tolerates it.
	if imgSrc != "" {
		imgSrc = s.server.proxyImageURL(imgSrc)
	}

	html, err := s.server.renderer.Widget(render.WidgetContext{
		Transport: transport.State,
		Title:     title,
		Artist:    artist,
		Album:     album,
		ImgSrc:    imgSrc,
	})
	if err != nil {
		log.Printf("Warning: widget render for %q failed: %v", speaker, err)
		return
	}

	if s.server.verbose {
		log.Printf("Sending to client %s: %s", s.id, html)
	}

	// Single-target send through the registry. If the session vanished
	// while we were querying the speaker, the result is simply discarded.
	target, ok := s.server.registry.Get(s.id)
	if !ok {
		return
	}
	target.Send(htmlMessage{HTML: html})
}
