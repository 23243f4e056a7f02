// Package apitest provides a stub search API for exercising declarative
// clients end to end.
//
// The server answers GET /search/users and GET /search/repositories with a
// configurable status, body and delay, and records every hit:
//
//	srv := apitest.New()
//	defer srv.Close()
//	srv.Respond(http.StatusOK, `{"total_count":1,"items":[{"login":"octocat"}]}`)
package apitest

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// DefaultBody is returned until Respond is called.
const DefaultBody = `{"total_count":2,"incomplete_results":false,"items":[{"login":"octocat","id":1},{"login":"hubot","id":2}]}`

// Hit is one request received by the server.
type Hit struct {
	Path     string
	RawQuery string
	Header   http.Header
}

// Server is a gin-backed httptest server.
type Server struct {
	ts     *httptest.Server
	engine *gin.Engine

	mu     sync.Mutex
	status int
	body   string
	delay  time.Duration
	hits   []Hit
}

// New starts a server.
func New() *Server {
	s := &Server{status: http.StatusOK, body: DefaultBody}
	s.engine = gin.New()
	s.engine.Use(gin.Recovery())
	s.engine.GET("/search/users", s.handle)
	s.engine.GET("/search/repositories", s.handle)
	s.engine.NoRoute(func(c *gin.Context) {
		s.record(c)
		c.JSON(http.StatusNotFound, gin.H{"message": "Not Found"})
	})
	s.ts = httptest.NewServer(s.engine)
	return s
}

// URL returns the base URL, e.g. "http://127.0.0.1:PORT".
func (s *Server) URL() string { return s.ts.URL }

// Close shuts the server down.
func (s *Server) Close() { s.ts.Close() }

// Respond sets the status and body of subsequent responses.
func (s *Server) Respond(status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status, s.body = status, body
}

// Delay holds each response for d, or until the client goes away.
func (s *Server) Delay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// Hits returns the number of requests received.
func (s *Server) Hits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.hits)
}

// LastHit returns the most recent request, if any.
func (s *Server) LastHit() (Hit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.hits) == 0 {
		return Hit{}, false
	}
	return s.hits[len(s.hits)-1], true
}

func (s *Server) handle(c *gin.Context) {
	s.record(c)

	s.mu.Lock()
	status, body, delay := s.status, s.body, s.delay
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-c.Request.Context().Done():
			c.Abort()
			return
		}
	}
	c.Data(status, "application/json; charset=utf-8", []byte(body))
}

func (s *Server) record(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hits = append(s.hits, Hit{
		Path:     c.Request.URL.Path,
		RawQuery: c.Request.URL.RawQuery,
		Header:   c.Request.Header.Clone(),
	})
}
