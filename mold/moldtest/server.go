// Package moldtest provides a fake management API for tests. Requests are
// routed by their command parameter and rejected unless the api key and the
// signature check out, the same way the real endpoint does.
package moldtest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"

	"github.com/ablecloud-io/fence/mold"
	"github.com/gorilla/mux"
)

// Server is a fake management API listening on a local port.
type Server struct {
	*httptest.Server

	APIKey    string
	SecretKey string

	router *mux.Router

	mu    sync.Mutex
	calls []string
}

// NewServer starts a plain HTTP fake.
func NewServer(apiKey, secretKey string) *Server {
	s := newServer(apiKey, secretKey)
	s.Server = httptest.NewServer(s)
	return s
}

// NewTLSServer starts a fake using a self-signed certificate.
func NewTLSServer(apiKey, secretKey string) *Server {
	s := newServer(apiKey, secretKey)
	s.Server = httptest.NewTLSServer(s)
	return s
}

func newServer(apiKey, secretKey string) *Server {
	s := &Server{
		APIKey:    apiKey,
		SecretKey: secretKey,
		router:    mux.NewRouter(),
	}

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		command := req.URL.Query().Get("command")
		WriteError(w, command, 432, "The given command does not exist or it is not available for user")
	})

	return s
}

// Handle registers h for requests carrying command.
func (s *Server) Handle(command string, h http.HandlerFunc) {
	s.router.HandleFunc("/client/api", h).Methods("GET").Queries("command", command)
}

// HandleJSON registers a handler that always answers command with status and
// body.
func (s *Server) HandleJSON(command string, status int, body string) {
	s.Handle(command, func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	})
}

// Calls returns the commands received so far, in order, including rejected
// ones.
func (s *Server) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	calls := make([]string, len(s.calls))
	copy(calls, s.calls)
	return calls
}

// Endpoint returns the mold.Endpoint of the running server.
func (s *Server) Endpoint() mold.Endpoint {
	u, _ := url.Parse(s.URL)
	return mold.Endpoint{Protocol: u.Scheme, Host: u.Hostname(), Port: u.Port()}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	command := req.URL.Query().Get("command")

	s.mu.Lock()
	s.calls = append(s.calls, command)
	s.mu.Unlock()

	if req.URL.Query().Get("apikey") != s.APIKey || !VerifySignature(req.URL.RawQuery, s.SecretKey) {
		WriteError(w, command, 401, "unable to verify user credentials and/or request signature")
		return
	}

	s.router.ServeHTTP(w, req)
}

// VerifySignature recomputes the signature of a raw query string whose last
// parameter is signature.
func VerifySignature(rawQuery, secretKey string) bool {
	idx := strings.LastIndex(rawQuery, "&signature=")
	if idx < 0 {
		return false
	}

	values, err := url.ParseQuery(rawQuery[:idx])
	if err != nil {
		return false
	}

	r := &mold.Request{}
	for key, value := range values {
		r.Set(key, value[0])
	}

	return mold.Sign(r, secretKey) == rawQuery[idx+len("&signature="):]
}

// WriteError writes an error envelope shaped like the real API's.
func WriteError(w http.ResponseWriter, command string, code int, text string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	fmt.Fprintf(w, `{"%sresponse":{"uuidList":[],"errorcode":%d,"errortext":%q}}`,
		strings.ToLower(command), code, text)
}
