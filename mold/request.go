package mold

import (
	"net/url"
	"sort"
	"strings"
)

// Param is a single query parameter of a management API request.
type Param struct {
	Key   string
	Value string
}

// Request is an ordered set of query parameters. Wire order follows
// insertion order; the signing string sorts keys independently of it.
type Request struct {
	params []Param
}

// NewRequest returns a request whose first parameter is command.
func NewRequest(command string) *Request {
	return (&Request{}).Set("command", command)
}

// Set replaces the value of key if present, otherwise appends it.
func (r *Request) Set(key, value string) *Request {
	for i := range r.params {
		if r.params[i].Key == key {
			r.params[i].Value = value
			return r
		}
	}

	r.params = append(r.params, Param{Key: key, Value: value})
	return r
}

func (r *Request) Get(key string) (string, bool) {
	for _, p := range r.params {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// Command returns the value of the command parameter, or "".
func (r *Request) Command() string {
	command, _ := r.Get("command")
	return command
}

func (r *Request) Params() []Param {
	params := make([]Param, len(r.params))
	copy(params, r.params)
	return params
}

func (r *Request) clone() *Request {
	return &Request{params: r.Params()}
}

// Encode returns the query string sent on the wire: keys as given, values
// encoded with spaces as '+', in insertion order.
func (r *Request) Encode() string {
	pairs := make([]string, 0, len(r.params))
	for _, p := range r.params {
		pairs = append(pairs, p.Key+"="+url.QueryEscape(p.Value))
	}
	return strings.Join(pairs, "&")
}

// SigningString returns the canonical form that is hashed: keys sorted and
// lowercased, values encoded then lowercased with '+' turned into "%20".
func (r *Request) SigningString() string {
	params := r.Params()
	sort.SliceStable(params, func(i, j int) bool {
		return params[i].Key < params[j].Key
	})

	pairs := make([]string, 0, len(params))
	for _, p := range params {
		value := strings.Replace(strings.ToLower(url.QueryEscape(p.Value)), "+", "%20", -1)
		pairs = append(pairs, strings.ToLower(p.Key)+"="+value)
	}
	return strings.Join(pairs, "&")
}
