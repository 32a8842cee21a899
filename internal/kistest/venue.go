// Package kistest provides a scripted fake of the KIS venue for tests.
// It implements transport.Transport, records every call in order and
// serves canned token, hashkey and envelope responses.
package kistest

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	json "github.com/goccy/go-json"

	"kis-gateway/internal/transport"
)

const (
	TokenPath   = "/oauth2/tokenP"
	HashkeyPath = "/uapi/hashkey"
)

// Call is one recorded request.
type Call struct {
	Method string
	Path   string
	Query  url.Values
	Header map[string]string
	Body   []byte
}

// Reply is a scripted response. A non-nil Err is returned as a transport failure.
type Reply struct {
	Status int
	Body   string
	Err    error
}

// Venue is a fake venue. The zero value is not usable; call New.
type Venue struct {
	// TokenTTL is the expires_in of issued tokens, in seconds.
	TokenTTL int64

	mu      sync.Mutex
	calls   []Call
	replies map[string][]Reply
	tokens  int
	hashes  int
}

// New returns a venue that issues tokens "token-1", "token-2", ... and
// hashes "hash-1", "hash-2", ... unless scripted otherwise.
func New() *Venue {
	return &Venue{
		TokenTTL: 86400,
		replies:  make(map[string][]Reply),
	}
}

// On queues replies for path. Each call consumes one; the last one repeats.
func (v *Venue) On(path string, replies ...Reply) *Venue {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.replies[path] = append(v.replies[path], replies...)
	return v
}

// OnOK queues a 200 reply with body.
func (v *Venue) OnOK(path, body string) *Venue {
	return v.On(path, Reply{Status: 200, Body: body})
}

// Perform implements transport.Transport.
func (v *Venue) Perform(ctx context.Context, req transport.Request) (*transport.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, err
	}

	header := make(map[string]string, len(req.Header))
	for k, val := range req.Header {
		header[k] = val
	}
	body := append([]byte(nil), req.Body...)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls = append(v.calls, Call{
		Method: req.Method,
		Path:   u.Path,
		Query:  u.Query(),
		Header: header,
		Body:   body,
	})

	if queue := v.replies[u.Path]; len(queue) > 0 {
		r := queue[0]
		if len(queue) > 1 {
			v.replies[u.Path] = queue[1:]
		}
		if r.Err != nil {
			return nil, r.Err
		}
		return &transport.Response{Status: r.Status, Body: []byte(r.Body)}, nil
	}

	switch u.Path {
	case TokenPath:
		v.tokens++
		return &transport.Response{Status: 200, Body: []byte(fmt.Sprintf(
			`{"access_token":"token-%d","token_type":"Bearer","expires_in":%d}`, v.tokens, v.TokenTTL))}, nil
	case HashkeyPath:
		v.hashes++
		return &transport.Response{Status: 200, Body: []byte(fmt.Sprintf(`{"BODY":{"HASH":"hash-%d"}}`, v.hashes))}, nil
	}
	return &transport.Response{
		Status: 404,
		Body:   []byte(`{"rt_cd":"1","msg_cd":"TEST0404","msg1":"no scripted reply for ` + u.Path + `"}`),
	}, nil
}

// Calls returns every recorded call in order.
func (v *Venue) Calls() []Call {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]Call, len(v.calls))
	copy(out, v.calls)
	return out
}

// Paths returns the path of every recorded call in order.
func (v *Venue) Paths() []string {
	calls := v.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.Path
	}
	return out
}

// Count returns how many calls were made to path.
func (v *Venue) Count(path string) int {
	n := 0
	for _, c := range v.Calls() {
		if c.Path == path {
			n++
		}
	}
	return n
}

// Last returns the most recent call to path.
func (v *Venue) Last(path string) (Call, bool) {
	calls := v.Calls()
	for i := len(calls) - 1; i >= 0; i-- {
		if calls[i].Path == path {
			return calls[i], true
		}
	}
	return Call{}, false
}

// Reset forgets recorded calls but keeps scripted replies.
func (v *Venue) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls = nil
}

// Success returns a success envelope JSON. Outputs are given as
// name/value pairs such as "output", map[string]string{...}.
func Success(outputs ...interface{}) string {
	return envelope("0", "MCA00000", "정상처리 되었습니다.", outputs...)
}

// Failure returns a business-failure envelope JSON.
func Failure(code, message string) string {
	return envelope("1", code, message)
}

func envelope(rt, code, msg string, outputs ...interface{}) string {
	m := map[string]interface{}{"rt_cd": rt, "msg_cd": code, "msg1": msg}
	for i := 0; i+1 < len(outputs); i += 2 {
		name, ok := outputs[i].(string)
		if !ok {
			panic("kistest: output name must be a string")
		}
		m[name] = outputs[i+1]
	}
	b, err := json.Marshal(m)
	if err != nil {
		panic(err)
	}
	return string(b)
}
