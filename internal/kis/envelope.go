package kis

import (
	"bytes"

	json "github.com/goccy/go-json"

	"kis-gateway/internal/errors"
)

// Envelope is a successful venue response. The outputs are kept raw and
// decoded by the asset-class projections.
type Envelope struct {
	ResultCode  string
	MessageCode string
	Message     string
	Output      json.RawMessage
	Output1     json.RawMessage
	Output2     json.RawMessage
}

// Classify decodes raw as a venue envelope. It returns the envelope when
// rt_cd is the string "0", a *errors.BusinessFailure carrying msg_cd and
// msg1 verbatim for any other rt_cd (missing or non-string included), and
// a *errors.MalformedError when raw is empty, not JSON, or not an object.
func Classify(raw []byte) (*Envelope, error) {
	env, _, err := parseEnvelope(raw)
	return env, err
}

// parseEnvelope also reports whether rt_cd was present at all.
func parseEnvelope(raw []byte) (*Envelope, bool, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, false, errors.NewMalformedError("empty body", nil)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, false, errors.NewMalformedError("body is not a JSON object", err)
	}
	if fields == nil {
		return nil, false, errors.NewMalformedError("body is not a JSON object", nil)
	}

	rt, hasRT := fields["rt_cd"]
	env := &Envelope{
		ResultCode:  textOf(rt),
		MessageCode: textOf(fields["msg_cd"]),
		Message:     textOf(fields["msg1"]),
		Output:      fields["output"],
		Output1:     fields["output1"],
		Output2:     fields["output2"],
	}

	code, isString := stringOf(rt)
	if !isString || code != "0" {
		return nil, hasRT, &errors.BusinessFailure{
			Code:       env.MessageCode,
			Message:    env.Message,
			ResultCode: env.ResultCode,
		}
	}
	return env, true, nil
}

// classifyResponse applies HTTP status semantics on top of Classify. A
// non-2xx status never yields a success.
func classifyResponse(status int, body []byte) (*Envelope, error) {
	env, hasRT, err := parseEnvelope(body)
	if status >= 200 && status < 300 {
		if me, ok := err.(*errors.MalformedError); ok {
			me.Status = status
		}
		return env, err
	}

	switch e := err.(type) {
	case *errors.BusinessFailure:
		if !hasRT {
			return nil, &errors.MalformedError{Reason: "error status without envelope", Status: status}
		}
		e.Status = status
		return nil, e
	case *errors.MalformedError:
		e.Status = status
		return nil, e
	case nil:
		return nil, &errors.MalformedError{Reason: "error status with success envelope", Status: status}
	}
	return nil, err
}

func stringOf(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// textOf returns a string field's value, or the raw JSON text of a
// non-string value so nothing the venue sent is lost.
func textOf(raw json.RawMessage) string {
	if s, ok := stringOf(raw); ok {
		return s
	}
	t := string(bytes.TrimSpace(raw))
	if t == "null" {
		return ""
	}
	return t
}

// absent reports whether an output field carries no data.
func absent(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null")) || bytes.Equal(t, []byte(`""`))
}

// firstPresent returns the first output that carries data.
func firstPresent(raws ...json.RawMessage) json.RawMessage {
	for _, r := range raws {
		if !absent(r) {
			return r
		}
	}
	return nil
}

// decodeRows decodes an output into the slice v points to. A single
// object is treated as a one-element list.
func decodeRows(raw json.RawMessage, v interface{}) error {
	if absent(raw) {
		return nil
	}
	t := bytes.TrimSpace(raw)
	if t[0] == '{' {
		t = append(append([]byte{'['}, t...), ']')
	}
	if err := json.Unmarshal(t, v); err != nil {
		return malformed("decoding output rows", err)
	}
	return nil
}

// decodeObject decodes an output into v. An array yields its first
// element; an empty array leaves v untouched.
func decodeObject(raw json.RawMessage, v interface{}) error {
	if absent(raw) {
		return nil
	}
	t := bytes.TrimSpace(raw)
	if t[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(t, &items); err != nil {
			return malformed("decoding output", err)
		}
		if len(items) == 0 {
			return nil
		}
		t = items[0]
	}
	if err := json.Unmarshal(t, v); err != nil {
		return malformed("decoding output", err)
	}
	return nil
}

func malformed(reason string, err error) error {
	var me *errors.MalformedError
	if errors.As(err, &me) {
		return me
	}
	return errors.NewMalformedError(reason, err)
}
