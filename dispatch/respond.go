package dispatch

import (
	"encoding/json"
	"net/http"
	"strings"

	"golang.org/x/net/http/httpguts"

	"github.com/mapy-io/mapy/reqlog"
)

// Synthesized is a fully-buffered response produced by the pipeline,
// written to the client in one shot
type Synthesized struct {
	Status int
	Header http.Header
	Body   []byte
}

// Write emits the response
func (s *Synthesized) Write(w http.ResponseWriter) {
	for key, values := range s.Header {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
	w.WriteHeader(s.Status)
	if len(s.Body) > 0 {
		w.Write(s.Body)
	}
}

// defaultRuleBody is the synthetic JSON body of a rule with no
// configured response
type defaultRuleBody struct {
	Matched struct {
		Profile    string `json:"profile"`
		SubProfile string `json:"subProfile"`
		Request    string `json:"request"`
	} `json:"matched"`
	Path   string            `json:"path"`
	Query  map[string]string `json:"query"`
	Params map[string]string `json:"params"`
}

// BuildResponse synthesizes the response of a matched request rule and
// its loggable projection. Configured headers that aren't valid HTTP
// header name/value pairs are silently skipped
func BuildResponse(m *MatchResult, path string, query map[string]string) (*Synthesized, *reqlog.LoggedResponse) {
	status := http.StatusOK
	var configured map[string]string
	var body interface{}
	if m.Request.Response != nil {
		cfg := m.Request.Response
		if cfg.Status != nil && *cfg.Status >= 100 && *cfg.Status <= 999 {
			status = *cfg.Status
		}
		configured = cfg.Headers
		body = cfg.Body
	}

	if body == nil {
		b := defaultRuleBody{Path: path, Query: query, Params: m.Params}
		b.Matched.Profile = m.Profile.Name
		b.Matched.SubProfile = m.SubProfile.Name
		b.Matched.Request = m.Request.Name
		body = b
	}

	data, err := json.Marshal(body)
	if err != nil {
		log.Errorf("serializing rule response body: %s", err)
		data = []byte("null")
	}

	resp := &Synthesized{
		Status: status,
		Header: http.Header{"Content-Type": []string{"application/json"}},
		Body:   data,
	}

	sent := map[string]string{}
	for key, value := range configured {
		if !validHeader(key, value) {
			continue
		}
		resp.Header.Set(key, value)
		sent[key] = value
	}

	pretty, _ := json.MarshalIndent(body, "", "  ")
	logged := &reqlog.LoggedResponse{
		Status:  status,
		Headers: sent,
		Body:    string(pretty),
	}
	return resp, logged
}

// BuildBlockResponse renders a block's template and synthesizes its
// response. A whitespace-only render is an empty 200; otherwise the
// render is served as JSON when it (or its quote-normalized form)
// parses, and as text/plain when it doesn't. Response header values
// render through the same template
func BuildBlockResponse(m *BlockMatch) (*Synthesized, *reqlog.LoggedResponse) {
	values := MergedTemplateValues(m)
	rendered := RenderTemplate(m.Block.ResponseTemplate, values)
	normalized := NormalizeJSONQuotes(rendered)

	empty := strings.TrimSpace(rendered) == ""
	var parsed interface{}
	parsedOK := false
	if !empty {
		if err := json.Unmarshal([]byte(rendered), &parsed); err == nil {
			parsedOK = true
		} else if err := json.Unmarshal([]byte(normalized), &parsed); err == nil {
			parsedOK = true
		}
	}

	resp := &Synthesized{Status: http.StatusOK, Header: http.Header{}}
	switch {
	case empty:
	case parsedOK:
		data, err := json.Marshal(parsed)
		if err != nil {
			log.Errorf("serializing block response body: %s", err)
			data = []byte("null")
		}
		resp.Header.Set("Content-Type", "application/json")
		resp.Body = data
	default:
		resp.Header.Set("Content-Type", "text/plain; charset=utf-8")
		resp.Body = []byte(normalized)
	}

	sent := map[string]string{}
	for key, value := range m.Block.ResponseHeaders {
		name := strings.TrimSpace(key)
		if name == "" {
			continue
		}
		renderedValue := RenderTemplate(value, values)
		if !validHeader(name, renderedValue) {
			continue
		}
		resp.Header.Set(name, renderedValue)
		sent[name] = renderedValue
	}

	logged := &reqlog.LoggedResponse{Status: http.StatusOK, Headers: sent}
	switch {
	case empty:
	case parsedOK:
		pretty, _ := json.MarshalIndent(parsed, "", "  ")
		logged.Body = string(pretty)
	default:
		logged.Body = normalized
	}
	return resp, logged
}

// jsonErrorResponse synthesizes the {"error": ...} shape used by the
// proxy path, paired with its log projection
func jsonErrorResponse(status int, message string) (*Synthesized, *reqlog.LoggedResponse) {
	body := map[string]string{"error": message}
	data, _ := json.Marshal(body)
	pretty, _ := json.MarshalIndent(body, "", "  ")
	resp := &Synthesized{
		Status: status,
		Header: http.Header{"Content-Type": []string{"application/json"}},
		Body:   data,
	}
	logged := &reqlog.LoggedResponse{
		Status:  status,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    string(pretty),
	}
	return resp, logged
}

func validHeader(name, value string) bool {
	return httpguts.ValidHeaderFieldName(name) && httpguts.ValidHeaderFieldValue(value)
}
