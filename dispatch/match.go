// Package dispatch implements the per-request pipeline: block and rule
// matching, template rendering, response synthesis, and the reverse
// proxy fallthrough
package dispatch

import (
	"net/http"
	"net/textproto"
	"regexp"
	"strings"

	golog "github.com/ipfs/go-log"

	"github.com/mapy-io/mapy/repo"
)

var log = golog.Logger("mapy.dispatch")

// holePattern finds {name} holes in a path template
var holePattern = regexp.MustCompile(`\{([^}]+)\}`)

// MatchResult is a rule hit: the matched (profile, subProfile, request)
// triple plus parameters extracted from the path
type MatchResult struct {
	Profile    repo.Profile
	SubProfile repo.SubProfile
	Request    repo.RequestConfig
	Params     map[string]string
}

// BlockMatch is a block hit with its extracted path parameters
type BlockMatch struct {
	Profile repo.Profile
	Block   repo.Block
	Params  map[string]string
}

// FindMatch scans the active profile's (subProfile, request) pairs in
// declared order and returns the first rule whose method, headers,
// query, and path all match. activeProfile == "" means no profile is
// mounted and nothing matches
func FindMatch(store *repo.Store, method, path string, header http.Header, query map[string]string, activeProfile string) *MatchResult {
	if activeProfile == "" {
		return nil
	}
	profile := store.Profile(activeProfile)
	if profile == nil {
		return nil
	}

	for _, sub := range profile.SubProfiles {
		for _, request := range profile.Requests {
			if !methodMatches(request.Method, method) {
				continue
			}
			if !headersMatch(request.Headers, header) {
				continue
			}
			if !queryMatch(request.QueryParameters, query) {
				continue
			}

			bindings := map[string]string{}
			for key, value := range sub.Params {
				bindings[key] = value
			}
			for key, value := range request.Params {
				bindings[key] = value
			}

			template := buildRequestPath(profile, request)
			pattern, tokens := compilePathMatcher(template, bindings)
			if captures := pattern.FindStringSubmatch(path); captures != nil {
				return &MatchResult{
					Profile:    *profile,
					SubProfile: sub,
					Request:    request,
					Params:     extractParams(tokens, captures),
				}
			}
		}
	}
	return nil
}

// FindBlockMatch scans the active profile's mounted blocks in order.
// A block with no derivable path is skipped. Paths without holes must
// equal the inbound path exactly; holed paths compile with an empty
// binding and match by regex
func FindBlockMatch(store *repo.Store, activeProfile, method, path string) *BlockMatch {
	if activeProfile == "" {
		return nil
	}
	profile := store.Profile(activeProfile)
	if profile == nil {
		return nil
	}

	for _, block := range profile.ActiveBlocks {
		if !methodMatches(block.Method, method) {
			continue
		}
		blockPath, ok := deriveBlockPath(block)
		if !ok {
			continue
		}
		if blockPath == path {
			return &BlockMatch{Profile: *profile, Block: block, Params: map[string]string{}}
		}
		if strings.Contains(blockPath, "{") && strings.Contains(blockPath, "}") {
			pattern, tokens := compilePathMatcher(blockPath, nil)
			if captures := pattern.FindStringSubmatch(path); captures != nil {
				return &BlockMatch{Profile: *profile, Block: block, Params: extractParams(tokens, captures)}
			}
		}
	}
	return nil
}

// methodMatches treats an empty or "*" configured method as a wildcard,
// anything else compares case-insensitively
func methodMatches(configured, method string) bool {
	if configured == "" || configured == "*" {
		return true
	}
	return strings.ToUpper(configured) == method
}

// headersMatch requires every expected header to be present with the
// exact configured value. Name lookup follows HTTP case-insensitivity,
// value comparison is case-sensitive. A missing header never matches,
// even against an empty expected value
func headersMatch(expected map[string]string, actual http.Header) bool {
	for key, value := range expected {
		values, ok := actual[textproto.CanonicalMIMEHeaderKey(key)]
		if !ok || len(values) == 0 || values[0] != value {
			return false
		}
	}
	return true
}

func queryMatch(expected, actual map[string]string) bool {
	for key, value := range expected {
		got, ok := actual[key]
		if !ok || got != value {
			return false
		}
	}
	return true
}

// deriveBlockPath resolves the path a block matches on: its explicit
// path when set, otherwise the remainder of its description after the
// first space, accepted only when it starts with "/"
func deriveBlockPath(block repo.Block) (string, bool) {
	if block.Path != "" {
		return block.Path, true
	}
	trimmed := strings.TrimSpace(block.Description)
	_, path, found := strings.Cut(trimmed, " ")
	if !found || !strings.HasPrefix(path, "/") {
		return "", false
	}
	return path, true
}

// buildRequestPath composes the profile baseUrl and the rule path into
// one template, collapsing the seam slash. An empty baseUrl yields just
// the rule path
func buildRequestPath(profile *repo.Profile, request repo.RequestConfig) string {
	base := normalizePath(profile.BaseURL)
	path := normalizePath(request.Path)
	if profile.BaseURL == "" {
		return path
	}
	if strings.HasSuffix(base, "/") && strings.HasPrefix(path, "/") {
		return strings.TrimSuffix(base, "/") + path
	}
	return base + path
}

func normalizePath(value string) string {
	if value == "" {
		return "/"
	}
	if strings.HasPrefix(value, "/") {
		return value
	}
	return "/" + value
}

// paramToken records one {name} hole of a compiled template: either a
// bound literal or a regex capture
type paramToken struct {
	name    string
	value   string
	capture bool
}

// compilePathMatcher turns a path template into an anchored regex.
// Holes found in bindings become escaped literals; unbound holes become
// ([^/]+) captures, so a captured segment never crosses a "/"
func compilePathMatcher(template string, bindings map[string]string) (*regexp.Regexp, []paramToken) {
	var pattern strings.Builder
	var tokens []paramToken
	last := 0

	for _, span := range holePattern.FindAllStringSubmatchIndex(template, -1) {
		pattern.WriteString(regexp.QuoteMeta(template[last:span[0]]))
		name := strings.TrimSpace(template[span[2]:span[3]])

		if value, ok := bindings[name]; ok {
			pattern.WriteString(regexp.QuoteMeta(value))
			tokens = append(tokens, paramToken{name: name, value: value})
		} else {
			pattern.WriteString(`([^/]+)`)
			tokens = append(tokens, paramToken{name: name, capture: true})
		}
		last = span[1]
	}
	pattern.WriteString(regexp.QuoteMeta(template[last:]))

	return regexp.MustCompile("^" + pattern.String() + "$"), tokens
}

// extractParams merges bound values and regex captures into one map.
// captures is the FindStringSubmatch result: captures[0] is the whole
// match, groups start at 1 in token order
func extractParams(tokens []paramToken, captures []string) map[string]string {
	params := map[string]string{}
	group := 1
	for _, token := range tokens {
		if token.capture {
			if group < len(captures) {
				params[token.name] = captures[group]
			}
			group++
		} else {
			params[token.name] = token.value
		}
	}
	return params
}
