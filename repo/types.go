// Package repo defines the mapy data model and its on-disk persistence:
// the profiles document, and block libraries materialized as folders of
// JSON files
package repo

import "encoding/json"

// Store is the single persisted document holding every profile plus the
// active-profile pointer
type Store struct {
	Profiles      []Profile `json:"profiles"`
	ActiveProfile *string   `json:"activeProfile"`
}

// Profile is a named configuration bundle: rules, blocks, sub-profiles,
// and libraries
type Profile struct {
	Name          string          `json:"name"`
	BaseURL       string          `json:"baseUrl"`
	Params        []string        `json:"params"`
	SubProfiles   []SubProfile    `json:"subProfiles"`
	Requests      []RequestConfig `json:"requests"`
	LibraryBlocks []Block         `json:"libraryBlocks"`
	ActiveBlocks  []Block         `json:"activeBlocks"`
	Categories    []string        `json:"categories"`
	Libraries     []Library       `json:"libraries"`
}

// SubProfile is a name-scoped parameter binding applied to every rule
// in its profile
type SubProfile struct {
	Name   string            `json:"name"`
	Params map[string]string `json:"params"`
}

// RequestConfig is a request rule: a matcher keyed on method, path
// template, headers and query, plus an optional canned response
type RequestConfig struct {
	Name            string            `json:"name"`
	Path            string            `json:"path"`
	Method          string            `json:"method"`
	Headers         map[string]string `json:"headers"`
	QueryParameters map[string]string `json:"queryParameters"`
	Body            map[string]string `json:"body"`
	Params          map[string]string `json:"params"`
	Response        *ResponseConfig   `json:"response,omitempty"`
}

// ResponseConfig configures the synthetic response of a request rule.
// Body may hold any JSON value
type ResponseConfig struct {
	Status  *int              `json:"status,omitempty"`
	Headers map[string]string `json:"headers"`
	Body    interface{}       `json:"body,omitempty"`
}

// LocalLibraryID is the reserved id of the library persisted inside the
// profile document. It always exists and cannot be deleted
const LocalLibraryID = "local"

// Library is a storage backend for blocks, either the reserved "local"
// library or a "remote" folder on disk
type Library struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	FolderPath string `json:"folderPath,omitempty"`
}

// UnmarshalJSON accepts the legacy "clonePath" key as an alias for
// "folderPath"
func (l *Library) UnmarshalJSON(data []byte) error {
	type library Library
	aux := struct {
		library
		ClonePath string `json:"clonePath"`
	}{}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*l = Library(aux.library)
	if l.FolderPath == "" {
		l.FolderPath = aux.ClonePath
	}
	return nil
}

// Block is a template-driven mock response, matched ahead of request rules
type Block struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Method           string            `json:"method"`
	Path             string            `json:"path"`
	Description      string            `json:"description"`
	ResponseTemplate string            `json:"responseTemplate"`
	ResponseHeaders  map[string]string `json:"responseHeaders"`
	TemplateValues   []TemplateValue   `json:"templateValues"`
	TemplateVariants []TemplateVariant `json:"templateVariants"`
	ActiveVariantID  string            `json:"activeVariantId,omitempty"`
	Category         string            `json:"category"`
	SourceLibraryID  string            `json:"sourceLibraryId,omitempty"`
}

// TemplateValue binds a {{key}} hole in a block template to a value.
// ValueType "array" switches on enabled-filter semantics
type TemplateValue struct {
	ID        string `json:"id"`
	Key       string `json:"key"`
	Value     string `json:"value"`
	ValueType string `json:"valueType"`
}

// UnmarshalJSON defaults valueType to "string" when absent
func (v *TemplateValue) UnmarshalJSON(data []byte) error {
	type templateValue TemplateValue
	aux := templateValue{ValueType: "string"}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*v = TemplateValue(aux)
	return nil
}

// TemplateVariant is a named alternative set of template values,
// selectable via a block's activeVariantId
type TemplateVariant struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Values []TemplateValue `json:"values"`
}

// BlocksPayload is the wire shape of the blocks read & replace endpoints
type BlocksPayload struct {
	LibraryBlocks []Block  `json:"libraryBlocks"`
	ActiveBlocks  []Block  `json:"activeBlocks"`
	Categories    []string `json:"categories"`
}
