package core

import "strings"

// AgentURIPrefix is the grammar prefix of agent identifiers.
const AgentURIPrefix = "aif://agents/"

// ParamAPIVersion is the query key consumed by versioned cloud providers.
const ParamAPIVersion = "api-version"

// ModelURI is a parsed model identifier of the form
// scheme://model-name[?key=value[&key=value...]].
type ModelURI struct {
	Scheme    string
	ModelName string
	Params    map[string]string
}

// ParseModelURI splits uri into scheme, model name and query parameters.
// Returns a MalformedURI error when the scheme separator is absent.
// Duplicate query keys keep the last occurrence.
func ParseModelURI(uri string) (ModelURI, error) {
	scheme, rest, ok := strings.Cut(uri, "://")
	if !ok || scheme == "" {
		return ModelURI{}, NewMalformedURIError(uri)
	}

	name, query, _ := strings.Cut(rest, "?")
	out := ModelURI{Scheme: scheme, ModelName: name, Params: map[string]string{}}

	if query != "" {
		for _, pair := range strings.Split(query, "&") {
			k, v, found := strings.Cut(pair, "=")
			if !found || k == "" {
				continue
			}
			out.Params[k] = v
		}
	}

	return out, nil
}

// String reconstructs the URI. Parameter order is not guaranteed.
func (u ModelURI) String() string {
	var sb strings.Builder
	sb.WriteString(u.Scheme)
	sb.WriteString("://")
	sb.WriteString(u.ModelName)
	sep := "?"
	for k, v := range u.Params {
		sb.WriteString(sep)
		sb.WriteString(k)
		sb.WriteString("=")
		sb.WriteString(v)
		sep = "&"
	}
	return sb.String()
}

// APIVersion returns the api-version parameter, or "".
func (u ModelURI) APIVersion() string {
	return u.Params[ParamAPIVersion]
}

// StripLatestTag removes a trailing ":latest" version tag from a model
// name, so tag-qualified and untagged references to the same local model
// compare equal.
func StripLatestTag(modelName string) string {
	return strings.TrimSuffix(modelName, ":latest")
}

// IsAgentURI reports whether the identifier matches the agent-URI grammar.
func IsAgentURI(uri string) bool {
	return strings.HasPrefix(uri, AgentURIPrefix)
}

// AgentURI builds the agent URI for an agent id.
func AgentURI(id string) string {
	return AgentURIPrefix + id
}
