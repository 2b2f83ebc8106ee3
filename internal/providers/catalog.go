// Package providers hosts the provider registry, the shared provider base
// and the default model catalogs.
package providers

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/YusakuNo1/AiFoundry/internal/core"
)

//go:embed catalogs.yaml
var catalogsYAML []byte

// ModelDef is one model row of the embedded default catalogs.
type ModelDef struct {
	Name string            `yaml:"name"`
	Tags []core.Capability `yaml:"tags"`
}

var defaultCatalogs map[string][]ModelDef

func init() {
	if err := yaml.Unmarshal(catalogsYAML, &defaultCatalogs); err != nil {
		panic(fmt.Sprintf("invalid embedded model catalogs: %v", err))
	}
}

// DefaultCatalog returns the built-in model list of a provider. The result
// is a copy; callers may mutate it.
func DefaultCatalog(providerID string) []ModelDef {
	defs := defaultCatalogs[providerID]
	out := make([]ModelDef, len(defs))
	copy(out, defs)
	return out
}
