package typedconf

import "sync"

// Provenance records which source supplied each option of a loaded settings instance.
type Provenance struct {
	Fields []FieldProvenance
}

// FieldProvenance describes where an option's value came from.
type FieldProvenance struct {
	Path   string // Option path (e.g., "host.port")
	Source string // Source name (e.g., "env", "file:/etc/app.toml"), empty when the default was used
	Secret bool   // Whether the option is secret
}

// Lookup returns the provenance of the option at path.
func (p *Provenance) Lookup(path string) (FieldProvenance, bool) {
	for _, f := range p.Fields {
		if f.Path == path {
			return f, true
		}
	}
	return FieldProvenance{}, false
}

var provenanceStore sync.Map

// GetProvenance returns provenance metadata for settings returned by a Loader.
// Thread-safe.
func GetProvenance[T any](cfg *T) (*Provenance, bool) {
	if cfg == nil {
		return nil, false
	}

	value, ok := provenanceStore.Load(cfg)
	if !ok {
		return nil, false
	}

	prov, ok := value.(*Provenance)
	return prov, ok
}

func storeProvenance[T any](cfg *T, prov *Provenance) {
	if cfg != nil && prov != nil {
		provenanceStore.Store(cfg, prov)
	}
}

func buildProvenance(options OptionList, merged MergedSettings) *Provenance {
	prov := &Provenance{Fields: make([]FieldProvenance, 0, len(options))}
	for _, o := range options {
		fp := FieldProvenance{Path: o.Path, Secret: o.Secret}
		if lv, ok := merged[o.Path]; ok {
			fp.Source = lv.Meta.Name
		}
		prov.Fields = append(prov.Fields, fp)
	}
	return prov
}
