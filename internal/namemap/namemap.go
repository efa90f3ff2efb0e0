// Package namemap resolves Hub repository full names to their Lab
// counterparts using a configured mapping, falling back to the identity
// function for anything not explicitly mapped.
package namemap

// Map is an injective partial map from Hub full_name to Lab full_name, with
// identity fallback for unmapped names.
type Map struct {
	hubToLab map[string]string
}

// New builds a Map from the configured hub_to_lab table.
func New(hubToLab map[string]string) *Map {
	m := make(map[string]string, len(hubToLab))
	for k, v := range hubToLab {
		m[k] = v
	}
	return &Map{hubToLab: m}
}

// Lookup returns the configured Lab name for x, or x unchanged if no mapping
// exists. Lookup is idempotent as long as the map's image is disjoint from
// its domain, which is a configuration precondition.
func (m *Map) Lookup(x string) string {
	if lab, ok := m.hubToLab[x]; ok {
		return lab
	}
	return x
}
