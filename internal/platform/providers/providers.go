// Package providers exposes the process-wide exchange capability map:
// which providers can execute conversions and which are announced but not
// yet implemented. Loaded once at startup, read-only afterwards.
package providers

// Status describes availability of one exchange provider.
type Status string

const (
	// Enabled providers have a working adapter implementation.
	Enabled Status = "ENABLED"
	// ComingSoon providers are visible to tenants but fail closed on use.
	ComingSoon Status = "COMING_SOON"
)

// Known provider names.
const (
	Kraken             = "kraken"
	IndependentReserve = "independent_reserve"
	CoinJar            = "coinjar"
)

// Map is an immutable view of provider availability.
type Map struct {
	statuses map[string]Status
}

// Load builds the provider map. The set is fixed at build time; rolling a
// provider from ComingSoon to Enabled ships with its adapter.
func Load() Map {
	return Map{statuses: map[string]Status{
		Kraken:             Enabled,
		IndependentReserve: ComingSoon,
		CoinJar:            ComingSoon,
	}}
}

// Status returns the provider's availability and whether it is known at all.
func (m Map) Status(provider string) (Status, bool) {
	s, ok := m.statuses[provider]
	return s, ok
}

// IsEnabled reports whether the provider has a working adapter.
func (m Map) IsEnabled(provider string) bool {
	s, ok := m.statuses[provider]
	return ok && s == Enabled
}

// Names returns all known provider names.
func (m Map) Names() []string {
	names := make([]string, 0, len(m.statuses))
	for name := range m.statuses {
		names = append(names, name)
	}
	return names
}
