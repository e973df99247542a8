// Package knowledge holds the static reference tables the advisory
// agents consult: the crop database, regional soil and weather profiles,
// crop weather requirements, well-known coordinates, government scheme
// details, and intent keyword patterns.
//
// All tables are initialized at package load and never mutated, so they
// are safe for concurrent readers without locking.
package knowledge

import "strings"

// RegionKey normalizes a state or district name into the canonical
// region key used across tables and the learning store: lowercase with
// whitespace replaced by underscores.
func RegionKey(region string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(region)), " ", "_")
}
