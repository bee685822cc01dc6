// Package plugins links the built-in store backends and metrics sinks into
// the binary. Importing it for side effects is enough to make every backend
// selectable from configuration.
package plugins

import (
	coremetrics "github.com/kilianp07/lineauction/core/metrics"
	"github.com/kilianp07/lineauction/core/store"

	_ "github.com/kilianp07/lineauction/infra/metrics"
	_ "github.com/kilianp07/lineauction/infra/store/memory"
	_ "github.com/kilianp07/lineauction/infra/store/sqlstore"
)

// Available reports the registered module types per kind.
func Available() map[string][]string {
	return map[string][]string{
		"store":   store.Backends(),
		"metrics": coremetrics.SinkNames(),
	}
}
