package config

import (
	"fmt"
	"strings"
)

// Adapter names the destination strategy for incoming notifications.
type Adapter string

const (
	// AdapterFile persists notifications and their content links.
	AdapterFile Adapter = "file"
	// AdapterQueue hands notifications to the job executor.
	AdapterQueue Adapter = "queue"
)

// Adapters lists every supported adapter.
var Adapters = []Adapter{AdapterFile, AdapterQueue}

// Legacy adapter names still found in deployed configuration.
var adapterAliases = map[string]Adapter{
	"sidekiq": AdapterQueue,
}

// ParseAdapter normalises raw into a supported adapter.
func ParseAdapter(raw string) (Adapter, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	for _, a := range Adapters {
		if string(a) == name {
			return a, nil
		}
	}
	if a, ok := adapterAliases[name]; ok {
		return a, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAdapter, raw)
}

// Driver names the persistence backend behind the file adapter.
type Driver string

const (
	DriverFile   Driver = "file"
	DriverSQLite Driver = "sqlite"
	DriverMemory Driver = "memory"
)

// Drivers lists every supported storage driver.
var Drivers = []Driver{DriverFile, DriverSQLite, DriverMemory}

// ParseDriver normalises raw into a supported driver.
func ParseDriver(raw string) (Driver, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	for _, d := range Drivers {
		if string(d) == name {
			return d, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDriver, raw)
}
