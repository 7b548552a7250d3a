// Package links decides which notification links must be retrieved and
// annotates them with a notification type and an API key requirement.
// Everything here is pure except Select, which logs one debug line per
// selected link through the supplied logger.
package links
