// Package internaldefs carries the shared metric definitions used by the
// exporter packages. It is not part of the public API.
package internaldefs
