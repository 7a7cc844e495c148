// Package template defines the template renderer contract used by the HTML
// page renderer. The pongo subpackage provides the pongo2 implementation.
package template
