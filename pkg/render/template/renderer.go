package template

import (
	"io"
)

// TemplateRenderer is the seam page renderers use to execute templates.
type TemplateRenderer interface {
	// RenderTemplate executes a named template from the configured loaders.
	RenderTemplate(name string, data any, out ...io.Writer) (string, error)
	// RenderString parses and executes inline template content.
	RenderString(content string, data any, out ...io.Writer) (string, error)
	RegisterFilter(name string, fn func(input any, param any) (any, error)) error
	GlobalContext(data any) error
}
