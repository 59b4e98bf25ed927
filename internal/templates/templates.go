// Package templates holds the text templates used to render generated sources.
package templates

import (
	"embed"
	"fmt"
)

//go:embed *.tmpl
var templatesFS embed.FS

// ArraySource is the template that renders the C++ byte-array declarations.
// It defines the "header" and "trailer" blocks written around the array body.
const ArraySource = "array.cc.tmpl"

// Get returns the content of the specified template file.
func Get(name string) (string, error) {
	content, err := templatesFS.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("template %s not found: %w", name, err)
	}
	return string(content), nil
}
