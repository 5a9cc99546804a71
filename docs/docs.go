// Package docs embeds the OpenAPI description served under /docs/swagger.yml.
package docs

import _ "embed"

//go:embed swagger.yml
var SwaggerYAML []byte
