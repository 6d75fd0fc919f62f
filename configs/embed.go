// Package configs provides the embedded configuration template for
// ragkit. Embedding at build time keeps the template available in all
// distributions, source builds and binary releases alike.
package configs

import _ "embed"

// ConfigTemplate is the annotated template written by `ragkit config
// init` to ~/.ragkit/config.yaml. Every value matches the hardcoded
// defaults, so a freshly initialized config changes nothing until
// edited.
//
//go:embed config.example.yaml
var ConfigTemplate string
