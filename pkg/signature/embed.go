package signature

import "embed"

// builtinFS holds the signatures shipped with the binary.
//
//go:embed signatures/*.yml
var builtinFS embed.FS
