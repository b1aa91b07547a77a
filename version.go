package toolflow

import _ "embed"

// Version is the release version of toolflow.
//
//go:embed VERSION
var Version string
