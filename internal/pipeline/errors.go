package pipeline

import "errors"

// ErrPipeline is the sentinel for query-pipeline errors.
var ErrPipeline = errors.New("pipeline error")

// errNoTerminalStage fires only if a Chain is built without a terminal
// stage (every real chain ends in UpstreamSend).
var errNoTerminalStage = errors.New("pipeline: chain has no terminal stage")
