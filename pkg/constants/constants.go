package constants

import "time"

// CLIName is the name used in user-facing output to refer to the CLI
const CLIName = "pipelint"

// ConfigFileName is the project configuration file searched for in the working directory and its parents
const ConfigFileName = ".pipelint.yaml"

// NodeHolder is the reserved property key that additionalProperties never flags
const NodeHolder = "~"

// DefaultContextLines is the number of source lines printed around a diagnostic
const DefaultContextLines = 3

// DefaultMaxConcurrency bounds the number of files validated in parallel
const DefaultMaxConcurrency = 8

// WatchDebounce is the delay before revalidating files after a change
const WatchDebounce = 300 * time.Millisecond

// PipelineExtensions are the file extensions considered pipeline documents
var PipelineExtensions = []string{".yml", ".yaml"}
