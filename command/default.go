package command

import "time"

const (
	DefaultLogLevel = "info"
	DefaultTimeout  = 10 * time.Minute
)

const (
	JSONOutputFlag = "json"
	LogLevelFlag   = "log-level"
)
