package ports

import "time"

// Dependency describes one outbound call to a remote system for telemetry.
type Dependency struct {
	Name       string
	Target     string
	Data       string
	ResultCode int
	Duration   time.Duration
	Success    bool
}

// Telemetry records dependency calls. Each retry attempt of a remote call is
// tracked as its own failed dependency before the retry fires.
type Telemetry interface {
	TrackDependency(dep Dependency)
}
