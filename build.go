package airmonitor

// Firmware identifiers, set at build time via -ldflags, e.g.
//
//	go build -ldflags "-X airmonitor.Version=0.5.3 -X airmonitor.Flavor=TTGO_T7 -X airmonitor.Target=prod"
var (
	Version = "0.0.0-dev"
	Flavor  = "generic"
	Target  = "dev"
)

// Revision is a numeric firmware code shown on the welcome screen.
var Revision = "0"
