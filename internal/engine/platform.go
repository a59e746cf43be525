package engine

// Platform names the runtime environment's motion capability. It is
// resolved once at startup and injected into the engine; nothing in the
// pipeline sniffs user agents or queries the host ad hoc.
type Platform int

const (
	NoSensor Platform = iota
	NativeSensor
	SerialSensor
	BrowserMotion
	Simulator
)

func (p Platform) String() string {
	switch p {
	case NativeSensor:
		return "native"
	case SerialSensor:
		return "serial"
	case BrowserMotion:
		return "browser"
	case Simulator:
		return "simulator"
	default:
		return "none"
	}
}

// DefaultProfile maps a platform to its calibration profile name.
// Browser deployments targeting iOS Safari override this with
// "browser-ios" through configuration.
func (p Platform) DefaultProfile() string {
	switch p {
	case NativeSensor:
		return "native"
	case SerialSensor:
		return "serial"
	case BrowserMotion:
		return "browser-other"
	default:
		return "simulator"
	}
}
