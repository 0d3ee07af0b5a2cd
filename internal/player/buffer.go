package player

// DeviceClass selects a buffer tuning profile. TV-class devices trade
// memory for smoother long-form playback; handhelds keep buffers small.
type DeviceClass string

const (
	DeviceClassHandheld DeviceClass = "handheld"
	DeviceClassTV       DeviceClass = "tv"
)

// BufferConfig is the engine's buffer/memory tuning, passed at handle
// construction. The session core exposes this surface but never hardcodes
// the numbers.
type BufferConfig struct {
	ForwardBufferSeconds int   // How far ahead of the playhead to buffer
	MinBufferForPlayback int   // Seconds buffered before playback may start
	MaxBufferBytes       int64 // Hard cap on buffered media memory
}

// ProfileFor returns the default buffer profile for a device class.
// Unknown classes get the handheld profile.
func ProfileFor(class DeviceClass) BufferConfig {
	switch class {
	case DeviceClassTV:
		return BufferConfig{
			ForwardBufferSeconds: 120,
			MinBufferForPlayback: 4,
			MaxBufferBytes:       256 << 20,
		}
	default:
		return BufferConfig{
			ForwardBufferSeconds: 30,
			MinBufferForPlayback: 2,
			MaxBufferBytes:       64 << 20,
		}
	}
}
