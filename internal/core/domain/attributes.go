package domain

// DeviceAttributes is the last observed device state, in device vocabulary.
// A nil field has not been read yet.
type DeviceAttributes struct {
	Mode                *string
	FavoriteLevel       *int
	Temperature         *float64
	Humidity            *int
	PM25                *float64
	LEDOn               *bool
	BuzzerOn            *bool
	ChildLockOn         *bool
	FilterLifeRemaining *int
}

type ConnectionState int

const (
	CONNECTION_UNBOUND ConnectionState = iota
	CONNECTION_DISCOVERING
	CONNECTION_BOUND
	CONNECTION_FAILED
)

func (s ConnectionState) String() string {
	switch s {
	case CONNECTION_DISCOVERING:
		return "discovering"
	case CONNECTION_BOUND:
		return "bound"
	case CONNECTION_FAILED:
		return "failed"
	default:
		return "unbound"
	}
}

func Ptr[T any](v T) *T {
	return &v
}
