package submission

import "fmt"

// DeliveryType identifies the channel a Submission is delivered through.
type DeliveryType uint8

const (
	// UnknownDelivery is the zero value and never valid on a submitted Event.
	UnknownDelivery DeliveryType = iota

	// HTTP delivers the payload as a JSON POST body to Destination.
	HTTP

	// Broker produces the payload to the topic named by Destination.
	Broker
)

func deliveryToString(d DeliveryType) string {
	switch d {
	case HTTP:
		return "HTTP"
	case Broker:
		return "BROKER"
	default:
		return "UNKNOWN"
	}
}

func deliveryFromString(s string) (DeliveryType, error) {
	switch s {
	case "HTTP":
		return HTTP, nil
	case "BROKER", "KAFKA":
		return Broker, nil
	default:
		return 0, fmt.Errorf("unknown delivery type: %s", s)
	}
}

// ParseDeliveryType converts a string into a DeliveryType value. Both
// "BROKER" (storage form) and "KAFKA" (wire form accepted by the
// submit API) map to Broker.
func ParseDeliveryType(s string) (DeliveryType, error) {
	return deliveryFromString(s)
}

func (d DeliveryType) MarshalText() ([]byte, error) {
	return []byte(deliveryToString(d)), nil
}

func (d *DeliveryType) UnmarshalText(text []byte) error {
	dt, err := deliveryFromString(string(text))
	if err != nil {
		return err
	}
	*d = dt
	return nil
}

func (d DeliveryType) String() string {
	return deliveryToString(d)
}
