package device

import "context"

// Static always reports the same position. Useful for kiosks and for
// headless deployments where the host location is known.
type Static struct {
	Position Position
}

func NewStatic(lat, lng float64, timezone string) *Static {
	return &Static{
		Position: Position{
			Latitude:  lat,
			Longitude: lng,
			Timezone:  timezone,
		},
	}
}

func (s *Static) Available() bool { return true }

func (s *Static) CurrentPosition(ctx context.Context, _ Options) (Position, error) {
	if err := ctx.Err(); err != nil {
		return Position{}, ErrTimeout
	}

	return s.Position, nil
}

type unsupported struct{}

// Unsupported is a positioner for clients without any positioning
// capability.
var Unsupported Positioner = unsupported{}

func (unsupported) Available() bool { return false }

func (unsupported) CurrentPosition(context.Context, Options) (Position, error) {
	return Position{}, ErrUnsupported
}
