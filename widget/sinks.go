package widget

const (
	WorldZoom  = 2
	StreetZoom = 13
)

var WorldCenter = Coordinates{Latitude: 20, Longitude: 0}

// Details is what the details panel shows. Missing values are already
// replaced with Placeholder.
type Details struct {
	IP       string `json:"ip"`
	Location string `json:"location"`
	ISP      string `json:"isp"`
	Timezone string `json:"timezone"`
}

type MapView interface {
	SetView(center Coordinates, zoom int)
	// ReplaceMarker removes the live marker, if any, and places a new one
	// with an open popup.
	ReplaceMarker(at Coordinates, popup string)
}

type DetailsPanel interface {
	ShowDetails(details Details)
	ShowTimezone(text string)
	// ShowError writes the shared error region. An empty message clears it.
	ShowError(message string)
	ShowLoading(visible bool)
}
