package widget

const (
	MessageEmptyInput          = "Please enter an IP address."
	MessageLookupFailed        = "Could not fetch location."
	MessageNetworkError        = "Error fetching data."
	MessageCoordinatesMissing  = "Coordinates not available for this location."
	MessagePermissionDenied    = "Permission denied."
	MessagePositionUnavailable = "Position unavailable or timed out."
	MessageUnsupported         = "Geolocation not supported by your browser."

	Placeholder = "-"

	DevicePopup  = "Your Device (GPS)"
	DefaultPopup = "Location"
)
