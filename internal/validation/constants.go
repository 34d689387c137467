package validation

const (
	// PIN requirements
	PinLength = 4

	// Username requirements
	MinUsernameLength = 3
	MaxUsernameLength = 20

	// Name requirements
	MaxNameLength = 50
)
