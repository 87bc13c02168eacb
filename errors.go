package director

import "errors"

var (
	ErrNotInitialized  = errors.New("director: difficulty state not initialized")
	ErrUnknownPriority = errors.New("director: unknown priority")
	ErrNoModel         = errors.New("director: no model file found")
)
