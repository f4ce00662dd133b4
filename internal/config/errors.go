package config

import "errors"

// ErrMissingSetting indicates a required project setting is empty.
var ErrMissingSetting = errors.New("missing required setting")
