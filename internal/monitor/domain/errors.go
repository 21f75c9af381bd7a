package monitor

import "errors"

// ErrNoSample indicates the sample source has no reading for an entity.
var ErrNoSample = errors.New("monitor: no sample available")
