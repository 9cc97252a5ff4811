package core

import "errors"

// ErrNilDependency is returned when Core is built without a component
var ErrNilDependency = errors.New("core: nil dependency")
