package store

import "errors"

// ErrNotFound indicates the referenced memory does not exist.
var ErrNotFound = errors.New("memory not found")

// ErrOwnerScope indicates an operation tried to relate memories across
// owners. This is a contract violation, rejected hard rather than filtered.
var ErrOwnerScope = errors.New("memories belong to different owners")
