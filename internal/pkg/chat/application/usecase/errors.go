package usecase

import "fmt"

// ErrPersistence indicates an infrastructure/repository failure inside a use case
var ErrPersistence = fmt.Errorf("chat use case persistence error")

// ErrNotFound covers both a conversation that does not exist and one the
// viewer is no longer allowed to see. The two are deliberately
// indistinguishable so closed threads do not leak their existence.
var ErrNotFound = fmt.Errorf("chat use case: conversation not found")
