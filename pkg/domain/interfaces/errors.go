package interfaces

import "github.com/m-mizutani/goerr/v2"

// Storage sentinel errors shared by every repository backend.
var (
	ErrNotFound          = goerr.New("not found")
	ErrDuplicateUsername = goerr.New("username already exists")
	ErrUserLimitReached  = goerr.New("active user limit reached")
)
