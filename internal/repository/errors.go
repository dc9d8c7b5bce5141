// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// coordinator and handlers to distinguish between failure scenarios
// without inspecting driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a seat, order or user lookup yields no
// rows. Handlers should translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrSeatOccupied is returned when a seat cannot be reserved or removed
// because it is not available.
var ErrSeatOccupied = errors.New("seat occupied")

// ErrDuplicateName is returned when a seat with the same name (ignoring
// case) already exists.
var ErrDuplicateName = errors.New("seat name already exists")

// ErrEmailExists is returned when registering an email that is taken.
var ErrEmailExists = errors.New("email already exists")

// isDuplicateKey reports whether err is a MySQL unique key violation.
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
