package database

import (
	"database/sql"
	"errors"
)

// ErrNotFound is returned when a referenced entity does not exist in the
// topology store. It is a distinct failure class from route validation
// rejections.
var ErrNotFound = errors.New("record not found")

// notFoundOr maps sql.ErrNoRows onto ErrNotFound, leaving other errors alone
func notFoundOr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
