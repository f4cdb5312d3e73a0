// Package remote defines the boundary to the hosted session table: the row
// shape, the table and authentication interfaces, and the cached identity
// of the signed-in user.
package remote

import (
	"context"
	"errors"
)

var (
	// ErrNoIdentity means no user is signed in. It is an expected state:
	// remote work is skipped and local data stays pending.
	ErrNoIdentity = errors.New("no authenticated user")

	// ErrSchema means the remote table is missing or does not have the
	// expected columns. Implementations wrap the driver error with it.
	ErrSchema = errors.New("remote schema mismatch")
)

// IsSchemaError reports whether err is or wraps ErrSchema.
func IsSchemaError(err error) bool {
	return errors.Is(err, ErrSchema)
}

// SchemaHint is the operator-facing message logged for schema errors.
const SchemaHint = "the remote sessions table is missing or out of date; run `dojo migrate` or apply the sessions table migration to the hosted database"

// Pinger checks that the remote answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Table is the row-oriented remote session table. Every operation is
// scoped to one user.
type Table interface {
	Pinger
	// Upsert inserts the row or replaces the row with the same id.
	Upsert(ctx context.Context, row Row) error
	// Delete removes the row with the given id. Deleting an absent row is not an error.
	Delete(ctx context.Context, userID, id string) error
	// SelectAll returns every row belonging to userID.
	SelectAll(ctx context.Context, userID string) ([]Row, error)
}

// Authenticator resolves the signed-in user. It returns "" and a nil error
// when there is no session.
type Authenticator interface {
	CurrentUser(ctx context.Context) (string, error)
}
