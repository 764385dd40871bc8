package sessions

import (
	"context"
	"errors"
	"time"

	"airdesk/internal/intake"
)

// DefaultTTL bounds how long an idle session is kept.
const DefaultTTL = 30 * time.Minute

// ErrNotFound indicates the session expired or never existed.
var ErrNotFound = errors.New("intake session not found")

// Store saves and loads intake sessions. Sessions are scoped to a firm so a
// caller cannot read another tenant's session by ID.
type Store interface {
	Save(ctx context.Context, firmID string, session *intake.Session) error
	Load(ctx context.Context, firmID, id string) (*intake.Session, error)
	Delete(ctx context.Context, firmID, id string) error
	Close() error
}

func key(firmID, id string) string {
	return firmID + ":" + id
}
