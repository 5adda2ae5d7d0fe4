package doctor

import (
	"context"
	"database/sql"
	"fmt"
)

// Querier is the slice of *sql.DB the database check needs.
type Querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DatabaseCheck verifies the SQLite database answers queries, passes its own
// integrity check, and has its migrations applied.
type DatabaseCheck struct {
	db Querier
}

// NewDatabaseCheck creates a database check over an open connection.
func NewDatabaseCheck(db Querier) *DatabaseCheck {
	return &DatabaseCheck{db: db}
}

func (c *DatabaseCheck) Name() string {
	return "Database"
}

func (c *DatabaseCheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}

	if c.db == nil {
		result.Items = append(result.Items, CheckItem{
			Label:  "connection",
			Status: StatusFail,
			Detail: "no database handle",
		})
		return result
	}

	var verdict string
	switch err := c.db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&verdict); {
	case err != nil:
		result.Items = append(result.Items, CheckItem{
			Label:  "integrity",
			Status: StatusFail,
			Detail: err.Error(),
		})
	case verdict != "ok":
		result.Items = append(result.Items, CheckItem{
			Label:  "integrity",
			Status: StatusFail,
			Detail: verdict,
		})
	default:
		result.Items = append(result.Items, CheckItem{
			Label:  "integrity",
			Status: StatusPass,
		})
	}

	var applied int
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&applied); err != nil {
		result.Items = append(result.Items, CheckItem{
			Label:  "migrations",
			Status: StatusFail,
			Detail: err.Error(),
		})
	} else {
		result.Items = append(result.Items, CheckItem{
			Label:  "migrations",
			Status: StatusPass,
			Detail: fmt.Sprintf("%d applied", applied),
		})
	}

	return result
}
