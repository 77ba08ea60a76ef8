package database

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// ListParams carries the paging, search and sort options shared by list queries.
// SortBy is a client key resolved against a per-entity whitelist.
type ListParams struct {
	Search string
	SortBy string
	Desc   bool
	Limit  int32
	Offset int32
}

// NameExistsParams checks for an active row with Name other than ExcludeID.
// Pass uuid.Nil as ExcludeID on create.
type NameExistsParams struct {
	Name      string
	ExcludeID uuid.UUID
}

type SoftDeleteParams struct {
	ID        uuid.UUID
	DeletedBy pgtype.Text
}

// orderBy maps a client sort key to an ORDER BY expression. Unknown keys fall
// back to the fallback key. idCol is appended as a tiebreak so paging is stable.
func orderBy(columns map[string]string, key, fallback string, desc bool, idCol string) string {
	col, ok := columns[strings.ToLower(key)]
	if !ok {
		col = columns[fallback]
	}
	dir := " ASC"
	if desc {
		dir = " DESC"
	}
	return col + dir + ", " + idCol
}

func collect[T any](rows pgx.Rows, scan func(pgx.Row) (T, error)) ([]T, error) {
	defer rows.Close()
	var items []T
	for rows.Next() {
		i, err := scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func collectStrings(rows pgx.Rows) ([]string, error) {
	return collect(rows, func(row pgx.Row) (string, error) {
		var s string
		err := row.Scan(&s)
		return s, err
	})
}

// paged appends ORDER BY and LIMIT/OFFSET to a list query. limitArg is the
// placeholder index of the limit; the offset follows it.
func paged(base, order string, limitArg int) string {
	return fmt.Sprintf("%s\nORDER BY %s\nLIMIT $%d OFFSET $%d", base, order, limitArg, limitArg+1)
}
