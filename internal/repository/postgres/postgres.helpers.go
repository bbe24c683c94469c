package postgres

import (
	"database/sql"
	"fmt"
	"time"
)

// buildTimeRangeWhere assembles a WHERE clause for an optional
// created-at range on top of preexisting args, returning the clause
// (with leading space, empty when no condition applies) and the grown
// args slice.
func buildTimeRangeWhere(column string, from, to *time.Time, args []interface{}) (string, []interface{}) {
	conds := ""
	appendCond := func(cond string) {
		if conds == "" {
			conds = " WHERE " + cond
		} else {
			conds += " AND " + cond
		}
	}

	if from != nil {
		args = append(args, *from)
		appendCond(fmt.Sprintf("%s >= $%d", column, len(args)))
	}
	if to != nil {
		args = append(args, *to)
		appendCond(fmt.Sprintf("%s <= $%d", column, len(args)))
	}
	return conds, args
}

func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

func nullableFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
