// Package executor runs validated, rewritten SQL candidates against the
// read-only warehouse pool and returns a row-capped, timeout-bounded
// result set.
package executor

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrExecution wraps every driver-level failure surfaced to callers, with
// table/column identifiers stripped from the message so a raw driver error
// never leaks warehouse schema details to an end user.
var ErrExecution = errors.New("executor: query execution failed")

// Result is a capped, column-oriented result set.
type Result struct {
	Columns   []string
	Rows      []map[string]any
	Truncated bool
	Duration  time.Duration
}

// Executor wraps a pgxpool.Pool opened against the warehouse's read-only
// role. The pool is dynamically queried rather than schema-managed, since
// the SQL text is generated at request time and not known at compile time.
type Executor struct {
	pool         *pgxpool.Pool
	rowCap       int
	queryTimeout time.Duration
}

// New builds an Executor. rowCap bounds the number of rows ever returned;
// queryTimeout bounds how long any single query is allowed to run.
func New(pool *pgxpool.Pool, rowCap int, queryTimeout time.Duration) *Executor {
	return &Executor{pool: pool, rowCap: rowCap, queryTimeout: queryTimeout}
}

// Execute runs sql with the given named parameters, applying a defensive
// LIMIT and a driver-side row counter so the warehouse never streams more
// than rowCap+1 rows back to the process.
func (e *Executor) Execute(ctx context.Context, sql string, params map[string]any) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, e.queryTimeout)
	defer cancel()

	start := time.Now()

	boundedSQL := appendDefensiveLimit(sql, e.rowCap+1)

	rows, err := e.pool.Query(ctx, boundedSQL, pgx.NamedArgs(params))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s", ErrExecution, sanitizeDriverError(err))
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	columns := make([]string, len(fieldDescs))
	for i, fd := range fieldDescs {
		columns[i] = string(fd.Name)
	}

	var result Result
	result.Columns = columns

	count := 0
	for rows.Next() {
		if count >= e.rowCap {
			result.Truncated = true
			break
		}
		values, err := rows.Values()
		if err != nil {
			return Result{}, fmt.Errorf("%w: %s", ErrExecution, sanitizeDriverError(err))
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			if i < len(values) {
				row[col] = values[i]
			}
		}
		result.Rows = append(result.Rows, row)
		count++
	}
	if err := rows.Err(); err != nil {
		return Result{}, fmt.Errorf("%w: %s", ErrExecution, sanitizeDriverError(err))
	}

	result.Duration = time.Since(start)
	return result, nil
}

var limitPattern = regexp.MustCompile(`(?i)\bLIMIT\s+\d+\b`)

// appendDefensiveLimit caps the query at n rows regardless of what the
// generator produced: replaces an existing LIMIT if it is larger than n,
// or appends one if none is present.
func appendDefensiveLimit(sql string, n int) string {
	if limitPattern.MatchString(sql) {
		return limitPattern.ReplaceAllStringFunc(sql, func(match string) string {
			existing, err := strconv.Atoi(strings.TrimSpace(match[len("LIMIT"):]))
			if err == nil && existing <= n {
				return match
			}
			return fmt.Sprintf("LIMIT %d", n)
		})
	}
	return fmt.Sprintf("%s LIMIT %d", sql, n)
}

// quotedIdentifierPattern matches pgx/Postgres error text like
// `column "foo" does not exist` or `relation "bar" does not exist`, where
// the quoted token is a warehouse identifier that should never reach an
// end user verbatim.
var quotedIdentifierPattern = regexp.MustCompile(`"[^"]*"`)

func sanitizeDriverError(err error) string {
	msg := err.Error()
	return quotedIdentifierPattern.ReplaceAllString(msg, "<redacted>")
}
