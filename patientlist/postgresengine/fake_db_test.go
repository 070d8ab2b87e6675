package postgresengine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AntonStoeckl/dynamic-patient-lists-go/patientlist/postgresengine/internal/adapters"
)

// fakeDB records every statement and answers queries with canned rows.
type fakeDB struct {
	mu           sync.Mutex
	statements   []string
	rows         [][]any
	queryErr     error
	rowsErr      error
	execErr      error
	rowsAffected int64
}

func (f *fakeDB) Query(_ context.Context, query string) (adapters.DBRows, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.statements = append(f.statements, query)
	if f.queryErr != nil {
		return nil, f.queryErr
	}

	return &fakeRows{rows: f.rows, err: f.rowsErr, cursor: -1}, nil
}

func (f *fakeDB) Exec(_ context.Context, query string) (adapters.DBResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.statements = append(f.statements, query)
	if f.execErr != nil {
		return nil, f.execErr
	}

	return fakeResult(f.rowsAffected), nil
}

func (f *fakeDB) lastStatement() string {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.statements) == 0 {
		return ""
	}

	return f.statements[len(f.statements)-1]
}

type fakeRows struct {
	rows   [][]any
	err    error
	cursor int
}

func (r *fakeRows) Next() bool {
	r.cursor++
	return r.cursor < len(r.rows)
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.cursor]
	if len(row) != len(dest) {
		return fmt.Errorf("expected %d destinations, got %d", len(row), len(dest))
	}

	for i, value := range row {
		switch d := dest[i].(type) {
		case *int64:
			v, ok := value.(int64)
			if !ok {
				return fmt.Errorf("column %d: cannot scan %T into int64", i, value)
			}
			*d = v
		case *string:
			v, ok := value.(string)
			if !ok {
				return fmt.Errorf("column %d: cannot scan %T into string", i, value)
			}
			*d = v
		case *bool:
			v, ok := value.(bool)
			if !ok {
				return fmt.Errorf("column %d: cannot scan %T into bool", i, value)
			}
			*d = v
		case *time.Time:
			v, ok := value.(time.Time)
			if !ok {
				return fmt.Errorf("column %d: cannot scan %T into time.Time", i, value)
			}
			*d = v
		case *[]byte:
			v, ok := value.(string)
			if !ok {
				return fmt.Errorf("column %d: cannot scan %T into []byte", i, value)
			}
			*d = []byte(v)
		default:
			return fmt.Errorf("column %d: unsupported destination %T", i, dest[i])
		}
	}

	return nil
}

func (r *fakeRows) Err() error {
	return r.err
}

func (r *fakeRows) Close() error {
	return nil
}

type fakeResult int64

func (r fakeResult) RowsAffected() (int64, error) {
	return int64(r), nil
}
