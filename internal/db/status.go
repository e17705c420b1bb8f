package db

import "context"

// TableCount pairs a table name with its row count
type TableCount struct {
	Name string `json:"name"`
	Rows int64  `json:"rows"`
}

// Status returns a row count per user table, for the /api/db/status probe
func (s *Store) Status(ctx context.Context) ([]TableCount, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' AND name NOT LIKE 'goose_%' ORDER BY name",
	)
	if err != nil {
		return nil, err
	}
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, err
		}
		names = append(names, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]TableCount, 0, len(names))
	for _, name := range names {
		var n int64
		if err := s.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+name).Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, TableCount{Name: name, Rows: n})
	}
	return out, nil
}
