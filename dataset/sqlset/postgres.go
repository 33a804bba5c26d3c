package sqlset

import (
	"fmt"

	// Import of PostgreSQL driver
	_ "github.com/lib/pq"
)

var postgres = dialect{
	driver:        "postgres",
	primaryKey:    `"id" SERIAL PRIMARY KEY`,
	columnsQuery:  `SELECT column_name FROM information_schema.columns WHERE table_name = $1 ORDER BY ordinal_position`,
	placeholderFn: func(i int) string { return fmt.Sprintf("$%d", i) },
}
