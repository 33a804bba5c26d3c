package sqlset

import (
	// Import of sqlite3 driver
	_ "github.com/mattn/go-sqlite3"
)

var sqlite3 = dialect{
	driver:        "sqlite3",
	primaryKey:    `"id" INTEGER PRIMARY KEY AUTOINCREMENT`,
	columnsQuery:  `SELECT name FROM pragma_table_info(?) ORDER BY cid`,
	placeholderFn: func(int) string { return "?" },
}
