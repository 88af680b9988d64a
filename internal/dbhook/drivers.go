package dbhook

import (
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Drivers lists the database/sql driver names available to hooks.
var Drivers = []string{"sqlite3", "mysql", "pgx"}
