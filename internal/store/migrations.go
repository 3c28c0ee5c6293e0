// File: internal/store/migrations.go
package store

// Migration is one schema change applied at startup.
type Migration struct {
	Name string
	SQL  string
}

var sqliteMigrations = []Migration{
	{
		Name: "create_subscribers",
		SQL: `CREATE TABLE IF NOT EXISTS subscribers (
			subscriber_id    TEXT PRIMARY KEY,
			watches          TEXT NOT NULL DEFAULT '[]',
			green_threshold  INTEGER NOT NULL DEFAULT 30,
			yellow_threshold INTEGER NOT NULL DEFAULT 35,
			updated_at       TIMESTAMP NOT NULL
		)`,
	},
}

var postgresMigrations = []Migration{
	{
		Name: "create_subscribers",
		SQL: `CREATE TABLE IF NOT EXISTS subscribers (
			subscriber_id    TEXT PRIMARY KEY,
			watches          JSONB NOT NULL DEFAULT '[]',
			green_threshold  INTEGER NOT NULL DEFAULT 30,
			yellow_threshold INTEGER NOT NULL DEFAULT 35,
			updated_at       TIMESTAMPTZ NOT NULL
		)`,
	},
}
