package postgresql

// migrations returns the ordered schema migrations for the PostgreSQL store.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS workflows (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				status TEXT NOT NULL,
				owner_id TEXT NOT NULL DEFAULT '',
				scope TEXT NOT NULL DEFAULT '',
				definition JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_workflows_status ON workflows (status);
			CREATE INDEX IF NOT EXISTS idx_workflows_owner ON workflows (owner_id);

			CREATE TABLE IF NOT EXISTS workflow_executions (
				id TEXT PRIMARY KEY,
				workflow_id TEXT NOT NULL,
				status TEXT NOT NULL,
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				record JSONB NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_executions_workflow
				ON workflow_executions (workflow_id, started_at DESC);

			CREATE TABLE IF NOT EXISTS documents (
				collection TEXT NOT NULL,
				key TEXT NOT NULL,
				document JSONB NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				PRIMARY KEY (collection, key)
			);
		`,
	}
}
