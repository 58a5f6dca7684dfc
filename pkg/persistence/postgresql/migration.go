package postgresql

// migrations returns the ordered schema migrations for the docflow store.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS workflows (
				id UUID PRIMARY KEY,
				name TEXT NOT NULL,
				workflow_order INTEGER NOT NULL DEFAULT 0,
				enabled BOOLEAN NOT NULL DEFAULT TRUE,
				triggers JSONB NOT NULL DEFAULT '[]',
				actions JSONB NOT NULL DEFAULT '[]',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_workflows_enabled_order
				ON workflows (enabled, workflow_order);

			CREATE TABLE IF NOT EXISTS documents (
				id TEXT PRIMARY KEY,
				title TEXT NOT NULL DEFAULT '',
				original_filename TEXT NOT NULL DEFAULT '',
				storage_path_name TEXT NOT NULL DEFAULT '',
				source TEXT NOT NULL DEFAULT '',
				mail_rule_id TEXT,
				content TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				added_at TIMESTAMP WITH TIME ZONE NOT NULL,
				modified_at TIMESTAMP WITH TIME ZONE NOT NULL,
				correspondent_id TEXT,
				document_type_id TEXT,
				storage_path_id TEXT,
				owner_id TEXT,
				tag_ids JSONB NOT NULL DEFAULT '[]',
				permissions JSONB NOT NULL DEFAULT '{}',
				custom_fields JSONB NOT NULL DEFAULT '[]'
			);

			CREATE TABLE IF NOT EXISTS workflow_runs (
				id UUID PRIMARY KEY,
				workflow_id UUID NOT NULL,
				document_id TEXT NOT NULL,
				trigger_type TEXT NOT NULL,
				run_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_workflow_runs_pair
				ON workflow_runs (workflow_id, document_id, run_at DESC);
		`,
	}
}
