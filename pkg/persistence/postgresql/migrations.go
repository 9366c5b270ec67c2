package postgresql

// migrations returns the versioned schema for the intent pipeline store.
// The audit table carries no UPDATE or DELETE path anywhere in this
// package; append-only is enforced by omission.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS workflows (
				id UUID PRIMARY KEY,
				organization_id TEXT NOT NULL,
				name TEXT NOT NULL,
				state TEXT NOT NULL,
				icp_document JSONB,
				competitor_analysis JSONB,
				seed_keywords JSONB,
				topic_clusters JSONB,
				validation_results JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_workflows_org ON workflows (organization_id);
			CREATE INDEX IF NOT EXISTS idx_workflows_org_state ON workflows (organization_id, state);

			CREATE TABLE IF NOT EXISTS workflow_transitions (
				id UUID PRIMARY KEY,
				workflow_id UUID NOT NULL REFERENCES workflows (id),
				organization_id TEXT NOT NULL,
				previous_state TEXT NOT NULL,
				new_state TEXT NOT NULL,
				reason TEXT NOT NULL DEFAULT '',
				actor TEXT NOT NULL,
				forced BOOLEAN NOT NULL DEFAULT FALSE,
				metadata JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_transitions_workflow ON workflow_transitions (workflow_id, created_at);
			CREATE INDEX IF NOT EXISTS idx_transitions_org_created ON workflow_transitions (organization_id, created_at);

			CREATE TABLE IF NOT EXISTS workflow_approvals (
				id UUID PRIMARY KEY,
				workflow_id UUID NOT NULL REFERENCES workflows (id),
				organization_id TEXT NOT NULL,
				approval_type TEXT NOT NULL,
				decision TEXT NOT NULL,
				approver_id TEXT NOT NULL,
				feedback TEXT NOT NULL DEFAULT '',
				reset_to_step INTEGER NOT NULL DEFAULT 0,
				decided_at TIMESTAMP WITH TIME ZONE NOT NULL,
				UNIQUE (workflow_id, approval_type)
			);

			CREATE TABLE IF NOT EXISTS articles (
				id UUID PRIMARY KEY,
				workflow_id UUID NOT NULL REFERENCES workflows (id),
				organization_id TEXT NOT NULL,
				title TEXT NOT NULL,
				subtopic_id TEXT NOT NULL DEFAULT '',
				generation_status TEXT NOT NULL,
				link_status TEXT NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_articles_workflow ON articles (workflow_id);

			CREATE TABLE IF NOT EXISTS keywords (
				id UUID PRIMARY KEY,
				workflow_id UUID NOT NULL REFERENCES workflows (id),
				organization_id TEXT NOT NULL,
				phrase TEXT NOT NULL,
				seed BOOLEAN NOT NULL DEFAULT FALSE,
				longtail_status TEXT NOT NULL,
				search_volume INTEGER NOT NULL DEFAULT 0,
				cluster_id TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_keywords_workflow ON keywords (workflow_id);
		`,
	}
}
