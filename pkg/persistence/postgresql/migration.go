package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Flow versions are stored as whole documents
			CREATE TABLE flow_versions (
				id VARCHAR(255) PRIMARY KEY,
				flow_id VARCHAR(255) NOT NULL,
				state VARCHAR(20) NOT NULL CHECK (state IN ('DRAFT', 'LOCKED')),
				revision BIGINT NOT NULL,
				document JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_flow_versions_flow_id ON flow_versions(flow_id, created_at);
		`,
		2: `
			-- Validity is denormalized for listing without decoding documents
			ALTER TABLE flow_versions ADD COLUMN valid BOOLEAN NOT NULL DEFAULT FALSE;
		`,
	}
}
