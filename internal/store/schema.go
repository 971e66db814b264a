package store

import "fmt"

// DefaultEmbedDimension matches all-minilm:l6-v2, the default embedding model.
const DefaultEmbedDimension = 384

// Tables lists every table in dependency order (children before parents).
var Tables = []string{
	"tool_call",
	"conversation_file",
	"message_file",
	"file_edit",
	"message",
	"billing_event",
	"sync_state",
	"conversation",
}

// SchemaSQL returns the schema initialization SQL. The HNSW dimension must
// match the embedder output; the zero-filled placeholder vectors written at
// sync time already have this width.
func SchemaSQL(embedDimension int) string {
	return fmt.Sprintf(`
    -- ==========================================================================
    -- CONVERSATION TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS conversation SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS source ON conversation TYPE string;
    DEFINE FIELD IF NOT EXISTS title ON conversation TYPE string;
    DEFINE FIELD IF NOT EXISTS workspace_path ON conversation TYPE string;
    DEFINE FIELD IF NOT EXISTS model ON conversation TYPE string;
    DEFINE FIELD IF NOT EXISTS mode ON conversation TYPE string;
    DEFINE FIELD IF NOT EXISTS created_at ON conversation TYPE string;
    DEFINE FIELD IF NOT EXISTS updated_at ON conversation TYPE string;
    DEFINE FIELD IF NOT EXISTS message_count ON conversation TYPE int DEFAULT 0;
    -- Serialized SourceRef; decoded with ParseSourceRef on read.
    DEFINE FIELD IF NOT EXISTS source_ref ON conversation TYPE string;
    DEFINE FIELD IF NOT EXISTS tokens ON conversation TYPE object FLEXIBLE;
    DEFINE FIELD IF NOT EXISTS lines_added ON conversation TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS lines_removed ON conversation TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS compaction_count ON conversation TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS git_branch ON conversation TYPE string;
    DEFINE FIELD IF NOT EXISTS git_commit ON conversation TYPE string;
    DEFINE FIELD IF NOT EXISTS git_remote ON conversation TYPE string;

    DEFINE INDEX IF NOT EXISTS conversation_source ON conversation FIELDS source;
    DEFINE INDEX IF NOT EXISTS conversation_updated ON conversation FIELDS updated_at;
    DEFINE INDEX IF NOT EXISTS conversation_branch ON conversation FIELDS git_branch;

    -- ==========================================================================
    -- MESSAGE TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS message SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS conversation ON message TYPE record<conversation>;
    DEFINE FIELD IF NOT EXISTS role ON message TYPE string;
    DEFINE FIELD IF NOT EXISTS content ON message TYPE string;
    -- Content with tool-output blocks stripped; the only field search ranks on.
    DEFINE FIELD IF NOT EXISTS indexed_content ON message TYPE string;
    DEFINE FIELD IF NOT EXISTS timestamp ON message TYPE string;
    DEFINE FIELD IF NOT EXISTS message_index ON message TYPE int;
    DEFINE FIELD IF NOT EXISTS input_tokens ON message TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS output_tokens ON message TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS lines_added ON message TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS lines_removed ON message TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS embedding ON message TYPE array<float>;
    DEFINE FIELD IF NOT EXISTS is_compact_summary ON message TYPE bool DEFAULT false;
    DEFINE FIELD IF NOT EXISTS snapshot_ref ON message TYPE string;

    DEFINE INDEX IF NOT EXISTS message_conversation ON message FIELDS conversation;
    DEFINE INDEX IF NOT EXISTS message_embedding ON message FIELDS embedding HNSW DIMENSION %d DIST COSINE TYPE F32;
    DEFINE ANALYZER IF NOT EXISTS message_analyzer TOKENIZERS class FILTERS lowercase, ascii, snowball(english);
    DEFINE INDEX IF NOT EXISTS message_content_ft ON message FIELDS indexed_content FULLTEXT ANALYZER message_analyzer BM25;

    -- ==========================================================================
    -- TOOL CALL TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS tool_call SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS conversation ON tool_call TYPE record<conversation>;
    DEFINE FIELD IF NOT EXISTS message ON tool_call TYPE record<message>;
    DEFINE FIELD IF NOT EXISTS name ON tool_call TYPE string;
    DEFINE FIELD IF NOT EXISTS input ON tool_call TYPE string;
    DEFINE FIELD IF NOT EXISTS output ON tool_call TYPE string;
    DEFINE FIELD IF NOT EXISTS timestamp ON tool_call TYPE string;
    DEFINE FIELD IF NOT EXISTS duration_ms ON tool_call TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS is_error ON tool_call TYPE bool DEFAULT false;

    DEFINE INDEX IF NOT EXISTS tool_call_conversation ON tool_call FIELDS conversation;
    DEFINE INDEX IF NOT EXISTS tool_call_message ON tool_call FIELDS message;

    -- ==========================================================================
    -- FILE RELATION TABLES
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS conversation_file SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS conversation ON conversation_file TYPE record<conversation>;
    DEFINE FIELD IF NOT EXISTS file_path ON conversation_file TYPE string;
    DEFINE FIELD IF NOT EXISTS role ON conversation_file TYPE string;
    DEFINE INDEX IF NOT EXISTS conversation_file_conversation ON conversation_file FIELDS conversation;

    DEFINE TABLE IF NOT EXISTS message_file SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS conversation ON message_file TYPE record<conversation>;
    DEFINE FIELD IF NOT EXISTS message ON message_file TYPE record<message>;
    DEFINE FIELD IF NOT EXISTS file_path ON message_file TYPE string;
    DEFINE FIELD IF NOT EXISTS role ON message_file TYPE string;
    DEFINE INDEX IF NOT EXISTS message_file_conversation ON message_file FIELDS conversation;

    DEFINE TABLE IF NOT EXISTS file_edit SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS conversation ON file_edit TYPE record<conversation>;
    DEFINE FIELD IF NOT EXISTS message ON file_edit TYPE record<message>;
    DEFINE FIELD IF NOT EXISTS file_path ON file_edit TYPE string;
    DEFINE FIELD IF NOT EXISTS lines_added ON file_edit TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS lines_removed ON file_edit TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS timestamp ON file_edit TYPE string;
    DEFINE INDEX IF NOT EXISTS file_edit_conversation ON file_edit FIELDS conversation;

    -- ==========================================================================
    -- BILLING EVENT TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS billing_event SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS conversation ON billing_event TYPE string;
    DEFINE FIELD IF NOT EXISTS timestamp ON billing_event TYPE string;
    DEFINE FIELD IF NOT EXISTS model ON billing_event TYPE string;
    DEFINE FIELD IF NOT EXISTS kind ON billing_event TYPE string;
    DEFINE FIELD IF NOT EXISTS input_tokens ON billing_event TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS output_tokens ON billing_event TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS cache_create_tokens ON billing_event TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS cache_read_tokens ON billing_event TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS cost_usd ON billing_event TYPE float DEFAULT 0.0;
    DEFINE FIELD IF NOT EXISTS origin_batch ON billing_event TYPE string;

    DEFINE INDEX IF NOT EXISTS billing_event_conversation ON billing_event FIELDS conversation;
    DEFINE INDEX IF NOT EXISTS billing_event_batch ON billing_event FIELDS origin_batch;

    -- ==========================================================================
    -- SYNC STATE TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS sync_state SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS source ON sync_state TYPE string;
    DEFINE FIELD IF NOT EXISTS origin_path ON sync_state TYPE string;
    DEFINE FIELD IF NOT EXISTS last_synced_at ON sync_state TYPE string;
    DEFINE FIELD IF NOT EXISTS last_modified ON sync_state TYPE string;

    DEFINE INDEX IF NOT EXISTS sync_state_source ON sync_state FIELDS source;
`, embedDimension)
}
