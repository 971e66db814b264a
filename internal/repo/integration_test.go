// Integration tests against a real SurrealDB container.
package repo

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mfeldheim/hindsight/internal/models"
	"github.com/mfeldheim/hindsight/internal/store"
)

var (
	testClient *store.Client
	testLog    = slog.New(slog.NewTextHandler(io.Discard, nil))
)

// TestMain sets up and tears down the SurrealDB container for all tests.
func TestMain(m *testing.M) {
	// Disable ryuk (cleanup container) as it can cause issues in some environments
	os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "surrealdb/surrealdb:v3.0.0-beta.1",
			ExposedPorts: []string{"8000/tcp"},
			Cmd:          []string{"start", "--log", "info", "--user", "root", "--pass", "root"},
			WaitingFor:   wait.ForLog("Started web server").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		log.Fatalf("Failed to start SurrealDB container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		log.Fatalf("Failed to get container host: %v", err)
	}
	// Workaround: testcontainers may return "null" as host in some environments
	if host == "" || host == "null" {
		host = "localhost"
	}
	mappedPort, err := container.MappedPort(ctx, "8000")
	if err != nil {
		log.Fatalf("Failed to get mapped port: %v", err)
	}

	testClient, err = store.NewClient(ctx, store.Config{
		URL:            fmt.Sprintf("ws://%s:%s/rpc", host, mappedPort.Port()),
		Namespace:      "test",
		Database:       "test",
		Username:       "root",
		Password:       "root",
		AuthLevel:      "root",
		EmbedDimension: store.DefaultEmbedDimension,
	}, testLog)
	if err != nil {
		log.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := testClient.InitSchema(ctx); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	code := m.Run()

	_ = testClient.Close(ctx)
	_ = container.Terminate(ctx)

	os.Exit(code)
}

func zeroVec() []float32 {
	return make([]float32, store.DefaultEmbedDimension)
}

func testConversation(source, originalID, updatedAt string, messageCount int) models.Conversation {
	id := models.ConversationID(source, originalID)
	return models.Conversation{
		ID:           models.RID("conversation", id),
		Source:       source,
		Title:        "test conversation " + originalID,
		CreatedAt:    "2026-08-01T09:00:00Z",
		UpdatedAt:    updatedAt,
		MessageCount: messageCount,
	}
}

func testMessage(convID string, idx int, role, content string) models.Message {
	return models.Message{
		ID:             models.RID("message", models.MessageID(convID, idx)),
		Conversation:   models.RID("conversation", convID),
		Role:           role,
		Content:        content,
		IndexedContent: content,
		Timestamp:      "2026-08-01T09:00:00Z",
		MessageIndex:   idx,
		Embedding:      zeroVec(),
	}
}

func TestUpsertConversation_Idempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewConversations(testClient, testLog)
	msgs := NewMessages(testClient, testLog, nil, DefaultSearchConfig())

	conv := testConversation("claude-code", "idem-1", "2026-08-10T10:00:00Z", 2)
	convID := conv.RowID()

	for i := 0; i < 2; i++ {
		if err := repo.Upsert(ctx, conv); err != nil {
			t.Fatalf("upsert %d: %v", i+1, err)
		}
		if err := msgs.BulkInsert(ctx, []models.Message{
			testMessage(convID, 0, models.RoleUser, "hello"),
			testMessage(convID, 1, models.RoleAssistant, "hi there"),
		}); err != nil {
			t.Fatalf("insert messages %d: %v", i+1, err)
		}
	}

	got, err := msgs.FindByConversation(ctx, convID)
	if err != nil {
		t.Fatalf("find messages: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("after re-import: %d messages, want 2 (no duplicates)", len(got))
	}

	found, err := repo.FindByID(ctx, convID)
	if err != nil {
		t.Fatalf("find conversation: %v", err)
	}
	if found == nil || found.UpdatedAt != conv.UpdatedAt {
		t.Errorf("conversation not replaced cleanly: %+v", found)
	}
}

func TestBulkInsertNew_SkipsExisting(t *testing.T) {
	ctx := context.Background()
	repo := NewConversations(testClient, testLog)
	msgs := NewMessages(testClient, testLog, nil, DefaultSearchConfig())

	conv := testConversation("claude-code", "grow-1", "2026-08-11T10:00:00Z", 1)
	convID := conv.RowID()
	if err := repo.Upsert(ctx, conv); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	first := testMessage(convID, 0, models.RoleUser, "original turn")
	if err := msgs.BulkInsert(ctx, []models.Message{first}); err != nil {
		t.Fatalf("seed insert: %v", err)
	}

	// Re-sync with one old and one new message; only the new one lands.
	batch := []models.Message{
		first,
		testMessage(convID, 1, models.RoleAssistant, "new answer"),
	}
	existing, err := msgs.GetExistingIDsByConversation(ctx, convID)
	if err != nil {
		t.Fatalf("existing ids: %v", err)
	}
	inserted, err := msgs.BulkInsertNew(ctx, batch, existing)
	if err != nil {
		t.Fatalf("bulk insert new: %v", err)
	}
	if inserted != 1 {
		t.Errorf("inserted = %d, want 1", inserted)
	}

	got, err := msgs.FindByConversation(ctx, convID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("total messages = %d, want 2", len(got))
	}
}

func TestSearch_FTSFindsContent(t *testing.T) {
	ctx := context.Background()
	repo := NewConversations(testClient, testLog)
	msgs := NewMessages(testClient, testLog, nil, DefaultSearchConfig())

	conv := testConversation("claude-code", "search-1", "2026-08-12T10:00:00Z", 1)
	convID := conv.RowID()
	if err := repo.Upsert(ctx, conv); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := msgs.BulkInsert(ctx, []models.Message{
		testMessage(convID, 0, models.RoleUser, "there is an auth bug in the session handler"),
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	matches, mode, err := msgs.Search(ctx, "auth bug", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	// No embedder is wired, so the hybrid tier degrades.
	if mode == ModeHybrid {
		t.Errorf("mode = %s, expected degradation below hybrid without an embedder", mode)
	}
	found := false
	for _, m := range matches {
		if models.IDString(m.Message.Conversation) == convID {
			found = true
			if m.Score <= 0 {
				t.Errorf("match score = %v, want > 0", m.Score)
			}
		}
	}
	if !found {
		t.Errorf("seeded conversation missing from %d matches", len(matches))
	}
}

func TestSearch_NeverErrorsOnOddQueries(t *testing.T) {
	ctx := context.Background()
	msgs := NewMessages(testClient, testLog, nil, DefaultSearchConfig())

	for _, q := range []string{"zzzzunfindable", "a", "@#$%", "the of an"} {
		if _, _, err := msgs.Search(ctx, q, 5); err != nil {
			t.Errorf("query %q surfaced error: %v", q, err)
		}
	}
}

func TestSearch_EmptyQueryRejected(t *testing.T) {
	ctx := context.Background()
	msgs := NewMessages(testClient, testLog, nil, DefaultSearchConfig())

	if _, _, err := msgs.Search(ctx, "   ", 5); err == nil {
		t.Error("blank query accepted, want invalid-argument error")
	}
}

func TestDeleteConversation_CascadesChildren(t *testing.T) {
	ctx := context.Background()
	repo := NewConversations(testClient, testLog)
	msgs := NewMessages(testClient, testLog, nil, DefaultSearchConfig())
	files := NewConversationFiles(testClient, testLog)

	conv := testConversation("claude-code", "cascade-1", "2026-08-13T10:00:00Z", 1)
	convID := conv.RowID()
	if err := repo.Upsert(ctx, conv); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := msgs.BulkInsert(ctx, []models.Message{
		testMessage(convID, 0, models.RoleUser, "doomed message"),
	}); err != nil {
		t.Fatalf("insert message: %v", err)
	}
	if err := files.BulkInsert(ctx, []models.ConversationFile{{
		ID:           models.RID("conversation_file", models.FileRelationID("conversation_file", convID, "x.go")),
		Conversation: models.RID("conversation", convID),
		FilePath:     "x.go",
		Role:         models.FileRoleEdited,
	}}); err != nil {
		t.Fatalf("insert file: %v", err)
	}

	if err := repo.Delete(ctx, convID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	remaining, err := msgs.FindByConversation(ctx, convID)
	if err != nil {
		t.Fatalf("find messages: %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("%d orphaned messages left behind", len(remaining))
	}
	leftFiles, err := files.FindByConversation(ctx, convID)
	if err != nil {
		t.Fatalf("find files: %v", err)
	}
	if len(leftFiles) != 0 {
		t.Errorf("%d orphaned file rows left behind", len(leftFiles))
	}
}

func TestSyncStates_Roundtrip(t *testing.T) {
	ctx := context.Background()
	states := NewSyncStates(testClient, testLog)

	state := models.SyncState{
		Source:       "claude-code",
		OriginPath:   "/tmp/session-7.jsonl",
		LastSyncedAt: "2026-08-14T10:00:00Z",
		LastModified: "2026-08-14T09:59:00Z",
	}
	if err := states.Upsert(ctx, state); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := states.Get(ctx, "claude-code", "/tmp/session-7.jsonl")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.LastModified != state.LastModified {
		t.Errorf("roundtrip mismatch: %+v", got)
	}

	// Second upsert replaces, not duplicates.
	state.LastModified = "2026-08-14T11:00:00Z"
	if err := states.Upsert(ctx, state); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	all, err := states.ListBySource(ctx, "claude-code")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	count := 0
	for _, s := range all {
		if s.OriginPath == state.OriginPath {
			count++
		}
	}
	if count != 1 {
		t.Errorf("found %d rows for one origin path, want 1", count)
	}

	missing, err := states.Get(ctx, "claude-code", "/never/synced")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Errorf("never-synced path returned %+v, want nil", missing)
	}
}

func TestBillingEvents_ValidatedOnRead(t *testing.T) {
	ctx := context.Background()
	billing := NewBillingEvents(testClient, testLog)

	good := models.BillingEvent{
		ID:           models.RID("billing_event", models.BillingEventID("batch-a", "2026-08-01T10:00:00Z", "claude-sonnet-4", "api_call")),
		Timestamp:    "2026-08-01T10:00:00Z",
		Model:        "claude-sonnet-4",
		Kind:         "api_call",
		InputTokens:  100,
		OutputTokens: 10,
		CostUSD:      0.01,
		OriginBatch:  "batch-a",
	}
	// Simulates the corruption signature: engine metadata leaked into a
	// data column of a stored row.
	bad := models.BillingEvent{
		ID:          models.RID("billing_event", models.BillingEventID("batch-a", "__fragment_3", "claude-sonnet-4", "api_call")),
		Timestamp:   "__fragment_3",
		Model:       "claude-sonnet-4",
		Kind:        "api_call",
		OriginBatch: "batch-a",
	}
	if err := billing.BulkInsert(ctx, []models.BillingEvent{good, bad}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	totals, err := billing.GetTotals(ctx)
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if totals.Events != 1 {
		t.Errorf("totals counted %d events, want 1 after validation filter", totals.Events)
	}
	if totals.InputTokens != 100 {
		t.Errorf("input tokens = %d, want 100", totals.InputTokens)
	}

	if err := billing.DeleteBySource(ctx, "batch-a"); err != nil {
		t.Fatalf("delete batch: %v", err)
	}
	n, err := billing.CountBySource(ctx, "batch-a")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("%d rows left after batch delete", n)
	}
}

func TestList_FiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	repo := NewConversations(testClient, testLog)

	older := testConversation("cursor", "list-old", "2026-06-01T10:00:00Z", 0)
	newer := testConversation("cursor", "list-new", "2026-08-20T10:00:00Z", 0)
	for _, c := range []models.Conversation{older, newer} {
		if err := repo.Upsert(ctx, c); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	result, err := repo.List(ctx, ListFilters{Source: "cursor"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if result.Total < 2 {
		t.Fatalf("total = %d, want at least 2", result.Total)
	}
	// Newest first.
	seenNew, seenOld := -1, -1
	for i, c := range result.Conversations {
		switch c.RowID() {
		case newer.RowID():
			seenNew = i
		case older.RowID():
			seenOld = i
		}
	}
	if seenNew == -1 || seenOld == -1 || seenNew > seenOld {
		t.Errorf("order wrong: new at %d, old at %d", seenNew, seenOld)
	}
}
