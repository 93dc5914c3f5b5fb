package prestotest

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	presto "github.com/ethanyzhang/prestotype"
	"github.com/ethanyzhang/prestotype/typesig"
)

// --- Data Models ---

// QueryState is the life-cycle stage reported in the stats of every reply.
type QueryState string

const (
	QueryStateQueued    QueryState = "QUEUED"
	QueryStateRunning   QueryState = "RUNNING"
	QueryStateCancelled QueryState = "CANCELLED"
	QueryStateFinished  QueryState = "FINISHED"
	QueryStateFailed    QueryState = "FAILED"
)

func (qs QueryState) String() string {
	return string(qs)
}

// generateMockSlug stands in for the coordinator's security slug.
func generateMockSlug() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// MockQueryTemplate is the canned reply chain for one statement text.
//
// The query first answers QueueBatches replies without columns or data, then
// splits Data into DataBatches windows of
// (len(Data) + DataBatches - 1) / DataBatches rows each. DataBatches is capped
// at len(Data) so no poll comes back empty.
type MockQueryTemplate struct {
	SQL          string
	DataBatches  int
	QueueBatches int
	Columns      []presto.Column
	Data         [][]any
	Error        *presto.QueryError
	Latency      time.Duration

	// UpdateType marks a DDL or DML statement, e.g. "CREATE TABLE".
	UpdateType  string
	UpdateCount *int64
}

// MockActiveQuery is one running instance of a template.
type MockActiveQuery struct {
	ID        string
	Template  *MockQueryTemplate
	State     QueryState
	QueuedFor int
}

// ReceivedStatement is a statement as the server saw it.
type ReceivedStatement struct {
	SQL    string
	Header http.Header
}

// --- Mock Server Implementation ---

// MockPrestoServer simulates a Presto/Trino coordinator for tests. Unknown
// statements succeed with a single varchar column.
type MockPrestoServer struct {
	server *httptest.Server

	templates     map[string]*MockQueryTemplate
	activeQueries map[string]*MockActiveQuery
	received      []ReceivedStatement
	queriesMutex  sync.RWMutex

	defaultLatency time.Duration

	queryIDCounter atomic.Int64
	txCounter      atomic.Int64
	today          string
}

// NewMockPrestoServer starts a server on a loopback port. Close it when done.
func NewMockPrestoServer() *MockPrestoServer {
	mock := &MockPrestoServer{
		templates:     make(map[string]*MockQueryTemplate),
		activeQueries: make(map[string]*MockActiveQuery),
		today:         time.Now().Format("20060102"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/statement", mock.handleNewQuery)
	mux.HandleFunc("GET /v1/statement/{status}/{queryId}/{batchId}", mock.handleFetchNextBatch)
	mux.HandleFunc("DELETE /v1/statement/{status}/{queryId}/{batchId}", mock.handleCancelQuery)
	mock.server = httptest.NewServer(mux)
	return mock
}

// AddQuery registers a template under its SQL text.
func (m *MockPrestoServer) AddQuery(tmpl *MockQueryTemplate) {
	m.queriesMutex.Lock()
	defer m.queriesMutex.Unlock()

	if totalRows := len(tmpl.Data); totalRows < tmpl.DataBatches {
		tmpl.DataBatches = totalRows
	}
	if tmpl.QueueBatches < 1 {
		tmpl.QueueBatches = 1
	}
	m.templates[tmpl.SQL] = tmpl
}

// AddStatement registers a statement that returns no rows, as DDL does.
func (m *MockPrestoServer) AddStatement(sql, updateType string) {
	m.AddQuery(&MockQueryTemplate{
		SQL:         sql,
		Columns:     []presto.Column{presto.NewColumn("result", typesig.MustParse(typesig.Boolean))},
		Data:        [][]any{{true}},
		DataBatches: 1,
		UpdateType:  updateType,
	})
}

// AddTable answers SHOW COLUMNS FROM table with the given columns, each a
// name and its type text.
//
//	mock.AddTable("hive.web.clicks", "id", "bigint", "tags", "array(varchar)")
func (m *MockPrestoServer) AddTable(table string, nameTypes ...string) {
	if len(nameTypes)%2 != 0 {
		panic("prestotest: AddTable needs name/type pairs")
	}
	var data [][]any
	for i := 0; i < len(nameTypes); i += 2 {
		data = append(data, []any{nameTypes[i], nameTypes[i+1], "", ""})
	}
	m.AddQuery(&MockQueryTemplate{
		SQL:         "SHOW COLUMNS FROM " + table,
		Columns:     Columns("Column", "varchar", "Type", "varchar", "Extra", "varchar", "Comment", "varchar"),
		Data:        data,
		DataBatches: 1,
	})
}

// Columns builds result columns from name/type pairs, with both the type text
// and its structured form filled in. It panics on a malformed type.
func Columns(nameTypes ...string) []presto.Column {
	cols := make([]presto.Column, 0, len(nameTypes)/2)
	for i := 0; i+1 < len(nameTypes); i += 2 {
		cols = append(cols, presto.NewColumn(nameTypes[i], typesig.MustParse(nameTypes[i+1])))
	}
	return cols
}

// SetDefaultLatency sets the latency of templates that have none.
func (m *MockPrestoServer) SetDefaultLatency(latency time.Duration) {
	m.queriesMutex.Lock()
	defer m.queriesMutex.Unlock()
	m.defaultLatency = latency
}

// Received returns the statements submitted so far, in order.
func (m *MockPrestoServer) Received() []ReceivedStatement {
	m.queriesMutex.RLock()
	defer m.queriesMutex.RUnlock()
	return slices.Clone(m.received)
}

// Statements returns the text of the statements submitted so far.
func (m *MockPrestoServer) Statements() []string {
	received := m.Received()
	out := make([]string, len(received))
	for i, r := range received {
		out[i] = r.SQL
	}
	return out
}

// --- Request Handlers ---

func (m *MockPrestoServer) handleNewQuery(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	sql := string(body)
	queryID := m.newQueryID()

	m.queriesMutex.Lock()
	m.received = append(m.received, ReceivedStatement{SQL: sql, Header: r.Header.Clone()})
	template, exists := m.templates[sql]
	if !exists {
		template = &MockQueryTemplate{
			SQL:          sql,
			DataBatches:  1,
			QueueBatches: 1,
			Columns:      []presto.Column{presto.NewColumn("result", typesig.MustParse(typesig.Varchar))},
			Data:         [][]any{{"Query template not found; default success"}},
		}
	}
	m.activeQueries[queryID] = &MockActiveQuery{
		ID:       queryID,
		Template: template,
		State:    QueryStateQueued,
	}
	m.queriesMutex.Unlock()

	m.syncTransaction(w, r, sql)
	m.sendQueryResponse(w, queryID, 0)
}

// syncTransaction mimics the transaction headers of the coordinator.
func (m *MockPrestoServer) syncTransaction(w http.ResponseWriter, r *http.Request, sql string) {
	prefix := "X-Presto-"
	if r.Header.Get("X-Trino-User") != "" {
		prefix = "X-Trino-"
	}
	switch statement := strings.ToUpper(strings.TrimSpace(sql)); {
	case strings.HasPrefix(statement, "START TRANSACTION"):
		w.Header().Set(prefix+"Started-Transaction-Id", "tx-"+strconv.FormatInt(m.txCounter.Add(1), 10))
	case statement == "COMMIT", statement == "ROLLBACK":
		w.Header().Set(prefix+"Clear-Transaction-Id", "true")
	}
}

func (m *MockPrestoServer) handleFetchNextBatch(w http.ResponseWriter, r *http.Request) {
	batchID, _ := strconv.Atoi(r.PathValue("batchId"))
	m.sendQueryResponse(w, r.PathValue("queryId"), batchID)
}

func (m *MockPrestoServer) handleCancelQuery(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("queryId")
	m.queriesMutex.Lock()
	defer m.queriesMutex.Unlock()
	if _, ok := m.activeQueries[id]; !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	delete(m.activeQueries, id)
	w.WriteHeader(http.StatusNoContent)
}

// --- Protocol Response Logic ---

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// sendQueryResponse answers one poll. Latency is spread evenly over all the
// replies of the query.
func (m *MockPrestoServer) sendQueryResponse(w http.ResponseWriter, queryID string, batchID int) {
	m.queriesMutex.RLock()
	query, exists := m.activeQueries[queryID]
	if !exists {
		m.queriesMutex.RUnlock()
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Query not found"})
		return
	}
	totalLatency := m.defaultLatency
	if query.Template.Latency > 0 {
		totalLatency = query.Template.Latency
	}
	dataBatchCount := query.Template.DataBatches
	queueBatchCount := query.Template.QueueBatches
	sleepDuration := totalLatency / time.Duration(dataBatchCount+queueBatchCount)
	m.queriesMutex.RUnlock()

	if sleepDuration > 0 {
		time.Sleep(sleepDuration)
	}

	m.queriesMutex.Lock()
	defer m.queriesMutex.Unlock()
	if query, exists = m.activeQueries[queryID]; !exists {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Query removed during processing"})
		return
	}
	tmpl := query.Template

	resp := presto.QueryResults{
		ID:      queryID,
		InfoURI: fmt.Sprintf("%s/ui/query.html?%s", m.server.URL, queryID),
	}

	if tmpl.Error != nil {
		query.State = QueryStateFailed
		resp.Error = tmpl.Error
	} else {
		if batchID == 0 {
			query.QueuedFor++
		}
		if query.QueuedFor >= queueBatchCount && query.State == QueryStateQueued {
			query.State = QueryStateRunning
		}
		hasMore := query.QueuedFor < queueBatchCount || batchID < dataBatchCount
		if !hasMore && query.State == QueryStateRunning {
			query.State = QueryStateFinished
		}

		if query.State != QueryStateQueued {
			resp.Columns = tmpl.Columns
		}
		if hasMore {
			nextBatch := batchID + 1
			if query.QueuedFor < queueBatchCount {
				nextBatch = 0
			}
			nextURI := fmt.Sprintf("%s/v1/statement/%s/%s/%d?slug=%s",
				m.server.URL, strings.ToLower(query.State.String()), queryID, nextBatch, generateMockSlug())
			resp.NextURI = &nextURI
		}
		resp.Data = batchRows(tmpl, batchID)
		if query.State == QueryStateFinished && tmpl.UpdateType != "" {
			updateType := tmpl.UpdateType
			resp.UpdateType = &updateType
			resp.UpdateCount = tmpl.UpdateCount
		}
	}

	resp.Stats = presto.StatementStats{
		State:           query.State.String(),
		Queued:          query.State == QueryStateQueued,
		Scheduled:       query.State != QueryStateQueued,
		TotalSplits:     dataBatchCount,
		CompletedSplits: min(batchID, dataBatchCount),
	}

	if query.State == QueryStateFinished || query.State == QueryStateFailed {
		delete(m.activeQueries, queryID)
	}
	writeJSON(w, http.StatusOK, resp)
}

// batchRows returns window batchID of the template data. Batch 0 is the
// queue phase and carries none.
func batchRows(tmpl *MockQueryTemplate, batchID int) []json.RawMessage {
	if batchID == 0 || tmpl.DataBatches == 0 || len(tmpl.Data) == 0 {
		return nil
	}
	rowsPerBatch := (len(tmpl.Data) + tmpl.DataBatches - 1) / tmpl.DataBatches
	start := (batchID - 1) * rowsPerBatch
	if start >= len(tmpl.Data) {
		return nil
	}
	end := min(start+rowsPerBatch, len(tmpl.Data))
	out := make([]json.RawMessage, 0, end-start)
	for _, row := range tmpl.Data[start:end] {
		data, _ := json.Marshal(row)
		out = append(out, data)
	}
	return out
}

func (m *MockPrestoServer) newQueryID() string {
	return fmt.Sprintf("%s_%05d", m.today, m.queryIDCounter.Add(1))
}

// URL returns the base URL of the server.
func (m *MockPrestoServer) URL() string { return m.server.URL }

// DSN returns a data source name for the server, e.g. for sql.Open("presto", ...).
func (m *MockPrestoServer) DSN(scheme, path string) string {
	return scheme + "://" + strings.TrimPrefix(m.server.URL, "http://") + path
}

// Close shuts the server down.
func (m *MockPrestoServer) Close() { m.server.Close() }
