package presto

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
)

// QueryResults is one reply of the statement protocol. A statement's result
// arrives as a chain of replies linked by nextUri.
type QueryResults struct {
	ID               string            `json:"id"`
	InfoURI          string            `json:"infoUri"`
	PartialCancelURI *string           `json:"partialCancelUri,omitempty"`
	NextURI          *string           `json:"nextUri,omitempty"`
	Columns          []Column          `json:"columns,omitempty"`
	Data             []json.RawMessage `json:"data,omitempty"`
	Stats            StatementStats    `json:"stats"`
	Error            *QueryError       `json:"error,omitempty"`
	Warnings         []Warning         `json:"warnings,omitempty"`

	// UpdateType and UpdateCount are set for statements that modify data or
	// metadata, e.g. "CREATE TABLE".
	UpdateType  *string `json:"updateType,omitempty"`
	UpdateCount *int64  `json:"updateCount,omitempty"`

	session *Session
}

// StatementStats is the progress summary attached to every reply.
type StatementStats struct {
	State           string `json:"state"`
	Queued          bool   `json:"queued"`
	Scheduled       bool   `json:"scheduled"`
	TotalSplits     int    `json:"totalSplits"`
	CompletedSplits int    `json:"completedSplits"`
	ProcessedRows   int64  `json:"processedRows"`
	ProcessedBytes  int64  `json:"processedBytes"`
}

// Warning is a non-fatal diagnostic from the coordinator.
type Warning struct {
	WarningCode struct {
		Code int    `json:"code"`
		Name string `json:"name"`
	} `json:"warningCode"`
	Message string `json:"message"`
}

// Query submits a statement.
//
//	results, _, err := session.Query(ctx, "SHOW COLUMNS FROM hive.web.clicks")
//	if err != nil {
//	    return err
//	}
//	err = results.Drain(ctx, func(qr *presto.QueryResults) error { ... })
func (s *Session) Query(ctx context.Context, sql string, opts ...RequestOption) (*QueryResults, *http.Response, error) {
	req, err := s.NewRequest(http.MethodPost, "v1/statement", sql, opts...)
	if err != nil {
		return nil, nil, err
	}
	return s.statement(ctx, req)
}

// FetchNextBatch follows nextURI once.
func (s *Session) FetchNextBatch(ctx context.Context, nextURI string, opts ...RequestOption) (*QueryResults, *http.Response, error) {
	req, err := s.NewRequest(http.MethodGet, nextURI, nil, opts...)
	if err != nil {
		return nil, nil, err
	}
	return s.statement(ctx, req)
}

// CancelQuery asks the coordinator to stop the statement behind nextURI.
func (s *Session) CancelQuery(ctx context.Context, nextURI string, opts ...RequestOption) (*http.Response, error) {
	req, err := s.NewRequest(http.MethodDelete, nextURI, nil, opts...)
	if err != nil {
		return nil, err
	}
	return s.Do(ctx, req, nil)
}

// statement sends req and decodes the reply. A reply carrying a query error
// is returned together with that error.
func (s *Session) statement(ctx context.Context, req *http.Request) (*QueryResults, *http.Response, error) {
	qr := &QueryResults{}
	resp, err := s.Do(ctx, req, qr)
	if err != nil {
		return nil, resp, err
	}
	qr.session = s
	if qr.Error != nil {
		return qr, resp, qr.Error
	}
	return qr, resp, nil
}

// HasMoreBatch reports whether NextURI points at another reply.
func (qr *QueryResults) HasMoreBatch() bool {
	return qr != nil && qr.NextURI != nil
}

// FetchNextBatch replaces qr with the next reply that carries data, or with
// the last reply of the chain. If ctx ends while fetching, the statement is
// cancelled on the coordinator before returning.
func (qr *QueryResults) FetchNextBatch(ctx context.Context) error {
	if qr == nil || qr.session == nil {
		return errors.New("presto: results are not attached to a session")
	}

	for qr.NextURI != nil {
		nextURI := *qr.NextURI
		next, _, err := qr.session.FetchNextBatch(ctx, nextURI)
		if err != nil {
			if ctx.Err() != nil {
				// ctx is done; cancel on a fresh context so the request goes out.
				if _, cerr := qr.session.CancelQuery(context.Background(), nextURI); cerr != nil {
					log.Debug().Err(cerr).Str("query_id", qr.ID).Msg("failed to cancel query")
				} else {
					log.Debug().Str("query_id", qr.ID).Msg("cancelled query after context end")
				}
			}
			return fmt.Errorf("presto: fetching results of query %s: %w", qr.ID, err)
		}
		session := qr.session
		*qr = *next
		qr.session = session
		if len(qr.Data) > 0 {
			break
		}
	}
	return nil
}

// BatchHandler consumes one batch of rows.
type BatchHandler func(qr *QueryResults) error

// Drain hands every batch, starting with the one already in qr, to handler
// and follows the chain to its end. Data is released after each batch.
func (qr *QueryResults) Drain(ctx context.Context, handler BatchHandler) error {
	if qr == nil {
		return errors.New("presto: draining nil results")
	}
	for {
		if handler != nil && len(qr.Data) > 0 {
			if err := handler(qr); err != nil {
				qr.Data = nil
				return fmt.Errorf("presto: batch handler for query %s: %w", qr.ID, err)
			}
		}
		qr.Data = nil
		if !qr.HasMoreBatch() {
			return nil
		}
		if err := qr.FetchNextBatch(ctx); err != nil {
			return err
		}
	}
}

// Rows decodes the current batch into positional rows. Numbers are kept as
// json.Number so bigint values beyond 2^53 survive.
func (qr *QueryResults) Rows() ([][]any, error) {
	rows := make([][]any, len(qr.Data))
	for i, raw := range qr.Data {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&rows[i]); err != nil {
			return nil, fmt.Errorf("presto: decoding row %d of query %s: %w", i, qr.ID, err)
		}
	}
	return rows, nil
}
