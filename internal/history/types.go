// Package history provides an optional audit trail of diagnosis attempts.
// Each terminal attempt (completed or failed) becomes one record.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/symptom-dx-server/internal/domain"
)

// Outcome values stored with each record.
const (
	OutcomeCompleted = "COMPLETED"
)

// Record is one diagnosis attempt as persisted.
type Record struct {
	ID          int64              `json:"id,omitempty"`
	RequestID   string             `json:"request_id,omitempty"`
	Input       string             `json:"input"`
	Resolved    []string           `json:"processed_symptoms"`
	Suggestions domain.Suggestions `json:"suggestions"`
	Outcome     string             `json:"outcome"` // OutcomeCompleted or a domain error code
	TopLabel    string             `json:"top_diagnosis,omitempty"`
	Candidates  []domain.Candidate `json:"results,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}

// Store defines the interface for history storage operations.
type Store interface {
	// Record appends one attempt. ID and CreatedAt are assigned by the store.
	Record(ctx context.Context, record *Record) error

	// List returns records newest first with pagination.
	List(ctx context.Context, limit, offset int) ([]*Record, error)

	// Count returns the total number of records.
	Count(ctx context.Context) (int64, error)

	// Close closes the store and releases resources.
	Close() error
}

// encodedRecord holds the JSON columns of a record.
type encodedRecord struct {
	resolved    string
	suggestions string
	candidates  string
}

func encodeRecord(r *Record) (encodedRecord, error) {
	resolved := r.Resolved
	if resolved == nil {
		resolved = []string{}
	}
	resolvedJSON, err := json.Marshal(resolved)
	if err != nil {
		return encodedRecord{}, fmt.Errorf("failed to encode resolved symptoms: %w", err)
	}
	suggestionsJSON, err := json.Marshal(r.Suggestions)
	if err != nil {
		return encodedRecord{}, fmt.Errorf("failed to encode suggestions: %w", err)
	}
	candidates := r.Candidates
	if candidates == nil {
		candidates = []domain.Candidate{}
	}
	candidatesJSON, err := json.Marshal(candidates)
	if err != nil {
		return encodedRecord{}, fmt.Errorf("failed to encode candidates: %w", err)
	}
	return encodedRecord{
		resolved:    string(resolvedJSON),
		suggestions: string(suggestionsJSON),
		candidates:  string(candidatesJSON),
	}, nil
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanRecord scans a row into a Record.
func scanRecord(s scanner) (*Record, error) {
	r := &Record{}
	var enc encodedRecord

	err := s.Scan(
		&r.ID, &r.RequestID, &r.Input, &enc.resolved, &enc.suggestions,
		&r.Outcome, &r.TopLabel, &enc.candidates, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(enc.resolved), &r.Resolved); err != nil {
		return nil, fmt.Errorf("failed to decode resolved symptoms: %w", err)
	}
	if err := json.Unmarshal([]byte(enc.suggestions), &r.Suggestions); err != nil {
		return nil, fmt.Errorf("failed to decode suggestions: %w", err)
	}
	if err := json.Unmarshal([]byte(enc.candidates), &r.Candidates); err != nil {
		return nil, fmt.Errorf("failed to decode candidates: %w", err)
	}
	return r, nil
}

const selectColumns = `id, request_id, input, resolved, suggestions, outcome, top_label, candidates, created_at`
