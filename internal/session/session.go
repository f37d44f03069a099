// Package session keeps the question history for one loaded dataset.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/KaramelBytes/tensorloom-cli/internal/query"
	"github.com/KaramelBytes/tensorloom-cli/internal/tensor"
	"github.com/KaramelBytes/tensorloom-cli/internal/utils"
	"github.com/google/uuid"
)

// Session is a dataset plus the questions asked about it. Nothing is written
// to disk unless Save is called.
type Session struct {
	ID        string         `json:"id"`
	Source    string         `json:"source"`
	Record    *tensor.Record `json:"record"`
	History   []query.Result `json:"history"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`

	dispatcher *query.Dispatcher
}

// New starts a session over rec answered by d.
func New(rec *tensor.Record, d *query.Dispatcher) *Session {
	now := time.Now()
	return &Session{
		ID:         uuid.NewString(),
		Source:     rec.Source,
		Record:     rec,
		CreatedAt:  now,
		UpdatedAt:  now,
		dispatcher: d,
	}
}

// Ask answers q with the accumulated history and records the result.
// Failed questions are not recorded.
func (s *Session) Ask(ctx context.Context, q string) (*query.Result, error) {
	if s.dispatcher == nil {
		return nil, errors.New("session has no dispatcher")
	}
	res, err := s.dispatcher.Dispatch(ctx, s.Record, q, s.History)
	if err != nil {
		return nil, err
	}
	s.History = append(s.History, *res)
	s.UpdatedAt = time.Now()
	return res, nil
}

// Attach sets the dispatcher of a loaded session.
func (s *Session) Attach(d *query.Dispatcher) { s.dispatcher = d }

// Save writes the session as a JSON transcript using an atomic write.
func (s *Session) Save(path string) error {
	data, err := utils.PrettyJSON(s)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(path, data)
}

// Load reads a transcript written by Save. Call Attach before asking more.
func Load(path string) (*Session, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("transcript not found at %s: %w", path, err)
		}
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse transcript: %w", err)
	}
	if s.Record == nil {
		return nil, fmt.Errorf("parse transcript: %s has no record", path)
	}
	return &s, nil
}
