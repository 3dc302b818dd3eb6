package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zcox/messagedb-agent/internal/domain/event"
	"github.com/zcox/messagedb-agent/internal/port/eventstore"
)

// Message DB raises this text when the expected version check fails.
const wrongExpectedVersion = "Wrong expected version"

// MessageStore implements eventstore.Store against Message DB.
type MessageStore struct {
	pool *pgxpool.Pool
}

var _ eventstore.Store = (*MessageStore)(nil)

// NewMessageStore creates a store backed by the given connection pool.
func NewMessageStore(pool *pgxpool.Pool) *MessageStore {
	return &MessageStore{pool: pool}
}

// Append writes one event via write_message. The call runs in its own
// transaction and commits before returning: write_message takes an advisory
// lock on the stream that is only released at commit.
func (s *MessageStore) Append(ctx context.Context, streamName string, kind event.Kind, data, metadata map[string]any, expectedVersion int64) (int64, error) {
	if data == nil {
		data = map[string]any{}
	}
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return 0, &eventstore.StoreError{Op: "append", Err: fmt.Errorf("marshal data: %w", err)}
	}

	var metadataJSON []byte
	if metadata != nil {
		metadataJSON, err = json.Marshal(metadata)
		if err != nil {
			return 0, &eventstore.StoreError{Op: "append", Err: fmt.Errorf("marshal metadata: %w", err)}
		}
	}

	var expected *int64
	if expectedVersion != eventstore.ExpectAny {
		v := expectedVersion
		expected = &v
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, &eventstore.StoreError{Op: "append", Err: err}
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var position int64
	err = tx.QueryRow(ctx,
		`SELECT write_message($1, $2, $3, $4::jsonb, $5::jsonb, $6)`,
		uuid.NewString(), streamName, string(kind), dataJSON, metadataJSON, expected,
	).Scan(&position)
	if err != nil {
		return 0, mapAppendError(streamName, expectedVersion, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, &eventstore.StoreError{Op: "append", Err: err}
	}
	return position, nil
}

// Read returns events from a single stream in ascending position order.
func (s *MessageStore) Read(ctx context.Context, streamName string, fromPosition int64, batchSize int) ([]event.Event, error) {
	if batchSize <= 0 {
		batchSize = eventstore.DefaultBatchSize
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, stream_name, type, position, global_position, data, metadata, time
		 FROM get_stream_messages($1, $2, $3)`,
		streamName, fromPosition, batchSize)
	if err != nil {
		return nil, &eventstore.StoreError{Op: "read", Err: err}
	}
	defer rows.Close()

	events, err := scanEvents(rows)
	if err != nil {
		return nil, &eventstore.StoreError{Op: "read", Err: err}
	}
	return events, nil
}

// ReadCategory returns events across all streams of a category, ordered by
// global position.
func (s *MessageStore) ReadCategory(ctx context.Context, category string, fromGlobalPosition int64, batchSize int) ([]event.Event, error) {
	if batchSize <= 0 {
		batchSize = eventstore.DefaultBatchSize
	}
	if fromGlobalPosition < 1 {
		// get_category_messages positions are 1-based.
		fromGlobalPosition = 1
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, stream_name, type, position, global_position, data, metadata, time
		 FROM get_category_messages($1, $2, $3, NULL, NULL, NULL, NULL)`,
		category, fromGlobalPosition, batchSize)
	if err != nil {
		return nil, &eventstore.StoreError{Op: "read category", Err: err}
	}
	defer rows.Close()

	events, err := scanEvents(rows)
	if err != nil {
		return nil, &eventstore.StoreError{Op: "read category", Err: err}
	}
	return events, nil
}

// HealthCheck verifies connectivity and that the Message DB functions are
// installed.
func (s *MessageStore) HealthCheck(ctx context.Context) error {
	var ok bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM pg_proc WHERE proname = 'write_message')`).Scan(&ok)
	if err != nil {
		return &eventstore.StoreError{Op: "health check", Err: err}
	}
	if !ok {
		return &eventstore.StoreError{Op: "health check", Err: errors.New("write_message function not found; is Message DB installed?")}
	}
	return nil
}

func scanEvents(rows pgx.Rows) ([]event.Event, error) {
	var events []event.Event
	for rows.Next() {
		var (
			id, streamName, kind string
			position, global     int64
			dataJSON             []byte
			metadataJSON         []byte
			at                   time.Time
		)
		if err := rows.Scan(&id, &streamName, &kind, &position, &global, &dataJSON, &metadataJSON, &at); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}

		ev := event.Event{
			ID:             id,
			StreamName:     streamName,
			Kind:           event.Kind(kind),
			Position:       position,
			GlobalPosition: global,
			Time:           at,
		}
		if len(dataJSON) > 0 {
			if err := json.Unmarshal(dataJSON, &ev.Data); err != nil {
				return nil, fmt.Errorf("decode data at %s/%d: %w", streamName, position, err)
			}
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &ev.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata at %s/%d: %w", streamName, position, err)
			}
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// mapAppendError translates the raised exception Message DB uses for
// version conflicts into the port's ConcurrencyError; everything else wraps
// as a StoreError.
func mapAppendError(streamName string, expected int64, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.Contains(pgErr.Message, wrongExpectedVersion) {
		return &eventstore.ConcurrencyError{
			Stream:   streamName,
			Expected: expected,
			Actual:   parseActualVersion(pgErr.Message),
		}
	}
	return &eventstore.StoreError{Op: "append", Err: err}
}

// parseActualVersion pulls the current stream version out of the error
// text, which has the form:
//
//	Wrong expected version: 3 (Stream: agent:v0-..., Stream Version: 5)
//
// Returns -1 when the text does not carry one.
func parseActualVersion(message string) int64 {
	_, rest, ok := strings.Cut(message, "Stream Version:")
	if !ok {
		return -1
	}
	rest = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(rest), ")"))
	actual, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return -1
	}
	return actual
}
