package ingestion

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"pool-analytics-lab/internal/domain"
)

const maxLineBytes = 1 << 20

// FileSource reads newline-delimited JSON events from a file.
// Implements BatchSource and StreamSource.
type FileSource struct {
	path   string
	logger *zap.Logger
}

// NewFileSource creates a FileSource for path.
func NewFileSource(path string, logger *zap.Logger) *FileSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileSource{path: path, logger: logger}
}

// Fetch returns the events in [from, to]. A malformed line fails the fetch.
func (s *FileSource) Fetch(ctx context.Context, from, to uint64) ([]*domain.Event, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var events []*domain.Event
	err = scanEvents(ctx, f, func(line int, ev *domain.Event, err error) error {
		if err != nil {
			return fmt.Errorf("%s:%d: %w", s.path, line, err)
		}
		if ev.Block >= from && ev.Block <= to {
			events = append(events, ev)
		}
		return nil
	})
	return events, err
}

// Subscribe streams the file once. Malformed lines are logged and skipped.
func (s *FileSource) Subscribe(ctx context.Context) (<-chan *Message, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}

	ch := make(chan *Message, 256)
	go func() {
		defer close(ch)
		defer f.Close()

		err := scanEvents(ctx, f, func(line int, ev *domain.Event, err error) error {
			if err != nil {
				s.logger.Warn("skipping malformed event line",
					zap.String("path", s.path), zap.Int("line", line), zap.Error(err))
				return nil
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case ch <- NewMessage(ev, nil):
				return nil
			}
		})
		if err != nil && ctx.Err() == nil {
			s.logger.Error("reading event file", zap.String("path", s.path), zap.Error(err))
		}
	}()
	return ch, nil
}

// scanEvents decodes one event per non-empty line and calls fn for each.
func scanEvents(ctx context.Context, r io.Reader, fn func(line int, ev *domain.Event, err error) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return err
		}
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		ev, err := DecodeEvent(raw)
		if err := fn(line, ev, err); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// DecodeEvent parses one JSON-encoded ledger event.
func DecodeEvent(raw []byte) (*domain.Event, error) {
	var ev domain.Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
