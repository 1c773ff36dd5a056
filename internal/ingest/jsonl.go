package ingest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/mtlprog/taskindexer/internal/domain"
)

// maxLineSize bounds one JSON event line.
const maxLineSize = 4 << 20

// JSONLSource reads one decoded contract event per line.
type JSONLSource struct {
	r        io.Reader
	registry *ContractRegistry
}

// NewJSONLSource creates a source over r. registry may be nil when every
// line carries its own source tag.
func NewJSONLSource(r io.Reader, registry *ContractRegistry) *JSONLSource {
	if registry == nil {
		registry = &ContractRegistry{}
	}
	return &JSONLSource{r: r, registry: registry}
}

// DecodeEvent parses and validates one event line.
func (s *JSONLSource) DecodeEvent(line []byte) (domain.Event, error) {
	var evt domain.Event
	if err := json.Unmarshal(line, &evt); err != nil {
		return domain.Event{}, fmt.Errorf("%w: %v", domain.ErrInvalidEvent, err)
	}
	if evt.Name == "" {
		return domain.Event{}, fmt.Errorf("%w: event name is required", domain.ErrInvalidEvent)
	}
	if evt.BlockTimestamp <= 0 {
		return domain.Event{}, fmt.Errorf("%w: blockTimestamp is required", domain.ErrInvalidEvent)
	}
	if len(bytes.TrimSpace(evt.Params)) == 0 || bytes.Equal(bytes.TrimSpace(evt.Params), []byte("null")) {
		evt.Params = json.RawMessage("{}")
	}
	if err := s.registry.Resolve(&evt); err != nil {
		return domain.Event{}, err
	}
	return evt, nil
}

// Stream sends every valid event to out in input order and returns when the
// input is exhausted or ctx is done. Invalid lines are logged and skipped.
func (s *JSONLSource) Stream(ctx context.Context, out chan<- domain.Event) error {
	scanner := bufio.NewScanner(s.r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		evt, err := s.DecodeEvent(line)
		if err != nil {
			slog.Warn("invalid event line skipped", "line", lineNo, "error", err)
			continue
		}

		select {
		case out <- evt:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read events at line %d: %w", lineNo, err)
	}
	return nil
}
