package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/ironsheep/dot-finder/internal/log"
	"github.com/ironsheep/dot-finder/internal/messages"
	"github.com/ironsheep/dot-finder/internal/pipeline"
)

// maxLineSize bounds one input line. Raw frames travel base64 encoded, so a
// 1080p rgb8 frame needs about 8 MiB.
const maxLineSize = 64 * 1024 * 1024

// JSON-RPC 2.0 error codes.
const (
	codeInvalidParams  = -32602
	codeMethodNotFound = -32601
	codeHandlerFailed  = -32000
)

// Request is an incoming JSON-RPC message. A message without an id is a
// notification and never gets a response.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the message carries no id.
func (r *Request) IsNotification() bool { return len(r.ID) == 0 }

// Response is an outgoing JSON-RPC response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is a JSON-RPC error object.
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Notification is an outgoing message published on a topic.
type Notification struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// Handler consumes the input topics. *pipeline.Controller implements it.
type Handler interface {
	HandleCameraInfo(info messages.CameraInfo) error
	HandleImage(ctx context.Context, msg messages.Image) error
	HandleConfig(data []byte) error
	State() pipeline.State
	Stats() *pipeline.Stats
}

// Server is a newline-delimited JSON-RPC bus over a reader/writer pair,
// normally stdin and stdout.
//
// Input topics arrive as notifications whose method is the topic name.
// Output topics are written as notifications the same way. Server also
// implements pipeline.Publisher, so the controller publishes through it.
type Server struct {
	in     io.Reader
	topics *Topics
	log    *slog.Logger

	mu  sync.Mutex
	enc *json.Encoder
}

// New creates a server reading from in and writing to out for the stream
// described by topics.
func New(in io.Reader, out io.Writer, topics *Topics) *Server {
	return &Server{
		in:     in,
		topics: topics,
		log:    log.With("component", "server", "source", topics.Source()),
		enc:    json.NewEncoder(out),
	}
}

// Topics returns the topic names served.
func (s *Server) Topics() *Topics { return s.topics }

// Run reads messages until the input ends or ctx is canceled, dispatching
// each one to h in arrival order.
//
// Lines that are not valid JSON are logged and skipped. Run returns nil on
// end of input and ctx.Err() on cancellation.
func (s *Server) Run(ctx context.Context, h Handler) error {
	lines := make(chan []byte)
	scanErr := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(s.in)
		buf := make([]byte, 0, 64*1024)
		scanner.Buffer(buf, maxLineSize)

		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					if err != nil {
						return fmt.Errorf("scanner error: %w", err)
					}
				default:
				}
				return nil
			}
			s.handleLine(ctx, h, line)
		}
	}
}

// handleLine parses and dispatches one input line.
func (s *Server) handleLine(ctx context.Context, h Handler, line []byte) {
	if len(line) == 0 {
		return
	}

	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		s.log.Warn("failed to parse message", "error", err)
		return
	}

	resp := s.handleRequest(ctx, h, &req)
	if resp != nil && !req.IsNotification() {
		s.write(resp)
	}
}

// PublishDots writes a report notification on the dots topic.
func (s *Server) PublishDots(_ context.Context, msg messages.DuoDot) error {
	return s.write(&Notification{JSONRPC: "2.0", Method: s.topics.Dots(), Params: msg})
}

// PublishImage writes an image notification on the overlay topic.
func (s *Server) PublishImage(_ context.Context, msg messages.Image) error {
	return s.write(&Notification{JSONRPC: "2.0", Method: s.topics.ImageWithDetections(), Params: msg})
}

// write encodes v as one output line. Concurrent writers are serialized.
func (s *Server) write(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enc.Encode(v); err != nil {
		s.log.Error("failed to write message", "error", err)
		return fmt.Errorf("failed to encode message: %w", err)
	}
	return nil
}
