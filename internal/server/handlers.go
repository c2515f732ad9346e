package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ironsheep/dot-finder/internal/messages"
	"github.com/ironsheep/dot-finder/internal/pipeline"
)

// StatsResult is the result of a stats/get request.
type StatsResult struct {
	Source string                 `json:"source"`
	State  string                 `json:"state"`
	Stats  pipeline.StatsSnapshot `json:"stats"`
}

// TopicsResult is the result of a topics/list request.
type TopicsResult struct {
	Inputs  []string `json:"inputs"`
	Outputs []string `json:"outputs"`
}

// handleRequest routes a message to its handler. The returned response is
// discarded for notifications.
func (s *Server) handleRequest(ctx context.Context, h Handler, req *Request) *Response {
	switch req.Method {
	case s.topics.ImageRaw():
		return s.handleImage(ctx, h, req)
	case s.topics.CameraInfo():
		return s.handleCameraInfo(h, req)
	case s.topics.Parameters():
		return s.handleParameters(h, req)
	case "topics/list":
		return s.result(req, TopicsResult{Inputs: s.topics.Inputs(), Outputs: s.topics.Outputs()})
	case "stats/get":
		return s.result(req, StatsResult{
			Source: s.topics.Source(),
			State:  h.State().String(),
			Stats:  h.Stats().Snapshot(),
		})
	case "ping":
		return s.result(req, map[string]interface{}{})
	default:
		if req.IsNotification() {
			s.log.Debug("ignoring message on unknown topic", "method", req.Method)
		}
		return s.errorResponse(req.ID, codeMethodNotFound, fmt.Sprintf("Method not found: %s", req.Method), nil)
	}
}

// handleImage decodes an image message and runs it through the pipeline.
func (s *Server) handleImage(ctx context.Context, h Handler, req *Request) *Response {
	var msg messages.Image
	if err := json.Unmarshal(req.Params, &msg); err != nil {
		s.log.Warn("invalid image message", "error", err)
		return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
	}

	if err := h.HandleImage(ctx, msg); err != nil {
		if errors.Is(err, pipeline.ErrFrameDropped) {
			s.log.Debug("frame dropped", "seq", msg.Header.Seq, "error", err)
		}
		return s.errorResponse(req.ID, codeHandlerFailed, "Frame not processed", err.Error())
	}
	return s.result(req, map[string]interface{}{"seq": msg.Header.Seq})
}

// handleCameraInfo forwards calibration to the pipeline.
func (s *Server) handleCameraInfo(h Handler, req *Request) *Response {
	var info messages.CameraInfo
	if err := json.Unmarshal(req.Params, &info); err != nil {
		s.log.Warn("invalid camera info message", "error", err)
		return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
	}

	if err := h.HandleCameraInfo(info); err != nil {
		return s.errorResponse(req.ID, codeHandlerFailed, "Camera info rejected", err.Error())
	}
	return s.result(req, map[string]interface{}{"state": h.State().String()})
}

// handleParameters applies a configuration update. Params must be a JSON
// object; absent fields keep their current values.
func (s *Server) handleParameters(h Handler, req *Request) *Response {
	if len(req.Params) == 0 {
		return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", "missing parameters object")
	}
	if err := h.HandleConfig(req.Params); err != nil {
		return s.errorResponse(req.ID, codeHandlerFailed, "Parameters rejected", err.Error())
	}
	return s.result(req, map[string]interface{}{})
}

func (s *Server) result(req *Request, result interface{}) *Response {
	return &Response{JSONRPC: "2.0", ID: req.ID, Result: result}
}

// errorResponse builds a JSON-RPC error response.
func (s *Server) errorResponse(id json.RawMessage, code int, message string, data interface{}) *Response {
	return &Response{
		JSONRPC: "2.0",
		ID:      id,
		Error: &RPCError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}
