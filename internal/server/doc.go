// Package server connects the dot finder pipeline to a message bus.
//
// The bus is newline-delimited JSON-RPC 2.0 over stdio, the same framing
// MCP servers use:
//   - Input: one JSON object per line on stdin
//   - Output: one JSON object per line on stdout
//
// Topics are derived from a single source stream identifier <id>:
//
// Inputs (notifications whose method is the topic):
//   - <id>/image_raw: messages.Image
//   - <id>/camera_info: messages.CameraInfo
//   - <id>/parameters: partial config.ThresholdConfig as a JSON object
//
// Outputs (notifications written by the server):
//   - <id>/dots: messages.DuoDot, only for frames with at least one pair
//   - <id>/image_with_detections: messages.Image, bgr8, for every
//     processed frame
//
// Requests (messages with an id) additionally support:
//   - ping: Health check
//   - topics/list: Input and output topic names
//   - stats/get: Pipeline state and frame counters
//
// Input topics sent as requests get a response once handled, which lets a
// client wait for a parameter update to be applied.
//
// # Ordering
//
// Messages are handled one at a time in arrival order. Output writes are
// serialized, so notifications never interleave on stdout.
//
// # Error Handling
//
// Per-message failures never stop the server:
//   - Unparseable lines are logged and skipped
//   - Invalid params get -32602
//   - Unknown methods get -32601
//   - Handler failures (dropped frames, rejected calibration or
//     parameters) get -32000 with the error text as data
//
// Notifications never produce responses; their failures are only logged.
//
// # Usage
//
//	topics := server.NewTopics("camera")
//	srv := server.New(os.Stdin, os.Stdout, topics)
//	ctrl := pipeline.NewController(topics.Source(), calib, cfg, srv)
//	if err := srv.Run(ctx, ctrl); err != nil {
//	    log.Error("server stopped", "error", err)
//	}
package server
