// Package mcpserver exposes the engine facade as a minimal JSON-RPC 2.0
// server over stdio: one JSON-RPC request per line read from stdin, one
// response per line written to stdout.
//
// Only the stdio transport is implemented — no SSE/HTTP — since the
// transport layer is out of scope; this package exists to give the
// engine facade a second caller, exercised independently of the CLI.
package mcpserver

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.uber.org/zap"

	"manifold/internal/engine"
)

const protocolVersion = "2024-11-05"

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// toolSchema is the name/description/input-schema triple advertised by
// "tools/list".
type toolSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// Server reads JSON-RPC requests from an input stream and writes
// responses to an output stream, dispatching every "tools/call" onto the
// engine facade. Name and Version are advertised verbatim in the
// "initialize" response.
type Server struct {
	engine  *engine.Engine
	logger  *zap.Logger
	Name    string
	Version string
}

// New builds a Server around an already-wired Engine.
func New(eng *engine.Engine, name, version string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{engine: eng, logger: logger, Name: name, Version: version}
}

// Serve reads newline-delimited JSON-RPC requests from r and writes
// newline-delimited responses to w until r is exhausted, ctx is
// cancelled, or a fatal I/O error occurs. Malformed lines produce a
// JSON-RPC parse-error response rather than terminating the loop.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req request
		if err := json.Unmarshal(line, &req); err != nil {
			s.writeLine(w, response{JSONRPC: "2.0", Error: &rpcError{Code: -32700, Message: "parse error: " + err.Error()}})
			continue
		}

		resp := s.dispatch(ctx, req)
		if resp == nil {
			continue // notification, no response expected
		}
		if err := s.writeLine(w, *resp); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
	}
	return scanner.Err()
}

func (s *Server) writeLine(w io.Writer, resp response) error {
	resp.JSONRPC = "2.0"
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

func (s *Server) dispatch(ctx context.Context, req request) *response {
	// A request carrying no id is a notification; the client expects no
	// reply (e.g. "notifications/initialized").
	isNotification := len(req.ID) == 0

	var result interface{}
	var err error

	switch req.Method {
	case "initialize":
		result = map[string]interface{}{
			"protocolVersion": protocolVersion,
			"capabilities":    map[string]interface{}{"tools": true},
			"serverInfo":      map[string]string{"name": s.Name, "version": s.Version},
		}
	case "notifications/initialized":
		return nil
	case "ping":
		result = map[string]interface{}{}
	case "tools/list":
		result = map[string]interface{}{"tools": toolSchemas()}
	case "tools/call":
		result, err = s.callTool(ctx, req.Params)
	default:
		err = fmt.Errorf("unknown method %q", req.Method)
	}

	if isNotification {
		return nil
	}
	if err != nil {
		return &response{ID: req.ID, Error: &rpcError{Code: -32000, Message: err.Error()}}
	}
	return &response{ID: req.ID, Result: result}
}

type callParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

func (s *Server) callTool(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var params callParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, fmt.Errorf("decode tools/call params: %w", err)
	}

	fn, ok := toolHandlers[params.Name]
	if !ok {
		return nil, fmt.Errorf("unknown tool %q", params.Name)
	}
	out, err := fn(ctx, s.engine, params.Arguments)
	if err != nil {
		s.logger.Warn("tool call failed", zap.String("tool", params.Name), zap.Error(err))
		return nil, err
	}
	return out, nil
}
