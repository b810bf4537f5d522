package mcpserver

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"manifold/internal/engine"
	"manifold/internal/manifold"
	"manifold/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	st, err := store.Open(t.TempDir()+"/db/manifold.db", nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	eng, err := engine.New(st, t.TempDir()+"/sync", nil)
	require.NoError(t, err)

	return New(eng, "manifold-test", "0.0.0", nil)
}

func call(t *testing.T, s *Server, id int, method string, params interface{}) response {
	t.Helper()
	paramsRaw, err := json.Marshal(params)
	require.NoError(t, err)

	req := request{JSONRPC: "2.0", ID: json.RawMessage(mustJSON(t, id)), Method: method, Params: paramsRaw}
	line, err := json.Marshal(req)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, s.Serve(context.Background(), bytes.NewReader(append(line, '\n')), &out))

	var resp response
	scanner := bufio.NewScanner(&out)
	require.True(t, scanner.Scan())
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &resp))
	return resp
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestInitialize(t *testing.T) {
	s := newTestServer(t)
	resp := call(t, s, 1, "initialize", map[string]interface{}{})
	require.Nil(t, resp.Error)
	require.NotNil(t, resp.Result)
}

func TestToolsList(t *testing.T) {
	s := newTestServer(t)
	resp := call(t, s, 1, "tools/list", nil)
	require.Nil(t, resp.Error)

	raw, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var result struct {
		Tools []toolSchema `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(raw, &result))
	require.NotEmpty(t, result.Tools)
}

func TestToolsCall_SpecCreateAndGet(t *testing.T) {
	s := newTestServer(t)

	createResp := call(t, s, 1, "tools/call", map[string]interface{}{
		"name":      "spec.create",
		"arguments": map[string]interface{}{"project": "acme", "name": "Refunds", "boundary": string(manifold.BoundaryWork)},
	})
	require.Nil(t, createResp.Error)

	raw, err := json.Marshal(createResp.Result)
	require.NoError(t, err)
	var created struct {
		SpecID string `json:"spec_id"`
	}
	require.NoError(t, json.Unmarshal(raw, &created))
	require.NotEmpty(t, created.SpecID)

	getResp := call(t, s, 2, "tools/call", map[string]interface{}{
		"name":      "spec.get",
		"arguments": map[string]interface{}{"spec_id": created.SpecID},
	})
	require.Nil(t, getResp.Error)
}

func TestToolsCall_UnknownToolErrors(t *testing.T) {
	s := newTestServer(t)
	resp := call(t, s, 1, "tools/call", map[string]interface{}{"name": "nope.nope", "arguments": map[string]interface{}{}})
	require.NotNil(t, resp.Error)
}
