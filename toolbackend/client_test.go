package toolbackend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/grcsuite/copilot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func testCall() copilot.ToolCall {
	return copilot.ToolCall{
		CallID:   "call-1",
		Name:     "search_records",
		ArgsJSON: json.RawMessage(`{"query":"open risks"}`),
	}
}

func testRouting() copilot.RoutingContext {
	return copilot.RoutingContext{
		TenantID:           "tenant-1",
		AgentID:            "agent-1",
		EnabledToolServers: []string{"archer"},
		ConnectionContext:  map[string]string{"instance": "prod"},
	}
}

func TestInvokeSuccess(t *testing.T) {
	var gotBody []byte
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"success":true,"result":{"count":3},"sourceServerId":"archer"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	res := c.Invoke(context.Background(), testCall(), testRouting())

	assert.Equal(t, executePath, gotPath)
	body := gjson.ParseBytes(gotBody)
	assert.Equal(t, "search_records", body.Get("toolName").String())
	assert.Equal(t, "open risks", body.Get("arguments.query").String())
	assert.Equal(t, "tenant-1", body.Get("tenantId").String())
	assert.Equal(t, "agent-1", body.Get("agentId").String())
	assert.Equal(t, "archer", body.Get("enabledToolServers.0").String())
	assert.Equal(t, "prod", body.Get("connectionContext.instance").String())

	assert.False(t, res.IsError)
	assert.Equal(t, "call-1", res.CallID)
	assert.Equal(t, "archer", res.SourceServerID)
	assert.JSONEq(t, `{"count":3}`, string(res.Content))
}

func TestInvokeBackendFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"error":"application not found"}`))
	}))
	defer srv.Close()

	res := NewClient(srv.URL).Invoke(context.Background(), testCall(), testRouting())
	assert.True(t, res.IsError)
	assert.Equal(t, "application not found", res.ErrorText)
}

func TestInvokeNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"upstream exploded"}`))
	}))
	defer srv.Close()

	res := NewClient(srv.URL).Invoke(context.Background(), testCall(), testRouting())
	assert.True(t, res.IsError)
	assert.Contains(t, res.ErrorText, "status 502")
	assert.Contains(t, res.ErrorText, "upstream exploded")
}

func TestInvokeUnreachableBackend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	res := NewClient(srv.URL).Invoke(context.Background(), testCall(), testRouting())
	assert.True(t, res.IsError)
	assert.Contains(t, res.ErrorText, "unreachable")
}

func TestInvokeRejectsInvalidArguments(t *testing.T) {
	c := NewClient("http://127.0.0.1:0")
	call := testCall()
	call.ArgsJSON = json.RawMessage(`{"query":`)

	res := c.Invoke(context.Background(), call, testRouting())
	assert.True(t, res.IsError)
	assert.Contains(t, res.ErrorText, "not valid JSON")
}

func TestInvokeDefaultsEmptyArguments(t *testing.T) {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"success":true,"result":null}`))
	}))
	defer srv.Close()

	call := testCall()
	call.ArgsJSON = nil
	res := NewClient(srv.URL).Invoke(context.Background(), call, testRouting())
	assert.False(t, res.IsError)
	assert.Equal(t, `{}`, gjson.ParseBytes(gotBody).Get("arguments").Raw)
}

func TestInvokeMissingSuccessField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"result":"orphaned"}`))
	}))
	defer srv.Close()

	res := NewClient(srv.URL).Invoke(context.Background(), testCall(), testRouting())
	assert.True(t, res.IsError)
	assert.Contains(t, res.ErrorText, "missing success field")
}

func TestListTools(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"tools":[
			{"name":"list_applications","description":"List Archer applications","sourceServerId":"archer","parameters":{"type":"object","properties":{}}},
			{"name":"search_records","sourceServerId":"archer"}
		]}`))
	}))
	defer srv.Close()

	defs, err := NewClient(srv.URL).ListTools(context.Background(), "archer")
	require.NoError(t, err)
	assert.Equal(t, "/api/tools/servers/archer", gotPath)
	require.Len(t, defs, 2)
	assert.Equal(t, "list_applications", defs[0].Name)
	assert.Equal(t, "archer", defs[0].SourceServerID)
	assert.Equal(t, "object", defs[0].Parameters["type"])
	assert.Nil(t, defs[1].Parameters)
}

func TestListToolsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).ListTools(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}
