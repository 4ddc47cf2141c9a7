package zabbix

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultIDs(t *testing.T) {
	r := Result{"hostids": []any{"10", float64(11)}}

	assert.Equal(t, []string{"10", "11"}, r.IDs("hostids"))
	assert.Equal(t, "10", r.FirstID("hostids"))
	assert.Empty(t, r.IDs("groupids"))
	assert.Equal(t, "", r.FirstID("groupids"))
}

func TestResultIDsIgnoresMalformedPayload(t *testing.T) {
	r := Result{"hostids": "not-an-array"}
	assert.Nil(t, r.IDs("hostids"))
}

// rpcServer fakes the JSON-RPC endpoint for client tests.
func rpcServer(t *testing.T, handler func(method string, req map[string]any) any) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		method, _ := req["method"].(string)

		resp := map[string]any{"jsonrpc": "2.0", "id": req["id"]}
		switch result := handler(method, req).(type) {
		case *APIError:
			resp["error"] = map[string]any{
				"code":    result.Code,
				"message": result.Message,
				"data":    result.Data,
			}
		default:
			resp["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestConnectProbesVersion(t *testing.T) {
	var probeAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		probeAuth = r.Header.Get("Authorization")

		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "apiinfo.version", req.Method)
		require.IsType(t, []any{}, req.Params, "apiinfo.version rejects object params")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","result":"7.0.0","id":1}`))
	}))
	defer srv.Close()

	client, err := Connect(context.Background(), Config{URL: srv.URL, Token: "secret"})
	require.NoError(t, err)
	defer client.Close()

	assert.Empty(t, probeAuth, "version probe must be unauthenticated")
}

func TestConnectFailsWhenUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := Connect(context.Background(), Config{URL: srv.URL, Token: "secret"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "monitoring server unreachable")
}

func TestQueryDecodesArrayResult(t *testing.T) {
	srv := rpcServer(t, func(method string, req map[string]any) any {
		require.Equal(t, "host.get", method)
		return []any{
			map[string]any{"hostid": "1", "host": "sw1"},
			map[string]any{"hostid": "2", "host": "sw2"},
		}
	})
	defer srv.Close()

	c := testClient(srv.URL)
	results, err := c.Query(context.Background(), "host.get", Params{"output": "extend"})

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "sw1", results[0]["host"])
}

func TestExecSurfacesAPIError(t *testing.T) {
	srv := rpcServer(t, func(method string, req map[string]any) any {
		return &APIError{Code: -32602, Message: "Invalid params.", Data: `Host "sw1" already exists.`}
	})
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.Exec(context.Background(), "host.create", Params{"host": "sw1"})

	require.Error(t, err)
	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, -32602, apiErr.Code)
	assert.Contains(t, apiErr.Data, "already exists")
}

func TestExecSendsBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","result":{"hostids":["1"]},"id":1}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	_, err := c.Exec(context.Background(), "host.create", Params{"host": "sw1"})

	require.NoError(t, err)
	assert.Equal(t, "Bearer secret", gotAuth)
}

func TestEndpointAppendsAPIPath(t *testing.T) {
	c := testClient("http://zbx.example.com")
	assert.Equal(t, "http://zbx.example.com/api_jsonrpc.php", c.endpoint())

	c = testClient("http://zbx.example.com/api_jsonrpc.php")
	assert.Equal(t, "http://zbx.example.com/api_jsonrpc.php", c.endpoint())

	c = testClient("http://zbx.example.com/")
	assert.Equal(t, "http://zbx.example.com/api_jsonrpc.php", c.endpoint())
}

func testClient(url string) *Client {
	return &Client{
		cfg:  Config{URL: url, Token: "secret"},
		http: http.DefaultClient,
	}
}
