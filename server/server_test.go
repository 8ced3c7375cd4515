package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"treesync/engine"
	"treesync/tree"
)

func newTestServer(t *testing.T) (*engine.Engine, *httptest.Server) {
	t.Helper()
	eng, err := engine.New(nil)
	require.NoError(t, err)

	ts := httptest.NewServer(NewServer(eng, nil).Handler())
	t.Cleanup(ts.Close)
	return eng, ts
}

func do(t *testing.T, method, url, body string) (*http.Response, map[string]interface{}) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t)

	resp, body := do(t, http.MethodGet, ts.URL+"/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, false, body["ready"])
}

func TestPutThenGet(t *testing.T) {
	_, ts := newTestServer(t)

	resp, _ := do(t, http.MethodPut, ts.URL+"/data/a/b", `{"x":1}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/data/a/b", nil)
	require.NoError(t, err)
	getResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer getResp.Body.Close()

	var value map[string]interface{}
	require.NoError(t, json.NewDecoder(getResp.Body).Decode(&value))
	assert.Equal(t, map[string]interface{}{"x": float64(1)}, value)
}

func TestPatchMerges(t *testing.T) {
	eng, ts := newTestServer(t)

	do(t, http.MethodPut, ts.URL+"/data/a", `{"x":1}`)
	do(t, http.MethodPatch, ts.URL+"/data/a", `{"y":2}`)

	assert.Equal(t,
		map[string]interface{}{"x": float64(1), "y": float64(2)},
		eng.SnapshotFor(tree.FromString("/a")).Value())
}

func TestPostPushesChild(t *testing.T) {
	eng, ts := newTestServer(t)

	resp, body := do(t, http.MethodPost, ts.URL+"/data/list", `"first"`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	key, ok := body["name"].(string)
	require.True(t, ok)
	require.NotEmpty(t, key)

	assert.Equal(t, "first", eng.SnapshotFor(tree.FromString("/list").Child(key)).Value())
}

func TestDelete(t *testing.T) {
	eng, ts := newTestServer(t)

	do(t, http.MethodPut, ts.URL+"/data/a", `"v"`)
	resp, _ := do(t, http.MethodDelete, ts.URL+"/data/a", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.False(t, eng.SnapshotFor(tree.FromString("/a")).Exists())
}

func TestPutNullDeletes(t *testing.T) {
	eng, ts := newTestServer(t)

	do(t, http.MethodPut, ts.URL+"/data/a", `"v"`)
	do(t, http.MethodPut, ts.URL+"/data/a", "null")

	assert.False(t, eng.SnapshotFor(tree.FromString("/a")).Exists())
}

func TestMalformedPayloadDoesNotCorruptState(t *testing.T) {
	eng, ts := newTestServer(t)

	do(t, http.MethodPut, ts.URL+"/data/a", `{"x":1}`)
	resp, body := do(t, http.MethodPut, ts.URL+"/data/a", `{"x": `)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "malformed payload")
	// The previous value survives the malformed write.
	assert.Equal(t, map[string]interface{}{"x": float64(1)}, eng.SnapshotFor(tree.FromString("/a")).Value())
}

func TestOrderedView(t *testing.T) {
	eng, ts := newTestServer(t)

	eng.SetWithPriority(tree.FromString("/scores/b"), float64(2), float64(2), nil)
	eng.SetWithPriority(tree.FromString("/scores/a"), float64(1), float64(1), nil)
	eng.SetWithPriority(tree.FromString("/scores/c"), float64(3), float64(3), nil)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/data/scores?orderBy=priority&limitToLast=2", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var children []map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&children))
	require.Len(t, children, 2)
	assert.Equal(t, "b", children[0]["key"])
	assert.Equal(t, "c", children[1]["key"])
}

func TestUnsupportedFilterFailsLoudly(t *testing.T) {
	_, ts := newTestServer(t)

	resp, body := do(t, http.MethodGet, ts.URL+"/data/scores?orderBy=value", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "unsupported query filter")
}

func TestGetAbsentPath(t *testing.T) {
	_, ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/data/nothing/here", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var value interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&value))
	assert.Nil(t, value)
}
