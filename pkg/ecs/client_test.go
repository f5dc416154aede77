package ecs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testServer fakes the management API: /login issues numbered tokens, every
// other path is dispatched to handle after the token is checked.
type testServer struct {
	*httptest.Server

	logins int64
	handle http.HandlerFunc
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login" {
			user, pass, ok := r.BasicAuth()
			if !ok || user != "root" || pass != "secret" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			n := atomic.AddInt64(&ts.logins, 1)
			w.Header().Set("X-SDS-AUTH-TOKEN", tokenFor(n))
			w.WriteHeader(http.StatusOK)
			return
		}
		if r.Header.Get("X-SDS-AUTH-TOKEN") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if ts.handle != nil {
			ts.handle(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func tokenFor(n int64) string {
	return "token-" + string(rune('0'+n))
}

func newTestConnection(ts *testServer) *Connection {
	return NewConnection(ts.URL, "root", "secret", false)
}

func TestLoginStoresToken(t *testing.T) {
	ts := newTestServer(t)
	conn := newTestConnection(ts)

	require.NoError(t, conn.Login(context.Background()))
	assert.Equal(t, "token-1", conn.token)
}

func TestLoginRejected(t *testing.T) {
	ts := newTestServer(t)
	conn := NewConnection(ts.URL, "root", "wrong", false)

	err := conn.Login(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "login rejected with status 401")
}

func TestLazyLoginOnFirstRequest(t *testing.T) {
	ts := newTestServer(t)
	var gotToken string
	ts.handle = func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-SDS-AUTH-TOKEN")
		_ = json.NewEncoder(w).Encode(ObjectBucketInfo{Name: "b1"})
	}
	conn := newTestConnection(ts)

	info, err := conn.GetBucket(context.Background(), "b1", "ns1")
	require.NoError(t, err)
	assert.Equal(t, "b1", info.Name)
	assert.Equal(t, "token-1", gotToken)
	assert.EqualValues(t, 1, ts.logins)
}

func TestBucketExistsNotFound(t *testing.T) {
	ts := newTestServer(t)
	ts.handle = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}
	conn := newTestConnection(ts)

	exists, err := conn.BucketExists(context.Background(), "ghost", "ns1")
	require.NoError(t, err, "a 404 probe is not an error")
	assert.False(t, exists)
}

func TestAPIErrorDecoding(t *testing.T) {
	ts := newTestServer(t)
	ts.handle = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code": 1013, "description": "Invalid bucket name", "details": "name too long"}`))
	}
	conn := newTestConnection(ts)

	_, err := conn.GetBucket(context.Background(), "b1", "ns1")
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok, "expected APIError, got %T", err)
	assert.Equal(t, 400, apiErr.StatusCode)
	assert.Equal(t, 1013, apiErr.Code)
	assert.Contains(t, apiErr.Error(), "Invalid bucket name")
	assert.Contains(t, apiErr.Error(), "name too long")
}

func TestAPIErrorNonJSONBody(t *testing.T) {
	ts := newTestServer(t)
	ts.handle = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("something broke"))
	}
	conn := newTestConnection(ts)

	_, err := conn.GetBucket(context.Background(), "b1", "ns1")
	require.Error(t, err)
	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, "something broke", apiErr.Details)
}

func TestExpiredTokenTriggersRelogin(t *testing.T) {
	ts := newTestServer(t)
	ts.handle = func(w http.ResponseWriter, r *http.Request) {
		// The first session token is stale; only the re-issued one works.
		if r.Header.Get("X-SDS-AUTH-TOKEN") == "token-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(ObjectBucketInfo{Name: "b1"})
	}
	conn := newTestConnection(ts)
	require.NoError(t, conn.Login(context.Background()))

	info, err := conn.GetBucket(context.Background(), "b1", "ns1")
	require.NoError(t, err)
	assert.Equal(t, "b1", info.Name)
	assert.EqualValues(t, 2, ts.logins, "expired token causes exactly one re-login")
}

func TestCreateBucketSendsPayload(t *testing.T) {
	ts := newTestServer(t)
	var got ObjectBucketCreate
	var path, contentType string
	ts.handle = func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		contentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}
	conn := newTestConnection(ts)

	err := conn.CreateBucket(context.Background(), ObjectBucketCreate{
		Name:             "b1",
		Namespace:        "ns1",
		ReplicationGroup: "rg-id-1",
		HeadType:         "s3",
	})
	require.NoError(t, err)
	assert.Equal(t, "/object/bucket.json", path)
	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, "b1", got.Name)
	assert.Equal(t, "rg-id-1", got.ReplicationGroup)
}

func TestDeleteBucketUsesDeactivate(t *testing.T) {
	ts := newTestServer(t)
	var method, path, namespace string
	ts.handle = func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		path = r.URL.Path
		namespace = r.URL.Query().Get("namespace")
		w.WriteHeader(http.StatusOK)
	}
	conn := newTestConnection(ts)

	require.NoError(t, conn.DeleteBucket(context.Background(), "b1", "ns1"))
	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, "/object/bucket/b1/deactivate.json", path)
	assert.Equal(t, "ns1", namespace)
}

func TestListUserSecrets(t *testing.T) {
	ts := newTestServer(t)
	ts.handle = func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/object/user-secret-keys/u1.json", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"secret_key_1": "first-secret",
			"key_timestamp_1": "2026-01-01 00:00:00",
			"secret_key_2": "second-secret",
			"key_timestamp_2": "2026-02-01 00:00:00"
		}`))
	}
	conn := newTestConnection(ts)

	keys, err := conn.ListUserSecrets(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, keys, 2)
	assert.Equal(t, "first-secret", keys[0].SecretKey)
	assert.Equal(t, "second-secret", keys[1].SecretKey)
}

func TestListNFSExportsAbsent(t *testing.T) {
	ts := newTestServer(t)
	ts.handle = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}
	conn := newTestConnection(ts)

	exports, err := conn.ListNFSExports(context.Background(), "/ns1/b1/export")
	require.NoError(t, err)
	assert.Nil(t, exports)
}

func TestLogoutClearsToken(t *testing.T) {
	ts := newTestServer(t)
	conn := newTestConnection(ts)
	require.NoError(t, conn.Login(context.Background()))
	require.NoError(t, conn.Logout(context.Background()))
	assert.Equal(t, "", conn.token)
}
