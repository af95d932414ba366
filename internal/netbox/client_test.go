/*
 * Client - unit tests.
 *
 * Copyright 2026 Marco Confalonieri.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *   http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */
package netbox

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestServer returns a NetBox stub serving canned responses per path.
func newTestServer(t *testing.T, responses map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Token testtoken" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		body, ok := responses[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}))
}

func newTestClient(server *httptest.Server) *Client {
	return NewClient(server.URL, "testtoken", 5*time.Second)
}

// Test_Client_Addresses tests Addresses().
func Test_Client_Addresses(t *testing.T) {
	server := newTestServer(t, map[string]string{
		"/api/ipam/ip-addresses/": `{
			"count": 1, "next": null, "previous": null,
			"results": [
				{"id": 7, "address": "10.64.0.10/22", "dns_name": "db1001.eqiad.wmnet",
				 "interface": {"id": 1, "name": "eth0"}}
			]
		}`,
	})
	defer server.Close()

	addresses, err := newTestClient(server).Addresses(context.Background())
	require.NoError(t, err)
	require.Len(t, addresses, 1)
	assert.Equal(t, Address{
		ID: 7, Address: "10.64.0.10/22",
		DNSName: "db1001.eqiad.wmnet", InterfaceID: 1,
	}, addresses[0])
}

// Test_Client_pagination tests that list() follows the next links.
func Test_Client_pagination(t *testing.T) {
	var server *httptest.Server
	calls := 0
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("offset") == "" {
			fmt.Fprintf(w, `{"count": 2, "next": "%s/api/dcim/devices/?limit=1000&offset=1000",
				"previous": null,
				"results": [{"id": 1, "name": "db1001", "device_role": {"slug": "server"}}]}`,
				server.URL)
			return
		}
		fmt.Fprint(w, `{"count": 2, "next": null, "previous": null,
			"results": [{"id": 2, "name": "db1002", "device_role": {"slug": "server"}}]}`)
	}))
	defer server.Close()

	devices, err := NewClient(server.URL, "testtoken", 5*time.Second).Devices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.Len(t, devices, 2)
	assert.Equal(t, "db1001", devices[0].Name)
	assert.Equal(t, "db1002", devices[1].Name)
}

// Test_Client_httpError tests that non-200 responses are fatal.
func Test_Client_httpError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewClient(server.URL, "testtoken", 5*time.Second).Prefixes(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 503")
}

// Test_Client_badToken tests that a rejected token surfaces as an error.
func Test_Client_badToken(t *testing.T) {
	server := newTestServer(t, map[string]string{})
	defer server.Close()

	client := NewClient(server.URL, "wrong", 5*time.Second)
	_, err := client.Interfaces(context.Background())
	assert.Error(t, err)
}

// Test_Client_ChangedSince tests ChangedSince().
func Test_Client_ChangedSince(t *testing.T) {
	type testCase struct {
		name     string
		count    int
		expected bool
	}

	run := func(t *testing.T, tc testCase) {
		server := newTestServer(t, map[string]string{
			"/api/extras/object-changes/": fmt.Sprintf(
				`{"count": %d, "next": null, "previous": null, "results": []}`, tc.count),
		})
		defer server.Close()

		changed, err := newTestClient(server).ChangedSince(
			context.Background(), time.Now().Add(-30*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, tc.expected, changed)
	}

	testCases := []testCase{
		{name: "no changes", count: 0, expected: false},
		{name: "changes present", count: 3, expected: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			run(t, tc)
		})
	}
}
