/*
 * Client - read-only NetBox REST API client.
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
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"netbox-dns-snippets/internal/metrics"
)

const (
	actGetAddresses         = "get_addresses"
	actGetInterfaces        = "get_interfaces"
	actGetVirtualInterfaces = "get_virtual_interfaces"
	actGetPrefixes          = "get_prefixes"
	actGetDevices           = "get_devices"
	actGetVirtualMachines   = "get_virtual_machines"
	actGetObjectChanges     = "get_object_changes"
)

// pageSize is the number of results requested per page.
const pageSize = 1000

// Client is a token-authenticated, read-only NetBox API client. Calls are
// never retried: the caller re-runs the whole generation on failure.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient returns a new client for the given NetBox installation.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// getPage performs a single GET request against the API and decodes the list
// envelope. rawURL must be a complete URL, either built by the caller or
// taken from a previous page's "next" link.
func (c *Client) getPage(ctx context.Context, action, rawURL string) (*apiPage, error) {
	m := metrics.GetOpenMetricsInstance()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("cannot build request for %s: %w", rawURL, err)
	}
	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		m.IncFailedApiCallsTotal(action)
		return nil, fmt.Errorf("%s request failed: %w", action, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		m.IncFailedApiCallsTotal(action)
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%s returned HTTP %d: %s", action, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	page := &apiPage{}
	if err := json.NewDecoder(resp.Body).Decode(page); err != nil {
		m.IncFailedApiCallsTotal(action)
		return nil, fmt.Errorf("cannot decode %s response: %w", action, err)
	}
	m.IncSuccessfulApiCallsTotal(action)
	m.AddApiDelayHist(action, time.Since(start).Milliseconds())

	return page, nil
}

// list fetches every page of the given endpoint and returns the raw results.
func (c *Client) list(ctx context.Context, action, path string, query url.Values) ([]json.RawMessage, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set("limit", fmt.Sprintf("%d", pageSize))
	next := fmt.Sprintf("%s/api/%s/?%s", c.baseURL, path, query.Encode())

	results := []json.RawMessage{}
	for next != "" {
		page, err := c.getPage(ctx, action, next)
		if err != nil {
			return nil, err
		}
		results = append(results, page.Results...)
		if page.Next == nil {
			break
		}
		next = *page.Next
	}

	return results, nil
}

// Addresses returns all active IP addresses.
func (c *Client) Addresses(ctx context.Context) ([]Address, error) {
	query := url.Values{}
	query.Set("status", StatusActive)
	raw, err := c.list(ctx, actGetAddresses, "ipam/ip-addresses", query)
	if err != nil {
		return nil, err
	}

	addresses := make([]Address, 0, len(raw))
	for _, r := range raw {
		wire := apiAddress{}
		if err := json.Unmarshal(r, &wire); err != nil {
			return nil, fmt.Errorf("cannot decode address: %w", err)
		}
		addresses = append(addresses, getAddress(wire))
	}
	return addresses, nil
}

// getInterfaces fetches and decodes an interface endpoint.
func (c *Client) getInterfaces(ctx context.Context, action, path string) ([]Interface, error) {
	raw, err := c.list(ctx, action, path, nil)
	if err != nil {
		return nil, err
	}

	interfaces := make([]Interface, 0, len(raw))
	for _, r := range raw {
		wire := apiInterface{}
		if err := json.Unmarshal(r, &wire); err != nil {
			return nil, fmt.Errorf("cannot decode interface: %w", err)
		}
		interfaces = append(interfaces, getInterface(wire))
	}
	return interfaces, nil
}

// Interfaces returns all physical interfaces.
func (c *Client) Interfaces(ctx context.Context) ([]Interface, error) {
	return c.getInterfaces(ctx, actGetInterfaces, "dcim/interfaces")
}

// VirtualInterfaces returns all virtual machine interfaces.
func (c *Client) VirtualInterfaces(ctx context.Context) ([]Interface, error) {
	return c.getInterfaces(ctx, actGetVirtualInterfaces, "virtualization/interfaces")
}

// Prefixes returns all IP prefixes.
func (c *Client) Prefixes(ctx context.Context) ([]Prefix, error) {
	raw, err := c.list(ctx, actGetPrefixes, "ipam/prefixes", nil)
	if err != nil {
		return nil, err
	}

	prefixes := make([]Prefix, 0, len(raw))
	for _, r := range raw {
		wire := apiPrefix{}
		if err := json.Unmarshal(r, &wire); err != nil {
			return nil, fmt.Errorf("cannot decode prefix: %w", err)
		}
		prefix, err := getPrefix(wire)
		if err != nil {
			return nil, err
		}
		prefixes = append(prefixes, prefix)
	}
	return prefixes, nil
}

// getDevices fetches and decodes a device-like endpoint.
func (c *Client) getDevices(ctx context.Context, action, path string, query url.Values, virtual bool) ([]Device, error) {
	raw, err := c.list(ctx, action, path, query)
	if err != nil {
		return nil, err
	}

	devices := make([]Device, 0, len(raw))
	for _, r := range raw {
		wire := apiDevice{}
		if err := json.Unmarshal(r, &wire); err != nil {
			return nil, fmt.Errorf("cannot decode device: %w", err)
		}
		devices = append(devices, getDevice(wire, virtual))
	}
	return devices, nil
}

// Devices returns all physical devices whose status allows DNS generation.
func (c *Client) Devices(ctx context.Context) ([]Device, error) {
	query := url.Values{}
	for _, status := range DeviceStatuses {
		query.Add("status", status)
	}
	return c.getDevices(ctx, actGetDevices, "dcim/devices", query, false)
}

// VirtualMachines returns all virtual machines.
func (c *Client) VirtualMachines(ctx context.Context) ([]Device, error) {
	return c.getDevices(ctx, actGetVirtualMachines, "virtualization/virtual-machines", nil, true)
}

// ChangedSince reports whether any NetBox changelog entry exists after the
// given time.
func (c *Client) ChangedSince(ctx context.Context, since time.Time) (bool, error) {
	query := url.Values{}
	query.Set("time_after", since.UTC().Format(time.RFC3339))
	query.Set("limit", "1")
	rawURL := fmt.Sprintf("%s/api/extras/object-changes/?%s", c.baseURL, query.Encode())

	page, err := c.getPage(ctx, actGetObjectChanges, rawURL)
	if err != nil {
		return false, err
	}
	return page.Count > 0, nil
}
