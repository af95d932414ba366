/*
 * API - wire format of the consumed NetBox REST endpoints.
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

import "encoding/json"

// apiPage is the NetBox list envelope. Results are decoded lazily so that a
// single pagination loop serves every endpoint.
type apiPage struct {
	Count    int               `json:"count"`
	Next     *string           `json:"next"`
	Previous *string           `json:"previous"`
	Results  []json.RawMessage `json:"results"`
}

// apiRef is a brief reference to another NetBox object.
type apiRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// apiSlug is a brief reference carrying a slug, used for sites and roles.
type apiSlug struct {
	Slug string `json:"slug"`
}

// apiStatus is the value/label pair NetBox uses for status fields.
type apiStatus struct {
	Value string `json:"value"`
}

// apiDevice is the wire format shared by devices and virtual machines.
type apiDevice struct {
	ID         int        `json:"id"`
	Name       string     `json:"name"`
	DeviceRole *apiSlug   `json:"device_role"`
	Role       *apiSlug   `json:"role"`
	Status     *apiStatus `json:"status"`
	Site       *apiSlug   `json:"site"`
	AssetTag   string     `json:"asset_tag"`
	PrimaryIP4 *apiRef    `json:"primary_ip4"`
	PrimaryIP6 *apiRef    `json:"primary_ip6"`
}

// apiInterface is the wire format shared by physical and virtual interfaces.
type apiInterface struct {
	ID             int     `json:"id"`
	Name           string  `json:"name"`
	Device         *apiRef `json:"device"`
	VirtualMachine *apiRef `json:"virtual_machine"`
	MgmtOnly       bool    `json:"mgmt_only"`
}

// apiAddress is the wire format of an IP address.
type apiAddress struct {
	ID        int     `json:"id"`
	Address   string  `json:"address"`
	DNSName   string  `json:"dns_name"`
	Interface *apiRef `json:"interface"`
}

// apiPrefix is the wire format of an IP prefix.
type apiPrefix struct {
	ID     int      `json:"id"`
	Prefix string   `json:"prefix"`
	Site   *apiSlug `json:"site"`
	VRF    *apiRef  `json:"vrf"`
}
