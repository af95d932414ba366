/*
 * Types - value objects for the NetBox inventory snapshot.
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
	"net/netip"
	"strings"
)

// Device statuses fetched from NetBox.
const (
	StatusActive          = "active"
	StatusPlanned         = "planned"
	StatusStaged          = "staged"
	StatusFailed          = "failed"
	StatusInventory       = "inventory"
	StatusDecommissioning = "decommissioning"
)

// DeviceStatuses is the set of statuses a device must be in to be considered
// for DNS generation.
var DeviceStatuses = []string{
	StatusActive, StatusPlanned, StatusStaged,
	StatusFailed, StatusInventory, StatusDecommissioning,
}

// MgmtOnlyStatuses is the set of statuses in which a physical server must
// resolve only by asset tag, never by hostname.
var MgmtOnlyStatuses = []string{StatusInventory, StatusDecommissioning}

// IsMgmtOnlyStatus reports whether the given device status restricts the
// device to asset-tag management records.
func IsMgmtOnlyStatus(status string) bool {
	for _, s := range MgmtOnlyStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Device is an immutable snapshot of a NetBox device or virtual machine.
type Device struct {
	ID       int
	Name     string
	Role     string // role slug
	Status   string
	Site     string // site slug
	AssetTag string
	// Primary address references; 0 when unset.
	PrimaryIP4 int
	PrimaryIP6 int
	// Virtual is true for virtual machines.
	Virtual bool
}

// Interface is an immutable snapshot of a NetBox physical or virtual
// interface.
type Interface struct {
	ID     int
	Name   string
	Device string // owning device or virtual machine name
	Site   string // owning device site slug
	// MgmtOnly marks out-of-band management interfaces.
	MgmtOnly bool
}

// Address is an immutable snapshot of a NetBox IP address. The interface
// reference starts as an ID; resolution produces a new value with the
// Interface pointer set instead of mutating a partially built one.
type Address struct {
	ID      int
	Address string // CIDR notation as returned by NetBox, e.g. 10.0.0.1/24
	DNSName string
	// InterfaceID is the raw assignment reference; 0 for orphaned addresses.
	InterfaceID int
	// Interface is the resolved owning interface, nil until resolved.
	Interface *Interface
}

// WithInterface returns a copy of the address with the owning interface
// resolved.
func (a Address) WithInterface(iface *Interface) Address {
	a.Interface = iface
	return a
}

// Prefix returns the address parsed as an IP prefix.
func (a Address) Prefix() (netip.Prefix, error) {
	return netip.ParsePrefix(strings.TrimSpace(a.Address))
}

// Prefix is an immutable snapshot of a NetBox IP prefix.
type Prefix struct {
	Prefix netip.Prefix
	Site   string // site slug, empty when the prefix has no site
	VRF    string
}
