/*
 * Conversion utilities between the NetBox wire format and the snapshot model.
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
	"fmt"
	"net/netip"
	"strings"
)

// getDevice converts a wire device to the model format.
func getDevice(d apiDevice, virtual bool) Device {
	dev := Device{
		ID:       d.ID,
		Name:     d.Name,
		AssetTag: d.AssetTag,
		Virtual:  virtual,
	}
	// Devices expose device_role, virtual machines expose role.
	if d.DeviceRole != nil {
		dev.Role = d.DeviceRole.Slug
	} else if d.Role != nil {
		dev.Role = d.Role.Slug
	}
	if d.Status != nil {
		dev.Status = d.Status.Value
	}
	if d.Site != nil {
		dev.Site = d.Site.Slug
	}
	if d.PrimaryIP4 != nil {
		dev.PrimaryIP4 = d.PrimaryIP4.ID
	}
	if d.PrimaryIP6 != nil {
		dev.PrimaryIP6 = d.PrimaryIP6.ID
	}
	return dev
}

// getInterface converts a wire interface to the model format. The owning
// device name comes from either the device or the virtual machine reference.
func getInterface(i apiInterface) Interface {
	iface := Interface{
		ID:       i.ID,
		Name:     i.Name,
		MgmtOnly: i.MgmtOnly,
	}
	if i.Device != nil {
		iface.Device = i.Device.Name
	} else if i.VirtualMachine != nil {
		iface.Device = i.VirtualMachine.Name
	}
	return iface
}

// getAddress converts a wire address to the model format.
func getAddress(a apiAddress) Address {
	addr := Address{
		ID:      a.ID,
		Address: strings.TrimSpace(a.Address),
		DNSName: strings.TrimSpace(a.DNSName),
	}
	if a.Interface != nil {
		addr.InterfaceID = a.Interface.ID
	}
	return addr
}

// getPrefix converts a wire prefix to the model format.
func getPrefix(p apiPrefix) (Prefix, error) {
	network, err := netip.ParsePrefix(p.Prefix)
	if err != nil {
		return Prefix{}, fmt.Errorf("cannot parse prefix %q: %w", p.Prefix, err)
	}
	prefix := Prefix{Prefix: network.Masked()}
	if p.Site != nil {
		prefix.Site = p.Site.Slug
	}
	if p.VRF != nil {
		prefix.VRF = p.VRF.Name
	}
	return prefix, nil
}
