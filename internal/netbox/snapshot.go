/*
 * Snapshot - in-memory inventory snapshot used for one generation run.
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
	"time"

	"netbox-dns-snippets/internal/metrics"

	log "github.com/sirupsen/logrus"
)

// NoDeviceName is the sentinel device grouping the orphaned addresses that
// still carry a DNS name.
const NoDeviceName = "UNASSIGNED_ADDRESSES"

// inventoryAPI is an abstraction of the NetBox API client.
type inventoryAPI interface {
	// Addresses returns all active IP addresses.
	Addresses(ctx context.Context) ([]Address, error)
	// Interfaces returns all physical interfaces.
	Interfaces(ctx context.Context) ([]Interface, error)
	// VirtualInterfaces returns all virtual machine interfaces.
	VirtualInterfaces(ctx context.Context) ([]Interface, error)
	// Prefixes returns all IP prefixes.
	Prefixes(ctx context.Context) ([]Prefix, error)
	// Devices returns all devices in the allowed status set.
	Devices(ctx context.Context) ([]Device, error)
	// VirtualMachines returns all virtual machines.
	VirtualMachines(ctx context.Context) ([]Device, error)
	// ChangedSince reports whether the changelog has entries after a time.
	ChangedSince(ctx context.Context, since time.Time) (bool, error)
}

// DeviceAddresses groups a device (or the unassigned sentinel) with the
// addresses that generate records for it.
type DeviceAddresses struct {
	// Device is nil for the unassigned sentinel.
	Device *Device
	// Physical is true when the owner is a physical device.
	Physical bool
	// Addresses is the deduplicated set of addresses, keyed by address ID.
	Addresses map[int]Address
}

// Snapshot is a read-only collection of the NetBox data needed for one
// generation run. Build it with Collect; never modify it afterwards.
type Snapshot struct {
	client inventoryAPI

	// Devices maps a device or VM name to its collected addresses.
	Devices map[string]*DeviceAddresses
	// Prefixes are all the known IP prefixes.
	Prefixes []Prefix
}

// NewSnapshot returns an empty snapshot bound to the given API client.
func NewSnapshot(client inventoryAPI) *Snapshot {
	devices := map[string]*DeviceAddresses{
		NoDeviceName: {Addresses: map[int]Address{}},
	}
	return &Snapshot{client: client, Devices: devices}
}

// deviceEntry returns the entry for the given name, creating it if needed.
func (s *Snapshot) deviceEntry(name string) *DeviceAddresses {
	entry, ok := s.Devices[name]
	if !ok {
		entry = &DeviceAddresses{Addresses: map[int]Address{}}
		s.Devices[name] = entry
	}
	return entry
}

// Collect fetches all the data from NetBox. It must be called exactly once
// before the snapshot is used. Any API failure is fatal for the run.
func (s *Snapshot) Collect(ctx context.Context) error {
	log.Info("Gathering devices, interfaces, addresses and prefixes from NetBox")
	m := metrics.GetOpenMetricsInstance()

	rawAddresses, err := s.client.Addresses(ctx)
	if err != nil {
		return err
	}
	physical, err := s.client.Interfaces(ctx)
	if err != nil {
		return err
	}
	virtual, err := s.client.VirtualInterfaces(ctx)
	if err != nil {
		return err
	}
	prefixes, err := s.client.Prefixes(ctx)
	if err != nil {
		return err
	}
	devices, err := s.client.Devices(ctx)
	if err != nil {
		return err
	}
	vms, err := s.client.VirtualMachines(ctx)
	if err != nil {
		return err
	}
	s.Prefixes = prefixes

	physicalIfaces := map[int]Interface{}
	for _, iface := range physical {
		physicalIfaces[iface.ID] = iface
	}
	virtualIfaces := map[int]Interface{}
	for _, iface := range virtual {
		virtualIfaces[iface.ID] = iface
	}

	deviceSites := map[string]string{}
	for _, device := range devices {
		deviceSites[device.Name] = device.Site
	}

	// Resolve every address's owning interface up front. Resolution builds
	// new Address values; the unresolved ones are kept for the primary-IP
	// pass but marked so the main loop can skip them.
	addresses := map[int]Address{}
	onPhysical := map[int]bool{}
	unresolvable := map[int]bool{}
	for _, address := range rawAddresses {
		if address.InterfaceID == 0 {
			addresses[address.ID] = address
			continue
		}
		if iface, ok := physicalIfaces[address.InterfaceID]; ok {
			iface.Site = deviceSites[iface.Device]
			addresses[address.ID] = address.WithInterface(&iface)
			onPhysical[address.ID] = true
			continue
		}
		if iface, ok := virtualIfaces[address.InterfaceID]; ok {
			addresses[address.ID] = address.WithInterface(&iface)
			continue
		}
		log.Warningf("Cannot resolve interface %d of address %s, skipping.", address.InterfaceID, address.Address)
		m.IncSkippedAddresses()
		addresses[address.ID] = address
		unresolvable[address.ID] = true
	}

	for i := range devices {
		s.collectDevice(&devices[i], false, addresses)
	}
	for i := range vms {
		s.collectDevice(&vms[i], true, addresses)
	}

	for _, address := range addresses {
		name := NoDeviceName
		physicalOwner := false

		if address.InterfaceID == 0 {
			if address.DNSName == "" {
				log.Debugf("%s:%s has no DNS name", name, address.Address)
				continue
			}
		} else {
			if unresolvable[address.ID] {
				continue
			}
			name = address.Interface.Device
			physicalOwner = onPhysical[address.ID]

			if _, ok := s.Devices[name]; !ok {
				log.Warningf("Device %s of IP %s not in devices, skipping.", name, address.Address)
				m.IncSkippedAddresses()
				continue
			}
			if address.DNSName == "" {
				log.Debugf("%s:%s has no DNS name", name, address.Interface.Name)
				continue
			}
		}

		entry := s.deviceEntry(name)
		entry.Addresses[address.ID] = address
		entry.Physical = physicalOwner
	}

	log.Infof("Gathered %d devices from NetBox", len(s.Devices))
	return nil
}

// collectDevice records the device and force-includes its primary addresses
// when they carry a DNS name.
func (s *Snapshot) collectDevice(device *Device, virtual bool, addresses map[int]Address) {
	entry := s.deviceEntry(device.Name)
	entry.Device = device
	entry.Physical = !virtual

	for _, primary := range []int{device.PrimaryIP4, device.PrimaryIP6} {
		if primary == 0 {
			continue
		}
		address, ok := addresses[primary]
		if !ok {
			continue
		}
		if address.DNSName == "" {
			log.Debugf("Primary address %s for device %s is missing a DNS name", address.Address, device.Name)
			continue
		}
		entry.Addresses[address.ID] = address
	}
}

// ChangedSince reports whether NetBox has changelog entries after the given
// time.
func (s *Snapshot) ChangedSince(ctx context.Context, since time.Time) (bool, error) {
	return s.client.ChangedSince(ctx, since)
}
