/*
 * Derive - hostname/zone splitting and record derivation rules.
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
package records

import (
	"fmt"
	"net/netip"
	"sort"
	"strings"

	"netbox-dns-snippets/internal/netbox"

	"github.com/miekg/dns"
	log "github.com/sirupsen/logrus"
)

// globalSuffix is the site suffix used when no datacenter can be resolved.
const globalSuffix = "global"

// rfc2317MaxBits is the narrowest delegation supported for classless
// reverse zones. Prefixes narrower than this are consolidated into their
// enclosing prefix.
const rfc2317MaxBits = 29

// Deriver derives forward and reverse records from snapshot addresses.
type Deriver struct {
	// internalSuffix marks the zones that never receive a site suffix.
	internalSuffix string
	// splitLabels extend the hostname/zone split point when present.
	splitLabels []string
}

// NewDeriver returns a deriver with the given zone-splitting rules.
func NewDeriver(internalSuffix string, splitLabels []string) Deriver {
	return Deriver{
		internalSuffix: internalSuffix,
		splitLabels:    splitLabels,
	}
}

// SplitDNSName splits a FQDN into hostname and zone, and resolves the zone
// snippet name. The split point is two trailing labels, plus one for each
// configured split label present anywhere in the name, capped so that at
// least one label remains as hostname. Zones outside the internal suffix are
// partitioned per datacenter with a "-<site>" suffix resolved from the most
// specific matching prefix, falling back to the owning interface's device
// site.
func (d Deriver) SplitDNSName(address netbox.Address, ip netip.Addr, prefixes []netbox.Prefix) (hostname, zone, zoneName string) {
	parts := strings.Split(strings.TrimSpace(address.DNSName), ".")

	maxLen := 2
	for _, label := range d.splitLabels {
		for _, part := range parts {
			if part == label {
				maxLen++
				break
			}
		}
	}

	splitLen := len(parts) - 1
	if maxLen < splitLen {
		splitLen = maxLen
	}
	hostname = strings.Join(parts[:len(parts)-splitLen], ".")
	zone = strings.Join(parts[len(parts)-splitLen:], ".")
	zoneName = zone

	if !strings.HasSuffix(zone, "."+d.internalSuffix) {
		zoneName += "-" + d.siteSuffix(address, ip, prefixes)
	}

	return hostname, zone, zoneName
}

// siteSuffix resolves the datacenter suffix for a non-internal zone.
func (d Deriver) siteSuffix(address netbox.Address, ip netip.Addr, prefixes []netbox.Prefix) string {
	var matching []netbox.Prefix
	for _, prefix := range prefixes {
		if prefix.Prefix.Contains(ip) {
			matching = append(matching, prefix)
		}
	}

	if len(matching) > 0 {
		// The most specific prefix wins.
		best := matching[0]
		for _, prefix := range matching[1:] {
			if prefix.Prefix.Bits() > best.Prefix.Bits() {
				best = prefix
			}
		}
		if best.Site != "" {
			return best.Site
		}
		log.Debugf("Failed to find DC for address %s, prefix %s, using %s", address.Address, best.Prefix, globalSuffix)
		return globalSuffix
	}

	if address.Interface != nil && address.Interface.Site != "" {
		return address.Interface.Site
	}

	log.Warningf("Failed to find DC for address %s from prefix or device, using %s", address.Address, globalSuffix)
	return globalSuffix
}

// DeriveAddressRecords generates the forward records for a single address.
// Virtual machines, unassigned addresses and non-server devices always get
// exactly one record. Physical servers get the hostname record only outside
// the management-only statuses, plus an asset-tag record for management-only
// interfaces so that operators can reach BMCs by a stable tag.
func DeriveAddressRecords(zone, hostname string, ipInterface netip.Prefix, address netbox.Address, device *netbox.Device, physical bool) []ForwardRecord {
	records := []ForwardRecord{}

	if !physical || device == nil || device.Role != "server" {
		records = append(records, ForwardRecord{Zone: zone, Hostname: hostname, Interface: ipInterface})
		return records
	}

	if !netbox.IsMgmtOnlyStatus(device.Status) {
		// Hostname records exist only in the non-management statuses.
		records = append(records, ForwardRecord{Zone: zone, Hostname: hostname, Interface: ipInterface})
	}

	if address.Interface != nil && address.Interface.MgmtOnly && device.AssetTag != "" &&
		(!strings.EqualFold(device.Name, device.AssetTag) || netbox.IsMgmtOnlyStatus(device.Status)) {
		records = append(records, ForwardRecord{
			Zone:      zone,
			Hostname:  strings.ToLower(device.AssetTag),
			Interface: ipInterface,
		})
	}

	return records
}

// reversePointer returns the RFC 1035/3596 reverse-pointer name of an
// address without the trailing dot.
func reversePointer(ip netip.Addr) string {
	arpa, err := dns.ReverseAddr(ip.String())
	if err != nil {
		return ""
	}
	return strings.TrimSuffix(arpa, ".")
}

// Reverse derives the PTR record for a forward record. Addresses outside
// every configured prefix are external and get no PTR at all. IPv6 reverse
// zones are rooted at the /64 boundary. IPv4 reverse zones split at the /24
// boundary by default; sub-/24 allocations follow RFC 2317 with the hyphen
// notation, consolidated to the enclosing prefix when narrower than /29.
func Reverse(record ForwardRecord, prefixes []netbox.Prefix) *ReverseRecord {
	ip := record.IP()

	var matching []netip.Prefix
	for _, prefix := range prefixes {
		if prefix.Prefix.Contains(ip) {
			matching = append(matching, prefix.Prefix)
		}
	}
	if len(matching) == 0 {
		return nil
	}

	parts := strings.Split(reversePointer(ip), ".")

	var pointer, zone string
	if ip.Is6() {
		// Split at nibble 16, producing a /64-rooted reverse zone.
		pointer = strings.Join(parts[:16], ".")
		zone = strings.Join(parts[16:], ".")
	} else {
		pointer = parts[0]
		zone = strings.Join(parts[1:], ".")
		if record.Interface.Bits() > 24 {
			zone = classlessZone(ip, record.Interface, matching, zone)
		}
	}

	hostname := record.Hostname + "." + record.Zone
	return &ReverseRecord{
		Zone:      zone,
		Hostname:  hostname,
		Pointer:   pointer,
		Interface: record.Interface,
	}
}

// classlessZone computes the reverse zone of a sub-/24 IPv4 allocation from
// the most specific matching prefix.
func classlessZone(ip netip.Addr, ipInterface netip.Prefix, matching []netip.Prefix, defaultZone string) string {
	sort.Slice(matching, func(i, j int) bool {
		return matching[i].Bits() > matching[j].Bits()
	})

	matched := matching[0]
	if matched.Bits() > rfc2317MaxBits {
		// Consolidate into the enclosing prefix.
		found := false
		for _, prefix := range matching {
			if prefix.Bits() <= rfc2317MaxBits {
				matched = prefix
				found = true
				break
			}
		}
		if !found {
			log.Warningf("No enclosing prefix at /%d or wider for IP %s, keeping the /24 zone", rfc2317MaxBits, ip)
			return defaultZone
		}
	}

	network := matched.Masked().Addr()
	networkParts := strings.SplitN(reversePointer(network), ".", 2)

	switch {
	case matched.Bits() > 24:
		return fmt.Sprintf("%s-%d.%s", networkParts[0], matched.Bits(), networkParts[1])
	case matched.Bits() == 24:
		return networkParts[1]
	default:
		// The pre-calculated /24 zone is already correct.
		log.Debugf("Parent container prefixlen for IP %s is smaller than /24 (/%d), forcing /24", ip, matched.Bits())
		return defaultZone
	}
}
