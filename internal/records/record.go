/*
 * Record - forward and reverse DNS record types.
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
	"strconv"
	"strings"
)

// ForwardRecord is a single A or AAAA record belonging to a zone snippet.
// The Interface field carries the address together with its prefix length,
// which the reverse derivation needs.
type ForwardRecord struct {
	Zone      string
	Hostname  string
	Interface netip.Prefix
}

// IP returns the record's address without the prefix length.
func (r ForwardRecord) IP() netip.Addr {
	return r.Interface.Addr()
}

// String renders the record in zonefile format. The hostname is padded to a
// fixed width to avoid large diffs when records are added or removed.
func (r ForwardRecord) String() string {
	recordType := "A"
	if r.IP().Is6() {
		recordType = "AAAA"
	}
	return fmt.Sprintf("%-40s 1H IN %s %s", r.Hostname, recordType, r.IP().String())
}

// Key is the deduplication key used when inserting into a zone set.
func (r ForwardRecord) Key() string {
	return r.Zone + "|" + r.Hostname + "|" + r.IP().String()
}

// sortKey returns the ordering key: the hostname with its labels reversed,
// so that related subdomains group together, then the exploded IP.
func (r ForwardRecord) sortKey() (string, string) {
	return reverseLabels(r.Hostname), explode(r.IP())
}

// ReverseRecord is a single PTR record belonging to a reverse zone snippet.
type ReverseRecord struct {
	Zone      string
	Hostname  string
	Pointer   string
	Interface netip.Prefix
}

// String renders the record in zonefile format.
func (r ReverseRecord) String() string {
	return fmt.Sprintf("%-3s 1H IN PTR %s.", r.Pointer, r.Hostname)
}

// Key is the deduplication key used when inserting into a zone set.
func (r ReverseRecord) Key() string {
	return r.Zone + "|" + r.Hostname + "|" + r.Interface.Addr().String()
}

// sortKey returns the numeric values of the pointer labels in reversed
// order. Labels are parsed as base-16 integers so both IPv4 octets and IPv6
// nibbles order numerically, not lexicographically.
func (r ReverseRecord) sortKey() []int64 {
	labels := strings.Split(r.Pointer, ".")
	key := make([]int64, len(labels))
	for i := range labels {
		value, err := strconv.ParseInt(labels[len(labels)-1-i], 16, 64)
		if err != nil {
			value = 0
		}
		key[i] = value
	}
	return key
}

// reverseLabels returns the dotted name with its labels in reverse order.
func reverseLabels(name string) string {
	parts := strings.Split(name, ".")
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ".")
}

// explode returns the full textual form of an address: dotted quads for IPv4
// and all eight uncompressed groups for IPv6.
func explode(ip netip.Addr) string {
	if ip.Is4() {
		return ip.String()
	}
	b := ip.As16()
	groups := make([]string, 8)
	for i := 0; i < 8; i++ {
		groups[i] = fmt.Sprintf("%04x", uint16(b[2*i])<<8|uint16(b[2*i+1]))
	}
	return strings.Join(groups, ":")
}

// SortForward sorts forward records by their ordering key.
func SortForward(records []ForwardRecord) {
	sort.Slice(records, func(i, j int) bool {
		hostI, ipI := records[i].sortKey()
		hostJ, ipJ := records[j].sortKey()
		if hostI != hostJ {
			return hostI < hostJ
		}
		return ipI < ipJ
	})
}

// SortReverse sorts reverse records by their ordering key.
func SortReverse(records []ReverseRecord) {
	sort.Slice(records, func(i, j int) bool {
		keyI := records[i].sortKey()
		keyJ := records[j].sortKey()
		for k := 0; k < len(keyI) && k < len(keyJ); k++ {
			if keyI[k] != keyJ[k] {
				return keyI[k] < keyJ[k]
			}
		}
		if len(keyI) != len(keyJ) {
			return len(keyI) < len(keyJ)
		}
		return records[i].Hostname < records[j].Hostname
	})
}
