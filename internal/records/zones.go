/*
 * Zones - per-zone record aggregation and snippet serialization.
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
	"os"
	"path/filepath"
	"sort"
	"strings"

	"netbox-dns-snippets/internal/metrics"
	"netbox-dns-snippets/internal/netbox"

	log "github.com/sirupsen/logrus"
)

// Record kinds, used as zone map keys and metric labels.
const (
	kindDirect  = "direct"
	kindReverse = "reverse"
)

// Zones accumulates the derived records grouped by zone name, deduplicated
// by the (zone, hostname, ip) triple.
type Zones struct {
	deriver    Deriver
	minRecords int

	direct  map[string]map[string]ForwardRecord
	reverse map[string]map[string]ReverseRecord

	recordsCount int
}

// NewZones returns an empty zone collection. minRecords is the safety floor
// under which the run is flagged for review.
func NewZones(deriver Deriver, minRecords int) *Zones {
	return &Zones{
		deriver:    deriver,
		minRecords: minRecords,
		direct:     map[string]map[string]ForwardRecord{},
		reverse:    map[string]map[string]ReverseRecord{},
	}
}

// RecordsCount returns the number of forward records generated so far.
func (z *Zones) RecordsCount() int {
	return z.recordsCount
}

// addDirect inserts a forward record into its zone set.
func (z *Zones) addDirect(zoneName string, record ForwardRecord) {
	set, ok := z.direct[zoneName]
	if !ok {
		set = map[string]ForwardRecord{}
		z.direct[zoneName] = set
	}
	set[record.Key()] = record
}

// addReverse inserts a reverse record into its zone set.
func (z *Zones) addReverse(record ReverseRecord) {
	set, ok := z.reverse[record.Zone]
	if !ok {
		set = map[string]ReverseRecord{}
		z.reverse[record.Zone] = set
	}
	set[record.Key()] = record
}

// Generate derives all the DNS records from the snapshot data.
func (z *Zones) Generate(snapshot *netbox.Snapshot) {
	log.Info("Generating DNS records")
	m := metrics.GetOpenMetricsInstance()

	for name, data := range snapshot.Devices {
		for _, address := range data.Addresses {
			ipInterface, err := address.Prefix()
			if err != nil {
				log.Warningf("Cannot parse address %s of %s, skipping: %v", address.Address, name, err)
				m.IncSkippedAddresses()
				continue
			}

			hostname, zone, zoneName := z.deriver.SplitDNSName(address, ipInterface.Addr(), snapshot.Prefixes)
			derived := DeriveAddressRecords(zone, hostname, ipInterface, address, data.Device, data.Physical)
			z.recordsCount += len(derived)
			for _, record := range derived {
				z.addDirect(zoneName, record)
				if reverse := Reverse(record, snapshot.Prefixes); reverse != nil {
					z.addReverse(*reverse)
				}
			}
		}
	}

	reverseCount := 0
	for _, set := range z.reverse {
		reverseCount += len(set)
	}
	log.Infof("Generated %d direct and %d reverse records in %d direct zones and %d reverse zones",
		z.recordsCount, reverseCount, len(z.direct), len(z.reverse))
	m.SetGeneratedRecords(kindDirect, z.recordsCount)
	m.SetGeneratedRecords(kindReverse, reverseCount)
	m.SetGeneratedZones(kindDirect, len(z.direct))
	m.SetGeneratedZones(kindReverse, len(z.reverse))

	if z.recordsCount < z.minRecords {
		log.Errorf("CAUTION: the generated records are less than the minimum limit of %d. Check the diff!", z.minRecords)
	}
}

// WriteSnippets writes one snippet file per zone into the destination
// directory, records sorted by each kind's ordering key.
func (z *Zones) WriteSnippets(destination string) error {
	log.Infof("Generating zonefile snippets to directory %s", destination)

	for zone, set := range z.direct {
		zoneRecords := make([]ForwardRecord, 0, len(set))
		for _, record := range set {
			zoneRecords = append(zoneRecords, record)
		}
		SortForward(zoneRecords)

		lines := make([]string, len(zoneRecords))
		for i, record := range zoneRecords {
			lines[i] = record.String()
		}
		if err := writeZonefile(destination, zone, lines); err != nil {
			return err
		}
		log.Debugf("Wrote %d %s records in %s zonefile", len(zoneRecords), kindDirect, zone)
	}

	for zone, set := range z.reverse {
		zoneRecords := make([]ReverseRecord, 0, len(set))
		for _, record := range set {
			zoneRecords = append(zoneRecords, record)
		}
		SortReverse(zoneRecords)

		lines := make([]string, len(zoneRecords))
		for i, record := range zoneRecords {
			lines[i] = record.String()
		}
		if err := writeZonefile(destination, zone, lines); err != nil {
			return err
		}
		log.Debugf("Wrote %d %s records in %s zonefile", len(zoneRecords), kindReverse, zone)
	}

	return nil
}

// ZoneNames returns the sorted names of all generated zones, direct first.
func (z *Zones) ZoneNames() (direct, reverse []string) {
	for zone := range z.direct {
		direct = append(direct, zone)
	}
	for zone := range z.reverse {
		reverse = append(reverse, zone)
	}
	sort.Strings(direct)
	sort.Strings(reverse)
	return direct, reverse
}

// writeZonefile writes a single zone snippet, one record per line.
func writeZonefile(destination, zone string, lines []string) error {
	path := filepath.Join(destination, zone)
	content := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("cannot write zonefile %s: %w", path, err)
	}
	return nil
}
