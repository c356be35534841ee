package config

import (
	"fmt"
	"net"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/jiayi-1994/tuplegen/pkg/util"
)

// MacEntry binds a client address to its MAC.
type MacEntry struct {
	IP  string `yaml:"ip"`
	MAC string `yaml:"mac"`
}

// MacTable maps client IPs to MAC addresses. Only clients present in the
// table generate traffic.
//
// File format:
//
//	- ip: 16.0.0.1
//	  mac: "00:00:00:01:00:00"
//	- ip: 16.0.0.2
//	  mac: "00:00:00:01:00:01"
type MacTable struct {
	entries map[uint32]net.HardwareAddr
}

// LoadMacFile reads a MAC table from a YAML file
func LoadMacFile(path string) (*MacTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mac file: %w", err)
	}
	return ParseMacTable(data)
}

// ParseMacTable parses the YAML form of a MAC table.
// Duplicate IPs keep the last MAC.
func ParseMacTable(data []byte) (*MacTable, error) {
	var list []MacEntry
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to parse mac file: %w", err)
	}

	t := &MacTable{entries: make(map[uint32]net.HardwareAddr, len(list))}
	for i, e := range list {
		ip, err := util.ParseIPv4(e.IP)
		if err != nil {
			return nil, fmt.Errorf("mac entry %d: %w", i, err)
		}
		mac, err := net.ParseMAC(e.MAC)
		if err != nil {
			return nil, fmt.Errorf("mac entry %d (%s): %w", i, e.IP, err)
		}
		t.entries[ip] = mac
	}
	return t, nil
}

// Len returns the number of clients in the table
func (t *MacTable) Len() int {
	return len(t.entries)
}

// Lookup returns the MAC bound to ip
func (t *MacTable) Lookup(ip uint32) (net.HardwareAddr, bool) {
	mac, ok := t.entries[ip]
	return mac, ok
}

// ClientsInRange returns the sorted client IPs of the table within
// [start, end].
func (t *MacTable) ClientsInRange(start, end uint32) []uint32 {
	out := make([]uint32, 0, len(t.entries))
	for ip := range t.entries {
		if ip >= start && ip <= end {
			out = append(out, ip)
		}
	}
	slices.Sort(out)
	return out
}
