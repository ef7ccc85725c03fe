// Package deployments persists the addresses of contracts deployed to live
// networks, keyed by chain id and contract name with the newest entry first
package deployments

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/umbracle/ethgo"

	"github.com/0xPolygon/token-farm/helper/common"
)

const (
	// Dir is the deployments folder inside the build directory
	Dir = "deployments"
	// FileName of the deployment map
	FileName = "map.json"
)

// Map is chain id -> contract name -> addresses, newest first
type Map struct {
	path    string
	entries map[string]map[string][]ethgo.Address
}

// Path returns the location of the deployment map inside the build directory
func Path(buildDir string) string {
	return filepath.Join(buildDir, Dir, FileName)
}

// Load reads the deployment map of the build directory, returning an empty
// map when none was written yet
func Load(buildDir string) (*Map, error) {
	m := &Map{
		path:    Path(buildDir),
		entries: map[string]map[string][]ethgo.Address{},
	}

	data, err := os.ReadFile(m.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return m, nil
		}

		return nil, fmt.Errorf("failed to read deployment map: %w", err)
	}

	if err := json.Unmarshal(data, &m.entries); err != nil {
		return nil, fmt.Errorf("failed to decode deployment map %s: %w", m.path, err)
	}

	return m, nil
}

// Record prepends the address to the contract's deployments on the chain
func (m *Map) Record(chainID uint64, contract string, addr ethgo.Address) {
	chain := strconv.FormatUint(chainID, 10)

	if m.entries[chain] == nil {
		m.entries[chain] = map[string][]ethgo.Address{}
	}

	m.entries[chain][contract] = append([]ethgo.Address{addr}, m.entries[chain][contract]...)
}

// Latest returns the most recent deployment of the contract on the chain
func (m *Map) Latest(chainID uint64, contract string) (ethgo.Address, bool) {
	addrs := m.entries[strconv.FormatUint(chainID, 10)][contract]
	if len(addrs) == 0 {
		return ethgo.ZeroAddress, false
	}

	return addrs[0], true
}

// Contracts returns the names of the contracts deployed on the chain
func (m *Map) Contracts(chainID uint64) []string {
	names := []string{}
	for name := range m.entries[strconv.FormatUint(chainID, 10)] {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Save writes the map back to the build directory
func (m *Map) Save() error {
	data, err := json.MarshalIndent(m.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode deployment map: %w", err)
	}

	return common.SaveFileSafe(m.path, data, 0640)
}
