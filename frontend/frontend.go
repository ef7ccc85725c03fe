// Package frontend copies the build output and the active network
// configuration into a frontend project
package frontend

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/hashicorp/go-hclog"

	"github.com/0xPolygon/token-farm/helper/common"
	"github.com/0xPolygon/token-farm/network"
)

const (
	// DefaultDir is the frontend project updated when none is given
	DefaultDir = "./front_end"

	chainInfoDir   = "src/chain-info"
	configFileName = "src/brownie-config.json"
)

// Syncer updates a frontend project
type Syncer interface {
	Sync() error
}

// Sync copies a build directory and a configuration file into a frontend
type Sync struct {
	logger     hclog.Logger
	buildDir   string
	configPath string
	dir        string
}

var _ Syncer = (*Sync)(nil)

func NewSync(logger hclog.Logger, buildDir, configPath, dir string) *Sync {
	if dir == "" {
		dir = DefaultDir
	}

	return &Sync{
		logger:     logger.Named("frontend"),
		buildDir:   buildDir,
		configPath: configPath,
		dir:        dir,
	}
}

// ChainInfoDir is where the build output is copied
func (s *Sync) ChainInfoDir() string {
	return filepath.Join(s.dir, chainInfoDir)
}

// ConfigFile is where the configuration is written as JSON
func (s *Sync) ConfigFile() string {
	return filepath.Join(s.dir, configFileName)
}

// Sync replaces the frontend chain info with the build directory and writes
// the configuration file as JSON, unexpanded, next to it
func (s *Sync) Sync() error {
	if err := common.CopyDir(s.buildDir, s.ChainInfoDir()); err != nil {
		return fmt.Errorf("failed to copy build directory to the frontend: %w", err)
	}

	s.logger.Info("build directory copied", "from", s.buildDir, "to", s.ChainInfoDir())

	if s.configPath == "" {
		s.logger.Warn("no configuration file to export")

		return nil
	}

	raw, err := network.ReadRawConfigFile(s.configPath)
	if err != nil {
		return fmt.Errorf("failed to read configuration %s: %w", s.configPath, err)
	}

	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}

	if err := common.SaveFileSafe(s.ConfigFile(), data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.ConfigFile(), err)
	}

	s.logger.Info("frontend updated", "config", s.ConfigFile())

	return nil
}
