// Copyright 2020-2021 The OS-NVR Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; version 2.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package storage holds the environment and general configuration for a
// mpdelta instance: where projects and render caches live on disk, and the
// few knobs that apply across every project.
package storage

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"mpdelta/pkg/log"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"gopkg.in/yaml.v2"
)

// Manager reports disk usage for the projects and cache directories.
type Manager struct {
	path    string
	general *ConfigGeneral

	usage func(string) int64

	log *log.Logger
}

// NewManager returns a new Manager rooted at path.
func NewManager(path string, general *ConfigGeneral, log *log.Logger) *Manager {
	return &Manager{
		path:    path,
		general: general,

		usage: diskUsage,

		log: log,
	}
}

// DiskUsage in bytes.
type DiskUsage struct {
	Used      int
	Percent   int
	Max       int
	Formatted string
}

const kilobyte float64 = 1000
const megabyte = kilobyte * 1000
const gigabyte = megabyte * 1000
const terabyte = gigabyte * 1000

func formatDiskUsage(used float64) string {
	switch {
	case used < 1000*megabyte:
		return fmt.Sprintf("%.0fMB", used/megabyte)
	case used < 10*gigabyte:
		return fmt.Sprintf("%.2fGB", used/gigabyte)
	case used < 100*gigabyte:
		return fmt.Sprintf("%.1fGB", used/gigabyte)
	case used < 1000*gigabyte:
		return fmt.Sprintf("%.0fGB", used/gigabyte)
	case used < 10*terabyte:
		return fmt.Sprintf("%.2fTB", used/terabyte)
	case used < 100*terabyte:
		return fmt.Sprintf("%.1fTB", used/terabyte)
	default:
		return fmt.Sprintf("%.0fTB", used/terabyte)
	}
}

func diskUsage(path string) int64 {
	var used int64
	filepath.Walk(path+"/", func(_ string, info os.FileInfo, err error) error { //nolint:errcheck
		if info != nil && !info.IsDir() {
			used += info.Size()
		}
		return nil
	})
	return used
}

// Usage returns disk usage of the storage root, relative to the
// administrator-configured quota (diskSpace, in GB; "0" means unlimited).
func (s *Manager) Usage() (DiskUsage, error) {
	used := s.usage(s.path)

	diskSpace := s.general.Get().DiskSpace
	if diskSpace == "0" || diskSpace == "" {
		return DiskUsage{
			Used:      int(used),
			Formatted: formatDiskUsage(float64(used)),
		}, nil
	}

	diskSpaceGB, err := strconv.ParseFloat(diskSpace, 64)
	if err != nil {
		if s.log != nil {
			s.log.Error().Src("storage").Msgf("invalid disk space quota %q: %v", diskSpace, err)
		}
		return DiskUsage{}, err
	}
	diskSpaceByte := diskSpaceGB * gigabyte

	var usedPercent int64
	if used != 0 {
		usedPercent = (used * 100) / int64(diskSpaceByte)
	}

	return DiskUsage{
		Used:      int(used),
		Percent:   int(usedPercent),
		Max:       int(diskSpaceGB),
		Formatted: formatDiskUsage(float64(used)),
	}, nil
}

// ConfigEnv stores process-wide environment configuration, loaded once at
// startup from env.yaml.
type ConfigEnv struct {
	Port      string `yaml:"port"`
	FFmpegBin string `yaml:"ffmpegBin"`

	HomeDir     string `yaml:"homeDir"`
	ProjectsDir string `yaml:"projectsDir"`
	CacheDir    string `yaml:"cacheDir"`
	ConfigDir   string
}

// NewConfigEnv returns a new environment configuration, filling in defaults
// relative to envPath's directory.
func NewConfigEnv(envPath string, envYAML []byte) (*ConfigEnv, error) {
	var env ConfigEnv

	if err := yaml.Unmarshal(envYAML, &env); err != nil {
		return &ConfigEnv{}, fmt.Errorf("could not unmarshal env.yaml: %v", err)
	}

	env.ConfigDir = filepath.Dir(envPath)

	if env.Port == "" {
		env.Port = "2020"
	}
	if env.FFmpegBin == "" {
		env.FFmpegBin = "/usr/bin/ffmpeg"
	}
	if env.HomeDir == "" {
		env.HomeDir = filepath.Dir(env.ConfigDir)
	}
	if env.ProjectsDir == "" {
		env.ProjectsDir = env.HomeDir + "/projects"
	}
	if env.CacheDir == "" {
		env.CacheDir = env.HomeDir + "/cache"
	}

	if !dirExist(env.FFmpegBin) {
		return nil, fmt.Errorf("ffmpegBin '%v' does not exist", env.FFmpegBin)
	}
	if !filepath.IsAbs(env.FFmpegBin) {
		return nil, fmt.Errorf("ffmpegBin '%v' is not a absolute path", env.FFmpegBin)
	}
	if !filepath.IsAbs(env.HomeDir) {
		return nil, fmt.Errorf("homeDir '%v' is not a absolute path", env.HomeDir)
	}
	if !filepath.IsAbs(env.ProjectsDir) {
		return nil, fmt.Errorf("projectsDir '%v' is not a absolute path", env.ProjectsDir)
	}
	if !filepath.IsAbs(env.CacheDir) {
		return nil, fmt.Errorf("cacheDir '%v' is not a absolute path", env.CacheDir)
	}

	return &env, nil
}

// PrepareEnvironment creates the directories the environment config points at.
func (env *ConfigEnv) PrepareEnvironment() error {
	if err := os.MkdirAll(env.ProjectsDir, 0700); err != nil && err != os.ErrExist {
		return fmt.Errorf("could not create projects directory: %v: %v", env.ProjectsDir, err)
	}
	if err := os.MkdirAll(env.CacheDir, 0700); err != nil && err != os.ErrExist {
		return fmt.Errorf("could not create cache directory: %v: %v", env.CacheDir, err)
	}
	return nil
}

// GeneralConfig stores general config values shared by every project.
type GeneralConfig struct {
	DiskSpace      string `json:"diskSpace"`
	CacheEntryCap  int    `json:"cacheEntryCap"`
	RenderWorkers  int    `json:"renderWorkers"`
}

// ConfigGeneral stores GeneralConfig and its backing path.
type ConfigGeneral struct {
	Config GeneralConfig

	path string
	mu   sync.Mutex
}

// NewConfigGeneral loads (or creates) general.json under path.
func NewConfigGeneral(path string) (*ConfigGeneral, error) {
	var general ConfigGeneral
	general.Config.CacheEntryCap = 4096
	general.Config.RenderWorkers = 16

	configPath := path + "/general.json"

	if !dirExist(configPath) {
		if err := generateGeneralConfig(configPath); err != nil {
			return &ConfigGeneral{}, fmt.Errorf("could not generate general config: %v", err)
		}
	}

	file, err := ioutil.ReadFile(configPath)
	if err != nil {
		return &ConfigGeneral{}, err
	}

	if err := json.Unmarshal(file, &general.Config); err != nil {
		return &ConfigGeneral{}, err
	}

	general.path = configPath
	return &general, nil
}

func generateGeneralConfig(path string) error {
	config := GeneralConfig{
		DiskSpace:     "10000",
		CacheEntryCap: 4096,
		RenderWorkers: 16,
	}
	c, _ := json.MarshalIndent(config, "", "    ")

	return ioutil.WriteFile(path, c, 0600)
}

// Get returns the current general config.
func (general *ConfigGeneral) Get() GeneralConfig {
	defer general.mu.Unlock()
	general.mu.Lock()
	return general.Config
}

// Set replaces the general config and persists it.
func (general *ConfigGeneral) Set(newConfig GeneralConfig) error {
	general.mu.Lock()

	config, _ := json.MarshalIndent(newConfig, "", "    ")

	if err := ioutil.WriteFile(general.path, config, 0600); err != nil {
		general.mu.Unlock()
		return err
	}

	general.Config = newConfig

	general.mu.Unlock()
	return nil
}

func dirExist(path string) bool {
	if _, err := os.Stat(path); err != nil {
		return false
	}
	return true
}
