// Package config stores named translator profiles
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"lcd-translator/pkg/proto"
	"lcd-translator/pkg/retry"
	"lcd-translator/pkg/serial"
	"lcd-translator/pkg/slcd"
)

// ErrProfileNotFound is returned when a named profile does not exist
var ErrProfileNotFound = errors.New("profile not found")

const storageVersion = "1.0"

// Profile is everything needed to run a translation session
type Profile struct {
	Upstream serial.SerialConfig `yaml:"upstream"`

	// Display is the SLCD character device. Ignored when Simulate is set.
	Display  string `yaml:"display,omitempty"`
	Simulate bool   `yaml:"simulate,omitempty"`
	// Rows and Columns size the simulated display
	Rows    int `yaml:"rows,omitempty"`
	Columns int `yaml:"columns,omitempty"`

	// Codes moves commands to other code bytes, keyed by command name
	Codes map[string]uint8 `yaml:"codes,omitempty"`

	Flush       retry.Config `yaml:"flush"`
	QueueSize   int          `yaml:"queue_size"`
	HistorySize int          `yaml:"history_size"`
}

// DefaultProfile returns a profile for a 20x4 display on /dev/slcd0
func DefaultProfile() Profile {
	return Profile{
		Upstream:    serial.DefaultConfig(),
		Display:     "/dev/slcd0",
		Rows:        4,
		Columns:     20,
		Flush:       slcd.DefaultStreamOptions().Retry,
		QueueSize:   1024,
		HistorySize: 64 * 1024,
	}
}

// Validate checks if the profile is usable
func (p Profile) Validate() error {
	if err := p.Upstream.Validate(); err != nil {
		return fmt.Errorf("invalid upstream config: %w", err)
	}

	if p.Simulate {
		if p.Rows <= 0 || p.Columns <= 0 {
			return fmt.Errorf("simulated display needs rows and columns, got %dx%d", p.Columns, p.Rows)
		}
	} else if p.Display == "" {
		return fmt.Errorf("display device cannot be empty unless simulating")
	}

	if err := p.Flush.Validate(); err != nil {
		return fmt.Errorf("invalid flush retry config: %w", err)
	}

	if p.QueueSize < 2 || p.QueueSize&(p.QueueSize-1) != 0 {
		return fmt.Errorf("queue size must be a power of two >= 2, got: %d", p.QueueSize)
	}

	if p.HistorySize < 0 {
		return fmt.Errorf("history size cannot be negative")
	}

	if _, err := p.CodeTable(); err != nil {
		return err
	}

	return nil
}

// CodeTable returns the default command codes with the profile overrides applied
func (p Profile) CodeTable() (proto.CodeTable, error) {
	overrides, err := ParseCodeOverrides(p.Codes)
	if err != nil {
		return proto.CodeTable{}, err
	}

	codes, err := proto.DefaultCodes().WithOverrides(overrides)
	if err != nil {
		return proto.CodeTable{}, fmt.Errorf("invalid code overrides: %w", err)
	}
	return codes, nil
}

// ParseCodeOverrides resolves command names to kinds
func ParseCodeOverrides(codes map[string]uint8) (map[proto.Kind]byte, error) {
	overrides := make(map[proto.Kind]byte, len(codes))
	for name, code := range codes {
		kind, err := proto.ParseKind(name)
		if err != nil {
			return nil, fmt.Errorf("invalid code override: %w", err)
		}
		overrides[kind] = code
	}
	return overrides, nil
}

// ProfileInfo contains a profile and its metadata
type ProfileInfo struct {
	Name        string    `yaml:"name"`
	Profile     Profile   `yaml:"profile"`
	CreatedAt   time.Time `yaml:"created_at"`
	LastUsedAt  time.Time `yaml:"last_used_at"`
	Description string    `yaml:"description,omitempty"`
}

// Validate checks if the profile info is valid
func (p ProfileInfo) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("profile name cannot be empty")
	}

	if err := p.Profile.Validate(); err != nil {
		return fmt.Errorf("invalid profile: %w", err)
	}

	if p.CreatedAt.IsZero() {
		return fmt.Errorf("created_at timestamp cannot be zero")
	}

	return nil
}

// ProfileStorage is the on-disk layout of the profiles file
type ProfileStorage struct {
	Profiles map[string]ProfileInfo `yaml:"profiles"`
	Version  string                 `yaml:"version"`
}

// FileProfileManager keeps profiles in a YAML file
type FileProfileManager struct {
	configDir  string
	configFile string
}

// DefaultConfigDir returns the per-user directory profiles live in
func DefaultConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".lcd-translator"
	}
	return filepath.Join(dir, "lcd-translator")
}

// NewFileProfileManager creates a manager rooted at configDir, or at
// DefaultConfigDir when configDir is empty
func NewFileProfileManager(configDir string) *FileProfileManager {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}
	return &FileProfileManager{
		configDir:  configDir,
		configFile: "profiles.yaml",
	}
}

// Initialize creates the configuration directory and an empty profiles file if needed
func (m *FileProfileManager) Initialize() error {
	if err := os.MkdirAll(m.configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(m.GetConfigPath()); os.IsNotExist(err) {
		if err := m.saveStorage(emptyStorage()); err != nil {
			return fmt.Errorf("failed to initialize profiles file: %w", err)
		}
	}

	return nil
}

// SaveProfile stores a profile under name, keeping metadata of an existing one
func (m *FileProfileManager) SaveProfile(name string, profile Profile) error {
	if name == "" {
		return fmt.Errorf("profile name cannot be empty")
	}

	if err := profile.Validate(); err != nil {
		return fmt.Errorf("invalid profile: %w", err)
	}

	if err := m.Initialize(); err != nil {
		return err
	}

	storage, err := m.loadStorage()
	if err != nil {
		return fmt.Errorf("failed to load existing profiles: %w", err)
	}

	now := time.Now()
	info := ProfileInfo{
		Name:       name,
		Profile:    profile,
		CreatedAt:  now,
		LastUsedAt: now,
	}

	if existing, exists := storage.Profiles[name]; exists {
		info.CreatedAt = existing.CreatedAt
		info.Description = existing.Description
	}

	storage.Profiles[name] = info

	if err := m.saveStorage(storage); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}

	return nil
}

// LoadProfile returns the named profile and records it as used
func (m *FileProfileManager) LoadProfile(name string) (Profile, error) {
	info, err := m.GetProfileInfo(name)
	if err != nil {
		return Profile{}, err
	}

	storage, err := m.loadStorage()
	if err == nil {
		info.LastUsedAt = time.Now()
		storage.Profiles[name] = info
		// last-used time is informational
		_ = m.saveStorage(storage)
	}

	return info.Profile, nil
}

// GetProfileInfo returns the named profile with its metadata
func (m *FileProfileManager) GetProfileInfo(name string) (ProfileInfo, error) {
	if name == "" {
		return ProfileInfo{}, fmt.Errorf("profile name cannot be empty")
	}

	storage, err := m.loadStorage()
	if err != nil {
		return ProfileInfo{}, fmt.Errorf("failed to load profiles: %w", err)
	}

	info, exists := storage.Profiles[name]
	if !exists {
		return ProfileInfo{}, fmt.Errorf("profile '%s': %w", name, ErrProfileNotFound)
	}

	return info, nil
}

// ListProfiles returns all saved profiles sorted by name
func (m *FileProfileManager) ListProfiles() ([]ProfileInfo, error) {
	storage, err := m.loadStorage()
	if err != nil {
		return nil, fmt.Errorf("failed to load profiles: %w", err)
	}

	profiles := make([]ProfileInfo, 0, len(storage.Profiles))
	for _, info := range storage.Profiles {
		profiles = append(profiles, info)
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].Name < profiles[j].Name })

	return profiles, nil
}

// DeleteProfile removes a profile by name
func (m *FileProfileManager) DeleteProfile(name string) error {
	if name == "" {
		return fmt.Errorf("profile name cannot be empty")
	}

	storage, err := m.loadStorage()
	if err != nil {
		return fmt.Errorf("failed to load profiles: %w", err)
	}

	if _, exists := storage.Profiles[name]; !exists {
		return fmt.Errorf("profile '%s': %w", name, ErrProfileNotFound)
	}

	delete(storage.Profiles, name)

	if err := m.saveStorage(storage); err != nil {
		return fmt.Errorf("failed to save profiles after deletion: %w", err)
	}

	return nil
}

// ProfileExists checks if a profile with the given name exists
func (m *FileProfileManager) ProfileExists(name string) bool {
	_, err := m.GetProfileInfo(name)
	return err == nil
}

// SetProfileDescription sets the description for a profile
func (m *FileProfileManager) SetProfileDescription(name, description string) error {
	if name == "" {
		return fmt.Errorf("profile name cannot be empty")
	}

	storage, err := m.loadStorage()
	if err != nil {
		return fmt.Errorf("failed to load profiles: %w", err)
	}

	info, exists := storage.Profiles[name]
	if !exists {
		return fmt.Errorf("profile '%s': %w", name, ErrProfileNotFound)
	}

	info.Description = description
	storage.Profiles[name] = info

	if err := m.saveStorage(storage); err != nil {
		return fmt.Errorf("failed to save profile description: %w", err)
	}

	return nil
}

// ExportProfile writes one profile to a standalone YAML file
func (m *FileProfileManager) ExportProfile(name, filePath string) error {
	if filePath == "" {
		return fmt.Errorf("file path cannot be empty")
	}

	info, err := m.GetProfileInfo(name)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write profile file: %w", err)
	}

	return nil
}

// ImportProfile reads a profile written by ExportProfile and saves it
func (m *FileProfileManager) ImportProfile(filePath string) (string, error) {
	if filePath == "" {
		return "", fmt.Errorf("file path cannot be empty")
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read profile file: %w", err)
	}

	var info ProfileInfo
	if err := yaml.Unmarshal(data, &info); err != nil {
		return "", fmt.Errorf("failed to parse profile file: %w", err)
	}

	if err := info.Validate(); err != nil {
		return "", fmt.Errorf("invalid profile in file: %w", err)
	}

	if err := m.SaveProfile(info.Name, info.Profile); err != nil {
		return "", err
	}
	if info.Description != "" {
		if err := m.SetProfileDescription(info.Name, info.Description); err != nil {
			return "", err
		}
	}

	return info.Name, nil
}

// SearchProfiles finds profiles whose name, description or device matches query
func (m *FileProfileManager) SearchProfiles(query string) ([]ProfileInfo, error) {
	profiles, err := m.ListProfiles()
	if err != nil || query == "" {
		return profiles, err
	}

	query = strings.ToLower(query)
	var results []ProfileInfo

	for _, info := range profiles {
		if strings.Contains(strings.ToLower(info.Name), query) ||
			strings.Contains(strings.ToLower(info.Description), query) ||
			strings.Contains(strings.ToLower(info.Profile.Upstream.Port), query) ||
			strings.Contains(strings.ToLower(info.Profile.Display), query) {
			results = append(results, info)
		}
	}

	return results, nil
}

// GetConfigPath returns the full path to the profiles file
func (m *FileProfileManager) GetConfigPath() string {
	return filepath.Join(m.configDir, m.configFile)
}

func emptyStorage() ProfileStorage {
	return ProfileStorage{
		Profiles: make(map[string]ProfileInfo),
		Version:  storageVersion,
	}
}

// loadStorage loads the profile storage from file
func (m *FileProfileManager) loadStorage() (ProfileStorage, error) {
	data, err := os.ReadFile(m.GetConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return emptyStorage(), nil
		}
		return ProfileStorage{}, fmt.Errorf("failed to read profiles file: %w", err)
	}

	var storage ProfileStorage
	if err := yaml.Unmarshal(data, &storage); err != nil {
		return ProfileStorage{}, fmt.Errorf("failed to parse profiles file: %w", err)
	}

	if storage.Profiles == nil {
		storage.Profiles = make(map[string]ProfileInfo)
	}

	return storage, nil
}

// saveStorage writes the profiles file through a temporary file and a rename
func (m *FileProfileManager) saveStorage(storage ProfileStorage) error {
	configPath := m.GetConfigPath()

	data, err := yaml.Marshal(storage)
	if err != nil {
		return fmt.Errorf("failed to marshal profiles: %w", err)
	}

	tempPath := configPath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temporary profiles file: %w", err)
	}

	if err := os.Rename(tempPath, configPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temporary profiles file: %w", err)
	}

	return nil
}
