package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/benthic-data/consensus.report/internal/agg"
)

// DefaultConfigPath is the path to the canonical aggregation defaults file.
// This is the single source of truth for all default threshold values.
const DefaultConfigPath = "config/aggregation.defaults.json"

// AggregationConfig represents the root configuration for an aggregation
// deployment. The threshold fields match the /api/aggregate request body so
// the same JSON can be used for both startup configuration and per-run
// overrides.
type AggregationConfig struct {
	// Aggregation thresholds
	MinUsers *int     `json:"min_users,omitempty"`
	AggUsers *float64 `json:"agg_users,omitempty"`
	AggObj   *float64 `json:"agg_obj,omitempty"`
	AggIoU   *float64 `json:"agg_iou,omitempty"`
	AggIUA   *float64 `json:"agg_iua,omitempty"`

	// Workflow selection
	WorkflowID         *int64   `json:"workflow_id,omitempty"`
	MinWorkflowVersion *float64 `json:"min_workflow_version,omitempty"`
	Extractor          *string  `json:"extractor,omitempty"` // clip answer layout, e.g. "koster"

	// Storage and server
	DBPath      *string `json:"db_path,omitempty"`
	ListenAddr  *string `json:"listen_addr,omitempty"`
	HTTPTimeout *string `json:"http_timeout,omitempty"` // duration string like "30s"
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyAggregationConfig returns an AggregationConfig with all fields set to
// nil. Use LoadAggregationConfig to load actual values from a file.
func EmptyAggregationConfig() *AggregationConfig {
	return &AggregationConfig{}
}

// DefaultAggregationConfig returns a config populated with the standard
// starting values. Workflow selection is left unset because there is no
// sensible default workflow.
func DefaultAggregationConfig() *AggregationConfig {
	return &AggregationConfig{
		MinUsers:    ptrInt(agg.DefaultMinUsers),
		AggUsers:    ptrFloat64(agg.DefaultAggUsers),
		AggObj:      ptrFloat64(agg.DefaultAggObj),
		AggIoU:      ptrFloat64(agg.DefaultAggIoU),
		AggIUA:      ptrFloat64(agg.DefaultAggIUA),
		Extractor:   ptrString("koster"),
		DBPath:      ptrString("consensus.db"),
		ListenAddr:  ptrString(":8080"),
		HTTPTimeout: ptrString("30s"),
	}
}

// LoadAggregationConfig loads an AggregationConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadAggregationConfig(path string) (*AggregationConfig, error) {
	// Validate the config file path.
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse JSON into empty config. The Get* methods provide fallback
	// defaults for any fields not specified in the JSON.
	cfg := EmptyAggregationConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical aggregation defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *AggregationConfig {
	// Try paths from current dir up to repo root
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // from cmd/consensus/
		"../../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadAggregationConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *AggregationConfig) Validate() error {
	if c.MinUsers != nil {
		if *c.MinUsers < 1 {
			return fmt.Errorf("min_users must be at least 1, got %d", *c.MinUsers)
		}
	}

	// Every agreement threshold is a fraction of raters
	if c.AggUsers != nil && (*c.AggUsers < 0 || *c.AggUsers > 1) {
		return fmt.Errorf("agg_users must be between 0 and 1, got %f", *c.AggUsers)
	}
	if c.AggObj != nil && (*c.AggObj < 0 || *c.AggObj > 1) {
		return fmt.Errorf("agg_obj must be between 0 and 1, got %f", *c.AggObj)
	}
	if c.AggIoU != nil && (*c.AggIoU < 0 || *c.AggIoU > 1) {
		return fmt.Errorf("agg_iou must be between 0 and 1, got %f", *c.AggIoU)
	}
	if c.AggIUA != nil && (*c.AggIUA < 0 || *c.AggIUA > 1) {
		return fmt.Errorf("agg_iua must be between 0 and 1, got %f", *c.AggIUA)
	}

	if c.WorkflowID != nil && *c.WorkflowID <= 0 {
		return fmt.Errorf("workflow_id must be positive, got %d", *c.WorkflowID)
	}

	// Validate Extractor names a known clip answer layout if set
	if c.Extractor != nil && *c.Extractor != "" {
		if _, err := agg.LookupExtractor(*c.Extractor); err != nil {
			return fmt.Errorf("invalid extractor: %w", err)
		}
	}

	// Validate HTTPTimeout can be parsed if set
	if c.HTTPTimeout != nil && *c.HTTPTimeout != "" {
		if _, err := time.ParseDuration(*c.HTTPTimeout); err != nil {
			return fmt.Errorf("invalid http_timeout '%s': %w", *c.HTTPTimeout, err)
		}
	}

	return nil
}

// Params assembles the aggregation thresholds into an agg.Params, filling
// unset fields with the standard defaults.
func (c *AggregationConfig) Params() agg.Params {
	return agg.Params{
		MinUsers: c.GetMinUsers(),
		AggUsers: c.GetAggUsers(),
		AggObj:   c.GetAggObj(),
		AggIoU:   c.GetAggIoU(),
		AggIUA:   c.GetAggIUA(),
	}
}

// GetMinUsers returns the min_users value or the default.
func (c *AggregationConfig) GetMinUsers() int {
	if c.MinUsers == nil {
		return agg.DefaultMinUsers
	}
	return *c.MinUsers
}

// GetAggUsers returns the agg_users value or the default.
func (c *AggregationConfig) GetAggUsers() float64 {
	if c.AggUsers == nil {
		return agg.DefaultAggUsers
	}
	return *c.AggUsers
}

// GetAggObj returns the agg_obj value or the default.
func (c *AggregationConfig) GetAggObj() float64 {
	if c.AggObj == nil {
		return agg.DefaultAggObj
	}
	return *c.AggObj
}

// GetAggIoU returns the agg_iou value or the default.
func (c *AggregationConfig) GetAggIoU() float64 {
	if c.AggIoU == nil {
		return agg.DefaultAggIoU
	}
	return *c.AggIoU
}

// GetAggIUA returns the agg_iua value or the default.
func (c *AggregationConfig) GetAggIUA() float64 {
	if c.AggIUA == nil {
		return agg.DefaultAggIUA
	}
	return *c.AggIUA
}

// GetWorkflowID returns the workflow_id value, or 0 when unset. Commands
// that need a workflow require it explicitly.
func (c *AggregationConfig) GetWorkflowID() int64 {
	if c.WorkflowID == nil {
		return 0
	}
	return *c.WorkflowID
}

// GetMinWorkflowVersion returns the min_workflow_version value or 0.
func (c *AggregationConfig) GetMinWorkflowVersion() float64 {
	if c.MinWorkflowVersion == nil {
		return 0
	}
	return *c.MinWorkflowVersion
}

// GetExtractor returns the extractor name or the default.
func (c *AggregationConfig) GetExtractor() string {
	if c.Extractor == nil || *c.Extractor == "" {
		return "koster"
	}
	return *c.Extractor
}

// GetDBPath returns the db_path value or the default.
func (c *AggregationConfig) GetDBPath() string {
	if c.DBPath == nil || *c.DBPath == "" {
		return "consensus.db"
	}
	return *c.DBPath
}

// GetListenAddr returns the listen_addr value or the default.
func (c *AggregationConfig) GetListenAddr() string {
	if c.ListenAddr == nil || *c.ListenAddr == "" {
		return ":8080"
	}
	return *c.ListenAddr
}

// GetHTTPTimeout parses and returns the HTTPTimeout as a time.Duration.
func (c *AggregationConfig) GetHTTPTimeout() time.Duration {
	if c.HTTPTimeout == nil || *c.HTTPTimeout == "" {
		return 30 * time.Second // default
	}
	d, err := time.ParseDuration(*c.HTTPTimeout)
	if err != nil {
		return 30 * time.Second // default on parse error
	}
	return d
}
