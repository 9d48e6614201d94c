package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chmdznr/bulk-renamer/pkg/models"
	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

const (
	// ErrCodeNotFound means the configuration file does not exist
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid means the file cannot be read or parsed, or a field is malformed
	ErrCodeInvalid = "config_invalid"
	// ErrCodeMissingField means a required field is absent or empty
	ErrCodeMissingField = "config_missing_field"
)

// defaultPattern is the advertising tag the tool was first written to strip
const defaultPattern = "【海量资源：666root.com微AG110360】"

// DefaultPatterns returns the patterns used when none are given on the command line.
func DefaultPatterns() []string {
	return []string{defaultPattern}
}

// Error is a structured configuration error carrying a stable code.
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s: config file %q not found", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s: config file %q: %v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s: config file %q", e.Code, e.Path)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code extracts the error code from err, or "" when err is not an *Error.
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// S3Config locates the bucket that receives JSON run reports
type S3Config struct {
	Endpoint  string
	Bucket    string
	Prefix    string
	AccessKey string
	SecretKey string
	Secure    bool
}

// ReportConfig controls the JSON run report
type ReportConfig struct {
	Path string
	S3   *S3Config
}

// AppConfig is the normalized content of a configuration file.
type AppConfig struct {
	Path             string
	DryRun           bool
	Verbose          bool
	ConfirmBeforeRun bool
	MacClean         bool
	Journal          string
	Report           ReportConfig
	Tasks            []models.Task
}

// StringList decodes either a YAML sequence of strings or a lone scalar.
type StringList []string

func (s *StringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var v string
		if err := value.Decode(&v); err != nil {
			return err
		}
		*s = StringList{v}
		return nil
	case yaml.SequenceNode:
		var v []string
		if err := value.Decode(&v); err != nil {
			return err
		}
		*s = v
		return nil
	default:
		return fmt.Errorf("line %d: expected a string or a list of strings", value.Line)
	}
}

type fileDefaults struct {
	DryRun           *bool       `yaml:"dry_run"`
	Verbose          *bool       `yaml:"verbose"`
	ConfirmBeforeRun *bool       `yaml:"confirm_before_run"`
	MacClean         *bool       `yaml:"mac_clean"`
	Journal          string      `yaml:"journal"`
	Report           *fileReport `yaml:"report"`
}

type fileReport struct {
	Path string  `yaml:"path"`
	S3   *fileS3 `yaml:"s3"`
}

type fileS3 struct {
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Secure    *bool  `yaml:"secure"`
}

type fileTask struct {
	Name        string     `yaml:"name"`
	Directories StringList `yaml:"directories"`
	Patterns    StringList `yaml:"patterns"`
	Recursive   *bool      `yaml:"recursive"`
}

type fileConfig struct {
	Defaults fileDefaults `yaml:"defaults"`
	Tasks    []yaml.Node  `yaml:"tasks"`
}

// Load reads and validates the YAML configuration at path.
//
// Unset defaults fall back to dry_run=false, verbose=true,
// confirm_before_run=true and mac_clean=true; an unnamed task is called
// "Task <i>" and tasks are recursive unless they say otherwise.
// Directories and local paths are ~-expanded and made absolute.
func Load(path string) (*AppConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &Error{Code: ErrCodeNotFound, Path: path, Err: os.ErrNotExist}
		}
		return nil, &Error{Code: ErrCodeInvalid, Path: path, Err: err}
	}
	return Parse(path, b)
}

// Parse validates YAML content; path is only used in error messages.
func Parse(path string, content []byte) (*AppConfig, error) {
	invalid := func(format string, args ...interface{}) error {
		return &Error{Code: ErrCodeInvalid, Path: path, Err: fmt.Errorf(format, args...)}
	}
	missing := func(format string, args ...interface{}) error {
		return &Error{Code: ErrCodeMissingField, Path: path, Err: fmt.Errorf(format, args...)}
	}

	var root yaml.Node
	if err := yaml.Unmarshal(content, &root); err != nil {
		return nil, &Error{Code: ErrCodeInvalid, Path: path, Err: err}
	}
	if len(root.Content) == 0 || root.Content[0].Kind != yaml.MappingNode {
		return nil, invalid("top level must be a mapping")
	}

	var fc fileConfig
	if err := root.Content[0].Decode(&fc); err != nil {
		return nil, &Error{Code: ErrCodeInvalid, Path: path, Err: err}
	}
	if len(fc.Tasks) == 0 {
		return nil, missing("no tasks defined")
	}

	cfg := &AppConfig{
		Path:             path,
		DryRun:           boolOr(fc.Defaults.DryRun, false),
		Verbose:          boolOr(fc.Defaults.Verbose, true),
		ConfirmBeforeRun: boolOr(fc.Defaults.ConfirmBeforeRun, true),
		MacClean:         boolOr(fc.Defaults.MacClean, true),
	}

	if fc.Defaults.Journal != "" {
		p, err := ExpandPath(fc.Defaults.Journal)
		if err != nil {
			return nil, invalid("journal: %v", err)
		}
		cfg.Journal = p
	}

	if r := fc.Defaults.Report; r != nil {
		if r.Path != "" {
			p, err := ExpandPath(r.Path)
			if err != nil {
				return nil, invalid("report.path: %v", err)
			}
			cfg.Report.Path = p
		}
		if r.S3 != nil {
			if strings.TrimSpace(r.S3.Endpoint) == "" {
				return nil, missing("report.s3.endpoint is required")
			}
			if strings.TrimSpace(r.S3.Bucket) == "" {
				return nil, missing("report.s3.bucket is required")
			}
			cfg.Report.S3 = &S3Config{
				Endpoint:  strings.TrimSpace(r.S3.Endpoint),
				Bucket:    strings.TrimSpace(r.S3.Bucket),
				Prefix:    normalizePrefix(r.S3.Prefix),
				AccessKey: r.S3.AccessKey,
				SecretKey: r.S3.SecretKey,
				Secure:    boolOr(r.S3.Secure, true),
			}
		}
	}

	for i, node := range fc.Tasks {
		if node.Kind != yaml.MappingNode {
			return nil, invalid("task #%d must be a mapping", i+1)
		}
		var ft fileTask
		if err := node.Decode(&ft); err != nil {
			return nil, invalid("task #%d: %v", i+1, err)
		}

		name := strings.TrimSpace(ft.Name)
		if name == "" {
			name = fmt.Sprintf("Task %d", i+1)
		}
		if len(ft.Directories) == 0 {
			return nil, missing("task %q has no directories", name)
		}
		if len(ft.Patterns) == 0 {
			return nil, missing("task %q has no patterns", name)
		}
		for _, p := range ft.Patterns {
			if p == "" {
				return nil, invalid("task %q has an empty pattern", name)
			}
		}

		dirs := make([]string, 0, len(ft.Directories))
		for _, d := range ft.Directories {
			if strings.TrimSpace(d) == "" {
				return nil, invalid("task %q has an empty directory", name)
			}
			abs, err := ExpandPath(d)
			if err != nil {
				return nil, invalid("task %q: %v", name, err)
			}
			dirs = append(dirs, abs)
		}

		cfg.Tasks = append(cfg.Tasks, models.Task{
			Name:        name,
			Directories: dirs,
			Patterns:    append([]string(nil), ft.Patterns...),
			Recursive:   boolOr(ft.Recursive, true),
		})
	}

	return cfg, nil
}

// ExpandPath expands a leading ~ and returns the cleaned absolute path.
// Surrounding spaces are part of the name and are kept.
func ExpandPath(p string) (string, error) {
	expanded, err := homedir.Expand(p)
	if err != nil {
		return "", err
	}
	return filepath.Abs(expanded)
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// normalizePrefix strips leading slashes and ensures a trailing one, the same
// way destination folders are stored for object uploads.
func normalizePrefix(prefix string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}
