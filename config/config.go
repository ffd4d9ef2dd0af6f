// Package config loads the YAML settings a session is configured
// with: the PartialExt/ConfirmOverwriting/CacheDirectories/EOLType
// knobs named in §6, in the style of the teacher's uconfig.YamlLoad —
// a flat yaml.Unmarshal into a tagged struct, without reimplementing
// uconfig's property-expansion/include machinery, which this module
// has no use for.
package config

import (
	"os"
	"time"

	"github.com/wscp/sftpcore/xfer"

	"gopkg.in/yaml.v2"
)

// EOLType names a line-ending convention for a yaml-configured field;
// kept as a string in the file so the YAML stays readable ("lf",
// "crlf", "cr") and is translated to xfer.EOLStyle by the caller.
type EOLType string

const (
	EOLTypeLF   EOLType = "lf"
	EOLTypeCRLF EOLType = "crlf"
	EOLTypeCR   EOLType = "cr"
)

// Settings is the top-level YAML document shape for a configured
// session: the transfer policy knobs of §6, plus the housekeeping
// sweep and connection settings layered in around them.
type Settings struct {
	// PartialExt suffixes an in-progress destination, e.g. ".filepart".
	PartialExt string `yaml:"partial_ext"`

	// ConfirmOverwriting gates the overwrite prompt before clobbering an
	// existing destination.
	ConfirmOverwriting bool `yaml:"confirm_overwriting"`

	// CacheDirectories enables the pathCache's memoization of Canonify's
	// RealPath resolutions (the home directory is memoized either way);
	// disable for a session
	// against a server known to rename things out from under a cached
	// path.
	CacheDirectories bool `yaml:"cache_directories"`

	// LocalEOLType is this host's line-ending convention.
	LocalEOLType EOLType `yaml:"local_eol_type"`

	// EOLType is the remote session's line-ending convention, used when
	// a transfer is flagged ASCII.
	EOLType EOLType `yaml:"eol_type"`

	PreserveRights bool `yaml:"preserve_rights"`
	PreserveTime   bool `yaml:"preserve_time"`
	CPDelete       bool `yaml:"cp_delete"`

	// ResumeMinSize is the file size, in bytes, at or below which resume
	// is never offered; only larger files are resumable, since for small
	// ones a fresh transfer is cheaper than the round trips needed to
	// check and confirm a resume.
	ResumeMinSize int64 `yaml:"resume_min_size"`

	Housekeeping HousekeepingSettings `yaml:"housekeeping"`
}

// HousekeepingSettings configures the orphaned-partial-file sweep.
type HousekeepingSettings struct {
	Enabled  bool          `yaml:"enabled"`
	Dir      string        `yaml:"dir"`
	Schedule string        `yaml:"schedule"`
	MaxAge   time.Duration `yaml:"max_age"`
}

// Defaults returns Settings matching xfer.DefaultCopyParameters, except
// that the remote EOL type defaults to LF where DefaultCopyParameters
// uses CRLF, so a caller that never supplies a config file still gets
// sane behavior.
func Defaults() Settings {
	return Settings{
		PartialExt:         ".filepart",
		ConfirmOverwriting: true,
		CacheDirectories:   true,
		LocalEOLType:       EOLTypeLF,
		EOLType:            EOLTypeLF,
		PreserveRights:     true,
		PreserveTime:       true,
		ResumeMinSize:      4096,
		Housekeeping: HousekeepingSettings{
			Enabled:  false,
			Schedule: "0 */15 * * * *",
			MaxAge:   24 * time.Hour,
		},
	}
}

// Style translates the configured EOLType into an xfer.EOLStyle.
// An unrecognized value falls back to LF, matching Defaults.
func (t EOLType) Style() xfer.EOLStyle {
	switch t {
	case EOLTypeCRLF:
		return xfer.EOLCRLF
	case EOLTypeCR:
		return xfer.EOLCR
	default:
		return xfer.EOLLF
	}
}

// CopyParameters builds an xfer.CopyParameters from these settings,
// starting from xfer.DefaultCopyParameters for the fields this
// Settings doesn't override (name-case folding, per-file rights
// computation).
func (s Settings) CopyParameters() xfer.CopyParameters {
	params := xfer.DefaultCopyParameters()
	params.PreserveRights = s.PreserveRights
	params.PreserveTime = s.PreserveTime
	params.CPDelete = s.CPDelete
	params.PartialExt = s.PartialExt
	params.ConfirmOverwriting = s.ConfirmOverwriting
	params.AllowResume = func(size int64) bool { return size > s.ResumeMinSize }
	params.LocalEOLStyle = s.LocalEOLType.Style()
	params.RemoteEOLStyle = s.EOLType.Style()
	return params
}

// Load reads file and unmarshals it onto Defaults(), so any key the
// file omits keeps its default value, matching the teacher's
// YamlLoad(file, target) entry point.
func Load(file string) (Settings, error) {
	settings := Defaults()
	content, err := os.ReadFile(file)
	if err != nil {
		return settings, err
	}
	if err := yaml.Unmarshal(content, &settings); err != nil {
		return settings, err
	}
	return settings, nil
}
