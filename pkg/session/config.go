/** Copyright 2025-2026 The devmem Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package session

import (
	"math"
	"os"
	"time"

	json "github.com/goccy/go-json"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"

	"github.com/devmem-io/devmem/pkg/common"
	"github.com/devmem-io/devmem/pkg/common/types"
)

const (
	DefaultRecords  = 9
	DefaultElements = 2
)

// DefaultCoefficients generate the canonical payload: record i carries
// the elements [i, 2*i].
var DefaultCoefficients = []int32{1, 2}

// ProfileEnv carries a full profile document between the coordinator
// and the role processes it spawns.
const ProfileEnv = "DEVMEM_PROFILE"

// Duration is a time.Duration that unmarshals from both a bare
// nanosecond count and a time.ParseDuration string like "250ms".
type Duration time.Duration

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw any
	if err := common.ParseJson(data, &raw); err != nil {
		return err
	}
	switch value := raw.(type) {
	case string:
		return d.UnmarshalText([]byte(value))
	case json.Number:
		ns, err := value.Int64()
		if err != nil {
			return err
		}
		*d = Duration(ns)
		return nil
	default:
		return errors.Errorf("invalid duration document: %s", string(data))
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return common.EncodeJson(d.String())
}

// Profile parameterizes one transfer session.  Both roles must run
// with the same profile; the coordinator forwards its own through the
// DEVMEM_PROFILE environment document.
type Profile struct {
	// Records is the number of transfer records the producer publishes
	// and the consumer drains.
	Records int `json:"records" envconfig:"records"`
	// Elements is the element count of every record payload.
	Elements int `json:"elements" envconfig:"elements"`
	// Coefficients derive the payloads: element k of record i holds
	// Coefficients[k] * i.  The length must equal Elements.
	Coefficients []int32 `json:"coefficients" envconfig:"coefficients"`
	// Ordinal selects the device both roles attach to.
	Ordinal uint16 `json:"ordinal" envconfig:"ordinal"`
	// ArenaDir overrides the arena directory; empty uses the device
	// default.
	ArenaDir string `json:"arena_dir" envconfig:"arena_dir"`
	// WaitTimeout bounds every blocking channel operation.  Zero keeps
	// the protocol's unbounded blocking.
	WaitTimeout Duration `json:"wait_timeout" envconfig:"wait_timeout"`
	// LogLevel raises logging verbosity; per-record lines appear from
	// level 1.
	LogLevel int `json:"log_level" envconfig:"log_level"`
}

// DefaultProfile returns the canonical nine-record profile.
func DefaultProfile() Profile {
	return Profile{
		Records:      DefaultRecords,
		Elements:     DefaultElements,
		Coefficients: append([]int32(nil), DefaultCoefficients...),
	}
}

// LoadProfile assembles the session profile: the defaults, then the
// JSON profile document (the given file, or the DEVMEM_PROFILE
// environment document when path is empty), then any DEVMEM_*
// environment overrides.
func LoadProfile(path string) (Profile, error) {
	profile := DefaultProfile()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return profile, common.Errorf(common.KUserInputError,
				"failed to read profile %s: %v", path, err)
		}
		var doc map[string]any
		if err := common.ParseJson(data, &doc); err != nil {
			return profile, common.Errorf(common.KUserInputError,
				"failed to parse profile %s: %v", path, err)
		}
		if err := profile.applyDocument(doc); err != nil {
			return profile, err
		}
	} else if raw := os.Getenv(ProfileEnv); raw != "" {
		var doc map[string]any
		if err := common.ParseJsonString(raw, &doc); err != nil {
			return profile, common.Errorf(common.KUserInputError,
				"failed to parse the %s document: %v", ProfileEnv, err)
		}
		if err := profile.applyDocument(doc); err != nil {
			return profile, err
		}
	}
	if err := envconfig.Process("devmem", &profile); err != nil {
		return profile, common.Errorf(common.KUserInputError,
			"failed to apply environment overrides: %v", err)
	}
	if err := profile.Validate(); err != nil {
		return profile, err
	}
	return profile, nil
}

// applyDocument layers a profile document over the current values.
// Absent keys keep what they have; present keys must decode to the
// parameter's type.
func (p *Profile) applyDocument(doc map[string]any) error {
	var err error
	if _, ok := doc["records"]; ok {
		if p.Records, err = common.GetInt(doc, "records"); err != nil {
			return badDocument(err)
		}
	}
	if _, ok := doc["elements"]; ok {
		if p.Elements, err = common.GetInt(doc, "elements"); err != nil {
			return badDocument(err)
		}
	}
	if _, ok := doc["coefficients"]; ok {
		if p.Coefficients, err = common.GetInt32Slice(doc, "coefficients"); err != nil {
			return badDocument(err)
		}
	}
	if _, ok := doc["ordinal"]; ok {
		ordinal, err := common.GetUint64(doc, "ordinal")
		if err != nil {
			return badDocument(err)
		}
		if ordinal > math.MaxUint16 {
			return common.Errorf(common.KUserInputError,
				"profile: ordinal %d out of range", ordinal)
		}
		p.Ordinal = uint16(ordinal)
	}
	if _, ok := doc["arena_dir"]; ok {
		if p.ArenaDir, err = common.GetString(doc, "arena_dir"); err != nil {
			return badDocument(err)
		}
	}
	// wait_timeout accepts both a duration string and a nanosecond count.
	if raw, ok := doc["wait_timeout"]; ok {
		if text, ok := raw.(string); ok {
			if err := p.WaitTimeout.UnmarshalText([]byte(text)); err != nil {
				return common.Errorf(common.KUserInputError,
					"profile: invalid wait_timeout: %v", err)
			}
		} else {
			ns, err := common.GetInt64(doc, "wait_timeout")
			if err != nil {
				return badDocument(err)
			}
			p.WaitTimeout = Duration(ns)
		}
	}
	if _, ok := doc["log_level"]; ok {
		if p.LogLevel, err = common.GetInt(doc, "log_level"); err != nil {
			return badDocument(err)
		}
	}
	return nil
}

func badDocument(err error) error {
	return common.Errorf(common.KUserInputError, "profile: %v", err)
}

// Validate checks the profile invariants.
func (p *Profile) Validate() error {
	if p.Records <= 0 {
		return common.Errorf(common.KUserInputError,
			"profile: records must be positive, got %d", p.Records)
	}
	if p.Elements <= 0 {
		return common.Errorf(common.KUserInputError,
			"profile: elements must be positive, got %d", p.Elements)
	}
	if len(p.Coefficients) != p.Elements {
		return common.Errorf(common.KUserInputError,
			"profile: %d coefficients for %d elements",
			len(p.Coefficients), p.Elements)
	}
	if p.WaitTimeout < 0 {
		return common.Errorf(common.KUserInputError,
			"profile: wait timeout must not be negative, got %s", p.WaitTimeout)
	}
	return nil
}

// Document renders the profile as its JSON document form.
func (p *Profile) Document() (string, error) {
	data, err := common.EncodeJson(p)
	if err != nil {
		return "", common.Errorf(common.KInvalid,
			"failed to encode the profile: %v", err)
	}
	return string(data), nil
}

// PayloadOf returns the expected payload of one record.
func (p *Profile) PayloadOf(index int32) []int32 {
	values := make([]int32, p.Elements)
	for k := range values {
		values[k] = p.Coefficients[k] * index
	}
	return values
}

// PayloadBytes returns the byte size of one record payload.
func (p *Profile) PayloadBytes() uint64 {
	return uint64(p.Elements) * types.SizeOf[int32]()
}

type deadliner interface {
	SetDeadline(time.Time) error
}

// armDeadline bounds the next blocking operation on ch when the profile
// carries a wait timeout.
func (p *Profile) armDeadline(ch deadliner) error {
	if p.WaitTimeout <= 0 {
		return nil
	}
	return ch.SetDeadline(time.Now().Add(p.WaitTimeout.Std()))
}
