// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package settings resolves the flat devskim.* configuration surface into
// an immutable typed snapshot. Absent or mistyped keys are never errors;
// they resolve to the documented defaults. A snapshot is created once at
// startup and replaced wholesale on configuration change, never mutated.
package settings

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Namespace is the configuration namespace every key lives under.
const Namespace = "devskim"

// DefaultGuidanceBaseURL is the public documentation root linked from
// findings.
const DefaultGuidanceBaseURL = "https://github.com/Microsoft/DevSkim/blob/main/guidance/"

// Settings is a resolved, immutable configuration snapshot.
type Settings struct {
	EnableBestPracticeRules           bool     `json:"enableBestPracticeRules"`
	EnableDefenseInDepthSeverityRules bool     `json:"enableDefenseInDepthSeverityRules"`
	EnableInformationalSeverityRules  bool     `json:"enableInformationalSeverityRules"`
	EnableLowSeverityRules            bool     `json:"enableLowSeverityRules"`
	EnableManualReviewRules           bool     `json:"enableManualReviewRules"`
	GuidanceBaseURL                   string   `json:"guidanceBaseURL" validate:"url"`
	IgnoreFilesList                   []string `json:"ignoreFilesList"`
	IgnoreRulesList                   []string `json:"ignoreRulesList"`
	ManualReviewerName                string   `json:"manualReviewerName"`
	RemoveFindingsOnClose             bool     `json:"removeFindingsOnClose"`
	SuppressionDurationInDays         int      `json:"suppressionDurationInDays" validate:"gte=0"`
	ValidateRulesFiles                bool     `json:"validateRulesFiles"`
}

// Default returns the authoritative defaults for every field.
func Default() Settings {
	return Settings{
		EnableBestPracticeRules:           false,
		EnableDefenseInDepthSeverityRules: false,
		EnableInformationalSeverityRules:  false,
		EnableLowSeverityRules:            false,
		EnableManualReviewRules:           false,
		GuidanceBaseURL:                   DefaultGuidanceBaseURL,
		IgnoreFilesList: []string{
			"out/*", "bin/*", "node_modules/*", ".vscode/*",
			"yarn.lock", "logs/*", "*.log", "*.git",
		},
		IgnoreRulesList:           []string{},
		ManualReviewerName:        "",
		RemoveFindingsOnClose:     false,
		SuppressionDurationInDays: 30,
		ValidateRulesFiles:        true,
	}
}

var validate = validator.New()

// keys lists every configuration key in the namespace.
var keys = []string{
	"enableBestPracticeRules",
	"enableDefenseInDepthSeverityRules",
	"enableInformationalSeverityRules",
	"enableLowSeverityRules",
	"enableManualReviewRules",
	"guidanceBaseURL",
	"ignoreFilesList",
	"ignoreRulesList",
	"manualReviewerName",
	"removeFindingsOnClose",
	"suppressionDurationInDays",
	"validateRulesFiles",
}

// BindEnv binds every devskim.* key to its DEVSKIM_* environment variable.
// The variable names are the same ones Environ emits, so the environment
// that configures the engine also configures the bridge. Values arrive as
// strings; the getters coerce them.
func BindEnv(v *viper.Viper) {
	for _, name := range keys {
		_ = v.BindEnv(key(name), envName(name))
	}
}

// envName converts a camelCase key to its DEVSKIM_UPPER_SNAKE variable
// name, e.g. guidanceBaseURL to DEVSKIM_GUIDANCE_BASE_URL.
func envName(name string) string {
	var b strings.Builder
	b.WriteString("DEVSKIM")
	for i, r := range name {
		if i == 0 || (unicode.IsUpper(r) && !unicode.IsUpper(rune(name[i-1]))) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// Resolve produces a fully-populated snapshot from v.
//
// Every field falls back to its default when the key is absent or holds a
// value of the wrong type. Structurally invalid values (a guidance URL that
// is not a URL, a negative suppression duration) also fall back rather
// than error: resolution is a pure read with no failure mode.
func Resolve(v *viper.Viper) Settings {
	s := Default()
	if v == nil {
		return s
	}

	s.EnableBestPracticeRules = getBool(v, "enableBestPracticeRules", s.EnableBestPracticeRules)
	s.EnableDefenseInDepthSeverityRules = getBool(v, "enableDefenseInDepthSeverityRules", s.EnableDefenseInDepthSeverityRules)
	s.EnableInformationalSeverityRules = getBool(v, "enableInformationalSeverityRules", s.EnableInformationalSeverityRules)
	s.EnableLowSeverityRules = getBool(v, "enableLowSeverityRules", s.EnableLowSeverityRules)
	s.EnableManualReviewRules = getBool(v, "enableManualReviewRules", s.EnableManualReviewRules)
	s.GuidanceBaseURL = getString(v, "guidanceBaseURL", s.GuidanceBaseURL)
	s.IgnoreFilesList = getStringSlice(v, "ignoreFilesList", s.IgnoreFilesList)
	s.IgnoreRulesList = getStringSlice(v, "ignoreRulesList", s.IgnoreRulesList)
	s.ManualReviewerName = getString(v, "manualReviewerName", s.ManualReviewerName)
	s.RemoveFindingsOnClose = getBool(v, "removeFindingsOnClose", s.RemoveFindingsOnClose)
	s.SuppressionDurationInDays = getInt(v, "suppressionDurationInDays", s.SuppressionDurationInDays)
	s.ValidateRulesFiles = getBool(v, "validateRulesFiles", s.ValidateRulesFiles)

	return sanitize(s)
}

// sanitize resets any structurally invalid field to its default.
func sanitize(s Settings) Settings {
	err := validate.Struct(s)
	if err == nil {
		return s
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return Default()
	}
	def := Default()
	for _, fe := range errs {
		switch fe.StructField() {
		case "GuidanceBaseURL":
			s.GuidanceBaseURL = def.GuidanceBaseURL
		case "SuppressionDurationInDays":
			s.SuppressionDurationInDays = def.SuppressionDurationInDays
		}
	}
	return s
}

// Environ renders the snapshot as DEVSKIM_* environment variable pairs for
// injection into the engine process. List values are JSON-encoded.
func (s Settings) Environ() []string {
	ignoreFiles, _ := json.Marshal(s.IgnoreFilesList)
	ignoreRules, _ := json.Marshal(s.IgnoreRulesList)
	return []string{
		"DEVSKIM_ENABLE_BEST_PRACTICE_RULES=" + strconv.FormatBool(s.EnableBestPracticeRules),
		"DEVSKIM_ENABLE_DEFENSE_IN_DEPTH_SEVERITY_RULES=" + strconv.FormatBool(s.EnableDefenseInDepthSeverityRules),
		"DEVSKIM_ENABLE_INFORMATIONAL_SEVERITY_RULES=" + strconv.FormatBool(s.EnableInformationalSeverityRules),
		"DEVSKIM_ENABLE_LOW_SEVERITY_RULES=" + strconv.FormatBool(s.EnableLowSeverityRules),
		"DEVSKIM_ENABLE_MANUAL_REVIEW_RULES=" + strconv.FormatBool(s.EnableManualReviewRules),
		"DEVSKIM_GUIDANCE_BASE_URL=" + s.GuidanceBaseURL,
		"DEVSKIM_IGNORE_FILES_LIST=" + string(ignoreFiles),
		"DEVSKIM_IGNORE_RULES_LIST=" + string(ignoreRules),
		"DEVSKIM_MANUAL_REVIEWER_NAME=" + s.ManualReviewerName,
		"DEVSKIM_REMOVE_FINDINGS_ON_CLOSE=" + strconv.FormatBool(s.RemoveFindingsOnClose),
		"DEVSKIM_SUPPRESSION_DURATION_IN_DAYS=" + strconv.Itoa(s.SuppressionDurationInDays),
		"DEVSKIM_VALIDATE_RULES_FILES=" + strconv.FormatBool(s.ValidateRulesFiles),
	}
}

func key(name string) string {
	return fmt.Sprintf("%s.%s", Namespace, name)
}

func getBool(v *viper.Viper, name string, def bool) bool {
	switch raw := v.Get(key(name)).(type) {
	case bool:
		return raw
	case string:
		if b, err := strconv.ParseBool(raw); err == nil {
			return b
		}
	}
	return def
}

func getString(v *viper.Viper, name string, def string) string {
	raw := v.Get(key(name))
	if s, ok := raw.(string); ok {
		return s
	}
	return def
}

func getInt(v *viper.Viper, name string, def int) int {
	switch n := v.Get(key(name)).(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		if n == float64(int(n)) {
			return int(n)
		}
	case string:
		if parsed, err := strconv.Atoi(n); err == nil {
			return parsed
		}
	}
	return def
}

func getStringSlice(v *viper.Viper, name string, def []string) []string {
	switch raw := v.Get(key(name)).(type) {
	case []string:
		return raw
	case []interface{}:
		out := make([]string, 0, len(raw))
		for _, item := range raw {
			s, ok := item.(string)
			if !ok {
				return def
			}
			out = append(out, s)
		}
		return out
	case string:
		// Environment values carry lists JSON-encoded, mirroring Environ.
		var out []string
		if err := json.Unmarshal([]byte(raw), &out); err == nil {
			return out
		}
	}
	return def
}
