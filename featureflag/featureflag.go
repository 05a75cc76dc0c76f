package featureflag

import (
	"sort"
	"strings"
)

// FeatureFlag is a lookup map of the flags enabled on a server.
type FeatureFlag map[Flag]struct{}

// New returns feature flags initialized with a list of flags. Flags are
// trimmed and upper cased, empty ones are ignored.
func New(flags []string) FeatureFlag {
	featureFlag := make(FeatureFlag, len(flags))
	for _, f := range flags {
		f = strings.ToUpper(strings.TrimSpace(f))
		if f == "" {
			continue
		}
		featureFlag[Flag(f)] = struct{}{}
	}
	return featureFlag
}

// Parse returns the feature flags of a comma separated list.
func Parse(s string) FeatureFlag {
	return New(strings.Split(s, ","))
}

func (f FeatureFlag) Has(flag Flag) bool {
	_, ok := f[flag]
	return ok
}

// IfSet runs do when the flag is set.
func (f FeatureFlag) IfSet(flag Flag, do func()) {
	if f.Has(flag) {
		do()
	}
}

// IfNotSet runs do when the flag is not set.
func (f FeatureFlag) IfNotSet(flag Flag, do func()) {
	if !f.Has(flag) {
		do()
	}
}

// List returns the set flags, sorted.
func (f FeatureFlag) List() []string {
	list := make([]string, 0, len(f))
	for flag := range f {
		list = append(list, string(flag))
	}
	sort.Strings(list)
	return list
}

// Unknown returns the set flags that do not toggle any feature.
func (f FeatureFlag) Unknown() []string {
	var unknown []string
	for _, flag := range f.List() {
		if !IsKnown(Flag(flag)) {
			unknown = append(unknown, flag)
		}
	}
	return unknown
}
