package aggregate

import (
	"regexp"
	"strings"

	"github.com/perfguard/backend/internal/shared/types"
)

// helperTokens are subprocess suffixes folded into their parent
// application when separated from the base name by an underscore.
var helperTokens = map[string]struct{}{
	"crashreporter": {},
	"helper":        {},
	"utility":       {},
	"gpu":           {},
	"renderer":      {},
}

var (
	// opera_setup_1a2b3c4d5e.exe, firefox-setup.9f8e7d6c5b4a
	installerHashRe = regexp.MustCompile(`^(.*setup.*?)[._-][0-9a-f]{10,}(?:\.[a-z0-9]+)?$`)
	// chrome_setup.tmp
	installerTmpRe = regexp.MustCompile(`^(.*setup.*)\.tmp$`)
)

// Aggregate collapses raw process samples into logical applications keyed
// by lowercased canonical name. Non-helper processes are grouped by exact
// lowercased name with duplicate instances summed; helper subprocesses are
// folded, in a second pass, into the already-existing canonical group.
// Helpers whose main process is absent are dropped, not promoted.
// Percent-valued fields are clamped to [0,100] after summation.
func Aggregate(samples []types.ProcessSample) map[string]*types.AggregatedProcess {
	aggs := make(map[string]*types.AggregatedProcess)

	type helper struct {
		base   string
		sample types.ProcessSample
	}
	var helpers []helper

	for _, s := range samples {
		lower := strings.ToLower(s.Name)
		if base := HelperBase(lower); base != "" {
			helpers = append(helpers, helper{base: base, sample: s})
			continue
		}
		add(aggs, lower, s)
	}

	for _, h := range helpers {
		// The canonical main process may be keyed with or without .exe.
		agg, ok := aggs[h.base]
		if !ok {
			agg, ok = aggs[h.base+".exe"]
		}
		if !ok {
			continue
		}
		fold(agg, h.sample)
	}

	for _, a := range aggs {
		a.CPUPercent = clampPercent(a.CPUPercent)
		a.MemoryPercent = clampPercent(a.MemoryPercent)
		a.GPUPercent = clampPercent(a.GPUPercent)
	}

	return aggs
}

// Lookup resolves a whitelist name against an aggregate map: exact
// lowercase match first, then with or without a trailing .exe extension.
// A nil result means the app is not running this tick.
func Lookup(aggs map[string]*types.AggregatedProcess, name string) *types.AggregatedProcess {
	lower := strings.ToLower(name)
	if a, ok := aggs[lower]; ok {
		return a
	}
	if strings.HasSuffix(lower, ".exe") {
		if a, ok := aggs[strings.TrimSuffix(lower, ".exe")]; ok {
			return a
		}
		return nil
	}
	if a, ok := aggs[lower+".exe"]; ok {
		return a
	}
	return nil
}

// HelperBase returns the canonical base name for a helper or installer
// subprocess name (already lowercased), or "" when the name is not a
// helper. The base must be longer than one character.
func HelperBase(lower string) string {
	name := strings.TrimSuffix(lower, ".exe")

	if m := installerTmpRe.FindStringSubmatch(name); m != nil && len(m[1]) > 1 {
		return m[1]
	}
	if m := installerHashRe.FindStringSubmatch(name); m != nil && len(m[1]) > 1 {
		return m[1]
	}

	if i := strings.LastIndex(name, "_"); i > 1 {
		if _, ok := helperTokens[name[i+1:]]; ok {
			return name[:i]
		}
	}
	return ""
}

func add(aggs map[string]*types.AggregatedProcess, key string, s types.ProcessSample) {
	if agg, ok := aggs[key]; ok {
		fold(agg, s)
		return
	}
	aggs[key] = &types.AggregatedProcess{
		Name:          key,
		CPUPercent:    s.CPUPercent,
		MemoryMB:      s.MemoryMB,
		MemoryPercent: s.MemoryPercent,
		GPUPercent:    s.GPUPercent,
		PIDs:          []uint32{s.PID},
		ExePath:       s.ExePath,
	}
}

func fold(agg *types.AggregatedProcess, s types.ProcessSample) {
	agg.CPUPercent += s.CPUPercent
	agg.MemoryMB += s.MemoryMB
	agg.MemoryPercent += s.MemoryPercent
	agg.GPUPercent += s.GPUPercent
	agg.PIDs = append(agg.PIDs, s.PID)
	if agg.ExePath == "" && s.ExePath != "" {
		agg.ExePath = s.ExePath
	}
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
