package piiscan

import (
	"runtime/debug"
	"strings"

	semver3 "github.com/blang/semver"
	semver "github.com/blang/semver/v4"
	"github.com/rhysd/go-github-selfupdate/selfupdate"
)

const releaseRepo = "redactyl/piiscan"

func currentVersion() string {
	v := version
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && len(v) == 0 {
				v = s.Value
			}
		}
	}
	return v
}

// selfUpdate replaces the running binary with the latest GitHub release. It
// returns the installed version.
func selfUpdate() (string, error) {
	ver, err := semver.ParseTolerant(currentVersion())
	if err != nil {
		ver = semver.MustParse("0.0.0")
	}
	latest, err := selfupdate.UpdateSelf(semver3.MustParse(ver.String()), releaseRepo)
	if err != nil {
		return "", err
	}
	return latest.Version.String(), nil
}

func pickString(cli string, fc *string, def string) string {
	if cli != "" {
		return cli
	}
	if fc != nil && *fc != "" {
		return *fc
	}
	return def
}

func pickInt(cli int, fc *int) int {
	if cli != 0 {
		return cli
	}
	if fc != nil {
		return *fc
	}
	return 0
}

func pickInt64(cli int64, fc *int64, def int64) int64 {
	if cli != 0 {
		return cli
	}
	if fc != nil && *fc != 0 {
		return *fc
	}
	return def
}

// pickFloat returns the flag value when it was set explicitly.
func pickFloat(cli float64, changed bool, fc *float64) *float64 {
	if changed {
		return &cli
	}
	return fc
}

func pickBool(cli bool, changed bool, fc *bool) bool {
	if changed {
		return cli
	}
	if fc != nil {
		return *fc
	}
	return cli
}

// splitList parses a comma-separated flag, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func pickList(cli string, fc []string) []string {
	if l := splitList(cli); len(l) > 0 {
		return l
	}
	return fc
}
