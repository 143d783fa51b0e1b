package services

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/zapstore/releastr/internal/domain/entities"
)

// ScoringRule adds Weight to a candidate's score when Pattern matches it
type ScoringRule struct {
	Pattern *regexp.Regexp
	Weight  int
}

// Rule compiles a scoring rule. It panics on an invalid pattern, so use it for constants.
func Rule(pattern string, weight int) ScoringRule {
	return ScoringRule{Pattern: regexp.MustCompile(pattern), Weight: weight}
}

// DefaultAssetRules prefer 64-bit and universal builds over store-signed variants
var DefaultAssetRules = []ScoringRule{
	Rule(`(?i)arm64`, 3),
	Rule(`(?i)universal`, 1),
	Rule(`(?i)play`, -2),
	Rule(`(?i)f-?droid`, -2),
}

// IconDensityRules prefer the highest density resource bucket
var IconDensityRules = []ScoringRule{
	Rule(`xxxhdpi`, 5),
	Rule(`xxhdpi`, 4),
	Rule(`xhdpi`, 3),
	Rule(`hdpi`, 2),
	Rule(`mdpi`, 1),
}

// Score sums the weights of every rule matching candidate
func Score(candidate string, rules []ScoringRule) int {
	score := 0
	for _, r := range rules {
		if r.Pattern != nil && r.Pattern.MatchString(candidate) {
			score += r.Weight
		}
	}
	return score
}

// SelectBest returns the candidate with the strictly highest score.
// Ties keep the earliest candidate. ok is false only when candidates is empty.
func SelectBest(candidates []string, rules []ScoringRule) (best string, ok bool) {
	bestScore := 0
	for i, c := range candidates {
		s := Score(c, rules)
		if i == 0 || s > bestScore {
			best, bestScore = c, s
		}
	}
	return best, len(candidates) > 0
}

// SelectReleaseAsset narrows release assets to installable packages, applies the
// optional name regex, and scores whatever remains.
func SelectReleaseAsset(assets []entities.CandidateAsset, nameRegex string, rules []ScoringRule) (*entities.CandidateAsset, error) {
	var re *regexp.Regexp
	if nameRegex != "" {
		var err error
		re, err = regexp.Compile(nameRegex)
		if err != nil {
			return nil, &InputError{Err: fmt.Errorf("invalid apk regex %q: %w", nameRegex, err)}
		}
	}

	byName := make(map[string]entities.CandidateAsset)
	var names []string
	for _, a := range assets {
		if !isPackageAsset(a) {
			continue
		}
		if re != nil && !re.MatchString(a.Name) {
			continue
		}
		if _, dup := byName[a.Name]; dup {
			continue
		}
		byName[a.Name] = a
		names = append(names, a.Name)
	}

	name, ok := SelectBest(names, rules)
	if !ok {
		if re != nil {
			return nil, inputErrorf(ErrNoCandidates, "no package asset matches %q among %d assets", nameRegex, len(assets))
		}
		return nil, inputErrorf(ErrNoCandidates, "no package asset among %d assets", len(assets))
	}
	selected := byName[name]
	return &selected, nil
}

// isPackageAsset accepts the APK media type, or an .apk name when the host reports a generic type
func isPackageAsset(a entities.CandidateAsset) bool {
	if a.MediaType == entities.APKMediaType {
		return true
	}
	generic := a.MediaType == "" || a.MediaType == "application/octet-stream" || a.MediaType == "application/zip"
	return generic && strings.HasSuffix(strings.ToLower(a.Name), ".apk")
}

// DensityBucket names the resource bucket a dpi value belongs to.
// Unknown and adaptive (anydpi) densities return "".
func DensityBucket(dpi int) string {
	switch {
	case dpi <= 0 || dpi >= 65534:
		return ""
	case dpi >= 640:
		return "xxxhdpi"
	case dpi >= 480:
		return "xxhdpi"
	case dpi >= 320:
		return "xhdpi"
	case dpi >= 240:
		return "hdpi"
	case dpi >= 160:
		return "mdpi"
	}
	return "ldpi"
}

// SelectIcon picks the highest density launcher icon. Entries with a declared
// density are scored by their bucket, so obfuscated resource paths still rank;
// the rest fall back to scoring the path itself. Ties keep the earliest entry.
func SelectIcon(entries []entities.IconEntry) (string, bool) {
	best, bestScore := -1, 0
	for i, e := range entries {
		label := DensityBucket(e.Density)
		if label == "" {
			label = e.Path
		}
		s := Score(label, IconDensityRules)
		if best < 0 || s > bestScore {
			best, bestScore = i, s
		}
	}
	if best < 0 {
		return "", false
	}
	return entries[best].Path, true
}
