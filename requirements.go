package dxfeatures

// Requirement is a minimum feature level for one Direct3D runtime,
// consumable by [Check].
type Requirement struct {
	API      API
	MinLevel FeatureLevel
}

// Require creates a requirement for api to support at least level.
func Require(api API, level FeatureLevel) Requirement {
	return Requirement{API: api, MinLevel: level}
}

// normalizeRequirements deduplicates requirements per API, keeping the
// strictest level and the order of first appearance.
func normalizeRequirements(required []Requirement) []Requirement {
	index := map[API]int{}
	var out []Requirement
	for _, req := range required {
		i, seen := index[req.API]
		if !seen {
			index[req.API] = len(out)
			out = append(out, req)
			continue
		}
		if req.MinLevel > out[i].MinLevel {
			out[i].MinLevel = req.MinLevel
		}
	}
	return out
}
