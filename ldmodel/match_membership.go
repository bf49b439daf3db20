package ldmodel

// TargetContainsKey tests whether a user key is in a flag's individual-target list.
// Preprocessing turns the list into a set, so this is normally a map lookup.
func TargetContainsKey(t *Target, userKey string) bool {
	if t.preprocessed.valuesMap != nil {
		_, found := t.preprocessed.valuesMap[userKey]
		return found
	}
	for _, v := range t.Values {
		if v == userKey {
			return true
		}
	}
	return false
}

// SegmentIncludesOrExcludesKey tests a user key against a segment's Included and
// Excluded lists. The second return value is false if the key appeared in neither
// list, in which case the segment's rules decide membership; otherwise the first
// return value reports membership (inclusion wins over exclusion).
func SegmentIncludesOrExcludesKey(s *Segment, userKey string) (included bool, found bool) {
	if s.preprocessed.includeMap != nil || s.preprocessed.excludeMap != nil {
		if _, ok := s.preprocessed.includeMap[userKey]; ok {
			return true, true
		}
		if _, ok := s.preprocessed.excludeMap[userKey]; ok {
			return false, true
		}
		return false, false
	}
	for _, k := range s.Included {
		if k == userKey {
			return true, true
		}
	}
	for _, k := range s.Excluded {
		if k == userKey {
			return false, true
		}
	}
	return false, false
}
