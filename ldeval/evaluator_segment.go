package ldeval

import (
	"gopkg.in/launchdarkly/go-sdk-common.v2/lduser"

	"github.com/lightdeck/go-server-sdk/ldmodel"
)

func (es *evaluationScope) segmentContainsUser(s *ldmodel.Segment) bool {
	// Explicit inclusion or exclusion by key settles the question before any rules run.
	if included, found := ldmodel.SegmentIncludesOrExcludesKey(s, es.user.GetKey()); found {
		return included
	}

	for _, rule := range s.Rules {
		if es.segmentRuleMatchesUser(&rule, s.Key, s.Salt) { //nolint:gosec // pointer does not escape the loop
			return true
		}
	}

	return false
}

func (es *evaluationScope) segmentRuleMatchesUser(r *ldmodel.SegmentRule, key, salt string) bool {
	for _, clause := range r.Clauses {
		if !ldmodel.ClauseMatchesUser(&clause, &es.user) { //nolint:gosec // pointer does not escape the loop
			return false
		}
	}

	// Without a weight, matching the clauses is enough.
	if r.Weight == nil {
		return true
	}

	bucketBy := lduser.KeyAttribute
	if r.BucketBy != nil {
		bucketBy = *r.BucketBy
	}

	return es.bucketUser(key, bucketBy, salt) < float32(*r.Weight)/100000.0
}
