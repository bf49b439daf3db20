package ldmodel

import (
	"gopkg.in/launchdarkly/go-sdk-common.v2/lduser"
)

// Segment describes a user segment: a named set of users that flag rules can
// reference with a segmentMatch clause.
//
// Like FeatureFlag, a Segment should be treated as immutable once it is visible to
// the SDK.
type Segment struct {
	// Key is the unique string key of the segment.
	Key string `json:"key"`
	// Included is a list of user keys that are always considered part of the
	// segment. Inclusion takes precedence over exclusion and over the rules.
	Included []string `json:"included,omitempty"`
	// Excluded is a list of user keys that are never part of the segment,
	// regardless of the rules.
	Excluded []string `json:"excluded,omitempty"`
	// Salt is a randomized string mixed into the bucketing hash for any percentage
	// rollouts within the segment's rules.
	Salt string `json:"salt"`
	// Rules is a list of rules that may match a user who is in neither Included nor
	// Excluded.
	Rules []SegmentRule `json:"rules,omitempty"`
	// Version is a monotonically increasing number updated on each change to the segment.
	Version int `json:"version"`
	// Deleted is true if this is a tombstone for a deleted segment.
	Deleted bool `json:"deleted"`

	preprocessed segmentPreprocessedData
}

// SegmentRule describes one rule within a segment: a set of clauses, optionally
// narrowed to a percentage of the users who match them.
type SegmentRule struct {
	// ID is an identifier assigned to the rule when it was created.
	ID string `json:"id,omitempty"`
	// Clauses is the list of conditions; all must match for the rule to match.
	Clauses []Clause `json:"clauses"`
	// Weight, if non-nil, limits the rule to the given portion of matching users,
	// in parts per 100000. If nil, all users matching the clauses are in the segment.
	Weight *int `json:"weight,omitempty"`
	// BucketBy names the user attribute hashed for the Weight calculation. If nil,
	// the user's key is used.
	BucketBy *lduser.UserAttribute `json:"bucketBy,omitempty"`
}
