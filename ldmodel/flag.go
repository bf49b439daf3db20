package ldmodel

import (
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldtime"
	"gopkg.in/launchdarkly/go-sdk-common.v2/lduser"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// FeatureFlag describes an individual feature flag.
//
// The fields of this struct are exported for use by SDK and service code, but should
// not be modified after the flag has been handed off to the SDK: flag objects are
// shared without copying, and the preprocessing step attaches derived lookup data
// that would become stale.
type FeatureFlag struct {
	// Key is the unique string key of the feature flag.
	Key string `json:"key"`
	// On is true if targeting is turned on for this flag.
	//
	// If On is false, the flag always serves its off variation and all other
	// targeting properties are ignored.
	On bool `json:"on"`
	// Prerequisites is a list of other flags that must evaluate to specific
	// variations before this flag can use its normal targeting logic.
	Prerequisites []Prerequisite `json:"prerequisites,omitempty"`
	// Targets contains sets of individually targeted user keys.
	//
	// Individual targets take precedence over Rules: if a user key appears in any
	// target, the corresponding variation is served and the rules are not consulted.
	Targets []Target `json:"targets,omitempty"`
	// Rules is a list of targeting rules, evaluated in order.
	Rules []FlagRule `json:"rules,omitempty"`
	// Fallthrough defines the variation or rollout to serve when the flag is on and
	// the user is not matched by any target or rule.
	Fallthrough VariationOrRollout `json:"fallthrough"`
	// OffVariation specifies the variation index to serve when the flag is off, or
	// when a prerequisite has failed. If nil, the flag serves no value in those
	// cases and the caller's default applies.
	OffVariation *int `json:"offVariation"`
	// Variations is the list of all possible values the flag can serve.
	Variations []ldvalue.Value `json:"variations"`
	// ClientSide is true if this flag is available to client-side SDKs that use the
	// environment ID. It has no effect on server-side evaluation.
	ClientSide bool `json:"clientSide"`
	// Salt is a randomized string that is mixed into the bucketing hash so that
	// rollout assignments for different flags are not correlated.
	Salt string `json:"salt"`
	// TrackEvents is true if the SDK should send full event data for every
	// evaluation of this flag, rather than only summary counts.
	TrackEvents bool `json:"trackEvents"`
	// TrackEventsFallthrough is true if full event data should be sent whenever an
	// evaluation resolves via Fallthrough, used for experimentation.
	TrackEventsFallthrough bool `json:"trackEventsFallthrough"`
	// DebugEventsUntilDate, if non-nil, causes the SDK to send debug events for
	// evaluations of this flag until the given time (milliseconds since epoch,
	// according to the event service's clock).
	DebugEventsUntilDate *ldtime.UnixMillisecondTime `json:"debugEventsUntilDate,omitempty"`
	// Version is a monotonically increasing number updated on each change to the flag.
	Version int `json:"version"`
	// Deleted is true if this is a tombstone for a deleted flag. Deleted items are
	// retained in data stores so that their versions can be compared against
	// out-of-order updates.
	Deleted bool `json:"deleted"`
}

// Prerequisite describes a requirement that another feature flag return a specific
// variation for this flag to use its normal targeting.
type Prerequisite struct {
	// Key is the key of the flag that must be evaluated first.
	Key string `json:"key"`
	// Variation is the index of the variation that the prerequisite flag must return.
	Variation int `json:"variation"`
}

// Target describes a set of user keys that are served a specific variation,
// bypassing the flag's rules.
type Target struct {
	// Values is the set of user keys.
	Values []string `json:"values"`
	// Variation is the index of the variation to serve to these users.
	Variation int `json:"variation"`

	preprocessed targetPreprocessedData
}

// FlagRule describes a single targeting rule: a set of clauses that must all match
// the user, plus the variation or rollout to serve on a match.
type FlagRule struct {
	// VariationOrRollout is the result to serve if this rule matches.
	VariationOrRollout
	// ID is an identifier assigned to the rule when it was created, used in
	// evaluation reasons.
	ID string `json:"id,omitempty"`
	// Clauses is the list of conditions; all must match for the rule to match.
	Clauses []Clause `json:"clauses,omitempty"`
	// TrackEvents is true if full event data should be sent for evaluations that
	// match this rule, used for experimentation.
	TrackEvents bool `json:"trackEvents"`
}

// VariationOrRollout describes either a fixed variation index or a percentage rollout.
//
// Invariant: one of the two must be non-nil. If Variation is non-nil, Rollout is
// ignored.
type VariationOrRollout struct {
	// Variation, if non-nil, is the index of a fixed variation.
	Variation *int `json:"variation,omitempty"`
	// Rollout, if non-nil, distributes users across several variations by percentage.
	Rollout *Rollout `json:"rollout,omitempty"`
}

// Rollout describes a percentage rollout: a list of weighted variations whose
// weights should add up to 100% (expressed as integer parts per 100000). If they
// add up to less, the last entry absorbs the remainder.
type Rollout struct {
	// Variations is the list of variation weights. A user's bucket value determines
	// which of these is chosen.
	Variations []WeightedVariation `json:"variations"`
	// BucketBy names the user attribute whose value is hashed for bucketing. If nil,
	// the user's key is used.
	BucketBy *lduser.UserAttribute `json:"bucketBy,omitempty"`
}

// WeightedVariation is one entry in a Rollout's distribution.
type WeightedVariation struct {
	// Variation is the index of the variation to serve.
	Variation int `json:"variation"`
	// Weight is the portion of users that receive this variation, in parts per 100000.
	Weight int `json:"weight"`
}

// Clause is an individual matching condition within a rule.
type Clause struct {
	// Attribute names the user attribute whose value is tested.
	Attribute lduser.UserAttribute `json:"attribute"`
	// Op is the matching operator.
	Op Operator `json:"op"`
	// Values is the list of values to compare against. The clause matches if the
	// operator succeeds for any one of them.
	Values []ldvalue.Value `json:"values"`
	// Negate inverts the result of the match. It does not apply when the attribute
	// is absent from the user; an absent attribute never matches, negated or not.
	Negate bool `json:"negate"`

	preprocessed clausePreprocessedData
}
