package ldeval

import (
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldreason"
	"gopkg.in/launchdarkly/go-sdk-common.v2/lduser"

	"github.com/lightdeck/go-server-sdk/ldmodel"
)

// Evaluator is the engine for evaluating feature flags.
type Evaluator interface {
	// Evaluate computes the result of a single feature flag for a user.
	//
	// The flag is passed by reference for efficiency only; it is never modified, and
	// must not be nil.
	//
	// The evaluator itself never generates analytics events. If the caller needs to
	// know about the prerequisite evaluations that happened during this evaluation
	// (to report events for them), it can pass a non-nil
	// prerequisiteFlagEventRecorder; otherwise that parameter may be nil.
	Evaluate(
		flag *ldmodel.FeatureFlag,
		user lduser.User,
		prerequisiteFlagEventRecorder PrerequisiteFlagEventRecorder,
	) ldreason.EvaluationDetail
}

// DataProvider is how the evaluator looks up any additional flags or segments that an
// evaluation depends on. Implementations are expected to treat deleted items as not
// found, returning nil.
//
// Items are returned by reference for efficiency only; the evaluator never modifies
// them.
type DataProvider interface {
	// GetFeatureFlag retrieves a flag by key, for prerequisite evaluation. It returns
	// nil if the flag does not exist.
	GetFeatureFlag(key string) *ldmodel.FeatureFlag
	// GetSegment retrieves a segment by key, for segmentMatch clauses. It returns nil
	// if the segment does not exist.
	GetSegment(key string) *ldmodel.Segment
}

// PrerequisiteFlagEventRecorder is a callback that Evaluator.Evaluate uses to report
// the result of each prerequisite flag evaluation.
type PrerequisiteFlagEventRecorder func(PrerequisiteFlagEvent)

// PrerequisiteFlagEvent is the parameter data passed to PrerequisiteFlagEventRecorder.
type PrerequisiteFlagEvent struct {
	// TargetFlagKey is the key of the flag that declared the prerequisite.
	TargetFlagKey string
	// User is the user the evaluation was for. It is repeated here so that the
	// recorder can be a plain function rather than a per-evaluation closure.
	User lduser.User
	// PrerequisiteFlag is the full prerequisite flag. The whole flag is needed, not
	// just its key, because flag properties such as TrackEvents affect how the event
	// is reported. It is passed by reference for efficiency, is never nil, and must
	// not be modified.
	PrerequisiteFlag *ldmodel.FeatureFlag
	// PrerequisiteResult is the result of evaluating the prerequisite flag.
	PrerequisiteResult ldreason.EvaluationDetail
}
