package ldeval

import (
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldreason"
	"gopkg.in/launchdarkly/go-sdk-common.v2/lduser"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"

	"github.com/lightdeck/go-server-sdk/ldmodel"
)

type evaluator struct {
	dataProvider DataProvider
}

// NewEvaluator creates an Evaluator, specifying the DataProvider it will use to look
// up any prerequisite flags or segments referenced during an evaluation.
func NewEvaluator(dataProvider DataProvider) Evaluator {
	return &evaluator{dataProvider}
}

// evaluationScope holds the parameters of a single top-level evaluation, to avoid
// passing them through every internal method. The methods use pointer receivers for
// efficiency; the fields are never modified after construction.
type evaluationScope struct {
	owner                         *evaluator
	flag                          *ldmodel.FeatureFlag
	user                          lduser.User
	prerequisiteFlagEventRecorder PrerequisiteFlagEventRecorder
}

func (e *evaluator) Evaluate(
	flag *ldmodel.FeatureFlag,
	user lduser.User,
	prerequisiteFlagEventRecorder PrerequisiteFlagEventRecorder,
) ldreason.EvaluationDetail {
	es := evaluationScope{e, flag, user, prerequisiteFlagEventRecorder}
	// The prerequisite chain exists only for cycle detection. It is preallocated
	// here so that flags with a reasonable number of prerequisite levels do not
	// cause a heap allocation.
	return es.evaluate(make([]string, 0, 20))
}

// The internal methods take pointers into the flag's own data (*Target, *FlagRule,
// *Clause) purely to avoid copying; the data is immutable for the duration of the
// evaluation and the pointers never escape this package.

func (es *evaluationScope) evaluate(prerequisiteFlagChain []string) ldreason.EvaluationDetail {
	if !es.flag.On {
		return es.getOffValue(ldreason.NewEvalReasonOff())
	}

	prereqErrorReason, ok := es.checkPrerequisites(prerequisiteFlagChain)
	if !ok {
		if prereqErrorReason.GetKind() == ldreason.EvalReasonError {
			// A broken prerequisite arrangement (such as a cycle) is a malformed
			// flag, which produces an error result rather than the off variation.
			return ldreason.NewEvaluationDetailForError(prereqErrorReason.GetErrorKind(), ldvalue.Null())
		}
		return es.getOffValue(prereqErrorReason)
	}

	key := es.user.GetKey()

	for _, target := range es.flag.Targets {
		// Taking the address of the range variable is safe here: the pointer is used
		// only within this iteration.
		if ldmodel.TargetContainsKey(&target, key) { //nolint:gosec // see comment above
			return es.getVariation(target.Variation, ldreason.NewEvalReasonTargetMatch())
		}
	}

	for ruleIndex, rule := range es.flag.Rules {
		if es.ruleMatchesUser(&rule) { //nolint:gosec // see comment above
			reason := ldreason.NewEvalReasonRuleMatch(ruleIndex, rule.ID)
			return es.getValueForVariationOrRollout(rule.VariationOrRollout, reason)
		}
	}

	return es.getValueForVariationOrRollout(es.flag.Fallthrough, ldreason.NewEvalReasonFallthrough())
}

// checkPrerequisites returns (emptyReason, true) if all prerequisites passed, or a
// reason describing the failure and false. A prerequisite that refers back to a flag
// already being evaluated higher up the chain is reported as a malformed flag.
func (es *evaluationScope) checkPrerequisites(
	prerequisiteFlagChain []string,
) (ldreason.EvaluationReason, bool) {
	if len(es.flag.Prerequisites) == 0 {
		return ldreason.EvaluationReason{}, true
	}

	prerequisiteFlagChain = append(prerequisiteFlagChain, es.flag.Key)

	for _, prereq := range es.flag.Prerequisites {
		for _, ancestorKey := range prerequisiteFlagChain {
			if ancestorKey == prereq.Key {
				return ldreason.NewEvalReasonError(ldreason.EvalErrorMalformedFlag), false
			}
		}

		prereqFeatureFlag := es.owner.dataProvider.GetFeatureFlag(prereq.Key)
		if prereqFeatureFlag == nil {
			return ldreason.NewEvalReasonPrerequisiteFailed(prereq.Key), false
		}

		prereqScope := evaluationScope{es.owner, prereqFeatureFlag, es.user, es.prerequisiteFlagEventRecorder}
		prereqResult := prereqScope.evaluate(prerequisiteFlagChain)
		if prereqResult.Reason.GetKind() == ldreason.EvalReasonError {
			// An error within the prerequisite (including a deeper cycle) propagates
			// up as-is, and no event is reported for it.
			return prereqResult.Reason, false
		}

		// A prerequisite is met only if targeting is on for it and it evaluated to the
		// required variation. A prerequisite with targeting off fails even when its off
		// variation happens to be the required one - but it is still evaluated, and
		// reported, so that it produces events just like any other evaluation.
		prereqOK := prereqFeatureFlag.On && !prereqResult.IsDefaultValue() &&
			prereqResult.VariationIndex == ldvalue.NewOptionalInt(prereq.Variation)

		if es.prerequisiteFlagEventRecorder != nil {
			event := PrerequisiteFlagEvent{es.flag.Key, es.user, prereqFeatureFlag, prereqResult}
			es.prerequisiteFlagEventRecorder(event)
		}

		if !prereqOK {
			return ldreason.NewEvalReasonPrerequisiteFailed(prereq.Key), false
		}
	}
	return ldreason.EvaluationReason{}, true
}

func (es *evaluationScope) getVariation(index int, reason ldreason.EvaluationReason) ldreason.EvaluationDetail {
	if index < 0 || index >= len(es.flag.Variations) {
		return ldreason.NewEvaluationDetailForError(ldreason.EvalErrorMalformedFlag, ldvalue.Null())
	}
	return ldreason.NewEvaluationDetail(es.flag.Variations[index], index, reason)
}

func (es *evaluationScope) getOffValue(reason ldreason.EvaluationReason) ldreason.EvaluationDetail {
	if es.flag.OffVariation == nil {
		return ldreason.NewEvaluationDetail(ldvalue.Null(), -1, reason)
	}
	return es.getVariation(*es.flag.OffVariation, reason)
}

func (es *evaluationScope) getValueForVariationOrRollout(
	vr ldmodel.VariationOrRollout,
	reason ldreason.EvaluationReason,
) ldreason.EvaluationDetail {
	index := es.variationIndexForUser(vr, es.flag.Key, es.flag.Salt)
	if index < 0 {
		return ldreason.NewEvaluationDetailForError(ldreason.EvalErrorMalformedFlag, ldvalue.Null())
	}
	return es.getVariation(index, reason)
}

func (es *evaluationScope) ruleMatchesUser(rule *ldmodel.FlagRule) bool {
	for _, clause := range rule.Clauses {
		if !es.clauseMatchesUser(&clause) { //nolint:gosec // pointer does not escape the loop
			return false
		}
	}
	return true
}

func (es *evaluationScope) clauseMatchesUser(clause *ldmodel.Clause) bool {
	// A segmentMatch clause needs segment lookups, so it is handled here rather than
	// in ldmodel. The user matches if it is in any of the named segments; Negate then
	// applies to the combined result.
	if clause.Op == ldmodel.OperatorSegmentMatch {
		for _, value := range clause.Values {
			if value.Type() == ldvalue.StringType {
				if segment := es.owner.dataProvider.GetSegment(value.StringValue()); segment != nil {
					if es.segmentContainsUser(segment) {
						return !clause.Negate
					}
				}
			}
		}
		return clause.Negate
	}

	return ldmodel.ClauseMatchesUser(clause, &es.user)
}

// variationIndexForUser resolves a VariationOrRollout to a variation index, or -1 if
// the data is malformed (neither a variation nor a non-empty rollout is present).
func (es *evaluationScope) variationIndexForUser(r ldmodel.VariationOrRollout, key, salt string) int {
	if r.Variation != nil {
		return *r.Variation
	}
	if r.Rollout == nil || len(r.Rollout.Variations) == 0 {
		return -1
	}

	bucketBy := lduser.KeyAttribute
	if r.Rollout.BucketBy != nil {
		bucketBy = *r.Rollout.BucketBy
	}

	bucket := es.bucketUser(key, bucketBy, salt)
	var sum float32
	for _, wv := range r.Rollout.Variations {
		sum += float32(wv.Weight) / 100000.0
		if bucket < sum {
			return wv.Variation
		}
	}

	// The bucket value was beyond the end of the last bucket. This happens when the
	// weights add up to less than 100000, or from floating-point rounding. The user
	// goes into the last bucket rather than being treated as an error, so that the
	// scaling of all the other buckets is unaffected.
	return r.Rollout.Variations[len(r.Rollout.Variations)-1].Variation
}
