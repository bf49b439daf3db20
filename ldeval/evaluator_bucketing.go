package ldeval

import (
	"crypto/sha1" //nolint:gosec // SHA1 is used here as a bucketing hash, not for any security purpose
	"encoding/hex"
	"io"
	"strconv"

	"gopkg.in/launchdarkly/go-sdk-common.v2/lduser"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// The first 15 hex digits of a SHA1 are treated as a 60-bit integer and scaled to
// [0, 1) by dividing by the largest such value.
const longScale = float32(0xFFFFFFFFFFFFFFF)

// bucketUser computes the user's position in [0, 1) for a percentage rollout. The
// result is a pure function of the flag (or segment) key, its salt, and the chosen
// user attribute, so the same user always lands in the same bucket for a given flag.
func (es *evaluationScope) bucketUser(key string, attr lduser.UserAttribute, salt string) float32 {
	idHash, ok := bucketableValue(es.user.GetAttribute(attr))
	if !ok {
		// A user with no value for the bucketing attribute always gets bucket zero,
		// which places it in the first non-empty bucket of any rollout.
		return 0
	}

	if secondary := es.user.GetSecondaryKey(); secondary.IsDefined() {
		idHash = idHash + "." + secondary.StringValue()
	}

	h := sha1.New() //nolint:gosec // see comment at the top of the file
	_, _ = io.WriteString(h, key+"."+salt+"."+idHash)
	hash := hex.EncodeToString(h.Sum(nil))[:15]

	intVal, _ := strconv.ParseInt(hash, 16, 64)

	return float32(intVal) / longScale
}

// bucketableValue returns the string form of an attribute value for hashing.
// Strings are used as-is and integers are converted; anything else (including
// non-integer numbers) cannot be bucketed.
func bucketableValue(value ldvalue.Value) (string, bool) {
	if value.Type() == ldvalue.StringType {
		return value.StringValue(), true
	}
	if value.IsInt() {
		return strconv.Itoa(value.IntValue()), true
	}
	return "", false
}
