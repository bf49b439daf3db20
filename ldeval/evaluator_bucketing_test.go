package ldeval

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gopkg.in/launchdarkly/go-sdk-common.v2/lduser"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"

	"github.com/lightdeck/go-server-sdk/ldbuilders"
)

func scopeForUser(user lduser.User) evaluationScope {
	return evaluationScope{user: user}
}

func TestBucketUserByKey(t *testing.T) {
	// These values are fixed by the hashing scheme and must never change; every SDK
	// in the family produces the same buckets for the same inputs.
	expected := map[string]float32{
		"userKeyA": 0.42157587,
		"userKeyB": 0.6708485,
		"userKeyC": 0.10343106,
	}
	for key, value := range expected {
		es := scopeForUser(lduser.NewUser(key))
		bucket := es.bucketUser("hashKey", lduser.KeyAttribute, "saltyA")
		assert.InDelta(t, value, bucket, 0.0000001, "bucket for %s", key)
	}
}

func TestBucketUserBySecondaryKeyChangesBucket(t *testing.T) {
	user1 := lduser.NewUser("userKeyA")
	user2 := lduser.NewUserBuilder("userKeyA").Secondary("mySecondaryKey").Build()

	es1 := scopeForUser(user1)
	es2 := scopeForUser(user2)
	bucket1 := es1.bucketUser("hashKey", lduser.KeyAttribute, "saltyA")
	bucket2 := es2.bucketUser("hashKey", lduser.KeyAttribute, "saltyA")

	assert.NotEqual(t, bucket1, bucket2)
}

func TestBucketUserByIntAttrBehavesLikeStringForm(t *testing.T) {
	userWithInt := lduser.NewUserBuilder("userKeyD").Custom("attr", ldvalue.Int(33333)).Build()
	userWithString := lduser.NewUserBuilder("userKeyD").Custom("attr", ldvalue.String("33333")).Build()

	esInt := scopeForUser(userWithInt)
	esString := scopeForUser(userWithString)
	bucketInt := esInt.bucketUser("hashKey", "attr", "saltyA")
	bucketString := esString.bucketUser("hashKey", "attr", "saltyA")

	assert.Equal(t, bucketString, bucketInt)
	assert.NotEqual(t, float32(0), bucketInt)
}

func TestBucketUserByFloatAttrIsZero(t *testing.T) {
	user := lduser.NewUserBuilder("userKeyE").Custom("attr", ldvalue.Float64(999.999)).Build()
	es := scopeForUser(user)
	assert.Equal(t, float32(0), es.bucketUser("hashKey", "attr", "saltyA"))
}

func TestBucketUserWithMissingAttributeIsZero(t *testing.T) {
	es := scopeForUser(lduser.NewUser("userKeyA"))
	assert.Equal(t, float32(0), es.bucketUser("hashKey", "whatever", "saltyA"))
}

func TestVariationIndexForUserSelectsBucketByWeight(t *testing.T) {
	vr := ldbuilders.Rollout(ldbuilders.Bucket(0, 40000), ldbuilders.Bucket(1, 60000))

	// userKeyA buckets to ~0.42, which is past the 40% boundary
	esA := scopeForUser(lduser.NewUser("userKeyA"))
	assert.Equal(t, 1, esA.variationIndexForUser(vr, "hashKey", "saltyA"))

	// userKeyC buckets to ~0.10, which is inside the first 40%
	esC := scopeForUser(lduser.NewUser("userKeyC"))
	assert.Equal(t, 0, esC.variationIndexForUser(vr, "hashKey", "saltyA"))
}

func TestVariationIndexForUserUsesLastBucketIfWeightsDoNotAddUp(t *testing.T) {
	// Weights sum to far less than 100000, so every user beyond them lands in the
	// last bucket.
	vr := ldbuilders.Rollout(ldbuilders.Bucket(0, 1), ldbuilders.Bucket(1, 2))

	es := scopeForUser(lduser.NewUser("userKeyA"))
	assert.Equal(t, 1, es.variationIndexForUser(vr, "hashKey", "saltyA"))
}

func TestVariationIndexForUserWithFixedVariation(t *testing.T) {
	es := scopeForUser(lduser.NewUser("userKeyA"))
	assert.Equal(t, 2, es.variationIndexForUser(ldbuilders.Variation(2), "hashKey", "saltyA"))
}
