package utils

import (
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

// GetTagsMap converts a slice of tags to a map
// When a key appears more than once the last value wins. Tags without a key
// are dropped and a nil value becomes an empty string
func GetTagsMap(tags []types.Tag) map[string]string {
	result := make(map[string]string, len(tags))
	for _, tag := range tags {
		if tag.Key == nil {
			continue
		}
		result[*tag.Key] = SafeDeref(tag.Value)
	}
	return result
}

// LookupTag returns the value of the tag with the given key and whether it was present
func LookupTag(tags map[string]string, key string) (string, bool) {
	value, ok := tags[key]
	return value, ok
}
