package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// UserSessionKey returns the cache key for a user's login session.
func (r *CacheKeyStruct) UserSessionKey(userID int) string {
	return fmt.Sprintf("login:%d", userID)
}

// UserAttemptKey returns the key holding a user's in-flight attempt record.
// A single key per user; its existence is the one-attempt-in-flight lock.
func (r *CacheKeyStruct) UserAttemptKey(userID int) string {
	return fmt.Sprintf("user:%d:attempt", userID)
}

// AssessmentPayloadKey returns the cache key for an assessment's learner payload.
func (r *CacheKeyStruct) AssessmentPayloadKey(assessmentID string) string {
	return fmt.Sprintf("assessment:%s:payload", assessmentID)
}

var CacheKey = NewCacheKeyStruct()
