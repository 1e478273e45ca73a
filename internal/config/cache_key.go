package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// QuizPayloadKey returns the cache key for a quiz's student-facing payload
func (r *CacheKeyStruct) QuizPayloadKey(quizID string) string {
	return fmt.Sprintf("quiz:%s:payload", quizID)
}

// QuizStatsKey returns the cache key for a quiz's aggregate statistics
func (r *CacheKeyStruct) QuizStatsKey(quizID string) string {
	return fmt.Sprintf("quiz:%s:stats", quizID)
}

// GradingProgressChannel returns the Redis PubSub channel for a quiz's
// grading-progress events
func (r *CacheKeyStruct) GradingProgressChannel(quizID string) string {
	return fmt.Sprintf("quiz:%s:grading", quizID)
}

var CacheKey = NewCacheKeyStruct()
