package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// UserTokenKey returns the cache key tracking a user's active token (jti).
func (r *CacheKeyStruct) UserTokenKey(userID int) string {
	return fmt.Sprintf("auth:user:%d:token", userID)
}

// ExamPaperKey returns the cache key for an exam's student-facing paper
// (questions without answer keys).
func (r *CacheKeyStruct) ExamPaperKey(examID string) string {
	return fmt.Sprintf("exam:%s:paper", examID)
}

// ExamListKey returns the cache key for the exam summary listing.
func (r *CacheKeyStruct) ExamListKey() string {
	return "exams:summaries"
}

var CacheKey = NewCacheKeyStruct()
