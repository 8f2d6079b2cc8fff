package helper

import (
	"time"

	"github.com/united-manufacturing-hub/umh-utils/logger"
)

func InitTestLogging() {
	_ = logger.New("DEVELOPMENT")
}

// StringToPtr you probably don't need this outside of tests
func StringToPtr(val string) *string {
	return &val
}

// DateToPtr parses a plain date that is known to be valid; tests only.
func DateToPtr(val string) *time.Time {
	t, err := time.Parse("2006-01-02", val)
	if err != nil {
		panic(err)
	}
	return &t
}
