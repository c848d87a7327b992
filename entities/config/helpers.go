//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2026 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

func Enabled(value string) bool {
	switch strings.ToLower(value) {
	case "on", "enabled", "1", "true":
		return true
	default:
		return false
	}
}

// DurationFromEnv returns the duration stored in the environment variable
// name, or def if the variable is unset.
func DurationFromEnv(name string, def time.Duration) (time.Duration, error) {
	opt := os.Getenv(name)
	if opt == "" {
		return def, nil
	}
	parsed, err := time.ParseDuration(opt)
	if err != nil {
		return def, fmt.Errorf("parse %s as duration: %w", name, err)
	}
	return parsed, nil
}

// Uint64FromEnv returns the unsigned integer stored in the environment
// variable name, or def if the variable is unset.
func Uint64FromEnv(name string, def uint64) (uint64, error) {
	opt := os.Getenv(name)
	if opt == "" {
		return def, nil
	}
	parsed, err := strconv.ParseUint(opt, 10, 64)
	if err != nil {
		return def, fmt.Errorf("parse %s as uint64: %w", name, err)
	}
	return parsed, nil
}
