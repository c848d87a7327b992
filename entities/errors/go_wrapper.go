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

package errors

import (
	"os"
	"runtime/debug"

	"github.com/sirupsen/logrus"

	entcfg "github.com/weaviate/seqalloc/entities/config"
)

// GoWrapper runs f in a new goroutine. A panic inside f is logged instead of
// crashing the process unless DISABLE_RECOVERY_ON_PANIC is enabled.
func GoWrapper(f func(), logger logrus.FieldLogger) {
	go func() {
		defer func() {
			if !entcfg.Enabled(os.Getenv("DISABLE_RECOVERY_ON_PANIC")) {
				if r := recover(); r != nil {
					logger.WithField("action", "recover_panic").Errorf("Recovered from panic: %v", r)
					debug.PrintStack()
				}
			}
		}()
		f()
	}()
}
