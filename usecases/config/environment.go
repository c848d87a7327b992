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
	"os"

	"github.com/pkg/errors"

	entcfg "github.com/weaviate/seqalloc/entities/config"
)

// FromEnv takes a *Config as it will respect initial config that has been
// provided by other means (e.g. a config file) and will only extend those that
// are set
func FromEnv(config *Config) error {
	if v := os.Getenv("SEQ_BIND_ADDR"); v != "" {
		config.Bind = v
	}

	if v := os.Getenv("SEQ_PERSISTENCE_BACKEND"); v != "" {
		config.Persistence.Backend = v
	}

	if v := os.Getenv("SEQ_PERSISTENCE_DATA_PATH"); v != "" {
		config.Persistence.DataPath = v
	}

	if v := os.Getenv("SEQ_CLIENT_SERVER_URL"); v != "" {
		config.Client.ServerURL = v
	}

	if v := os.Getenv("SEQ_CLIENT_NAME"); v != "" {
		config.Client.Name = v
	}

	width, err := entcfg.Uint64FromEnv("SEQ_CLIENT_WIDTH", config.Client.Width)
	if err != nil {
		return errors.Wrap(err, "client width")
	}
	config.Client.Width = width

	timeout, err := entcfg.DurationFromEnv("SEQ_CLIENT_REQUEST_TIMEOUT", config.Client.RequestTimeout)
	if err != nil {
		return errors.Wrap(err, "client request timeout")
	}
	config.Client.RequestTimeout = timeout

	if v := os.Getenv("SEQ_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}

	if v := os.Getenv("SEQ_LOG_FORMAT"); v != "" {
		config.Logging.Format = v
	}

	if v := os.Getenv("PROMETHEUS_MONITORING_ENABLED"); v != "" {
		config.Monitoring.Enabled = entcfg.Enabled(v)
	}

	return nil
}
