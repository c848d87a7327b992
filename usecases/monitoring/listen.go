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

package monitoring

import (
	"net"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// CountingListener tracks the number of open connections accepted by l in
// the OpenConnections gauge.
func (pm *PrometheusMetrics) CountingListener(l net.Listener) net.Listener {
	if pm == nil {
		return l
	}
	return &countingListener{Listener: l, open: pm.OpenConnections}
}

type countingListener struct {
	net.Listener
	open prometheus.Gauge
}

func (c *countingListener) Accept() (net.Conn, error) {
	conn, err := c.Listener.Accept()
	if err != nil {
		return nil, err
	}
	c.open.Inc()
	return &countingConn{Conn: conn, open: c.open}, nil
}

type countingConn struct {
	net.Conn
	open prometheus.Gauge
	once sync.Once
}

// Close may be called several times per connection; the gauge drops once.
func (c *countingConn) Close() error {
	err := c.Conn.Close()
	c.once.Do(c.open.Dec)
	return err
}
