package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// RegisterRuntime adds Go runtime, process and build info collectors to the
// Collector's registry.
func (c *Collector) RegisterRuntime() error {
	if c == nil {
		return nil
	}
	for _, col := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	} {
		if err := c.registry.Register(col); err != nil {
			return err
		}
	}
	return nil
}
