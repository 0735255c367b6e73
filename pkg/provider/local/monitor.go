package local

import (
	"errors"

	"sunflower/pkg/log"
	"sunflower/pkg/monitor"
)

// GetMonitor returns a native monitor for path. When the native watch cannot
// be established a started manual monitor is returned instead.
func (p *Provider) GetMonitor(path string) (monitor.Monitor, error) {
	target := p.resolve(path, "")

	native, err := monitor.NewNative(target, p.monitorOpts...)
	if err == nil {
		return native, nil
	}

	var monitorErr *monitor.MonitorError
	if !errors.As(err, &monitorErr) {
		return nil, err
	}

	log.Warn().Err(err).Str("path", target).Msg("Native monitor unavailable, using manual monitor")
	manual := monitor.NewManual(target, p.monitorOpts...)
	manual.Start()
	return manual, nil
}
