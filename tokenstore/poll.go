package tokenstore

import (
	"time"

	"github.com/rs/zerolog/log"
)

// poller calls notify whenever the fingerprint returned by probe changes.
type poller struct {
	interval time.Duration
	probe    func() (string, error)
	done     chan struct{}
}

func newPoller(interval time.Duration, probe func() (string, error)) *poller {
	if interval <= 0 {
		interval = time.Second
	}
	return &poller{interval: interval, probe: probe, done: make(chan struct{})}
}

func (p *poller) start(notify func()) {
	last, err := p.probe()
	if err != nil {
		log.Debug().Err(err).Msg("token store: initial poll failed")
	}

	go func() {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-p.done:
				return
			case <-ticker.C:
				current, err := p.probe()
				if err != nil {
					log.Debug().Err(err).Msg("token store: poll failed")
					continue
				}
				if current != last {
					last = current
					notify()
				}
			}
		}
	}()
}

func (p *poller) stop() {
	select {
	case <-p.done:
	default:
		close(p.done)
	}
}
