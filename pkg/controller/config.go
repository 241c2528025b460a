package controller

import (
	"fmt"
	"time"

	"github.com/levenlabs/go-lflag"

	"github.com/bwestlin/pi-home-info/pkg/climate"
	"github.com/bwestlin/pi-home-info/pkg/utility"
)

// Configured sets up the Controller based on flags.
func Configured(prices utility.Provider, source climate.Source) *Controller {
	c := NewController(prices, source, nil, 2*time.Minute)

	timeout := lflag.Duration("cycle-timeout", 2*time.Minute, "Upper bound on a single polling cycle, 0 to disable")
	tz := lflag.String("tz", "", "Time zone for the hour labels (e.g. Europe/Stockholm), defaults to the local zone")

	lflag.Do(func() {
		if *timeout < 0 {
			panic(fmt.Sprintf("cycle-timeout must not be negative: %s", *timeout))
		}
		c.timeout = *timeout
		if *tz != "" {
			loc, err := time.LoadLocation(*tz)
			if err != nil {
				panic(fmt.Sprintf("failed to load time zone %q: %v", *tz, err))
			}
			c.loc = loc
		}
	})

	return c
}
