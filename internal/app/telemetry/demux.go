package telemetry

import "github.com/ghalamif/MotionFlow/internal/domain"

type target struct {
	ch    *Channel
	field string
}

// boundRoute is a domain.Route resolved to concrete channels.
type boundRoute struct {
	timeline bool
	targets  []target
}

func bindRoutes(channels map[string]*Channel) map[domain.Sensor]boundRoute {
	routes := make(map[domain.Sensor]boundRoute)
	for _, sensor := range domain.Sensors() {
		r, _ := sensor.Route()
		br := boundRoute{timeline: r.Timeline, targets: make([]target, len(r.Bindings))}
		for i, b := range r.Bindings {
			br.targets[i] = target{ch: channels[b.Channel], field: b.Field}
		}
		routes[sensor] = br
	}
	return routes
}

// dispatch appends the timeline sample first, then each field in route
// order. Missing fields append 0.
func (r boundRoute) dispatch(timeline *Channel, ev domain.SensorEvent) {
	if r.timeline {
		timeline.Append(ev.Time.Seconds())
	}
	for _, t := range r.targets {
		t.ch.Append(ev.Values.Get(t.field))
	}
}
