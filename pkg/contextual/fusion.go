package contextual

import (
	"github.com/oceanbase/remindsense-go/pkg/contextual/sources"
	"github.com/oceanbase/remindsense-go/pkg/model"
)

// Per-field source priority. On equal vote weight the value backed by the
// earlier source wins. Kinds not listed rank after the listed ones.
var (
	availabilityPriority = []sources.Kind{sources.KindManual, sources.KindCalendar, sources.KindTime}
	activityPriority     = []sources.Kind{sources.KindManual, sources.KindTime, sources.KindSensor, sources.KindCalendar, sources.KindPattern}
	locationPriority     = []sources.Kind{sources.KindSensor, sources.KindCalendar, sources.KindTime, sources.KindPattern}
)

// vote is one weighted ballot for a field value.
type vote struct {
	source     sources.Kind
	value      string
	confidence float64
}

// tally is the result of a field election.
type tally struct {
	value string

	// confidence is the winner's share of the total weight scaled by its
	// strongest single vote.
	confidence float64
	ok         bool
}

// elect runs confidence-weighted voting over votes, visiting sources in
// priority order so ties resolve to the higher-priority source.
func elect(votes []vote, priority []sources.Kind) tally {
	ordered := orderVotes(votes, priority)

	var order []string
	totals := make(map[string]float64)
	best := make(map[string]float64)
	var sum float64
	for _, v := range ordered {
		if v.value == "" || v.confidence <= 0 {
			continue
		}
		if _, seen := totals[v.value]; !seen {
			order = append(order, v.value)
		}
		totals[v.value] += v.confidence
		if v.confidence > best[v.value] {
			best[v.value] = v.confidence
		}
		sum += v.confidence
	}
	if len(order) == 0 {
		return tally{}
	}

	winner := order[0]
	for _, value := range order[1:] {
		if totals[value] > totals[winner] {
			winner = value
		}
	}
	return tally{
		value:      winner,
		confidence: totals[winner] / sum * best[winner],
		ok:         true,
	}
}

// orderVotes returns votes sorted by the rank of their source in priority,
// keeping the original order within a rank.
func orderVotes(votes []vote, priority []sources.Kind) []vote {
	rank := make(map[sources.Kind]int, len(priority))
	for i, k := range priority {
		rank[k] = i
	}
	rankOf := func(k sources.Kind) int {
		if r, ok := rank[k]; ok {
			return r
		}
		return len(priority)
	}

	out := make([]vote, 0, len(votes))
	for r := 0; r <= len(priority); r++ {
		for _, v := range votes {
			if rankOf(v.source) == r {
				out = append(out, v)
			}
		}
	}
	return out
}

// fused holds the outcome of fusing a set of observations.
type fused struct {
	activity     model.Activity
	availability model.Availability
	location     model.Location
	proximity    model.DeviceProximity
}

// fuse combines observations field by field. Fields with no votes are
// taken from fallback, the clock heuristic.
func fuse(observations []*sources.Observation, fallback *sources.Observation) fused {
	var activity, availability, location []vote
	names := make(map[string]string)
	out := fused{proximity: model.DeviceProximity{Distance: -1}}

	for _, o := range observations {
		if o == nil {
			continue
		}
		if o.Activity != "" {
			activity = append(activity, vote{o.Source, string(o.Activity), o.ActivityConfidence})
		}
		if o.Availability != "" {
			availability = append(availability, vote{o.Source, string(o.Availability), o.AvailabilityConfidence})
		}
		if o.Location != nil && o.Location.Type != "" {
			location = append(location, vote{o.Source, string(o.Location.Type), o.Location.Confidence})
			if _, ok := names[string(o.Location.Type)]; !ok && o.Location.Name != "" {
				names[string(o.Location.Type)] = o.Location.Name
			}
		}
		if o.Proximity != nil {
			out.proximity = *o.Proximity
		}
	}

	if t := elect(activity, activityPriority); t.ok {
		out.activity = model.Activity(t.value)
	} else {
		out.activity = fallback.Activity
	}

	if t := elect(availability, availabilityPriority); t.ok {
		out.availability = model.Availability(t.value)
	} else {
		out.availability = fallback.Availability
	}

	if t := elect(location, locationPriority); t.ok {
		out.location = model.Location{
			Name:       names[t.value],
			Type:       model.LocationType(t.value),
			Confidence: t.confidence,
		}
	} else if fallback.Location != nil {
		out.location = *fallback.Location
	} else {
		out.location = model.Location{Type: model.LocationUnknown}
	}

	return out
}
