package snapshot

// Minute and possession are instantaneous readings, not cumulative counters,
// so deltas must pass them through untouched.
var nonDeltaKeys = map[Key]struct{}{
	KeyMinute:     {},
	KeyPossession: {},
}

// SecondHalfDelta subtracts a second-half baseline from current stats,
// flooring every side at zero: cumulative counters must never go negative
// because of transient scraping noise. Keys missing from the baseline pass
// through unchanged.
func SecondHalfDelta(current, baseline Stats) Stats {
	out := make(Stats, len(current))
	for key, values := range current {
		if _, skip := nonDeltaKeys[key]; skip {
			out[key] = cloneValues(values)
			continue
		}
		base, ok := baseline[key]
		if !ok {
			out[key] = cloneValues(values)
			continue
		}
		out[key] = subtractFloored(values, base)
	}
	return out
}

// AlertDelta subtracts an alert's initial snapshot from current stats for
// custom outcome-condition evaluation. The elapsed minute is rebased to
// minutes since the alert fired.
func AlertDelta(current, baseline Stats, minute, alertMinute *int) Stats {
	if len(current) == 0 || len(baseline) == 0 {
		return current
	}

	out := make(Stats, len(current))
	for key, values := range current {
		if key == KeyPossession {
			out[key] = cloneValues(values)
			continue
		}
		base, ok := baseline[key]
		if !ok {
			out[key] = cloneValues(values)
			continue
		}
		out[key] = subtractFloored(values, base)
	}

	if minute != nil {
		start := *minute
		if alertMinute != nil {
			start = *alertMinute
		}
		elapsed := *minute - start
		if elapsed < 0 {
			elapsed = 0
		}
		out[KeyMinute] = Uniform(elapsed)
	}
	return out
}

// RebaseMinute replaces the minute pseudo-stat with minutes into the second
// half, used when evaluating second-half-only rules.
func RebaseMinute(st Stats, minute int) {
	elapsed := minute - 45
	if elapsed < 0 {
		elapsed = 0
	}
	st[KeyMinute] = Uniform(elapsed)
}

func subtractFloored(values, base Values) Values {
	out := make(Values, len(values))
	for side, v := range values {
		d := v - base[side]
		if d < 0 {
			d = 0
		}
		out[side] = d
	}
	return out
}

func cloneValues(values Values) Values {
	out := make(Values, len(values))
	for side, v := range values {
		out[side] = v
	}
	return out
}
