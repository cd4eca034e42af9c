package timepin

import "time"

// CurrentValidSecrets evaluates the rule at the current UTC minute and at
// its two neighbors, wrapping minute and hour boundaries (minute 0 reaches
// back into the previous hour, minute 59 forward into the next, hour wraps
// 23<->0). The rolling code is racy at minute boundaries and across client
// clock skew; accepting the neighboring minutes gives a 3-minute tolerance
// without widening the rotation period.
//
// The returned set holds up to three values; duplicates collapse.
func CurrentValidSecrets(rule *Rule, now time.Time) ([]int, error) {
	utc := now.UTC()
	hour, minute := utc.Hour(), utc.Minute()

	prevHour, prevMinute := shiftMinute(hour, minute, -1)
	nextHour, nextMinute := shiftMinute(hour, minute, +1)

	secrets := make([]int, 0, 3)
	for _, hm := range [][2]int{
		{hour, minute},
		{prevHour, prevMinute},
		{nextHour, nextMinute},
	} {
		val, err := rule.Eval(hm[0], hm[1])
		if err != nil {
			return nil, err
		}
		if !contains(secrets, val) {
			secrets = append(secrets, val)
		}
	}
	return secrets, nil
}

// shiftMinute moves (hour, minute) by delta minutes (delta is -1 or +1)
func shiftMinute(hour, minute, delta int) (int, int) {
	minute += delta
	switch {
	case minute < 0:
		minute = 59
		hour--
		if hour < 0 {
			hour = 23
		}
	case minute > 59:
		minute = 0
		hour++
		if hour > 23 {
			hour = 0
		}
	}
	return hour, minute
}

func contains(vals []int, v int) bool {
	for _, x := range vals {
		if x == v {
			return true
		}
	}
	return false
}
