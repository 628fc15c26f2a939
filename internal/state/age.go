package state

import (
	"fmt"
	"time"
)

// CombinedAge returns the age of the oldest of statuses. It reports false when
// statuses is empty or any of them has never fetched, since a combined age
// would then overstate how fresh the data is.
func CombinedAge(statuses ...Status) (time.Duration, bool) {
	if len(statuses) == 0 {
		return 0, false
	}
	var oldest time.Duration
	for _, st := range statuses {
		if !st.HasAge {
			return 0, false
		}
		oldest = max(oldest, st.Age)
	}
	return oldest, true
}

// UpdatedLabel renders an age as "Updated 42s ago". Ages of a minute or more
// switch to minutes, and of an hour or more to hours.
func UpdatedLabel(age time.Duration, ok bool) string {
	if !ok {
		return "Never updated"
	}
	secs := int64(max(age, 0) / time.Second)
	switch {
	case secs < 60:
		return fmt.Sprintf("Updated %ds ago", secs)
	case secs < 3600:
		return fmt.Sprintf("Updated %dm ago", secs/60)
	default:
		return fmt.Sprintf("Updated %dh ago", secs/3600)
	}
}
