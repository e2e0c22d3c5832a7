package planner

type stubEntry struct {
	name string
	date Date
	at   *Clock
}

func (s stubEntry) CalendarDate() Date { return s.date }

func (s stubEntry) StartTime() (Clock, bool) {
	if s.at == nil {
		return 0, false
	}
	return *s.at, true
}

func entry(name, date string) stubEntry {
	return stubEntry{name: name, date: MustParseDate(date)}
}

func timedEntry(name, date, at string) stubEntry {
	c, err := ParseClock(at)
	if err != nil {
		panic(err)
	}
	return stubEntry{name: name, date: MustParseDate(date), at: &c}
}

func names(entries []stubEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.name)
	}
	return out
}
