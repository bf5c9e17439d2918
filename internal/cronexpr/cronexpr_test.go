package cronexpr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	cases := []struct {
		name string
		rule Rule
		want string
	}{
		{"everyday", Rule{Hour: 7, Minute: 30, Repeat: Everyday}, "0 30 7 ? * *"},
		{"weekdays", Rule{Hour: 18, Minute: 0, Repeat: Weekdays}, "0 0 18 ? * MON-FRI"},
		{"weekends", Rule{Hour: 6, Minute: 5, Repeat: Weekends}, "0 5 6 ? * SAT,SUN"},
		{"custom sorted monday first", Rule{Hour: 21, Minute: 15, Repeat: Custom, Weekdays: []time.Weekday{time.Wednesday, time.Sunday, time.Monday, time.Wednesday}}, "0 15 21 ? * MON,WED,SUN"},
		{"once with year", Rule{Hour: 9, Minute: 45, Repeat: Once, Date: Date{Year: 2030, Month: time.June, Day: 15}}, "0 45 9 15 6 ? 2030"},
		{"once without year", Rule{Hour: 9, Minute: 45, Repeat: Once, Date: Date{Month: time.June, Day: 15}}, "0 45 9 15 6 ?"},
		{"leap day", Rule{Hour: 8, Minute: 0, Repeat: Once, Date: Date{Year: 2028, Month: time.February, Day: 29}}, "0 0 8 29 2 ? 2028"},
		{"leap day without year", Rule{Hour: 8, Minute: 0, Repeat: Once, Date: Date{Month: time.February, Day: 29}}, "0 0 8 29 2 ?"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Build(tc.rule)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.NoError(t, Validate(got))
		})
	}
}

func TestBuild_Rejects(t *testing.T) {
	for name, r := range map[string]Rule{
		"hour":         {Hour: 24, Repeat: Everyday},
		"minute":       {Minute: 60, Repeat: Everyday},
		"empty custom": {Repeat: Custom},
		"bad date":     {Repeat: Once, Date: Date{Month: 13, Day: 1}},
		"feb 30":       {Repeat: Once, Date: Date{Year: 2027, Month: time.February, Day: 30}},
		"feb 29 2027":  {Repeat: Once, Date: Date{Year: 2027, Month: time.February, Day: 29}},
		"apr 31":       {Repeat: Once, Date: Date{Month: time.April, Day: 31}},
		"unknown":      {Repeat: Repeat(42)},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Build(r)
			assert.Error(t, err)
		})
	}
}

func TestParse_RoundTrip(t *testing.T) {
	for _, r := range []Rule{
		{Hour: 7, Minute: 30, Repeat: Everyday},
		{Hour: 18, Minute: 0, Repeat: Weekdays},
		{Hour: 23, Minute: 59, Repeat: Weekends},
		{Hour: 0, Minute: 1, Repeat: Custom, Weekdays: []time.Weekday{time.Monday, time.Wednesday}},
		{Hour: 12, Minute: 0, Repeat: Once, Date: Date{Year: 2031, Month: time.January, Day: 2}},
	} {
		expr, err := Build(r)
		require.NoError(t, err)
		got, err := Parse(expr)
		require.NoError(t, err, expr)
		assert.Equal(t, r, got, expr)
	}
}

func TestParse_Variants(t *testing.T) {
	cases := []struct {
		expr   string
		repeat Repeat
		days   []time.Weekday
	}{
		{"0 0 6 * * ?", Everyday, nil},
		{"0 0 6 ? * 2-6", Weekdays, nil},
		{"0 0 6 ? * 1,7", Weekends, nil},
		{"0 0 6 ? * SUN,SAT", Weekends, nil},
		{"0 0 6 ? * 2,4", Custom, []time.Weekday{time.Monday, time.Wednesday}},
		{"0 0 6 ? * mon-wed", Custom, []time.Weekday{time.Monday, time.Tuesday, time.Wednesday}},
		{"0 0 6 ? * MON,TUE,WED,THU,FRI", Weekdays, nil},
		{"0 0 6 ? * 1", Custom, []time.Weekday{time.Sunday}},
		{"0 0 6 ? * FRI-MON", Custom, []time.Weekday{time.Monday, time.Friday, time.Saturday, time.Sunday}},
		{"0 0 6 ? * SAT-SUN", Weekends, nil},
		{"0 0 6 ? * 7-1", Weekends, nil},
	}
	for _, tc := range cases {
		t.Run(tc.expr, func(t *testing.T) {
			r, err := Parse(tc.expr)
			require.NoError(t, err)
			assert.Equal(t, tc.repeat, r.Repeat)
			assert.Equal(t, tc.days, r.Weekdays)
			assert.Equal(t, 6, r.Hour)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	for _, expr := range []string{
		"",
		"0 30 7 ? *",
		"0 61 7 ? * *",
		"0 30 25 ? * *",
		"0 30 7 ? * 8",
		"0 30 7 ? * FUNDAY",
		"0 30 7 30 2 ?",
		"0 30 7 ? * * 2030",
		"0 30 7 1/2 * ?",
	} {
		_, err := Parse(expr)
		assert.Error(t, err, expr)
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate("0 30 7 ? * *"))
	assert.NoError(t, Validate("0 0 18 ? * MON-FRI"))
	assert.NoError(t, Validate("0 0 18 ? * 2-6"))
	assert.NoError(t, Validate("0 */15 * * * *"))
	assert.NoError(t, Validate("0 0 6 ? * FRI-MON"))
	assert.NoError(t, Validate("0 0 6 ? * 7-1"))
	assert.Error(t, Validate("0 0 18 ? * 0"))
	assert.Error(t, Validate("not a cron"))
	assert.Error(t, Validate("0 0 18 ? * * 1900"))
}

func TestNext_NumericDayOfWeek(t *testing.T) {
	// Friday 2024-05-03 12:00 UTC
	from := time.Date(2024, 5, 3, 12, 0, 0, 0, time.UTC)
	next, err := Next("0 0 8 ? * 1", from) // 1 = Sunday
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 5, 8, 0, 0, 0, time.UTC), next)
}

func TestNext_WrappingDayRange(t *testing.T) {
	// Tuesday 2024-05-07 12:00 UTC
	from := time.Date(2024, 5, 7, 12, 0, 0, 0, time.UTC)
	next, err := Next("0 0 8 ? * FRI-MON", from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC), next)

	// Monday is inside the range too.
	next, err = Next("0 0 8 ? * FRI-MON", time.Date(2024, 5, 12, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 13, 8, 0, 0, 0, time.UTC), next)
}

func TestNext_YearPinned(t *testing.T) {
	from := time.Date(2024, 5, 3, 12, 0, 0, 0, time.UTC)

	next, err := Next("0 45 9 15 6 ? 2025", from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 15, 9, 45, 0, 0, time.UTC), next)

	past, err := Next("0 45 9 15 6 ? 2023", from)
	require.NoError(t, err)
	assert.True(t, past.IsZero())
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "Open at 07:30 every day", Describe(Rule{Action: "ACTIVATE", Hour: 7, Minute: 30, Repeat: Everyday}))
	assert.Equal(t, "Close at 18:00 on weekdays", Describe(Rule{Action: "DEACTIVATE", Hour: 18, Repeat: Weekdays}))
	assert.Equal(t, "Run at 06:05 on Mon, Wed", Describe(Rule{Hour: 6, Minute: 5, Repeat: Custom, Weekdays: []time.Weekday{time.Wednesday, time.Monday}}))
	assert.Equal(t, "Open at 09:00 on 2030-06-15", Describe(Rule{Action: "activate", Hour: 9, Repeat: Once, Date: Date{Year: 2030, Month: 6, Day: 15}}))
}

func TestParseRepeat(t *testing.T) {
	r, err := ParseRepeat("Weekdays")
	require.NoError(t, err)
	assert.Equal(t, Weekdays, r)
	_, err = ParseRepeat("fortnightly")
	assert.Error(t, err)
}
