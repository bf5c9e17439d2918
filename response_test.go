package piston_control

import "testing"

func TestResult_Variants(t *testing.T) {
	cases := []struct {
		name   string
		r      Result[int]
		status Status
	}{
		{"idle", Idle[int](), StatusIdle},
		{"loading", Loading[int](), StatusLoading},
		{"success", Success(7), StatusSuccess},
		{"error", Failure[int]("boom", 500), StatusError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.r.Status() != tc.status {
				t.Fatalf("Status() = %v; want %v", tc.r.Status(), tc.status)
			}
			var hits int
			tc.r.Match(
				func() { hits++ },
				func() { hits++ },
				func(int) { hits++ },
				func(string, int) { hits++ },
			)
			if hits != 1 {
				t.Fatalf("Match invoked %d branches", hits)
			}
		})
	}
}

func TestResult_ValueOnlyOnSuccess(t *testing.T) {
	if v, ok := Success("x").Value(); !ok || v != "x" {
		t.Fatalf("Value() = %q, %v", v, ok)
	}
	if _, ok := Failure[string]("nope", 0).Value(); ok {
		t.Fatalf("Value() on error should not be ok")
	}
	f := Failure[string]("nope", 403)
	if f.Message() != "nope" || f.Code() != 403 {
		t.Fatalf("got %q/%d", f.Message(), f.Code())
	}
}

func TestMapResult(t *testing.T) {
	got := MapResult(Success(2), func(n int) string { return "n=" + string(rune('0'+n)) })
	if v, _ := got.Value(); v != "n=2" {
		t.Fatalf("mapped value = %q", v)
	}
	e := MapResult(Failure[int]("bad", 404), func(n int) string { return "" })
	if !e.IsError() || e.Message() != "bad" || e.Code() != 404 {
		t.Fatalf("error not carried: %v", e)
	}
	if !MapResult(Loading[int](), func(int) bool { return true }).IsLoading() {
		t.Fatalf("loading not carried")
	}
}
