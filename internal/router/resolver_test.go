package router

import "testing"

func TestResolve_UnconstrainedFeatureWins(t *testing.T) {
	cmd := Command{
		Name: "play_feature",
		Features: []Feature{
			{Name: "play_music"}, // unconstrained
		},
	}
	feature, arg, ok := Resolve(cmd, "some totally unknown track")
	if !ok {
		t.Fatal("unconstrained feature must always resolve")
	}
	if feature != "play_music" || arg != "some totally unknown track" {
		t.Fatalf("Resolve = %q, %q", feature, arg)
	}
}

func TestResolve_UnconstrainedShortCircuits(t *testing.T) {
	cmd := Command{
		Name: "mixed",
		Features: []Feature{
			{Name: "first_free"},
			{Name: "exact", Arguments: []string{"exactword"}},
		},
	}
	feature, _, ok := Resolve(cmd, "exactword")
	if !ok || feature != "first_free" {
		t.Fatalf("Resolve = %q, want first_free (first unconstrained wins)", feature)
	}
}

func TestResolve_ConstrainedAboveThreshold(t *testing.T) {
	cmd := Command{
		Name: "say_features",
		Features: []Feature{
			{Name: "get_time", Arguments: []string{"time"}},
			{Name: "get_date", Arguments: []string{"date"}},
		},
	}
	feature, arg, ok := Resolve(cmd, "time")
	if !ok || feature != "get_time" {
		t.Fatalf("Resolve(time) = %q, %v", feature, ok)
	}
	if arg != "time" {
		t.Fatalf("argument = %q, want original object", arg)
	}

	feature, _, ok = Resolve(cmd, "date")
	if !ok || feature != "get_date" {
		t.Fatalf("Resolve(date) = %q, %v", feature, ok)
	}
}

func TestResolve_BelowThresholdFails(t *testing.T) {
	cmd := Command{
		Name: "say_features",
		Features: []Feature{
			{Name: "get_time", Arguments: []string{"time"}},
		},
	}
	if _, _, ok := Resolve(cmd, "zzzzzzzz"); ok {
		t.Fatal("nothing above the threshold should resolve")
	}
}

func TestResolve_OpenFallsBackToFile(t *testing.T) {
	cmd := Command{
		Name: "open_features",
		Features: []Feature{
			{Name: "open_site", Arguments: []string{"youtube", "google"}},
		},
	}
	feature, arg, ok := Resolve(cmd, "discord")
	if !ok {
		t.Fatal("open family must fall back instead of failing")
	}
	if feature != "open_file" || arg != "discord" {
		t.Fatalf("Resolve = %q, %q, want open_file fallback", feature, arg)
	}
}

func TestResolve_TieBreakByDeclarationOrder(t *testing.T) {
	cmd := Command{
		Name: "tie",
		Features: []Feature{
			{Name: "first", Arguments: []string{"report"}},
			{Name: "second", Arguments: []string{"report"}},
		},
	}
	feature, _, ok := Resolve(cmd, "report")
	if !ok || feature != "first" {
		t.Fatalf("Resolve = %q, want first on a tie", feature)
	}
}
