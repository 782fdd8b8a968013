package types_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/corestress/corestress/pkg/types"
)

func TestRunMode_IsValid(t *testing.T) {
	tests := []struct {
		mode types.RunMode
		want bool
	}{
		{types.RunModeSequential, true},
		{types.RunModeParallel, true},
		{types.RunMode("seq"), false},
		{types.RunMode(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			if got := tt.mode.IsValid(); got != tt.want {
				t.Errorf("IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewProject(t *testing.T) {
	p := types.NewProject("/srv/stress/ripgrep")
	if p.Name != "ripgrep" {
		t.Errorf("expected name ripgrep, got %s", p.Name)
	}
	if p.Path != "/srv/stress/ripgrep" {
		t.Errorf("expected path to be kept, got %s", p.Path)
	}
	if p.String() != "ripgrep" {
		t.Errorf("expected String() to be the name, got %s", p.String())
	}
}

func TestBuildFailedError(t *testing.T) {
	err := fmt.Errorf("run 3: %w", &types.BuildFailedError{
		Project: "serde",
		Core:    2,
		Outcome: &types.BuildOutcome{ExitCode: 101},
	})

	if !errors.Is(err, types.ErrBuildFailed) {
		t.Error("expected errors.Is to match ErrBuildFailed")
	}

	var bfe *types.BuildFailedError
	if !errors.As(err, &bfe) {
		t.Fatal("expected errors.As to find BuildFailedError")
	}
	if bfe.Project != "serde" {
		t.Errorf("expected project serde, got %s", bfe.Project)
	}

	want := `failed to build "serde" on core 2 (exit code 101)`
	if bfe.Error() != want {
		t.Errorf("Error() = %q, want %q", bfe.Error(), want)
	}
}

func TestBuildFailedError_NilOutcome(t *testing.T) {
	err := &types.BuildFailedError{Project: "tokio", Core: 0}
	if err.Error() != `failed to build "tokio" on core 0` {
		t.Errorf("unexpected message: %s", err.Error())
	}
}

func TestRunSummary_Shape(t *testing.T) {
	first := types.RunSummary{
		Run:  0,
		Mode: types.RunModeSequential,
		Cores: []types.CoreSummary{
			{
				Core:  0,
				Units: []int{0, 8},
				Projects: []types.ProjectSummary{
					{Project: "a", Duration: 3 * time.Second},
					{Project: "b", Duration: 5 * time.Second},
				},
				Elapsed: 8 * time.Second,
			},
		},
		Elapsed: 8 * time.Second,
	}
	second := types.RunSummary{
		Run:  1,
		Mode: types.RunModeSequential,
		Cores: []types.CoreSummary{
			{
				Core:  0,
				Units: []int{0, 8},
				Projects: []types.ProjectSummary{
					{Project: "a", Duration: 4 * time.Second},
					{Project: "b", Duration: 2 * time.Second},
				},
				Elapsed: 6 * time.Second,
			},
		},
		Elapsed: 6 * time.Second,
	}

	a, b := first.Shape(), second.Shape()
	if fmt.Sprint(a) != fmt.Sprint(b) {
		t.Errorf("expected identical shapes, got %v and %v", a, b)
	}
	if len(a.Cores) != 1 || len(a.Cores[0].Projects) != 2 {
		t.Fatalf("unexpected shape: %+v", a)
	}
	if a.Cores[0].Projects[0] != "a" || a.Cores[0].Projects[1] != "b" {
		t.Errorf("expected project order to be kept, got %v", a.Cores[0].Projects)
	}
}
