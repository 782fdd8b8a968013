package builders_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corestress/corestress/pkg/affinity"
	"github.com/corestress/corestress/pkg/builders"
	"github.com/corestress/corestress/pkg/logger"
	"github.com/corestress/corestress/pkg/mocks"
	"github.com/corestress/corestress/pkg/process"
	"github.com/corestress/corestress/pkg/types"
)

var (
	hostMask = affinity.NewUnitSet(0, 1, 2, 3)
	slot1    = builders.Slot{Core: 1, Units: affinity.UnitSet{1, 3}}
	serde    = types.Project{Name: "serde", Path: "/stress/serde"}
)

type fixture struct {
	builder *builders.BaseBuilder
	runner  *mocks.MockRunner
	backend *mocks.MockBackend
}

func newFixture(t *testing.T, opts builders.Options) fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	runner := mocks.NewMockRunner(ctrl)
	backend := mocks.NewMockBackend(ctrl)
	log := logger.CreateLoggerWithOutput("debug", nil)

	return fixture{
		builder: builders.NewBaseBuilder(opts, runner, affinity.NewPinner(backend, log), log),
		runner:  runner,
		backend: backend,
	}
}

func (f fixture) expectPin(units affinity.UnitSet) {
	gomock.InOrder(
		f.backend.EXPECT().Get().Return(hostMask, nil),
		f.backend.EXPECT().Set(units).Return(nil),
		f.backend.EXPECT().Set(hostMask).Return(nil),
	)
}

func envMap(env []string) map[string]string {
	m := make(map[string]string, len(env))
	for _, kv := range env {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				m[kv[:i]] = kv[i+1:]
				break
			}
		}
	}
	return m
}

func TestBaseBuilder_Validate(t *testing.T) {
	tests := []struct {
		name    string
		opts    builders.Options
		wantErr bool
	}{
		{"defaults", builders.DefaultOptions(), false},
		{"missing build command", builders.Options{CleanCommand: "cargo clean"}, true},
		{"missing clean command", builders.Options{BuildCommand: "cargo build"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := builders.NewBaseBuilder(tt.opts, nil, nil, nil)
			err := b.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBuild_Success(t *testing.T) {
	f := newFixture(t, builders.DefaultOptions())
	f.expectPin(slot1.Units)
	t.Setenv("PATH", "/usr/local/bin:/usr/bin")

	f.runner.EXPECT().Run(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, cmd process.Command) (*process.Result, error) {
			assert.Equal(t, "cargo", cmd.Name)
			assert.Equal(t, []string{"build"}, cmd.Args)
			assert.Equal(t, serde.Path, cmd.Dir)

			env := envMap(cmd.Env)
			assert.Equal(t, "/usr/local/bin:/usr/bin", env["PATH"])
			v, ok := env["RUSTFLAGS"]
			assert.True(t, ok, "flags variable must be set explicitly")
			assert.Empty(t, v)
			_, isolated := env["CARGO_TARGET_DIR"]
			assert.False(t, isolated)
			return &process.Result{Stdout: "Compiling serde\n", Stderr: "Finished\n"}, nil
		})

	outcome, err := f.builder.Build(context.Background(), serde, slot1)
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.Equal(t, "Compiling serde\n", outcome.Stdout)
	assert.Equal(t, "Finished\n", outcome.Stderr)
	assert.False(t, outcome.StartedAt.IsZero())

	stats := f.builder.Stats()
	assert.Equal(t, 1, stats.TotalBuilds)
	assert.Equal(t, 1, stats.SuccessBuilds)
}

func TestBuild_NonZeroExitIsAnOutcome(t *testing.T) {
	f := newFixture(t, builders.DefaultOptions())
	f.expectPin(slot1.Units)

	f.runner.EXPECT().Run(gomock.Any(), gomock.Any()).
		Return(&process.Result{ExitCode: 101, Stderr: "error: could not compile `serde`"}, nil)

	outcome, err := f.builder.Build(context.Background(), serde, slot1)
	require.NoError(t, err)
	assert.False(t, outcome.Success)
	assert.Equal(t, 101, outcome.ExitCode)
	assert.Contains(t, outcome.Stderr, "could not compile")
	assert.Equal(t, 0, f.builder.Stats().SuccessBuilds)
}

func TestBuild_LaunchFailureIsAnError(t *testing.T) {
	f := newFixture(t, builders.DefaultOptions())
	f.expectPin(slot1.Units)

	launchErr := errors.New("exec: \"cargo\": executable file not found in $PATH")
	f.runner.EXPECT().Run(gomock.Any(), gomock.Any()).Return(nil, launchErr)

	outcome, err := f.builder.Build(context.Background(), serde, slot1)
	assert.Nil(t, outcome)
	assert.ErrorIs(t, err, launchErr)
	assert.Contains(t, err.Error(), "build serde")
}

func TestBuild_AffinityFailureIsAnError(t *testing.T) {
	f := newFixture(t, builders.DefaultOptions())
	f.backend.EXPECT().Get().Return(nil, errors.New("EPERM"))

	_, err := f.builder.Build(context.Background(), serde, slot1)

	var affErr *affinity.AffinityError
	assert.ErrorAs(t, err, &affErr)
}

func TestBuild_IsolatedSlot(t *testing.T) {
	f := newFixture(t, builders.DefaultOptions())
	slot := builders.Slot{Core: 3, Units: affinity.UnitSet{3, 7}, Isolated: true}
	f.expectPin(slot.Units)

	f.runner.EXPECT().Run(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, cmd process.Command) (*process.Result, error) {
			env := envMap(cmd.Env)
			assert.Equal(t, filepath.Join(serde.Path, "target", "corestress-core-3"), env["CARGO_TARGET_DIR"])
			return &process.Result{}, nil
		})

	_, err := f.builder.Build(context.Background(), serde, slot)
	require.NoError(t, err)
}

func TestClean(t *testing.T) {
	tests := []struct {
		name    string
		result  *process.Result
		runErr  error
		wantErr string
	}{
		{"success", &process.Result{}, nil, ""},
		{"non-zero exit", &process.Result{ExitCode: 1, Stderr: "error: no target dir\nmore"}, nil, "exited with code 1: error: no target dir"},
		{"launch failure", nil, os.ErrNotExist, "clean serde"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, builders.DefaultOptions())
			f.runner.EXPECT().Run(gomock.Any(), gomock.Any()).DoAndReturn(
				func(_ context.Context, cmd process.Command) (*process.Result, error) {
					assert.Equal(t, "cargo", cmd.Name)
					assert.Equal(t, []string{"clean"}, cmd.Args)
					assert.Equal(t, serde.Path, cmd.Dir)
					return tt.result, tt.runErr
				})

			err := f.builder.Clean(context.Background(), serde, slot1)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestClean_IsNotPinned(t *testing.T) {
	// No backend expectations: any affinity call fails the test
	f := newFixture(t, builders.DefaultOptions())
	f.runner.EXPECT().Run(gomock.Any(), gomock.Any()).Return(&process.Result{}, nil)

	require.NoError(t, f.builder.Clean(context.Background(), serde, slot1))
}

func TestBuild_CustomToolchain(t *testing.T) {
	opts := builders.Options{
		CleanCommand: "make clean",
		BuildCommand: "make -j1 && make check",
		FlagsEnv:     "CFLAGS",
	}
	f := newFixture(t, opts)
	f.expectPin(slot1.Units)

	f.runner.EXPECT().Run(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, cmd process.Command) (*process.Result, error) {
			assert.Equal(t, "sh", cmd.Name)
			assert.Equal(t, []string{"-c", "make -j1 && make check"}, cmd.Args)
			env := envMap(cmd.Env)
			_, ok := env["CFLAGS"]
			assert.True(t, ok)
			_, ok = env["RUSTFLAGS"]
			assert.False(t, ok)
			return &process.Result{}, nil
		})

	_, err := f.builder.Build(context.Background(), serde, slot1)
	require.NoError(t, err)
}
