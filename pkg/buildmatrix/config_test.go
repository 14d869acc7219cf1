package buildmatrix_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/serpentine/pkg/buildmatrix"
)

func parseConfig(t *testing.T, doc string) *buildmatrix.Config {
	t.Helper()

	cfg, err := buildmatrix.Parse(strings.NewReader(doc))
	require.NoError(t, err)

	return cfg
}

func TestLoadFixture(t *testing.T) {
	t.Parallel()

	cfg, err := buildmatrix.Load("testdata/serpentine.yml")
	require.NoError(t, err)

	assert.Equal(t, buildmatrix.EnvMap{
		{Name: "REPO_DIR", Value: "serpentine"},
		{Name: "PACKAGE_NAME", Value: "serpentine"},
		{Name: "BUILD_COMMIT", Value: "master"},
	}, cfg.Environment.Global)

	require.Len(t, cfg.Environment.Matrix, 2)
	arch, ok := cfg.Environment.Matrix[0].Get("TARGET_ARCH")
	require.True(t, ok)
	assert.Equal(t, "x86", arch)

	restrictions, ok := cfg.Environment.Matrix[1].Get("PYTHON_BUILD_RESTRICTIONS")
	require.True(t, ok)
	assert.Equal(t, "3.*", restrictions)

	assert.Equal(t, buildmatrix.Platforms{"x64"}, cfg.Platform)

	require.Len(t, cfg.Install, 2)
	assert.Equal(t, buildmatrix.Command{
		Line: "git clone https://github.com/matthew-brett/multibuild.git",
		Kind: "cmd",
	}, cfg.Install[0])

	assert.True(t, cfg.Build.Off)
	assert.Empty(t, cfg.Build.Commands)

	require.Len(t, cfg.TestScript, 2)
	assert.Equal(t, buildmatrix.Command{Line: "pytest"}, cfg.TestScript[1])
}

func TestParsePlatformScalar(t *testing.T) {
	t.Parallel()

	cfg := parseConfig(t, `
platform: x64
install:
  - echo hello
`)

	assert.Equal(t, buildmatrix.Platforms{"x64"}, cfg.Platform)
}

func TestParseBuildCommands(t *testing.T) {
	t.Parallel()

	cfg := parseConfig(t, `
build:
  - make all
  - sh: make check
`)

	assert.False(t, cfg.Build.Off)
	assert.Equal(t, buildmatrix.Commands{
		{Line: "make all"},
		{Line: "make check", Kind: "sh"},
	}, cfg.Build.Commands)
}

func TestParseSentinelErrors(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		doc     string
		wantErr error
	}{
		"empty input": {
			doc:     "",
			wantErr: buildmatrix.ErrEmptyConfig,
		},
		"nothing to run": {
			doc:     "environment:\n  global:\n    A: one\n",
			wantErr: buildmatrix.ErrEmptyConfig,
		},
		"empty matrix row": {
			doc:     "environment:\n  matrix:\n    - {}\ninstall:\n  - echo hi\n",
			wantErr: buildmatrix.ErrEmptyMatrixRow,
		},
		"duplicate variable": {
			doc:     "environment:\n  global:\n    A: one\n    A: two\ninstall:\n  - echo hi\n",
			wantErr: buildmatrix.ErrDuplicateVariable,
		},
		"blank platform": {
			doc:     "platform: ' '\ninstall:\n  - echo hi\n",
			wantErr: buildmatrix.ErrEmptyPlatform,
		},
		"blank command": {
			doc:     "install:\n  - ''\n",
			wantErr: buildmatrix.ErrEmptyCommand,
		},
		"blank cmd entry": {
			doc:     "install:\n  - cmd: ''\n",
			wantErr: buildmatrix.ErrEmptyCommand,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := buildmatrix.Parse(strings.NewReader(tc.doc))
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestParseShapeErrors(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"unknown top-level key": "wibble: wobble\ninstall:\n  - echo hi\n",
		"unknown marker":        "install:\n  - run: echo hi\n",
		"two-key command map":   "install:\n  - cmd: one\n    sh: two\n",
		"build scalar":          "build: maybe\n",
		"platform map":          "platform:\n  arch: x64\ninstall:\n  - echo hi\n",
		"environment scalar":    "environment: nope\ninstall:\n  - echo hi\n",
	}

	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := buildmatrix.Parse(strings.NewReader(doc))
			require.Error(t, err)
		})
	}
}
