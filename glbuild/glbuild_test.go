package glbuild_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/soypat/geometry/ms3"
	"github.com/soypat/metaball/glbuild"
)

func TestWriteComputeMetaball(t *testing.T) {
	prog := glbuild.NewDefaultProgrammer()
	prog.SetComputeInvocations(64, 1, 1)
	var source bytes.Buffer
	n, err := prog.WriteComputeMetaball(&source, 0.25)
	if err != nil {
		t.Fatal(err)
	} else if n != source.Len() {
		t.Fatal("written length mismatch")
	}
	src := source.String()
	if !strings.HasPrefix(src, glbuild.VersionStr) {
		t.Error("missing version directive")
	}
	for _, want := range []string{
		"local_size_x = 64",
		"const float MIN_WIDTH_SCALE=0.25;",
		"uniform int " + glbuild.UniformBallCount + ";",
		"uniform float " + glbuild.UniformSize + ";",
		"uniform float " + glbuild.UniformSmoothness + ";",
		"uniform float " + glbuild.UniformFloor + ";",
		"uniform vec2 " + glbuild.UniformWarp + ";",
		"binding = 2) buffer BallsBuffer",
		"float smin(float a, float b, float k)",
	} {
		if !strings.Contains(src, want) {
			t.Errorf("compute source missing %q\n%s", want, src)
		}
	}
	if strings.Contains(src, "%!") || strings.Contains(src, "%d") {
		t.Error("compute source has unformatted verb")
	}
	if strings.Contains(src, "fragColor") {
		t.Error("compute source contains fragment output")
	}
	if _, err = prog.WriteComputeMetaball(&source, 0); err == nil {
		t.Error("expected error for zero width scale")
	}
}

func TestWriteFragmentMetaball(t *testing.T) {
	prog := glbuild.NewDefaultProgrammer()
	cfg := glbuild.FragmentConfig{
		EnvWidth:      256,
		EnvHeight:     128,
		Light:         ms3.Vec{Z: 2},
		Ambient:       0.25,
		MaxGradient:   4,
		MinWidthScale: 0.2,
	}
	var source bytes.Buffer
	n, err := prog.WriteFragmentMetaball(&source, cfg)
	if err != nil {
		t.Fatal(err)
	} else if n != source.Len() {
		t.Fatal("written length mismatch")
	}
	src := source.String()
	for _, want := range []string{
		"#define ENV_W 256\n",
		"#define ENV_H 128\n",
		"const float AMBIENT=0.25;",
		"const float MAX_GRADIENT=4.0;",
		"const vec3 LIGHT=vec3(0.0,0.0,1.0);",
		"uniform vec2 " + glbuild.UniformResolution + ";",
		"uniform vec3 " + glbuild.UniformColor + ";",
		"uniform vec3 " + glbuild.UniformCamera + ";",
		"binding = 0) buffer BallsBuffer",
		"binding = 1) buffer EnvBuffer",
		"out vec4 fragColor;",
		"int x1 = (x0 + 1) % ENV_W;",
	} {
		if !strings.Contains(src, want) {
			t.Errorf("fragment source missing %q", want)
		}
	}
	for i, line := range strings.Split(src, "\n") {
		if strings.Contains(line, "%!") || strings.Contains(line, "%d") {
			t.Errorf("fragment line %d has unformatted verb: %q", i+1, line)
		}
	}
	// Every uniform must be declared exactly once.
	for _, name := range []string{
		glbuild.UniformBallCount, glbuild.UniformSize, glbuild.UniformSmoothness,
		glbuild.UniformFloor, glbuild.UniformWarp, glbuild.UniformResolution,
		glbuild.UniformThreshold, glbuild.UniformEdge, glbuild.UniformStep,
		glbuild.UniformColor, glbuild.UniformBackground, glbuild.UniformReflection,
		glbuild.UniformNormalStrength, glbuild.UniformCamera,
	} {
		if c := strings.Count(src, " "+name+";"); c != 1 {
			t.Errorf("uniform %s declared %d times", name, c)
		}
	}
	bad := cfg
	bad.EnvWidth = 0
	if _, err = prog.WriteFragmentMetaball(&source, bad); err == nil {
		t.Error("expected error for zero environment width")
	}
	source.Reset()
	n, err = prog.WriteVertexQuad(&source)
	if err != nil || n != source.Len() || !strings.Contains(source.String(), "in vec2 aPos;") {
		t.Errorf("bad vertex program: %v\n%s", err, source.String())
	}
}

func TestAppendFloat(t *testing.T) {
	tests := []struct {
		v    float32
		want string
	}{
		{v: 0, want: "0.0"},
		{v: 1, want: "1.0"},
		{v: -2.5, want: "-2.5"},
		{v: 0.125, want: "0.125"},
		{v: 100, want: "100.0"},
	}
	for _, test := range tests {
		got := string(glbuild.AppendFloat(nil, '-', '.', test.v))
		if got != test.want {
			t.Errorf("AppendFloat(%v): want %q, got %q", test.v, test.want, got)
		}
	}
	got := string(glbuild.AppendFloats(nil, ',', 'n', 'p', 1, -0.5))
	if got != "1p0,n0p5" {
		t.Errorf("AppendFloats with custom runes: got %q", got)
	}
}
