// Package glbuild generates the GLSL programs that evaluate and shade the
// metaball field on the GPU. The generated code mirrors the CPU evaluator in
// package metaball so both paths produce the same image.
package glbuild

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/soypat/geometry/ms3"
)

const VersionStr = "#version 430\n"

// Uniform names shared by the compute and fragment programs.
const (
	UniformBallCount      = "uBallCount"
	UniformSize           = "uSize"
	UniformSmoothness     = "uSmoothness"
	UniformFloor          = "uFloor"
	UniformWarp           = "uWarp"
	UniformResolution     = "iResolution"
	UniformThreshold      = "uThreshold"
	UniformEdge           = "uEdge"
	UniformStep           = "uStep"
	UniformColor          = "uColor"
	UniformBackground     = "uBackground"
	UniformReflection     = "uReflection"
	UniformNormalStrength = "uNormalStrength"
	UniformCamera         = "uCamera"
)

// Shader storage buffer bindings.
const (
	// Compute program.
	BindingPositions = 0
	BindingValues    = 1
	BindingBalls     = 2
	// Fragment program.
	BindingFragBalls = 0
	BindingEnv       = 1
)

// Programmer implements shader generation logic for the metaball field.
type Programmer struct {
	scratch []byte
	// Invocations size in X (local group size) to give each compute work group.
	invocX int
}

// FragmentConfig configures the constants baked into a fragment program.
type FragmentConfig struct {
	// EnvWidth and EnvHeight are the dimensions of the equirectangular
	// environment buffer bound at [BindingEnv].
	EnvWidth, EnvHeight int
	// Light is the direction toward the key light.
	Light   ms3.Vec
	Ambient float32
	// MaxGradient bounds the gradient magnitude used for normals.
	MaxGradient float32
	// MinWidthScale floors the distortion width scale.
	MinWidthScale float32
}

// NewDefaultProgrammer returns a Programmer with reasonable default parameters for use with glgl package on the local machine.
func NewDefaultProgrammer() *Programmer {
	return &Programmer{
		scratch: make([]byte, 0, 1024),
		invocX:  32,
	}
}

// SetComputeInvocations sets the work group local-sizes. x*y*z must be less than maximum number of invocations.
func (p *Programmer) SetComputeInvocations(x, y, z int) {
	if y != 1 || z != 1 {
		panic("unsupported")
	} else if x < 1 {
		panic("zero or negative X invocation size")
	}
	p.invocX = x
}

// ComputeInvocations returns the worker group invocation size in x y and z.
func (p *Programmer) ComputeInvocations() (int, int, int) {
	return p.invocX, 1, 1
}

// WriteComputeMetaball writes a compute program that evaluates the warped
// field at the positions of the buffer at [BindingPositions] and stores the
// values in the buffer at [BindingValues].
func (p *Programmer) WriteComputeMetaball(w io.Writer, minWidthScale float32) (int, error) {
	if minWidthScale <= 0 {
		return 0, errors.New("non-positive minimum width scale")
	}
	b := append(p.scratch[:0], VersionStr...)
	b = AppendFloatDecl(b, "MIN_WIDTH_SCALE", minWidthScale)
	b = appendFieldLib(b, BindingBalls)
	b = fmt.Appendf(b, `
layout(local_size_x = %d, local_size_y = 1, local_size_z = 1) in;

// Input: 2D positions at which to evaluate the field.
layout(std430, binding = %d) buffer PositionsBuffer {
	vec2 vbo_positions[];
};

// Output: field values. Maps to position buffer.
layout(std430, binding = %d) buffer ValuesBuffer {
	float vbo_values[];
};

void main() {
	int idx = int( gl_GlobalInvocationID.x );
	if (idx >= vbo_values.length()) {
		return;
	}
	vbo_values[idx] = field(vbo_positions[idx]);
}
`, p.invocX, BindingPositions, BindingValues)
	p.scratch = b
	return w.Write(b)
}

// WriteFragmentMetaball writes a fragment program that shades the metaball
// field for every pixel. Ball positions are read from the buffer at
// [BindingFragBalls] and the baked environment map from the buffer at [BindingEnv].
func (p *Programmer) WriteFragmentMetaball(w io.Writer, cfg FragmentConfig) (int, error) {
	if cfg.EnvWidth <= 0 || cfg.EnvHeight <= 0 {
		return 0, errors.New("invalid environment map dimensions")
	} else if cfg.MinWidthScale <= 0 || cfg.MaxGradient <= 0 {
		return 0, errors.New("non-positive distortion floor or gradient bound")
	}
	light := cfg.Light
	if l := ms3.Norm(light); l > 0 {
		light = ms3.Scale(1/l, light)
	} else {
		light = ms3.Vec{Z: 1}
	}
	b := append(p.scratch[:0], VersionStr...)
	b = AppendDefineDecl(b, "ENV_W", strconv.Itoa(cfg.EnvWidth))
	b = AppendDefineDecl(b, "ENV_H", strconv.Itoa(cfg.EnvHeight))
	b = AppendFloatDecl(b, "MIN_WIDTH_SCALE", cfg.MinWidthScale)
	b = AppendFloatDecl(b, "MAX_GRADIENT", cfg.MaxGradient)
	b = AppendFloatDecl(b, "AMBIENT", cfg.Ambient)
	b = AppendVec3Decl(b, "LIGHT", light)
	b = appendFieldLib(b, BindingFragBalls)
	b = fmt.Appendf(b, "\nlayout(std430, binding = %d) buffer EnvBuffer {\n\tvec4 env[];\n};", BindingEnv)
	b = append(b, fragmentBody...)
	p.scratch = b
	return w.Write(b)
}

// WriteVertexQuad writes the vertex program of a full screen quad with
// attribute aPos in clip coordinates.
func (p *Programmer) WriteVertexQuad(w io.Writer) (int, error) {
	return io.WriteString(w, VersionStr+`in vec2 aPos;
void main() {
	gl_Position = vec4(aPos, 0.0, 1.0);
}
`)
}

// appendFieldLib appends the ball buffer, field uniforms, smooth minimum,
// warp and field functions.
func appendFieldLib(b []byte, ballBinding int) []byte {
	return fmt.Appendf(b, `
layout(std430, binding = %d) buffer BallsBuffer {
	vec2 balls[];
};
uniform int %s;
uniform float %s;
uniform float %s;
uniform float %s;
uniform vec2 %s;

float smin(float a, float b, float k) {
	if (k <= 0.0) {
		return min(a, b);
	}
	float h = clamp(0.5+0.5*(b-a)/k, 0.0, 1.0);
	return mix(b, a, h) - k*h*(1.0-h);
}

vec2 warp(vec2 p) {
	float s = max(1.0 + uWarp.x*p.y, MIN_WIDTH_SCALE);
	return vec2(p.x/s, p.y + 0.5*uWarp.x*uWarp.y*p.x*p.x);
}

float field(vec2 p) {
	p = warp(p);
	float acc = uFloor;
	for (int i = 0; i < uBallCount; i++) {
		acc = smin(acc, length(p - balls[i]) - uSize, uSmoothness);
	}
	return -acc;
}
`, ballBinding, UniformBallCount, UniformSize, UniformSmoothness, UniformFloor, UniformWarp)
}

// fragmentBody is appended as is, not used as a format string.
const fragmentBody = `
uniform vec2 iResolution;
uniform float uThreshold;
uniform float uEdge;
uniform float uStep;
uniform vec3 uColor;
uniform vec3 uBackground;
uniform float uReflection;
uniform float uNormalStrength;
uniform vec3 uCamera;
out vec4 fragColor;

const float PI = 3.14159265358979;

vec3 texel(int x, int y) {
	return env[y*ENV_W + x].rgb;
}

vec3 envSample(vec3 d) {
	d = normalize(d);
	float u = 0.5 + atan(d.x, -d.z)/(2.0*PI);
	float v = acos(clamp(d.y, -1.0, 1.0))/PI;
	float fx = u*float(ENV_W) - 0.5;
	float fy = clamp(v*float(ENV_H) - 0.5, 0.0, float(ENV_H-1));
	float x0f = floor(fx);
	int y0 = int(fy);
	float tx = fx - x0f;
	float ty = fy - float(y0);
	int x0 = int(mod(x0f, float(ENV_W)));
	int x1 = (x0 + 1) % ENV_W;
	int y1 = min(y0 + 1, ENV_H - 1);
	vec3 top = mix(texel(x0, y0), texel(x1, y0), tx);
	vec3 bot = mix(texel(x0, y1), texel(x1, y1), tx);
	return mix(top, bot, ty);
}

vec3 shade(float f, vec2 g, vec2 p, float cover) {
	float R = max(uSize, 6e-7);
	float h = clamp(f - uThreshold, 0.0, R);
	float height = sqrt(h*(2.0*R - h));
	float gn = length(g);
	if (gn > MAX_GRADIENT) {
		g *= MAX_GRADIENT/gn;
	}
	float slope = (R - h)*uNormalStrength;
	vec3 n = vec3(-slope*g, height);
	float nl = length(n);
	n = nl < 6e-7 ? vec3(0.0, 0.0, 1.0) : n/nl;
	vec3 view = vec3(p, height) - uCamera;
	float vl = length(view);
	view = vl < 6e-7 ? vec3(0.0, 0.0, -1.0) : view/vl;
	vec3 refl = reflect(view, n);
	float diffuse = AMBIENT + (1.0-AMBIENT)*max(dot(n, LIGHT), 0.0);
	vec3 col = mix(diffuse*uColor, envSample(refl)*uColor, uReflection);
	return clamp(mix(uBackground, col, cover), 0.0, 1.0);
}

void main() {
	vec2 p = (2.0*gl_FragCoord.xy - iResolution)/iResolution.y;
	float f = field(p);
	float cover = smoothstep(uThreshold - uEdge, uThreshold + uEdge, f);
	if (cover <= 0.0) {
		fragColor = vec4(uBackground, 1.0);
		return;
	}
	float inv = 1.0/(2.0*uStep);
	vec2 g = vec2(
		field(p + vec2(uStep, 0.0)) - field(p - vec2(uStep, 0.0)),
		field(p + vec2(0.0, uStep)) - field(p - vec2(0.0, uStep))
	)*inv;
	fragColor = vec4(shade(f, g, p, cover), 1.0);
}
`

// AppendDefineDecl appends a #define directive replacing aliasToDefine with aliasReplace.
func AppendDefineDecl(b []byte, aliasToDefine, aliasReplace string) []byte {
	b = append(b, "#define "...)
	b = append(b, aliasToDefine...)
	b = append(b, ' ')
	b = append(b, aliasReplace...)
	b = append(b, '\n')
	return b
}

// AppendVec3Decl appends a vec3 constant declaration.
func AppendVec3Decl(b []byte, vec3Varname string, v ms3.Vec) []byte {
	b = append(b, "const vec3 "...)
	b = append(b, vec3Varname...)
	b = append(b, "=vec3("...)
	b = AppendFloats(b, ',', '-', '.', v.X, v.Y, v.Z)
	b = append(b, ')', ';', '\n')
	return b
}

// AppendFloatDecl appends a float constant declaration.
func AppendFloatDecl(b []byte, floatVarname string, v float32) []byte {
	b = append(b, "const float "...)
	b = append(b, floatVarname...)
	b = append(b, '=')
	b = AppendFloat(b, '-', '.', v)
	b = append(b, ';', '\n')
	return b
}

const decimalDigits = 9

// AppendFloat appends v in GLSL float literal form. A decimal point is always
// present so the literal is never parsed as an int.
func AppendFloat(b []byte, neg, decimal byte, v float32) []byte {
	start := len(b)
	b = strconv.AppendFloat(b, float64(v), 'f', decimalDigits, 32)
	idx := bytes.IndexByte(b[start:], '.')
	if decimal != '.' && idx >= 0 {
		b[start+idx] = decimal
	}
	if b[start] == '-' {
		b[start] = neg
	}
	// Finally trim zeroes, keeping one after the decimal point.
	end := len(b)
	for i := len(b) - 1; idx >= 0 && i > idx+start+1 && b[i] == '0'; i-- {
		end--
	}
	return b[:end]
}

// AppendFloats appends the values of s with [AppendFloat], separated by sep when non-zero.
func AppendFloats(b []byte, sep, neg, decimal byte, s ...float32) []byte {
	for i, v := range s {
		b = AppendFloat(b, neg, decimal, v)
		if sep != 0 && i != len(s)-1 {
			b = append(b, sep)
		}
	}
	return b
}
