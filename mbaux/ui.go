//go:build !tinygo && cgo

package mbaux

import (
	"bytes"
	"fmt"
	"log"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/glgl/v4.6-core/glgl"
	"github.com/soypat/metaball"
	"github.com/soypat/metaball/glbuild"
)

func ui(cfg UIConfig) error {
	p, err := cfg.Params.Sanitize()
	if err != nil {
		log.Println("corrected parameters:", err)
	}
	window, term, err := startGLFW(cfg.Width, cfg.Height, cfg.Title)
	if err != nil {
		return err
	}
	defer term()

	baked, err := metaball.BakeEnvMap(cfg.Env, cfg.EnvWidth, cfg.EnvHeight)
	if err != nil {
		return err
	}
	envData := make([]float32, 0, 4*len(baked.Texels))
	for _, t := range baked.Texels {
		envData = append(envData, t.X, t.Y, t.Z, 1)
	}

	programmer := glbuild.NewDefaultProgrammer()
	var vertSrc, fragSrc bytes.Buffer
	_, err = programmer.WriteVertexQuad(&vertSrc)
	if err != nil {
		return err
	}
	_, err = programmer.WriteFragmentMetaball(&fragSrc, glbuild.FragmentConfig{
		EnvWidth:      baked.Width,
		EnvHeight:     baked.Height,
		Light:         metaball.DefaultLight,
		Ambient:       metaball.FrameAmbient,
		MaxGradient:   metaball.MaxGradient,
		MinWidthScale: metaball.MinWidthScale,
	})
	if err != nil {
		return err
	}
	vertSrc.WriteByte(0)
	fragSrc.WriteByte(0)
	prog, err := glgl.CompileProgram(glgl.ShaderSource{
		Vertex:   vertSrc.String(),
		Fragment: fragSrc.String(),
	})
	if err != nil {
		return fmt.Errorf("%s\n\n%w", fragSrc.String(), err)
	}
	defer prog.Delete()
	prog.Bind()

	// Define a quad covering the screen
	var vao uint32
	gl.GenVertexArrays(1, &vao)
	gl.BindVertexArray(vao)
	var vbo uint32
	gl.GenBuffers(1, &vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	vertices := []float32{
		-1.0, -1.0,
		1.0, -1.0,
		-1.0, 1.0,
		-1.0, 1.0,
		1.0, -1.0,
		1.0, 1.0,
	}
	gl.BufferData(gl.ARRAY_BUFFER, 4*len(vertices), gl.Ptr(vertices), gl.STATIC_DRAW)
	posAttrib, err := prog.AttribLocation("aPos\x00")
	if err != nil {
		return err
	}
	gl.EnableVertexAttribArray(posAttrib)
	gl.VertexAttribPointer(posAttrib, 2, gl.FLOAT, false, 0, gl.PtrOffset(0))

	uniformNames := []string{
		glbuild.UniformResolution,
		glbuild.UniformBallCount,
		glbuild.UniformSize,
		glbuild.UniformSmoothness,
		glbuild.UniformFloor,
		glbuild.UniformWarp,
		glbuild.UniformThreshold,
		glbuild.UniformEdge,
		glbuild.UniformStep,
		glbuild.UniformColor,
		glbuild.UniformBackground,
		glbuild.UniformReflection,
		glbuild.UniformNormalStrength,
		glbuild.UniformCamera,
	}
	loc := make(map[string]int32, len(uniformNames))
	for _, name := range uniformNames {
		l, err := prog.UniformLocation(name + "\x00")
		if err != nil {
			return fmt.Errorf("uniform %s: %w", name, err)
		}
		loc[name] = l
	}

	var ssbos [2]uint32
	gl.GenBuffers(2, &ssbos[0])
	defer gl.DeleteBuffers(2, &ssbos[0])
	ballSSBO, envSSBO := ssbos[0], ssbos[1]
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, envSSBO)
	gl.BufferData(gl.SHADER_STORAGE_BUFFER, 4*len(envData), gl.Ptr(envData), gl.STATIC_DRAW)
	gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, glbuild.BindingEnv, envSSBO)
	err = glgl.Err()
	if err != nil {
		return fmt.Errorf("uploading environment map: %w", err)
	}

	var (
		paused    bool
		pausedAt  float64
		timeShift float64
	)
	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if action != glfw.Press {
			return
		}
		switch key {
		case glfw.KeyEscape:
			w.SetShouldClose(true)
		case glfw.KeySpace:
			paused = !paused
			if paused {
				pausedAt = glfw.GetTime()
			} else {
				timeShift += glfw.GetTime() - pausedAt
			}
		}
	})

	ctx := cfg.Context
	start := glfw.GetTime()
	ballData := make([]float32, 0, 2*metaball.MaxBalls)
	for !window.ShouldClose() {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
		now := glfw.GetTime()
		if paused {
			now = pausedAt
		}
		t := float32(now - start - timeShift)
		width, height := window.GetFramebufferSize()
		fr, err := metaball.NewFrame(t, p, ms2.Vec{X: float32(width), Y: float32(height)}, nil)
		if err != nil {
			return err
		}
		ballData = ballData[:0]
		for _, b := range fr.Balls() {
			ballData = append(ballData, b.X, b.Y)
		}
		if len(ballData) == 0 {
			ballData = append(ballData, 0, 0) // Buffer must not be empty.
		}
		gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, ballSSBO)
		gl.BufferData(gl.SHADER_STORAGE_BUFFER, 4*len(ballData), gl.Ptr(ballData), gl.STREAM_DRAW)
		gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, glbuild.BindingFragBalls, ballSSBO)

		sh := fr.Shader()
		uniforms := FieldUniforms(fr)
		prog.Bind()
		gl.Uniform2f(loc[glbuild.UniformResolution], float32(width), float32(height))
		gl.Uniform1i(loc[glbuild.UniformBallCount], int32(len(fr.Balls())))
		gl.Uniform1f(loc[glbuild.UniformSize], uniforms.Size)
		gl.Uniform1f(loc[glbuild.UniformSmoothness], uniforms.Smoothness)
		gl.Uniform1f(loc[glbuild.UniformFloor], uniforms.Floor)
		gl.Uniform2f(loc[glbuild.UniformWarp], uniforms.Warp.X, uniforms.Warp.Y)
		gl.Uniform1f(loc[glbuild.UniformThreshold], sh.Threshold)
		gl.Uniform1f(loc[glbuild.UniformEdge], sh.EdgeWidth)
		gl.Uniform1f(loc[glbuild.UniformStep], fr.GradientStep())
		gl.Uniform3f(loc[glbuild.UniformColor], sh.Base.X, sh.Base.Y, sh.Base.Z)
		gl.Uniform3f(loc[glbuild.UniformBackground], sh.Background.X, sh.Background.Y, sh.Background.Z)
		gl.Uniform1f(loc[glbuild.UniformReflection], sh.ReflectionIntensity)
		gl.Uniform1f(loc[glbuild.UniformNormalStrength], sh.NormalStrength)
		gl.Uniform3f(loc[glbuild.UniformCamera], sh.Camera.X, sh.Camera.Y, sh.Camera.Z)

		gl.Viewport(0, 0, int32(width), int32(height))
		gl.ClearColor(sh.Background.X, sh.Background.Y, sh.Background.Z, 1.0)
		gl.Clear(gl.COLOR_BUFFER_BIT)
		gl.BindVertexArray(vao)
		gl.DrawArrays(gl.TRIANGLES, 0, 6)
		window.SwapBuffers()
		glfw.PollEvents()
	}
	return nil
}

func startGLFW(width, height int, title string) (window *glfw.Window, term func(), err error) {
	if err := glfw.Init(); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize GLFW: %w", err)
	}
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 6)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	window, err = glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, nil, fmt.Errorf("failed to create GLFW window: %w", err)
	}
	window.MakeContextCurrent()
	glfw.SwapInterval(1)

	if err := gl.Init(); err != nil {
		glfw.Terminate()
		return nil, nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	return window, glfw.Terminate, nil
}
