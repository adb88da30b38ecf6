package shader

import "fmt"

// Pass identifies one program of the frame graph.
type Pass int

const (
	Noise Pass = iota
	Velocity
	Divergence
	Pressure
	Gradient
	Terrain
	Wave
)

// Passes lists the topology passes in frame order. Wave is a separate effect
// drawn on its own.
var Passes = []Pass{Noise, Velocity, Divergence, Pressure, Gradient, Terrain}

func (p Pass) String() string {
	switch p {
	case Noise:
		return "noise"
	case Velocity:
		return "velocity"
	case Divergence:
		return "divergence"
	case Pressure:
		return "pressure"
	case Gradient:
		return "gradient"
	case Terrain:
		return "terrain"
	case Wave:
		return "wave"
	default:
		return fmt.Sprintf("Pass(%d)", int(p))
	}
}

// Fullscreen reports whether the pass is drawn as a single quad over its
// target. Only the terrain is drawn as instanced geometry.
func (p Pass) Fullscreen() bool { return p != Terrain }

// Samplers lists the textures the pass reads.
func (p Pass) Samplers() []string {
	switch p {
	case Velocity:
		return []string{"tTexture"}
	case Divergence:
		return []string{"uVelocity"}
	case Pressure:
		return []string{"tTexture", "uDivergence"}
	case Gradient:
		return []string{"uPressure", "uVelocity"}
	case Terrain:
		return []string{"tHeightNoise", "tNoise", "tFluid"}
	case Wave:
		return []string{"uNoiseTex"}
	default:
		return nil
	}
}

// Fragment returns the GLSL ES 3.00 fragment source of the pass.
func Fragment(p Pass) string {
	switch p {
	case Noise:
		return fullscreenPreamble + simplexNoise + noiseMain
	case Velocity:
		return fullscreenPreamble + velocityMain
	case Divergence:
		return fullscreenPreamble + divergenceMain
	case Pressure:
		return fullscreenPreamble + pressureMain
	case Gradient:
		return fullscreenPreamble + gradientMain
	case Terrain:
		return terrainFragment
	case Wave:
		return fullscreenPreamble + waveMain
	default:
		return ""
	}
}

// Vertex returns the vertex source of the pass. Fullscreen passes use the
// GL 410 quad shader directly; the terrain vertex shader is GLSL ES 3.00 and
// goes through the translator with its fragment shader so the varyings agree.
func Vertex(p Pass) string {
	if p.Fullscreen() {
		return vertexShaderSourceGL
	}
	return terrainVertex
}

// GetBlitFragmentShader copies a texture to the default framebuffer.
func GetBlitFragmentShader(flip bool) string {
	if flip {
		return blitFragmentShaderSourceFlipGL
	}
	return blitFragmentShaderSourceGL
}

// GenerateVertexShader is the fullscreen quad vertex shader.
func GenerateVertexShader() string {
	return vertexShaderSourceGL
}

// ────────────────────────────────── Desktop GL ──────────────────────────────────

const vertexShaderSourceGL = `#version 410 core
layout (location = 0) in vec2 in_vert;
out vec2 frag_uv;
void main() {
    frag_uv = in_vert * 0.5 + 0.5;
    gl_Position = vec4(in_vert, 0.0, 1.0);
}
`

const blitFragmentShaderSourceFlipGL = `#version 410 core
in vec2 frag_uv;
out vec4 fragColor;
uniform sampler2D u_texture;
void main() { fragColor = texture(u_texture, vec2(frag_uv.x, 1.0 - frag_uv.y)); }
`

const blitFragmentShaderSourceGL = `#version 410 core
in vec2 frag_uv;
out vec4 fragColor;
uniform sampler2D u_texture;
void main() { fragColor = texture(u_texture, frag_uv); }
`

// ──────────────────────────── Fullscreen passes (ES) ────────────────────────────

// Translated fragments cannot share varyings with the untranslated quad
// shader, so texture coordinates come from gl_FragCoord.
const fullscreenPreamble = `#version 300 es
precision highp float;
uniform vec2 uResolution;
out vec4 fragColor;
#define vUv (gl_FragCoord.xy / uResolution)
`

const simplexNoise = `
uniform float uSeed;
uniform float uTime;
uniform float uScale;
uniform float uTimeScale;
uniform float uNoiseOffset;
uniform vec2 uNoiseTranslation;

vec3 mod289(vec3 x) { return x - floor(x * (1.0 / 289.0)) * 289.0; }
vec4 mod289(vec4 x) { return x - floor(x * (1.0 / 289.0)) * 289.0; }
vec4 permute(vec4 x) { return mod289(((x * 34.0) + 10.0) * x); }
vec4 taylorInvSqrt(vec4 r) { return 1.79284291400159 - 0.85373472095314 * r; }

float snoise(vec3 v) {
    const vec2 C = vec2(1.0 / 6.0, 1.0 / 3.0);
    const vec4 D = vec4(0.0, 0.5, 1.0, 2.0);
    vec3 i = floor(v + dot(v, C.yyy));
    vec3 x0 = v - i + dot(i, C.xxx);
    vec3 g = step(x0.yzx, x0.xyz);
    vec3 l = 1.0 - g;
    vec3 i1 = min(g.xyz, l.zxy);
    vec3 i2 = max(g.xyz, l.zxy);
    vec3 x1 = x0 - i1 + C.xxx;
    vec3 x2 = x0 - i2 + C.yyy;
    vec3 x3 = x0 - D.yyy;
    i = mod289(i);
    vec4 p = permute(permute(permute(
        i.z + vec4(0.0, i1.z, i2.z, 1.0))
        + i.y + vec4(0.0, i1.y, i2.y, 1.0))
        + i.x + vec4(0.0, i1.x, i2.x, 1.0));
    float n_ = 0.142857142857;
    vec3 ns = n_ * D.wyz - D.xzx;
    vec4 j = p - 49.0 * floor(p * ns.z * ns.z);
    vec4 x_ = floor(j * ns.z);
    vec4 y_ = floor(j - 7.0 * x_);
    vec4 x = x_ * ns.x + ns.yyyy;
    vec4 y = y_ * ns.x + ns.yyyy;
    vec4 h = 1.0 - abs(x) - abs(y);
    vec4 b0 = vec4(x.xy, y.xy);
    vec4 b1 = vec4(x.zw, y.zw);
    vec4 s0 = floor(b0) * 2.0 + 1.0;
    vec4 s1 = floor(b1) * 2.0 + 1.0;
    vec4 sh = -step(h, vec4(0.0));
    vec4 a0 = b0.xzyw + s0.xzyw * sh.xxyy;
    vec4 a1 = b1.xzyw + s1.xzyw * sh.zzww;
    vec3 p0 = vec3(a0.xy, h.x);
    vec3 p1 = vec3(a0.zw, h.y);
    vec3 p2 = vec3(a1.xy, h.z);
    vec3 p3 = vec3(a1.zw, h.w);
    vec4 norm = taylorInvSqrt(vec4(dot(p0, p0), dot(p1, p1), dot(p2, p2), dot(p3, p3)));
    p0 *= norm.x;
    p1 *= norm.y;
    p2 *= norm.z;
    p3 *= norm.w;
    vec4 m = max(0.5 - vec4(dot(x0, x0), dot(x1, x1), dot(x2, x2), dot(x3, x3)), 0.0);
    m = m * m;
    return 105.0 * dot(m * m, vec4(dot(p0, x0), dot(p1, x1), dot(p2, x2), dot(p3, x3)));
}
`

const noiseMain = `
float field(vec2 p, float z) {
    return snoise(vec3((p + uNoiseTranslation) * uScale, z));
}

void main() {
    vec2 uv = vUv;
    float z = uNoiseOffset + uTime * uTimeScale + uSeed * 0.0137;
    // blend with the copies one period away so the field tiles
    float a = field(uv, z);
    float b = field(uv - vec2(1.0, 0.0), z);
    float c = field(uv - vec2(0.0, 1.0), z);
    float d = field(uv - vec2(1.0, 1.0), z);
    float n = mix(mix(a, b, uv.x), mix(c, d, uv.x), uv.y);
    n = clamp(0.5 + 0.5 * n, 0.0, 1.0);
    fragColor = vec4(n, n, n, 1.0);
}
`

const velocityMain = `
uniform sampler2D tTexture;
uniform vec2 uTexelSize;
uniform vec2 uForce;
uniform vec2 uMouse;
uniform vec2 uPrevMouse;
uniform vec2 uMouseVelocity;
uniform float uMouseRadius;
uniform float uPressure;

float sdLine(vec2 p, vec2 a, vec2 b) {
    float speed = clamp(length(uMouseVelocity), 0.5, 1.5);
    vec2 pa = p - a, ba = b - a;
    float d = dot(ba, ba);
    float h = d > 0.0 ? clamp(dot(pa, ba) / d, 0.0, 1.0) : 0.0;
    return length(pa - ba * h) / speed;
}

void main() {
    vec4 color = texture(tTexture, vUv - texture(tTexture, vUv).xy * uTexelSize);
    float dir = smoothstep(1.0 - uMouseRadius, 1.0, 1.0 - min(sdLine(vUv, uPrevMouse, uMouse), 1.0));
    color = clamp((color + vec4(uForce * dir, 0.0, 1.0)) * uPressure, vec4(-1.0), vec4(1.0));
    fragColor = color;
}
`

const divergenceMain = `
uniform sampler2D uVelocity;
uniform vec2 uTexelSize;
uniform float uViscosity;

void main() {
    float x0 = texture(uVelocity, vUv - vec2(uTexelSize.x, 0.0)).x;
    float x1 = texture(uVelocity, vUv + vec2(uTexelSize.x, 0.0)).x;
    float y0 = texture(uVelocity, vUv - vec2(0.0, uTexelSize.y)).y;
    float y1 = texture(uVelocity, vUv + vec2(0.0, uTexelSize.y)).y;
    fragColor = vec4((x1 - x0 + y1 - y0) * uViscosity);
}
`

const pressureMain = `
uniform sampler2D tTexture;
uniform sampler2D uDivergence;
uniform float uAlpha;
uniform float uBeta;
uniform vec2 uTexelSize;

void main() {
    float x0 = texture(tTexture, vUv - vec2(uTexelSize.x, 0.0)).r;
    float x1 = texture(tTexture, vUv + vec2(uTexelSize.x, 0.0)).r;
    float y0 = texture(tTexture, vUv - vec2(0.0, uTexelSize.y)).r;
    float y1 = texture(tTexture, vUv + vec2(0.0, uTexelSize.y)).r;
    float b = texture(uDivergence, vUv).r;
    fragColor = vec4((x0 + x1 + y0 + y1 + uAlpha * b) * uBeta);
}
`

const gradientMain = `
uniform sampler2D uPressure;
uniform sampler2D uVelocity;
uniform vec2 uTexelSize;

void main() {
    float x0 = texture(uPressure, vUv - vec2(uTexelSize.x, 0.0)).r;
    float x1 = texture(uPressure, vUv + vec2(uTexelSize.x, 0.0)).r;
    float y0 = texture(uPressure, vUv - vec2(0.0, uTexelSize.y)).r;
    float y1 = texture(uPressure, vUv + vec2(0.0, uTexelSize.y)).r;
    vec2 v = texture(uVelocity, vUv).xy;
    fragColor = vec4(v - vec2(x1 - x0, y1 - y0) * 0.5, 1.0, 1.0);
}
`

const waveMain = `
uniform float uTime;
uniform float uScroll;
uniform vec2 uMouse;
uniform sampler2D uNoiseTex;
uniform float uFrequency;
uniform float uSpeed;
uniform float uRotation;
uniform float uScaleGain;
uniform float uParallax;
uniform float uNoiseScale;
uniform vec2 uNoiseDrift;
uniform float uGrain;
uniform vec2 uVignette;
uniform float uSaturation;

mat2 rot(float a) {
    float s = sin(a), c = cos(a);
    return mat2(c, -s, s, c);
}

void main() {
    vec2 uv = vUv;
    vec2 p = uv - 0.5;
    p = rot(uScroll * uRotation * 6.28318530718) * p;
    p *= 1.0 + uScroll * uScaleGain;
    p += (uMouse - 0.5) * uParallax;

    float r = length(p);
    float t = 0.5 + 0.5 * sin(uFrequency * r - uTime * uSpeed);
    vec3 rainbow = 0.5 + 0.5 * sin(6.2831 * (t + vec3(0.0, 0.33, 0.66)));

    vec2 nUv = uv * uNoiseScale + vec2(uTime * uNoiseDrift.x, uScroll * uNoiseDrift.y);
    vec3 grain = texture(uNoiseTex, nUv).rgb;
    vec3 color = mix(rainbow, rainbow * grain, uGrain);
    color *= smoothstep(uVignette.x, uVignette.y, r);

    float g = dot(color, vec3(0.299, 0.587, 0.114));
    fragColor = vec4(mix(vec3(g), color, uSaturation), 1.0);
}
`

// ──────────────────────────────── Terrain (ES) ─────────────────────────────────

// Attribute locations of the terrain geometry.
const (
	PositionLocation    = 0
	UVLocation          = 1
	LayerOffsetLocation = 2
)

const terrainVertex = `#version 300 es
layout(location = 0) in vec3 position;
layout(location = 1) in vec2 uv;
layout(location = 2) in float aLayerOffset;

uniform mat4 uProjection;
uniform mat4 uModelView;
uniform float uTime;
uniform float uCycleOffset;
uniform float uCycleSpeed;

out vec2 vUv;
out float vLayerOffset;
out vec3 vWorldPosition;

void main() {
    vUv = uv;
    vec4 p = vec4(position, 1.0);
    vLayerOffset = mod(uTime * uCycleSpeed + aLayerOffset + uCycleOffset, 1.0);
    p.z += vLayerOffset;
    vWorldPosition = p.xyz;
    gl_Position = uProjection * uModelView * p;
}
`

const terrainFragment = `#version 300 es
precision highp float;

in vec2 vUv;
in float vLayerOffset;
in vec3 vWorldPosition;
out vec4 fragColor;

uniform sampler2D tHeightNoise;
uniform sampler2D tNoise;
uniform sampler2D tFluid;
uniform bool uFluidEnabled;
uniform bool uFluidEdgeEnabled;
uniform float uFluidStrength;
uniform float uEdgeStrength;
uniform vec3 uColor1;
uniform vec3 uColor2;
uniform vec3 uColor3;
uniform vec3 uColor4;
uniform vec3 uColor5;
uniform float uColorStep1;
uniform float uColorStep2;
uniform float uColorStep3;
uniform float uColorStep4;
uniform float uColorStep5;
uniform vec2 uColorHeightRange;
uniform vec3 uShadowColor;
uniform float uShadowStrength;
uniform vec2 uShadowRange;
uniform float uShadowOffset;
uniform vec3 uLightColor;
uniform vec2 uLightRange;
uniform float uLightOffset;
uniform float uLightStrength;
uniform float uLightShininess;
uniform float uDepthOffset;
uniform float uHeight;
uniform float uHeightNoiseSpeed;
uniform float uHeightNoiseStrength;
uniform float uHeightNoiseScale;
uniform vec2 uResolution;
uniform vec2 uLightPos;
uniform bool uIsFooter;
uniform float uTime;

float aastep(float value, float threshold) {
    return smoothstep(threshold - 0.00001, threshold + 0.00001, value);
}

float mapRange(float v, float a, float b, float c, float d) {
    return c + (d - c) * ((v - a) / (b - a));
}

float fluidStrength() {
    if (!uFluidEnabled) return 0.0;
    vec2 vel = texture(tFluid, gl_FragCoord.xy / uResolution).rg;
    float speed = abs(vel.r) + abs(vel.g);
    return uFluidEdgeEnabled ? speed * uEdgeStrength : speed * uFluidStrength;
}

float sampleNoise(vec2 uv, float layer, float fluid) {
    return texture(tHeightNoise, uv).r - layer - fluid;
}

void main() {
    float layerOffset = vLayerOffset * uDepthOffset;
    vec3 noise = texture(tNoise, vUv * uHeightNoiseScale + uTime * uHeightNoiseSpeed).rgb;
    vec2 uv = vUv + noise.rg * uHeightNoiseStrength;
    float fluid = fluidStrength();

    if (vLayerOffset < 0.94) {
        float above = aastep(sampleNoise(uv, layerOffset + 0.05, fluid), uHeight + 0.1);
        if (above > 0.01) discard;
    }

    float shape = sampleNoise(uv, layerOffset, fluid);
    float n = aastep(shape, uHeight);
    if (uIsFooter && vLayerOffset < 0.06) n = 1.0;
    if (n < 0.999) discard;

    vec2 shadowDir = length(uLightPos) > 0.0 ? normalize(-uLightPos) : vec2(0.0);
    float shadow = texture(tHeightNoise, uv - uShadowOffset * shadowDir).r - layerOffset;
    shadow = smoothstep(uHeight + uShadowRange.x, uHeight + uShadowRange.y, shadow) * uShadowStrength;
    if (vLayerOffset > 0.94) shadow = 0.0;

    float dist = mapRange(vWorldPosition.z, uColorHeightRange.x, uColorHeightRange.y, 0.0, 1.0);
    vec3 c = mix(uColor1, uColor2, smoothstep(uColorStep1, uColorStep2, dist));
    c = mix(c, uColor3, smoothstep(uColorStep2, uColorStep3, dist));
    c = mix(c, uColor4, smoothstep(uColorStep3, uColorStep4, dist));
    c = mix(c, uColor5, smoothstep(uColorStep4, uColorStep5, dist * 0.2));
    c += c * smoothstep(uHeight + 0.002, uHeight, shape) * 0.05;

    vec2 lightDir = length(uLightPos) > 0.0 ? normalize(uLightPos) : vec2(0.0);
    float highlight = texture(tHeightNoise, uv - uLightOffset * lightDir).r - layerOffset;
    highlight = smoothstep(uHeight + uLightRange.x, uHeight + uLightRange.y, highlight);
    if (vLayerOffset > 0.94) highlight = 0.0;
    c += uLightColor * pow(highlight, uLightShininess) * uLightStrength;
    c = mix(c, uShadowColor, shadow);

    fragColor = vec4(c, 1.0);
}
`
