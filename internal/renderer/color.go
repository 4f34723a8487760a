package renderer

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// SRGBToLinear converts a display colour to the working space shaders expect.
func SRGBToLinear(c [3]float32) mgl32.Vec3 {
	var out mgl32.Vec3
	for i, v := range c {
		if v < 0.04045 {
			out[i] = v * 0.0773993808
		} else {
			out[i] = float32(math.Pow(float64(v)*0.9478672986+0.0521327014, 2.4))
		}
	}
	return out
}

func LinearToSRGB(c mgl32.Vec3) [3]float32 {
	var out [3]float32
	for i, v := range c {
		if v < 0.0031308 {
			out[i] = v * 12.92
		} else {
			out[i] = float32(1.055*math.Pow(float64(v), 0.41666) - 0.055)
		}
	}
	return out
}
