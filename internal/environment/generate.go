package environment

import (
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/homesim/internal/home"
)

// Setpoint ranges produced by Generate.
const (
	MinTemperature = 15.0
	MaxTemperature = 30.0
	MinLighting    = 0.0
	MaxLighting    = 100.0
)

// Generate builds an exhaustive mapping for rooms (every room × levels³),
// deterministic for a given seed. Three simplex fields add per-room texture on
// top of simple comfort rules: hotter outside means a cooler setpoint, darker
// outside means brighter lights, noisier outside means calmer music.
func Generate(rooms []home.Room, seed int64) []Row {
	tempNoise := opensimplex.NewNormalized(seed)
	lightNoise := opensimplex.NewNormalized(seed + 1)
	musicNoise := opensimplex.NewNormalized(seed + 2)

	rows := make([]Row, 0, len(rooms)*27)
	for ri, key := range AllKeys(rooms) {
		room := float64(ri / 27)
		ti := float64(key.Temperature.Index())
		li := float64(key.Lighting.Index())
		ni := float64(key.Noise.Index())

		// Sample along a per-room track so neighbouring keys vary smoothly.
		x := room*3.1 + ti*0.45
		y := li*0.45 + ni*0.3

		temp := 23 - 2.5*(ti-1) + (tempNoise.Eval2(x, y)-0.5)*4
		light := 60 - 25*(li-1) + (lightNoise.Eval2(x, y)-0.5)*30
		music := 5.5 - 2*(ni-1) + (musicNoise.Eval2(x, y)-0.5)*5

		rows = append(rows, Row{
			Key: key,
			Settings: Settings{
				Temperature: clamp(math.Round(temp*2)/2, MinTemperature, MaxTemperature),
				Lighting:    clamp(math.Round(light), MinLighting, MaxLighting),
				Music:       Genre(clamp(math.Round(music), float64(MinGenre), float64(MaxGenre))),
			},
		})
	}
	return rows
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
