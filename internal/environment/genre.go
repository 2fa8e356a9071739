package environment

import "strconv"

// Genre is a background music genre code, 1 (calmest) to 10 (loudest).
type Genre int

const (
	MinGenre Genre = 1
	MaxGenre Genre = 10
)

var genreNames = map[Genre]string{
	1:  "Calm",
	2:  "Jazz",
	3:  "Acoustic",
	4:  "Chillstep",
	5:  "Ambient",
	6:  "Pop",
	7:  "Rock",
	8:  "EDM",
	9:  "Dubstep",
	10: "Heavy Metal",
}

// String returns the genre label, or the bare code when it has none.
func (g Genre) String() string {
	if name, ok := genreNames[g]; ok {
		return name
	}
	return strconv.Itoa(int(g))
}

// Valid reports whether the code is within 1..10.
func (g Genre) Valid() bool {
	return g >= MinGenre && g <= MaxGenre
}

// GenreLabels returns code → label for every known genre.
func GenreLabels() map[Genre]string {
	out := make(map[Genre]string, len(genreNames))
	for k, v := range genreNames {
		out[k] = v
	}
	return out
}
