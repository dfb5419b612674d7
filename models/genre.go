package models

import "github.com/gosimple/slug"

// Genre is a competition genre. Every genre has its own queues and its own
// daily leaderboard.
type Genre string

const (
	GenrePop        Genre = "pop"
	GenreRapHipHop  Genre = "rap/hip-hop"
	GenreRock       Genre = "rock"
	GenreElectronic Genre = "electronic"
	GenreCountry    Genre = "country"
	GenreHouse      Genre = "house"
	GenreAmbient    Genre = "ambient"
	GenreLatin      Genre = "latin"
	GenreRandBSoul  Genre = "r&b/soul"
	GenreClassical  Genre = "classical"
	GenreJazz       Genre = "jazz"
	GenreReggae     Genre = "reggae"
	GenreSoundtrack Genre = "soundtrack"
	GenreWorld      Genre = "world"
	GenreOther      Genre = "other"
)

var allGenres = []Genre{
	GenrePop,
	GenreRapHipHop,
	GenreRock,
	GenreElectronic,
	GenreCountry,
	GenreHouse,
	GenreAmbient,
	GenreLatin,
	GenreRandBSoul,
	GenreClassical,
	GenreJazz,
	GenreReggae,
	GenreSoundtrack,
	GenreWorld,
	GenreOther,
}

// Genres returns every competition genre in a stable order.
func Genres() []Genre {
	out := make([]Genre, len(allGenres))
	copy(out, allGenres)
	return out
}

func (g Genre) Valid() bool {
	for _, known := range allGenres {
		if g == known {
			return true
		}
	}
	return false
}

// Slug is the key-safe form of the genre ("rap/hip-hop" -> "rap-hip-hop").
func (g Genre) Slug() string {
	return slug.Make(string(g))
}
