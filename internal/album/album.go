// Package album renders finished cluster groups as named albums.
package album

import (
	"fmt"

	"github.com/kozaktomas/photo-grouper/internal/cluster"
)

// Kind tags the engine an album came from.
type Kind string

const (
	KindDuplicate Kind = "duplicate"
	KindSimilar   Kind = "similar"
	KindMoodboard Kind = "moodboard"
)

// MinPhotos is the smallest group that becomes an album.
const MinPhotos = 2

// Album is the externally visible grouping artifact.
type Album struct {
	Name       string   `json:"name"`
	Kind       Kind     `json:"kind"`
	CoverPhoto string   `json:"coverPhoto"`
	Photos     []string `json:"photos"`
	ColorKey   string   `json:"colorKey,omitempty"`
}

// Names maps album kinds to their name prefix.
type Names map[Kind]string

// DefaultNames returns English album names.
func DefaultNames() Names {
	return Names{
		KindDuplicate: "Duplicate Set",
		KindSimilar:   "Similar Set",
		KindMoodboard: "Moodboard",
	}
}

// Assembler numbers albums sequentially across everything added to it.
// Use one assembler per response.
type Assembler struct {
	names  Names
	next   int
	albums []Album
}

// NewAssembler returns an assembler using names, or DefaultNames when nil.
func NewAssembler(names Names) *Assembler {
	if names == nil {
		names = DefaultNames()
	}
	return &Assembler{names: names, next: 1}
}

func (a *Assembler) add(kind Kind, members []string, colorKey string) {
	if len(members) < MinPhotos {
		return
	}
	photos := make([]string, len(members))
	copy(photos, members)
	a.albums = append(a.albums, Album{
		Name:       fmt.Sprintf("%s %d", a.names[kind], a.next),
		Kind:       kind,
		CoverPhoto: photos[0],
		Photos:     photos,
		ColorKey:   colorKey,
	})
	a.next++
}

// AddHash renders duplicate sets, then similarity groups.
func (a *Assembler) AddHash(res *cluster.HashResult) *Assembler {
	if res == nil {
		return a
	}
	for _, d := range res.Duplicates {
		a.add(KindDuplicate, d.Members, "")
	}
	for _, g := range res.Similar {
		a.add(KindSimilar, g.Members, "")
	}
	return a
}

// AddColor renders colour groups as moodboards.
func (a *Assembler) AddColor(res *cluster.ColorResult) *Assembler {
	if res == nil {
		return a
	}
	for _, g := range res.Groups {
		a.add(KindMoodboard, g.Members, g.Key)
	}
	return a
}

// Albums returns the albums rendered so far, never nil.
func (a *Assembler) Albums() []Album {
	if a.albums == nil {
		return []Album{}
	}
	return a.albums
}

// Assemble renders a full Run result: duplicates, similars, then moodboards.
func Assemble(res *cluster.Result) []Album {
	if res == nil {
		return []Album{}
	}
	return NewAssembler(nil).AddHash(res.Hash).AddColor(res.Color).Albums()
}
