package extract

import (
	"math"
	"strconv"
	"strings"

	xmlparser "discogs/internal/parser/xml"
)

// GenresStyles carries the two independent classification lists.
type GenresStyles struct {
	Genre []string
	Style []string
}

// Classification reads <genres> and <styles>.
func Classification(n *xmlparser.Node) GenresStyles {
	return GenresStyles{
		Genre: List(n, "genres", "genre"),
		Style: List(n, "styles", "style"),
	}
}

// Videos holds parallel video lists. Descriptions is only populated for
// masters.
type Videos struct {
	URLs         []string
	Durations    []string
	Descriptions []string
}

// VideoList reads <videos><video src=".." duration="..">. Every list keeps
// one entry per video, "" where the field is missing.
func VideoList(n *xmlparser.Node, withDescriptions bool) Videos {
	videos := n.Find("videos/video")
	v := Videos{
		URLs:      attrOf(videos, "src"),
		Durations: attrOf(videos, "duration"),
	}
	if withDescriptions {
		v.Descriptions = textOf(videos, "description")
	}
	return v
}

// Credits holds the fields of a credited-artist group. Each list is
// extracted independently and skips artists missing that field.
type Credits struct {
	IDs    []string
	Names  []string
	ANVs   []string
	Roles  []string
	Tracks []string
	Joins  []string // raw join text, only empty entries skipped
}

// CreditList reads <group><artist>...</artist></group>, where group is
// "artists" or "extraartists".
func CreditList(n *xmlparser.Node, group string) Credits {
	artists := n.Child(group).ChildrenNamed("artist")
	c := Credits{
		IDs:    fieldOf(artists, "id"),
		Names:  fieldOf(artists, "name"),
		ANVs:   fieldOf(artists, "anv"),
		Roles:  fieldOf(artists, "role"),
		Tracks: fieldOf(artists, "tracks"),
		Joins:  []string{},
	}
	for _, a := range artists {
		if j := RawText(a, "join"); j != "" {
			c.Joins = append(c.Joins, j)
		}
	}
	return c
}

// JoinText concatenates the join separators of c with sep.
func (c Credits) JoinText(sep string) string { return strings.Join(c.Joins, sep) }

// Companies holds the parallel lists of <companies><company>.
type Companies struct {
	IDs   []string
	Names []string
	Roles []string
}

// CompanyList reads id, name and entity_type_name of every company.
func CompanyList(n *xmlparser.Node) Companies {
	companies := n.Find("companies/company")
	return Companies{
		IDs:   fieldOf(companies, "id"),
		Names: fieldOf(companies, "name"),
		Roles: fieldOf(companies, "entity_type_name"),
	}
}

// Label is the primary label of a release.
type Label struct {
	ID    string
	Name  string
	Catno string
}

// FirstLabel reads the attributes of the first <labels><label>. Further
// labels are ignored.
func FirstLabel(n *xmlparser.Node) (Label, bool) {
	labels := n.Find("labels/label")
	if len(labels) == 0 {
		return Label{}, false
	}
	l := labels[0]
	return Label{
		ID:    Clean(l.Attr("id")),
		Name:  Clean(l.Attr("name")),
		Catno: Clean(l.Attr("catno")),
	}, true
}

// Format is the primary format of a release.
type Format struct {
	Name         string
	Quantity     string
	Descriptions []string
}

// FirstFormat reads the first <formats><format>. Further formats are
// ignored.
func FirstFormat(n *xmlparser.Node) (Format, bool) {
	formats := n.Find("formats/format")
	if len(formats) == 0 {
		return Format{}, false
	}
	f := formats[0]
	return Format{
		Name:         Clean(f.Attr("name")),
		Quantity:     Clean(f.Attr("qty")),
		Descriptions: List(f, "descriptions", "description"),
	}, true
}

// Tracklist holds the parallel lists of <tracklist><track>. Each list skips
// tracks missing that field.
type Tracklist struct {
	Positions []string
	Titles    []string
	Durations []string
}

// Tracks reads position, title and duration of every track.
func Tracks(n *xmlparser.Node) Tracklist {
	tracks := n.Find("tracklist/track")
	return Tracklist{
		Positions: fieldOf(tracks, "position"),
		Titles:    fieldOf(tracks, "title"),
		Durations: fieldOf(tracks, "duration"),
	}
}

// Seconds converts "m:ss" or "h:mm:ss" to a number of seconds.
func Seconds(d string) (int, bool) {
	parts := strings.Split(strings.TrimSpace(d), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}
	total := 0
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 {
			return 0, false
		}
		if i > 0 && v >= 60 {
			return 0, false
		}
		if total > (math.MaxInt-v)/60 {
			return 0, false
		}
		total = total*60 + v
	}
	return total, true
}
