package entity

import (
	"strings"

	"discogs/internal/extract"
	xmlparser "discogs/internal/parser/xml"
)

// Separators used to flatten credited-artist join text. Releases and
// masters differ; downstream consumers rely on both forms.
const (
	releaseJoinSep = ""
	masterJoinSep  = ","
)

// text builds a Record from child element text, omitting blank values.
func text(n *xmlparser.Node, fields map[string]string) Record {
	r := Record{}
	for key, child := range fields {
		if v, ok := extract.Text(n, child); ok {
			r[key] = v
		}
	}
	return r
}

// Label normalizes <label> elements. The id and name are child elements.
type Label struct{}

func (Label) Tag() string { return "label" }

func (Label) Normalize(n *xmlparser.Node) (Record, bool) {
	id, ok := extract.Text(n, "id")
	if !ok {
		return nil, false
	}
	rec := Record{"id": id}
	rec.Merge(text(n, map[string]string{
		"name":         "name",
		"contact_info": "contactinfo",
		"profile":      "profile",
		"data_quality": "data_quality",
	}))
	rec.Merge(Record{
		"urls":       extract.URLs(n),
		"sub_labels": subLabels(n, id),
	})
	return rec, true
}

// subLabels reads <sublabels><label id="..">name</label></sublabels>. Entries
// missing either the id or the name are skipped.
func subLabels(n *xmlparser.Node, parentID string) []Record {
	out := []Record{}
	for _, sl := range n.Find("sublabels/label") {
		id, ok := extract.Attr(sl, "id")
		if !ok {
			continue
		}
		name := extract.Clean(sl.Text)
		if name == "" {
			continue
		}
		out = append(out, Record{
			"id":              id,
			"name":            name,
			"parent_label_id": parentID,
		})
	}
	return out
}

// Artist normalizes <artist> elements.
type Artist struct{}

func (Artist) Tag() string { return "artist" }

func (Artist) Normalize(n *xmlparser.Node) (Record, bool) {
	id, ok := extract.Text(n, "id")
	if !ok {
		return nil, false
	}
	rec := Record{"id": id}
	rec.Merge(text(n, map[string]string{
		"name":         "name",
		"real_name":    "realname",
		"profile":      "profile",
		"data_quality": "data_quality",
	}))
	rec.Merge(Record{
		"urls":            extract.URLs(n),
		"aliases":         extract.Aliases(n),
		"name_variations": extract.NameVariations(n),
	})
	return rec, true
}

// Release normalizes <release id=".."> elements.
type Release struct{}

func (Release) Tag() string { return "release" }

func (Release) Normalize(n *xmlparser.Node) (Record, bool) {
	id, ok := extract.Attr(n, "id")
	if !ok {
		return nil, false
	}
	rec := Record{"id": id}
	rec.Merge(text(n, map[string]string{
		"title":        "title",
		"master_id":    "master_id",
		"release_date": "released",
		"notes":        "notes",
		"country":      "country",
	}))
	if isMain, ok := extract.Attr(n.Child("master_id"), "is_main_release"); ok {
		rec["is_master_release"] = isMain
	}

	artists := extract.CreditList(n, "artists")
	rec.PutText("artist_join", artists.JoinText(releaseJoinSep))
	rec.Merge(Record{
		"artist_id":   artists.IDs,
		"artist_name": artists.Names,
	})

	extra := extract.CreditList(n, "extraartists")
	rec.Merge(Record{
		"extra_artist_id":     extra.IDs,
		"extra_artist_name":   extra.Names,
		"extra_artist_role":   extra.Roles,
		"extra_artist_anv":    extra.ANVs,
		"extra_artist_tracks": extra.Tracks,
	})

	if l, ok := extract.FirstLabel(n); ok {
		rec.PutText("label_id", l.ID)
		rec.PutText("label_name", l.Name)
		rec.PutText("catno", l.Catno)
	}
	if f, ok := extract.FirstFormat(n); ok {
		rec.PutText("format", f.Name)
		rec.PutText("format_quantity", f.Quantity)
		rec.PutText("format_description", strings.Join(f.Descriptions, ","))
	}

	gs := extract.Classification(n)
	tl := extract.Tracks(n)
	v := extract.VideoList(n, false)
	co := extract.CompanyList(n)
	rec.Merge(Record{
		"genre":          gs.Genre,
		"style":          gs.Style,
		"track_position": tl.Positions,
		"track_title":    tl.Titles,
		"track_duration": tl.Durations,
		"video_url":      v.URLs,
		"video_duration": v.Durations,
		"company_id":     co.IDs,
		"company_name":   co.Names,
		"company_role":   co.Roles,
	})
	return rec, true
}

// Master normalizes <master id=".."> elements.
type Master struct{}

func (Master) Tag() string { return "master" }

func (Master) Normalize(n *xmlparser.Node) (Record, bool) {
	id, ok := extract.Attr(n, "id")
	if !ok {
		return nil, false
	}
	rec := Record{"id": id}
	rec.Merge(text(n, map[string]string{
		"title":        "title",
		"year":         "year",
		"data_quality": "data_quality",
	}))

	artists := extract.CreditList(n, "artists")
	rec.PutText("artist_join", artists.JoinText(masterJoinSep))

	gs := extract.Classification(n)
	v := extract.VideoList(n, true)
	rec.Merge(Record{
		"artist_id":         artists.IDs,
		"artist_name":       artists.Names,
		"artist_anv":        artists.ANVs,
		"video_url":         v.URLs,
		"video_duration":    v.Durations,
		"video_description": v.Descriptions,
		"genre":             gs.Genre,
		"style":             gs.Style,
	})
	return rec, true
}
