package sink

import (
	"strconv"

	"discogs/internal/entity"
	"discogs/internal/extract"
)

// LabelTables are the destinations of the label category.
func LabelTables() []Table {
	return []Table{
		simple("label", "id", "name", "contact_info", "profile", "data_quality"),
		list("label_url", "label_id", "url", "urls"),
		NewTable("sub_label", Nested, []string{"id", "name", "parent_label_id"}, subLabelRows),
	}
}

func subLabelRows(rec entity.Record) ([]Row, int) {
	subs := rec.Subs("sub_labels")
	if len(subs) == 0 {
		return nil, 0
	}
	rows := make([]Row, len(subs))
	for i, s := range subs {
		rows[i] = Row{s.String("id"), s.String("name"), s.String("parent_label_id")}
	}
	return rows, 0
}

// ArtistTables are the destinations of the artist category.
func ArtistTables() []Table {
	return []Table{
		simple("artist", "id", "name", "real_name", "profile", "data_quality"),
		list("artist_url", "artist_id", "url", "urls"),
		list("artist_alias", "artist_id", "alias", "aliases"),
		list("artist_name_variation", "artist_id", "name_variation", "name_variations"),
	}
}

// ReleaseTables are the destinations of the release category.
func ReleaseTables() []Table {
	return []Table{
		simple("release",
			"id", "title", "master_id", "release_date", "notes", "country",
			"is_master_release", "format", "format_quantity", "format_description",
			"label_id", "label_name", "catno", "artist_join"),
		zipped("release_artist",
			[]string{"release_id", "artist_id", "artist_name"},
			"artist_id", "artist_name"),
		zipped("release_extra_artist",
			[]string{"release_id", "artist_id", "artist_name", "role"},
			"extra_artist_id", "extra_artist_name", "extra_artist_role"),
		list("release_genre", "release_id", "genre", "genre"),
		list("release_style", "release_id", "style", "style"),
		NewTable("release_track", Nested,
			[]string{"release_id", "position", "title", "duration", "duration_seconds"},
			releaseTrackRows),
		zipped("release_company",
			[]string{"release_id", "company_id", "company_name", "role"},
			"company_id", "company_name", "company_role"),
		zipped("release_video",
			[]string{"release_id", "url", "duration"},
			"video_url", "video_duration"),
	}
}

func releaseTrackRows(rec entity.Record) ([]Row, int) {
	tuples, dropped := Zip(rec.Strings("track_position"), rec.Strings("track_title"), rec.Strings("track_duration"))
	if len(tuples) == 0 {
		return nil, dropped
	}
	id := rec.String("id")
	rows := make([]Row, len(tuples))
	for i, t := range tuples {
		var secs any
		if s, ok := extract.Seconds(t[2]); ok {
			secs = strconv.Itoa(s)
		}
		rows[i] = Row{id, t[0], t[1], t[2], secs}
	}
	return rows, dropped
}

// MasterTables are the destinations of the master category.
func MasterTables() []Table {
	return []Table{
		simple("master", "id", "title", "year", "data_quality", "artist_join"),
		NewTable("master_artist", Nested,
			[]string{"master_id", "artist_id", "artist_name", "anv"},
			masterArtistRows),
		list("master_genre", "master_id", "genre", "genre"),
		list("master_style", "master_id", "style", "style"),
		zipped("master_video",
			[]string{"master_id", "url", "duration", "description"},
			"video_url", "video_duration", "video_description"),
	}
}

// masterArtistRows zips ids with names. anv is sparse in the source, so it is
// attached positionally only when it lines up with every pair.
func masterArtistRows(rec entity.Record) ([]Row, int) {
	tuples, dropped := Zip(rec.Strings("artist_id"), rec.Strings("artist_name"))
	if len(tuples) == 0 {
		return nil, dropped
	}
	anv := rec.Strings("artist_anv")
	aligned := len(anv) == len(tuples)
	id := rec.String("id")
	rows := make([]Row, len(tuples))
	for i, t := range tuples {
		var a any
		if aligned {
			a = anv[i]
		}
		rows[i] = Row{id, t[0], t[1], a}
	}
	return rows, dropped
}

// ForCategory returns the tables fed by a category ("label", "artist",
// "release" or "master").
func ForCategory(category string) ([]Table, bool) {
	switch category {
	case "label":
		return LabelTables(), true
	case "artist":
		return ArtistTables(), true
	case "release":
		return ReleaseTables(), true
	case "master":
		return MasterTables(), true
	}
	return nil, false
}
