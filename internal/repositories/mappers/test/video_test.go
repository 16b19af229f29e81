package mappers_test

import (
	"testing"

	"github.com/bionicotaku/lingo-services-media/internal/models/po"
	"github.com/bionicotaku/lingo-services-media/internal/repositories/mappers"
)

func strPtr(v string) *string { return &v }

func TestSourceFromColumns_Uploaded(t *testing.T) {
	src, err := mappers.SourceFromColumns(mappers.SourceColumns{
		VideoType:  "UPLOADED",
		StorageKey: strPtr("videos/u1/raw.mp4"),
	})
	if err != nil {
		t.Fatalf("SourceFromColumns returned error: %v", err)
	}
	uploaded, ok := src.(po.UploadedSource)
	if !ok {
		t.Fatalf("expected UploadedSource, got %T", src)
	}
	if uploaded.StorageKey != "videos/u1/raw.mp4" {
		t.Fatalf("StorageKey = %q", uploaded.StorageKey)
	}
}

func TestSourceFromColumns_YouTube(t *testing.T) {
	src, err := mappers.SourceFromColumns(mappers.SourceColumns{
		VideoType:      "YOUTUBE",
		YouTubeURL:     strPtr("https://youtu.be/dQw4w9WgXcQ"),
		YouTubeVideoID: strPtr("dQw4w9WgXcQ"),
	})
	if err != nil {
		t.Fatalf("SourceFromColumns returned error: %v", err)
	}
	yt, ok := src.(po.YouTubeSource)
	if !ok {
		t.Fatalf("expected YouTubeSource, got %T", src)
	}
	if yt.VideoID != "dQw4w9WgXcQ" {
		t.Fatalf("VideoID = %q", yt.VideoID)
	}
}

func TestSourceFromColumns_RejectsInconsistentRows(t *testing.T) {
	cases := []struct {
		name string
		cols mappers.SourceColumns
	}{
		{"uploaded without key", mappers.SourceColumns{VideoType: "UPLOADED"}},
		{"uploaded with youtube url", mappers.SourceColumns{VideoType: "UPLOADED", StorageKey: strPtr("k"), YouTubeURL: strPtr("u")}},
		{"youtube without url", mappers.SourceColumns{VideoType: "YOUTUBE", YouTubeVideoID: strPtr("id")}},
		{"youtube without video id", mappers.SourceColumns{VideoType: "YOUTUBE", YouTubeURL: strPtr("u")}},
		{"youtube with storage key", mappers.SourceColumns{VideoType: "YOUTUBE", YouTubeURL: strPtr("u"), YouTubeVideoID: strPtr("id"), StorageKey: strPtr("k")}},
		{"unknown type", mappers.SourceColumns{VideoType: "VIMEO"}},
	}
	for _, tc := range cases {
		if _, err := mappers.SourceFromColumns(tc.cols); err == nil {
			t.Fatalf("%s: expected error, got nil", tc.name)
		}
	}
}

func TestColumnsFromSourceRoundTrip(t *testing.T) {
	for _, src := range []po.VideoSource{
		po.UploadedSource{StorageKey: "videos/u1/a.mp4"},
		po.YouTubeSource{URL: "https://www.youtube.com/watch?v=abc123DEF45", VideoID: "abc123DEF45"},
	} {
		cols := mappers.ColumnsFromSource(src)
		back, err := mappers.SourceFromColumns(cols)
		if err != nil {
			t.Fatalf("%T: round trip failed: %v", src, err)
		}
		if back != src {
			t.Fatalf("%T: round trip mismatch: %#v", src, back)
		}
	}
}
