package messages

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bionicotaku/lingo-services-media/internal/models/po"
)

func TestDecodeResult(t *testing.T) {
	videoID := uuid.New()
	payload := []byte(`{
		"videoId": "` + videoID.String() + `",
		"userId": "11111111-1111-1111-1111-111111111111",
		"status": "processing",
		"progress": 42,
		"message": "transcoding segment 3/7",
		"timestamp": "2026-08-30T10:15:00Z"
	}`)

	res, err := DecodeResult(payload)
	if err != nil {
		t.Fatalf("DecodeResult returned error: %v", err)
	}
	if res.VideoID != videoID {
		t.Fatalf("VideoID = %s, want %s", res.VideoID, videoID)
	}
	if res.Status != po.VideoStatusProcessing {
		t.Fatalf("Status = %s, want PROCESSING", res.Status)
	}
	if res.Progress != 42 {
		t.Fatalf("Progress = %d, want 42", res.Progress)
	}
	if res.Message == nil || *res.Message != "transcoding segment 3/7" {
		t.Fatalf("Message = %v, want transcoding segment 3/7", res.Message)
	}
	want := time.Date(2026, 8, 30, 10, 15, 0, 0, time.UTC)
	if !res.ReportedAt.Equal(want) {
		t.Fatalf("ReportedAt = %s, want %s", res.ReportedAt, want)
	}
}

func TestDecodeResultCompleted(t *testing.T) {
	payload := []byte(`{
		"videoId": "` + uuid.NewString() + `",
		"status": "COMPLETED",
		"progress": 100,
		"outputPath": "processed/u1/v1.mp4",
		"fileSize": 1048576,
		"duration": 90,
		"timestamp": "2026-08-30T10:20:00Z"
	}`)

	res, err := DecodeResult(payload)
	if err != nil {
		t.Fatalf("DecodeResult returned error: %v", err)
	}
	if res.Status != po.VideoStatusCompleted {
		t.Fatalf("Status = %s, want COMPLETED", res.Status)
	}
	if res.OutputPath != "processed/u1/v1.mp4" {
		t.Fatalf("OutputPath = %q", res.OutputPath)
	}
	if res.FileSize == nil || *res.FileSize != 1048576 {
		t.Fatalf("FileSize = %v, want 1048576", res.FileSize)
	}
	if res.Duration == nil || *res.Duration != 90 {
		t.Fatalf("Duration = %v, want 90", res.Duration)
	}
}

func TestDecodeResultDefaultsProgress(t *testing.T) {
	payload := []byte(`{"videoId": "` + uuid.NewString() + `", "status": "ERROR", "timestamp": "2026-08-30T10:20:00Z"}`)
	res, err := DecodeResult(payload)
	if err != nil {
		t.Fatalf("DecodeResult returned error: %v", err)
	}
	if res.Progress != 0 {
		t.Fatalf("Progress = %d, want 0", res.Progress)
	}
	if res.Message != nil {
		t.Fatalf("Message = %v, want nil", res.Message)
	}
}

func TestDecodeResultRejectsInvalid(t *testing.T) {
	cases := []struct {
		name    string
		payload string
	}{
		{"not json", `{"videoId": `},
		{"missing video id", `{"status": "PENDING"}`},
		{"bad video id", `{"videoId": "not-a-uuid", "status": "PENDING"}`},
		{"unknown status", `{"videoId": "` + uuid.NewString() + `", "status": "EXPLODED"}`},
		{"empty status", `{"videoId": "` + uuid.NewString() + `"}`},
		{"completed without outputPath", `{"videoId": "` + uuid.NewString() + `", "status": "COMPLETED", "progress": 100}`},
		{"completed with blank outputPath", `{"videoId": "` + uuid.NewString() + `", "status": "COMPLETED", "progress": 100, "outputPath": "  "}`},
		{"progress too high", `{"videoId": "` + uuid.NewString() + `", "status": "PROCESSING", "progress": 101}`},
		{"negative progress", `{"videoId": "` + uuid.NewString() + `", "status": "PROCESSING", "progress": -1}`},
		{"bad timestamp", `{"videoId": "` + uuid.NewString() + `", "status": "PENDING", "timestamp": "yesterday"}`},
	}
	for _, tc := range cases {
		if _, err := DecodeResult([]byte(tc.payload)); err == nil {
			t.Fatalf("%s: expected error, got nil", tc.name)
		}
	}
}

func TestRequestRoundTrip(t *testing.T) {
	videoID := uuid.New()
	userID := uuid.New()
	now := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	msg := NewRequest(videoID, userID, "videos/u/raw.mp4", "processed/u/"+videoID.String()+".mp4", now)

	data, err := msg.Encode()
	if err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	var decoded ProcessingMessage
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal request: %v", err)
	}
	if decoded.VideoID != videoID.String() {
		t.Fatalf("videoId = %q", decoded.VideoID)
	}
	if decoded.UserID != userID.String() {
		t.Fatalf("userId = %q", decoded.UserID)
	}
	if decoded.VideoPath != "videos/u/raw.mp4" || decoded.CloudStorageKey != "videos/u/raw.mp4" {
		t.Fatalf("paths = %q / %q", decoded.VideoPath, decoded.CloudStorageKey)
	}
	if decoded.Timestamp != "2026-08-30T09:00:00Z" {
		t.Fatalf("timestamp = %q", decoded.Timestamp)
	}
	if decoded.Status != "" || decoded.Progress != nil {
		t.Fatalf("request should not carry status fields: %q %v", decoded.Status, decoded.Progress)
	}
}
