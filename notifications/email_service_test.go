package notifications

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	config "github.com/anjiri1684/training_academy/configs"
)

func TestBrevoSendWithAttachment(t *testing.T) {
	var got brevoPayload
	var apiKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey = r.Header.Get("api-key")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	svc := NewBrevoService(config.EmailConfig{BrevoAPIKey: "key-1", SenderEmail: "desk@academy.test", SenderName: "Academy"}, srv.URL)
	err := svc.Send(context.Background(), Message{
		ToEmail:     "parent@example.com",
		Subject:     "Booking confirmed",
		HTML:        "<p>See you there</p>",
		Attachments: []Attachment{{Name: "session.ics", Content: []byte("BEGIN:VCALENDAR")}},
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if apiKey != "key-1" {
		t.Errorf("api-key = %q", apiKey)
	}
	if got.To[0]["name"] != "parent" {
		t.Errorf("recipient name = %q, want local part", got.To[0]["name"])
	}
	if len(got.Attachment) != 1 || got.Attachment[0].Name != "session.ics" {
		t.Fatalf("attachments = %+v", got.Attachment)
	}
	raw, _ := base64.StdEncoding.DecodeString(got.Attachment[0].Content)
	if string(raw) != "BEGIN:VCALENDAR" {
		t.Errorf("attachment content = %q", raw)
	}
}

func TestBrevoSendRejects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"invalid_parameter"}`))
	}))
	defer srv.Close()

	svc := NewBrevoService(config.EmailConfig{BrevoAPIKey: "k"}, srv.URL)
	if err := svc.Send(context.Background(), Message{ToEmail: "nobody"}); err == nil {
		t.Error("expected invalid recipient error")
	}
	err := svc.Send(context.Background(), Message{ToEmail: "a@b.co"})
	if err == nil || !strings.Contains(err.Error(), "invalid_parameter") {
		t.Errorf("Send() error = %v", err)
	}
}

func TestBuildInvite(t *testing.T) {
	start := time.Date(2025, 6, 7, 8, 0, 0, 0, time.UTC)
	ics := string(BuildInvite(Invite{
		UID:      "booking-1@academy",
		Title:    "Clinic; U13, advanced",
		Location: "Field 2",
		Start:    start,
		End:      start.Add(90 * time.Minute),
	}, start.Add(-48*time.Hour)))

	for _, want := range []string{
		"BEGIN:VEVENT\r\n",
		"UID:booking-1@academy\r\n",
		"DTSTART:20250607T080000Z\r\n",
		"DTEND:20250607T093000Z\r\n",
		`SUMMARY:Clinic\; U13\, advanced` + "\r\n",
		"LOCATION:Field 2\r\n",
	} {
		if !strings.Contains(ics, want) {
			t.Errorf("invite missing %q\n%s", want, ics)
		}
	}
	if strings.Contains(ics, "DESCRIPTION") {
		t.Error("empty description must be omitted")
	}
}
