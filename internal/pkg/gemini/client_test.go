package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tidwall/gjson"
)

func TestGenerateImage(t *testing.T) {
	want := []byte("png-bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/m1:generateContent" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "k" {
			t.Errorf("key = %s", r.URL.Query().Get("key"))
		}
		raw, _ := io.ReadAll(r.Body)
		body := string(raw)
		if gjson.Get(body, "contents.0.parts.0.text").String() != "make it pro" {
			t.Errorf("prompt not sent: %s", body)
		}
		if gjson.Get(body, "contents.0.parts.1.inline_data.mime_type").String() != "image/jpeg" {
			t.Errorf("image not sent: %s", body)
		}
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"here"},{"inlineData":{"mimeType":"image/png","data":"` +
			base64.StdEncoding.EncodeToString(want) + `"}}]}}]}`))
	}))
	defer srv.Close()

	img, err := NewClient(srv.URL, "k", "m1", time.Second).GenerateImage(context.Background(), "make it pro", []byte{0xff, 0xd8})
	if err != nil {
		t.Fatalf("GenerateImage: %v", err)
	}
	if string(img.Data) != string(want) || img.MimeType != "image/png" {
		t.Fatalf("unexpected image: %+v", img)
	}
	if !strings.HasPrefix(img.DataURL(), "data:image/png;base64,") {
		t.Fatalf("DataURL = %s", img.DataURL())
	}
}

func TestGenerateImageNoImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"I can't do that"}]}}]}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "k", "m", time.Second).GenerateImage(context.Background(), "p", nil)
	if !errors.Is(err, ErrNoImage) {
		t.Fatalf("err = %v, want ErrNoImage", err)
	}
}

func TestGenerateImageErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":400,"message":"API key not valid"}}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "k", "m", time.Second).GenerateImage(context.Background(), "p", nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "API key not valid" {
		t.Fatalf("err = %v, want APIError", err)
	}

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer slow.Close()

	_, err = NewClient(slow.URL, "k", "m", 20*time.Millisecond).GenerateImage(context.Background(), "p", nil)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}
