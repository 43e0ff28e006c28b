package api

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"jobnest/internal/database"
	"jobnest/internal/database/dbtest"
)

func newResumeUpload(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("resume", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func (e *testEnv) upload(token, filename string, content []byte) *httptest.ResponseRecorder {
	e.t.Helper()
	body, contentType := newResumeUpload(e.t, filename, content)
	req := httptest.NewRequest(http.MethodPost, "/api/upload/resume", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestUploadResumeAndFetch(t *testing.T) {
	env := newTestEnv(t, fakeScanner{})
	seeker := dbtest.CreateUser(t, env.db, "Sam", database.RoleSeeker)
	token := env.tokenFor(seeker)

	rec := env.upload(token, "cv.pdf", []byte("%PDF-1.4 resume"))
	expectStatus(t, rec, http.StatusOK)
	resp := decodeBody[map[string]string](t, rec)
	if resp["fileName"] != "cv.pdf" || resp["message"] != "File uploaded successfully" {
		t.Fatalf("unexpected response: %v", resp)
	}

	const prefix = "http://api.test/api/files/"
	if !strings.HasPrefix(resp["fileUrl"], prefix) {
		t.Fatalf("fileUrl = %q", resp["fileUrl"])
	}
	key := strings.TrimPrefix(resp["fileUrl"], prefix)
	if !strings.HasPrefix(key, "resumes/") || !strings.HasSuffix(key, ".pdf") {
		t.Fatalf("object key = %q", key)
	}
	if got := env.storage.types[key]; got != "application/pdf" {
		t.Fatalf("content type = %q", got)
	}

	expectStatus(t, env.do(http.MethodGet, "/api/files/"+key, nil, ""), http.StatusUnauthorized)

	rec = env.do(http.MethodGet, "/api/files/"+key, nil, token)
	expectStatus(t, rec, http.StatusFound)
	if loc := rec.Header().Get("Location"); !strings.Contains(loc, key) {
		t.Fatalf("Location = %q", loc)
	}

	expectStatus(t, env.do(http.MethodGet, "/api/files/resumes/1/missing.pdf", nil, token), http.StatusNotFound)
	expectStatus(t, env.do(http.MethodGet, "/api/files/other/1/cv.pdf", nil, token), http.StatusNotFound)
}

func TestUploadResumeRejections(t *testing.T) {
	env := newTestEnv(t, nil)
	seeker := dbtest.CreateUser(t, env.db, "Sam", database.RoleSeeker)
	token := env.tokenFor(seeker)

	expectStatus(t, env.upload(token, "cv.exe", []byte("MZ")), http.StatusBadRequest)
	expectStatus(t, env.upload(token, "cv.pdf", bytes.Repeat([]byte("a"), 2048)), http.StatusBadRequest)

	req := httptest.NewRequest(http.MethodPost, "/api/upload/resume", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	expectStatus(t, rec, http.StatusBadRequest)

	if len(env.storage.uploaded) != 0 {
		t.Fatalf("rejected uploads were stored: %d", len(env.storage.uploaded))
	}
}

func TestUploadResumeInfected(t *testing.T) {
	env := newTestEnv(t, fakeScanner{err: ErrInfected})
	seeker := dbtest.CreateUser(t, env.db, "Sam", database.RoleSeeker)

	rec := env.upload(env.tokenFor(seeker), "cv.docx", []byte("PK"))
	expectStatus(t, rec, http.StatusBadRequest)
	if got := decodeBody[map[string]string](t, rec)["error"]; got != ErrInfected.Error() {
		t.Fatalf("error = %q", got)
	}
	if len(env.storage.uploaded) != 0 {
		t.Fatal("infected upload was stored")
	}
}

func TestIsValidResumeObjectKey(t *testing.T) {
	t.Parallel()

	cases := map[string]bool{
		"resumes/1/abc.pdf":   true,
		"resumes/1/abc.DOCX":  true,
		"resumes/1/abc.exe":   false,
		"resumes/../etc.pdf":  false,
		"avatars/1/abc.pdf":   false,
		"resumes//abc.pdf":    false,
		"":                    false,
		"resumes\\1\\abc.pdf": false,
	}
	for key, want := range cases {
		if got := isValidResumeObjectKey(key); got != want {
			t.Errorf("isValidResumeObjectKey(%q) = %v, want %v", key, got, want)
		}
	}
}
