// Package media is the HTTP facade over the attachment store: uploads
// come in, durable URLs go out, stored files are streamed back.
package media

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"coursechat/internal/dbmongo"
)

type HTTPServer struct {
	storage *dbmongo.AttachmentStorage
}

func NewHTTPServer(storage *dbmongo.AttachmentStorage) *HTTPServer {
	return &HTTPServer{storage: storage}
}

func (s *HTTPServer) Router() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/media", s.uploadFile).Methods("POST")
	router.HandleFunc("/media/{fileId}", s.serveFile).Methods("GET")
	router.HandleFunc("/health", s.health).Methods("GET")

	return router
}

func (s *HTTPServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router().ServeHTTP(w, r)
}

func (s *HTTPServer) uploadFile(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	stored, err := s.storage.Put(r.Context(), header.Filename, mimeType, file)
	if err != nil {
		log.Printf("media: upload failed: %v", err)
		http.Error(w, "upload failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(stored)
}

func (s *HTTPServer) serveFile(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	fileId := vars["fileId"]

	fileReader, stored, err := s.storage.Fetch(r.Context(), fileId)
	if err != nil {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	contentType := stored.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", fmt.Sprintf("%d", stored.Size))

	if _, err := io.Copy(w, fileReader); err != nil {
		log.Printf("media: error streaming file: %v", err)
	}
}

func (s *HTTPServer) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","service":"coursechat-media"}`))
}
